package handler

import (
	"errors"
	"net/http"
	"strconv"

	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/adapter/http/middleware"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// bindJSON binds and validates the body into req, writing the error
// response itself. Amount validation failures map to InvalidAmount.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.Error(c, bindError(err))
		return false
	}
	dto.SanitizeStruct(req)
	return true
}

func bindError(err error) *apperror.AppError {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return middleware.ErrBodyTooLarge()
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Tag() == "decimal_amount" {
				return apperror.ErrInvalidAmount()
			}
		}
	}
	return apperror.Validation(err.Error())
}

// addressParam reads and validates the :address path segment.
func addressParam(c *gin.Context, name string) (string, bool) {
	address := dto.NormalizeAddress(c.Param(name))
	if !dto.ValidAddress(address) {
		response.Error(c, apperror.Validation("invalid wallet address"))
		return "", false
	}
	return address, true
}

// idParam reads a positive integer path segment.
func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, apperror.Validation("invalid "+name))
		return 0, false
	}
	return id, true
}
