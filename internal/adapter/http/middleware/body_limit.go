package middleware

import (
	"net/http"

	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// ErrBodyTooLarge is the response sent for oversized request bodies.
func ErrBodyTooLarge() *apperror.AppError {
	return apperror.New(apperror.CodeInvalidRequest, "Request body too large", http.StatusRequestEntityTooLarge)
}

// MaxBodySize limits the request body size. A declared Content-Length over
// the limit is rejected up front; otherwise the reader fails once the
// limit is crossed and binding reports it.
func MaxBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.Error(c, ErrBodyTooLarge())
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
