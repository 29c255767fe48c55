package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MsgBodyTooLarge is the error message for oversized request bodies
const MsgBodyTooLarge = "request body exceeds the maximum allowed size"

// BodyLimit rejects bodies whose declared length exceeds maxBytes and caps
// the rest while they are read.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"status":  "error",
				"message": MsgBodyTooLarge,
			})
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
