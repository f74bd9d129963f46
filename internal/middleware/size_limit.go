package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// multipart boundaries and part headers on top of the file itself
const multipartOverhead = int64(8 * 1024)

// SizeLimit caps the request body at maxBodyBytes plus multipart framing.
// Reading past the cap fails with *http.MaxBytesError, which handlers answer
// with 413 Request Entity Too Large.
func SizeLimit(maxBodyBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := maxBodyBytes + multipartOverhead
		if c.Request.ContentLength > limit {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": "Entity too large",
			})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

		c.Next()
	}
}
