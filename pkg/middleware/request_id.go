// Package middleware contains any custom middleware used in the app
package middleware

import (
	"marukatte/seo-api/pkg/util"

	"github.com/gin-gonic/gin"
)

// RequestIDHeader is echoed back so clients can quote it when reporting problems
const RequestIDHeader = "X-Request-ID"

// NewRequestIDMiddleware returns a new middleware function that generates a request ID for
// each incoming request and sets it as requestID
func NewRequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := util.RandStr(10)

		c.Set("requestID", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}
