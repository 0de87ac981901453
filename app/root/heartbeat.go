// Package root holds the endpoints that don't belong to any resource
package root

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Heartbeat answers HEAD and GET probes. GET also reports when the
// process started so uptime checks can spot restarts.
func Heartbeat(started time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodHead {
			c.Status(http.StatusOK)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"started": started.UTC().Format(time.RFC3339),
		})
	}
}
