// Package usage keeps the per-client generation count. The count lives
// entirely in a cookie held by the client, so it can be reset by clearing
// it; there is no server side ledger.
package usage

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	CookieName = "usageData"
	// MaxRequests is how many generations a client gets per cookie window
	MaxRequests = 5
	TTL         = 30 * 24 * time.Hour
)

// Record maps a client identifier to the number of generations it made
type Record map[string]int

// Parse decodes a cookie value. Absent or malformed values yield an empty record.
func Parse(raw string) Record {
	r := Record{}
	if raw == "" {
		return r
	}

	if err := json.Unmarshal([]byte(raw), &r); err != nil || r == nil {
		return Record{}
	}

	return r
}

// Encode returns the cookie value for r
func (r Record) Encode() string {
	b, err := json.Marshal(r)
	if err != nil {
		// map[string]int always marshals
		return "{}"
	}

	return string(b)
}

type Counter struct {
	Limit int
	TTL   time.Duration
	// Secure marks the cookie HTTPS only. Off by default so plain HTTP
	// deployments keep counting.
	Secure bool
}

func NewCounter() *Counter {
	return &Counter{
		Limit: MaxRequests,
		TTL:   TTL,
	}
}

// Check returns how many generations clientID already made according to
// the request's cookie. It never fails.
func (u *Counter) Check(c *gin.Context, clientID string) int {
	return Parse(cookie(c))[clientID]
}

// Exceeded reports whether count has reached the limit
func (u *Counter) Exceeded(count int) bool {
	return count >= u.Limit
}

// Increment re-reads the request cookie, bumps clientID's count by one and
// sets the updated cookie on the response. Other clients' counts are kept.
func (u *Counter) Increment(c *gin.Context, clientID string) {
	r := Parse(cookie(c))
	r[clientID]++

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, r.Encode(), int(u.TTL.Seconds()), "/", "", u.Secure, false)

	zap.L().Debug("Usage incremented",
		zap.String("requestID", c.GetString("requestID")),
		zap.String("clientID", clientID),
		zap.Int("count", r[clientID]))
}

func cookie(c *gin.Context) string {
	v, err := c.Cookie(CookieName)
	if err != nil {
		return ""
	}

	return v
}
