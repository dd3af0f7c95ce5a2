package helpers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// SessionCookieName is the only channel the session token travels on.
const SessionCookieName = "token"

// SessionCookie writes and clears the session token cookie. Clear must use
// the same name, path, domain and flags as Set or browsers keep the cookie.
// MaxAge must match the token TTL so the cookie and the JWT expire together.
type SessionCookie struct {
	Domain string
	Secure bool
	MaxAge time.Duration
}

func NewSessionCookie(domain string, secure bool, maxAge time.Duration) *SessionCookie {
	return &SessionCookie{Domain: domain, Secure: secure, MaxAge: maxAge}
}

func (m *SessionCookie) Set(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, token, int(m.MaxAge.Seconds()), "/", m.Domain, m.Secure, true)
}

func (m *SessionCookie) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, "", -1, "/", m.Domain, m.Secure, true)
}

// Read returns the token carried by the request, if any.
func (m *SessionCookie) Read(c *gin.Context) (string, bool) {
	v, err := c.Cookie(SessionCookieName)
	if err != nil || v == "" {
		return "", false
	}
	return v, true
}
