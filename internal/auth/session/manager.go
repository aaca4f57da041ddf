// Package session carries the login token between the browser and the auth service.
package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/trashforcoin/internal/clock"
	"github.com/smallbiznis/trashforcoin/internal/config"
	"go.uber.org/fx"
)

const DefaultCookieName = "tfc_session"

type Params struct {
	fx.In

	Config config.Config
	Clock  clock.Clock
}

// Manager reads and writes the session cookie. The cookie holds the raw token;
// only its hash is persisted.
type Manager struct {
	cookieName string
	secure     bool
	clock      clock.Clock
}

func NewManager(p Params) *Manager {
	name := strings.TrimSpace(p.Config.AuthCookieName)
	if name == "" {
		name = DefaultCookieName
	}
	c := p.Clock
	if c == nil {
		c = clock.NewSystemClock()
	}
	return &Manager{
		cookieName: name,
		secure:     p.Config.AuthCookieSecure,
		clock:      c,
	}
}

func (m *Manager) CookieName() string {
	return m.cookieName
}

func (m *Manager) ReadToken(c *gin.Context) (string, bool) {
	token, err := c.Cookie(m.cookieName)
	if err != nil {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Set writes the token with a max age matching the session expiry. An already
// expired session still gets a session cookie rather than none.
func (m *Manager) Set(c *gin.Context, token string, expiresAt time.Time) {
	maxAge := int(expiresAt.Sub(m.clock.Now()) / time.Second)
	if maxAge < 0 {
		maxAge = 0
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookieName, token, maxAge, "/", "", m.secure, true)
}

func (m *Manager) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookieName, "", -1, "/", "", m.secure, true)
}
