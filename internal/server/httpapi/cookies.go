package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/eduportal/internal/common"
	"github.com/dmitrijs2005/eduportal/internal/server/services"
	"github.com/gin-gonic/gin"
)

// CookieOptions hardens the session cookies. A zero MaxAge makes them
// browser-session cookies.
type CookieOptions struct {
	Secure bool
	MaxAge time.Duration
}

func readSessionCookies(c *gin.Context) services.SessionCookies {
	admin, _ := c.Cookie(common.AdminSessionCookie)
	user, _ := c.Cookie(common.UserSessionCookie)
	return services.SessionCookies{Admin: admin, User: user}
}

func (o CookieOptions) set(c *gin.Context, s *services.Session) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     s.CookieName,
		Value:    s.Value,
		Path:     "/",
		MaxAge:   int(o.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// clear expires both session cookies whatever the request carried.
func (o CookieOptions) clear(c *gin.Context) {
	for _, name := range []string{common.AdminSessionCookie, common.UserSessionCookie} {
		http.SetCookie(c.Writer, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
			HttpOnly: true,
			Secure:   o.Secure,
			SameSite: http.SameSiteStrictMode,
		})
	}
}
