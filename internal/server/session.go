package server

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"modelgate/internal/core"
	"modelgate/internal/prefs"
)

const (
	// CallerIDHeader names the caller explicitly, e.g. for server-to-server clients.
	CallerIDHeader = "X-Caller-ID"
	// SessionCookie carries the generated caller id for browser clients.
	SessionCookie = "modelgate_session"

	sessionMaxAge = 365 * 24 * 60 * 60
)

// SessionMiddleware resolves the caller identity that scopes preference storage:
// the X-Caller-ID header, then the session cookie, else a new id set as the cookie.
func SessionMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			callerID := strings.TrimSpace(c.Request().Header.Get(CallerIDHeader))
			if callerID == "" {
				if cookie, err := c.Cookie(SessionCookie); err == nil {
					callerID = cookie.Value
				}
			}
			if callerID != "" {
				if err := prefs.ValidateCallerID(callerID); err != nil {
					return handleError(c, core.NewInvalidRequestError(err.Error(), err))
				}
			} else {
				callerID = uuid.NewString()
				c.SetCookie(&http.Cookie{
					Name:     SessionCookie,
					Value:    callerID,
					Path:     "/",
					MaxAge:   sessionMaxAge,
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := core.WithCallerID(c.Request().Context(), callerID)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
