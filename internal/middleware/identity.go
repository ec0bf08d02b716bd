package middleware

import (
	"github.com/labstack/echo/v4"
)

// Context keys set by JWTAuth.
const (
	CtxSubject = "subject"
	CtxRole    = "role"
)

// Subject returns the token subject stored by JWTAuth: the session id for
// buyers, "admin" for the operator. Empty when unauthenticated.
func Subject(c echo.Context) string {
	s, _ := c.Get(CtxSubject).(string)
	return s
}

// Role returns the token role stored by JWTAuth.
func Role(c echo.Context) string {
	r, _ := c.Get(CtxRole).(string)
	return r
}

// identity names the caller for rate-limit keys, "anon" before login.
func identity(c echo.Context) string {
	if s := Subject(c); s != "" {
		return s
	}
	return "anon"
}
