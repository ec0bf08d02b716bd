package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-seat-booking/internal/config"
	"github.com/iliyamo/event-seat-booking/internal/middleware"
	"github.com/iliyamo/event-seat-booking/internal/session"
	"github.com/iliyamo/event-seat-booking/internal/utils"
)

// adminSubject is the token subject of the operator.
const adminSubject = "admin"

// AuthHandler bundles dependencies for buyer and admin login.
type AuthHandler struct {
	Cfg  config.Config
	Flow *session.Controller
}

func NewAuthHandler(cfg config.Config, flow *session.Controller) *AuthHandler {
	if flow == nil {
		panic("nil controller passed to NewAuthHandler")
	}
	return &AuthHandler{Cfg: cfg, Flow: flow}
}

// ----- DTOs -----

type loginReq struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
	Receipt string `json:"receipt"`
}

type adminLoginReq struct {
	Password string `json:"password"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type loginResp struct {
	Access tokenPart    `json:"access"`
	State  session.View `json:"state"`
}

// Login matches the buyer against the whitelist and returns a session token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	view, err := h.Flow.Login(ctx, req.Name, req.Contact, req.Receipt)
	if err != nil {
		return respondError(c, err, nil)
	}
	access, err := utils.NewSessionToken(h.Cfg.JWTSecret, view.SessionID, utils.RoleBuyer, h.Cfg.SessionTTL)
	if err != nil {
		h.Flow.Logout(view.SessionID)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed"})
	}
	return c.JSON(http.StatusOK, loginResp{
		Access: tokenPart{Token: access.Token, Expires: access.Exp},
		State:  view,
	})
}

// Refresh re-issues the buyer token for a live session and keeps the
// session alive. Tokens carry an absolute expiry, so clients call this
// before access.expires while they wait.
func (h *AuthHandler) Refresh(c echo.Context) error {
	view, err := h.Flow.Touch(middleware.Subject(c))
	if err != nil {
		return respondError(c, err, nil)
	}
	access, err := utils.NewSessionToken(h.Cfg.JWTSecret, view.SessionID, utils.RoleBuyer, h.Cfg.SessionTTL)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed"})
	}
	return c.JSON(http.StatusOK, loginResp{
		Access: tokenPart{Token: access.Token, Expires: access.Exp},
		State:  view,
	})
}

// Logout ends the buyer session. Also used for "change details": the buyer
// logs in again with different values.
func (h *AuthHandler) Logout(c echo.Context) error {
	h.Flow.Logout(middleware.Subject(c))
	return c.NoContent(http.StatusNoContent)
}

// AdminLogin checks the operator password against ADMIN_PASSWORD_HASH.
func (h *AuthHandler) AdminLogin(c echo.Context) error {
	var req adminLoginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if !utils.VerifyPassword(h.Cfg.AdminHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	access, err := utils.NewSessionToken(h.Cfg.JWTSecret, adminSubject, utils.RoleAdmin, h.Cfg.SessionTTL)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"access": tokenPart{Token: access.Token, Expires: access.Exp}})
}
