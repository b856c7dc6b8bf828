package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/room-booking-sync/internal/config"
	"github.com/iliyamo/room-booking-sync/internal/utils"
)

// AuthHandler issues admin access tokens. There is a single admin account
// whose email and bcrypt password hash come from configuration.
type AuthHandler struct {
	Cfg config.Config
	log *zap.Logger
}

func NewAuthHandler(cfg config.Config, log *zap.Logger) *AuthHandler {
	return &AuthHandler{Cfg: cfg, log: log}
}

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type userPart struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type authResp struct {
	User   userPart  `json:"user"`
	Access tokenPart `json:"access"`
}

// Login handles POST /v1/auth/login.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := c.Validate(&req); err != nil {
		return writeError(c, h.log, err)
	}

	// The hash is checked even for an unknown email so both paths cost the same.
	emailOK := h.Cfg.AdminEmail != "" && req.Email == strings.ToLower(h.Cfg.AdminEmail)
	passOK := utils.VerifyPassword(h.Cfg.AdminPasswordHash, req.Password)
	if !emailOK || !passOK {
		if h.log != nil {
			h.log.Warn("admin login failed", zap.String("email", req.Email), zap.String("remote_ip", c.RealIP()))
		}
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, req.Email, utils.RoleAdmin, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	return c.JSON(http.StatusOK, authResp{
		User:   userPart{Email: req.Email, Role: utils.RoleAdmin},
		Access: tokenPart{Token: access.Token, Expires: access.Exp},
	})
}
