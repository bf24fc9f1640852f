package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/qmsworks/qms/internal/domain"
	"github.com/qmsworks/qms/internal/models"
)

// AuthHandler serves login and session endpoints.
type AuthHandler struct {
	svc domain.AuthService
	log *logrus.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(svc domain.AuthService, log *logrus.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, log: log}
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.svc.Login(c.Request.Context(), req, clientMeta(c))
	if err != nil {
		respondServiceError(c, h.log, "auth.login", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	user, err := h.svc.CurrentUser(c.Request.Context(), actor.ID)
	if err != nil {
		respondServiceError(c, h.log, "auth.me", err)
		return
	}

	c.JSON(http.StatusOK, user)
}
