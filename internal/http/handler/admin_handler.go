package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bizlink/workplace-console/internal/config"
	"github.com/bizlink/workplace-console/internal/http/middleware"
	"github.com/bizlink/workplace-console/internal/service"
)

// AdminHandler serves the authenticated console pages.
type AdminHandler struct {
	admin  *service.AdminService
	cfg    config.Config
	logger *zap.Logger
}

// NewAdminHandler wires the admin handler.
func NewAdminHandler(admin *service.AdminService, cfg config.Config, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{admin: admin, cfg: cfg, logger: logger}
}

// Home renders the console dashboard with install links for each flow.
func (h *AdminHandler) Home(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	c.HTML(http.StatusOK, "admin.tmpl", gin.H{
		"User":            user,
		"AppID":           h.cfg.AppID,
		"GraphVersion":    h.cfg.GraphVersion,
		"AppRedirect":     h.cfg.AppRedirect,
		"AppUserRedirect": h.cfg.AppUserRedirect,
		"BaseURL":         h.cfg.BaseURL,
	})
}

// Communities lists installed communities with install metadata and a fresh
// state nonce for the install links.
func (h *AdminHandler) Communities(c *gin.Context) {
	communities, state, err := h.admin.Communities(c.Request.Context())
	if err != nil {
		renderServiceError(c, h.logger, err)
		return
	}

	user, _ := middleware.CurrentUser(c)
	c.HTML(http.StatusOK, "communities.tmpl", gin.H{
		"User":         user,
		"Communities":  communities,
		"State":        state,
		"AppID":        h.cfg.AppID,
		"GraphVersion": h.cfg.GraphVersion,
		"AppRedirect":  h.cfg.AppRedirect,
	})
}

// Users lists console accounts and their linked Workplace identities.
func (h *AdminHandler) Users(c *gin.Context) {
	users, err := h.admin.Users(c.Request.Context())
	if err != nil {
		renderServiceError(c, h.logger, err)
		return
	}

	user, _ := middleware.CurrentUser(c)
	c.HTML(http.StatusOK, "users.tmpl", gin.H{
		"User":  user,
		"Users": users,
	})
}

// Unlink removes a user's Workplace link.
func (h *AdminHandler) Unlink(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		renderError(c, http.StatusBadRequest, "Invalid user id.")
		return
	}
	if err := h.admin.UnlinkUser(c.Request.Context(), id); err != nil {
		renderServiceError(c, h.logger, err)
		return
	}
	c.Redirect(http.StatusFound, "/admin/users")
}

// Delete removes a console account.
func (h *AdminHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		renderError(c, http.StatusBadRequest, "Invalid user id.")
		return
	}
	if err := h.admin.DeleteUser(c.Request.Context(), id); err != nil {
		renderServiceError(c, h.logger, err)
		return
	}
	c.Redirect(http.StatusFound, "/admin/users")
}

// Subscribe registers the app's webhook subscriptions and returns to the
// dashboard.
func (h *AdminHandler) Subscribe(c *gin.Context) {
	if err := h.admin.SubscribeWebhooks(c.Request.Context()); err != nil {
		renderServiceError(c, h.logger, err)
		return
	}
	c.Redirect(http.StatusFound, "/admin")
}
