package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bizlink/workplace-console/internal/service"
)

// InstallHandler serves the three OAuth install redirect targets.
type InstallHandler struct {
	installs *service.InstallService
	logger   *zap.Logger
}

// NewInstallHandler wires the install handler.
func NewInstallHandler(installs *service.InstallService, logger *zap.Logger) *InstallHandler {
	return &InstallHandler{installs: installs, logger: logger}
}

// PageInstall completes a page-scoped install: the authorization code is
// exchanged and the resulting page is persisted.
func (h *InstallHandler) PageInstall(c *gin.Context) {
	page, err := h.installs.PageInstall(c.Request.Context(), c.Query("code"))
	if err != nil {
		renderServiceError(c, h.logger, err)
		return
	}

	c.HTML(http.StatusOK, "page_install_success.tmpl", gin.H{
		"Page":  page,
		"State": c.Query("state"),
	})
}

// CommunityInstall completes a community-scoped install and upserts the
// community's token.
func (h *InstallHandler) CommunityInstall(c *gin.Context) {
	community, err := h.installs.CommunityInstall(c.Request.Context(), c.Query("code"))
	if err != nil {
		renderServiceError(c, h.logger, err)
		return
	}

	c.HTML(http.StatusOK, "install_success.tmpl", gin.H{
		"Community": community,
		"State":     c.Query("state"),
		"Redirect":  c.Query("redirect_uri"),
	})
}

// UserInstall completes a user-scoped install, accepting either an implicit
// id_token or an authorization code.
func (h *InstallHandler) UserInstall(c *gin.Context) {
	result, err := h.installs.UserInstall(c.Request.Context(), c.Query("id_token"), c.Query("code"))
	if err != nil {
		renderServiceError(c, h.logger, err)
		return
	}

	c.HTML(http.StatusOK, "user_install_success.tmpl", gin.H{
		"Code":     result.Code,
		"Response": result.Response,
		"Token":    result.Token,
	})
}
