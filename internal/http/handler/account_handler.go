package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bizlink/workplace-console/internal/http/middleware"
	"github.com/bizlink/workplace-console/internal/service"
)

// AccountHandler serves login, registration, and the Workplace account
// linking flow.
type AccountHandler struct {
	accounts *service.AccountService
	logger   *zap.Logger
}

// NewAccountHandler wires the account handler.
func NewAccountHandler(accounts *service.AccountService, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, logger: logger}
}

// Home renders the landing page.
func (h *AccountHandler) Home(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	c.HTML(http.StatusOK, "home.tmpl", gin.H{"User": user})
}

// LoginForm renders the login page.
func (h *AccountHandler) LoginForm(c *gin.Context) {
	c.HTML(http.StatusOK, "login.tmpl", gin.H{})
}

// Login authenticates form credentials. Failed attempts bounce back to the
// login page; successes resume a staged account link or the page the user
// was originally headed to.
func (h *AccountHandler) Login(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")

	user, err := h.accounts.Authenticate(c.Request.Context(), username, password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.Redirect(http.StatusFound, "/login")
			return
		}
		renderServiceError(c, h.logger, err)
		return
	}

	if err := middleware.SetSessionUser(c, user.ID); err != nil {
		renderServiceError(c, h.logger, err)
		return
	}

	if middleware.LinkID(c) != "" {
		c.Redirect(http.StatusFound, "/link_account_confirm")
		return
	}
	if referrer := middleware.PopReferrer(c); referrer != "" {
		c.Redirect(http.StatusFound, referrer)
		return
	}
	c.Redirect(http.StatusFound, "/admin")
}

// RegisterForm renders the registration page.
func (h *AccountHandler) RegisterForm(c *gin.Context) {
	c.HTML(http.StatusOK, "register.tmpl", gin.H{})
}

// Register creates an account and logs it in.
func (h *AccountHandler) Register(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")
	if username == "" || password == "" {
		renderError(c, http.StatusBadRequest, "Username and password are required.")
		return
	}

	user, err := h.accounts.Register(c.Request.Context(), username, password)
	if err != nil {
		renderServiceError(c, h.logger, err)
		return
	}

	if err := middleware.SetSessionUser(c, user.ID); err != nil {
		renderServiceError(c, h.logger, err)
		return
	}
	if middleware.LinkID(c) != "" {
		c.Redirect(http.StatusFound, "/link_account_confirm")
		return
	}
	c.Redirect(http.StatusFound, "/admin")
}

// Logout drops the session and returns to the landing page.
func (h *AccountHandler) Logout(c *gin.Context) {
	if err := middleware.ClearSession(c); err != nil {
		h.logger.Warn("session clear failed", zap.Error(err))
	}
	c.Redirect(http.StatusFound, "/")
}

// LinkAccount receives Workplace's signed link request, verifies it, and
// stages the decoded payload until a logged-in user confirms the link.
func (h *AccountHandler) LinkAccount(c *gin.Context) {
	signedRequest := c.PostForm("signed_request")
	redirectURI := c.Query("redirect_uri")

	linkID := middleware.LinkID(c)
	if linkID == "" {
		linkID = uuid.NewString()
	}

	if err := h.accounts.StageLink(c.Request.Context(), linkID, signedRequest, redirectURI); err != nil {
		renderServiceError(c, h.logger, err)
		return
	}
	if err := middleware.SetLinkID(c, linkID); err != nil {
		renderServiceError(c, h.logger, err)
		return
	}

	if _, ok := middleware.CurrentUser(c); !ok {
		c.Redirect(http.StatusFound, "/login")
		return
	}
	c.Redirect(http.StatusFound, "/link_account_confirm")
}

// LinkConfirmForm shows the staged link payload so the user can approve it.
func (h *AccountHandler) LinkConfirmForm(c *gin.Context) {
	linkID := middleware.LinkID(c)
	if linkID == "" {
		c.Redirect(http.StatusFound, "/")
		return
	}

	link, err := h.accounts.PendingLink(c.Request.Context(), linkID)
	if err != nil {
		renderServiceError(c, h.logger, err)
		return
	}
	if link == nil {
		middleware.ClearLinkID(c)
		c.Redirect(http.StatusFound, "/")
		return
	}

	user, _ := middleware.CurrentUser(c)
	c.HTML(http.StatusOK, "link_confirm.tmpl", gin.H{
		"User":    user,
		"Payload": link.Payload,
	})
}

// LinkConfirm applies the staged link to the logged-in user and sends them
// back to Workplace.
func (h *AccountHandler) LinkConfirm(c *gin.Context) {
	linkID := middleware.LinkID(c)
	if linkID == "" {
		c.Redirect(http.StatusFound, "/")
		return
	}
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	link, err := h.accounts.ConfirmLink(c.Request.Context(), linkID, user.ID)
	if err != nil {
		if errors.Is(err, service.ErrNoPendingLink) {
			middleware.ClearLinkID(c)
			c.Redirect(http.StatusFound, "/")
			return
		}
		renderServiceError(c, h.logger, err)
		return
	}
	middleware.ClearLinkID(c)

	if link.Redirect != "" {
		c.Redirect(http.StatusFound, link.Redirect)
		return
	}
	c.Redirect(http.StatusFound, "/admin")
}
