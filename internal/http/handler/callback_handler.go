package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bizlink/workplace-console/internal/http/middleware"
	"github.com/bizlink/workplace-console/internal/service"
)

const maxWebhookBody = 1 << 20

// CallbackHandler serves the webhook endpoints and the received-callback
// console page.
type CallbackHandler struct {
	callbacks *service.CallbackService
	logger    *zap.Logger
}

// NewCallbackHandler wires the callback handler.
func NewCallbackHandler(callbacks *service.CallbackService, logger *zap.Logger) *CallbackHandler {
	return &CallbackHandler{callbacks: callbacks, logger: logger}
}

// List shows received callbacks, optionally filtered by topic.
func (h *CallbackHandler) List(c *gin.Context) {
	topic := c.Query("topic")
	callbacks, err := h.callbacks.List(c.Request.Context(), topic)
	if err != nil {
		renderServiceError(c, h.logger, err)
		return
	}

	user, _ := middleware.CurrentUser(c)
	c.HTML(http.StatusOK, "callbacks.tmpl", gin.H{
		"User":      user,
		"Topic":     topic,
		"Callbacks": callbacks,
	})
}

// Purge deletes all stored callbacks.
func (h *CallbackHandler) Purge(c *gin.Context) {
	if err := h.callbacks.Purge(c.Request.Context()); err != nil {
		renderServiceError(c, h.logger, err)
		return
	}
	c.Redirect(http.StatusFound, "/callbacks")
}

// Verify answers the webhook subscription handshake.
func (h *CallbackHandler) Verify(c *gin.Context) {
	challenge, ok := h.callbacks.VerifySubscription(
		c.Query("hub.mode"),
		c.Query("hub.verify_token"),
		c.Query("hub.challenge"),
	)
	if !ok {
		c.String(http.StatusForbidden, "verification failed")
		return
	}
	c.String(http.StatusOK, challenge)
}

// Receive validates and stores an incoming webhook delivery.
func (h *CallbackHandler) Receive(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false})
		return
	}

	if !h.callbacks.ValidateSignature(body, c.GetHeader("X-Hub-Signature-256")) {
		h.logger.Warn("webhook signature rejected",
			zap.String("path", c.Request.URL.Path))
		c.JSON(http.StatusForbidden, gin.H{"success": false})
		return
	}

	if _, err := h.callbacks.Record(c.Request.Context(), c.Request.URL.Path, string(body)); err != nil {
		renderServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
