package middleware

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bizlink/workplace-console/internal/domain"
)

const (
	sessionUserKey     = "user_id"
	sessionReferrerKey = "login_referrer"
	sessionLinkKey     = "link_id"

	ctxUserKey = "current_user"
)

// UserLoader resolves a session user ID to a full account record.
type UserLoader interface {
	GetByID(ctx context.Context, userID int64) (domain.User, error)
}

// LoadUser resolves the session's user, if any, and stashes it on the
// request context for handlers and the logger.
func LoadUser(users UserLoader, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		raw := session.Get(sessionUserKey)
		userID, ok := raw.(int64)
		if !ok {
			c.Next()
			return
		}

		user, err := users.GetByID(c.Request.Context(), userID)
		if err != nil {
			// Stale session entry; treat the request as logged out.
			logger.Warn("session user lookup failed", zap.Int64("user_id", userID), zap.Error(err))
			session.Delete(sessionUserKey)
			_ = session.Save()
			c.Next()
			return
		}

		c.Set(ctxUserKey, &user)
		c.Next()
	}
}

// RequireUser redirects unauthenticated requests to the login page,
// remembering where they were headed.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUser(c); ok {
			c.Next()
			return
		}

		session := sessions.Default(c)
		session.Set(sessionReferrerKey, c.Request.URL.RequestURI())
		_ = session.Save()

		c.Redirect(http.StatusFound, "/login")
		c.Abort()
	}
}

// CurrentUser returns the authenticated user for the request, if any.
func CurrentUser(c *gin.Context) (*domain.User, bool) {
	raw, exists := c.Get(ctxUserKey)
	if !exists {
		return nil, false
	}
	user, ok := raw.(*domain.User)
	return user, ok
}

// SetSessionUser records a successful login on the session.
func SetSessionUser(c *gin.Context, userID int64) error {
	session := sessions.Default(c)
	session.Set(sessionUserKey, userID)
	return session.Save()
}

// ClearSession drops all session state, logging the user out.
func ClearSession(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	return session.Save()
}

// PopReferrer returns and clears the stored post-login destination.
func PopReferrer(c *gin.Context) string {
	session := sessions.Default(c)
	raw := session.Get(sessionReferrerKey)
	referrer, _ := raw.(string)
	if referrer != "" {
		session.Delete(sessionReferrerKey)
		_ = session.Save()
	}
	return referrer
}

// SetLinkID stores the pending account-link key on the session.
func SetLinkID(c *gin.Context, linkID string) error {
	session := sessions.Default(c)
	session.Set(sessionLinkKey, linkID)
	return session.Save()
}

// LinkID returns the pending account-link key, if one is staged.
func LinkID(c *gin.Context) string {
	raw := sessions.Default(c).Get(sessionLinkKey)
	linkID, _ := raw.(string)
	return linkID
}

// ClearLinkID removes the staged account-link key once consumed.
func ClearLinkID(c *gin.Context) {
	session := sessions.Default(c)
	session.Delete(sessionLinkKey)
	_ = session.Save()
}
