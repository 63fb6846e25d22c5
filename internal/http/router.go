package http

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/bizlink/workplace-console/internal/config"
	"github.com/bizlink/workplace-console/internal/http/handler"
	"github.com/bizlink/workplace-console/internal/http/middleware"
	"github.com/bizlink/workplace-console/internal/repository"
)

// RouterParams bundles everything the router needs.
type RouterParams struct {
	Config    config.Config
	Logger    *zap.Logger
	Templates string
	Users     repository.UserRepository
	Accounts  *handler.AccountHandler
	Installs  *handler.InstallHandler
	Admin     *handler.AdminHandler
	Callbacks *handler.CallbackHandler
}

// NewRouter builds the gin engine with the full route table.
func NewRouter(p RouterParams) *gin.Engine {
	if p.Config.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(p.Logger))
	r.Use(otelgin.Middleware(p.Config.ServiceName))
	r.Use(middleware.NewRateLimiter(p.Config.RateLimitRPM).Handler())

	store := cookie.NewStore([]byte(p.Config.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   p.Config.Environment == "production",
	})
	r.Use(sessions.Sessions("console_session", store))
	r.Use(middleware.LoadUser(p.Users, p.Logger))

	templates := p.Templates
	if templates == "" {
		templates = "web/templates/*.tmpl"
	}
	r.LoadHTMLGlob(templates)

	// Logged-out surface: landing, auth, and the OAuth redirect targets.
	r.GET("/", p.Accounts.Home)
	r.GET("/login", p.Accounts.LoginForm)
	r.POST("/login", p.Accounts.Login)
	r.GET("/register", p.Accounts.RegisterForm)
	r.POST("/register", p.Accounts.Register)
	r.GET("/logout", p.Accounts.Logout)

	r.POST("/link_account", p.Accounts.LinkAccount)
	r.GET("/page_install", p.Installs.PageInstall)
	r.GET("/community_install", p.Installs.CommunityInstall)
	r.GET("/user_install", p.Installs.UserInstall)

	// Webhook endpoints are called by the Graph platform, not a browser.
	r.GET("/api/:topic/callback", p.Callbacks.Verify)
	r.POST("/api/:topic/callback", p.Callbacks.Receive)

	// Authenticated console.
	authed := r.Group("/", middleware.RequireUser())
	authed.GET("/link_account_confirm", p.Accounts.LinkConfirmForm)
	authed.POST("/link_account_confirm", p.Accounts.LinkConfirm)

	admin := r.Group("/admin", middleware.RequireUser())
	admin.GET("", p.Admin.Home)
	admin.GET("/communities", p.Admin.Communities)
	admin.GET("/users", p.Admin.Users)
	admin.POST("/user/:id/unlink", p.Admin.Unlink)
	admin.POST("/user/:id/delete", p.Admin.Delete)
	admin.POST("/subscribe", p.Admin.Subscribe)

	authed.GET("/callbacks", p.Callbacks.List)
	authed.POST("/delete_callbacks", p.Callbacks.Purge)

	return r
}
