package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"github.com/layer-3/tagdesk/internal/password"
	"github.com/layer-3/tagdesk/service"
)

const sessionMaxAge = 3600 // seconds

// Pinger is a dependency checked by /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterConfig carries everything SetupRouter needs.
type RouterConfig struct {
	Log     *slog.Logger
	Auth    *service.AuthService
	Captcha *service.CaptchaService
	Tags    *service.TagService
	Hasher  *password.Hasher
	Checks  map[string]Pinger

	SessionSecret     string
	SessionCookieName string
	SecureCookies     bool
	AllowedOrigins    []string
	// TrustedProxies may set X-Forwarded-For; nil trusts no one and the
	// client IP is the peer address.
	TrustedProxies    []string
	RequestTimeout    time.Duration
	AuthRatePerMinute int

	// Now defaults to time.Now.
	Now func() time.Time
}

// SetupRouter sets up the Gin router
func SetupRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	router := gin.New()
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		cfg.Log.Error("trusted_proxies_invalid", slog.Any("error", err))
		_ = router.SetTrustedProxies(nil)
	}
	router.Use(gin.Recovery(), RequestLogger(cfg.Log), Timeout(cfg.RequestTimeout))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	corsConfig.ExposeHeaders = []string{accessTokenTTLHeader}
	router.Use(cors.New(corsConfig))

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		Secure:   cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	router.Use(sessions.Sessions(cfg.SessionCookieName, store))

	h := NewHandlers(cfg.Auth, cfg.Captcha, cfg.Tags, cfg.Hasher, cfg.Now)
	limit := RateLimitByIP(cfg.AuthRatePerMinute, time.Minute)

	router.GET("/healthz", Health(cfg.Checks))

	auth := router.Group("/auth")
	{
		auth.GET("/captcha", limit, h.Captcha)
		auth.POST("/login", limit, h.Login)
		auth.POST("/refresh", h.Refresh)
		auth.POST("/logout", AuthMiddleware(cfg.Auth), h.Logout)
	}

	// Protected API routes
	api := router.Group("/api")
	api.Use(AuthMiddleware(cfg.Auth))
	{
		api.GET("/me", h.Me)

		tags := api.Group("/tags")
		tags.GET("", h.ListTags)
		tags.POST("", h.CreateTag)
		tags.GET("/:id", h.GetTag)
		tags.PUT("/:id", h.UpdateTag)
		tags.DELETE("/:id", h.DeleteTag)
	}

	return router
}
