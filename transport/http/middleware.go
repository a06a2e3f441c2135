package http

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/layer-3/tagdesk/core"
	"github.com/layer-3/tagdesk/internal/logger"
	"github.com/layer-3/tagdesk/service"
)

const (
	ctxUserID   = "userID"
	ctxUserName = "userName"

	requestIDHeader      = "X-Request-ID"
	accessTokenTTLHeader = "X-Access-Token-TTL"
)

// RequestLogger attaches a request-scoped logger to the request context and
// logs every finished request.
func RequestLogger(base *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		reqID := c.GetHeader(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header(requestIDHeader, reqID)

		log := base.With(
			slog.String("req_id", reqID),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
		)
		c.Request = c.Request.WithContext(logger.Into(c.Request.Context(), log))

		c.Next()

		log.Info("http_request",
			slog.Int("status", c.Writer.Status()),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			slog.String("client_ip", c.ClientIP()),
		)
	}
}

// Timeout bounds the request context so store calls give up after d.
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// AuthMiddleware creates middleware that validates access tokens
func AuthMiddleware(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")

		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			abortWithError(c, core.ErrUnauthorizedAccessToken.WithMsg("missing bearer token"))
			return
		}

		payload, ttl, err := authService.Authenticate(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.Header(accessTokenTTLHeader, strconv.FormatInt(ttl, 10))
		c.Set(ctxUserID, payload.UserID)
		c.Set(ctxUserName, payload.UserName)

		c.Request = c.Request.WithContext(logger.Into(c.Request.Context(),
			logger.From(c.Request.Context()).With(slog.Int64("user_id", payload.UserID))))

		c.Next()
	}
}

func currentUser(c *gin.Context) (int64, string) {
	return c.GetInt64(ctxUserID), c.GetString(ctxUserName)
}
