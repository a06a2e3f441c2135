package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/layer-3/tagdesk/core"
	"github.com/layer-3/tagdesk/internal/logger"
	"github.com/layer-3/tagdesk/internal/password"
	"github.com/layer-3/tagdesk/service"
)

// sessionKeyCaptchaID holds the id of the current CAPTCHA challenge. The
// answer itself never leaves the server.
const sessionKeyCaptchaID = "captchaId"

// Handlers contains the HTTP handlers of the service
type Handlers struct {
	auth    *service.AuthService
	captcha *service.CaptchaService
	tags    *service.TagService
	hasher  *password.Hasher
	now     func() time.Time
}

// NewHandlers creates new handlers
func NewHandlers(
	auth *service.AuthService,
	captcha *service.CaptchaService,
	tags *service.TagService,
	hasher *password.Hasher,
	now func() time.Time,
) *Handlers {
	return &Handlers{auth: auth, captcha: captcha, tags: tags, hasher: hasher, now: now}
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
}

func newTokenResponse(p *core.TokenPair) tokenResponse {
	return tokenResponse{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(p.ExpiresIn / time.Second),
	}
}

type userResponse struct {
	ID       int64  `json:"id"`
	UserName string `json:"userName"`
}

type tagResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func newTagResponse(t *core.Tag) tagResponse {
	return tagResponse{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// Captcha issues a new challenge, points the session at it and returns its image.
func (h *Handlers) Captcha(c *gin.Context) {
	id, ch, err := h.captcha.Issue(c.Request.Context(), h.now())
	if err != nil {
		abortWithError(c, err)
		return
	}

	session := sessions.Default(c)
	session.Set(sessionKeyCaptchaID, id)
	if err := session.Save(); err != nil {
		abortWithError(c, core.ErrInternal.Wrap(err))
		return
	}

	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, gin.H{
		"image":     ch.Image,
		"expiresAt": *ch.Session.ExpirationTimestamp,
		"expiresIn": int64(h.captcha.TTL() / time.Second),
	})
}

// Login verifies the CAPTCHA, then the credentials, and returns a token pair.
func (h *Handlers) Login(c *gin.Context) {
	var req struct {
		UserName string `json:"userName" binding:"required"`
		Password string `json:"password" binding:"required"`
		Captcha  string `json:"captcha"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, core.ErrBadRequestParams.Wrap(err))
		return
	}

	session := sessions.Default(c)
	id, _ := session.Get(sessionKeyCaptchaID).(string)
	if err := h.captcha.Check(c.Request.Context(), id, req.Captcha, h.now()); err != nil {
		abortWithError(c, err)
		return
	}

	session.Delete(sessionKeyCaptchaID)
	if err := session.Save(); err != nil {
		abortWithError(c, core.ErrInternal.Wrap(err))
		return
	}

	ctx := c.Request.Context()
	user, err := h.auth.Login(ctx, req.UserName, h.hasher.Hash(req.Password))
	if err != nil {
		abortWithError(c, err)
		return
	}
	if user == nil {
		logger.From(ctx).Info("login_failed", slog.String("user_name", req.UserName))
		abortWithError(c, core.ErrUnauthorizedLogin)
		return
	}

	pair, err := h.auth.IssueTokens(ctx, user)
	if err != nil {
		abortWithError(c, err)
		return
	}

	logger.From(ctx).Info("login", slog.Int64("user_id", user.ID))
	c.JSON(http.StatusOK, newTokenResponse(pair))
}

// Refresh handles token refresh
func (h *Handlers) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, core.ErrBadRequestParams.Wrap(err))
		return
	}

	pair, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, newTokenResponse(pair))
}

// Logout drops the caller's registry entry. It always succeeds once the
// bearer token is accepted.
func (h *Handlers) Logout(c *gin.Context) {
	userID, userName := currentUser(c)
	h.auth.Logout(c.Request.Context(), userID, userName)

	c.JSON(http.StatusOK, gin.H{"msg": "logged out"})
}

// Me returns information about the authenticated user
func (h *Handlers) Me(c *gin.Context) {
	userID, userName := currentUser(c)

	user, err := h.auth.LookupUserByIDAndName(c.Request.Context(), userID, userName)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if user == nil {
		abortWithError(c, core.ErrUnauthorizedAccessToken.WithMsg("user no longer exists"))
		return
	}

	c.JSON(http.StatusOK, userResponse{ID: user.ID, UserName: user.UserName})
}

func (h *Handlers) ListTags(c *gin.Context) {
	var q struct {
		Page     int    `form:"page"`
		PageSize int    `form:"pageSize"`
		Name     string `form:"name"`
	}

	if err := c.ShouldBindQuery(&q); err != nil {
		abortWithError(c, core.ErrBadRequestParams.Wrap(err))
		return
	}

	tags, total, err := h.tags.List(c.Request.Context(), core.TagQuery{Page: q.Page, PageSize: q.PageSize, Name: q.Name})
	if err != nil {
		abortWithError(c, err)
		return
	}

	items := make([]tagResponse, 0, len(tags))
	for i := range tags {
		items = append(items, newTagResponse(&tags[i]))
	}

	c.JSON(http.StatusOK, gin.H{"items": items, "total": total})
}

func (h *Handlers) GetTag(c *gin.Context) {
	id, ok := tagID(c)
	if !ok {
		return
	}

	tag, err := h.tags.Get(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, newTagResponse(tag))
}

type tagRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (h *Handlers) CreateTag(c *gin.Context) {
	var req tagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, core.ErrBadRequestParams.Wrap(err))
		return
	}

	tag, err := h.tags.Create(c.Request.Context(), core.TagInput{Name: req.Name, Description: req.Description})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newTagResponse(tag))
}

func (h *Handlers) UpdateTag(c *gin.Context) {
	id, ok := tagID(c)
	if !ok {
		return
	}

	var req tagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, core.ErrBadRequestParams.Wrap(err))
		return
	}

	tag, err := h.tags.Update(c.Request.Context(), id, core.TagInput{Name: req.Name, Description: req.Description})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, newTagResponse(tag))
}

func (h *Handlers) DeleteTag(c *gin.Context) {
	id, ok := tagID(c)
	if !ok {
		return
	}

	if err := h.tags.Delete(c.Request.Context(), id); err != nil {
		abortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Health pings every dependency and reports 503 if any of them fails.
func Health(checks map[string]Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		result := make(map[string]string, len(checks))

		for name, p := range checks {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			err := p.Ping(ctx)
			cancel()

			if err != nil {
				status = http.StatusServiceUnavailable
				result[name] = "down"
				logger.From(c.Request.Context()).Warn("health_check_failed",
					slog.String("check", name), slog.Any("error", err))
				continue
			}
			result[name] = "ok"
		}

		state := "ok"
		if status != http.StatusOK {
			state = "unavailable"
		}
		c.JSON(status, gin.H{"status": state, "checks": result})
	}
}

func tagID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		abortWithError(c, core.ErrBadRequestParams.WithMsg("id must be a positive integer"))
		return 0, false
	}
	return id, true
}

// abortWithError renders err as {code, msg}. Internal failures are logged
// with their cause; the cause is never sent to the client.
func abortWithError(c *gin.Context, err error) {
	e := core.AsError(err)

	if e.Status() >= http.StatusInternalServerError {
		logger.From(c.Request.Context()).Error("request_failed",
			slog.String("code", string(e.Code)), slog.Any("error", err))
	} else if cause := errors.Unwrap(e); cause != nil {
		logger.From(c.Request.Context()).Debug("request_rejected",
			slog.String("code", string(e.Code)), slog.Any("error", cause))
	}

	c.AbortWithStatusJSON(e.Status(), gin.H{"code": e.Code, "msg": e.Message()})
}
