package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/layer-3/tagdesk/core"
	"github.com/layer-3/tagdesk/ports"
)

// An expired challenge is kept this long past its expiry so the client is
// told CAPTCHA_EXPIRE rather than NOTFOUND_SESSION.
const captchaRetention = time.Minute

// VerifyCaptcha checks answer against the challenge held in sess at now.
// On success the caller must consume the challenge so it cannot be replayed.
func VerifyCaptcha(sess core.CaptchaSession, answer string, now time.Time) error {
	if sess.Captcha == "" {
		return core.ErrUnauthorizedNoSession
	}

	if sess.ExpirationTimestamp == nil || now.UnixMilli() > *sess.ExpirationTimestamp {
		return core.ErrUnauthorizedCaptchaExp
	}

	if strings.ToLower(answer) != strings.ToLower(sess.Captcha) {
		return core.ErrUnauthorizedCaptchaError
	}

	return nil
}

// CaptchaKey is the cache key of challenge id.
func CaptchaKey(id string) string {
	return "captcha:" + id
}

type storedChallenge struct {
	Captcha             string `json:"captcha"`
	ExpirationTimestamp int64  `json:"expirationTimestamp"`
}

// CaptchaService creates challenges and keeps their answers in the cache.
// Clients only ever hold the opaque challenge id.
type CaptchaService struct {
	driver ports.CaptchaDriver
	store  ports.Store
	ttl    time.Duration
}

// NewCaptchaService returns a service whose challenges expire ttl after issue.
func NewCaptchaService(driver ports.CaptchaDriver, store ports.Store, ttl time.Duration) *CaptchaService {
	return &CaptchaService{driver: driver, store: store, ttl: ttl}
}

// NewChallenge renders a challenge that expires ttl after now.
func (s *CaptchaService) NewChallenge(now time.Time) (*core.CaptchaChallenge, error) {
	answer, image, err := s.driver.Generate()
	if err != nil {
		return nil, core.ErrInternal.Wrap(fmt.Errorf("generate captcha: %w", err))
	}

	exp := now.Add(s.ttl).UnixMilli()

	return &core.CaptchaChallenge{
		Session: core.CaptchaSession{Captcha: answer, ExpirationTimestamp: &exp},
		Image:   image,
	}, nil
}

// Issue renders a challenge and stores it under a fresh id.
func (s *CaptchaService) Issue(ctx context.Context, now time.Time) (string, *core.CaptchaChallenge, error) {
	const op = "service.CaptchaService.Issue"

	ch, err := s.NewChallenge(now)
	if err != nil {
		return "", nil, err
	}

	raw, err := json.Marshal(storedChallenge{
		Captcha:             ch.Session.Captcha,
		ExpirationTimestamp: *ch.Session.ExpirationTimestamp,
	})
	if err != nil {
		return "", nil, core.ErrInternal.Wrap(fmt.Errorf("%s: %w", op, err))
	}

	id := uuid.NewString()
	if err := s.store.SetCache(ctx, CaptchaKey(id), string(raw), s.ttl+captchaRetention); err != nil {
		return "", nil, core.ErrInternalRedis.Wrap(fmt.Errorf("%s: %w", op, err))
	}

	return id, ch, nil
}

// Check verifies answer against challenge id and consumes it on success.
// A failed answer leaves the challenge in place. Each challenge is accepted
// at most once, even under concurrent attempts.
func (s *CaptchaService) Check(ctx context.Context, id, answer string, now time.Time) error {
	const op = "service.CaptchaService.Check"

	if id == "" {
		return core.ErrUnauthorizedNoSession
	}

	raw, found, err := s.store.GetCache(ctx, CaptchaKey(id))
	if err != nil {
		return core.ErrInternalRedis.Wrap(fmt.Errorf("%s: %w", op, err))
	}
	if !found {
		return core.ErrUnauthorizedNoSession
	}

	var stored storedChallenge
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return core.ErrInternal.Wrap(fmt.Errorf("%s: decode challenge: %w", op, err))
	}

	sess := core.CaptchaSession{Captcha: stored.Captcha, ExpirationTimestamp: &stored.ExpirationTimestamp}
	if err := VerifyCaptcha(sess, answer, now); err != nil {
		return err
	}

	deleted, err := s.store.ClearCache(ctx, CaptchaKey(id))
	if err != nil {
		return core.ErrInternalRedis.Wrap(fmt.Errorf("%s: %w", op, err))
	}
	if deleted == 0 {
		// Another request consumed it first.
		return core.ErrUnauthorizedNoSession
	}

	return nil
}

// TTL returns how long a challenge stays valid.
func (s *CaptchaService) TTL() time.Duration { return s.ttl }
