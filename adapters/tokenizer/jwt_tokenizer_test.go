package tokenizer

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/layer-3/tagdesk/core"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
	}
}

func TestAccessToken_RoundTrip(t *testing.T) {
	tk := NewJWTTokenizer(testConfig())

	for _, tc := range []struct {
		id   int64
		name string
	}{
		{1, "admin"},
		{42, "Émilie"},
		{9_007_199_254_740_993, "big-id"},
		{7, ""},
	} {
		token, err := tk.IssueAccessToken(tc.id, tc.name)
		require.NoError(t, err)

		payload, err := tk.VerifyAccessToken(token)
		require.NoError(t, err)
		require.Equal(t, tc.id, payload.UserID)
		require.Equal(t, tc.name, payload.UserName)
		require.NotEmpty(t, payload.TokenID)
	}
}

func TestRefreshToken_RoundTrip(t *testing.T) {
	tk := NewJWTTokenizer(testConfig())

	token, err := tk.IssueRefreshToken(5)
	require.NoError(t, err)

	payload, err := tk.VerifyRefreshToken(token)
	require.NoError(t, err)
	require.Equal(t, int64(5), payload.UserID)
}

func TestCrossKindRejected(t *testing.T) {
	tk := NewJWTTokenizer(testConfig())

	access, err := tk.IssueAccessToken(1, "admin")
	require.NoError(t, err)
	refresh, err := tk.IssueRefreshToken(1)
	require.NoError(t, err)

	_, err = tk.VerifyAccessToken(refresh)
	require.ErrorIs(t, err, core.ErrUnauthorizedAccessToken)

	_, err = tk.VerifyRefreshToken(access)
	require.ErrorIs(t, err, core.ErrUnauthorizedRefreshToken)
}

// Same secret for both kinds still fails on the audience tag.
func TestCrossKindRejected_SharedSecret(t *testing.T) {
	cfg := testConfig()
	cfg.RefreshSecret = cfg.AccessSecret
	tk := NewJWTTokenizer(cfg)

	refresh, err := tk.IssueRefreshToken(1)
	require.NoError(t, err)

	_, err = tk.VerifyAccessToken(refresh)
	require.ErrorIs(t, err, core.ErrUnauthorizedAccessToken)
}

func TestExpiryBoundary(t *testing.T) {
	issuedAt := time.Unix(1_700_000_000, 0)
	now := issuedAt

	cfg := testConfig()
	cfg.AccessTTL = time.Second
	cfg.RefreshTTL = time.Second
	tk := NewJWTTokenizer(cfg).WithClock(func() time.Time { return now })

	access, err := tk.IssueAccessToken(1, "admin")
	require.NoError(t, err)
	refresh, err := tk.IssueRefreshToken(1)
	require.NoError(t, err)

	now = issuedAt.Add(999 * time.Millisecond)
	_, err = tk.VerifyAccessToken(access)
	require.NoError(t, err)

	now = issuedAt.Add(1001 * time.Millisecond)
	_, err = tk.VerifyAccessToken(access)
	require.ErrorIs(t, err, core.ErrUnauthorizedAccessToken)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)

	_, err = tk.VerifyRefreshToken(refresh)
	require.ErrorIs(t, err, core.ErrUnauthorizedRefreshToken)
}

// exp is a NumericDate in whole seconds, so a token issued mid-second loses
// the fractional part of its lifetime.
func TestExpiryTruncatedToSeconds(t *testing.T) {
	issuedAt := time.Unix(1_700_000_000, 600*int64(time.Millisecond))
	now := issuedAt

	cfg := testConfig()
	cfg.AccessTTL = time.Second
	tk := NewJWTTokenizer(cfg).WithClock(func() time.Time { return now })

	access, err := tk.IssueAccessToken(1, "admin")
	require.NoError(t, err)

	var claims AccessClaims
	_, _, err = jwt.NewParser().ParseUnverified(access, &claims)
	require.NoError(t, err)
	require.Equal(t, int64(1_700_000_001), claims.ExpiresAt.Unix())
	require.Zero(t, claims.ExpiresAt.Nanosecond())
	require.Equal(t, time.Second, claims.ExpiresAt.Sub(claims.IssuedAt.Time))

	now = time.Unix(1_700_000_000, 999*int64(time.Millisecond))
	_, err = tk.VerifyAccessToken(access)
	require.NoError(t, err)

	now = time.Unix(1_700_000_001, 0)
	_, err = tk.VerifyAccessToken(access)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestVerifyAccessToken_Invalid(t *testing.T) {
	cfg := testConfig()
	tk := NewJWTTokenizer(cfg)
	now := time.Now()

	sign := func(method jwt.SigningMethod, claims jwt.MapClaims, key []byte) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	base := func() jwt.MapClaims {
		return jwt.MapClaims{
			"sub":      "1",
			"userName": "admin",
			"aud":      []string{AudienceAccess},
			"exp":      now.Add(time.Hour).Unix(),
			"iat":      now.Unix(),
		}
	}

	noExp := base()
	delete(noExp, "exp")
	badSub := base()
	badSub["sub"] = "not-a-number"

	cases := map[string]string{
		"garbage":        "not.a.token",
		"wrong secret":   sign(jwt.SigningMethodHS256, base(), []byte("other")),
		"wrong alg":      sign(jwt.SigningMethodHS512, base(), []byte(cfg.AccessSecret)),
		"missing exp":    sign(jwt.SigningMethodHS256, noExp, []byte(cfg.AccessSecret)),
		"non-int sub":    sign(jwt.SigningMethodHS256, badSub, []byte(cfg.AccessSecret)),
		"tampered claim": tamper(t, tk),
	}

	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := tk.VerifyAccessToken(token)
			require.ErrorIs(t, err, core.ErrUnauthorizedAccessToken)
		})
	}
}

// tamper swaps the payload of a valid token for one naming another user.
func tamper(t *testing.T, tk *JWTTokenizer) string {
	t.Helper()

	victim, err := tk.IssueAccessToken(1, "admin")
	require.NoError(t, err)
	other, err := tk.IssueAccessToken(2, "guest")
	require.NoError(t, err)

	v := strings.Split(victim, ".")
	o := strings.Split(other, ".")
	return v[0] + "." + o[1] + "." + v[2]
}

func TestSubjectEncoding(t *testing.T) {
	tk := NewJWTTokenizer(testConfig())

	token, err := tk.IssueAccessToken(77, "admin")
	require.NoError(t, err)

	claims := &AccessClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(token, claims)
	require.NoError(t, err)
	require.Equal(t, strconv.Itoa(77), claims.Subject)
	require.Equal(t, jwt.ClaimStrings{AudienceAccess}, claims.Audience)
}
