package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_LocalIsText(t *testing.T) {
	var buf bytes.Buffer
	l := newWithWriter(&buf, EnvLocal, "")

	l.Debug("hello", "k", "v")

	out := buf.String()
	require.Contains(t, out, "msg=hello")
	require.Contains(t, out, "k=v")
	require.Contains(t, out, "service=tagdesk")
}

func TestNew_ProdIsJSONAtInfo(t *testing.T) {
	var buf bytes.Buffer
	l := newWithWriter(&buf, EnvProd, "")

	l.Debug("hidden")
	require.Zero(t, buf.Len())

	l.Info("shown", "user_id", 7)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "shown", rec["msg"])
	require.Equal(t, "prod", rec["env"])
	require.EqualValues(t, 7, rec["user_id"])
}

func TestNew_LevelOverride(t *testing.T) {
	var buf bytes.Buffer
	l := newWithWriter(&buf, EnvDev, "warn")

	l.Info("dropped")
	require.Zero(t, buf.Len())

	l.Warn("kept")
	require.True(t, strings.Contains(buf.String(), `"msg":"kept"`))
}

func TestNew_UnknownEnvFallsBackToLocal(t *testing.T) {
	var buf bytes.Buffer
	newWithWriter(&buf, "staging", "").Info("x")
	require.Contains(t, buf.String(), "env=local")
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	require.Equal(t, slog.LevelError, ParseLevel("error"))
	require.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}

func TestIntoFrom(t *testing.T) {
	old := slog.Default()
	t.Cleanup(func() { slog.SetDefault(old) })

	def := Discard()
	slog.SetDefault(def)
	require.Equal(t, def, From(context.Background()))

	l := Discard()
	ctx := Into(context.Background(), l)
	require.Equal(t, l, From(ctx))

	var nilLogger *slog.Logger
	require.Equal(t, def, From(context.WithValue(context.Background(), ctxKey{}, nilLogger)))
}
