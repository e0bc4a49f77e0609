package source_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quotawatch/quotawatch/pkg/source"
)

func testDefs() *source.Definitions {
	return &source.Definitions{
		Series: []source.SeriesDef{
			{
				Name:          "main",
				Primary:       true,
				TokenEnv:      "QW_TEST_TOKEN",
				TokenScript:   "fetch_token.js",
				TokenFallback: "sk-fallback",
			},
			{Name: "bare"},
		},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTokenResolver_EnvWins(t *testing.T) {
	t.Setenv("QW_TEST_TOKEN", "sk-from-env")
	r := source.NewTokenResolver(testDefs(), time.Second, testLogger()).
		WithRunner(func(context.Context, string) (string, error) {
			t.Fatal("script must not run when the env var is set")
			return "", nil
		})

	tok, ok := r.Resolve(context.Background(), "main")
	require.True(t, ok)
	assert.Equal(t, "sk-from-env", tok)
}

func TestTokenResolver_EnvWithoutPrefixIgnored(t *testing.T) {
	t.Setenv("QW_TEST_TOKEN", "not-a-token")
	r := source.NewTokenResolver(testDefs(), time.Second, testLogger()).
		WithRunner(func(context.Context, string) (string, error) {
			return "noise before sk-fromscript123 noise after", nil
		})

	tok, ok := r.Resolve(context.Background(), "main")
	require.True(t, ok)
	assert.Equal(t, "sk-fromscript123", tok)
}

func TestTokenResolver_FallbackWhenScriptFails(t *testing.T) {
	t.Setenv("QW_TEST_TOKEN", "")
	r := source.NewTokenResolver(testDefs(), time.Second, testLogger()).
		WithRunner(func(context.Context, string) (string, error) {
			return "", errors.New("node exploded")
		})

	tok, ok := r.Resolve(context.Background(), "main")
	require.True(t, ok)
	assert.Equal(t, "sk-fallback", tok)
}

func TestTokenResolver_NothingResolvable(t *testing.T) {
	r := source.NewTokenResolver(testDefs(), time.Second, testLogger())

	_, ok := r.Resolve(context.Background(), "bare")
	assert.False(t, ok)
}

func TestTokenResolver_UnknownSeries(t *testing.T) {
	r := source.NewTokenResolver(testDefs(), time.Second, testLogger())

	_, ok := r.Resolve(context.Background(), "nope")
	assert.False(t, ok)
}

func TestTokenResolver_CachesAndInvalidates(t *testing.T) {
	t.Setenv("QW_TEST_TOKEN", "")
	calls := 0
	r := source.NewTokenResolver(testDefs(), time.Second, testLogger()).
		WithRunner(func(context.Context, string) (string, error) {
			calls++
			return "sk-scripted", nil
		})

	_, _ = r.Resolve(context.Background(), "main")
	_, _ = r.Resolve(context.Background(), "main")
	assert.Equal(t, 1, calls)

	r.Invalidate("main")
	_, _ = r.Resolve(context.Background(), "main")
	assert.Equal(t, 2, calls)
}
