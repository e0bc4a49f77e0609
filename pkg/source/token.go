package source

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"
)

var tokenRe = regexp.MustCompile(`(sk-[A-Za-z0-9]+)`)

// ScriptRunner executes a helper script and returns its combined
// output. Injectable for tests.
type ScriptRunner func(ctx context.Context, script string) (string, error)

// TokenResolver resolves the access token for each series with the
// precedence: environment variable, auto-fetch helper script, static
// fallback. Resolved tokens are cached; Invalidate drops one so the
// aggregator's retry pass can re-resolve it.
type TokenResolver struct {
	defs    *Definitions
	timeout time.Duration
	runner  ScriptRunner
	logger  *slog.Logger

	mu    sync.Mutex
	cache map[string]string
}

// NewTokenResolver creates a resolver for the given definitions.
func NewTokenResolver(defs *Definitions, timeout time.Duration, logger *slog.Logger) *TokenResolver {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &TokenResolver{
		defs:    defs,
		timeout: timeout,
		runner:  runNodeScript,
		logger:  logger,
		cache:   make(map[string]string),
	}
}

// WithRunner replaces the script runner, for tests.
func (r *TokenResolver) WithRunner(runner ScriptRunner) *TokenResolver {
	r.runner = runner
	return r
}

// Resolve returns the token for a series name and whether one could
// be resolved at all.
func (r *TokenResolver) Resolve(ctx context.Context, name string) (string, bool) {
	r.mu.Lock()
	if tok, ok := r.cache[name]; ok {
		r.mu.Unlock()
		return tok, tok != ""
	}
	r.mu.Unlock()

	def, ok := r.defs.Lookup(name)
	if !ok {
		return "", false
	}

	tok := r.resolve(ctx, def)
	r.mu.Lock()
	r.cache[name] = tok
	r.mu.Unlock()
	return tok, tok != ""
}

// Invalidate drops the cached token for a series so the next Resolve
// call goes through the full precedence again.
func (r *TokenResolver) Invalidate(name string) {
	r.mu.Lock()
	delete(r.cache, name)
	r.mu.Unlock()
}

func (r *TokenResolver) resolve(ctx context.Context, def SeriesDef) string {
	if def.TokenEnv != "" {
		if tok := strings.TrimSpace(os.Getenv(def.TokenEnv)); strings.HasPrefix(tok, "sk-") {
			r.logger.Debug("token from environment", "series", def.Name, "env", def.TokenEnv)
			return tok
		}
	}

	if def.TokenScript != "" {
		ctx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		out, err := r.runner(ctx, def.TokenScript)
		if err != nil {
			r.logger.Warn("token auto-fetch failed", "series", def.Name, "error", err)
		} else if m := tokenRe.FindString(out); m != "" {
			r.logger.Debug("token auto-fetched", "series", def.Name)
			return m
		}
	}

	if def.TokenFallback != "" {
		r.logger.Debug("using fallback token", "series", def.Name)
		return def.TokenFallback
	}
	return ""
}

func runNodeScript(ctx context.Context, script string) (string, error) {
	cmd := exec.CommandContext(ctx, "node", script)
	cmd.Dir = filepath.Dir(script)
	out, err := cmd.CombinedOutput()
	return string(out), err
}
