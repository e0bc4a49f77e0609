package source

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"time"
)

var firstNumberRe = regexp.MustCompile(`[-+]?\d+(?:\.\d+)?`)

// SiteScraper reads the remaining amount the way the account site
// renders it, by shelling out to a Node helper script. The site value
// is preferred over the API heuristic because it matches what the
// user sees.
type SiteScraper struct {
	script  string
	timeout time.Duration
}

// NewSiteScraper creates a scraper for the given helper script.
func NewSiteScraper(script string, timeout time.Duration) *SiteScraper {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &SiteScraper{script: script, timeout: timeout}
}

// Available reports whether the helper script exists.
func (s *SiteScraper) Available() bool {
	if s.script == "" {
		return false
	}
	_, err := os.Stat(s.script)
	return err == nil
}

// FetchRemaining runs the helper and parses the first number it
// prints.
func (s *SiteScraper) FetchRemaining(ctx context.Context, token string) (float64, error) {
	if !s.Available() {
		return 0, fmt.Errorf("site helper script not found: %s", s.script)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "node", s.script, token)
	cmd.Dir = filepath.Dir(s.script)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("site scrape: %w (output: %.200s)", err, string(out))
	}

	m := firstNumberRe.FindString(string(out))
	if m == "" {
		return 0, fmt.Errorf("site scrape: no number in output %.200q", string(out))
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, fmt.Errorf("site scrape: parse %q: %w", m, err)
	}
	return v, nil
}
