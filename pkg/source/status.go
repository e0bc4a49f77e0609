package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// ServiceReading is one raw row scraped from the status page.
type ServiceReading struct {
	Name      string  `json:"name"`
	Percent24 float64 `json:"percent_24h"`
}

// StatusFetcher reads per-service 24h availability percentages via a
// Node helper script.
type StatusFetcher struct {
	script  string
	timeout time.Duration
}

// NewStatusFetcher creates a fetcher for the given helper script.
func NewStatusFetcher(script string, timeout time.Duration) *StatusFetcher {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &StatusFetcher{script: script, timeout: timeout}
}

// Fetch runs the helper and returns normalized service percentages.
func (f *StatusFetcher) Fetch(ctx context.Context) (map[string]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "node", f.script)
	cmd.Dir = filepath.Dir(f.script)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("status scrape: %w (output: %.200s)", err, string(out))
	}

	var raw []ServiceReading
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, fmt.Errorf("status scrape: invalid JSON: %w (raw: %.200s)", err, string(out))
	}
	return NormalizeServices(raw), nil
}

var (
	leadingPercentRe = regexp.MustCompile(`^\s*\d+(?:\.\d+)?%\s*`)
	timingTokenRe    = regexp.MustCompile(`(?i)\d+\s*[hm](?:\s*ago)?`)
	spaceRe          = regexp.MustCompile(`\s+`)
	serviceNameRe    = regexp.MustCompile(`(?i)线路|号池|\bCLI\b|Claude|CodeX|Sonnet|Opus|CC\s*2api|（|）`)
)

// NormalizeServices turns the noisy scraped rows into a clean
// {service name: percent} map. The scraped page interleaves service
// rows with timing chatter and duplicate fragments; duplicates
// resolve to the minimum percent seen, which suppresses the page's
// global summary lines leaking into a service bucket. This mirrors
// the page's quirks and lives here, not in the engines.
func NormalizeServices(raw []ServiceReading) map[string]float64 {
	buckets := make(map[string][]ServiceReading)
	for _, item := range raw {
		name := strings.TrimSpace(item.Name)
		if name == "" || len(name) > 160 {
			continue
		}
		if item.Percent24 < 0 || item.Percent24 > 1000 {
			continue
		}

		key := leadingPercentRe.ReplaceAllString(name, "")
		key = strings.ReplaceAll(key, "now", "")
		key = strings.ReplaceAll(key, "ago", "")
		key = timingTokenRe.ReplaceAllString(key, "")
		key = strings.TrimSpace(spaceRe.ReplaceAllString(key, " "))
		if key == "" || strings.Contains(key, "%") {
			continue
		}
		if !serviceNameRe.MatchString(key) {
			continue
		}
		buckets[key] = append(buckets[key], ServiceReading{Name: name, Percent24: item.Percent24})
	}

	result := make(map[string]float64, len(buckets))
	for key, variants := range buckets {
		var exacts []float64
		var all []float64
		for _, v := range variants {
			all = append(all, v.Percent24)
			if strings.TrimSpace(v.Name) == key {
				exacts = append(exacts, v.Percent24)
			}
		}
		if len(exacts) > 0 {
			result[key] = minOf(exacts)
			continue
		}
		result[key] = minOf(all)
	}
	return result
}

func minOf(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
