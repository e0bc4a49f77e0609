package source

import (
	"context"
	"log/slog"
	"time"

	"github.com/quotawatch/quotawatch/pkg/model"
)

// Chain combines the site scrape and the API client under a static
// preference order: site first (it matches what the user sees), API
// as fallback, remaining-only as last resort. Each call stays within
// the per-adapter timeout, so the chain as a whole is bounded too.
type Chain struct {
	site   *SiteScraper
	api    *APIClient
	logger *slog.Logger
}

// NewChain wires a chain. site may be nil when no helper script is
// configured.
func NewChain(site *SiteScraper, api *APIClient, logger *slog.Logger) *Chain {
	return &Chain{site: site, api: api, logger: logger}
}

// FetchDetails reads the fullest snapshot available. Details come
// from the API; when the site scrape succeeds its remaining amount
// overrides the API heuristic.
func (c *Chain) FetchDetails(ctx context.Context, name, token string) (model.Snapshot, error) {
	snap, apiErr := c.api.FetchDetails(ctx, name, token)

	if c.site != nil && c.site.Available() {
		if v, err := c.site.FetchRemaining(ctx, token); err == nil && v >= 0 {
			if apiErr != nil {
				snap = model.Snapshot{Name: name, Timestamp: time.Now()}
				apiErr = nil
			}
			snap.Remaining = v
			return snap, nil
		} else if err != nil {
			c.logger.Debug("site scrape failed, using API value", "series", name, "error", err)
		}
	}

	if apiErr != nil {
		return model.Snapshot{}, apiErr
	}
	return snap, nil
}

// FetchRemaining reads just the remaining amount, cheapest first.
func (c *Chain) FetchRemaining(ctx context.Context, name, token string) (float64, error) {
	if c.site != nil && c.site.Available() {
		if v, err := c.site.FetchRemaining(ctx, token); err == nil && v >= 0 {
			return v, nil
		}
	}
	return c.api.FetchRemaining(ctx, name, token)
}
