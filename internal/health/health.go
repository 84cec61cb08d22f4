// Package health runs a background HTTP health checker over every record
// that carries a health_url, feeding results back into the store so the
// selection engine can fail records out of rotation.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/authdns/authdns/internal/store"
)

const minCheckTimeout = 250 * time.Millisecond

// cacheClearer is the subset of *cache.Cache[V] the checker needs. See
// internal/ddns for why this is an interface rather than a concrete
// generic instantiation.
type cacheClearer interface {
	Clear()
}

// Checker periodically probes every health-checked record and writes the
// result back to the store, clearing the lookup cache after any pass that
// wrote at least one result so the selector sees it immediately.
type Checker struct {
	store    *store.Store
	cache    cacheClearer
	interval time.Duration
	timeout  time.Duration
	client   *http.Client
	log      *slog.Logger
}

// New builds a Checker. timeout is floored at minCheckTimeout regardless
// of what's configured, so a misconfigured near-zero timeout can't turn
// every probe into an instant failure.
func New(st *store.Store, c cacheClearer, interval, timeout time.Duration, log *slog.Logger) *Checker {
	if timeout < minCheckTimeout {
		timeout = minCheckTimeout
	}
	return &Checker{
		store:    st,
		cache:    c,
		interval: interval,
		timeout:  timeout,
		client:   &http.Client{Timeout: timeout},
		log:      log,
	}
}

// Run blocks, probing every health target once per interval, until ctx is
// canceled.
func (c *Checker) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.runOnce(ctx)
		}
	}
}

func (c *Checker) runOnce(ctx context.Context) {
	targets, err := c.store.HealthTargets()
	if err != nil {
		c.log.Error("list health targets", "error", err)
		return
	}

	changed := false
	for _, t := range targets {
		healthy := c.probe(ctx, t.HealthURL)
		if err := c.store.UpdateHealth(t.RecordID, healthy); err != nil {
			c.log.Error("write health result", "record_id", t.RecordID, "error", err)
			continue
		}
		changed = true
		c.log.Debug("health check", "record_id", t.RecordID, "url", t.HealthURL, "healthy", healthy)
	}
	if changed {
		c.cache.Clear()
	}
}

// probe reports a target healthy iff the request completes with a status
// below 500; timeouts, connection errors, and 5xx all count as unhealthy.
func (c *Checker) probe(ctx context.Context, url string) bool {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 500
}
