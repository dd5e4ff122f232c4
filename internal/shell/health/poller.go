// Package health polls HTTP health endpoints until services report ready.
package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// =============================================================================
// Errors
// =============================================================================

// ErrReadinessTimeout means the endpoint never returned success within the
// polling deadline.
var ErrReadinessTimeout = errors.New("service readiness timeout")

// =============================================================================
// Poller
// =============================================================================

// Default polling parameters: fixed 2-second interval against a 60-second
// deadline. No backoff, no jitter.
const (
	DefaultInterval = 2 * time.Second
	DefaultTimeout  = 60 * time.Second
)

// Poller issues HTTP readiness probes at a fixed interval until success or
// deadline exhaustion.
type Poller struct {
	client *http.Client
	logger *slog.Logger
}

// NewPoller creates a poller. A nil client gets a default with a per-probe
// timeout short enough to never outlive the polling interval.
func NewPoller(client *http.Client, logger *slog.Logger) *Poller {
	if client == nil {
		client = &http.Client{Timeout: DefaultInterval}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		client: client,
		logger: logger.With("component", "health"),
	}
}

// Probe issues a single GET against the URL. Any 2xx response is success.
func (p *Poller) Probe(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build probe request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("health endpoint returned %d", resp.StatusCode)
	}
	return nil
}

// WaitReady polls the URL every interval until it answers with a 2xx or the
// timeout elapses. Returns how long readiness took, or ErrReadinessTimeout.
// The first probe fires immediately; probe failures are expected while the
// service boots and are logged at debug only.
func (p *Poller) WaitReady(ctx context.Context, name, url string, timeout, interval time.Duration) (time.Duration, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if interval <= 0 {
		interval = DefaultInterval
	}

	start := time.Now()
	deadline := start.Add(timeout)
	logger := p.logger.With("service", name, "url", url)

	logger.Info("waiting for service readiness", "timeout", timeout, "interval", interval)

	if err := p.Probe(ctx, url); err == nil {
		logger.Info("service ready", "took", time.Since(start).Round(time.Millisecond))
		return time.Since(start), nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return time.Since(start), ctx.Err()
		case <-ticker.C:
			err := p.Probe(ctx, url)
			if err == nil {
				logger.Info("service ready", "took", time.Since(start).Round(time.Millisecond))
				return time.Since(start), nil
			}
			if time.Now().After(deadline) {
				logger.Warn("service readiness timed out", "waited", timeout)
				return time.Since(start), fmt.Errorf("%w: %s after %s: %v", ErrReadinessTimeout, name, timeout, err)
			}
			logger.Debug("service not ready yet", "error", err)
		}
	}
}
