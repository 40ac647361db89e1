package remote

import (
	"context"
	"log/slog"
)

// HTTPProbe answers "is the score API reachable" with a single health call.
// There is no retry; any error counts as unreachable.
type HTTPProbe struct {
	client *Client
	logger *slog.Logger
}

func NewHTTPProbe(client *Client, logger *slog.Logger) *HTTPProbe {
	return &HTTPProbe{client: client, logger: logger}
}

func (p *HTTPProbe) Probe(ctx context.Context) bool {
	if err := p.client.Health(ctx); err != nil {
		p.logger.Debug("Connectivity probe failed", "error", err)
		return false
	}
	return true
}

// StaticProbe always returns its value. Used for forced-offline mode and tests.
type StaticProbe bool

func (s StaticProbe) Probe(context.Context) bool { return bool(s) }
