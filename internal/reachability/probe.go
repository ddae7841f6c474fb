// Package reachability implements C5: a connectivity probe used
// solely to distinguish "network down" from "auth broken" so the
// orchestrator can pick the right failover branch marker.
package reachability

import (
	"context"
	"net/http"
	"net/url"
	"time"

	probing "github.com/prometheus-community/pro-bing"
	"github.com/rs/zerolog"
)

// Prober checks whether the vendor host answers ICMP echoes, falling
// back to an HTTPS HEAD when the process cannot open raw ICMP sockets
// (spec.md §4.2/P1).
type Prober struct {
	host    string
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

// NewProber builds a Prober for the given vendor base URL.
func NewProber(baseURL string, logger zerolog.Logger) *Prober {
	host := baseURL
	if u, err := url.Parse(baseURL); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}
	return &Prober{
		host:    host,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: insecureTLSConfig(),
			},
		},
		logger: logger.With().Str("component", "reachability").Logger(),
	}
}

// Reachable runs three ICMP echoes with an overall 15s timeout; if
// ICMP is unavailable (unprivileged process, platform restriction) it
// falls back to a single HTTPS HEAD against the vendor base URL.
func (p *Prober) Reachable(ctx context.Context) bool {
	ok, pingErr := p.pingICMP(ctx)
	if pingErr == nil {
		return ok
	}

	p.logger.Debug().Err(pingErr).Msg("ICMP unavailable, falling back to HTTP HEAD")
	return p.headFallback(ctx)
}

func (p *Prober) pingICMP(ctx context.Context) (bool, error) {
	pinger, err := probing.NewPinger(p.host)
	if err != nil {
		return false, err
	}
	pinger.Count = 3
	pinger.Timeout = 15 * time.Second
	pinger.SetPrivileged(false)

	if err := pinger.RunWithContext(ctx); err != nil {
		return false, err
	}
	stats := pinger.Statistics()
	return stats.PacketsRecv > 0, nil
}

func (p *Prober) headFallback(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.baseURL, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return true
}
