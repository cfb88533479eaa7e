// Package probe provides stream endpoint liveness checking.
package probe

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"streamgate/internal/logger"
	"streamgate/internal/metrics"
)

// DefaultTimeout bounds connection plus response for one probe.
const DefaultTimeout = 10 * time.Second

// DefaultUserAgent is sent with every probe; some upstreams reject the Go
// default agent.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Prober is the interface for endpoint liveness checks.
type Prober interface {
	// Probe reports whether the endpoint at url is believed live. It never
	// fails to its caller: every transport error, timeout, or unexpected
	// status resolves to false.
	Probe(ctx context.Context, url string) bool
}

// HTTPProber probes endpoints with a GET that reads only the status line.
type HTTPProber struct {
	client    *http.Client
	userAgent string
}

// NewHTTPProber creates an HTTPProber. Zero timeout means DefaultTimeout;
// empty userAgent means DefaultUserAgent.
func NewHTTPProber(timeout time.Duration, userAgent string) *HTTPProber {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &HTTPProber{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DisableKeepAlives: true, // don't keep connections for probes
			},
		},
		userAgent: userAgent,
	}
}

// Probe implements Prober. An empty URL is false without a network call.
func (p *HTTPProber) Probe(ctx context.Context, url string) bool {
	if url == "" {
		logger.Debug("probe_empty_url")
		return false
	}

	start := time.Now()
	err := p.check(ctx, url)
	duration := time.Since(start)

	metrics.ProbeDuration.Observe(duration.Seconds())
	if err != nil {
		metrics.ProbesTotal.WithLabelValues("dead").Inc()
		logger.Debug("probe_failed", "url", url, "error", err.Error(), "duration_ms", duration.Milliseconds())
		return false
	}

	metrics.ProbesTotal.WithLabelValues("working").Inc()
	logger.LogProbe(url, true, duration)
	return true
}

// check performs the request. Redirects are followed; the body is never
// downloaded, only the status line matters.
func (p *HTTPProber) check(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusMovedPermanently, http.StatusFound:
		return nil
	}
	return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
}
