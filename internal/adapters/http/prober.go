package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/HustleDanie/Realtime-Vision-System-sub001/internal/ports"
)

const healthEndpoint = "/v1/health"

// Prober implements ports.ConnectivityProber with a HEAD request against the
// service health endpoint. It deliberately shares nothing with the delivery
// path so a slow send never skews reachability checks.
type Prober struct {
	client  ports.HTTPClient
	baseURL string
	timeout time.Duration
}

// NewProber creates a connectivity prober for the given service base URL.
func NewProber(client ports.HTTPClient, baseURL string, timeout time.Duration) *Prober {
	return &Prober{
		client:  client,
		baseURL: baseURL,
		timeout: timeout,
	}
}

// Probe returns nil when the endpoint answers within the probe timeout.
// Any HTTP response counts as reachable; a 5xx still proves the network
// path is up, and the delivery worker will find out about server health
// on its own terms.
func (p *Prober) Probe(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, p.baseURL+healthEndpoint, nil)
	if err != nil {
		return fmt.Errorf("create probe request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("probe: %w", err)
	}
	resp.Body.Close()
	return nil
}
