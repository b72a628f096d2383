package sync

import (
	"context"
	"errors"
	"net/http"
	"time"

	v1 "drillwatch.org/drillwatch/api/v1"
)

// Connectivity tells the reconciler whether the authority is reachable.
// Injected rather than read from a global so tests can substitute a fake
// network state.
type Connectivity interface {
	Online(ctx context.Context) bool
}

// HTTPConnectivity probes the authority's /ping route.
type HTTPConnectivity struct {
	transport *v1.Transport
}

func NewHTTPConnectivity(baseURL string) *HTTPConnectivity {
	return &HTTPConnectivity{
		transport: &v1.Transport{
			BaseURL: baseURL,
			HTTPClient: &http.Client{
				Timeout: 3 * time.Second,
			},
		},
	}
}

func (c *HTTPConnectivity) Online(ctx context.Context) bool {
	_, err := c.transport.Get(ctx, "/ping", nil)
	if err == nil {
		return true
	}
	// A 4xx reply still proves the authority answered.
	var se *v1.StatusError
	return errors.As(err, &se) && !se.Temporary()
}
