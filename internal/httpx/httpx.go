// Package httpx builds the HTTP clients used for upstream services.
package httpx

import (
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/Clark-Hu/boxoffice-viewer/internal/metrics"
)

const defaultTimeout = 5 * time.Second

// Transport tags every round trip with the upstream service name for metrics.
type Transport struct {
	Service string
	Base    http.RoundTripper
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	start := time.Now()
	resp, err := base.RoundTrip(req)
	switch {
	case err != nil:
		metrics.RecordUpstream(t.Service, "transport_error", time.Since(start))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		metrics.RecordUpstream(t.Service, "http_error", time.Since(start))
	default:
		metrics.RecordUpstream(t.Service, "ok", time.Since(start))
	}
	return resp, err
}

// NewClient returns a client with bounded dial, TLS and header timeouts. No retries.
func NewClient(service string, timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &Transport{
			Service: service,
			Base: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
				ExpectContinueTimeout: 1 * time.Second,
				MaxIdleConnsPerHost:   4,
			},
		},
	}
}
