// Package geoip resolves IP addresses to geolocation data by walking an
// ordered chain of upstream providers. Every upstream speaks its own response
// dialect, so each one sits behind an adapter that normalizes into
// domain.Geolocation; the chain itself never branches on provider identity.
package geoip

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"geodash/internal/domain"
)

// Provider resolves one IP (empty string = the caller's own address) against
// a single upstream. A returned record must carry usable coordinates; a 2xx
// response without them is reported as an error so the chain advances.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, ip string) (*domain.Geolocation, error)
}

// newHTTPClient builds the outbound client shared by the adapters. Explicit
// transport limits, no ambient default client.
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}

// formatLoc renders the canonical "lat,lng" pair the way ipinfo does, so all
// adapters agree on the wire shape.
func formatLoc(lat, lng float64) string {
	return strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lng, 'f', -1, 64)
}

// usableLoc reports whether loc is a parseable "lat,lng" pair.
func usableLoc(loc string) bool {
	lat, lng, ok := strings.Cut(loc, ",")
	if !ok {
		return false
	}
	if _, err := strconv.ParseFloat(strings.TrimSpace(lat), 64); err != nil {
		return false
	}
	if _, err := strconv.ParseFloat(strings.TrimSpace(lng), 64); err != nil {
		return false
	}
	return true
}

func statusErr(provider string, code int) error {
	return fmt.Errorf("%s: unexpected status %d", provider, code)
}
