package geoip

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"geodash/internal/domain"
	"geodash/internal/netutil"
	"geodash/internal/observability/metrics"
)

// ErrAllProvidersFailed is returned only when every provider failed and the
// synthetic fallback has been switched off.
var ErrAllProvidersFailed = errors.New("all geolocation providers failed")

// synthetic is the fixed record returned when every provider has failed.
// Fabricating an answer instead of erroring is deliberate policy inherited
// from the dashboard's availability guarantee; Config.SyntheticFallback turns
// it off for deployments that would rather see the outage.
var synthetic = domain.Geolocation{
	IP:         "127.0.0.1",
	City:       "Quezon City",
	Region:     "Metro Manila",
	Country:    "PH",
	Loc:        "14.6760,121.0437",
	Org:        "Mock Provider (Rate Limited)",
	Postal:     "1100",
	Timezone:   "Asia/Manila",
	Provenance: "synthetic",
}

type Config struct {
	IPInfoToken       string
	Timeout           time.Duration
	SyntheticFallback bool
}

// Resolver walks its providers strictly in order, one attempt each, no
// retries. The first provider returning a record with usable coordinates
// wins; anything else advances the chain.
type Resolver struct {
	providers []Provider
	synthetic bool
	logger    *slog.Logger
}

// NewResolver assembles the production chain: ipinfo.io, then ipapi.co, then
// ip-api.com, then (optionally) the synthetic record.
func NewResolver(cfg Config, logger *slog.Logger) *Resolver {
	return NewResolverWithProviders(logger, cfg.SyntheticFallback,
		NewIPInfo(cfg.IPInfoToken, cfg.Timeout),
		NewIPAPI(cfg.Timeout),
		NewIPAPICom(cfg.Timeout),
	)
}

// NewResolverWithProviders wires an explicit chain; tests use it with fakes.
func NewResolverWithProviders(logger *slog.Logger, syntheticFallback bool, providers ...Provider) *Resolver {
	return &Resolver{
		providers: providers,
		synthetic: syntheticFallback,
		logger:    logger,
	}
}

// Resolve validates ip (empty means "the caller's own address") and walks the
// chain. With the synthetic fallback enabled this never fails on upstream
// outage; the only error paths are a malformed ip, which is rejected before
// any network call, or total outage with the fallback disabled.
func (r *Resolver) Resolve(ctx context.Context, ip string) (*domain.Geolocation, error) {
	canon, ok := netutil.ValidateIP(ip)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidIP, ip)
	}

	for _, p := range r.providers {
		rec, err := p.Resolve(ctx, canon)
		if err != nil {
			metrics.ProviderAttemptsTotal.WithLabelValues(p.Name(), "failure").Inc()
			r.logger.Warn("geolocation provider failed",
				"provider", p.Name(),
				"ip", canon,
				"error", err,
			)
			continue
		}
		metrics.ProviderAttemptsTotal.WithLabelValues(p.Name(), "success").Inc()
		r.logger.Debug("geolocation provider succeeded",
			"provider", p.Name(),
			"ip", canon,
		)
		return rec, nil
	}

	if !r.synthetic {
		return nil, ErrAllProvidersFailed
	}

	metrics.ProviderAttemptsTotal.WithLabelValues("synthetic", "success").Inc()
	r.logger.Warn("all providers failed, returning synthetic record", "ip", canon)
	rec := synthetic
	if canon != "" {
		rec.IP = canon
	}
	return &rec, nil
}
