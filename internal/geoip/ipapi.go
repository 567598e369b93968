package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"geodash/internal/domain"
)

// IPAPI is the secondary provider (ipapi.co). It signals failure inside a 2xx
// body via an explicit "error" marker and names its fields differently from
// ipinfo (country_code, latitude/longitude, ...).
type IPAPI struct {
	BaseURL string
	client  *http.Client
}

func NewIPAPI(timeout time.Duration) *IPAPI {
	return &IPAPI{
		BaseURL: "https://ipapi.co",
		client:  newHTTPClient(timeout),
	}
}

func (p *IPAPI) Name() string { return "ipapi" }

type ipAPIResponse struct {
	Error     bool    `json:"error"`
	Reason    string  `json:"reason"`
	IP        string  `json:"ip"`
	City      string  `json:"city"`
	Region    string  `json:"region"`
	Country   string  `json:"country_code"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Org       string  `json:"org"`
	Postal    string  `json:"postal"`
	Timezone  string  `json:"timezone"`
}

func (p *IPAPI) Resolve(ctx context.Context, ip string) (*domain.Geolocation, error) {
	// /{ip}/json/ for an explicit target, /json/ for the caller's own address.
	u := p.BaseURL + "/json/"
	if ip != "" {
		u = p.BaseURL + "/" + url.PathEscape(ip) + "/json/"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	res, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, statusErr(p.Name(), res.StatusCode)
	}

	var body ipAPIResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("ipapi: decode: %w", err)
	}
	if body.Error {
		return nil, fmt.Errorf("ipapi: upstream error: %s", body.Reason)
	}
	loc := formatLoc(body.Latitude, body.Longitude)
	if !usableLoc(loc) {
		return nil, fmt.Errorf("ipapi: no usable coordinates for %q", ip)
	}

	return &domain.Geolocation{
		IP:         body.IP,
		City:       body.City,
		Region:     body.Region,
		Country:    body.Country,
		Loc:        loc,
		Org:        body.Org,
		Postal:     body.Postal,
		Timezone:   body.Timezone,
		Provenance: p.Name(),
	}, nil
}
