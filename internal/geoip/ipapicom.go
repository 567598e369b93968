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

// IPAPICom is the tertiary provider (ip-api.com, free tier is http only).
// Success is discriminated by status == "success"; field names differ again
// (query, regionName, lat/lon, isp, zip).
type IPAPICom struct {
	BaseURL string
	client  *http.Client
}

func NewIPAPICom(timeout time.Duration) *IPAPICom {
	return &IPAPICom{
		BaseURL: "http://ip-api.com",
		client:  newHTTPClient(timeout),
	}
}

func (p *IPAPICom) Name() string { return "ip-api" }

type ipAPIComResponse struct {
	Status     string  `json:"status"`
	Message    string  `json:"message"`
	Query      string  `json:"query"`
	City       string  `json:"city"`
	RegionName string  `json:"regionName"`
	Country    string  `json:"countryCode"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	ISP        string  `json:"isp"`
	Zip        string  `json:"zip"`
	Timezone   string  `json:"timezone"`
}

func (p *IPAPICom) Resolve(ctx context.Context, ip string) (*domain.Geolocation, error) {
	u := p.BaseURL + "/json/"
	if ip != "" {
		u += url.PathEscape(ip)
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

	var body ipAPIComResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("ip-api: decode: %w", err)
	}
	if body.Status != "success" {
		return nil, fmt.Errorf("ip-api: status %q: %s", body.Status, body.Message)
	}
	loc := formatLoc(body.Lat, body.Lon)
	if !usableLoc(loc) {
		return nil, fmt.Errorf("ip-api: no usable coordinates for %q", ip)
	}

	return &domain.Geolocation{
		IP:         body.Query,
		City:       body.City,
		Region:     body.RegionName,
		Country:    body.Country,
		Loc:        loc,
		Org:        body.ISP,
		Postal:     body.Zip,
		Timezone:   body.Timezone,
		Provenance: p.Name(),
	}, nil
}
