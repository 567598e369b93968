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

// IPInfo is the primary provider (ipinfo.io). Its response already uses the
// canonical field names; loc arrives as a "lat,lng" string.
type IPInfo struct {
	BaseURL string
	Token   string
	client  *http.Client
}

func NewIPInfo(token string, timeout time.Duration) *IPInfo {
	return &IPInfo{
		BaseURL: "https://ipinfo.io",
		Token:   token,
		client:  newHTTPClient(timeout),
	}
}

func (p *IPInfo) Name() string { return "ipinfo" }

type ipInfoResponse struct {
	IP       string `json:"ip"`
	Bogon    bool   `json:"bogon"`
	City     string `json:"city"`
	Region   string `json:"region"`
	Country  string `json:"country"`
	Loc      string `json:"loc"`
	Org      string `json:"org"`
	Postal   string `json:"postal"`
	Timezone string `json:"timezone"`
}

func (p *IPInfo) Resolve(ctx context.Context, ip string) (*domain.Geolocation, error) {
	// /{ip}/json for an explicit target, /json for the caller's own address.
	u := p.BaseURL + "/json"
	if ip != "" {
		u = p.BaseURL + "/" + url.PathEscape(ip) + "/json"
	}
	if p.Token != "" {
		u += "?token=" + url.QueryEscape(p.Token)
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

	var body ipInfoResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("ipinfo: decode: %w", err)
	}
	// Bogon (private/reserved) addresses come back 200 with no coordinates.
	if body.Bogon || !usableLoc(body.Loc) {
		return nil, fmt.Errorf("ipinfo: no usable coordinates for %q", ip)
	}

	return &domain.Geolocation{
		IP:         body.IP,
		City:       body.City,
		Region:     body.Region,
		Country:    body.Country,
		Loc:        body.Loc,
		Org:        body.Org,
		Postal:     body.Postal,
		Timezone:   body.Timezone,
		Provenance: p.Name(),
	}, nil
}
