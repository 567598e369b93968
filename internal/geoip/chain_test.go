package geoip

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"

	"geodash/internal/domain"
	"geodash/internal/observability/metrics"
)

func TestMain(m *testing.M) {
	metrics.MustRegister("geodash-test")
	os.Exit(m.Run())
}

type fakeProvider struct {
	name  string
	rec   *domain.Geolocation
	err   error
	calls int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Resolve(ctx context.Context, ip string) (*domain.Geolocation, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.rec, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okRecord(provenance string) *domain.Geolocation {
	return &domain.Geolocation{
		IP:         "8.8.8.8",
		City:       "Mountain View",
		Region:     "California",
		Country:    "US",
		Loc:        "37.386,-122.0838",
		Org:        "Google LLC",
		Provenance: provenance,
	}
}

func TestResolveMalformedIPRejectedBeforeNetwork(t *testing.T) {
	p := &fakeProvider{name: "primary", rec: okRecord("primary")}
	r := NewResolverWithProviders(discard(), true, p)

	for _, bad := range []string{"not-an-ip", "999.1.2.3", "1.2.3", "8.8.8.8:80"} {
		if _, err := r.Resolve(context.Background(), bad); !errors.Is(err, domain.ErrInvalidIP) {
			t.Errorf("Resolve(%q) err = %v, want ErrInvalidIP", bad, err)
		}
	}
	if p.calls != 0 {
		t.Fatalf("provider contacted %d times for malformed input", p.calls)
	}
}

func TestResolvePrimaryWinsShortCircuits(t *testing.T) {
	primary := &fakeProvider{name: "primary", rec: okRecord("primary")}
	secondary := &fakeProvider{name: "secondary", rec: okRecord("secondary")}
	r := NewResolverWithProviders(discard(), true, primary, secondary)

	rec, err := r.Resolve(context.Background(), "8.8.8.8")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if rec.Provenance != "primary" {
		t.Errorf("provenance = %q, want primary", rec.Provenance)
	}
	if secondary.calls != 0 {
		t.Errorf("secondary contacted %d times despite primary success", secondary.calls)
	}
}

func TestResolveAdvancesPastFailures(t *testing.T) {
	primary := &fakeProvider{name: "primary", err: errors.New("rate limited")}
	secondary := &fakeProvider{name: "secondary", rec: okRecord("secondary")}
	r := NewResolverWithProviders(discard(), true, primary, secondary)

	rec, err := r.Resolve(context.Background(), "8.8.8.8")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if rec.Provenance != "secondary" {
		t.Errorf("provenance = %q, want secondary", rec.Provenance)
	}
	if primary.calls != 1 || secondary.calls != 1 {
		t.Errorf("calls = %d/%d, want exactly one each", primary.calls, secondary.calls)
	}
}

func TestResolveSyntheticOnTotalOutage(t *testing.T) {
	down := errors.New("connection refused")
	r := NewResolverWithProviders(discard(), true,
		&fakeProvider{name: "a", err: down},
		&fakeProvider{name: "b", err: down},
		&fakeProvider{name: "c", err: down},
	)

	rec, err := r.Resolve(context.Background(), "8.8.8.8")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if rec.Provenance != "synthetic" {
		t.Errorf("provenance = %q, want synthetic", rec.Provenance)
	}
	if rec.IP != "8.8.8.8" {
		t.Errorf("synthetic record ip = %q, want requested ip", rec.IP)
	}
	if rec.Loc != "14.6760,121.0437" {
		t.Errorf("synthetic loc = %q", rec.Loc)
	}
	if !usableLoc(rec.Loc) {
		t.Error("synthetic loc is not parseable")
	}
}

func TestResolveSyntheticDisabledSurfacesOutage(t *testing.T) {
	r := NewResolverWithProviders(discard(), false,
		&fakeProvider{name: "a", err: errors.New("down")},
	)
	if _, err := r.Resolve(context.Background(), "8.8.8.8"); !errors.Is(err, ErrAllProvidersFailed) {
		t.Fatalf("err = %v, want ErrAllProvidersFailed", err)
	}
}

func TestResolveAlwaysReturnsUsableLoc(t *testing.T) {
	// Total availability: whatever combination of providers fails, a record
	// with parseable coordinates comes back.
	combos := [][]Provider{
		{&fakeProvider{name: "a", rec: okRecord("a")}},
		{&fakeProvider{name: "a", err: errors.New("x")}, &fakeProvider{name: "b", rec: okRecord("b")}},
		{&fakeProvider{name: "a", err: errors.New("x")}},
		{},
	}
	for i, ps := range combos {
		r := NewResolverWithProviders(discard(), true, ps...)
		rec, err := r.Resolve(context.Background(), "")
		if err != nil {
			t.Fatalf("combo %d: %v", i, err)
		}
		if !usableLoc(rec.Loc) {
			t.Errorf("combo %d: loc %q not parseable", i, rec.Loc)
		}
	}
}

func TestUsableLoc(t *testing.T) {
	cases := []struct {
		loc  string
		want bool
	}{
		{"14.6760,121.0437", true},
		{"-33.87,151.21", true},
		{"0,0", true},
		{"", false},
		{"14.6760", false},
		{"lat,lng", false},
		{",", false},
	}
	for _, tc := range cases {
		if got := usableLoc(tc.loc); got != tc.want {
			t.Errorf("usableLoc(%q) = %v, want %v", tc.loc, got, tc.want)
		}
	}
}
