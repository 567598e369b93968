package store

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

// stubStrategy counts calls and returns canned results per operation.
type stubStrategy struct {
	user    *domain.User
	userErr error

	createErr error
	listRecs  []domain.SearchHistory
	listErr   error
	deleteErr error

	findCalls, upsertCalls, createCalls, listCalls, deleteCalls int
	lastDeleteUserID                                            int64
	lastDeleteIDs                                               []int64
}

func (s *stubStrategy) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.findCalls++
	return s.user, s.userErr
}

func (s *stubStrategy) UpsertUser(ctx context.Context, email, passwordHash string) (*domain.User, bool, error) {
	s.upsertCalls++
	return s.user, s.user != nil, s.userErr
}

func (s *stubStrategy) CreateSearchHistory(ctx context.Context, rec *domain.SearchHistory) error {
	s.createCalls++
	return s.createErr
}

func (s *stubStrategy) ListSearchHistoryByUser(ctx context.Context, userID int64) ([]domain.SearchHistory, error) {
	s.listCalls++
	return s.listRecs, s.listErr
}

func (s *stubStrategy) DeleteSearchHistoryByIDs(ctx context.Context, userID int64, ids []int64) error {
	s.deleteCalls++
	s.lastDeleteUserID = userID
	s.lastDeleteIDs = append([]int64(nil), ids...)
	return s.deleteErr
}

func newStubGateway(primary, fallback *stubStrategy) *Gateway {
	return &Gateway{
		primary:  primary,
		fallback: fallback,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestPrimarySuccessSkipsFallback(t *testing.T) {
	primary := &stubStrategy{user: &domain.User{ID: 1, Email: "a@b.c"}}
	fallback := &stubStrategy{}
	g := newStubGateway(primary, fallback)

	u, err := g.FindUserByEmail(context.Background(), "a@b.c")
	if err != nil {
		t.Fatalf("FindUserByEmail: %v", err)
	}
	if u.ID != 1 {
		t.Errorf("user id = %d", u.ID)
	}
	if fallback.findCalls != 0 {
		t.Errorf("fallback used %d times despite primary success", fallback.findCalls)
	}
}

func TestNotFoundDoesNotTriggerFallback(t *testing.T) {
	primary := &stubStrategy{userErr: domain.ErrNotFound}
	fallback := &stubStrategy{user: &domain.User{ID: 9}}
	g := newStubGateway(primary, fallback)

	if _, err := g.FindUserByEmail(context.Background(), "nobody@x.y"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if fallback.findCalls != 0 {
		t.Error("fallback exercised for a not-found result")
	}
}

func TestPrimaryFailureFallsBack(t *testing.T) {
	primary := &stubStrategy{userErr: errors.New("adapter mismatch")}
	fallback := &stubStrategy{user: &domain.User{ID: 7, Email: "a@b.c"}}
	g := newStubGateway(primary, fallback)

	u, err := g.FindUserByEmail(context.Background(), "a@b.c")
	if err != nil {
		t.Fatalf("FindUserByEmail: %v", err)
	}
	if u.ID != 7 {
		t.Errorf("user id = %d, want fallback result", u.ID)
	}
	if primary.findCalls != 1 || fallback.findCalls != 1 {
		t.Errorf("calls = %d/%d, want one attempt per path", primary.findCalls, fallback.findCalls)
	}
}

func TestBothPathsFailingCollapsesToPersistenceError(t *testing.T) {
	primary := &stubStrategy{
		userErr:   errors.New("pool broken"),
		createErr: errors.New("pool broken"),
		listErr:   errors.New("pool broken"),
		deleteErr: errors.New("pool broken"),
	}
	fallback := &stubStrategy{
		userErr:   errors.New("connection refused"),
		createErr: errors.New("connection refused"),
		listErr:   errors.New("connection refused"),
		deleteErr: errors.New("connection refused"),
	}
	g := newStubGateway(primary, fallback)
	ctx := context.Background()

	if _, err := g.FindUserByEmail(ctx, "a@b.c"); !errors.Is(err, domain.ErrPersistence) {
		t.Errorf("find err = %v, want ErrPersistence", err)
	}
	if err := g.CreateSearchHistory(ctx, &domain.SearchHistory{UserID: 1}); !errors.Is(err, domain.ErrPersistence) {
		t.Errorf("create err = %v, want ErrPersistence", err)
	}
	if _, err := g.ListSearchHistoryByUser(ctx, 1); !errors.Is(err, domain.ErrPersistence) {
		t.Errorf("list err = %v, want ErrPersistence", err)
	}
	if err := g.DeleteSearchHistoryByIDs(ctx, 1, []int64{5}); !errors.Is(err, domain.ErrPersistence) {
		t.Errorf("delete err = %v, want ErrPersistence", err)
	}
}

func TestDeleteCarriesOwnerOnBothPaths(t *testing.T) {
	// The owner predicate must survive the switch to the raw path.
	primary := &stubStrategy{deleteErr: errors.New("pool broken")}
	fallback := &stubStrategy{}
	g := newStubGateway(primary, fallback)

	if err := g.DeleteSearchHistoryByIDs(context.Background(), 42, []int64{5, 6}); err != nil {
		t.Fatalf("DeleteSearchHistoryByIDs: %v", err)
	}
	for _, s := range []*stubStrategy{primary, fallback} {
		if s.lastDeleteUserID != 42 {
			t.Errorf("delete ran without userID=42 predicate (got %d)", s.lastDeleteUserID)
		}
		if len(s.lastDeleteIDs) != 2 {
			t.Errorf("delete ids = %v", s.lastDeleteIDs)
		}
	}
}
