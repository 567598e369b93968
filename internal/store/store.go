// Package store is the persistence gateway. Every operation runs against a
// structured primary path (gorm over a shared connection pool) and, when that
// path fails, is re-executed over a raw fallback path that dials a fresh
// connection, runs a hand-written parameterized query, and releases the
// connection before returning. The fallback exists to survive failure of the
// data-access abstraction itself, not to mask transient faults; a "not found"
// result from the primary is a result, never a reason to fall back.
package store

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"geodash/internal/domain"
	"geodash/internal/observability/metrics"
)

// strategy is one complete execution path for the gateway's operations.
type strategy interface {
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	UpsertUser(ctx context.Context, email, passwordHash string) (*domain.User, bool, error)
	CreateSearchHistory(ctx context.Context, rec *domain.SearchHistory) error
	ListSearchHistoryByUser(ctx context.Context, userID int64) ([]domain.SearchHistory, error)
	DeleteSearchHistoryByIDs(ctx context.Context, userID int64, ids []int64) error
}

type Gateway struct {
	primary  strategy
	fallback strategy
	logger   *slog.Logger
}

// NewGateway wires the production gateway: gorm primary over db, pgx raw
// fallback dialing dsn per operation.
func NewGateway(db *gorm.DB, dsn string, lg *slog.Logger) *Gateway {
	return &Gateway{
		primary:  &gormStrategy{db: db},
		fallback: &pgxStrategy{dsn: dsn},
		logger:   lg,
	}
}

// Open opens the shared primary pool.
func Open(dsn string, logSQL bool) (*gorm.DB, error) {
	lvl := logger.Silent
	if logSQL {
		lvl = logger.Info
	}
	return gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.New(log.New(log.Writer(), "", log.LstdFlags), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  lvl,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		}),
	})
}

// AutoMigrate creates or updates the schema both strategies target.
func AutoMigrate(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).AutoMigrate(&domain.User{}, &domain.SearchHistory{})
}

// Close releases the shared primary pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// pathFailed reports whether err means the execution path itself broke.
// domain.ErrNotFound is a legitimate outcome and must not trigger fallback.
func pathFailed(err error) bool {
	return err != nil && !errors.Is(err, domain.ErrNotFound)
}

func (g *Gateway) fellBack(op string, primaryErr, fallbackErr error) {
	result := "success"
	if pathFailed(fallbackErr) {
		result = "failure"
	}
	metrics.PersistenceFallbackTotal.WithLabelValues(op, result).Inc()
	if result == "failure" {
		g.logger.Error("both persistence paths failed",
			"operation", op,
			"primary_error", primaryErr,
			"fallback_error", fallbackErr,
		)
		return
	}
	g.logger.Warn("primary persistence path failed, raw fallback served the operation",
		"operation", op,
		"primary_error", primaryErr,
	)
}

func (g *Gateway) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := g.primary.FindUserByEmail(ctx, email)
	if !pathFailed(err) {
		return u, err
	}
	fu, ferr := g.fallback.FindUserByEmail(ctx, email)
	g.fellBack("find_user_by_email", err, ferr)
	if pathFailed(ferr) {
		return nil, domain.ErrPersistence
	}
	return fu, ferr
}

func (g *Gateway) UpsertUser(ctx context.Context, email, passwordHash string) (*domain.User, bool, error) {
	u, created, err := g.primary.UpsertUser(ctx, email, passwordHash)
	if !pathFailed(err) {
		return u, created, err
	}
	fu, fcreated, ferr := g.fallback.UpsertUser(ctx, email, passwordHash)
	g.fellBack("upsert_user", err, ferr)
	if pathFailed(ferr) {
		return nil, false, domain.ErrPersistence
	}
	return fu, fcreated, ferr
}

func (g *Gateway) CreateSearchHistory(ctx context.Context, rec *domain.SearchHistory) error {
	err := g.primary.CreateSearchHistory(ctx, rec)
	if !pathFailed(err) {
		return err
	}
	ferr := g.fallback.CreateSearchHistory(ctx, rec)
	g.fellBack("create_search_history", err, ferr)
	if pathFailed(ferr) {
		return domain.ErrPersistence
	}
	return ferr
}

func (g *Gateway) ListSearchHistoryByUser(ctx context.Context, userID int64) ([]domain.SearchHistory, error) {
	recs, err := g.primary.ListSearchHistoryByUser(ctx, userID)
	if !pathFailed(err) {
		return recs, err
	}
	frecs, ferr := g.fallback.ListSearchHistoryByUser(ctx, userID)
	g.fellBack("list_search_history", err, ferr)
	if pathFailed(ferr) {
		return nil, domain.ErrPersistence
	}
	return frecs, ferr
}

func (g *Gateway) DeleteSearchHistoryByIDs(ctx context.Context, userID int64, ids []int64) error {
	err := g.primary.DeleteSearchHistoryByIDs(ctx, userID, ids)
	if !pathFailed(err) {
		return err
	}
	ferr := g.fallback.DeleteSearchHistoryByIDs(ctx, userID, ids)
	g.fellBack("delete_search_history", err, ferr)
	if pathFailed(ferr) {
		return domain.ErrPersistence
	}
	return ferr
}
