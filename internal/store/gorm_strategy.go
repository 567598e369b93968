package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"geodash/internal/domain"
)

// gormStrategy is the primary path: structured access over the shared pool.
type gormStrategy struct {
	db *gorm.DB
}

func (s *gormStrategy) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	if err := s.db.WithContext(ctx).First(&u, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *gormStrategy) UpsertUser(ctx context.Context, email, passwordHash string) (*domain.User, bool, error) {
	db := s.db.WithContext(ctx)
	now := time.Now().UTC()

	var u domain.User
	err := db.First(&u, "email = ?", email).Error
	switch {
	case err == nil:
		u.PasswordHash = passwordHash
		u.UpdatedAt = now
		if err := db.Model(&u).Updates(map[string]interface{}{
			"password_hash": passwordHash,
			"updated_at":    now,
		}).Error; err != nil {
			return nil, false, err
		}
		return &u, false, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		u = domain.User{
			Email:        email,
			PasswordHash: passwordHash,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := db.Create(&u).Error; err != nil {
			return nil, false, err
		}
		return &u, true, nil
	default:
		return nil, false, err
	}
}

func (s *gormStrategy) CreateSearchHistory(ctx context.Context, rec *domain.SearchHistory) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Create(rec).Error
}

func (s *gormStrategy) ListSearchHistoryByUser(ctx context.Context, userID int64) ([]domain.SearchHistory, error) {
	var recs []domain.SearchHistory
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return recs, nil
}

func (s *gormStrategy) DeleteSearchHistoryByIDs(ctx context.Context, userID int64, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	// The owner predicate rides along on the delete itself; rows belonging to
	// other users are simply not matched.
	return s.db.WithContext(ctx).
		Where("id IN ? AND user_id = ?", ids, userID).
		Delete(&domain.SearchHistory{}).Error
}
