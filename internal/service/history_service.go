package service

import (
	"context"

	"geodash/internal/domain"
)

type historyGateway interface {
	CreateSearchHistory(ctx context.Context, rec *domain.SearchHistory) error
	ListSearchHistoryByUser(ctx context.Context, userID int64) ([]domain.SearchHistory, error)
	DeleteSearchHistoryByIDs(ctx context.Context, userID int64, ids []int64) error
}

// HistoryService owns the caller-scoping invariant: every operation stamps or
// filters by the authenticated user's id, so the transport layer can never
// reach another user's rows whatever ids the client sends.
type HistoryService struct {
	gateway historyGateway
}

func NewHistoryService(gateway historyGateway) *HistoryService {
	return &HistoryService{gateway: gateway}
}

func (s *HistoryService) List(ctx context.Context, userID int64) ([]domain.SearchHistory, error) {
	return s.gateway.ListSearchHistoryByUser(ctx, userID)
}

// Create persists rec for userID. Any owner the client smuggled into the
// payload is overwritten.
func (s *HistoryService) Create(ctx context.Context, userID int64, rec *domain.SearchHistory) (*domain.SearchHistory, error) {
	rec.ID = 0
	rec.UserID = userID
	if err := s.gateway.CreateSearchHistory(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Delete removes the caller's records among ids. Ids owned by other users are
// silently left intact; that is success, not an error.
func (s *HistoryService) Delete(ctx context.Context, userID int64, ids []int64) error {
	return s.gateway.DeleteSearchHistoryByIDs(ctx, userID, ids)
}
