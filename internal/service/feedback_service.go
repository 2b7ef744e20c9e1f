package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/knowhub-ai/knowhub/internal/model"
	appErr "github.com/knowhub-ai/knowhub/internal/pkg/errors"
)

type FeedbackStore interface {
	Create(ctx context.Context, record *model.FeedbackRecord) error
	ListByTenant(ctx context.Context, tenantID string, verdict model.Verdict, limit, offset int) ([]model.FeedbackRecord, error)
	StatsByTenant(ctx context.Context, tenantID string) (*model.FeedbackStats, error)
}

type FeedbackService struct {
	store FeedbackStore
}

func NewFeedbackService(store FeedbackStore) *FeedbackService {
	return &FeedbackService{store: store}
}

// Record stores a user's verdict on an answer. Recording never blocks
// answering; a failure here is the caller's to report, not to retry.
func (s *FeedbackService) Record(ctx context.Context, userID, tenantID, question, answer string, verdict model.Verdict) (*model.FeedbackRecord, error) {
	if strings.TrimSpace(question) == "" || strings.TrimSpace(answer) == "" {
		return nil, fmt.Errorf("%w: question and answer are required", appErr.ErrInvalid)
	}
	if verdict != model.VerdictPositive && verdict != model.VerdictNegative {
		return nil, fmt.Errorf("%w: unknown verdict %q", appErr.ErrInvalid, verdict)
	}
	record := &model.FeedbackRecord{
		ID:        newID(),
		UserID:    userID,
		TenantID:  tenantID,
		Question:  question,
		Answer:    answer,
		Verdict:   verdict,
		CreatedAt: time.Now().UnixMilli(),
	}
	if err := s.store.Create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *FeedbackService) List(ctx context.Context, tenantID string, verdict model.Verdict, limit, offset int) ([]model.FeedbackRecord, error) {
	if verdict != "" && verdict != model.VerdictPositive && verdict != model.VerdictNegative {
		return nil, fmt.Errorf("%w: unknown verdict %q", appErr.ErrInvalid, verdict)
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListByTenant(ctx, tenantID, verdict, limit, offset)
}

func (s *FeedbackService) Stats(ctx context.Context, tenantID string) (*model.FeedbackStats, error) {
	return s.store.StatsByTenant(ctx, tenantID)
}
