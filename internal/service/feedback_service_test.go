package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/knowhub-ai/knowhub/internal/model"
	appErr "github.com/knowhub-ai/knowhub/internal/pkg/errors"
)

func TestFeedbackRecord(t *testing.T) {
	store := &fakeFeedbackStore{}
	svc := NewFeedbackService(store)

	record, err := svc.Record(context.Background(), "user1", "acme", "q?", "a.", model.VerdictPositive)
	require.NoError(t, err)
	require.NotEmpty(t, record.ID)
	require.Equal(t, model.VerdictPositive, record.Verdict)
	require.Len(t, store.records, 1)
}

func TestFeedbackRecordValidation(t *testing.T) {
	svc := NewFeedbackService(&fakeFeedbackStore{})
	ctx := context.Background()

	_, err := svc.Record(ctx, "user1", "acme", "", "a.", model.VerdictPositive)
	require.ErrorIs(t, err, appErr.ErrInvalid)

	_, err = svc.Record(ctx, "user1", "acme", "q?", "  ", model.VerdictNegative)
	require.ErrorIs(t, err, appErr.ErrInvalid)

	_, err = svc.Record(ctx, "user1", "acme", "q?", "a.", model.Verdict("MEH"))
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestFeedbackListFiltersVerdict(t *testing.T) {
	store := &fakeFeedbackStore{}
	svc := NewFeedbackService(store)
	ctx := context.Background()

	_, err := svc.Record(ctx, "u1", "acme", "q1?", "a1", model.VerdictPositive)
	require.NoError(t, err)
	_, err = svc.Record(ctx, "u2", "acme", "q2?", "a2", model.VerdictNegative)
	require.NoError(t, err)
	_, err = svc.Record(ctx, "u3", "globex", "q3?", "a3", model.VerdictPositive)
	require.NoError(t, err)

	all, err := svc.List(ctx, "acme", "", 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)

	neg, err := svc.List(ctx, "acme", model.VerdictNegative, 0, 0)
	require.NoError(t, err)
	require.Len(t, neg, 1)
	require.Equal(t, "q2?", neg[0].Question)

	_, err = svc.List(ctx, "acme", model.Verdict("MEH"), 0, 0)
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestFeedbackStats(t *testing.T) {
	store := &fakeFeedbackStore{}
	svc := NewFeedbackService(store)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Record(ctx, "u", "acme", "q?", "a", model.VerdictPositive)
		require.NoError(t, err)
	}
	_, err := svc.Record(ctx, "u", "acme", "q?", "a", model.VerdictNegative)
	require.NoError(t, err)

	stats, err := svc.Stats(ctx, "acme")
	require.NoError(t, err)
	require.Equal(t, int64(4), stats.Total)
	require.Equal(t, int64(3), stats.Positive)
	require.Equal(t, int64(1), stats.Negative)
}
