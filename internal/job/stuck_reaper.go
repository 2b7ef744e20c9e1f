package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type stuckFailer interface {
	FailStuck(ctx context.Context, cutoff int64, reason string) (int64, error)
}

// StuckProcessingReaper fails documents that have sat in PROCESSING longer
// than the lease. A crashed worker leaves its document claimed forever;
// failing it makes the document eligible for reprocessing again.
type StuckProcessingReaper struct {
	docs  stuckFailer
	lease time.Duration
}

func NewStuckProcessingReaper(docs stuckFailer, lease time.Duration) *StuckProcessingReaper {
	return &StuckProcessingReaper{docs: docs, lease: lease}
}

func (j *StuckProcessingReaper) Name() string {
	return "stuck_processing_reaper"
}

func (j *StuckProcessingReaper) Run(ctx context.Context) error {
	if j.docs == nil || j.lease <= 0 {
		return nil
	}
	cutoff := time.Now().Add(-j.lease).UnixMilli()
	n, err := j.docs.FailStuck(ctx, cutoff, "processing lease expired")
	if err != nil {
		return err
	}
	if n > 0 {
		logutil.GetLogger(ctx).Warn("reaped stuck documents", zap.Int64("count", n))
	}
	return nil
}
