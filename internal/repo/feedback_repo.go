package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/knowhub-ai/knowhub/internal/model"
	"github.com/knowhub-ai/knowhub/internal/pkg/dbutil"
)

type FeedbackRepo struct {
	db *sql.DB
}

func NewFeedbackRepo(db *sql.DB) *FeedbackRepo {
	return &FeedbackRepo{db: db}
}

func (r *FeedbackRepo) Create(ctx context.Context, record *model.FeedbackRecord) error {
	data := map[string]interface{}{
		"id":         record.ID,
		"user_id":    nullableStr(record.UserID),
		"tenant_id":  nullableStr(record.TenantID),
		"question":   record.Question,
		"answer":     record.Answer,
		"verdict":    string(record.Verdict),
		"created_at": record.CreatedAt,
	}
	sqlStr, args, err := builder.BuildInsert("feedback_logs", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *FeedbackRepo) ListByTenant(ctx context.Context, tenantID string, verdict model.Verdict, limit, offset int) ([]model.FeedbackRecord, error) {
	where := map[string]interface{}{
		"tenant_id": tenantID,
		"_orderby":  "created_at desc",
		"_limit":    []uint{uint(offset), uint(limit)},
	}
	if verdict != "" {
		where["verdict"] = string(verdict)
	}
	sqlStr, args, err := builder.BuildSelect("feedback_logs",
		where, []string{"id", "user_id", "tenant_id", "question", "answer", "verdict", "created_at"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []model.FeedbackRecord
	for rows.Next() {
		var record model.FeedbackRecord
		var userID, tenant sql.NullString
		var verdictStr string
		if err := rows.Scan(&record.ID, &userID, &tenant, &record.Question, &record.Answer, &verdictStr, &record.CreatedAt); err != nil {
			return nil, err
		}
		record.UserID = userID.String
		record.TenantID = tenant.String
		record.Verdict = model.Verdict(verdictStr)
		records = append(records, record)
	}
	return records, rows.Err()
}

func (r *FeedbackRepo) StatsByTenant(ctx context.Context, tenantID string) (*model.FeedbackStats, error) {
	const query = `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE verdict = $1),
		       COUNT(*) FILTER (WHERE verdict = $2)
		FROM feedback_logs
		WHERE tenant_id = $3
	`
	row := r.db.QueryRowContext(ctx, query, string(model.VerdictPositive), string(model.VerdictNegative), tenantID)
	var stats model.FeedbackStats
	if err := row.Scan(&stats.Total, &stats.Positive, &stats.Negative); err != nil {
		return nil, err
	}
	return &stats, nil
}
