package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/knowhub-ai/knowhub/internal/model"
	"github.com/knowhub-ai/knowhub/internal/pkg/dbutil"
	appErr "github.com/knowhub-ai/knowhub/internal/pkg/errors"
)

const documentFields = "id, file_name, mime_type, file_key, tenant_id, status, fail_reason, chunk_size, overlap_length, chunk_count, uploaded_at, processing_at"

type DocumentRepo struct {
	db *sql.DB
}

func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

func (r *DocumentRepo) Create(ctx context.Context, doc *model.Document) error {
	data := map[string]interface{}{
		"id":             doc.ID,
		"file_name":      doc.FileName,
		"mime_type":      doc.MimeType,
		"file_key":       doc.FileKey,
		"tenant_id":      nullableStr(doc.TenantID),
		"status":         string(doc.Status),
		"fail_reason":    doc.FailReason,
		"chunk_size":     doc.ChunkSize,
		"overlap_length": doc.OverlapLength,
		"chunk_count":    doc.ChunkCount,
		"uploaded_at":    doc.UploadedAt,
		"processing_at":  doc.ProcessingAt,
	}
	sqlStr, args, err := builder.BuildInsert("knowledge_documents", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *DocumentRepo) Get(ctx context.Context, docID string) (*model.Document, error) {
	const query = `SELECT ` + documentFields + ` FROM knowledge_documents WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, docID)
	return scanDocument(row)
}

// GetVisible returns the document only when it is owned by tenantID or
// shared. Handlers use it so one tenant cannot probe another's documents.
func (r *DocumentRepo) GetVisible(ctx context.Context, tenantID, docID string) (*model.Document, error) {
	const query = `SELECT ` + documentFields + ` FROM knowledge_documents WHERE id = $1 AND (tenant_id = $2 OR tenant_id IS NULL)`
	row := r.db.QueryRowContext(ctx, query, docID, tenantID)
	return scanDocument(row)
}

func (r *DocumentRepo) ListByTenant(ctx context.Context, tenantID string) ([]model.Document, error) {
	const query = `
		SELECT ` + documentFields + `
		FROM knowledge_documents
		WHERE tenant_id = $1 OR tenant_id IS NULL
		ORDER BY uploaded_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var docs []model.Document
	for rows.Next() {
		doc, err := scanDocumentRows(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

// BeginProcessing moves PENDING -> PROCESSING and records the chunk
// parameters for this attempt. The status predicate makes the transition a
// compare-and-swap: a second concurrent attempt sees zero rows affected.
func (r *DocumentRepo) BeginProcessing(ctx context.Context, docID string, chunkSize, overlap int, now int64) error {
	const query = `
		UPDATE knowledge_documents
		SET status = $1, chunk_size = $2, overlap_length = $3, processing_at = $4, fail_reason = ''
		WHERE id = $5 AND status = $6
	`
	result, err := r.db.ExecContext(ctx, query,
		string(model.StatusProcessing), chunkSize, overlap, now,
		docID, string(model.StatusPending),
	)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// MarkFailed moves PROCESSING -> FAILED with a reason. It is a no-op when the
// document already left PROCESSING.
func (r *DocumentRepo) MarkFailed(ctx context.Context, docID, reason string) error {
	const query = `
		UPDATE knowledge_documents
		SET status = $1, fail_reason = $2
		WHERE id = $3 AND status = $4
	`
	result, err := r.db.ExecContext(ctx, query,
		string(model.StatusFailed), reason,
		docID, string(model.StatusProcessing),
	)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// ResetForReprocess deletes all chunks of a terminal document and returns it
// to PENDING in one transaction, so a re-run can never leave stale chunks
// behind the contiguity invariant.
func (r *DocumentRepo) ResetForReprocess(ctx context.Context, docID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, docID); err != nil {
		return err
	}
	const query = `
		UPDATE knowledge_documents
		SET status = $1, chunk_count = 0, fail_reason = '', processing_at = 0
		WHERE id = $2 AND status IN ($3, $4)
	`
	result, err := tx.ExecContext(ctx, query,
		string(model.StatusPending), docID,
		string(model.StatusCompleted), string(model.StatusFailed),
	)
	if err != nil {
		return err
	}
	if err := requireAffected(result); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes the document and, through the foreign key cascade, every
// chunk it owns.
func (r *DocumentRepo) Delete(ctx context.Context, docID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM knowledge_documents WHERE id = $1`, docID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

// FailStuck fails every document whose PROCESSING lease started before
// cutoff. Used by the reaper after a crash mid-pipeline.
func (r *DocumentRepo) FailStuck(ctx context.Context, cutoff int64, reason string) (int64, error) {
	const query = `
		UPDATE knowledge_documents
		SET status = $1, fail_reason = $2
		WHERE status = $3 AND processing_at > 0 AND processing_at < $4
	`
	result, err := r.db.ExecContext(ctx, query,
		string(model.StatusFailed), reason,
		string(model.StatusProcessing), cutoff,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrConflict
	}
	return nil
}

func nullableStr(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row *sql.Row) (*model.Document, error) {
	doc, err := scanDocumentRows(row)
	if err == sql.ErrNoRows {
		return nil, appErr.ErrNotFound
	}
	return doc, err
}

func scanDocumentRows(row rowScanner) (*model.Document, error) {
	var doc model.Document
	var tenant sql.NullString
	var status string
	if err := row.Scan(
		&doc.ID, &doc.FileName, &doc.MimeType, &doc.FileKey, &tenant, &status,
		&doc.FailReason, &doc.ChunkSize, &doc.OverlapLength, &doc.ChunkCount,
		&doc.UploadedAt, &doc.ProcessingAt,
	); err != nil {
		return nil, err
	}
	doc.TenantID = tenant.String
	doc.Status = model.DocumentStatus(status)
	return &doc, nil
}
