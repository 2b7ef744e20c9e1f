package repo

import (
	"context"
	"database/sql"

	"github.com/pgvector/pgvector-go"

	"github.com/knowhub-ai/knowhub/internal/model"
)

// ChunkRepo owns the vector side of the store. Every query that can return
// chunk rows takes a tenant argument; there is deliberately no unfiltered
// variant.
type ChunkRepo struct {
	db *sql.DB
}

func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// InsertCompleting persists the full chunk set and flips the document from
// PROCESSING to COMPLETED in one transaction. Readers either see the document
// COMPLETED with all its chunks, or still PROCESSING with none.
func (r *ChunkRepo) InsertCompleting(ctx context.Context, documentID string, chunks []*model.Chunk) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const insert = `
		INSERT INTO document_chunks (id, document_id, tenant_id, chunk_index, chunk_text, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, chunk := range chunks {
		if _, err := stmt.ExecContext(ctx,
			chunk.ID, chunk.DocumentID, nullableStr(chunk.TenantID),
			chunk.ChunkIndex, chunk.Text, pgvector.NewVector(chunk.Embedding), chunk.CreatedAt,
		); err != nil {
			return err
		}
	}

	const complete = `
		UPDATE knowledge_documents
		SET status = $1, chunk_count = $2
		WHERE id = $3 AND status = $4
	`
	result, err := tx.ExecContext(ctx, complete,
		string(model.StatusCompleted), len(chunks),
		documentID, string(model.StatusProcessing),
	)
	if err != nil {
		return err
	}
	if err := requireAffected(result); err != nil {
		return err
	}
	return tx.Commit()
}

// Nearest returns the k chunks closest to vec under euclidean distance,
// restricted to chunks owned by tenantID or shared (NULL tenant). Ties are
// broken by insertion order (seq), which follows document creation order and
// chunk index, so repeated calls rank identically.
func (r *ChunkRepo) Nearest(ctx context.Context, tenantID string, vec []float32, k int) ([]model.ScoredChunk, error) {
	const query = `
		SELECT id, document_id, tenant_id, chunk_index, chunk_text, created_at,
		       embedding <-> $1 AS distance
		FROM document_chunks
		WHERE tenant_id = $2 OR tenant_id IS NULL
		ORDER BY embedding <-> $1, seq
		LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, query, pgvector.NewVector(vec), tenantID, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []model.ScoredChunk
	for rows.Next() {
		var item model.ScoredChunk
		var tenant sql.NullString
		if err := rows.Scan(
			&item.Chunk.ID, &item.Chunk.DocumentID, &tenant, &item.Chunk.ChunkIndex,
			&item.Chunk.Text, &item.Chunk.CreatedAt, &item.Distance,
		); err != nil {
			return nil, err
		}
		item.Chunk.TenantID = tenant.String
		results = append(results, item)
	}
	return results, rows.Err()
}

func (r *ChunkRepo) DeleteByDocument(ctx context.Context, documentID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ListByDocument returns a document's chunks in index order, without
// embeddings. Admin dashboards use it to inspect what retrieval sees.
func (r *ChunkRepo) ListByDocument(ctx context.Context, tenantID, documentID string) ([]model.Chunk, error) {
	const query = `
		SELECT id, document_id, tenant_id, chunk_index, chunk_text, created_at
		FROM document_chunks
		WHERE document_id = $1 AND (tenant_id = $2 OR tenant_id IS NULL)
		ORDER BY chunk_index
	`
	rows, err := r.db.QueryContext(ctx, query, documentID, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var chunks []model.Chunk
	for rows.Next() {
		var chunk model.Chunk
		var tenant sql.NullString
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &tenant, &chunk.ChunkIndex, &chunk.Text, &chunk.CreatedAt); err != nil {
			return nil, err
		}
		chunk.TenantID = tenant.String
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}
