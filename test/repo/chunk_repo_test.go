package repo_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/knowhub-ai/knowhub/internal/model"
	"github.com/knowhub-ai/knowhub/internal/repo"
	"github.com/knowhub-ai/knowhub/test/testutil"
)

// vec768 builds a unit-axis embedding whose distance to the zero vector is
// exactly first, so test rankings are easy to reason about.
func vec768(first float32) []float32 {
	v := make([]float32, 768)
	v[0] = first
	return v
}

func seedDocument(t *testing.T, db *sql.DB, docID, tenantID string, chunks []*model.Chunk) {
	t.Helper()
	docs := repo.NewDocumentRepo(db)
	now := time.Now().Unix()
	require.NoError(t, docs.Create(context.Background(), &model.Document{
		ID:         docID,
		FileName:   docID + ".txt",
		MimeType:   "text/plain",
		FileKey:    "files/" + docID,
		TenantID:   tenantID,
		Status:     model.StatusPending,
		UploadedAt: now,
	}))
	require.NoError(t, docs.BeginProcessing(context.Background(), docID, 1000, 200, now))
	require.NoError(t, repo.NewChunkRepo(db).InsertCompleting(context.Background(), docID, chunks))
}

func chunk(id, docID, tenantID string, index int, first float32) *model.Chunk {
	return &model.Chunk{
		ID:         id,
		DocumentID: docID,
		TenantID:   tenantID,
		ChunkIndex: index,
		Text:       "text of " + id,
		Embedding:  vec768(first),
		CreatedAt:  time.Now().Unix(),
	}
}

func TestChunkRepoNearestTenantIsolation(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	testutil.ResetTables(t, db)

	seedDocument(t, db, "doc-acme", "acme", []*model.Chunk{
		chunk("ck-acme-0", "doc-acme", "acme", 0, 0.1),
		chunk("ck-acme-1", "doc-acme", "acme", 1, 0.5),
	})
	seedDocument(t, db, "doc-globex", "globex", []*model.Chunk{
		chunk("ck-globex-0", "doc-globex", "globex", 0, 0.05),
	})
	seedDocument(t, db, "doc-shared", "", []*model.Chunk{
		chunk("ck-shared-0", "doc-shared", "", 0, 0.2),
	})

	chunks := repo.NewChunkRepo(db)
	query := vec768(0)

	// acme sees its own chunks plus the shared one, ranked by distance.
	// globex's chunk is the closest row in the table and must not leak in.
	results, err := chunks.Nearest(context.Background(), "acme", query, 10)
	require.NoError(t, err)
	ids := make([]string, 0, len(results))
	for _, item := range results {
		ids = append(ids, item.ID)
	}
	require.Equal(t, []string{"ck-acme-0", "ck-shared-0", "ck-acme-1"}, ids)

	results, err = chunks.Nearest(context.Background(), "globex", query, 10)
	require.NoError(t, err)
	ids = ids[:0]
	for _, item := range results {
		ids = append(ids, item.ID)
	}
	require.Equal(t, []string{"ck-globex-0", "ck-shared-0"}, ids)

	// the shared chunk comes back with an empty tenant.
	require.Equal(t, "", results[1].TenantID)
}

func TestChunkRepoNearestTieBreakBySeq(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	testutil.ResetTables(t, db)

	// Two chunks with identical embeddings: the one inserted first wins the
	// tie, and the ranking does not wobble across calls.
	seedDocument(t, db, "doc-tie", "acme", []*model.Chunk{
		chunk("ck-tie-0", "doc-tie", "acme", 0, 0.3),
		chunk("ck-tie-1", "doc-tie", "acme", 1, 0.3),
	})

	chunks := repo.NewChunkRepo(db)
	for i := 0; i < 3; i++ {
		results, err := chunks.Nearest(context.Background(), "acme", vec768(0), 10)
		require.NoError(t, err)
		require.Len(t, results, 2)
		require.Equal(t, "ck-tie-0", results[0].ID)
		require.Equal(t, "ck-tie-1", results[1].ID)
		require.InDelta(t, results[0].Distance, results[1].Distance, 1e-9)
	}
}
