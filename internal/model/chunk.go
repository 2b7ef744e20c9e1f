package model

// Chunk is one overlapping text segment of a document, carrying exactly one
// embedding vector. TenantID is copied from the owning document at commit
// time; empty means shared.
type Chunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	TenantID   string    `json:"tenant_id,omitempty"`
	ChunkIndex int       `json:"chunk_index"`
	Text       string    `json:"text"`
	Embedding  []float32 `json:"-"`
	CreatedAt  int64     `json:"created_at"`
}

// ScoredChunk is a retrieval hit; lower distance ranks first.
type ScoredChunk struct {
	Chunk
	Distance float64 `json:"distance"`
}
