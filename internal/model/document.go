package model

type DocumentStatus string

const (
	StatusPending    DocumentStatus = "PENDING"
	StatusProcessing DocumentStatus = "PROCESSING"
	StatusCompleted  DocumentStatus = "COMPLETED"
	StatusFailed     DocumentStatus = "FAILED"
)

// Document is one uploaded knowledge file. TenantID is empty for shared
// documents, which are visible to every tenant.
type Document struct {
	ID            string         `json:"id"`
	FileName      string         `json:"file_name"`
	MimeType      string         `json:"mime_type"`
	FileKey       string         `json:"file_key"`
	TenantID      string         `json:"tenant_id,omitempty"`
	Status        DocumentStatus `json:"status"`
	FailReason    string         `json:"fail_reason,omitempty"`
	ChunkSize     int            `json:"chunk_size"`
	OverlapLength int            `json:"overlap_length"`
	ChunkCount    int            `json:"chunk_count"`
	UploadedAt    int64          `json:"uploaded_at"`
	ProcessingAt  int64          `json:"processing_at,omitempty"`
}

func (s DocumentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}
