package model

type Verdict string

const (
	VerdictPositive Verdict = "POSITIVE"
	VerdictNegative Verdict = "NEGATIVE"
)

// FeedbackRecord is append-only; rows are never updated or deleted.
type FeedbackRecord struct {
	ID        string  `json:"id"`
	UserID    string  `json:"user_id,omitempty"`
	TenantID  string  `json:"tenant_id,omitempty"`
	Question  string  `json:"question"`
	Answer    string  `json:"answer"`
	Verdict   Verdict `json:"verdict"`
	CreatedAt int64   `json:"created_at"`
}

type FeedbackStats struct {
	Total    int64 `json:"total"`
	Positive int64 `json:"positive"`
	Negative int64 `json:"negative"`
}
