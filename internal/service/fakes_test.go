package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/knowhub-ai/knowhub/internal/model"
	appErr "github.com/knowhub-ai/knowhub/internal/pkg/errors"
)

var errUpstreamDown = fmt.Errorf("upstream down")

type fakeDocStore struct {
	mu   sync.Mutex
	docs map[string]*model.Document
}

func newFakeDocStore() *fakeDocStore {
	return &fakeDocStore{docs: map[string]*model.Document{}}
}

func (f *fakeDocStore) Create(ctx context.Context, doc *model.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.docs[doc.ID]; ok {
		return appErr.ErrConflict
	}
	cp := *doc
	f.docs[doc.ID] = &cp
	return nil
}

func (f *fakeDocStore) Get(ctx context.Context, docID string) (*model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[docID]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (f *fakeDocStore) GetVisible(ctx context.Context, tenantID, docID string) (*model.Document, error) {
	doc, err := f.Get(ctx, docID)
	if err != nil {
		return nil, err
	}
	if doc.TenantID != "" && doc.TenantID != tenantID {
		return nil, appErr.ErrNotFound
	}
	return doc, nil
}

func (f *fakeDocStore) ListByTenant(ctx context.Context, tenantID string) ([]model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Document
	for _, doc := range f.docs {
		if doc.TenantID == "" || doc.TenantID == tenantID {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (f *fakeDocStore) BeginProcessing(ctx context.Context, docID string, chunkSize, overlap int, now int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[docID]
	if !ok {
		return appErr.ErrNotFound
	}
	if doc.Status != model.StatusPending {
		return appErr.ErrConflict
	}
	doc.Status = model.StatusProcessing
	doc.ChunkSize = chunkSize
	doc.OverlapLength = overlap
	doc.ProcessingAt = now
	doc.FailReason = ""
	return nil
}

func (f *fakeDocStore) MarkFailed(ctx context.Context, docID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[docID]
	if !ok {
		return appErr.ErrNotFound
	}
	if doc.Status != model.StatusProcessing {
		return appErr.ErrConflict
	}
	doc.Status = model.StatusFailed
	doc.FailReason = reason
	return nil
}

func (f *fakeDocStore) ResetForReprocess(ctx context.Context, docID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[docID]
	if !ok {
		return appErr.ErrNotFound
	}
	if !doc.Status.Terminal() {
		return appErr.ErrConflict
	}
	doc.Status = model.StatusPending
	doc.FailReason = ""
	doc.ChunkCount = 0
	return nil
}

func (f *fakeDocStore) Delete(ctx context.Context, docID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.docs[docID]; !ok {
		return appErr.ErrNotFound
	}
	delete(f.docs, docID)
	return nil
}

type fakeChunkWriter struct {
	mu       sync.Mutex
	docs     *fakeDocStore
	chunks   map[string][]*model.Chunk
	insertEr error
}

func newFakeChunkWriter(docs *fakeDocStore) *fakeChunkWriter {
	return &fakeChunkWriter{docs: docs, chunks: map[string][]*model.Chunk{}}
}

func (f *fakeChunkWriter) InsertCompleting(ctx context.Context, documentID string, chunks []*model.Chunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertEr != nil {
		return f.insertEr
	}
	f.docs.mu.Lock()
	defer f.docs.mu.Unlock()
	doc, ok := f.docs.docs[documentID]
	if !ok || doc.Status != model.StatusProcessing {
		return appErr.ErrConflict
	}
	f.chunks[documentID] = chunks
	doc.Status = model.StatusCompleted
	doc.ChunkCount = len(chunks)
	return nil
}

func (f *fakeChunkWriter) DeleteByDocument(ctx context.Context, documentID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := int64(len(f.chunks[documentID]))
	delete(f.chunks, documentID)
	return n, nil
}

func (f *fakeChunkWriter) ListByDocument(ctx context.Context, tenantID, documentID string) ([]model.Chunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Chunk
	for _, chunk := range f.chunks[documentID] {
		if chunk.TenantID == "" || chunk.TenantID == tenantID {
			out = append(out, *chunk)
		}
	}
	return out, nil
}

type fakeSearcher struct {
	results []model.ScoredChunk
	err     error
	calls   int
}

func (f *fakeSearcher) Nearest(ctx context.Context, tenantID string, vec []float32, k int) ([]model.ScoredChunk, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if k < len(f.results) {
		return f.results[:k], nil
	}
	return f.results, nil
}

type fakeEmbedder struct {
	mu    sync.Mutex
	dim   int
	calls int
	// failFirst makes the first failFirst calls error before recovering.
	failFirst int
	err       error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.calls <= f.failFirst {
		return nil, fmt.Errorf("transient upstream error")
	}
	vec := make([]float32, f.dim)
	for i := range vec {
		vec[i] = float32(len(text) % 7)
	}
	return vec, nil
}

func (f *fakeEmbedder) ModelName() string { return "fake-embed" }

type fakeGenerator struct {
	mu        sync.Mutex
	answer    string
	deltas    []string
	calls     int
	failN     int
	err       error
	sawPrompt string
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.sawPrompt = prompt
	if f.err != nil {
		return "", f.err
	}
	if f.calls <= f.failN {
		return "", fmt.Errorf("model overloaded")
	}
	return f.answer, nil
}

func (f *fakeGenerator) GenerateStream(ctx context.Context, prompt string, emit func(delta string) error) error {
	f.mu.Lock()
	f.calls++
	f.sawPrompt = prompt
	failing := f.err != nil || f.calls <= f.failN
	deltas := f.deltas
	f.mu.Unlock()
	if failing {
		if f.err != nil {
			return f.err
		}
		return fmt.Errorf("model overloaded")
	}
	if len(deltas) == 0 {
		deltas = []string{f.answer}
	}
	for _, d := range deltas {
		if err := emit(d); err != nil {
			return err
		}
	}
	return nil
}

type fakeFileStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newFakeFileStore() *fakeFileStore {
	return &fakeFileStore{files: map[string][]byte{}}
}

func (f *fakeFileStore) Save(ctx context.Context, key string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.files[key] = data
	f.mu.Unlock()
	return nil
}

func (f *fakeFileStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	data, ok := f.files[key]
	f.mu.Unlock()
	if !ok {
		return nil, appErr.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeFileStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	delete(f.files, key)
	f.mu.Unlock()
	return nil
}

type fakeFeedbackStore struct {
	mu      sync.Mutex
	records []model.FeedbackRecord
	err     error
}

func (f *fakeFeedbackStore) Create(ctx context.Context, record *model.FeedbackRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, *record)
	return nil
}

func (f *fakeFeedbackStore) ListByTenant(ctx context.Context, tenantID string, verdict model.Verdict, limit, offset int) ([]model.FeedbackRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.FeedbackRecord
	for _, record := range f.records {
		if record.TenantID != tenantID {
			continue
		}
		if verdict != "" && record.Verdict != verdict {
			continue
		}
		out = append(out, record)
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeFeedbackStore) StatsByTenant(ctx context.Context, tenantID string) (*model.FeedbackStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := &model.FeedbackStats{}
	for _, record := range f.records {
		if record.TenantID != tenantID {
			continue
		}
		stats.Total++
		switch record.Verdict {
		case model.VerdictPositive:
			stats.Positive++
		case model.VerdictNegative:
			stats.Negative++
		}
	}
	return stats, nil
}
