package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/knowhub-ai/knowhub/internal/ai"
	"github.com/knowhub-ai/knowhub/internal/chunker"
	"github.com/knowhub-ai/knowhub/internal/config"
	"github.com/knowhub-ai/knowhub/internal/extract"
	"github.com/knowhub-ai/knowhub/internal/filestore"
	"github.com/knowhub-ai/knowhub/internal/model"
	appErr "github.com/knowhub-ai/knowhub/internal/pkg/errors"
)

const embedTaskDocument = "RETRIEVAL_DOCUMENT"

// DocumentStore is the slice of the document repo the pipeline needs.
type DocumentStore interface {
	Create(ctx context.Context, doc *model.Document) error
	Get(ctx context.Context, docID string) (*model.Document, error)
	GetVisible(ctx context.Context, tenantID, docID string) (*model.Document, error)
	ListByTenant(ctx context.Context, tenantID string) ([]model.Document, error)
	BeginProcessing(ctx context.Context, docID string, chunkSize, overlap int, now int64) error
	MarkFailed(ctx context.Context, docID, reason string) error
	ResetForReprocess(ctx context.Context, docID string) error
	Delete(ctx context.Context, docID string) error
}

// ChunkWriter is the slice of the chunk store used at ingestion time.
type ChunkWriter interface {
	InsertCompleting(ctx context.Context, documentID string, chunks []*model.Chunk) error
	DeleteByDocument(ctx context.Context, documentID string) (int64, error)
	ListByDocument(ctx context.Context, tenantID, documentID string) ([]model.Chunk, error)
}

// IngestService owns the per-document state machine
// PENDING -> PROCESSING -> {COMPLETED, FAILED} and the pipeline behind it:
// extract, chunk, embed, commit.
type IngestService struct {
	docs     DocumentStore
	chunks   ChunkWriter
	files    filestore.Store
	embedder ai.IEmbedder
	cfg      config.IngestConfig
	dim      int

	mu       sync.Mutex
	inflight map[string]struct{}
	wg       sync.WaitGroup
}

func NewIngestService(docs DocumentStore, chunks ChunkWriter, files filestore.Store, embedder ai.IEmbedder, cfg config.IngestConfig, dimension int) *IngestService {
	return &IngestService{
		docs:     docs,
		chunks:   chunks,
		files:    files,
		embedder: embedder,
		cfg:      cfg,
		dim:      dimension,
		inflight: make(map[string]struct{}),
	}
}

// Upload stores the raw file and creates the document in PENDING. Chunk
// parameters are chosen later, when processing is triggered.
func (s *IngestService) Upload(ctx context.Context, tenantID, fileName string, r io.Reader, size int64) (*model.Document, error) {
	if strings.TrimSpace(fileName) == "" {
		return nil, fmt.Errorf("%w: file name is required", appErr.ErrInvalid)
	}
	if size <= 0 || size > s.cfg.MaxFileSizeBytes {
		return nil, fmt.Errorf("%w: file size %d out of range", appErr.ErrInvalid, size)
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	if !s.extensionAllowed(ext) {
		return nil, fmt.Errorf("%w: extension %s", appErr.ErrUnsupportedFormat, ext)
	}
	mimeType := extract.MimeForFile(fileName)
	if mimeType == "" || !extract.Supported(mimeType) {
		return nil, fmt.Errorf("%w: %s", appErr.ErrUnsupportedFormat, fileName)
	}

	doc := &model.Document{
		ID:         newID(),
		FileName:   fileName,
		MimeType:   mimeType,
		FileKey:    newID() + ext,
		TenantID:   tenantID,
		Status:     model.StatusPending,
		UploadedAt: time.Now().UnixMilli(),
	}
	if err := s.files.Save(ctx, doc.FileKey, r, size); err != nil {
		return nil, fmt.Errorf("save raw file: %w", err)
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Info("document uploaded",
		zap.String("doc_id", doc.ID),
		zap.String("file_name", fileName),
		zap.String("tenant_id", tenantID),
		zap.Int64("size", size),
	)
	return doc, nil
}

// Process validates preconditions, claims the document via the PENDING ->
// PROCESSING compare-and-swap, and runs the pipeline in the background. The
// call returns once the attempt is accepted; its outcome lands on the
// document row.
func (s *IngestService) Process(ctx context.Context, docID string, chunkSize, overlap int) error {
	if chunkSize <= 0 {
		chunkSize = s.cfg.DefaultChunkSize
	}
	if overlap < 0 {
		overlap = s.cfg.DefaultOverlap
	}
	if overlap >= chunkSize {
		return fmt.Errorf("%w: overlap %d must be smaller than chunk size %d", appErr.ErrInvalid, overlap, chunkSize)
	}
	doc, err := s.docs.Get(ctx, docID)
	if err != nil {
		return err
	}
	if doc.Status != model.StatusPending {
		return fmt.Errorf("%w: document is %s", appErr.ErrConflict, doc.Status)
	}
	if !s.tryAcquire(docID) {
		return fmt.Errorf("%w: processing already in flight", appErr.ErrConflict)
	}
	if err := s.docs.BeginProcessing(ctx, docID, chunkSize, overlap, time.Now().UnixMilli()); err != nil {
		s.release(docID)
		return err
	}

	runCtx := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.release(docID)
		s.runPipeline(runCtx, doc, chunkSize, overlap)
	}()
	return nil
}

// Reprocess is the only path back out of a terminal state: it deletes the
// existing chunks, resets the document to PENDING, and starts a fresh
// attempt.
func (s *IngestService) Reprocess(ctx context.Context, docID string, chunkSize, overlap int) error {
	doc, err := s.docs.Get(ctx, docID)
	if err != nil {
		return err
	}
	if !doc.Status.Terminal() {
		return fmt.Errorf("%w: document is %s", appErr.ErrConflict, doc.Status)
	}
	if err := s.docs.ResetForReprocess(ctx, docID); err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("document reset for reprocess", zap.String("doc_id", docID))
	return s.Process(ctx, docID, chunkSize, overlap)
}

func (s *IngestService) Status(ctx context.Context, tenantID, docID string) (*model.Document, error) {
	return s.docs.GetVisible(ctx, tenantID, docID)
}

func (s *IngestService) List(ctx context.Context, tenantID string) ([]model.Document, error) {
	return s.docs.ListByTenant(ctx, tenantID)
}

// Chunks returns the stored chunks of a completed document in index order,
// scoped to what the tenant may see.
func (s *IngestService) Chunks(ctx context.Context, tenantID, docID string) ([]model.Chunk, error) {
	if _, err := s.docs.GetVisible(ctx, tenantID, docID); err != nil {
		return nil, err
	}
	return s.chunks.ListByDocument(ctx, tenantID, docID)
}

// Delete removes the document, its chunks (store cascade), and the raw file.
func (s *IngestService) Delete(ctx context.Context, docID string) error {
	doc, err := s.docs.Get(ctx, docID)
	if err != nil {
		return err
	}
	if err := s.docs.Delete(ctx, docID); err != nil {
		return err
	}
	if err := s.files.Delete(ctx, doc.FileKey); err != nil {
		logutil.GetLogger(ctx).Warn("delete raw file failed", zap.String("doc_id", docID), zap.Error(err))
	}
	return nil
}

// Wait blocks until all in-flight pipelines finish; used on shutdown and in
// tests.
func (s *IngestService) Wait() {
	s.wg.Wait()
}

func (s *IngestService) runPipeline(ctx context.Context, doc *model.Document, chunkSize, overlap int) {
	logger := logutil.GetLogger(ctx).With(zap.String("doc_id", doc.ID), zap.String("file_name", doc.FileName))

	text, err := s.extractText(ctx, doc)
	if err != nil {
		logger.Error("extraction failed", zap.Error(err))
		s.fail(ctx, doc.ID, fmt.Sprintf("extraction failed: %v", err))
		return
	}
	if text == "" {
		logger.Warn("no extractable content")
		s.fail(ctx, doc.ID, "no extractable content")
		return
	}

	parts, err := chunker.Split(text, chunkSize, overlap)
	if err != nil {
		s.fail(ctx, doc.ID, err.Error())
		return
	}
	logger.Info("document chunked", zap.Int("chunks", len(parts)), zap.Int("chars", len(text)))

	embeddings, err := s.embedAll(ctx, parts)
	if err != nil {
		// All-or-nothing: one failed embedding discards the whole attempt.
		logger.Error("embedding failed, discarding attempt", zap.Error(err))
		s.fail(ctx, doc.ID, fmt.Sprintf("embedding failed: %v", err))
		return
	}

	now := time.Now().UnixMilli()
	chunks := make([]*model.Chunk, len(parts))
	for i, part := range parts {
		chunks[i] = &model.Chunk{
			ID:         newID(),
			DocumentID: doc.ID,
			TenantID:   doc.TenantID,
			ChunkIndex: i,
			Text:       part,
			Embedding:  embeddings[i],
			CreatedAt:  now,
		}
	}
	if err := s.chunks.InsertCompleting(ctx, doc.ID, chunks); err != nil {
		logger.Error("commit failed", zap.Error(err))
		s.fail(ctx, doc.ID, fmt.Sprintf("commit failed: %v", err))
		return
	}
	logger.Info("document processed", zap.Int("chunks", len(chunks)))
}

func (s *IngestService) extractText(ctx context.Context, doc *model.Document) (string, error) {
	file, err := s.files.Open(ctx, doc.FileKey)
	if err != nil {
		return "", fmt.Errorf("open raw file: %w", err)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("read raw file: %w", err)
	}
	return extract.Extract(data, doc.MimeType)
}

// embedAll embeds every chunk with a bounded level of parallelism. Results
// land at their chunk index so ordering survives the fan-out.
func (s *IngestService) embedAll(ctx context.Context, parts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(parts))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.cfg.EmbedConcurrency)
	for i, part := range parts {
		group.Go(func() error {
			vec, err := s.embedWithRetry(groupCtx, part)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", i, err)
			}
			if len(vec) != s.dim {
				return fmt.Errorf("%w: got %d, want %d", appErr.ErrDimensionMismatch, len(vec), s.dim)
			}
			embeddings[i] = vec
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return embeddings, nil
}

func (s *IngestService) embedWithRetry(ctx context.Context, text string) ([]float32, error) {
	var lastErr error
	for attempt := 0; attempt < s.cfg.EmbedRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<(attempt-1)) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
		vec, err := s.embedder.Embed(ctx, text, embedTaskDocument)
		if err == nil {
			return vec, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %v", appErr.ErrEmbeddingFailed, lastErr)
}

func (s *IngestService) fail(ctx context.Context, docID, reason string) {
	if err := s.docs.MarkFailed(ctx, docID, reason); err != nil {
		logutil.GetLogger(ctx).Error("mark failed", zap.String("doc_id", docID), zap.Error(err))
	}
}

func (s *IngestService) tryAcquire(docID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inflight[docID]; ok {
		return false
	}
	s.inflight[docID] = struct{}{}
	return true
}

func (s *IngestService) release(docID string) {
	s.mu.Lock()
	delete(s.inflight, docID)
	s.mu.Unlock()
}

func (s *IngestService) extensionAllowed(ext string) bool {
	for _, allowed := range s.cfg.AllowedExtensions {
		if strings.EqualFold(allowed, ext) {
			return true
		}
	}
	return false
}
