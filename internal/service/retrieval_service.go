package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/knowhub-ai/knowhub/internal/ai"
	"github.com/knowhub-ai/knowhub/internal/config"
	"github.com/knowhub-ai/knowhub/internal/model"
	appErr "github.com/knowhub-ai/knowhub/internal/pkg/errors"
)

const embedTaskQuery = "RETRIEVAL_QUERY"

// NoContextSentinel is the context string handed to answer synthesis when
// retrieval returns nothing usable. The synthesizer short-circuits on it
// instead of asking the model.
const NoContextSentinel = "NO_CONTEXT_AVAILABLE"

// ChunkSearcher is the read slice of the chunk store used at question time.
type ChunkSearcher interface {
	Nearest(ctx context.Context, tenantID string, vec []float32, k int) ([]model.ScoredChunk, error)
}

// RetrievalService turns a question into the tenant-visible chunks nearest
// to it, and assembles those chunks into a bounded prompt context.
type RetrievalService struct {
	chunks   ChunkSearcher
	embedder ai.IEmbedder
	cfg      config.RetrievalConfig
	dim      int
	cache    *lru.LRU[string, []float32]
}

func NewRetrievalService(chunks ChunkSearcher, embedder ai.IEmbedder, cfg config.RetrievalConfig, dimension int) *RetrievalService {
	cache := lru.NewLRU[string, []float32](cfg.CacheSize, nil, time.Duration(cfg.CacheTTLMinutes)*time.Minute)
	return &RetrievalService{
		chunks:   chunks,
		embedder: embedder,
		cfg:      cfg,
		dim:      dimension,
		cache:    cache,
	}
}

// Retrieve embeds the question and returns up to k chunks visible to the
// tenant, closest first. An empty result is not an error.
func (s *RetrievalService) Retrieve(ctx context.Context, tenantID, question string, k int) ([]model.ScoredChunk, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", appErr.ErrInvalid)
	}
	if k <= 0 {
		k = s.cfg.TopK
	}
	vec, err := s.questionVector(ctx, question)
	if err != nil {
		return nil, err
	}
	results, err := s.chunks.Nearest(ctx, tenantID, vec, k)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", appErr.ErrStoreUnavailable, err)
	}
	logutil.GetLogger(ctx).Debug("retrieval done",
		zap.String("tenant_id", tenantID),
		zap.Int("k", k),
		zap.Int("hits", len(results)),
	)
	return results, nil
}

func (s *RetrievalService) questionVector(ctx context.Context, question string) ([]float32, error) {
	key := cacheKey(s.embedder.ModelName(), question)
	if vec, ok := s.cache.Get(key); ok {
		return vec, nil
	}
	vec, err := s.embedder.Embed(ctx, question, embedTaskQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", appErr.ErrEmbeddingFailed, err)
	}
	if len(vec) != s.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", appErr.ErrDimensionMismatch, len(vec), s.dim)
	}
	s.cache.Add(key, vec)
	return vec, nil
}

func cacheKey(modelName, question string) string {
	sum := sha256.Sum256([]byte(modelName + "\x00" + question))
	return hex.EncodeToString(sum[:])
}

// AssembleContext renders scored chunks into numbered context blocks joined
// by blank lines, deduplicating overlapping adjacent chunks and trimming to
// the configured character budget. Empty input yields NoContextSentinel.
func (s *RetrievalService) AssembleContext(results []model.ScoredChunk) string {
	if len(results) == 0 {
		return NoContextSentinel
	}
	kept := dedupAdjacent(results)

	budget := s.cfg.MaxContextChars
	var blocks []string
	used := 0
	for i, sc := range kept {
		block := fmt.Sprintf("[context %d]\n%s", i+1, sc.Text)
		cost := utf8.RuneCountInString(block)
		if len(blocks) > 0 {
			cost += 2
		}
		if used+cost > budget {
			if len(blocks) == 0 {
				// Never return an empty context for a non-empty hit list:
				// truncate the first block to fit.
				blocks = append(blocks, truncateRunes(block, budget))
			}
			break
		}
		blocks = append(blocks, block)
		used += cost
	}
	return strings.Join(blocks, "\n\n")
}

// dedupAdjacent drops the lower-ranked of two hits that are adjacent chunks
// of the same document with substantial textual overlap; the overlap region
// would otherwise appear twice in the prompt.
func dedupAdjacent(results []model.ScoredChunk) []model.ScoredChunk {
	kept := make([]model.ScoredChunk, 0, len(results))
	for _, candidate := range results {
		duplicate := false
		for _, existing := range kept {
			if existing.DocumentID != candidate.DocumentID {
				continue
			}
			delta := existing.ChunkIndex - candidate.ChunkIndex
			if delta != 1 && delta != -1 {
				continue
			}
			if overlapRatio(existing.Text, candidate.Text) > 0.5 {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, candidate)
		}
	}
	return kept
}

// overlapRatio measures the shared run between the tail of the earlier
// chunk and the head of the later one, relative to the shorter chunk.
func overlapRatio(a, b string) float64 {
	shorter := len(a)
	if len(b) < shorter {
		shorter = len(b)
	}
	if shorter == 0 {
		return 0
	}
	longest := 0
	for n := shorter; n > 0; n-- {
		if strings.HasSuffix(a, b[:n]) || strings.HasSuffix(b, a[:n]) {
			longest = n
			break
		}
	}
	return float64(longest) / float64(shorter)
}

// truncateRunes cuts s to at most limit runes. Limits here are counted in
// characters, not bytes, so multi-byte text costs the same as ASCII.
func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
