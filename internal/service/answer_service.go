package service

import (
	"context"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/knowhub-ai/knowhub/internal/ai"
	"github.com/knowhub-ai/knowhub/internal/config"
	"github.com/knowhub-ai/knowhub/internal/model"
)

const noKnowledgeAnswer = "I don't have enough information to answer your question. Please make sure relevant documents have been uploaded to the knowledge base."

// AnswerService wraps retrieval and generation into a single ask operation.
// It never surfaces a model failure to the end user: exhausted attempts
// degrade to a canned fallback answer.
type AnswerService struct {
	retrieval *RetrievalService
	generator ai.IStreamGenerator
	override  func(model string) ai.IStreamGenerator
	cfg       config.AnswerConfig
}

// AskResult carries the synthesized answer plus the chunks it was grounded
// on, so callers can show sources.
type AskResult struct {
	Answer   string
	Sources  []model.ScoredChunk
	Degraded bool
}

// NewAnswerService builds the service. override may be nil; when set it maps
// a caller-requested model name onto a generator for that model, letting a
// single ask run against a non-default model.
func NewAnswerService(retrieval *RetrievalService, generator ai.IStreamGenerator, override func(model string) ai.IStreamGenerator, cfg config.AnswerConfig) *AnswerService {
	return &AnswerService{retrieval: retrieval, generator: generator, override: override, cfg: cfg}
}

func (s *AnswerService) pick(model string) ai.IStreamGenerator {
	if model != "" && s.override != nil {
		if g := s.override(model); g != nil {
			return g
		}
	}
	return s.generator
}

// Ask answers a question from the tenant's knowledge base. Model failures
// degrade to canned text after the retries are exhausted; retrieval failures
// are surfaced to the caller as errors, since without the chunk store there
// is nothing trustworthy to answer from.
func (s *AnswerService) Ask(ctx context.Context, tenantID, question, model string) (*AskResult, error) {
	results, err := s.retrieval.Retrieve(ctx, tenantID, question, 0)
	if err != nil {
		return nil, err
	}
	contextText := s.retrieval.AssembleContext(results)
	if contextText == NoContextSentinel {
		return &AskResult{Answer: noKnowledgeAnswer}, nil
	}

	answer, err := s.generateWithRetry(ctx, s.pick(model), buildPrompt(question, contextText))
	if err != nil {
		logutil.GetLogger(ctx).Error("generation exhausted, degrading", zap.Error(err))
		return &AskResult{Answer: excerptAnswer(question, contextText), Sources: results, Degraded: true}, nil
	}
	return &AskResult{Answer: answer, Sources: results}, nil
}

// AskStream streams answer deltas through emit. Retries apply only while
// nothing has been emitted; once the first delta is out, a mid-stream
// failure ends the stream. Degraded answers arrive as a single delta.
func (s *AnswerService) AskStream(ctx context.Context, tenantID, question, model string, emit func(delta string) error) (*AskResult, error) {
	results, err := s.retrieval.Retrieve(ctx, tenantID, question, 0)
	if err != nil {
		return nil, err
	}
	contextText := s.retrieval.AssembleContext(results)
	if contextText == NoContextSentinel {
		if err := emit(noKnowledgeAnswer); err != nil {
			return nil, err
		}
		return &AskResult{Answer: noKnowledgeAnswer}, nil
	}

	prompt := buildPrompt(question, contextText)
	generator := s.pick(model)
	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := backoffSleep(ctx, attempt-1); err != nil {
				return nil, err
			}
		}
		emitted := false
		var full string
		attemptCtx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.TimeoutSeconds)*time.Second)
		err := generator.GenerateStream(attemptCtx, prompt, func(delta string) error {
			emitted = true
			full += delta
			return emit(delta)
		})
		cancel()
		if err == nil {
			return &AskResult{Answer: full, Sources: results}, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if emitted {
			// Partial answer already delivered; cannot restart cleanly.
			return nil, fmt.Errorf("stream interrupted: %w", err)
		}
		lastErr = err
		logutil.GetLogger(ctx).Warn("stream attempt failed", zap.Int("attempt", attempt), zap.Error(err))
	}
	logutil.GetLogger(ctx).Error("generation exhausted, degrading", zap.Error(lastErr))
	text := excerptAnswer(question, contextText)
	if err := emit(text); err != nil {
		return nil, err
	}
	return &AskResult{Answer: text, Sources: results, Degraded: true}, nil
}

func (s *AnswerService) generateWithRetry(ctx context.Context, generator ai.IGenerator, prompt string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := backoffSleep(ctx, attempt-1); err != nil {
				return "", err
			}
		}
		attemptCtx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.TimeoutSeconds)*time.Second)
		answer, err := generator.Generate(attemptCtx, prompt)
		cancel()
		if err == nil {
			return answer, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
		logutil.GetLogger(ctx).Warn("generate attempt failed", zap.Int("attempt", attempt), zap.Error(err))
	}
	return "", lastErr
}

func backoffSleep(ctx context.Context, attempt int) error {
	backoff := time.Duration(1<<(attempt-1)) * 500 * time.Millisecond
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(backoff):
		return nil
	}
}

func buildPrompt(question, contextText string) string {
	return fmt.Sprintf(`Based on the following company information, please answer the user's question.

Company Information:
%s

User Question: %s

Please provide a helpful and accurate answer based on the company information provided. If the information is not sufficient to answer the question completely, please indicate what additional information might be needed and suggest contacting HR for more details.`, contextText, question)
}

// excerptAnswer degrades gracefully when the model is unreachable but
// retrieval worked: the user still gets the most relevant material.
func excerptAnswer(question, contextText string) string {
	excerpt := contextText
	if len(excerpt) > 300 {
		excerpt = truncateRunes(excerpt, 300) + "..."
	}
	return fmt.Sprintf(`Based on the available company information, here's what I found relevant to your question about "%s":

%s

Please note: This response is generated from your company's knowledge base. For more detailed information or if you need clarification, please contact your HR team directly.`, question, excerpt)
}
