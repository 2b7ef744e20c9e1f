package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type GeneratorEntry struct {
	Name      string
	Generator IGenerator
}

type EmbedderEntry struct {
	Name     string
	Embedder IEmbedder
}

type groupGenerator struct {
	items []GeneratorEntry
}

// NewGroupGenerator returns a generator that tries each entry in order and
// answers with the first success.
func NewGroupGenerator(items []GeneratorEntry) IStreamGenerator {
	if len(items) == 0 {
		return nil
	}
	return &groupGenerator{items: items}
}

func (g *groupGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for i, item := range g.items {
		if item.Generator == nil {
			continue
		}
		res, err := item.Generator.Generate(ctx, prompt)
		if err == nil {
			return res, nil
		}
		lastErr = err
		logutil.GetLogger(ctx).Warn("generator failed", zap.Int("index", i), zap.String("name", item.Name), zap.Error(err))
	}
	if lastErr == nil {
		return "", fmt.Errorf("generator not configured")
	}
	return "", lastErr
}

// GenerateStream fails over only while nothing has been emitted; once an
// entry starts producing deltas the stream is committed to it.
func (g *groupGenerator) GenerateStream(ctx context.Context, prompt string, emit func(delta string) error) error {
	var lastErr error
	for i, item := range g.items {
		if item.Generator == nil {
			continue
		}
		emitted := false
		wrapped := func(delta string) error {
			emitted = true
			return emit(delta)
		}
		var err error
		if sg, ok := item.Generator.(IStreamGenerator); ok {
			err = sg.GenerateStream(ctx, prompt, wrapped)
		} else {
			var res string
			res, err = item.Generator.Generate(ctx, prompt)
			if err == nil {
				err = wrapped(res)
			}
		}
		if err == nil {
			return nil
		}
		if emitted || ctx.Err() != nil {
			return err
		}
		lastErr = err
		logutil.GetLogger(ctx).Warn("stream generator failed", zap.Int("index", i), zap.String("name", item.Name), zap.Error(err))
	}
	if lastErr == nil {
		return fmt.Errorf("generator not configured")
	}
	return lastErr
}

type groupEmbedder struct {
	items []EmbedderEntry
}

func NewGroupEmbedder(items []EmbedderEntry) IEmbedder {
	if len(items) == 0 {
		return nil
	}
	return &groupEmbedder{items: items}
}

func (g *groupEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	var lastErr error
	for i, item := range g.items {
		if item.Embedder == nil {
			continue
		}
		res, err := item.Embedder.Embed(ctx, text, taskType)
		if err == nil {
			return res, nil
		}
		lastErr = err
		logutil.GetLogger(ctx).Warn("embedder failed", zap.Int("index", i), zap.String("name", item.Name), zap.Error(err))
	}
	if lastErr == nil {
		return nil, fmt.Errorf("embedder not configured")
	}
	return nil, lastErr
}

func (g *groupEmbedder) ModelName() string {
	names := make([]string, 0, len(g.items))
	for _, item := range g.items {
		if item.Name == "" {
			continue
		}
		names = append(names, item.Name)
	}
	if len(names) == 0 {
		return ""
	}
	return strings.Join(names, "|")
}
