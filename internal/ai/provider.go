package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnavailable marks a provider that is not configured or cannot serve
// requests; callers decide whether to fail over or fall back.
var ErrUnavailable = errors.New("ai provider unavailable")

type IProvider interface {
	Name() string
	Generate(ctx context.Context, model string, prompt string) (string, error)
	Embed(ctx context.Context, model string, text string, taskType string) ([]float32, error)
}

// IStreamProvider is implemented by providers that can deliver completions
// incrementally. emit is called once per text delta; returning an error stops
// the stream and releases the upstream connection.
type IStreamProvider interface {
	GenerateStream(ctx context.Context, model string, prompt string, emit func(delta string) error) error
}

type IGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type IStreamGenerator interface {
	IGenerator
	GenerateStream(ctx context.Context, prompt string, emit func(delta string) error) error
}

type IEmbedder interface {
	Embed(ctx context.Context, text string, taskType string) ([]float32, error)
	ModelName() string
}

type generator struct {
	provider IProvider
	model    string
}

// NewGenerator binds a provider to a fixed model. The returned value also
// satisfies IStreamGenerator; when the provider cannot stream, GenerateStream
// degrades to a single blocking call emitted as one delta.
func NewGenerator(p IProvider, model string) IStreamGenerator {
	return &generator{provider: p, model: model}
}

func (g *generator) Generate(ctx context.Context, prompt string) (string, error) {
	return g.provider.Generate(ctx, g.model, prompt)
}

func (g *generator) GenerateStream(ctx context.Context, prompt string, emit func(delta string) error) error {
	if sp, ok := g.provider.(IStreamProvider); ok {
		return sp.GenerateStream(ctx, g.model, prompt, emit)
	}
	text, err := g.provider.Generate(ctx, g.model, prompt)
	if err != nil {
		return err
	}
	return emit(text)
}

type embedder struct {
	provider IProvider
	model    string
}

func NewEmbedder(p IProvider, model string) IEmbedder {
	return &embedder{provider: p, model: model}
}

func (e *embedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	return e.provider.Embed(ctx, e.model, text, taskType)
}

func (e *embedder) ModelName() string {
	return e.model
}

type ProviderFactory func(args interface{}) (IProvider, error)

var registry = map[string]ProviderFactory{}

func Register(name string, factory ProviderFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registry[key] = factory
}

func NewProvider(name string, args interface{}) (IProvider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("ai provider name is required")
	}
	factory := registry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported ai provider: %s", name)
	}
	return factory(args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("ai provider config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode ai provider config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode ai provider config: %w", err)
	}
	return nil
}
