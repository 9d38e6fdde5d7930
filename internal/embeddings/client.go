package embeddings

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

var (
	// ErrEmptyInput indicates empty or nil input texts.
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmbeddingFailed indicates an embedding request failed or the
	// endpoint returned something this client can't interpret.
	ErrEmbeddingFailed = errors.New("embedding generation failed")
)

// Config holds configuration for the embedding endpoint.
type Config struct {
	// BaseURL is the embedding server's API root, e.g.
	// "http://localhost:8080/v1" for a local TEI server or
	// "https://api.openai.com/v1" for OpenAI itself.
	BaseURL string

	// Model is the embedding model name sent in every request body.
	Model string

	// APIKey is sent as a bearer token. TEI servers ignore it; OpenAI
	// and OpenAI-compatible hosted endpoints require it.
	APIKey string

	// Timeout bounds a single request. Zero means no timeout.
	Timeout time.Duration
}

// ConfigFromEnv builds a Config from DEX_EMBEDDINGS_* environment
// variables, falling back to a local default endpoint.
func ConfigFromEnv() Config {
	baseURL := os.Getenv("DEX_EMBEDDINGS_BASEURL")
	if baseURL == "" {
		baseURL = "http://localhost:8080/v1"
	}
	model := os.Getenv("DEX_EMBEDDINGS_MODEL")
	if model == "" {
		model = "BAAI/bge-small-en-v1.5"
	}
	return Config{
		BaseURL: baseURL,
		Model:   model,
		APIKey:  os.Getenv("DEX_EMBEDDINGS_APIKEY"),
		Timeout: 30 * time.Second,
	}
}

// Validate checks the configuration is usable.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL required", ErrInvalidConfig)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: model required", ErrInvalidConfig)
	}
	return nil
}

// Client generates embeddings against an OpenAI-compatible endpoint via
// langchaingo, so the same code path serves a local TEI server and a
// hosted OpenAI-compatible one.
type Client struct {
	config   Config
	embedder *embeddings.EmbedderImpl
	metrics  *Metrics
}

// NewClient builds a Client from the given configuration.
func NewClient(config Config, logger *zap.Logger) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating embeddings config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	// langchaingo's OpenAI client requires a non-empty token even when
	// talking to a TEI server that never checks it.
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = "placeholder"
	}

	llm, err := openai.New(
		openai.WithBaseURL(config.BaseURL),
		openai.WithModel(config.Model),
		openai.WithToken(apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("creating embeddings client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	return &Client{
		config:   config,
		embedder: embedder,
		metrics:  NewMetrics(logger),
	}, nil
}

// EmbedDocuments requests one vector per text, in the same order as texts.
func (c *Client) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	var opErr error
	defer func() { c.metrics.RecordGeneration(c.config.Model, "embed_documents", time.Since(start), len(texts), opErr) }()

	if len(texts) == 0 {
		opErr = fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
		return nil, opErr
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	vectors, err := c.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		opErr = fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
		return nil, opErr
	}
	if len(vectors) != len(texts) {
		opErr = fmt.Errorf("%w: expected %d vectors, got %d", ErrEmbeddingFailed, len(texts), len(vectors))
		return nil, opErr
	}
	return vectors, nil
}

// EmbedQuery requests a single vector for a query string. Queries are
// never persisted, per the retrieval layer's contract.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	var opErr error
	defer func() { c.metrics.RecordGeneration(c.config.Model, "embed_query", time.Since(start), 1, opErr) }()

	if text == "" {
		opErr = fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
		return nil, opErr
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	vec, err := c.embedder.EmbedQuery(ctx, text)
	if err != nil {
		opErr = fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
		return nil, opErr
	}
	if len(vec) == 0 {
		opErr = fmt.Errorf("%w: empty response", ErrEmbeddingFailed)
		return nil, opErr
	}
	return vec, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.config.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.config.Timeout)
}
