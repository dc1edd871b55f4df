// Package openai embeds text through any OpenAI-compatible embeddings endpoint.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/finrag/internal/domain"
	"github.com/kailas-cloud/finrag/internal/metrics"
)

const (
	// DefaultMaxRetries is how often a rate-limited or 5xx call is retried.
	DefaultMaxRetries = 3
	// DefaultTimeout bounds one HTTP round trip to the provider.
	DefaultTimeout = 60 * time.Second

	retryBaseDelay = 500 * time.Millisecond
	retryMaxDelay  = 8 * time.Second
)

// Config holds the embedding provider settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	User       string
	Provider   string
	MaxRetries int // negative disables retries, zero means DefaultMaxRetries
	Timeout    time.Duration
	Logger     *zap.Logger
}

// Embedder calls the embeddings endpoint, retrying transient failures.
// Every call is recorded in the finrag_embedding_* metrics.
type Embedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	user       string
	provider   string
	maxRetries int
	backoff    func(attempt int) time.Duration
	logger     *zap.Logger
}

// NewEmbedder creates an OpenAI-compatible embedding provider.
func NewEmbedder(cfg *Config) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	retries := cfg.MaxRetries
	switch {
	case retries == 0:
		retries = DefaultMaxRetries
	case retries < 0:
		retries = 0
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Embedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		user:       cfg.User,
		provider:   cfg.Provider,
		maxRetries: retries,
		backoff:    exponentialBackoff,
		logger:     logger,
	}
}

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := e.embed(ctx, []string{text})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{
		Embedding:    res.Embeddings[0],
		PromptTokens: res.PromptTokens,
		TotalTokens:  res.TotalTokens,
	}, nil
}

// BatchEmbed sends all texts in one request. Vectors come back in input order
// whatever order the API lists them in.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}
	return e.embed(ctx, texts)
}

// HealthCheck lists models, which costs no tokens.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func (e *Embedder) embed(ctx context.Context, input []string) (domain.BatchEmbeddingResult, error) {
	for attempt := 0; ; attempt++ {
		res, transient, err := e.call(ctx, input)
		if err == nil || !transient || attempt >= e.maxRetries {
			return res, err
		}

		delay := e.backoff(attempt)
		e.logger.Warn("Retrying embedding request",
			zap.String("provider", e.provider),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return domain.BatchEmbeddingResult{}, fmt.Errorf("embedding retry: %w: %w", ctx.Err(), err)
		case <-t.C:
		}
	}
}

// call performs one request and maps its outcome to metrics and domain errors.
// The bool reports whether repeating the request may succeed.
func (e *Embedder) call(ctx context.Context, input []string) (domain.BatchEmbeddingResult, bool, error) {
	req := openai.EmbeddingRequest{
		Input:          input,
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		User:           e.user,
		Dimensions:     max(e.dimensions, 0),
	}
	model := string(e.model)

	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, req)
	metrics.EmbeddingRequestDuration.WithLabelValues(e.provider, model).Observe(time.Since(start).Seconds())
	if err != nil {
		e.fail(errorKind(err))
		return domain.BatchEmbeddingResult{}, retryable(err), apiError(err)
	}

	out, err := ordered(resp.Data, len(input))
	if err != nil {
		e.fail("bad_response")
		return domain.BatchEmbeddingResult{}, false, err
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, model, "success").Inc()
	metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, model, "prompt").Add(float64(resp.Usage.PromptTokens))
	metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, model, "total").Add(float64(resp.Usage.TotalTokens))

	return domain.BatchEmbeddingResult{
		Embeddings:   out,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, false, nil
}

func (e *Embedder) fail(kind string) {
	model := string(e.model)
	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, model, "error").Inc()
	metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, model, kind).Inc()
}

// ordered places each item at its declared index and rejects gaps or duplicates.
func ordered(data []openai.Embedding, n int) ([][]float32, error) {
	if len(data) != n {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts",
			domain.ErrEmbeddingProviderError, len(data), n)
	}
	out := make([][]float32, n)
	for _, d := range data {
		if d.Index < 0 || d.Index >= n || out[d.Index] != nil {
			return nil, fmt.Errorf("%w: invalid or repeated embedding index %d",
				domain.ErrEmbeddingProviderError, d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

func exponentialBackoff(attempt int) time.Duration {
	d := retryBaseDelay << attempt
	if d <= 0 || d > retryMaxDelay {
		return retryMaxDelay
	}
	return d
}

// statusCode is the HTTP status carried by a go-openai error, or 0.
func statusCode(err error) int {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	return 0
}

// retryable reports whether a raw client error may clear up: rate limits,
// 5xx responses and transport failures. Cancellation never does.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	code := statusCode(err)
	return code == 0 || code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func errorKind(err error) string {
	code := statusCode(err)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case code == http.StatusTooManyRequests:
		return "rate_limited"
	case code >= http.StatusInternalServerError:
		return "server_error"
	case code >= http.StatusBadRequest:
		return "client_error"
	default:
		return "transport"
	}
}

// apiError turns a go-openai failure into a domain error that keeps the
// provider's message. All results wrap domain.ErrEmbeddingProviderError and
// HTTP 429 also wraps domain.ErrRateLimited.
func apiError(err error) error {
	wrap := domain.ErrEmbeddingProviderError
	if statusCode(err) == http.StatusTooManyRequests {
		wrap = fmt.Errorf("%w: %w", domain.ErrRateLimited, wrap)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return fmt.Errorf("embedding API error %d: %s: %w", reqErr.HTTPStatusCode, detail, wrap)
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("embedding API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}
	return fmt.Errorf("embedding request: %w: %w", err, wrap)
}

// extractDetail reads the "detail" field of FastAPI-style error bodies.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil {
		return parsed.Detail
	}
	return ""
}
