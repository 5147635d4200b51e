// Package generator talks to the hosted language model that writes
// speaking-test questions.
package generator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/stemsi/speaking-backend/internal/metrics"
	"github.com/stemsi/speaking-backend/internal/telemetry"
)

// ErrUpstream marks every failure that originates at the model endpoint:
// non-2xx replies, transport errors, timeouts and empty completions.
var ErrUpstream = errors.New("generator: upstream failure")

// UpstreamError carries the status code of a failed call for logging.
// It matches ErrUpstream with errors.Is.
type UpstreamError struct {
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("generator: upstream status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("generator: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

// Prompt is one chat completion request.
type Prompt struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

const examinerPrompt = "You are an IELTS speaking examiner."

// QuestionPrompt builds the prompt for a single speaking topic.
func QuestionPrompt(topic string) Prompt {
	return Prompt{
		System:      examinerPrompt,
		User:        "Generate a speaking test question about: " + topic,
		MaxTokens:   150,
		Temperature: 0.7,
		TopP:        1.0,
	}
}

// Config configures an Azure OpenAI deployment.
type Config struct {
	Endpoint   string
	APIKey     string
	APIVersion string
	Deployment string
	Timeout    time.Duration
	// HTTPClient overrides the transport. Nil uses http.DefaultClient.
	HTTPClient *http.Client
}

// AzureClient completes prompts against an Azure OpenAI chat deployment.
type AzureClient struct {
	client     *openai.Client
	deployment string
	timeout    time.Duration
	metrics    *metrics.Metrics
	log        zerolog.Logger
}

// NewAzureClient builds a client for cfg. m may be nil.
func NewAzureClient(cfg Config, m *metrics.Metrics, log zerolog.Logger) *AzureClient {
	oc := openai.DefaultAzureConfig(cfg.APIKey, cfg.Endpoint)
	if cfg.APIVersion != "" {
		oc.APIVersion = cfg.APIVersion
	}
	deployment := cfg.Deployment
	oc.AzureModelMapperFunc = func(string) string { return deployment }
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	}

	return &AzureClient{
		client:     openai.NewClientWithConfig(oc),
		deployment: deployment,
		timeout:    cfg.Timeout,
		metrics:    m,
		log:        log.With().Str("component", "generator").Logger(),
	}
}

// Complete sends p and returns the trimmed completion text. Every failure
// satisfies errors.Is(err, ErrUpstream).
func (c *AzureClient) Complete(ctx context.Context, p Prompt) (string, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "generator.Complete",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("llm.deployment", c.deployment)),
	)
	defer span.End()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := c.complete(ctx, p)
	elapsed := time.Since(start)

	if err != nil {
		c.metrics.ObserveGeneration(metrics.GenerationFailure, elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		c.log.Warn().Err(err).Dur("elapsed", elapsed).Msg("completion failed")
		return "", err
	}

	c.metrics.ObserveGeneration(metrics.GenerationSuccess, elapsed)
	c.log.Debug().Dur("elapsed", elapsed).Int("chars", len(text)).Msg("completion ok")
	return text, nil
}

func (c *AzureClient) complete(ctx context.Context, p Prompt) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.deployment,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.System},
			{Role: openai.ChatMessageRoleUser, Content: p.User},
		},
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
		TopP:        p.TopP,
	})
	if err != nil {
		return "", classify(err)
	}

	if len(resp.Choices) == 0 {
		return "", &UpstreamError{Err: errors.New("no choices in completion")}
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", &UpstreamError{Err: errors.New("empty completion")}
	}
	return text, nil
}

func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &UpstreamError{StatusCode: apiErr.HTTPStatusCode, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &UpstreamError{StatusCode: reqErr.HTTPStatusCode, Err: err}
	}
	return &UpstreamError{Err: err}
}
