package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/teemow/bandavail/internal/apperr"
	"github.com/teemow/bandavail/internal/instrumentation"
	"github.com/teemow/bandavail/internal/logging"
	"github.com/teemow/bandavail/internal/schedule"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

// Result is a validated availability statement.
type Result struct {
	Dates  []string        `json:"dates"`
	Status schedule.Status `json:"status"`
}

// Config configures the OpenAI client.
type Config struct {
	APIKey string
	Model  string
	// BaseURL points at an OpenAI compatible API. Empty uses the library default.
	BaseURL string
	// Timeout bounds one request. Zero means no timeout beyond the context.
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Parser parses availability statements with an OpenAI chat model.
type Parser struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	metrics *instrumentation.Metrics
	logger  *slog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithMetrics records llm request metrics.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(p *Parser) {
		p.metrics = m
	}
}

// WithLogger sets the parser logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a Parser.
func New(cfg Config, opts ...Option) (*Parser, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	if cfg.HTTPClient != nil {
		clientConfig.HTTPClient = cfg.HTTPClient
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	p := &Parser{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   model,
		timeout: cfg.Timeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Model returns the chat model in use.
func (p *Parser) Model() string {
	return p.model
}

// Parse extracts dates and a status from text, resolving relative dates
// against today.
func (p *Parser) Parse(ctx context.Context, text string, today time.Time) (*Result, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	ctx, span := instrumentation.StartLLMSpan(ctx, instrumentation.ProviderOpenAI, p.model)
	defer span.End()

	start := time.Now()
	result, err := p.parse(ctx, text, today)
	duration := time.Since(start)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	p.metrics.RecordLLMRequest(ctx, instrumentation.ProviderOpenAI, p.model, status, duration)

	p.logger.DebugContext(ctx, "availability parsed",
		logging.Operation("parse"),
		logging.Status(status),
		slog.Duration(logging.KeyDuration, duration),
		logging.Err(err))
	return result, err
}

func (p *Parser) parse(ctx context.Context, text string, today time.Time) (*Result, error) {
	req := openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(today)},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		// A literal 0 is dropped by omitempty and the API would fall back to 1.
		Temperature: math.SmallestNonzeroFloat32,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   schemaName,
				Schema: &responseSchema,
				Strict: true,
			},
		},
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindParse, err, "availability parser request failed")
	}
	if len(resp.Choices) == 0 {
		return nil, apperr.New(apperr.KindParse, "availability parser returned no choices")
	}

	return decodeResult(resp.Choices[0].Message.Content)
}

// decodeResult validates the model output.
func decodeResult(content string) (*Result, error) {
	content = cleanJSONContent(content)

	var raw struct {
		Dates  []string `json:"dates"`
		Status string   `json:"status"`
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(content)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return nil, apperr.Wrap(apperr.KindParse, err, "failed to decode availability parser output")
	}
	if raw.Dates == nil {
		return nil, apperr.New(apperr.KindParse, `availability parser output has no "dates" array`)
	}
	status, err := schedule.ParseStatus(raw.Status)
	if err != nil {
		return nil, fmt.Errorf("invalid availability parser output: %w", err)
	}

	return &Result{Dates: raw.Dates, Status: status}, nil
}

// cleanJSONContent removes markdown code blocks around JSON content.
func cleanJSONContent(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") && strings.HasSuffix(content, "```") && len(content) >= 6 {
		content = strings.TrimSuffix(strings.TrimPrefix(content, "```"), "```")
		content = strings.TrimPrefix(content, "json")
		content = strings.TrimSpace(content)
	}
	return content
}
