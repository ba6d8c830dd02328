// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

// Package oracle implements recommend.RankingOracle on top of a chat
// completion model, either OpenAI or an Azure OpenAI deployment.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/juliannp253/Movies-Recommender/internal/breaker"
	"github.com/juliannp253/Movies-Recommender/internal/config"
	"github.com/juliannp253/Movies-Recommender/internal/logging"
	"github.com/juliannp253/Movies-Recommender/internal/metrics"
	"github.com/juliannp253/Movies-Recommender/internal/recommend"
)

const serviceName = "oracle"

// retryDelay separates the first attempt from the single transport retry.
const retryDelay = 500 * time.Millisecond

// ChatClient is the subset of the go-openai client the oracle uses.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Oracle ranks candidate pools with a chat completion model.
type Oracle struct {
	client     ChatClient
	model      string
	timeout    time.Duration
	maxRetries int
	breaker    *breaker.Breaker[openai.ChatCompletionResponse]
	logger     zerolog.Logger
}

var _ recommend.RankingOracle = (*Oracle)(nil)

// New builds an oracle from configuration, selecting the OpenAI or Azure
// OpenAI API flavour.
//
//nolint:gocritic // config and logger are small values
func New(cfg config.OracleConfig, logger zerolog.Logger) (*Oracle, error) {
	var clientCfg openai.ClientConfig
	switch cfg.Provider {
	case "azure":
		if cfg.BaseURL == "" {
			return nil, errors.New("azure oracle requires an endpoint")
		}
		clientCfg = openai.DefaultAzureConfig(cfg.APIKey, cfg.BaseURL)
		clientCfg.APIVersion = cfg.APIVersion
		// The deployment name is used as configured.
		clientCfg.AzureModelMapperFunc = func(model string) string { return model }
	case "openai", "":
		clientCfg = openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
		}
	default:
		return nil, fmt.Errorf("unknown oracle provider %q", cfg.Provider)
	}
	clientCfg.HTTPClient = &http.Client{}

	return NewWithClient(openai.NewClientWithConfig(clientCfg), cfg, logger), nil
}

// NewWithClient builds an oracle around an existing chat client.
//
//nolint:gocritic // config and logger are small values
func NewWithClient(client ChatClient, cfg config.OracleConfig, logger zerolog.Logger) *Oracle {
	logger = logger.With().Str("component", "oracle").Str("model", cfg.Model).Logger()

	bcfg := breaker.DefaultConfig("oracle-api")
	bcfg.IsSuccessful = func(err error) bool {
		return err == nil || !isTransport(err)
	}

	return &Oracle{
		client:     client,
		model:      cfg.Model,
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		breaker:    breaker.New[openai.ChatCompletionResponse](bcfg, logger),
		logger:     logger,
	}
}

// Rank asks the model to organize req.Candidates into sections and returns
// its raw JSON output. Transport failures (network errors, HTTP 5xx) are
// retried at most maxRetries times; other failures are returned at once.
func (o *Oracle) Rank(ctx context.Context, req recommend.OracleRequest) (*recommend.OracleResponse, error) {
	if len(req.Candidates) == 0 {
		return nil, &recommend.ValidationError{Reason: "no candidates provided to rank"}
	}

	system, err := BuildSystemPrompt(req.Summary)
	if err != nil {
		return nil, &recommend.ValidationError{Reason: "build prompt", Err: err}
	}
	user, err := BuildUserMessage(req)
	if err != nil {
		return nil, &recommend.ValidationError{Reason: "build prompt", Err: err}
	}

	chatReq := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	log := logging.CtxFrom(ctx, o.logger)

	resp, err := o.complete(ctx, log, chatReq)
	if err != nil {
		metrics.OracleCalls.WithLabelValues("failure").Inc()
		return nil, err
	}
	metrics.OracleCalls.WithLabelValues("success").Inc()
	metrics.OracleTokens.WithLabelValues("prompt").Add(float64(resp.Usage.PromptTokens))
	metrics.OracleTokens.WithLabelValues("completion").Add(float64(resp.Usage.CompletionTokens))

	if len(resp.Choices) == 0 {
		return nil, &recommend.ValidationError{Reason: "oracle returned no choices"}
	}
	choice := resp.Choices[0]
	if strings.TrimSpace(choice.Message.Content) == "" {
		raw := choice.Message.Content
		if choice.Message.Refusal != "" {
			raw = choice.Message.Refusal
		}
		return nil, &recommend.ValidationError{
			Reason: fmt.Sprintf("oracle returned no content (finish_reason=%s)", choice.FinishReason),
			Raw:    []byte(raw),
		}
	}

	log.Debug().
		Int("candidates", len(req.Candidates)).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("oracle ranked candidates")

	return &recommend.OracleResponse{
		Raw:              []byte(choice.Message.Content),
		Model:            resp.Model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

func (o *Oracle) complete(ctx context.Context, log zerolog.Logger, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= o.maxRetries; attempt++ {
		if attempt > 0 {
			metrics.OracleCalls.WithLabelValues("retry").Inc()
			log.Warn().Err(lastErr).Int("attempt", attempt+1).Msg("oracle transport failure, retrying")
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				return openai.ChatCompletionResponse{}, classify(ctx.Err())
			}
		}

		start := time.Now()
		resp, err := o.breaker.Execute(func() (openai.ChatCompletionResponse, error) {
			return o.client.CreateChatCompletion(ctx, req)
		})
		metrics.RecordUpstreamRequest(serviceName, "rank", statusOf(err), time.Since(start), err)
		if err == nil {
			return resp, nil
		}
		if breaker.IsRejected(err) {
			return openai.ChatCompletionResponse{}, &recommend.UpstreamError{Service: serviceName, Op: "rank", Err: err}
		}

		lastErr = err
		if !isTransport(err) || ctx.Err() != nil {
			break
		}
	}
	return openai.ChatCompletionResponse{}, classify(lastErr)
}

// BreakerState reports the circuit breaker state for health checks.
func (o *Oracle) BreakerState() string {
	return o.breaker.State()
}

// isTransport reports whether err is a network failure or a 5xx response.
func isTransport(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	status := statusOf(err)
	return status == 0 || status >= 500
}

// statusOf extracts the HTTP status from a go-openai error, 0 if none.
func statusOf(err error) int {
	if err == nil {
		return 0
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

// classify converts a go-openai error into the recommend taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}
	ue := &recommend.UpstreamError{Service: serviceName, Op: "rank", StatusCode: statusOf(err), Err: err}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		ue.Raw = reqErr.Body
	}
	return ue
}
