// Package llm adapts an OpenAI-compatible chat completion API to
// gateway.TextGenerator.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"

	"github.com/oksasatya/lessonhub/internal/domain/gateway"
)

const systemPrompt = "You are an assistant that drafts lesson plans for teachers. " +
	"Answer with a single JSON object that follows the schema you are given. Do not add prose."

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration

	// Consecutive failures that open the breaker, and how long it stays open.
	FailureThreshold uint32
	OpenFor          time.Duration
}

type Generator struct {
	client  *openai.Client
	model   string
	breaker *gobreaker.CircuitBreaker[[]byte]
	logger  *logrus.Logger
}

func NewGenerator(cfg Config, logger *logrus.Logger) *Generator {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenFor == 0 {
		cfg.OpenFor = 30 * time.Second
	}

	g := &Generator{client: openai.NewClientWithConfig(oc), model: cfg.Model, logger: logger}
	g.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "llm",
		MaxRequests: 1,
		Timeout:     cfg.OpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			// the caller going away says nothing about upstream health
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).
				Warn("circuit breaker state changed")
		},
	})
	return g
}

func (g *Generator) Generate(ctx context.Context, req gateway.GenerationRequest) ([]byte, error) {
	out, err := g.breaker.Execute(func() ([]byte, error) {
		return g.complete(ctx, req)
	})
	if err != nil {
		return nil, classify(err)
	}
	return out, nil
}

func (g *Generator) complete(ctx context.Context, req gateway.GenerationRequest) ([]byte, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(req)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		Temperature:    0.4,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, fmt.Errorf("%w: empty completion", gateway.ErrUpstreamResponse)
	}
	return []byte(resp.Choices[0].Message.Content), nil
}

func userPrompt(req gateway.GenerationRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\nSubject: %s\nGrade: %s\nDifficulty: %s\n\n", req.Title, req.Subject, req.Grade, req.Difficulty)
	fmt.Fprintf(&b, "Output JSON schema:\n%s\n\n", req.Schema)
	b.WriteString("Material excerpt:\n")
	b.WriteString(req.Excerpt)
	return b.String()
}

// classify maps client, transport and breaker errors onto the gateway sentinels.
func classify(err error) error {
	if errors.Is(err, gateway.ErrUpstreamResponse) {
		return err
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", gateway.ErrUpstreamUnavailable, err)
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %v", gateway.ErrUpstreamAuth, err)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %v", gateway.ErrUpstreamQuota, err)
	default:
		return fmt.Errorf("%w: %v", gateway.ErrUpstreamUnavailable, err)
	}
}
