package backend

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jpillora/backoff"
	openai "github.com/sashabaranov/go-openai"

	"github.com/guidellm/guidellm-go/internal/clock"
	"github.com/guidellm/guidellm-go/internal/record"
)

// OpenAIAdapter drives an OpenAI-compatible HTTP endpoint over
// /v1/chat/completions or /v1/completions with streaming responses,
// parsed as server-sent events.
type OpenAIAdapter struct {
	client *openai.Client
	model  string
	clock  clock.Clock
}

// ClientOption tweaks the underlying HTTP client configuration.
type ClientOption func(*openai.ClientConfig)

// WithInsecureTLS skips TLS certificate verification. Insecure; only for
// lab endpoints with self-signed certificates.
func WithInsecureTLS() ClientOption {
	return func(cfg *openai.ClientConfig) {
		tr, ok := http.DefaultTransport.(*http.Transport)
		if !ok {
			return
		}
		cloned := tr.Clone()
		cloned.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		cfg.HTTPClient = &http.Client{Transport: cloned}
	}
}

// NewOpenAIAdapter builds an adapter bound to one backend client/model
// pair.
func NewOpenAIAdapter(baseURL, apiKey, model string, c clock.Clock, opts ...ClientOption) *OpenAIAdapter {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	for _, opt := range opts {
		opt(&cfg)
	}
	return &OpenAIAdapter{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		clock:  c,
	}
}

func (a *OpenAIAdapter) Execute(ctx context.Context, payload record.Payload, deadline int64) <-chan Event {
	events := make(chan Event, 8)

	reqCtx := ctx
	var cancel context.CancelFunc
	if d := time.Duration(deadline - a.clock.Now()); d > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, d)
	}

	go func() {
		defer close(events)
		if cancel != nil {
			defer cancel()
		}

		switch payload.Kind {
		case record.KindChat:
			a.runChat(reqCtx, payload, events)
		default:
			a.runText(reqCtx, payload, events)
		}
	}()

	return events
}

func (a *OpenAIAdapter) runChat(ctx context.Context, payload record.Payload, events chan<- Event) {
	messages := make([]openai.ChatCompletionMessage, 0, len(payload.Messages))
	for _, m := range payload.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	if len(messages) == 0 {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: payload.Prompt})
	}

	stream, err := a.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Messages:    messages,
		MaxTokens:   payload.MaxTokens,
		Temperature: payload.Temperature,
		Stop:        payload.StopSequences,
		Stream:      true,
		StreamOptions: &openai.StreamOptions{
			IncludeUsage: true,
		},
	})
	if err != nil {
		events <- a.classifyError(err)
		return
	}
	defer stream.Close()

	var firstByteSeen bool
	var promptTokens, outputTokens int

	for {
		select {
		case <-ctx.Done():
			events <- a.classifyError(ctx.Err())
			return
		default:
		}

		resp, err := stream.Recv()
		if !firstByteSeen {
			firstByteSeen = true
			events <- stampedEvent(a.clock, EventFirstByte)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			events <- a.classifyError(err)
			return
		}

		if len(resp.Choices) > 0 {
			content := resp.Choices[0].Delta.Content
			if content != "" {
				delta := estimateTokens(content)
				outputTokens += delta
				events <- Event{Kind: EventToken, Time: a.clock.Now(), TokenText: content, TokenCountDelta: delta}
			}
		}
		if resp.Usage != nil {
			promptTokens = resp.Usage.PromptTokens
			outputTokens = resp.Usage.CompletionTokens
		}
	}

	events <- Event{Kind: EventDone, Time: a.clock.Now(), PromptTokens: promptTokens, OutputTokens: outputTokens}
}

func (a *OpenAIAdapter) runText(ctx context.Context, payload record.Payload, events chan<- Event) {
	stream, err := a.client.CreateCompletionStream(ctx, openai.CompletionRequest{
		Model:       a.model,
		Prompt:      payload.Prompt,
		MaxTokens:   payload.MaxTokens,
		Temperature: payload.Temperature,
		Stop:        payload.StopSequences,
		Stream:      true,
	})
	if err != nil {
		events <- a.classifyError(err)
		return
	}
	defer stream.Close()

	var firstByteSeen bool
	var outputTokens int

	for {
		select {
		case <-ctx.Done():
			events <- a.classifyError(ctx.Err())
			return
		default:
		}

		resp, err := stream.Recv()
		if !firstByteSeen {
			firstByteSeen = true
			events <- stampedEvent(a.clock, EventFirstByte)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			events <- a.classifyError(err)
			return
		}

		if len(resp.Choices) > 0 {
			content := resp.Choices[0].Text
			if content != "" {
				delta := estimateTokens(content)
				outputTokens += delta
				events <- Event{Kind: EventToken, Time: a.clock.Now(), TokenText: content, TokenCountDelta: delta}
			}
		}
	}

	events <- Event{Kind: EventDone, Time: a.clock.Now(), PromptTokens: payload.PromptTokenEstimate, OutputTokens: outputTokens}
}

// classifyError maps a transport/API error onto the per-request error
// taxonomy.
func (a *OpenAIAdapter) classifyError(err error) Event {
	kind := record.ErrorConnect
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = record.ErrorTimeout
	case errors.Is(err, context.Canceled):
		kind = record.ErrorCancelled
	default:
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			kind = record.ErrorHTTPStatus
		}
	}
	return Event{Kind: EventError, Time: a.clock.Now(), ErrorKind: kind, Err: err}
}

// Probe validates the backend is reachable and the configured model is
// listed, retrying with backoff. A cold backend at first benchmark
// launch is common enough to warrant a few attempts.
func (a *OpenAIAdapter) Probe(ctx context.Context) error {
	b := &backoff.Backoff{Min: 200 * time.Millisecond, Max: 5 * time.Second, Factor: 2, Jitter: true}

	var lastErr error
	for attempt := 0; attempt < 4; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(b.Duration()):
			}
		}

		models, err := a.client.ListModels(ctx)
		if err != nil {
			lastErr = err
			continue
		}
		if a.model == "" {
			return nil
		}
		for _, m := range models.Models {
			if m.ID == a.model || strings.Contains(a.model, m.ID) {
				return nil
			}
		}
		lastErr = fmt.Errorf("model %q not found among %d available models", a.model, len(models.Models))
	}
	return fmt.Errorf("backend unreachable after retries: %w", lastErr)
}

// DiscoverModels lists the models the backend advertises, used when no
// model is configured explicitly.
func (a *OpenAIAdapter) DiscoverModels(ctx context.Context) ([]string, error) {
	list, err := a.client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	ids := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// estimateTokens approximates the token count of a chunk, used as a
// fallback when the stream carries no usage object.
func estimateTokens(content string) int {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return 0
	}
	words := strings.Fields(trimmed)
	if len(words) > 0 {
		return max(1, int(float64(len(words))*1.3))
	}
	return max(1, len(trimmed)/3)
}
