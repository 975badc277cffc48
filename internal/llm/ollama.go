package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	ollama "github.com/ollama/ollama/api"
)

// OllamaGateway completes conversations with a local Ollama server.
//
// Tool schemas are not forwarded; callers that need structured output from
// Ollama models rely on text cues instead.
type OllamaGateway struct {
	client    *ollama.Client
	model     string
	maxTokens int
	tracker   *TokenTracker
}

// OllamaConfig contains configuration for NewOllamaGateway.
type OllamaConfig struct {
	// Host is the server URL. Empty uses OLLAMA_HOST or the default.
	Host      string
	Model     string
	MaxTokens int
	// HTTPClient overrides the HTTP client, mainly for tests.
	HTTPClient *http.Client
}

// NewOllamaGateway creates a gateway backed by the Ollama API client.
func NewOllamaGateway(cfg OllamaConfig) (*OllamaGateway, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("ollama model is required")
	}

	var client *ollama.Client
	if cfg.Host == "" {
		c, err := ollama.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("ollama client from environment: %w", err)
		}
		client = c
	} else {
		u, err := url.Parse(cfg.Host)
		if err != nil {
			return nil, fmt.Errorf("parse ollama host %q: %w", cfg.Host, err)
		}
		httpClient := cfg.HTTPClient
		if httpClient == nil {
			httpClient = http.DefaultClient
		}
		client = ollama.NewClient(u, httpClient)
	}

	return &OllamaGateway{
		client:    client,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		tracker:   NewTokenTracker(),
	}, nil
}

// Name returns the provider and model.
func (g *OllamaGateway) Name() string {
	return "ollama/" + g.model
}

// Tracker returns the token tracker for this gateway.
func (g *OllamaGateway) Tracker() *TokenTracker {
	return g.tracker
}

// Complete sends one non-streaming chat request.
func (g *OllamaGateway) Complete(ctx context.Context, req Request) (*Response, error) {
	if len(req.Messages) == 0 {
		return nil, ErrEmptyConversation
	}

	messages := make([]ollama.Message, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, ollama.Message{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		messages = append(messages, ollama.Message{Role: string(m.Role), Content: m.Content})
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = g.maxTokens
	}
	options := map[string]any{}
	if maxTokens > 0 {
		options["num_predict"] = maxTokens
	}

	stream := false
	chatReq := &ollama.ChatRequest{
		Model:    g.model,
		Messages: messages,
		Stream:   &stream,
		Options:  options,
	}

	out := &Response{}
	err := g.client.Chat(ctx, chatReq, func(resp ollama.ChatResponse) error {
		out.Text += resp.Message.Content
		if resp.Done {
			out.StopReason = resp.DoneReason
			out.InputTokens = int64(resp.PromptEvalCount)
			out.OutputTokens = int64(resp.EvalCount)
		}
		return nil
	})
	if err != nil {
		observeRequest("ollama", err)
		return nil, fmt.Errorf("ollama chat: %w", err)
	}

	g.tracker.Add(out.InputTokens, out.OutputTokens)
	observeRequest("ollama", nil)
	observeTokens("ollama", out.InputTokens, out.OutputTokens)
	return out, nil
}
