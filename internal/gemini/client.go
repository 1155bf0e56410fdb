// Package gemini implements integration with Google's Gemini AI API.
// It turns a single prompt into a single text completion.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"google.golang.org/genai"

	"github.com/edgard/nanorelay/internal/config"
)

// Completer produces a text completion for a prompt using the given credential.
type Completer interface {
	Complete(ctx context.Context, prompt, credential string) (string, error)
}

// Params are the generation parameters sent with every request.
type Params struct {
	Temperature     float32
	TopK            float32
	TopP            float32
	MaxOutputTokens int32
}

// ParamsFromConfig extracts generation parameters from cfg.
func ParamsFromConfig(cfg config.GeminiConfig) Params {
	return Params{
		Temperature:     cfg.Temperature,
		TopK:            cfg.TopK,
		TopP:            cfg.TopP,
		MaxOutputTokens: cfg.MaxOutputTokens,
	}
}

// Client calls the generateContent endpoint through the genai SDK. The
// credential is supplied per call, so one Client serves every bot and the
// web channel.
type Client struct {
	model      string
	baseURL    string
	params     Params
	httpClient *http.Client
	log        *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for provider calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a Gemini client from configuration.
func NewClient(cfg config.GeminiConfig, log *slog.Logger, opts ...Option) *Client {
	if log == nil {
		log = slog.Default()
	}
	c := &Client{
		model:   cfg.Model,
		baseURL: cfg.BaseURL,
		params:  ParamsFromConfig(cfg),
		log:     log.With("component", "gemini_client"),
	}
	for _, o := range opts {
		o(c)
	}
	c.log.Info("Gemini client initialized", "model", c.model)
	return c
}

// Complete sends prompt to the model and returns the first candidate's text.
// It does not retry.
func (c *Client) Complete(ctx context.Context, prompt, credential string) (string, error) {
	if credential == "" {
		return "", ErrMissingCredential
	}

	gi, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      credential,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  c.httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: c.baseURL},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create genai client: %w", err)
	}

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	c.log.DebugContext(ctx, "Generating completion", "prompt_length", len(prompt))
	resp, err := gi.Models.GenerateContent(ctx, c.model, contents, c.contentConfig())
	if err != nil {
		return "", classify(err)
	}

	return extractText(resp)
}

func (c *Client) contentConfig() *genai.GenerateContentConfig {
	p := c.params
	return &genai.GenerateContentConfig{
		Temperature:     &p.Temperature,
		TopK:            &p.TopK,
		TopP:            &p.TopP,
		MaxOutputTokens: p.MaxOutputTokens,
	}
}

// extractText returns candidates[0].content.parts[0].text or ErrMalformedResponse.
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}
	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("%w: prompt blocked: %s", ErrMalformedResponse, resp.PromptFeedback.BlockReason)
		}
		return "", fmt.Errorf("%w: no candidates", ErrMalformedResponse)
	}

	cand := resp.Candidates[0]
	if cand.Content == nil || len(cand.Content.Parts) == 0 || cand.Content.Parts[0] == nil {
		return "", fmt.Errorf("%w: candidate has no content, finish reason %q", ErrMalformedResponse, cand.FinishReason)
	}

	text := cand.Content.Parts[0].Text
	if text == "" {
		return "", fmt.Errorf("%w: first part has no text", ErrMalformedResponse)
	}
	return text, nil
}

// classify converts SDK errors into the package's error taxonomy.
func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &HTTPError{StatusCode: apiErr.Code, Status: apiErr.Status, Message: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &HTTPError{StatusCode: apiErrPtr.Code, Status: apiErrPtr.Status, Message: apiErrPtr.Message}
	}
	return fmt.Errorf("gemini API call failed: %w", err)
}
