// Package gemini wraps the Google Gen AI SDK for JSON-mode text generation.
package gemini

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// Client generates text with a Gemini model.
type Client interface {
	GenerateJSON(ctx context.Context, req Request) (string, error)
}

// Request is a single-turn generation request.
type Request struct {
	Model           string
	System          string
	Prompt          string
	MaxOutputTokens int32
	Temperature     *float32
}

// Options configure NewClient.
type Options struct {
	APIKey string
	// BaseURL overrides the API endpoint; used in tests.
	BaseURL string
}

type sdkClient struct {
	client *genai.Client
}

// NewClient creates a Client against the Gemini Developer API.
func NewClient(ctx context.Context, opts Options) (Client, error) {
	cfg := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	c, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: create client")
	}
	return &sdkClient{client: c}, nil
}

func (c *sdkClient) GenerateJSON(ctx context.Context, req Request) (string, error) {
	model := req.Model
	if model == "" {
		model = DefaultModel
	}

	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      req.Temperature,
	}
	if req.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = req.MaxOutputTokens
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	resp, err := c.client.Models.GenerateContent(ctx, model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return "", eris.Wrap(err, "gemini: generate content")
	}
	if resp == nil {
		return "", eris.New("gemini: empty response")
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", eris.New("gemini: no text in response")
	}
	if resp.UsageMetadata != nil {
		zap.L().Debug("gemini: usage",
			zap.String("model", model),
			zap.Int32("prompt_tokens", resp.UsageMetadata.PromptTokenCount),
			zap.Int32("output_tokens", resp.UsageMetadata.CandidatesTokenCount),
		)
	}
	return text, nil
}

// StatusCode extracts the HTTP status of a failed API call, or 0 when err
// did not come from the API.
func StatusCode(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}
