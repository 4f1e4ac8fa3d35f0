package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// GeminiClient talks to the Gemini API.
type GeminiClient struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewGeminiClient creates a Gemini client from the gateway config.
func NewGeminiClient(ctx context.Context, cfg Config) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}
	return &GeminiClient{
		client:      client,
		model:       cfg.ModelName,
		temperature: float32(cfg.ResponseTemperature),
	}, nil
}

// Generate sends the prompt with a JSON-only response MIME type.
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	temp := c.temperature
	config := &genai.GenerateContentConfig{
		Temperature:      &temp,
		ResponseMIMEType: "application/json",
	}
	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: prompt}},
	}}

	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return "", mapGeminiError(err)
	}
	text := result.Text()
	if text == "" {
		return "", &ServiceError{Message: "Gemini returned no text"}
	}
	return text, nil
}

// ModelID returns the configured model name.
func (c *GeminiClient) ModelID() string { return c.model }

func mapGeminiError(err error) error {
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		return &ServiceError{StatusCode: apiErr.Code, Message: err.Error(), Err: err}
	}
	return &ServiceError{Message: err.Error(), Err: err}
}
