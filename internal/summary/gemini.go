package summary

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

const (
	ProviderGemini = "gemini"

	DefaultGeminiModel = "gemini-2.5-flash-lite"
)

type GeminiConfig struct {
	APIKey string
	Model  string
	// BaseURL overrides the Gemini API endpoint, empty keeps the default.
	BaseURL string
	Client  *http.Client
}

// Gemini generates summaries with the Google Gemini API. Without an API key
// it is still usable, every call then fails with a RemoteError.
type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	g := &Gemini{model: cfg.Model}
	if g.model == "" {
		g.model = DefaultGeminiModel
	}

	if cfg.APIKey == "" {
		return g, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  cfg.Client,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}

	g.client = client
	return g, nil
}

func (g *Gemini) Summarize(ctx context.Context, title, author string) (string, error) {
	if g.client == nil {
		return "", &RemoteError{Provider: ProviderGemini, Err: errNoApiKey}
	}

	res, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(Prompt(title, author)), nil)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", &RemoteError{Provider: ProviderGemini, Status: apiErr.Code, Err: errors.New(apiErr.Message)}
		}

		return "", &RemoteError{Provider: ProviderGemini, Err: err}
	}

	text := strings.TrimSpace(res.Text())
	if text == "" {
		return "", &RemoteError{Provider: ProviderGemini, Err: errors.New("empty content in response")}
	}

	return text, nil
}
