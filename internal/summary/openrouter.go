package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	ProviderOpenRouter = "openrouter"

	DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	DefaultOpenRouterModel   = "deepseek/deepseek-r1-distill-llama-70b:free"

	maxResponseSize = 1 << 20
)

type OpenRouterConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	SiteURL  string // sent as HTTP-Referer
	SiteName string // sent as X-Title
	Client   *http.Client
	Logger   *slog.Logger
}

// OpenRouter calls the OpenRouter chat completions API with a single user
// message. It does not retry.
type OpenRouter struct {
	cfg OpenRouterConfig
}

func NewOpenRouter(cfg OpenRouterConfig) *OpenRouter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenRouterBaseURL
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	if cfg.Model == "" {
		cfg.Model = DefaultOpenRouterModel
	}

	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &OpenRouter{cfg: cfg}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Code    any    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (o *OpenRouter) Summarize(ctx context.Context, title, author string) (string, error) {
	if o.cfg.APIKey == "" {
		return "", o.fail(0, errNoApiKey)
	}

	bs, err := json.Marshal(chatRequest{
		Model:    o.cfg.Model,
		Messages: []chatMessage{{Role: "user", Content: Prompt(title, author)}},
	})
	if err != nil {
		return "", fmt.Errorf("marshalling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.BaseURL+"/chat/completions",
		bytes.NewReader(bs))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)
	if o.cfg.SiteURL != "" {
		req.Header.Set("HTTP-Referer", o.cfg.SiteURL)
	}
	if o.cfg.SiteName != "" {
		req.Header.Set("X-Title", o.cfg.SiteName)
	}

	start := time.Now()

	res, err := o.cfg.Client.Do(req)
	if err != nil {
		return "", o.fail(0, fmt.Errorf("request failed: %w", err))
	}

	var body []byte
	func() {
		defer res.Body.Close()
		body, err = io.ReadAll(io.LimitReader(res.Body, maxResponseSize))
	}()

	if err != nil {
		return "", o.fail(res.StatusCode, fmt.Errorf("reading response: %w", err))
	}

	o.cfg.Logger.DebugContext(ctx, "OpenRouter responded",
		slog.Int("status", res.StatusCode),
		slog.Duration("took", time.Since(start)),
		slog.Int("bytes", len(body)))

	var data chatResponse
	decodeErr := json.Unmarshal(body, &data)

	if res.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(body))
		if decodeErr == nil && data.Error != nil && data.Error.Message != "" {
			msg = data.Error.Message
		}
		return "", o.fail(res.StatusCode, errors.New(truncate(msg, 200)))
	}

	if decodeErr != nil {
		return "", o.fail(res.StatusCode, fmt.Errorf("malformed response: %w", decodeErr))
	}

	if data.Error != nil {
		return "", o.fail(res.StatusCode, errors.New(data.Error.Message))
	}

	if len(data.Choices) == 0 {
		return "", o.fail(res.StatusCode, errors.New("no choices in response"))
	}

	content := strings.TrimSpace(data.Choices[0].Message.Content)
	if content == "" {
		return "", o.fail(res.StatusCode, errors.New("empty content in response"))
	}

	return content, nil
}

func (o *OpenRouter) fail(status int, err error) *RemoteError {
	return &RemoteError{Provider: ProviderOpenRouter, Status: status, Err: err}
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}

	return s[:n] + "..."
}
