// Package summary asks a text-generation API for a short summary of a book.
package summary

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"bestsellers/internal/metrics"
	"bestsellers/internal/types"
)

// Summarizer generates a summary of a book. Failures of the remote side are
// reported as *RemoteError.
type Summarizer interface {
	Summarize(ctx context.Context, title, author string) (string, error)
}

var errNoApiKey = errors.New("API key is not configured")

// RemoteError is any failure of a summary provider: transport errors, error
// statuses, malformed or empty responses.
type RemoteError struct {
	Provider string
	Status   int // HTTP status when the provider answered, 0 otherwise
	Err      error
}

func (e *RemoteError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.Status, e.Err)
	}

	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

func Prompt(title, author string) string {
	return fmt.Sprintf("Please provide a brief summary of the book '%s' by %s. Keep it concise and informative.",
		title, author)
}

// Service turns summarizer results into something the UI can show as is.
type Service struct {
	summarizer Summarizer
	provider   string
	timeout    time.Duration
	policy     *bluemonday.Policy
	logger     *slog.Logger
}

// NewService wraps s. A positive timeout bounds every call in addition to
// the caller's context.
func NewService(s Summarizer, provider string, timeout time.Duration, l *slog.Logger) *Service {
	return &Service{
		summarizer: s,
		provider:   provider,
		timeout:    timeout,
		policy:     bluemonday.StrictPolicy(),
		logger:     l,
	}
}

// Describe requests a summary of book. It never fails: when the provider
// does, the returned summary is marked Failed and carries the error message
// as its text.
func (s *Service) Describe(ctx context.Context, book types.Book) (ret types.Summary) {
	ret = types.Summary{Title: book.Title, Author: book.Author}

	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "Summarizer panicked", slog.Any("panic", r))
			ret.Text = failureText(fmt.Errorf("%v", r))
			ret.Failed = true
			metrics.SummariesTotal.WithLabelValues(s.provider, "failure").Inc()
		}
	}()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	s.logger.DebugContext(ctx, "Requesting summary for "+book.Title+" by "+book.Author)

	start := time.Now()
	text, err := s.summarizer.Summarize(ctx, book.Title, book.Author)
	metrics.SummaryDuration.WithLabelValues(s.provider).Observe(time.Since(start).Seconds())

	if err == nil {
		text = s.plainText(text)
		if text == "" {
			err = &RemoteError{Provider: s.provider, Err: fmt.Errorf("summary is empty after sanitizing")}
		}
	}

	if err != nil {
		s.logger.WarnContext(ctx, "Failed to get summary for "+book.Title+": "+err.Error())
		metrics.SummariesTotal.WithLabelValues(s.provider, "failure").Inc()
		ret.Text = failureText(err)
		ret.Failed = true
		return ret
	}

	metrics.SummariesTotal.WithLabelValues(s.provider, "success").Inc()
	ret.Text = text
	return ret
}

// plainText drops any markup the model produced and decodes entities.
func (s *Service) plainText(text string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(text)))
}

func failureText(err error) string {
	return "Error getting summary: " + err.Error()
}
