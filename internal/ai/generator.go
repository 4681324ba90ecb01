// Package ai is the boundary to the external text-generation service.
// The engine treats it as opaque: ordered role/content messages in,
// free-form text out. Anything structured must be extracted and parsed
// defensively by the caller.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/franckalain/nutriledger/internal/fault"
)

// Message is one role/content pair of a generation request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UserMessage builds a single-message request, the common case.
func UserMessage(content string) []Message {
	return []Message{{Role: "user", Content: content}}
}

// Generator produces free-form text from an ordered message list.
type Generator interface {
	// Load initializes the generator with its configuration.
	Load(ctx context.Context) error
	// GenerateText runs one completion request.
	GenerateText(ctx context.Context, messages []Message) (string, error)
}

// GeneratorFactory creates a new generator instance.
type GeneratorFactory interface {
	CreateGenerator() (Generator, error)
}

// NewGenerator creates a generator for the configured backend type.
func NewGenerator(backendType, configPath string) (Generator, error) {
	var factory GeneratorFactory

	switch backendType {
	case "google":
		config := GoogleConfig{
			BaseConfig: BaseConfig{ConfigPath: configPath},
		}
		if err := config.Load(); err != nil {
			return nil, fmt.Errorf("failed to load Google config: %w", err)
		}
		factory = NewGoogleGeneratorFactory(config)
	case "canned":
		factory = NewCannedGeneratorFactory()
	default:
		return nil, fmt.Errorf("unsupported generator type: %s", backendType)
	}
	return factory.CreateGenerator()
}

// CallOptions bound one generation call. Network suspension is expected
// here, so every call carries a timeout and a small retry budget.
type CallOptions struct {
	Timeout time.Duration
	Retries int // additional attempts after the first
	Backoff time.Duration
}

// DefaultCallOptions mirror the settings the app ships with: one retry
// with a short fixed backoff.
func DefaultCallOptions() CallOptions {
	return CallOptions{
		Timeout: 15 * time.Second,
		Retries: 1,
		Backoff: 500 * time.Millisecond,
	}
}

// Generate runs one request with timeout and bounded retry. Failures
// are classified as dependency degradation so callers can fall back to
// local defaults.
func Generate(ctx context.Context, g Generator, messages []Message, opts CallOptions) (string, error) {
	if opts.Timeout <= 0 {
		opts = DefaultCallOptions()
	}

	var lastErr error
	for attempt := 0; attempt <= opts.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", fault.Degraded("text generation", ctx.Err())
			case <-time.After(opts.Backoff):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
		text, err := g.GenerateText(callCtx, messages)
		cancel()
		if err == nil {
			return text, nil
		}
		lastErr = err
	}
	return "", fault.Degraded("text generation", lastErr)
}
