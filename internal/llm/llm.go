package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// Generator is the AI service boundary: a prompt goes in, raw reply text comes out.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	ModelID() string
}

// Pinger is implemented by generators that can check their endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// New builds a generator for the configured provider. Real providers are
// wrapped so that prompt length and call timeout limits apply.
func New(ctx context.Context, cfg Config) (Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var base Generator
	var err error
	switch cfg.Provider {
	case ProviderOpenAI:
		base = NewOpenAIClient(cfg)
	case ProviderGemini:
		base, err = NewGeminiClient(ctx, cfg)
	case ProviderMock:
		return NewMockGenerator(), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}
	return &limited{inner: base, maxChars: cfg.MaxPromptChars, timeout: cfg.Timeout}, nil
}

type limited struct {
	inner    Generator
	maxChars int
	timeout  time.Duration
}

func (l *limited) Generate(ctx context.Context, prompt string) (string, error) {
	if l.maxChars > 0 && utf8.RuneCountInString(prompt) > l.maxChars {
		slog.Warn("prompt exceeds limit, truncating", "chars", utf8.RuneCountInString(prompt), "limit", l.maxChars)
		prompt = Truncate(prompt, l.maxChars)
	}
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := l.inner.Generate(ctx, prompt)
	slog.Debug("LLM call finished", "model", l.inner.ModelID(), "duration", time.Since(start), "error", err)
	return raw, err
}

func (l *limited) ModelID() string { return l.inner.ModelID() }

func (l *limited) Ping(ctx context.Context) error {
	if p, ok := l.inner.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Truncate cuts s to at most n characters.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

var jsonFence = regexp.MustCompile("(?is)```json\\s*(.*?)\\s*```")

// DecodeJSON interprets an AI reply as JSON. The reply may be a fenced code
// block labeled json or a bare JSON body; anything else is a ResponseFormatError.
func DecodeJSON(raw string, v any) error {
	body := strings.TrimSpace(raw)
	if m := jsonFence.FindStringSubmatch(body); m != nil {
		body = m[1]
	}
	if body == "" {
		return &ResponseFormatError{Raw: raw, Err: errors.New("empty body")}
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return &ResponseFormatError{Raw: raw, Err: err}
	}
	return nil
}

// DecodeReply decodes like DecodeJSON and then checks the validate tags of v,
// so a well-formed object of the wrong shape is also a ResponseFormatError.
func DecodeReply(raw string, v any) error {
	if err := DecodeJSON(raw, v); err != nil {
		return err
	}
	if err := validate.Struct(v); err != nil {
		return &ResponseFormatError{Raw: raw, Err: fmt.Errorf("unexpected reply shape: %w", err)}
	}
	return nil
}
