// Package assistant provides the AI-response surface consumed by
// presentation code. Record services never call into it.
package assistant

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

// Provider generates assistant replies for user messages.
type Provider interface {
	// SendMessage returns the assistant's reply to text.
	SendMessage(ctx context.Context, text string) (string, error)

	// Available reports whether the provider can currently serve replies.
	Available() bool

	// TypingDelay returns how long the UI should show a typing indicator
	// before revealing the reply.
	TypingDelay() time.Duration
}

// Config holds local provider tuning.
type Config struct {
	Enabled    bool
	ThinkPause time.Duration
	JitterMax  time.Duration
}

// DefaultConfig returns default local provider configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:    true,
		ThinkPause: 800 * time.Millisecond,
		JitterMax:  400 * time.Millisecond,
	}
}

// LocalProvider is a rule-based canned responder used when no remote
// model is wired up. It keeps the message flow exercisable offline.
type LocalProvider struct {
	cfg Config
}

// NewLocalProvider creates a provider with the given config.
func NewLocalProvider(cfg Config) *LocalProvider {
	return &LocalProvider{cfg: cfg}
}

// Available reports whether the provider is enabled.
func (p *LocalProvider) Available() bool {
	return p.cfg.Enabled
}

// TypingDelay returns the think pause plus a little jitter.
func (p *LocalProvider) TypingDelay() time.Duration {
	if p.cfg.JitterMax <= 0 {
		return p.cfg.ThinkPause
	}
	return p.cfg.ThinkPause + rand.N(p.cfg.JitterMax)
}

// SendMessage picks a canned reply by keyword.
func (p *LocalProvider) SendMessage(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !p.cfg.Enabled {
		return "", fmt.Errorf("assistant is disabled")
	}

	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "hello"), strings.Contains(lower, "hi"):
		return "Hey! What can I help you with today?", nil
	case strings.Contains(lower, "task"), strings.Contains(lower, "todo"):
		return "I can help you track that. Want me to note it down as a task?", nil
	case strings.Contains(lower, "thank"):
		return "Happy to help!", nil
	case strings.HasSuffix(strings.TrimSpace(text), "?"):
		return "Good question. Let me think about that one for a moment.", nil
	default:
		return "Got it. Tell me more and I'll do my best to help.", nil
	}
}
