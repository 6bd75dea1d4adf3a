package assistant

import (
	"context"
	"testing"
	"time"
)

func TestLocalProviderReplies(t *testing.T) {
	p := NewLocalProvider(Config{Enabled: true})
	ctx := context.Background()

	for _, text := range []string{"hello", "add a task", "what time is it?", "random words"} {
		reply, err := p.SendMessage(ctx, text)
		if err != nil {
			t.Fatalf("SendMessage(%q): %v", text, err)
		}
		if reply == "" {
			t.Errorf("SendMessage(%q) returned empty reply", text)
		}
	}
}

func TestLocalProviderDisabled(t *testing.T) {
	p := NewLocalProvider(Config{Enabled: false})
	if p.Available() {
		t.Error("Expected unavailable when disabled")
	}
	if _, err := p.SendMessage(context.Background(), "hi"); err == nil {
		t.Error("Expected error when disabled")
	}
}

func TestTypingDelayWithinBounds(t *testing.T) {
	cfg := Config{Enabled: true, ThinkPause: 100 * time.Millisecond, JitterMax: 50 * time.Millisecond}
	p := NewLocalProvider(cfg)

	for range 20 {
		d := p.TypingDelay()
		if d < cfg.ThinkPause || d >= cfg.ThinkPause+cfg.JitterMax {
			t.Fatalf("TypingDelay %v outside [%v, %v)", d, cfg.ThinkPause, cfg.ThinkPause+cfg.JitterMax)
		}
	}
}

func TestSendMessageHonorsCancellation(t *testing.T) {
	p := NewLocalProvider(Config{Enabled: true})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.SendMessage(ctx, "hello"); err == nil {
		t.Error("Expected context error after cancellation")
	}
}
