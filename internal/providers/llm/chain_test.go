package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type stubCompleter struct {
	text string
	err  error
}

func (s *stubCompleter) TextCompletion(ctx context.Context, prompt string) (string, error) {
	return s.text, s.err
}

func (s *stubCompleter) ChatCompletion(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return s.text, s.err
}

func TestChain_NoProviders(t *testing.T) {
	if _, err := NewChain(); err == nil {
		t.Fatal("expected error for empty chain")
	}
}

func TestChain_FirstSuccessWins(t *testing.T) {
	chain, err := NewChain(
		Provider{Name: "primary", Completer: &stubCompleter{text: "  answer  "}},
		Provider{Name: "fallback", Completer: &stubCompleter{err: errors.New("should not be called")}},
	)
	if err != nil {
		t.Fatal(err)
	}

	got, err := chain.TextCompletion(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "answer" {
		t.Errorf("expected trimmed answer, got %q", got)
	}
}

func TestChain_FallsBackInOrder(t *testing.T) {
	chain, err := NewChain(
		Provider{Name: "primary", Completer: &stubCompleter{err: errors.New("quota exceeded")}},
		Provider{Name: "fallback", Completer: &stubCompleter{text: "backup answer"}},
	)
	if err != nil {
		t.Fatal(err)
	}

	got, err := chain.ChatCompletion(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "backup answer" {
		t.Errorf("got %q", got)
	}
}

func TestChain_AggregateErrorNamesAllProviders(t *testing.T) {
	chain, err := NewChain(
		Provider{Name: "primary", Completer: &stubCompleter{err: errors.New("down")}},
		Provider{Name: "fallback", Completer: &stubCompleter{err: errors.New("also down")}},
	)
	if err != nil {
		t.Fatal(err)
	}

	_, err = chain.TextCompletion(context.Background(), "prompt")
	if err == nil {
		t.Fatal("expected error when all providers fail")
	}
	for _, name := range []string{"primary", "fallback"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("aggregate error %q does not mention %s", err, name)
		}
	}
}
