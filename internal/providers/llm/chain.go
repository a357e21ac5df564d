package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sandevgo/finbot/internal/core"
	"github.com/sandevgo/finbot/pkg/log"
)

// Provider is one named entry of the fallback chain.
type Provider struct {
	Name      string
	Completer core.Completer
}

// Chain tries providers in order and stops at the first success. When every
// provider fails, the returned error aggregates all attempts so the fallback
// path stays inspectable.
type Chain struct {
	providers []Provider
}

func NewChain(providers ...Provider) (*Chain, error) {
	if len(providers) == 0 {
		return nil, errors.New("no completion providers configured")
	}
	return &Chain{providers: providers}, nil
}

func (c *Chain) TextCompletion(ctx context.Context, prompt string) (string, error) {
	return c.try(ctx, func(p core.Completer) (string, error) {
		return p.TextCompletion(ctx, prompt)
	})
}

func (c *Chain) ChatCompletion(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.try(ctx, func(p core.Completer) (string, error) {
		return p.ChatCompletion(ctx, systemPrompt, userPrompt)
	})
}

func (c *Chain) try(ctx context.Context, call func(core.Completer) (string, error)) (string, error) {
	errs := make([]error, 0, len(c.providers))
	for _, p := range c.providers {
		text, err := call(p.Completer)
		if err == nil {
			return strings.TrimSpace(text), nil
		}
		log.FromCtx(ctx).Warn().Err(err).Str("provider", p.Name).Msg("completion provider failed, trying next")
		errs = append(errs, fmt.Errorf("%s: %w", p.Name, err))
	}
	return "", fmt.Errorf("no completion provider available: %w", errors.Join(errs...))
}
