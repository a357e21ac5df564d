package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/finbot/pkg/log"
)

// FallbackConfig points at any OpenAI-compatible endpoint used when the
// primary provider is unavailable.
type FallbackConfig struct {
	APIKey  string `env:"FALLBACK_API_KEY"`
	Model   string `env:"FALLBACK_MODEL" envDefault:"gpt-4o-mini"`
	BaseURL string `env:"FALLBACK_BASE_URL"`
}

func NewFallbackConfig(ctx context.Context) *FallbackConfig {
	c := &FallbackConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Fallback config")
	}
	return c
}

func (c FallbackConfig) Enabled() bool {
	return c.APIKey != ""
}
