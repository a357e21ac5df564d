package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/finbot/pkg/log"
)

// GeminiConfig drives the primary completion provider. An empty APIKey means
// the provider is skipped and the fallback chain starts at the next one.
type GeminiConfig struct {
	APIKey  string `env:"GEMINI_API_KEY"`
	Model   string `env:"GEMINI_MODEL" envDefault:"gemini-1.5-flash"`
	BaseURL string `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com"`
}

func NewGeminiConfig(ctx context.Context) *GeminiConfig {
	c := &GeminiConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Gemini config")
	}
	return c
}

func (c GeminiConfig) Enabled() bool {
	return c.APIKey != ""
}
