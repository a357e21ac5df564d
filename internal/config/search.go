package config

import (
	"context"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/finbot/pkg/log"
)

type SearchConfig struct {
	BaseURL    string        `env:"SEARCH_BASE_URL" envDefault:"https://api.duckduckgo.com"`
	MaxResults int           `env:"SEARCH_MAX_RESULTS" envDefault:"5"`
	Timeout    time.Duration `env:"SEARCH_TIMEOUT" envDefault:"15s"`
}

func NewSearchConfig(ctx context.Context) *SearchConfig {
	c := &SearchConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Search config")
	}
	return c
}
