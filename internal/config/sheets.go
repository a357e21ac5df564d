package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/finbot/pkg/log"
)

type SheetsConfig struct {
	CredentialsPath string `env:"GOOGLE_CREDENTIALS_PATH,required,notEmpty"`
	SpreadsheetID   string `env:"FINANCE_SPREADSHEET_ID,required,notEmpty"`
}

func NewSheetsConfig(ctx context.Context) *SheetsConfig {
	c := &SheetsConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Sheets config")
	}
	return c
}
