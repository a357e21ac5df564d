package sheets

import (
	"testing"

	"github.com/sandevgo/finbot/internal/core"
)

func TestParseLedgerRow(t *testing.T) {
	raw := []any{"42", "@ivan", "2026-08-28 12:00:00", "расход", "500", "RUB", "обед"}

	got := parseLedgerRow(raw)
	want := core.LedgerRow{
		UserID:    "42",
		Username:  "@ivan",
		Timestamp: "2026-08-28 12:00:00",
		Category:  "расход",
		Amount:    "500",
		Currency:  "RUB",
		Source:    "обед",
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestParseLedgerRow_ShortRow(t *testing.T) {
	got := parseLedgerRow([]any{"42", "@ivan"})
	if got.UserID != "42" || got.Username != "@ivan" {
		t.Errorf("got %+v", got)
	}
	if got.Category != "" || got.Source != "" {
		t.Errorf("missing cells should be empty, got %+v", got)
	}
}

func TestUserSheetTitle(t *testing.T) {
	if got := userSheetTitle(123456); got != "user_123456" {
		t.Errorf("got %q", got)
	}
}
