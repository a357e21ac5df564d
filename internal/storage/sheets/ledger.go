package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/sandevgo/finbot/internal/config"
	"github.com/sandevgo/finbot/internal/core"
	"github.com/sandevgo/finbot/pkg/log"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const errorSheetTitle = "ошибки"

var (
	ledgerHeader = []any{"User ID", "Username", "Дата и время", "Категория", "Сумма", "Валюта", "Источник"}
	errorHeader  = []any{"User ID", "Username", "Дата и время", "Оригинал", "Сырые данные"}
)

// Ledger stores confirmed operations in a Google spreadsheet, one worksheet
// per user. Worksheets are provisioned lazily, together with their header row.
type Ledger struct {
	svc           *sheets.Service
	spreadsheetID string

	mu    sync.Mutex
	known map[string]bool
}

func NewLedger(ctx context.Context, cfg *config.SheetsConfig) (*Ledger, error) {
	creds, err := os.ReadFile(cfg.CredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	jwtConf, err := google.JWTConfigFromJSON(creds, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account credentials: %w", err)
	}

	svc, err := sheets.NewService(ctx, option.WithHTTPClient(jwtConf.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Ledger{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		known:         make(map[string]bool),
	}, nil
}

func userSheetTitle(userID int64) string {
	return fmt.Sprintf("user_%d", userID)
}

func (l *Ledger) Append(ctx context.Context, userID int64, rows []core.ValidatedRow) error {
	if len(rows) == 0 {
		return nil
	}

	title := userSheetTitle(userID)
	if err := l.ensureSheet(ctx, title, ledgerHeader); err != nil {
		return err
	}

	values := make([][]any, 0, len(rows))
	for _, r := range rows {
		values = append(values, []any{
			strconv.FormatInt(r.UserID, 10),
			r.Username,
			r.Timestamp,
			r.Category,
			r.Amount,
			r.Currency,
			r.SourceText,
		})
	}

	if err := l.appendValues(ctx, title, values); err != nil {
		return fmt.Errorf("failed to append ledger rows: %w", err)
	}

	log.FromCtx(ctx).Info().Int64("user_id", userID).Int("rows", len(rows)).Msg("ledger rows recorded")
	return nil
}

func (l *Ledger) ReadAll(ctx context.Context, userID int64) ([]core.LedgerRow, error) {
	title := userSheetTitle(userID)
	if err := l.ensureSheet(ctx, title, ledgerHeader); err != nil {
		return nil, err
	}

	resp, err := l.svc.Spreadsheets.Values.Get(l.spreadsheetID, title+"!A:G").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger rows: %w", err)
	}

	var rows []core.LedgerRow
	for i, raw := range resp.Values {
		if i == 0 {
			// header row
			continue
		}
		rows = append(rows, parseLedgerRow(raw))
	}
	return rows, nil
}

// AppendError records an extraction batch that failed validation, keeping the
// original message and the raw items for later review.
func (l *Ledger) AppendError(ctx context.Context, user core.User, originalMessage string, items []core.FinancialItem) error {
	if err := l.ensureSheet(ctx, errorSheetTitle, errorHeader); err != nil {
		return err
	}

	rawItems, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to marshal invalid items: %w", err)
	}

	row := []any{
		strconv.FormatInt(user.ID, 10),
		user.Handle(),
		time.Now().Format(core.TimestampLayout),
		originalMessage,
		string(rawItems),
	}

	if err := l.appendValues(ctx, errorSheetTitle, [][]any{row}); err != nil {
		return fmt.Errorf("failed to append error row: %w", err)
	}

	log.FromCtx(ctx).Warn().Int64("user_id", user.ID).Int("items", len(items)).Msg("invalid extraction recorded")
	return nil
}

func (l *Ledger) appendValues(ctx context.Context, title string, values [][]any) error {
	_, err := l.svc.Spreadsheets.Values.
		Append(l.spreadsheetID, title+"!A1", &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

// ensureSheet creates the worksheet with its header row on first use. Known
// titles are cached so the spreadsheet metadata is fetched at most once per
// title per process.
func (l *Ledger) ensureSheet(ctx context.Context, title string, header []any) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.known[title] {
		return nil
	}

	meta, err := l.svc.Spreadsheets.Get(l.spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet metadata: %w", err)
	}

	for _, sh := range meta.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			l.known[title] = true
			return nil
		}
	}

	_, err = l.svc.Spreadsheets.BatchUpdate(l.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: title},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to add sheet %q: %w", title, err)
	}

	if err := l.appendValues(ctx, title, [][]any{header}); err != nil {
		return fmt.Errorf("failed to write header for %q: %w", title, err)
	}

	log.FromCtx(ctx).Info().Str("sheet", title).Msg("worksheet provisioned")
	l.known[title] = true
	return nil
}

func parseLedgerRow(raw []any) core.LedgerRow {
	return core.LedgerRow{
		UserID:    cellString(raw, 0),
		Username:  cellString(raw, 1),
		Timestamp: cellString(raw, 2),
		Category:  cellString(raw, 3),
		Amount:    cellString(raw, 4),
		Currency:  cellString(raw, 5),
		Source:    cellString(raw, 6),
	}
}

func cellString(raw []any, idx int) string {
	if idx >= len(raw) {
		return ""
	}
	s, ok := raw[idx].(string)
	if !ok {
		return fmt.Sprint(raw[idx])
	}
	return s
}
