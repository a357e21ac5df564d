package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sandevgo/finbot/internal/core"
	"github.com/sandevgo/finbot/internal/finance"
	"github.com/sandevgo/finbot/pkg/log"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/xuri/excelize/v2"
)

// ErrNoData marks a report request over an empty or unusable ledger.
var ErrNoData = errors.New("no ledger data")

var exportHeader = []any{"User ID", "Username", "Дата и время", "Категория", "Сумма", "Валюта", "Источник"}

// Reporter builds downloadable views over a user's ledger.
type Reporter struct {
	ledger core.Ledger
}

func New(ledger core.Ledger) *Reporter {
	return &Reporter{ledger: ledger}
}

// PieChart renders the income versus expense structure as a PNG.
func (r *Reporter) PieChart(ctx context.Context, userID int64) ([]byte, error) {
	rows, err := r.ledger.ReadAll(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}

	totals := map[string]float64{
		finance.CategoryExpense: 0,
		finance.CategoryIncome:  0,
	}
	for _, row := range rows {
		category := strings.ToLower(strings.TrimSpace(row.Category))
		if _, ok := totals[category]; !ok {
			continue
		}
		amount := strings.TrimSpace(strings.ReplaceAll(row.Amount, ",", "."))
		v, err := strconv.ParseFloat(amount, 64)
		if err != nil || v <= 0 {
			continue
		}
		totals[category] += v
	}

	if totals[finance.CategoryExpense]+totals[finance.CategoryIncome] == 0 {
		return nil, ErrNoData
	}

	var values []chart.Value
	for _, category := range []string{finance.CategoryIncome, finance.CategoryExpense} {
		if totals[category] > 0 {
			values = append(values, chart.Value{Value: totals[category], Label: category})
		}
	}

	pie := chart.PieChart{
		Title:  "Структура: Доходы и Расходы",
		Width:  512,
		Height: 512,
		Values: values,
	}

	var buf bytes.Buffer
	if err := pie.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}

	log.FromCtx(ctx).Info().Int64("user_id", userID).Int("bytes", buf.Len()).Msg("pie chart rendered")
	return buf.Bytes(), nil
}

// ExportXLSX flattens the user's ledger into a single-sheet workbook.
func (r *Reporter) ExportXLSX(ctx context.Context, userID int64) ([]byte, error) {
	rows, err := r.ledger.ReadAll(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNoData
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	if err := f.SetSheetRow(sheet, "A1", &exportHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		cells := []any{row.UserID, row.Username, row.Timestamp, row.Category, row.Amount, row.Currency, row.Source}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}

	log.FromCtx(ctx).Info().Int64("user_id", userID).Int("rows", len(rows)).Msg("ledger exported")
	return buf.Bytes(), nil
}
