package core

import "context"

// TurnsRepository is the durable conversation log, keyed by user id.
// Save performs read-modify-write semantics on the whole log and keeps only
// the most recent MaxHistory turns.
type TurnsRepository interface {
	Load(ctx context.Context, userID int64) ([]Turn, error)
	Save(ctx context.Context, userID int64, turns []Turn) error
	Delete(ctx context.Context, userID int64) error
}

// LedgerRow mirrors one spreadsheet row of a user's ledger.
type LedgerRow struct {
	UserID    string
	Username  string
	Timestamp string
	Category  string
	Amount    string
	Currency  string
	Source    string
}

// Ledger is the append-only per-user row store. Per-user storage (including
// the header row) is provisioned lazily on first access.
type Ledger interface {
	Append(ctx context.Context, userID int64, rows []ValidatedRow) error
	ReadAll(ctx context.Context, userID int64) ([]LedgerRow, error)
	AppendError(ctx context.Context, user User, originalMessage string, items []FinancialItem) error
}
