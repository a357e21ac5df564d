package core

const (
	BotName          = "FinBot"
	BotUserAgent     = "FinBot-Agent/0.1"
	BotRepositoryURL = "https://github.com/sandevgo/finbot"
	BotVersion       = "0.1.0"
)

const (
	RoleUser  = "user"
	RoleModel = "model"
)

const (
	// MaxHistory caps the per-user conversation log; oldest turns are
	// evicted first.
	MaxHistory = 1000

	// MaxSearchDepth is the number of automatic search rounds allowed
	// within one reply cycle before the user must decide to continue.
	MaxSearchDepth = 5

	// SearchMarker is the prefix the model uses to request a web lookup
	// instead of answering directly.
	SearchMarker = "SEARCH:"
)

// TimestampLayout is the wall-clock format written to ledger rows.
const TimestampLayout = "2006-01-02 15:04:05"

const anonymousUsername = "без_ника"

// Turn is one message of a conversation, attributed to the user or the model.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// User identifies a Telegram account within the bot.
type User struct {
	ID       int64
	Username string
}

// Handle returns the "@username" form used in ledger rows, with a fixed
// placeholder for accounts that have no username set.
func (u User) Handle() string {
	name := u.Username
	if name == "" {
		name = anonymousUsername
	}
	return "@" + name
}

// FinancialItem is a raw, untrusted transaction candidate as produced by the
// classifier. It becomes a ValidatedRow only after validation.
type FinancialItem struct {
	Category string `json:"category"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
	Text     string `json:"text"`
}

// Key is the deduplication key for extracted items.
func (i FinancialItem) Key() [4]string {
	return [4]string{i.Category, i.Amount, i.Currency, i.Text}
}

// ValidatedRow is a confirmed-shape financial record awaiting user approval.
type ValidatedRow struct {
	UserID     int64
	Username   string
	Timestamp  string
	Category   string
	Amount     string
	Currency   string
	SourceText string
}
