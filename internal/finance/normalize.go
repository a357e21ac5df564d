// Package finance holds the canonical vocabulary for financial records and
// the pure validation/normalization rules applied to classifier output.
package finance

import "strings"

// Canonical categories. Stored values stay in the user's language so the
// spreadsheet matches what the classifier prompt asks for.
const (
	CategoryExpense    = "расход"
	CategoryIncome     = "доход"
	CategoryInvestment = "инвестиции"
	CategoryOther      = "другое"
)

var allowedCategories = map[string]struct{}{
	CategoryExpense:    {},
	CategoryIncome:     {},
	CategoryInvestment: {},
	CategoryOther:      {},
}

// Canonical currency codes.
const (
	CurrencyRUB = "RUB"
	CurrencyUSD = "USD"
	CurrencyEUR = "EUR"
	CurrencyCNY = "CNY"
)

// currencyAliases maps symbols, words and inflected forms to codes. Kept as
// an ordered slice: substring matching scans first to last, so an ambiguous
// short token always resolves to the same code.
var currencyAliases = []struct {
	alias string
	code  string
}{
	{"₽", CurrencyRUB}, {"руб.", CurrencyRUB}, {"руб", CurrencyRUB}, {"рублей", CurrencyRUB}, {"рубля", CurrencyRUB},
	{"$", CurrencyUSD}, {"доллар", CurrencyUSD}, {"долларов", CurrencyUSD}, {"usd", CurrencyUSD},
	{"€", CurrencyEUR}, {"евро", CurrencyEUR},
	{"юань", CurrencyCNY}, {"юаней", CurrencyCNY}, {"юаня", CurrencyCNY}, {"¥", CurrencyCNY},
}

// NormalizeCurrency maps a free-form currency token to a canonical code.
// A token matches an alias either exactly or as a substring of the alias key,
// which tolerates inflected input at the cost of false positives on short
// tokens. Unknown input passes through uppercased; this function never fails.
func NormalizeCurrency(raw string) string {
	v := strings.ToLower(strings.TrimSpace(raw))
	for _, a := range currencyAliases {
		if v == a.alias || (v != "" && strings.Contains(a.alias, v)) {
			return a.code
		}
	}
	return strings.ToUpper(v)
}

// IsValidItem reports whether a raw classifier item can become a ledger row:
// known category, non-negative decimal amount, non-empty currency.
func IsValidItem(category, amount, currency string) bool {
	cat := strings.ToLower(strings.TrimSpace(category))
	if _, ok := allowedCategories[cat]; !ok {
		return false
	}
	if !isDecimal(strings.TrimSpace(amount)) {
		return false
	}
	return strings.TrimSpace(currency) != ""
}

// isDecimal accepts digit runs with at most one decimal point, e.g. "500"
// and "12.50" but not "1.2.3", "-5" or "abc".
func isDecimal(s string) bool {
	if s == "" {
		return false
	}
	dots := 0
	digits := 0
	for _, r := range s {
		switch {
		case r == '.':
			dots++
			if dots > 1 {
				return false
			}
		case r >= '0' && r <= '9':
			digits++
		default:
			return false
		}
	}
	return digits > 0
}
