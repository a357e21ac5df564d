package extract

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/sandevgo/finbot/internal/core"
	"github.com/sandevgo/finbot/pkg/log"
)

const classifierPrompt = "Ты выступаешь в роли классификатора пользовательских сообщений по учёту личных финансов. " +
	"Твоя задача — извлечь **все** упомянутые пользователем **фактические** финансовые операции, " +
	"даже если сумма кажется небольшой или незначительной. " +
	"Не фильтруй и не оценивай, важна ли сумма — если пользователь сообщил о транзакции с числом и валютой, это важно.\n\n" +
	"Извлекай только то, что касается **реальных операций пользователя** (его доходы, расходы, инвестиции). " +
	"Игнорируй гипотетические, шутки, аналитику и вопросы.\n\n" +
	"Для каждого действия укажи:\n" +
	"- category: расход / доход / инвестиции\n" +
	"- amount: число без пробелов\n" +
	"- currency: символ или слово (₽, $, €, юань и т.п.)\n" +
	"- text: короткий фрагмент, откуда взяты данные\n\n" +
	"Формат ответа: JSON-массив словарей, каждый из которых имеет ключи: category, amount, currency, text\n" +
	"Если нет ни одной подходящей операции — верни [].\n\n" +
	"Сообщение: "

// fencedJSON captures the first fenced ```json [...] ``` block; models often
// wrap the array even when asked for bare JSON.
var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\[.*?\\])\\s*```")

// Extractor turns a free-form user message into transaction candidates using
// the classifier model.
type Extractor struct {
	llm core.Completer
}

func New(llm core.Completer) *Extractor {
	return &Extractor{llm: llm}
}

// Items never fails: classifier errors and unparseable output both yield an
// empty result, so extraction can never break the dialogue path.
func (e *Extractor) Items(ctx context.Context, message string) []core.FinancialItem {
	logger := log.FromCtx(ctx)

	raw, err := e.llm.ChatCompletion(ctx, classifierPrompt+message, message)
	if err != nil {
		logger.Error().Err(err).Msg("classification request failed")
		return nil
	}
	logger.Debug().Str("response", raw).Msg("classifier response")

	jsonText := strings.TrimSpace(raw)
	if m := fencedJSON.FindStringSubmatch(raw); m != nil {
		jsonText = m[1]
	}

	var items []core.FinancialItem
	if err := json.Unmarshal([]byte(jsonText), &items); err != nil {
		logger.Error().Err(err).Str("payload", jsonText).Msg("failed to parse classifier output")
		return nil
	}
	return items
}

// Dedupe drops exact repeats of the same candidate, preserving first-seen
// order.
func Dedupe(items []core.FinancialItem) []core.FinancialItem {
	seen := make(map[[4]string]bool, len(items))
	unique := make([]core.FinancialItem, 0, len(items))
	for _, it := range items {
		key := it.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, it)
	}
	return unique
}
