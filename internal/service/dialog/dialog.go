package dialog

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sandevgo/finbot/internal/core"
	"github.com/sandevgo/finbot/internal/finance"
	"github.com/sandevgo/finbot/internal/service/extract"
	"github.com/sandevgo/finbot/internal/service/history"
	"github.com/sandevgo/finbot/internal/service/pending"
	"github.com/sandevgo/finbot/pkg/log"
)

// Presenter is the transport-side surface the orchestrator talks back
// through. One Presenter is bound to one incoming update.
type Presenter interface {
	// Reply delivers the final text of a reply cycle.
	Reply(ctx context.Context, text string) error
	// NotifySearching shows a transient search progress notice and returns
	// a function that retracts it.
	NotifySearching(ctx context.Context, stage int) (retract func(), err error)
	// AskContinueOrStop asks the user whether the exhausted search budget
	// should be renewed.
	AskContinueOrStop(ctx context.Context, stage int) error
	// AskConfirmation shows the staged operations with approve and reject
	// buttons.
	AskConfirmation(ctx context.Context, text string) error
}

const (
	msgRecorded       = "✅ Операция(и) записаны."
	msgCancelled      = "❌ Операции отменены."
	msgNoPending      = "Нет операций для подтверждения."
	msgNoActiveSearch = "Нет активного поиска."

	msgClarify = "⚠️ Я увидел финансовые данные, но не смог их корректно распознать. " +
		"Пожалуйста, укажи сумму и валюту (например: 1000 руб), чтобы я мог внести запись " +
		"в файл с вашими финансами."

	msgSearchExhausted = "Не удалось найти дополнительную информацию по этому запросу."

	searchResultTurn = "Вот, что удалось найти по теме: «%s»: %s\n\n" +
		"Пожалуйста, проанализируй информацию и ответь кратко по сути. " +
		"Если в тексте есть ссылки — обязательно упоминай их в ответе, не скрывай. " +
		"Пользователь хочет видеть ссылки прямо в ответе."

	stopSearchTurn = "Поиск остановлен пользователем. Пожалуйста, продолжи ответ, " +
		"используя уже доступную информацию, и не используй SEARCH:."
)

// session tracks the search escalation state of one user's current reply
// cycle. It is replaced at every new top-level message.
type session struct {
	count     int
	awaiting  bool
	candidate string
	original  string
}

// Orchestrator drives one reply cycle: completion, bounded search
// escalation, delivery, and financial extraction.
type Orchestrator struct {
	llm       core.Completer
	searcher  core.Searcher
	history   *history.Store
	extractor *extract.Extractor
	pending   *pending.Store
	ledger    core.Ledger
	now       func() time.Time

	mu       sync.Mutex
	sessions map[int64]*session
}

func New(llm core.Completer, searcher core.Searcher, hist *history.Store, extr *extract.Extractor, pend *pending.Store, ledger core.Ledger) *Orchestrator {
	return &Orchestrator{
		llm:       llm,
		searcher:  searcher,
		history:   hist,
		extractor: extr,
		pending:   pend,
		ledger:    ledger,
		now:       time.Now,
		sessions:  make(map[int64]*session),
	}
}

// HandleMessage runs one full reply cycle for a top-level user message. Any
// suspended search escalation from a previous cycle is discarded.
func (o *Orchestrator) HandleMessage(ctx context.Context, user core.User, text string, p Presenter) error {
	sess := o.resetSession(user.ID)

	o.history.Ensure(ctx, user.ID)
	o.history.Append(ctx, user.ID, core.RoleUser, text)

	log.FromCtx(ctx).Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("message received")

	reply, err := o.complete(ctx, user.ID)
	if err != nil {
		return err
	}
	return o.advance(ctx, user, text, reply, sess, p)
}

// advance drives automatic search rounds until the model stops asking for
// them or the per-cycle budget runs out, then either suspends or finalizes.
func (o *Orchestrator) advance(ctx context.Context, user core.User, original, reply string, sess *session, p Presenter) error {
	for hasSearchMarker(reply) {
		if sess.count >= core.MaxSearchDepth {
			sess.awaiting = true
			sess.candidate = reply
			sess.original = original
			log.FromCtx(ctx).Info().Int64("user_id", user.ID).Int("rounds", sess.count).Msg("search budget exhausted, awaiting decision")
			return p.AskContinueOrStop(ctx, sess.count)
		}

		var err error
		reply, err = o.searchStep(ctx, user.ID, reply, sess, p)
		if err != nil {
			return err
		}
	}
	return o.finalize(ctx, user, original, reply, p)
}

// searchStep performs one search round: run the query the model asked for,
// feed the results back as a user-role turn, and regenerate.
func (o *Orchestrator) searchStep(ctx context.Context, userID int64, reply string, sess *session, p Presenter) (string, error) {
	query := parseSearchQuery(reply)
	stage := sess.count + 1

	retract, err := p.NotifySearching(ctx, stage)
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Msg("failed to show search notice")
	}

	log.FromCtx(ctx).Info().Int64("user_id", userID).Int("stage", stage).Str("query", query).Msg("running web search")
	results := o.searcher.Search(ctx, query)

	if retract != nil {
		retract()
	}

	sess.count++
	o.history.Append(ctx, userID, core.RoleUser, fmt.Sprintf(searchResultTurn, query, results))

	return o.complete(ctx, userID)
}

// finalize records the model turn, delivers the reply, and runs the
// financial extraction pipeline over the original user message.
func (o *Orchestrator) finalize(ctx context.Context, user core.User, original, reply string, p Presenter) error {
	o.history.Append(ctx, user.ID, core.RoleModel, reply)
	o.history.Persist(ctx, user.ID)

	if err := p.Reply(ctx, reply); err != nil {
		log.FromCtx(ctx).Error().Err(err).Int64("user_id", user.ID).Msg("failed to deliver reply")
	}

	items := extract.Dedupe(o.extractor.Items(ctx, original))
	if len(items) == 0 {
		return nil
	}

	valid := o.validate(user, original, items)
	if len(valid) > 0 {
		o.pending.Put(user.ID, valid)
		return p.AskConfirmation(ctx, confirmationText(valid))
	}

	// The classifier saw money but nothing passed validation; keep the raw
	// batch for review and ask the user to restate.
	if err := o.ledger.AppendError(ctx, user, original, items); err != nil {
		log.FromCtx(ctx).Error().Err(err).Int64("user_id", user.ID).Msg("failed to record invalid extraction")
	}
	return p.Reply(ctx, msgClarify)
}

func (o *Orchestrator) validate(user core.User, original string, items []core.FinancialItem) []core.ValidatedRow {
	var valid []core.ValidatedRow
	for _, it := range items {
		category := strings.ToLower(strings.TrimSpace(it.Category))
		amount := strings.TrimSpace(it.Amount)
		currency := strings.TrimSpace(it.Currency)
		if !finance.IsValidItem(category, amount, currency) {
			continue
		}

		source := it.Text
		if source == "" {
			source = original
		}
		valid = append(valid, core.ValidatedRow{
			UserID:     user.ID,
			Username:   user.Handle(),
			Timestamp:  o.now().Format(core.TimestampLayout),
			Category:   category,
			Amount:     amount,
			Currency:   finance.NormalizeCurrency(currency),
			SourceText: source,
		})
	}
	return valid
}

// ResolveConfirmation consumes the staged batch. The batch is gone after
// this call whether the user approved or not; found reports whether there
// was anything to resolve.
func (o *Orchestrator) ResolveConfirmation(ctx context.Context, user core.User, approved bool) (text string, found bool, err error) {
	rows, ok := o.pending.Take(user.ID)
	if !ok {
		return msgNoPending, false, nil
	}

	if !approved {
		log.FromCtx(ctx).Info().Int64("user_id", user.ID).Int("rows", len(rows)).Msg("staged operations rejected")
		return msgCancelled, true, nil
	}

	if err := o.ledger.Append(ctx, user.ID, rows); err != nil {
		return "", true, err
	}
	return msgRecorded, true, nil
}

// ResumeContinue renews the search budget of a suspended escalation and
// drives it further from the last candidate reply.
func (o *Orchestrator) ResumeContinue(ctx context.Context, user core.User, p Presenter) error {
	sess := o.takeAwaiting(user.ID)
	if sess == nil {
		return p.Reply(ctx, msgNoActiveSearch)
	}

	sess.count = 0
	return o.advance(ctx, user, sess.original, sess.candidate, sess, p)
}

// ResumeStop abandons a suspended escalation: the model is told to answer
// from what it already has, and that answer closes the cycle.
func (o *Orchestrator) ResumeStop(ctx context.Context, user core.User, p Presenter) error {
	sess := o.takeAwaiting(user.ID)
	if sess == nil {
		return p.Reply(ctx, msgNoActiveSearch)
	}

	o.history.Append(ctx, user.ID, core.RoleUser, stopSearchTurn)

	reply, err := o.complete(ctx, user.ID)
	if err != nil {
		return err
	}
	if hasSearchMarker(reply) {
		reply = stripSearchMarker(reply)
	}
	return o.finalize(ctx, user, sess.original, reply, p)
}

// Reset clears the user's conversation along with any suspended search
// escalation.
func (o *Orchestrator) Reset(ctx context.Context, userID int64) error {
	o.mu.Lock()
	delete(o.sessions, userID)
	o.mu.Unlock()
	return o.history.Reset(ctx, userID)
}

func (o *Orchestrator) complete(ctx context.Context, userID int64) (string, error) {
	reply, err := o.llm.TextCompletion(ctx, o.history.Prompt(ctx, userID))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

func (o *Orchestrator) resetSession(userID int64) *session {
	o.mu.Lock()
	defer o.mu.Unlock()
	sess := &session{}
	o.sessions[userID] = sess
	return sess
}

func (o *Orchestrator) takeAwaiting(userID int64) *session {
	o.mu.Lock()
	defer o.mu.Unlock()
	sess := o.sessions[userID]
	if sess == nil || !sess.awaiting {
		return nil
	}
	sess.awaiting = false
	return sess
}

func hasSearchMarker(text string) bool {
	return strings.Contains(text, core.SearchMarker)
}

// parseSearchQuery takes the text after the marker up to the first newline.
func parseSearchQuery(text string) string {
	_, after, _ := strings.Cut(text, core.SearchMarker)
	if i := strings.IndexByte(after, '\n'); i >= 0 {
		after = after[:i]
	}
	return strings.TrimSpace(after)
}

// stripSearchMarker removes marker lines from a reply that must reach the
// user. A reply that was nothing but marker lines gets a fixed fallback.
func stripSearchMarker(text string) string {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), core.SearchMarker) {
			continue
		}
		kept = append(kept, line)
	}
	out := strings.TrimSpace(strings.Join(kept, "\n"))
	if out == "" {
		return msgSearchExhausted
	}
	return out
}

func confirmationText(rows []core.ValidatedRow) string {
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, fmt.Sprintf("• %s %s %s (%s)", r.Category, r.Amount, r.Currency, r.SourceText))
	}
	return fmt.Sprintf("Я распознал Вашу личную финансовую операцию:\n%s\n\nПодтвердите запись:", strings.Join(lines, "\n"))
}
