package dialog

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sandevgo/finbot/internal/core"
	"github.com/sandevgo/finbot/internal/service/extract"
	"github.com/sandevgo/finbot/internal/service/history"
	"github.com/sandevgo/finbot/internal/service/pending"
)

type memRepo struct {
	logs map[int64][]core.Turn
}

func (r *memRepo) Load(_ context.Context, userID int64) ([]core.Turn, error) {
	return r.logs[userID], nil
}

func (r *memRepo) Save(_ context.Context, userID int64, turns []core.Turn) error {
	r.logs[userID] = append([]core.Turn(nil), turns...)
	return nil
}

func (r *memRepo) Delete(_ context.Context, userID int64) error {
	delete(r.logs, userID)
	return nil
}

// scriptCompleter replays scripted replies in order; once exhausted it keeps
// returning the last one.
type scriptCompleter struct {
	replies []string
	idx     int
	chat    string
}

func (s *scriptCompleter) TextCompletion(_ context.Context, _ string) (string, error) {
	r := s.replies[s.idx]
	if s.idx < len(s.replies)-1 {
		s.idx++
	}
	return r, nil
}

func (s *scriptCompleter) ChatCompletion(_ context.Context, _, _ string) (string, error) {
	return s.chat, nil
}

type fakeSearcher struct {
	queries []string
	results string
}

func (f *fakeSearcher) Search(_ context.Context, query string) string {
	f.queries = append(f.queries, query)
	return f.results
}

type fakeLedger struct {
	appended  map[int64][]core.ValidatedRow
	errLogged [][]core.FinancialItem
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{appended: make(map[int64][]core.ValidatedRow)}
}

func (f *fakeLedger) Append(_ context.Context, userID int64, rows []core.ValidatedRow) error {
	f.appended[userID] = append(f.appended[userID], rows...)
	return nil
}

func (f *fakeLedger) ReadAll(_ context.Context, _ int64) ([]core.LedgerRow, error) {
	return nil, nil
}

func (f *fakeLedger) AppendError(_ context.Context, _ core.User, _ string, items []core.FinancialItem) error {
	f.errLogged = append(f.errLogged, items)
	return nil
}

type fakePresenter struct {
	replies       []string
	notices       []int
	retracted     int
	askedContinue []int
	confirmations []string
}

func (f *fakePresenter) Reply(_ context.Context, text string) error {
	f.replies = append(f.replies, text)
	return nil
}

func (f *fakePresenter) NotifySearching(_ context.Context, stage int) (func(), error) {
	f.notices = append(f.notices, stage)
	return func() { f.retracted++ }, nil
}

func (f *fakePresenter) AskContinueOrStop(_ context.Context, stage int) error {
	f.askedContinue = append(f.askedContinue, stage)
	return nil
}

func (f *fakePresenter) AskConfirmation(_ context.Context, text string) error {
	f.confirmations = append(f.confirmations, text)
	return nil
}

type fixture struct {
	orch     *Orchestrator
	repo     *memRepo
	searcher *fakeSearcher
	ledger   *fakeLedger
	p        *fakePresenter
}

func newFixture(t *testing.T, replies []string, classifierJSON string) *fixture {
	t.Helper()

	repo := &memRepo{logs: make(map[int64][]core.Turn)}
	hist, err := history.NewStore(repo)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	searcher := &fakeSearcher{results: "найденные данные https://example.org"}
	ledger := newFakeLedger()

	orch := New(
		&scriptCompleter{replies: replies},
		searcher,
		hist,
		extract.New(&scriptCompleter{replies: []string{""}, chat: classifierJSON}),
		pending.New(),
		ledger,
	)
	orch.now = func() time.Time { return time.Date(2026, 8, 28, 15, 0, 0, 0, time.UTC) }

	return &fixture{orch: orch, repo: repo, searcher: searcher, ledger: ledger, p: &fakePresenter{}}
}

var testUser = core.User{ID: 42, Username: "ivan"}

func TestHandleMessage_PlainReply(t *testing.T) {
	f := newFixture(t, []string{"Здравствуйте! Чем могу помочь?"}, "[]")

	if err := f.orch.HandleMessage(context.Background(), testUser, "Привет", f.p); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}

	if len(f.p.replies) != 1 || f.p.replies[0] != "Здравствуйте! Чем могу помочь?" {
		t.Errorf("replies = %+v", f.p.replies)
	}
	if len(f.searcher.queries) != 0 {
		t.Errorf("unexpected searches: %+v", f.searcher.queries)
	}
	if len(f.p.confirmations) != 0 {
		t.Errorf("unexpected confirmations: %+v", f.p.confirmations)
	}

	// The cycle persisted both the user turn and the model turn.
	turns := f.repo.logs[testUser.ID]
	if len(turns) == 0 {
		t.Fatal("history not persisted")
	}
	last := turns[len(turns)-1]
	if last.Role != core.RoleModel || last.Content != "Здравствуйте! Чем могу помочь?" {
		t.Errorf("last persisted turn = %+v", last)
	}
}

func TestHandleMessage_OneSearchRound(t *testing.T) {
	f := newFixture(t, []string{
		"SEARCH: текущий курс доллара к рублю",
		"Курс доллара сейчас около 90 рублей. Источник: https://example.org",
	}, "[]")

	if err := f.orch.HandleMessage(context.Background(), testUser, "Какой курс доллара?", f.p); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}

	if len(f.searcher.queries) != 1 || f.searcher.queries[0] != "текущий курс доллара к рублю" {
		t.Errorf("queries = %+v", f.searcher.queries)
	}
	if len(f.p.notices) != 1 || f.p.notices[0] != 1 {
		t.Errorf("notices = %+v", f.p.notices)
	}
	if f.p.retracted != 1 {
		t.Errorf("search notice not retracted, retracted = %d", f.p.retracted)
	}
	if len(f.p.replies) != 1 || !strings.Contains(f.p.replies[0], "90 рублей") {
		t.Errorf("replies = %+v", f.p.replies)
	}

	// The marker never reaches the user and the results turn entered history.
	for _, r := range f.p.replies {
		if strings.Contains(r, core.SearchMarker) {
			t.Errorf("marker leaked to user: %q", r)
		}
	}
	var foundResults bool
	for _, turn := range f.repo.logs[testUser.ID] {
		if strings.Contains(turn.Content, "Вот, что удалось найти по теме") {
			foundResults = turn.Role == core.RoleUser
		}
	}
	if !foundResults {
		t.Error("search results turn missing from history")
	}
}

func TestHandleMessage_BudgetExhaustedSuspends(t *testing.T) {
	// Initial completion plus every regeneration keeps asking for a search.
	f := newFixture(t, []string{"SEARCH: недостижимые данные"}, "[]")

	if err := f.orch.HandleMessage(context.Background(), testUser, "вопрос", f.p); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}

	if len(f.searcher.queries) != core.MaxSearchDepth {
		t.Errorf("ran %d searches, want exactly %d", len(f.searcher.queries), core.MaxSearchDepth)
	}
	if len(f.p.askedContinue) != 1 || f.p.askedContinue[0] != core.MaxSearchDepth {
		t.Errorf("askedContinue = %+v", f.p.askedContinue)
	}
	if len(f.p.replies) != 0 {
		t.Errorf("no reply should be delivered while suspended, got %+v", f.p.replies)
	}
}

func TestResumeContinue_RenewsBudget(t *testing.T) {
	// Six marker replies drive the cycle into suspension, the seventh answers.
	replies := make([]string, 0, 7)
	for i := 0; i < 6; i++ {
		replies = append(replies, "SEARCH: котировки нефти")
	}
	replies = append(replies, "Нефть торгуется около 80 долларов.")
	f := newFixture(t, replies, "[]")
	ctx := context.Background()

	if err := f.orch.HandleMessage(ctx, testUser, "что с нефтью?", f.p); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(f.p.askedContinue) != 1 {
		t.Fatalf("expected suspension, askedContinue = %+v", f.p.askedContinue)
	}

	if err := f.orch.ResumeContinue(ctx, testUser, f.p); err != nil {
		t.Fatalf("ResumeContinue: %v", err)
	}

	// The renewed window starts counting stages from one again.
	if last := f.p.notices[len(f.p.notices)-1]; last != 1 {
		t.Errorf("resumed stage = %d, want 1", last)
	}
	if len(f.searcher.queries) != core.MaxSearchDepth+1 {
		t.Errorf("total searches = %d", len(f.searcher.queries))
	}
	if len(f.p.replies) != 1 || !strings.Contains(f.p.replies[0], "80 долларов") {
		t.Errorf("replies = %+v", f.p.replies)
	}
}

func TestResumeStop_AnswersFromAvailableData(t *testing.T) {
	replies := make([]string, 0, 7)
	for i := 0; i < 6; i++ {
		replies = append(replies, "SEARCH: что-то ещё")
	}
	replies = append(replies, "По имеющимся данным точного ответа нет.")
	f := newFixture(t, replies, "[]")
	ctx := context.Background()

	if err := f.orch.HandleMessage(ctx, testUser, "вопрос", f.p); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	searchesBefore := len(f.searcher.queries)

	if err := f.orch.ResumeStop(ctx, testUser, f.p); err != nil {
		t.Fatalf("ResumeStop: %v", err)
	}

	if len(f.searcher.queries) != searchesBefore {
		t.Error("stop must not run further searches")
	}
	if len(f.p.replies) != 1 || f.p.replies[0] != "По имеющимся данным точного ответа нет." {
		t.Errorf("replies = %+v", f.p.replies)
	}

	var suppressed bool
	for _, turn := range f.repo.logs[testUser.ID] {
		if turn.Content == stopSearchTurn {
			suppressed = true
		}
	}
	if !suppressed {
		t.Error("stop turn missing from history")
	}
}

func TestResume_WithoutSuspension(t *testing.T) {
	f := newFixture(t, []string{"ответ"}, "[]")
	ctx := context.Background()

	if err := f.orch.ResumeContinue(ctx, testUser, f.p); err != nil {
		t.Fatalf("ResumeContinue: %v", err)
	}
	if err := f.orch.ResumeStop(ctx, testUser, f.p); err != nil {
		t.Fatalf("ResumeStop: %v", err)
	}

	if len(f.p.replies) != 2 || f.p.replies[0] != msgNoActiveSearch || f.p.replies[1] != msgNoActiveSearch {
		t.Errorf("replies = %+v", f.p.replies)
	}
}

func TestHandleMessage_StagesValidOperations(t *testing.T) {
	f := newFixture(t, []string{"Записал ваш расход."},
		`[{"category": "Расход", "amount": "500", "currency": "руб", "text": "обед"},
		  {"category": "расход", "amount": "500", "currency": "руб", "text": "обед"}]`)
	ctx := context.Background()

	if err := f.orch.HandleMessage(ctx, testUser, "потратил 500 руб на обед", f.p); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}

	if len(f.p.confirmations) != 1 {
		t.Fatalf("confirmations = %+v", f.p.confirmations)
	}
	// Case-insensitive duplicates differ by key, but validation lowercases
	// category, so both survive dedup yet normalize identically.
	if !strings.Contains(f.p.confirmations[0], "• расход 500 RUB (обед)") {
		t.Errorf("confirmation text = %q", f.p.confirmations[0])
	}

	text, found, err := f.orch.ResolveConfirmation(ctx, testUser, true)
	if err != nil || !found || text != msgRecorded {
		t.Fatalf("ResolveConfirmation: text=%q found=%v err=%v", text, found, err)
	}

	rows := f.ledger.appended[testUser.ID]
	if len(rows) == 0 {
		t.Fatal("nothing recorded to ledger")
	}
	want := core.ValidatedRow{
		UserID:     42,
		Username:   "@ivan",
		Timestamp:  "2026-08-28 15:00:00",
		Category:   "расход",
		Amount:     "500",
		Currency:   "RUB",
		SourceText: "обед",
	}
	if rows[0] != want {
		t.Errorf("row = %+v, want %+v", rows[0], want)
	}

	// The batch is consumed.
	if _, found, _ := f.orch.ResolveConfirmation(ctx, testUser, true); found {
		t.Error("batch should be gone after the first resolution")
	}
}

func TestResolveConfirmation_Rejection(t *testing.T) {
	f := newFixture(t, []string{"ок"},
		`[{"category": "доход", "amount": "1000", "currency": "$", "text": "зарплата"}]`)
	ctx := context.Background()

	if err := f.orch.HandleMessage(ctx, testUser, "получил 1000$", f.p); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}

	text, found, err := f.orch.ResolveConfirmation(ctx, testUser, false)
	if err != nil || !found || text != msgCancelled {
		t.Fatalf("text=%q found=%v err=%v", text, found, err)
	}
	if len(f.ledger.appended[testUser.ID]) != 0 {
		t.Error("rejected batch must not reach the ledger")
	}
}

func TestResolveConfirmation_NothingStaged(t *testing.T) {
	f := newFixture(t, []string{"ок"}, "[]")

	text, found, err := f.orch.ResolveConfirmation(context.Background(), testUser, true)
	if err != nil || found || text != msgNoPending {
		t.Errorf("text=%q found=%v err=%v", text, found, err)
	}
}

func TestHandleMessage_InvalidItemsGoToErrorLog(t *testing.T) {
	f := newFixture(t, []string{"Понял вас."},
		`[{"category": "расход", "amount": "немного", "currency": "руб", "text": "кофе"}]`)

	if err := f.orch.HandleMessage(context.Background(), testUser, "потратил немного на кофе", f.p); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}

	if len(f.p.confirmations) != 0 {
		t.Errorf("invalid items must not be staged: %+v", f.p.confirmations)
	}
	if len(f.ledger.errLogged) != 1 || len(f.ledger.errLogged[0]) != 1 {
		t.Fatalf("errLogged = %+v", f.ledger.errLogged)
	}
	if last := f.p.replies[len(f.p.replies)-1]; last != msgClarify {
		t.Errorf("last reply = %q", last)
	}
}

func TestParseSearchQuery(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"SEARCH: курс доллара", "курс доллара"},
		{"SEARCH:  курс доллара \nи ещё текст", "курс доллара"},
		{"Подумаю.\nSEARCH: нефть brent\nхвост", "нефть brent"},
	}
	for _, c := range cases {
		if got := parseSearchQuery(c.in); got != c.want {
			t.Errorf("parseSearchQuery(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestStripSearchMarker(t *testing.T) {
	if got := stripSearchMarker("SEARCH: запрос"); got != msgSearchExhausted {
		t.Errorf("got %q", got)
	}
	if got := stripSearchMarker("Вот ответ.\nSEARCH: запрос\nИ продолжение."); got != "Вот ответ.\nИ продолжение." {
		t.Errorf("got %q", got)
	}
}
