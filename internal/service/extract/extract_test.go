package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/sandevgo/finbot/internal/core"
)

type stubCompleter struct {
	response string
	err      error
}

func (s *stubCompleter) TextCompletion(_ context.Context, _ string) (string, error) {
	return s.response, s.err
}

func (s *stubCompleter) ChatCompletion(_ context.Context, _, _ string) (string, error) {
	return s.response, s.err
}

func TestItems_ParsesFencedJSON(t *testing.T) {
	e := New(&stubCompleter{response: "Вот результат:\n```json\n[{\"category\": \"расход\", \"amount\": \"500\", \"currency\": \"руб\", \"text\": \"обед\"}]\n```"})

	items := e.Items(context.Background(), "потратил 500 руб на обед")
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	want := core.FinancialItem{Category: "расход", Amount: "500", Currency: "руб", Text: "обед"}
	if items[0] != want {
		t.Errorf("got %+v, want %+v", items[0], want)
	}
}

func TestItems_ParsesBareJSON(t *testing.T) {
	e := New(&stubCompleter{response: ` [{"category": "доход", "amount": "100", "currency": "$", "text": "зарплата"}] `})

	items := e.Items(context.Background(), "получил 100$")
	if len(items) != 1 || items[0].Category != "доход" {
		t.Errorf("got %+v", items)
	}
}

func TestItems_EmptyArray(t *testing.T) {
	e := New(&stubCompleter{response: "[]"})

	if items := e.Items(context.Background(), "как дела?"); len(items) != 0 {
		t.Errorf("got %+v, want none", items)
	}
}

func TestItems_UnparseableOutputYieldsNothing(t *testing.T) {
	cases := []string{
		"Не могу распознать операции.",
		`{"category": "расход"}`,
		"```json\nне json\n```",
	}
	for _, resp := range cases {
		e := New(&stubCompleter{response: resp})
		if items := e.Items(context.Background(), "x"); len(items) != 0 {
			t.Errorf("response %q: got %+v, want none", resp, items)
		}
	}
}

func TestItems_ProviderErrorYieldsNothing(t *testing.T) {
	e := New(&stubCompleter{err: errors.New("quota exceeded")})

	if items := e.Items(context.Background(), "x"); len(items) != 0 {
		t.Errorf("got %+v, want none", items)
	}
}

func TestDedupe(t *testing.T) {
	a := core.FinancialItem{Category: "расход", Amount: "500", Currency: "руб", Text: "обед"}
	b := core.FinancialItem{Category: "расход", Amount: "500", Currency: "руб", Text: "ужин"}

	got := Dedupe([]core.FinancialItem{a, b, a, a})
	if len(got) != 2 {
		t.Fatalf("got %d items, want 2", len(got))
	}
	if got[0] != a || got[1] != b {
		t.Errorf("order not preserved: %+v", got)
	}
}
