package pending

import (
	"testing"

	"github.com/sandevgo/finbot/internal/core"
)

func TestPutTake(t *testing.T) {
	s := New()
	rows := []core.ValidatedRow{{UserID: 1, Category: "расход", Amount: "500", Currency: "RUB"}}

	s.Put(1, rows)

	got, ok := s.Take(1)
	if !ok || len(got) != 1 || got[0].Amount != "500" {
		t.Fatalf("got %+v, ok=%v", got, ok)
	}

	// The batch is consumed by the first Take.
	if _, ok := s.Take(1); ok {
		t.Error("second Take should find nothing")
	}
}

func TestTakeWithoutPut(t *testing.T) {
	s := New()
	if _, ok := s.Take(42); ok {
		t.Error("expected no staged batch")
	}
}

func TestPutReplacesStaleBatch(t *testing.T) {
	s := New()
	s.Put(1, []core.ValidatedRow{{Amount: "100"}})
	s.Put(1, []core.ValidatedRow{{Amount: "200"}})

	got, ok := s.Take(1)
	if !ok || len(got) != 1 || got[0].Amount != "200" {
		t.Errorf("got %+v, want the replacing batch", got)
	}
}

func TestUsersAreIndependent(t *testing.T) {
	s := New()
	s.Put(1, []core.ValidatedRow{{Amount: "1"}})
	s.Put(2, []core.ValidatedRow{{Amount: "2"}})

	if got, _ := s.Take(2); len(got) != 1 || got[0].Amount != "2" {
		t.Errorf("got %+v", got)
	}
	if got, _ := s.Take(1); len(got) != 1 || got[0].Amount != "1" {
		t.Errorf("got %+v", got)
	}
}
