package reservation

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/slot-reservation/internal/model"
	"github.com/iliyamo/slot-reservation/internal/repository"
)

func TestReserveScenario(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	slot := f.slotAt(t, "18:00")

	a := f.workflow.Reserve(ctx, request(slot.ID, "alice"))
	if !a.Success || a.Error != nil {
		t.Fatalf("first reserve = %+v, want success", a)
	}
	avail, err := f.ledger.Snapshot(ctx, testWeek)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	for _, s := range avail {
		if s.Time == "18:00" && s.Available {
			t.Fatal("18:00 still available after reservation")
		}
		if s.Time != "18:00" && !s.Available {
			t.Fatalf("%s unavailable, want available", s.Time)
		}
	}

	b := f.workflow.Reserve(ctx, request(slot.ID, "bob"))
	if b.Success || b.Error == nil || b.Error.Type != SlotUnavailable {
		t.Fatalf("second reserve = %+v, want slot_unavailable", b)
	}
	if n := f.reservationCount(t); n != 1 {
		t.Fatalf("reservations = %d, want 1", n)
	}
	f.workflow.Wait()
	if n := f.notifier.count(); n != 1 {
		t.Fatalf("events = %d, want 1", n)
	}
	if f.notifier.sent[0].SlotTime != "18:00" || f.notifier.sent[0].Email != "alice@example.com" {
		t.Fatalf("event = %+v", f.notifier.sent[0])
	}
}

func TestReserveUnknownSlot(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.slotAt(t, "17:00")

	res := f.workflow.Reserve(context.Background(), request("does-not-exist", "alice"))
	if res.Success || res.Error == nil || res.Error.Type != DatabaseError {
		t.Fatalf("reserve = %+v, want database_error", res)
	}
	if n := f.reservationCount(t); n != 0 {
		t.Fatalf("reservations = %d, want 0", n)
	}
}

func TestReserveConcurrentSingleWinner(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	slot := f.slotAt(t, "19:30")

	const callers = 8
	results := make([]Result, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = f.workflow.Reserve(context.Background(), request(slot.ID, "user"))
		}(i)
	}
	wg.Wait()

	wins := 0
	for i, r := range results {
		switch {
		case r.Success:
			wins++
		case r.Error == nil || r.Error.Type != SlotUnavailable:
			t.Fatalf("caller %d = %+v, want success or slot_unavailable", i, r)
		}
	}
	if wins != 1 {
		t.Fatalf("successful reservations = %d, want 1", wins)
	}
	if n := f.reservationCount(t); n != 1 {
		t.Fatalf("reservation rows = %d, want 1", n)
	}
	capLeft, err := f.ledger.CapacityOf(context.Background(), slot.ID)
	if err != nil || capLeft != 0 {
		t.Fatalf("capacity = %d, %v; want 0", capLeft, err)
	}
}

func TestReserveRefreshesSurface(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.surface.SetWeek(ctx, testWeek.AddDate(0, 0, 2))
	slot := f.slotAt(t, "20:00")

	if r := f.workflow.Reserve(ctx, request(slot.ID, "alice")); !r.Success {
		t.Fatalf("reserve = %+v", r)
	}
	st := f.surface.Current()
	if st.Counts.Reservations != 1 {
		t.Fatalf("surface reservations = %d, want 1", st.Counts.Reservations)
	}
	for _, s := range st.Slots {
		if s.ID == slot.ID && s.Available {
			t.Fatal("surface still shows 20:00 available")
		}
	}
}

func TestErrorString(t *testing.T) {
	t.Parallel()
	e := &Error{Type: SlotUnavailable, Message: msgUnavailable}
	if got, want := e.Error(), "slot_unavailable: "+msgUnavailable; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

// failingDecrementStore errors on every transactional decrement.
type failingDecrementStore struct {
	*repository.SlotRepo
}

func (failingDecrementStore) DecrementCapacityTx(context.Context, *sql.Tx, string) (repository.DecrementOutcome, error) {
	return repository.AlreadyZero, errors.New("decrement failed")
}

func TestReserveKeepsReservationWhenDecrementFails(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	slot := f.slotAt(t, "17:30")

	ledger := NewLedger(failingDecrementStore{f.slots}, f.reservations, 1, zap.NewNop())
	w := NewWorkflow(f.db, ledger, f.reservations, f.catalog, nil, zap.NewNop())

	if r := w.Reserve(ctx, request(slot.ID, "alice")); !r.Success || r.Error != nil {
		t.Fatalf("reserve = %+v, want success", r)
	}
	if n := f.reservationCount(t); n != 1 {
		t.Fatalf("reservations = %d, want 1", n)
	}
	if c, err := f.ledger.CapacityOf(ctx, slot.ID); err != nil || c != 1 {
		t.Fatalf("capacity = %d, %v; want unchanged 1", c, err)
	}
}

// abortingWriter ends the transaction instead of inserting, so the commit
// that follows fails.
type abortingWriter struct{}

func (abortingWriter) CreateTx(_ context.Context, tx *sql.Tx, _ *model.Reservation) error {
	return tx.Rollback()
}

func TestReserveCommitFailure(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	slot := f.slotAt(t, "20:30")

	w := NewWorkflow(f.db, f.ledger, abortingWriter{}, f.catalog, f.notifier, zap.NewNop())
	r := w.Reserve(ctx, request(slot.ID, "alice"))
	if r.Success || r.Error == nil || r.Error.Type != DatabaseError {
		t.Fatalf("reserve = %+v, want database_error", r)
	}
	if n := f.reservationCount(t); n != 0 {
		t.Fatalf("reservations = %d, want 0", n)
	}
	if c, _ := f.ledger.CapacityOf(ctx, slot.ID); c != 1 {
		t.Fatalf("capacity = %d, want 1", c)
	}
	w.Wait()
	if n := f.notifier.count(); n != 0 {
		t.Fatalf("events = %d, want 0", n)
	}
}

// stallingNotifier blocks until its context ends.
type stallingNotifier struct {
	done chan error
}

func (n *stallingNotifier) ReservationConfirmed(ctx context.Context, _ model.Reservation) error {
	<-ctx.Done()
	n.done <- ctx.Err()
	return ctx.Err()
}

func TestReserveDoesNotWaitForNotifier(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	slot := f.slotAt(t, "21:30")
	n := &stallingNotifier{done: make(chan error, 1)}
	w := NewWorkflow(f.db, f.ledger, f.reservations, f.catalog, n, zap.NewNop())
	w.NotifyTimeout = 50 * time.Millisecond

	start := time.Now()
	if r := w.Reserve(context.Background(), request(slot.ID, "alice")); !r.Success {
		t.Fatalf("reserve = %+v", r)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("Reserve waited %v for the notifier", elapsed)
	}
	select {
	case err := <-n.done:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("notifier ctx err = %v, want deadline exceeded", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("notifier was never bounded by its timeout")
	}
	w.Wait()
}
