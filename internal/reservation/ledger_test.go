package reservation

import (
	"context"
	"errors"
	"testing"

	"github.com/iliyamo/slot-reservation/internal/repository"
)

func TestLedgerDecrementNeverNegative(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	slot := f.slotAt(t, "17:30")

	if out, err := f.ledger.DecrementCapacity(ctx, nil, slot.ID); err != nil || out != repository.Decremented {
		t.Fatalf("first = %v, %v; want decremented", out, err)
	}
	for i := 0; i < 3; i++ {
		if out, err := f.ledger.DecrementCapacity(ctx, nil, slot.ID); err != nil || out != repository.AlreadyZero {
			t.Fatalf("extra decrement = %v, %v; want already zero", out, err)
		}
	}
	if c, _ := f.ledger.CapacityOf(ctx, slot.ID); c != 0 {
		t.Fatalf("capacity = %d, want 0", c)
	}
	if _, err := f.ledger.CapacityOf(ctx, "missing"); !errors.Is(err, repository.ErrSlotNotFound) {
		t.Fatalf("missing slot err = %v, want %v", err, repository.ErrSlotNotFound)
	}
}

func TestLedgerReconcile(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	booked := f.slotAt(t, "18:30")
	drained := f.slotAt(t, "21:00")

	if r := f.workflow.Reserve(ctx, request(booked.ID, "alice")); !r.Success {
		t.Fatalf("reserve = %+v", r)
	}
	// Simulate a lost decrement on one slot and a stray one on another.
	if err := f.slots.SetCapacity(ctx, booked.ID, 1); err != nil {
		t.Fatalf("set capacity: %v", err)
	}
	if err := f.slots.SetCapacity(ctx, drained.ID, 0); err != nil {
		t.Fatalf("set capacity: %v", err)
	}

	changed, err := f.ledger.Reconcile(ctx, testWeek)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if changed != 2 {
		t.Fatalf("changed = %d, want 2", changed)
	}
	if c, _ := f.ledger.CapacityOf(ctx, booked.ID); c != 0 {
		t.Fatalf("booked capacity = %d, want 0", c)
	}
	if c, _ := f.ledger.CapacityOf(ctx, drained.ID); c != 1 {
		t.Fatalf("drained capacity = %d, want 1", c)
	}
	if changed, _ := f.ledger.Reconcile(ctx, testWeek); changed != 0 {
		t.Fatalf("second reconcile changed = %d, want 0", changed)
	}
}

func TestLedgerDecrementInsideTx(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	slot := f.slotAt(t, "19:00")

	tx, err := f.db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if out, err := f.ledger.DecrementCapacity(ctx, tx, slot.ID); err != nil || out != repository.Decremented {
		t.Fatalf("decrement in tx = %v, %v; want decremented", out, err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if c, _ := f.ledger.CapacityOf(ctx, slot.ID); c != 1 {
		t.Fatalf("capacity after rollback = %d, want 1", c)
	}
}
