package reservation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/slot-reservation/internal/model"
	"github.com/iliyamo/slot-reservation/internal/repository"
)

// CapacityStore is the slot persistence the ledger reads and writes.
type CapacityStore interface {
	GetByID(ctx context.Context, id string) (model.TimeSlot, error)
	ListByWeek(ctx context.Context, weekStart time.Time) ([]model.TimeSlot, error)
	DecrementCapacity(ctx context.Context, id string) (repository.DecrementOutcome, error)
	DecrementCapacityTx(ctx context.Context, tx *sql.Tx, id string) (repository.DecrementOutcome, error)
	SetCapacity(ctx context.Context, id string, capacity int) error
}

// SlotCounter counts confirmed reservations per slot of a week.
type SlotCounter interface {
	CountBySlot(ctx context.Context, weekStart time.Time) (map[string]int, error)
}

// Ledger tracks remaining capacity per slot.
type Ledger struct {
	slots        CapacityStore
	reservations SlotCounter
	capacity     int
	log          *zap.Logger
}

// NewLedger returns a Ledger.  capacity is the capacity a slot has with no
// reservations, used by Reconcile.
func NewLedger(slots CapacityStore, reservations SlotCounter, capacity int, log *zap.Logger) *Ledger {
	if capacity < 1 {
		capacity = model.DefaultSlotCapacity
	}
	return &Ledger{slots: slots, reservations: reservations, capacity: capacity, log: log.Named("ledger")}
}

// Slot returns a slot with its remaining capacity, or
// repository.ErrSlotNotFound.
func (l *Ledger) Slot(ctx context.Context, slotID string) (model.TimeSlot, error) {
	return l.slots.GetByID(ctx, slotID)
}

// CapacityOf returns the remaining capacity of a slot.
func (l *Ledger) CapacityOf(ctx context.Context, slotID string) (int, error) {
	s, err := l.Slot(ctx, slotID)
	if err != nil {
		return 0, err
	}
	return s.Capacity, nil
}

// DecrementCapacity consumes one unit of capacity, inside tx when it is not
// nil.  Of two concurrent callers racing for the last unit exactly one gets
// Decremented.
func (l *Ledger) DecrementCapacity(ctx context.Context, tx *sql.Tx, slotID string) (repository.DecrementOutcome, error) {
	if tx == nil {
		return l.slots.DecrementCapacity(ctx, slotID)
	}
	return l.slots.DecrementCapacityTx(ctx, tx, slotID)
}

// Snapshot returns the availability of every slot of the week, ordered by
// time of day.
func (l *Ledger) Snapshot(ctx context.Context, weekStart time.Time) ([]model.SlotAvailability, error) {
	slots, err := l.slots.ListByWeek(ctx, weekStart)
	if err != nil {
		return nil, err
	}
	return Availability(slots), nil
}

// Reconcile recomputes each slot's capacity of the week from its confirmed
// reservations and rewrites the ones that drifted.  It returns how many
// slots were changed.
func (l *Ledger) Reconcile(ctx context.Context, weekStart time.Time) (int, error) {
	slots, err := l.slots.ListByWeek(ctx, weekStart)
	if err != nil {
		return 0, fmt.Errorf("list week slots: %w", err)
	}
	counts, err := l.reservations.CountBySlot(ctx, weekStart)
	if err != nil {
		return 0, err
	}
	changed := 0
	for _, s := range slots {
		want := l.capacity - counts[s.ID]
		if want < 0 {
			want = 0
		}
		if s.Capacity == want {
			continue
		}
		if err := l.slots.SetCapacity(ctx, s.ID, want); err != nil {
			return changed, err
		}
		l.log.Warn("capacity repaired",
			zap.String("slot_id", s.ID),
			zap.String("time", s.Time),
			zap.Int("was", s.Capacity),
			zap.Int("now", want))
		changed++
	}
	return changed, nil
}

// Availability projects slots onto their read-side form.
func Availability(slots []model.TimeSlot) []model.SlotAvailability {
	out := make([]model.SlotAvailability, 0, len(slots))
	for _, s := range slots {
		out = append(out, model.SlotAvailability{ID: s.ID, Time: s.Time, Available: s.Available()})
	}
	return out
}
