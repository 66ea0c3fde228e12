package reservation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/slot-reservation/internal/model"
	"github.com/iliyamo/slot-reservation/internal/repository"
)

// SlotStore is the persistence the catalog needs.
type SlotStore interface {
	ListByWeek(ctx context.Context, weekStart time.Time) ([]model.TimeSlot, error)
	InsertWeek(ctx context.Context, weekStart time.Time, labels []string, capacity int) (repository.InsertOutcome, error)
}

// ProvisionedFunc receives a week's slots after every successful EnsureSlots.
type ProvisionedFunc func(ctx context.Context, weekStart time.Time, slots []model.TimeSlot)

// Catalog owns the fixed label set and creates a week's slot rows the first
// time the week is seen.  The (week_start, slot_time) unique key makes
// concurrent provisioning safe across processes.
type Catalog struct {
	store    SlotStore
	labels   []string
	capacity int
	log      *zap.Logger

	provisioning atomic.Bool

	mu    sync.RWMutex
	hooks []ProvisionedFunc
}

// NewCatalog returns a Catalog that provisions model.SlotTimes with the
// given initial capacity.
func NewCatalog(store SlotStore, capacity int, log *zap.Logger) *Catalog {
	if capacity < 1 {
		capacity = model.DefaultSlotCapacity
	}
	labels := make([]string, len(model.SlotTimes))
	copy(labels, model.SlotTimes)
	return &Catalog{store: store, labels: labels, capacity: capacity, log: log.Named("catalog")}
}

// OnProvisioned registers fn to run after every successful EnsureSlots.
func (c *Catalog) OnProvisioned(fn ProvisionedFunc) {
	c.mu.Lock()
	c.hooks = append(c.hooks, fn)
	c.mu.Unlock()
}

// EnsureSlots returns the week's slots ordered by time of day, inserting
// any missing labels first.  Losing an insert race to another caller is
// not an error.  Existing rows are never modified.
func (c *Catalog) EnsureSlots(ctx context.Context, weekStart time.Time) ([]model.TimeSlot, error) {
	weekStart = model.WeekInfoFor(weekStart).Start
	log := c.log.With(zap.String("week", weekStart.Format(model.WeekKeyLayout)))

	slots, err := c.store.ListByWeek(ctx, weekStart)
	if err != nil {
		return nil, fmt.Errorf("list week slots: %w", err)
	}
	if missing := c.missing(slots); len(missing) > 0 {
		out, err := c.store.InsertWeek(ctx, weekStart, missing, c.capacity)
		switch out {
		case repository.InsertOK:
			log.Info("provisioned week", zap.Int("slots", len(missing)), zap.Stringer("outcome", out))
		case repository.InsertConflict:
			log.Debug("week provisioned concurrently", zap.Stringer("outcome", out))
		default:
			return nil, fmt.Errorf("provision week (%s): %w", out, err)
		}
		if slots, err = c.store.ListByWeek(ctx, weekStart); err != nil {
			return nil, fmt.Errorf("list week slots: %w", err)
		}
	}
	sort.SliceStable(slots, func(i, j int) bool { return slots[i].Time < slots[j].Time })

	c.mu.RLock()
	hooks := make([]ProvisionedFunc, len(c.hooks))
	copy(hooks, c.hooks)
	c.mu.RUnlock()
	for _, fn := range hooks {
		fn(ctx, weekStart, slots)
	}
	return slots, nil
}

func (c *Catalog) missing(slots []model.TimeSlot) []string {
	have := make(map[string]bool, len(slots))
	for _, s := range slots {
		have[s.Time] = true
	}
	var out []string
	for _, l := range c.labels {
		if !have[l] {
			out = append(out, l)
		}
	}
	return out
}

// Provision runs EnsureSlots unless another Provision is already in flight
// in this process, in which case it returns false immediately.  Errors are
// logged and reported as false.
func (c *Catalog) Provision(ctx context.Context, weekStart time.Time) bool {
	if !c.provisioning.CompareAndSwap(false, true) {
		c.log.Debug("provision already in progress, skipping")
		return false
	}
	defer c.provisioning.Store(false)
	if _, err := c.EnsureSlots(ctx, weekStart); err != nil {
		c.log.Error("provision failed", zap.Time("week", weekStart), zap.Error(err))
		return false
	}
	return true
}
