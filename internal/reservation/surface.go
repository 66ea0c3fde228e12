package reservation

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/slot-reservation/internal/model"
)

// State is one published view of the active week.  Published states are
// never modified; every change builds a new one.
type State struct {
	Week   model.WeekInfo           `json:"week"`
	Slots  []model.SlotAvailability `json:"slots"`
	Counts model.AggregateCounts    `json:"counts"`
}

// Counter counts confirmed reservations of a week.
type Counter interface {
	CountByWeek(ctx context.Context, weekStart time.Time) (int, error)
}

// Snapshotter reads the slot availability of a week.
type Snapshotter interface {
	Snapshot(ctx context.Context, weekStart time.Time) ([]model.SlotAvailability, error)
}

// Surface is the subscribable in-memory view of the active week.  One
// Surface is built per process.
type Surface struct {
	catalog *Catalog
	ledger  Snapshotter
	counter Counter
	loc     *time.Location
	min     int
	max     int
	log     *zap.Logger

	mu     sync.RWMutex
	state  *State
	nextID int
	subs   map[int]func(State)

	// notifyMu keeps deliveries in publish order.
	notifyMu sync.Mutex
}

// NewSurface returns a Surface holding the empty state and registers it to
// refresh whenever the catalog provisions the active week.
func NewSurface(catalog *Catalog, ledger Snapshotter, counter Counter, loc *time.Location, minReservations, maxReservations int, log *zap.Logger) *Surface {
	if loc == nil {
		loc = time.Local
	}
	s := &Surface{
		catalog: catalog,
		ledger:  ledger,
		counter: counter,
		loc:     loc,
		min:     minReservations,
		max:     maxReservations,
		log:     log.Named("surface"),
		subs:    make(map[int]func(State)),
	}
	s.state = s.emptyState()
	catalog.OnProvisioned(func(ctx context.Context, weekStart time.Time, _ []model.TimeSlot) {
		s.Refresh(ctx, weekStart)
	})
	return s
}

func (s *Surface) emptyState() *State {
	return &State{
		Slots:  []model.SlotAvailability{},
		Counts: model.AggregateCounts{MinReservations: s.min, MaxReservations: s.max},
	}
}

// Current returns the latest published state.
func (s *Surface) Current() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.state
}

// Subscribe calls fn with the current state right away and then after every
// change.  The returned function removes the subscription.  fn runs with
// delivery serialized and must not call the Surface's mutators.
func (s *Surface) Subscribe(fn func(State)) (unsubscribe func()) {
	s.notifyMu.Lock()
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	cur := *s.state
	s.mu.Unlock()
	fn(cur)
	s.notifyMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// SetWeek makes the week containing date active, provisions its slots
// through the catalog's guard and resyncs the reservation count.  When
// provisioning is skipped or fails the surface shows whatever rows exist.
func (s *Surface) SetWeek(ctx context.Context, date time.Time) {
	week := model.WeekInfoFor(date.In(s.loc))
	s.update(func(cur *State) (*State, bool) {
		if cur.Week.Equal(week) {
			return nil, false
		}
		next := s.emptyState()
		next.Week = week
		return next, true
	})
	if !s.catalog.Provision(ctx, week.Start) {
		s.Refresh(ctx, week.Start)
	}
}

// Refresh reloads the active week's availability from the ledger.  Other
// weeks are ignored.
func (s *Surface) Refresh(ctx context.Context, weekStart time.Time) {
	s.mu.RLock()
	active := !s.state.Week.Start.IsZero() && sameDay(s.state.Week.Start, weekStart)
	s.mu.RUnlock()
	if !active {
		return
	}
	slots, err := s.ledger.Snapshot(ctx, weekStart)
	if err != nil {
		s.log.Error("load week slots failed", zap.Time("week", weekStart), zap.Error(err))
		s.resyncCounts(ctx, weekStart)
		return
	}
	s.SetSlots(ctx, weekStart, slots)
}

// SetSlots replaces the slot list of the active week and resyncs the
// reservation count.  Slots for any other week are ignored.
func (s *Surface) SetSlots(ctx context.Context, weekStart time.Time, slots []model.SlotAvailability) {
	cp := make([]model.SlotAvailability, len(slots))
	copy(cp, slots)
	active := false
	s.update(func(cur *State) (*State, bool) {
		if cur.Week.Start.IsZero() || !sameDay(cur.Week.Start, weekStart) {
			return nil, false
		}
		active = true
		if slotsEqual(cur.Slots, cp) {
			return nil, false
		}
		next := *cur
		next.Slots = cp
		return &next, true
	})
	if active {
		s.resyncCounts(ctx, weekStart)
	}
}

// Reset restores the empty state.
func (s *Surface) Reset() {
	s.update(func(*State) (*State, bool) { return s.emptyState(), true })
}

func (s *Surface) resyncCounts(ctx context.Context, weekStart time.Time) {
	n, err := s.counter.CountByWeek(ctx, weekStart)
	if err != nil {
		s.log.Warn("count reservations failed", zap.Error(err))
		return
	}
	s.update(func(cur *State) (*State, bool) {
		if !sameDay(cur.Week.Start, weekStart) || cur.Counts.Reservations == n {
			return nil, false
		}
		next := *cur
		next.Counts.Reservations = n
		return &next, true
	})
}

// update swaps in the state built by fn and notifies subscribers.  fn
// returns false to leave the state alone.
func (s *Surface) update(fn func(cur *State) (*State, bool)) bool {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	next, ok := fn(s.state)
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.state = next
	fns := make([]func(State), 0, len(s.subs))
	for _, f := range s.subs {
		fns = append(fns, f)
	}
	s.mu.Unlock()

	for _, f := range fns {
		f(*next)
	}
	return true
}

func sameDay(a, b time.Time) bool {
	return a.Format(model.WeekKeyLayout) == b.Format(model.WeekKeyLayout)
}

func slotsEqual(a, b []model.SlotAvailability) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
