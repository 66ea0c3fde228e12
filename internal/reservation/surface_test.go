package reservation

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/slot-reservation/internal/model"
)

type recorder struct {
	mu     sync.Mutex
	states []State
}

func (r *recorder) record(s State) {
	r.mu.Lock()
	r.states = append(r.states, s)
	r.mu.Unlock()
}

func (r *recorder) last() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.states[len(r.states)-1]
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

func TestSurfaceSubscribePushesCurrentState(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	rec := &recorder{}
	unsubscribe := f.surface.Subscribe(rec.record)
	defer unsubscribe()

	if rec.len() != 1 {
		t.Fatalf("initial pushes = %d, want 1", rec.len())
	}
	st := rec.last()
	if !st.Week.Start.IsZero() || len(st.Slots) != 0 {
		t.Fatalf("initial state = %+v, want empty", st)
	}
	if st.Counts.MinReservations != 5 || st.Counts.MaxReservations != 10 {
		t.Fatalf("thresholds = %+v, want 5/10", st.Counts)
	}
}

func TestSurfaceSetWeekLoadsSlots(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	rec := &recorder{}
	defer f.surface.Subscribe(rec.record)()

	f.surface.SetWeek(context.Background(), time.Date(2024, time.June, 9, 12, 0, 0, 0, time.UTC))
	st := rec.last()
	if !st.Week.Start.Equal(testWeek) {
		t.Fatalf("week start = %v, want %v", st.Week.Start, testWeek)
	}
	if len(st.Slots) != 10 {
		t.Fatalf("slots = %d, want 10", len(st.Slots))
	}
	for _, s := range st.Slots {
		if !s.Available {
			t.Fatalf("slot %s unavailable on a fresh week", s.Time)
		}
	}
	if st.Counts.Reservations != 0 {
		t.Fatalf("reservations = %d, want 0", st.Counts.Reservations)
	}
}

func TestSurfaceIgnoresSlotsOfOtherWeek(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.surface.SetWeek(ctx, testWeek)
	before := f.surface.Current()

	f.surface.SetSlots(ctx, testWeek.AddDate(0, 0, 7), []model.SlotAvailability{{ID: "x", Time: "17:00"}})
	after := f.surface.Current()
	if len(after.Slots) != len(before.Slots) || after.Slots[0].ID != before.Slots[0].ID {
		t.Fatalf("slots replaced by another week's list: %+v", after.Slots)
	}
}

func TestSurfaceCopyOnWrite(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.surface.SetWeek(ctx, testWeek)
	old := f.surface.Current()
	oldFirst := old.Slots[0]

	input := []model.SlotAvailability{{ID: "a", Time: "17:00", Available: false}}
	f.surface.SetSlots(ctx, testWeek, input)
	input[0].ID = "mutated"

	if old.Slots[0] != oldFirst {
		t.Fatalf("published state mutated: %+v", old.Slots[0])
	}
	if got := f.surface.Current().Slots[0].ID; got != "a" {
		t.Fatalf("current slot id = %q, want %q", got, "a")
	}
}

func TestSurfaceResetAndUnsubscribe(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	rec := &recorder{}
	unsubscribe := f.surface.Subscribe(rec.record)

	f.surface.SetWeek(ctx, testWeek)
	f.surface.Reset()
	st := rec.last()
	if !st.Week.Start.IsZero() || len(st.Slots) != 0 || st.Counts.MaxReservations != 10 {
		t.Fatalf("state after reset = %+v", st)
	}

	unsubscribe()
	n := rec.len()
	f.surface.SetWeek(ctx, testWeek)
	if rec.len() != n {
		t.Fatalf("pushes after unsubscribe = %d, want %d", rec.len(), n)
	}
}

func TestRunWeekRollover(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	var mu sync.Mutex
	now := time.Date(2024, time.June, 9, 23, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunWeekRollover(ctx, f.surface, 5*time.Millisecond, clock)
		close(done)
	}()

	waitForWeek(t, f.surface, testWeek)
	mu.Lock()
	now = now.Add(2 * time.Hour)
	mu.Unlock()
	waitForWeek(t, f.surface, testWeek.AddDate(0, 0, 7))

	cancel()
	<-done
}

func waitForWeek(t *testing.T, s *Surface, want time.Time) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		st := s.Current()
		if st.Week.Start.Equal(want) && len(st.Slots) == 10 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("surface never reached week %v (at %v)", want, s.Current().Week.Start)
}

type fixedSnapshot []model.SlotAvailability

func (f fixedSnapshot) Snapshot(context.Context, time.Time) ([]model.SlotAvailability, error) {
	return f, nil
}

type zeroCounter struct{}

func (zeroCounter) CountByWeek(context.Context, time.Time) (int, error) { return 0, nil }

func TestSurfaceSetWeekGoesThroughProvisionGuard(t *testing.T) {
	t.Parallel()
	store := &blockingStore{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	c := NewCatalog(store, 1, zap.NewNop())
	snap := fixedSnapshot{{ID: "s1", Time: "17:00", Available: true}}
	s := NewSurface(c, snap, zeroCounter{}, time.UTC, 5, 10, zap.NewNop())
	ctx := context.Background()

	busy := make(chan bool, 1)
	go func() { busy <- c.Provision(ctx, testWeek.AddDate(0, 0, 7)) }()
	<-store.entered

	done := make(chan struct{})
	go func() {
		s.SetWeek(ctx, testWeek)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		close(store.release)
		t.Fatal("SetWeek provisioned while another provision was in flight")
	}
	st := s.Current()
	if !st.Week.Start.Equal(testWeek) || len(st.Slots) != 1 || st.Slots[0].ID != "s1" {
		t.Fatalf("state = %+v, want week %v with the ledger snapshot", st, testWeek)
	}

	close(store.release)
	<-busy
}
