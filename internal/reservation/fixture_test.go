package reservation

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/slot-reservation/internal/database/dbtest"
	"github.com/iliyamo/slot-reservation/internal/model"
	"github.com/iliyamo/slot-reservation/internal/repository"
)

var testWeek = time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC)

type fixture struct {
	db           *sql.DB
	slots        *repository.SlotRepo
	reservations *repository.ReservationRepo
	catalog      *Catalog
	ledger       *Ledger
	workflow     *Workflow
	surface      *Surface
	notifier     *fakeNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zap.NewNop()
	db := dbtest.Open(t)
	f := &fixture{
		db:           db,
		slots:        repository.NewSlotRepo(db, time.UTC),
		reservations: repository.NewReservationRepo(db, time.UTC),
		notifier:     &fakeNotifier{},
	}
	f.catalog = NewCatalog(f.slots, 1, log)
	f.ledger = NewLedger(f.slots, f.reservations, 1, log)
	f.surface = NewSurface(f.catalog, f.ledger, f.reservations, time.UTC, 5, 10, log)
	f.workflow = NewWorkflow(db, f.ledger, f.reservations, f.catalog, f.notifier, log)
	t.Cleanup(f.workflow.Wait)
	return f
}

func (f *fixture) slotAt(t *testing.T, label string) model.TimeSlot {
	t.Helper()
	slots, err := f.catalog.EnsureSlots(context.Background(), testWeek)
	if err != nil {
		t.Fatalf("EnsureSlots: %v", err)
	}
	for _, s := range slots {
		if s.Time == label {
			return s
		}
	}
	t.Fatalf("no slot %s", label)
	return model.TimeSlot{}
}

func (f *fixture) reservationCount(t *testing.T) int {
	t.Helper()
	var n int
	if err := f.db.QueryRow(`SELECT COUNT(*) FROM reservations`).Scan(&n); err != nil {
		t.Fatalf("count reservations: %v", err)
	}
	return n
}

func request(slotID, first string) Request {
	return Request{
		FirstName:  first,
		LastName:   "Tester",
		Email:      first + "@example.com",
		Phone:      "555-0100",
		TimeSlotID: slotID,
		WeekStart:  testWeek,
	}
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []model.Reservation
}

func (n *fakeNotifier) ReservationConfirmed(_ context.Context, r model.Reservation) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, r)
	return nil
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}
