package reservation

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/slot-reservation/internal/model"
	"github.com/iliyamo/slot-reservation/internal/repository"
)

// DefaultNotifyTimeout bounds one confirmation delivery.
const DefaultNotifyTimeout = 5 * time.Second

// Request carries the customer details of a reservation.
type Request struct {
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	TimeSlotID string    `json:"timeSlotId"`
	WeekStart  time.Time `json:"weekStart"`
}

// Notifier is told about confirmed reservations after commit.
type Notifier interface {
	ReservationConfirmed(ctx context.Context, r model.Reservation) error
}

// ReservationWriter inserts a reservation inside a transaction.
type ReservationWriter interface {
	CreateTx(ctx context.Context, tx *sql.Tx, r *model.Reservation) error
}

// Workflow turns a paid request into a confirmed reservation.
type Workflow struct {
	db           *sql.DB
	ledger       *Ledger
	reservations ReservationWriter
	catalog      *Catalog
	notifier     Notifier
	log          *zap.Logger

	// NotifyTimeout bounds each notifier call.
	NotifyTimeout time.Duration
	pending       sync.WaitGroup
}

// NewWorkflow wires a Workflow.  notifier may be nil.
func NewWorkflow(db *sql.DB, ledger *Ledger, reservations ReservationWriter,
	catalog *Catalog, notifier Notifier, log *zap.Logger) *Workflow {
	return &Workflow{
		db:            db,
		ledger:        ledger,
		reservations:  reservations,
		catalog:       catalog,
		notifier:      notifier,
		log:           log.Named("workflow"),
		NotifyTimeout: DefaultNotifyTimeout,
	}
}

// Reserve records a reservation for req and consumes the slot's capacity.
// It never returns an error; failures are described by the Result.
//
// The reservation insert and the conditional decrement share one
// transaction.  When the decrement finds the slot already at zero the
// insert is rolled back and the result is slot_unavailable.  Any other
// decrement failure is logged and the reservation is kept; Ledger.Reconcile
// repairs the counter.  The notifier runs in the background after commit.
func (w *Workflow) Reserve(ctx context.Context, req Request) Result {
	log := w.log.With(zap.String("slot_id", req.TimeSlotID))

	slot, err := w.ledger.Slot(ctx, req.TimeSlotID)
	if err != nil {
		log.Warn("slot lookup failed", zap.Error(err))
		return failure(DatabaseError, msgSlotLookup)
	}
	if slot.Capacity <= 0 {
		return failure(SlotUnavailable, msgUnavailable)
	}
	if !req.WeekStart.IsZero() && model.WeekKey(req.WeekStart) != slot.WeekStart.Format(model.WeekKeyLayout) {
		log.Warn("requested week does not match slot week; using slot week",
			zap.String("requested", model.WeekKey(req.WeekStart)),
			zap.Time("slot_week", slot.WeekStart))
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("begin tx failed", zap.Error(err))
		return failure(DatabaseError, msgCreateFailed)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res := model.Reservation{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Phone:      req.Phone,
		TimeSlotID: slot.ID,
		SlotTime:   slot.Time,
		WeekStart:  slot.WeekStart,
		Status:     model.StatusConfirmed,
	}
	if err := w.reservations.CreateTx(ctx, tx, &res); err != nil {
		log.Error("insert reservation failed", zap.Error(err))
		return failure(DatabaseError, msgCreateFailed)
	}

	out, err := w.ledger.DecrementCapacity(ctx, tx, slot.ID)
	switch {
	case err != nil:
		log.Error("capacity decrement failed, keeping reservation", zap.String("reservation_id", res.ID), zap.Error(err))
	case out == repository.AlreadyZero:
		return failure(SlotUnavailable, msgUnavailable)
	}

	if err := tx.Commit(); err != nil {
		log.Error("commit reservation failed", zap.Error(err))
		return failure(DatabaseError, msgCreateFailed)
	}
	committed = true
	log.Info("reservation confirmed", zap.String("reservation_id", res.ID), zap.String("time", res.SlotTime))

	bg := context.WithoutCancel(ctx)
	w.catalog.Provision(bg, slot.WeekStart)
	if w.notifier != nil {
		w.pending.Add(1)
		go w.notify(bg, res)
	}
	return Result{Success: true}
}

func (w *Workflow) notify(ctx context.Context, res model.Reservation) {
	defer w.pending.Done()
	timeout := w.NotifyTimeout
	if timeout <= 0 {
		timeout = DefaultNotifyTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := w.notifier.ReservationConfirmed(ctx, res); err != nil {
		w.log.Warn("publish reservation event failed", zap.String("reservation_id", res.ID), zap.Error(err))
	}
}

// Wait blocks until every background notification has finished.
func (w *Workflow) Wait() { w.pending.Wait() }
