package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/slot-reservation/internal/model"
)

// InsertOutcome tags the result of provisioning a week's slots so callers
// never have to pattern-match driver error codes.
type InsertOutcome int

const (
	// InsertOK means every row was written by this call.
	InsertOK InsertOutcome = iota
	// InsertConflict means a concurrent caller already wrote at least one
	// of the rows; nothing from this call was kept.
	InsertConflict
	// InsertFailed means the statement failed for any other reason.
	InsertFailed
)

func (o InsertOutcome) String() string {
	switch o {
	case InsertOK:
		return "ok"
	case InsertConflict:
		return "conflict"
	default:
		return "failed"
	}
}

// DecrementOutcome tags the result of consuming one unit of capacity.
type DecrementOutcome int

const (
	// Decremented means one unit of capacity was consumed.
	Decremented DecrementOutcome = iota
	// AlreadyZero means the slot exists but had no capacity left.
	AlreadyZero
)

// execQuerier is satisfied by both *sql.DB and *sql.Tx.
type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SlotRepo provides data access to the time_slots table.  Week starts are
// stored in their YYYY-MM-DD form and converted back to time.Time in the
// repository's location when scanned.
type SlotRepo struct {
	db  *sql.DB
	loc *time.Location
}

// NewSlotRepo returns a SlotRepo bound to db.  A nil loc means time.Local.
func NewSlotRepo(db *sql.DB, loc *time.Location) *SlotRepo {
	if loc == nil {
		loc = time.Local
	}
	return &SlotRepo{db: db, loc: loc}
}

const slotColumns = `id, week_start, slot_time, max_reservations, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *SlotRepo) scanSlot(row rowScanner) (model.TimeSlot, error) {
	var (
		s         model.TimeSlot
		weekKey   string
		createdMs int64
	)
	if err := row.Scan(&s.ID, &weekKey, &s.Time, &s.Capacity, &createdMs); err != nil {
		return model.TimeSlot{}, err
	}
	ws, err := time.ParseInLocation(model.WeekKeyLayout, weekKey, r.loc)
	if err != nil {
		return model.TimeSlot{}, fmt.Errorf("parse week_start %q: %w", weekKey, err)
	}
	s.WeekStart = ws
	s.CreatedAt = time.UnixMilli(createdMs).UTC()
	return s, nil
}

// ListByWeek returns the slots of the week starting at weekStart ordered
// by time of day.  An unprovisioned week yields an empty slice.
func (r *SlotRepo) ListByWeek(ctx context.Context, weekStart time.Time) ([]model.TimeSlot, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+slotColumns+` FROM time_slots WHERE week_start = ? ORDER BY slot_time`,
		weekStart.Format(model.WeekKeyLayout))
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	defer rows.Close()
	slots := make([]model.TimeSlot, 0, len(model.SlotTimes))
	for rows.Next() {
		s, err := r.scanSlot(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return slots, nil
}

// GetByID fetches one slot.  It returns ErrSlotNotFound when the id does
// not exist.
func (r *SlotRepo) GetByID(ctx context.Context, id string) (model.TimeSlot, error) {
	s, err := r.scanSlot(r.db.QueryRowContext(ctx,
		`SELECT `+slotColumns+` FROM time_slots WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.TimeSlot{}, ErrSlotNotFound
	}
	return s, err
}

// InsertWeek writes one row per label for the week in a single statement,
// so the insert either lands completely or not at all.  A unique key
// violation on (week_start, slot_time) is reported as InsertConflict with
// a nil error.
func (r *SlotRepo) InsertWeek(ctx context.Context, weekStart time.Time, labels []string, capacity int) (InsertOutcome, error) {
	if len(labels) == 0 {
		return InsertOK, nil
	}
	key := weekStart.Format(model.WeekKeyLayout)
	now := time.Now().UTC().UnixMilli()
	var sb strings.Builder
	sb.WriteString(`INSERT INTO time_slots (id, week_start, slot_time, max_reservations, created_at) VALUES `)
	args := make([]any, 0, len(labels)*5)
	for i, label := range labels {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?, ?, ?, ?, ?)")
		args = append(args, uuid.NewString(), key, label, capacity, now)
	}
	if _, err := r.db.ExecContext(ctx, sb.String(), args...); err != nil {
		if isUniqueViolation(err) {
			return InsertConflict, nil
		}
		return InsertFailed, fmt.Errorf("insert slots: %w", err)
	}
	return InsertOK, nil
}

// DecrementCapacity consumes one unit of capacity in a single conditional
// UPDATE, so two concurrent callers can never both take the last unit.
func (r *SlotRepo) DecrementCapacity(ctx context.Context, id string) (DecrementOutcome, error) {
	return decrementCapacity(ctx, r.db, id)
}

// DecrementCapacityTx is DecrementCapacity inside the caller's transaction.
func (r *SlotRepo) DecrementCapacityTx(ctx context.Context, tx *sql.Tx, id string) (DecrementOutcome, error) {
	return decrementCapacity(ctx, tx, id)
}

func decrementCapacity(ctx context.Context, q execQuerier, id string) (DecrementOutcome, error) {
	res, err := q.ExecContext(ctx,
		`UPDATE time_slots SET max_reservations = max_reservations - 1 WHERE id = ? AND max_reservations > 0`, id)
	if err != nil {
		return AlreadyZero, fmt.Errorf("decrement capacity: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return AlreadyZero, err
	}
	if n == 1 {
		return Decremented, nil
	}
	// Nothing changed: either the slot is exhausted or it does not exist.
	var exists int
	err = q.QueryRowContext(ctx, `SELECT COUNT(*) FROM time_slots WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return AlreadyZero, err
	}
	if exists == 0 {
		return AlreadyZero, ErrSlotNotFound
	}
	return AlreadyZero, nil
}

// SetCapacity overwrites the remaining capacity of a slot.  Negative values
// are clamped to zero.
func (r *SlotRepo) SetCapacity(ctx context.Context, id string, capacity int) error {
	if capacity < 0 {
		capacity = 0
	}
	res, err := r.db.ExecContext(ctx, `UPDATE time_slots SET max_reservations = ? WHERE id = ?`, capacity, id)
	if err != nil {
		return fmt.Errorf("set capacity: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// MySQL reports 0 for an unchanged value, so confirm existence.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
