package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/slot-reservation/internal/model"
)

// ReservationRepo provides insert and read access to the reservations
// table.  Reservations are immutable once written; there is no update or
// delete path.
type ReservationRepo struct {
	db  *sql.DB
	loc *time.Location
}

// NewReservationRepo returns a new ReservationRepo bound to the given
// database.  A nil loc means time.Local.
func NewReservationRepo(db *sql.DB, loc *time.Location) *ReservationRepo {
	if loc == nil {
		loc = time.Local
	}
	return &ReservationRepo{db: db, loc: loc}
}

// CreateTx inserts a reservation within the scope of an existing
// transaction.  It assigns the ID and CreatedAt on the provided record and
// normalizes the week start to its date-only form.  The caller must commit
// or roll back the transaction.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	if res.Status == "" {
		res.Status = model.StatusConfirmed
	}
	res.Email = strings.ToLower(strings.TrimSpace(res.Email))
	res.CreatedAt = time.Now().UTC()
	weekKey := res.WeekStart.Format(model.WeekKeyLayout)
	const q = `INSERT INTO reservations
	             (id, first_name, last_name, email, phone, time_slot_id, slot_time, week_start, status, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := tx.ExecContext(ctx, q,
		res.ID, res.FirstName, res.LastName, res.Email, res.Phone,
		res.TimeSlotID, res.SlotTime, weekKey, res.Status, res.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	ws, err := time.ParseInLocation(model.WeekKeyLayout, weekKey, r.loc)
	if err == nil {
		res.WeekStart = ws
	}
	return nil
}

// CountByWeek returns the number of confirmed reservations for the week.
func (r *ReservationRepo) CountByWeek(ctx context.Context, weekStart time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE week_start = ? AND status = ?`,
		weekStart.Format(model.WeekKeyLayout), model.StatusConfirmed).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count reservations: %w", err)
	}
	return n, nil
}

// CountBySlot returns confirmed reservation counts keyed by time slot id
// for the week.  Slots without reservations are absent from the map.
func (r *ReservationRepo) CountBySlot(ctx context.Context, weekStart time.Time) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT time_slot_id, COUNT(*) FROM reservations
		 WHERE week_start = ? AND status = ?
		 GROUP BY time_slot_id`,
		weekStart.Format(model.WeekKeyLayout), model.StatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("count reservations by slot: %w", err)
	}
	defer rows.Close()
	counts := make(map[string]int)
	for rows.Next() {
		var (
			id string
			n  int
		)
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

// ListByWeek returns the week's reservations ordered by slot time, then
// creation time.
func (r *ReservationRepo) ListByWeek(ctx context.Context, weekStart time.Time) ([]model.Reservation, error) {
	const q = `SELECT id, first_name, last_name, email, phone, time_slot_id, slot_time, week_start, status, created_at
	           FROM reservations
	           WHERE week_start = ?
	           ORDER BY slot_time, created_at`
	rows, err := r.db.QueryContext(ctx, q, weekStart.Format(model.WeekKeyLayout))
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()
	out := make([]model.Reservation, 0)
	for rows.Next() {
		var (
			res       model.Reservation
			weekKey   string
			createdMs int64
		)
		if err := rows.Scan(&res.ID, &res.FirstName, &res.LastName, &res.Email, &res.Phone,
			&res.TimeSlotID, &res.SlotTime, &weekKey, &res.Status, &createdMs); err != nil {
			return nil, err
		}
		if ws, err := time.ParseInLocation(model.WeekKeyLayout, weekKey, r.loc); err == nil {
			res.WeekStart = ws
		}
		res.CreatedAt = time.UnixMilli(createdMs).UTC()
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
