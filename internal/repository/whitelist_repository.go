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

// WhitelistRepo persists the email_whitelist table.  Emails are stored
// trimmed and lower-cased.
type WhitelistRepo struct{ DB *sql.DB }

func NewWhitelistRepo(db *sql.DB) *WhitelistRepo { return &WhitelistRepo{DB: db} }

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsActive reports whether email is present and active.
func (r *WhitelistRepo) IsActive(ctx context.Context, email string) (bool, error) {
	var active bool
	err := r.DB.QueryRowContext(ctx,
		"SELECT active FROM email_whitelist WHERE email=? LIMIT 1",
		NormalizeEmail(email)).Scan(&active)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return active, nil
}

// List returns all entries, newest first.
func (r *WhitelistRepo) List(ctx context.Context) ([]model.WhitelistEntry, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,email,active,created_at FROM email_whitelist ORDER BY created_at DESC, email")
	if err != nil {
		return nil, fmt.Errorf("list whitelist: %w", err)
	}
	defer rows.Close()
	out := make([]model.WhitelistEntry, 0)
	for rows.Next() {
		var (
			e         model.WhitelistEntry
			createdMs int64
		)
		if err := rows.Scan(&e.ID, &e.Email, &e.Active, &createdMs); err != nil {
			return nil, err
		}
		e.CreatedAt = time.UnixMilli(createdMs).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// Add inserts an active entry and returns it.  A duplicate email yields
// ErrEmailExists.
func (r *WhitelistRepo) Add(ctx context.Context, email string) (model.WhitelistEntry, error) {
	e := model.WhitelistEntry{
		ID:        uuid.NewString(),
		Email:     NormalizeEmail(email),
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO email_whitelist (id, email, active, created_at) VALUES (?,?,?,?)",
		e.ID, e.Email, e.Active, e.CreatedAt.UnixMilli())
	if err != nil {
		if isUniqueViolation(err) {
			return model.WhitelistEntry{}, ErrEmailExists
		}
		return model.WhitelistEntry{}, fmt.Errorf("add whitelist email: %w", err)
	}
	return e, nil
}

// GetByID fetches one entry or ErrNotFound.
func (r *WhitelistRepo) GetByID(ctx context.Context, id string) (model.WhitelistEntry, error) {
	var (
		e         model.WhitelistEntry
		createdMs int64
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,email,active,created_at FROM email_whitelist WHERE id=? LIMIT 1",
		id).Scan(&e.ID, &e.Email, &e.Active, &createdMs)
	if errors.Is(err, sql.ErrNoRows) {
		return model.WhitelistEntry{}, ErrNotFound
	}
	if err != nil {
		return model.WhitelistEntry{}, err
	}
	e.CreatedAt = time.UnixMilli(createdMs).UTC()
	return e, nil
}

// SetActive toggles an entry and returns the updated row.
func (r *WhitelistRepo) SetActive(ctx context.Context, id string, active bool) (model.WhitelistEntry, error) {
	e, err := r.GetByID(ctx, id)
	if err != nil {
		return model.WhitelistEntry{}, err
	}
	if _, err := r.DB.ExecContext(ctx, "UPDATE email_whitelist SET active=? WHERE id=?", active, id); err != nil {
		return model.WhitelistEntry{}, fmt.Errorf("update whitelist email: %w", err)
	}
	e.Active = active
	return e, nil
}

// Delete removes an entry and returns the email it held.
func (r *WhitelistRepo) Delete(ctx context.Context, id string) (string, error) {
	e, err := r.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if _, err := r.DB.ExecContext(ctx, "DELETE FROM email_whitelist WHERE id=?", id); err != nil {
		return "", fmt.Errorf("delete whitelist email: %w", err)
	}
	return e.Email, nil
}
