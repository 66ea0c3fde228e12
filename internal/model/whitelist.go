package model

import "time"

// WhitelistEntry is an email authorized to reserve a slot.  Inactive
// entries are kept so an admin can re-enable them.
type WhitelistEntry struct {
	ID        string    `json:"id"`         // email_whitelist.id
	Email     string    `json:"email"`      // email_whitelist.email
	Active    bool      `json:"active"`     // email_whitelist.active
	CreatedAt time.Time `json:"created_at"` // email_whitelist.created_at
}
