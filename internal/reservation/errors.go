// Package reservation holds the slot reservation core: week provisioning,
// capacity accounting, the reserve workflow and the in-memory view of the
// active week that clients subscribe to.
package reservation

// ErrorType classifies a failed reservation for the client.
type ErrorType string

const (
	SlotUnavailable ErrorType = "slot_unavailable"
	DatabaseError   ErrorType = "database_error"
	// EmailExists and PhoneExists are reserved for duplicate detection and
	// are not produced yet.
	EmailExists ErrorType = "email_exists"
	PhoneExists ErrorType = "phone_exists"
)

const (
	msgSlotLookup   = "could not verify the time slot"
	msgUnavailable  = "this time slot is no longer available"
	msgCreateFailed = "could not create the reservation"
)

// Error is the client-facing description of a failed reservation.
type Error struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
}

func (e *Error) Error() string { return string(e.Type) + ": " + e.Message }

// Result is the outcome of Reserve.  Error is nil on success.
type Result struct {
	Success bool   `json:"success"`
	Error   *Error `json:"error,omitempty"`
}

func failure(t ErrorType, msg string) Result {
	return Result{Error: &Error{Type: t, Message: msg}}
}
