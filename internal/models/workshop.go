package models

import (
	"time"
)

// Workshop is the tenant boundary. Tickets and payments belong to
// exactly one workshop.
type Workshop struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Subscription is a workshop's access window. The ledger only reads it
// through the subscription gate; billing is managed elsewhere.
type Subscription struct {
	WorkshopID string    `json:"workshopId" db:"workshop_id"`
	StartsAt   time.Time `json:"startsAt" db:"starts_at"`
	EndsAt     time.Time `json:"endsAt" db:"ends_at"`
	Paid       bool      `json:"paid" db:"paid"`
}

// Active reports whether the subscription covers the given instant.
func (s Subscription) Active(now time.Time) bool {
	return s.Paid && !now.Before(s.StartsAt) && now.Before(s.EndsAt)
}
