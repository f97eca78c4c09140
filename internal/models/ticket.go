package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ticket represents a repair job ("fiche") with a total amount owed.
// AmountPaid is maintained exclusively by the ledger service; everything
// else on the row belongs to the ticket-authoring flow.
type Ticket struct {
	ID          string          `json:"id" db:"id"`
	WorkshopID  string          `json:"workshopId" db:"workshop_id"`
	LookupCode  string          `json:"lookupCode" db:"lookup_code"`
	AmountTotal decimal.Decimal `json:"amountTotal" db:"amount_total"`
	AmountPaid  decimal.Decimal `json:"amountPaid" db:"amount_paid"`
	Version     int             `json:"-" db:"version"` // for optimistic locking
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time       `json:"updatedAt" db:"updated_at"`
}
