package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is the closed set of accepted payment instruments.
type PaymentMethod string

const (
	MethodCash     PaymentMethod = "cash"
	MethodCheck    PaymentMethod = "check"
	MethodTransfer PaymentMethod = "transfer"
	MethodCard     PaymentMethod = "card"
	MethodOther    PaymentMethod = "other"
)

// ValidMethod reports whether m is one of the accepted payment methods.
func ValidMethod(m PaymentMethod) bool {
	switch m {
	case MethodCash, MethodCheck, MethodTransfer, MethodCard, MethodOther:
		return true
	}
	return false
}

// PaymentMethods lists the accepted methods in display order.
func PaymentMethods() []PaymentMethod {
	return []PaymentMethod{MethodCash, MethodCheck, MethodTransfer, MethodCard, MethodOther}
}

// Payment is one recorded transfer against a ticket's balance.
// WorkshopID is denormalized from the ticket for tenant guard checks.
type Payment struct {
	ID         string          `json:"id" db:"id"`
	TicketID   string          `json:"ticketId" db:"ticket_id"`
	WorkshopID string          `json:"workshopId" db:"workshop_id"`
	Reference  string          `json:"reference,omitempty" db:"reference"`
	Amount     decimal.Decimal `json:"amount" db:"amount"`
	PaidAt     time.Time       `json:"paidAt" db:"paid_at"`
	Method     PaymentMethod   `json:"method" db:"method"`
	Note       string          `json:"note,omitempty" db:"note"`
	CreatedAt  time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time       `json:"updatedAt" db:"updated_at"`
}
