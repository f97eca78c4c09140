package services

import (
	"github.com/shopspring/decimal"
)

const (
	StatusPaid   = "paid"
	StatusUnpaid = "unpaid"
)

// Balance is the paid/total/remaining triple returned to callers after
// every ledger operation and by the read-side display.
type Balance struct {
	TicketTotal decimal.Decimal `json:"ticketTotal"`
	TicketPaid  decimal.Decimal `json:"ticketPaid"`
	Remaining   decimal.Decimal `json:"remaining"`
	Status      string          `json:"status"`
}

// ComputeBalance derives the remaining balance and payment status for a
// ticket. Pure and total: remaining is clamped at zero for display even
// though the ledger invariant keeps paid <= total.
func ComputeBalance(total, paid decimal.Decimal) Balance {
	remaining := total.Sub(paid)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	status := StatusUnpaid
	if remaining.IsZero() {
		status = StatusPaid
	}

	return Balance{
		TicketTotal: total,
		TicketPaid:  paid,
		Remaining:   remaining,
		Status:      status,
	}
}
