package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// ErrorCode classifies ledger failures for callers.
type ErrorCode string

const (
	CodeNotFound               ErrorCode = "NOT_FOUND"
	CodeForbidden              ErrorCode = "FORBIDDEN"
	CodeFullyPaid              ErrorCode = "FULLY_PAID"
	CodeAmountExceedsRemaining ErrorCode = "AMOUNT_EXCEEDS_REMAINING"
	CodeInvalidAmount          ErrorCode = "INVALID_AMOUNT"
	CodeInvalidMethod          ErrorCode = "INVALID_METHOD"
	CodeConflict               ErrorCode = "CONFLICT"
	CodeBusy                   ErrorCode = "BUSY"
	CodeStoreUnavailable       ErrorCode = "STORE_UNAVAILABLE"
)

// LedgerError carries enough context (ticket id, remaining balance) for
// the UI to show a corrective message.
type LedgerError struct {
	Code      ErrorCode
	TicketID  string
	Remaining decimal.Decimal
	Err       error
}

func (e *LedgerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ledger: %s: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("ledger: %s", e.Code)
}

func (e *LedgerError) Unwrap() error {
	return e.Err
}

func ledgerErr(code ErrorCode, err error) *LedgerError {
	return &LedgerError{Code: code, Err: err}
}

func ledgerErrTicket(code ErrorCode, ticketID string, remaining decimal.Decimal) *LedgerError {
	return &LedgerError{Code: code, TicketID: ticketID, Remaining: remaining}
}

// ErrCode extracts the ledger error code, defaulting to StoreUnavailable
// for untyped failures.
func ErrCode(err error) ErrorCode {
	var le *LedgerError
	if errors.As(err, &le) {
		return le.Code
	}
	return CodeStoreUnavailable
}

var errVersionConflict = errors.New("ticket version changed since read")

// classifyStoreErr maps driver failures onto the ledger taxonomy.
// Lock-wait classes become Busy, serialization failures become Conflict,
// everything else is StoreUnavailable.
func classifyStoreErr(err error) *LedgerError {
	if errors.Is(err, errVersionConflict) {
		return ledgerErr(CodeConflict, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ledgerErr(CodeBusy, err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return ledgerErr(CodeConflict, err)
		case "55P03": // lock_not_available
			return ledgerErr(CodeBusy, err)
		}
	}
	return ledgerErr(CodeStoreUnavailable, err)
}

// retryable reports whether the operation may be re-run safely.
func retryable(code ErrorCode) bool {
	return code == CodeConflict || code == CodeStoreUnavailable
}
