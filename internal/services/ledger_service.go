package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/atelio/backend/internal/config"
	"github.com/atelio/backend/internal/models"
)

// LedgerService owns the invariant that a ticket's amount_paid always
// equals the sum of its payments and never exceeds amount_total. The
// payment write and the ticket update always commit in the same
// database transaction, with the ticket row locked for the whole
// read-modify-write.
type LedgerService struct {
	db     *sql.DB
	lookup *LookupService
	gate   *SubscriptionService
	config *config.LedgerConfig
}

func NewLedgerService(db *sql.DB, lookup *LookupService, gate *SubscriptionService) *LedgerService {
	return &LedgerService{
		db:     db,
		lookup: lookup,
		gate:   gate,
		config: config.LoadLedgerConfig(),
	}
}

type RecordPaymentInput struct {
	LookupCode string
	WorkshopID string
	Amount     decimal.Decimal
	PaidAt     time.Time
	Method     models.PaymentMethod
	Note       string
	Reference  string // optional idempotency key supplied by the client
}

type AmendPaymentInput struct {
	PaymentID  string
	WorkshopID string
	Amount     decimal.Decimal
	PaidAt     time.Time
	Method     models.PaymentMethod
	Note       string
}

// RecordPayment records a payment against the ticket identified by a
// lookup code and advances the ticket's paid total, atomically.
func (s *LedgerService) RecordPayment(ctx context.Context, in RecordPaymentInput) (*Balance, error) {
	if err := s.gate.Require(ctx, in.WorkshopID); err != nil {
		return nil, err
	}
	if !in.Amount.IsPositive() {
		return nil, ledgerErr(CodeInvalidAmount, fmt.Errorf("amount must be positive, got %s", in.Amount))
	}
	if !models.ValidMethod(in.Method) {
		return nil, ledgerErr(CodeInvalidMethod, fmt.Errorf("unknown payment method %q", in.Method))
	}

	// Idempotency: a reference seen before returns the already-recorded
	// result instead of double-applying.
	if in.Reference != "" {
		if bal, ok, err := s.findByReference(ctx, in.WorkshopID, in.Reference); err != nil {
			return nil, err
		} else if ok {
			log.Printf("[LEDGER] Duplicate payment reference %s for workshop %s, returning recorded result", in.Reference, in.WorkshopID)
			return bal, nil
		}
	}

	return s.withRetry(ctx, "RecordPayment", func(ctx context.Context) (*Balance, error) {
		return s.recordOnce(ctx, in)
	})
}

// AmendPayment rewrites a payment's mutable fields and re-derives the
// ticket's paid total from the delta against the pre-edit amount. The
// old amount is captured under the payment row lock, never re-derived
// from the ticket, which is what keeps an edit from double-counting.
func (s *LedgerService) AmendPayment(ctx context.Context, in AmendPaymentInput) (*Balance, error) {
	if err := s.gate.Require(ctx, in.WorkshopID); err != nil {
		return nil, err
	}
	if !in.Amount.IsPositive() {
		return nil, ledgerErr(CodeInvalidAmount, fmt.Errorf("amount must be positive, got %s", in.Amount))
	}
	if !models.ValidMethod(in.Method) {
		return nil, ledgerErr(CodeInvalidMethod, fmt.Errorf("unknown payment method %q", in.Method))
	}

	return s.withRetry(ctx, "AmendPayment", func(ctx context.Context) (*Balance, error) {
		return s.amendOnce(ctx, in)
	})
}

// TicketBalance returns the read-side balance display for a ticket.
func (s *LedgerService) TicketBalance(ctx context.Context, lookupCode, workshopID string) (*Balance, error) {
	if err := s.gate.Require(ctx, workshopID); err != nil {
		return nil, err
	}

	ticketID, err := s.lookup.Resolve(ctx, lookupCode, workshopID)
	if err != nil {
		return nil, err
	}

	var total, paid decimal.Decimal
	err = s.db.QueryRowContext(ctx, `
		SELECT amount_total, amount_paid FROM tickets
		WHERE id = $1 AND workshop_id = $2
	`, ticketID, workshopID).Scan(&total, &paid)
	if err == sql.ErrNoRows {
		return nil, ledgerErr(CodeNotFound, fmt.Errorf("ticket %s not found", ticketID))
	}
	if err != nil {
		return nil, classifyStoreErr(err)
	}

	bal := ComputeBalance(total, paid)
	return &bal, nil
}

// ListPayments returns a ticket's payment history, newest first.
func (s *LedgerService) ListPayments(ctx context.Context, lookupCode, workshopID string) ([]models.Payment, error) {
	if err := s.gate.Require(ctx, workshopID); err != nil {
		return nil, err
	}

	ticketID, err := s.lookup.Resolve(ctx, lookupCode, workshopID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ticket_id, workshop_id, COALESCE(reference, ''), amount, paid_at, method, COALESCE(note, ''), created_at, updated_at
		FROM payments
		WHERE ticket_id = $1 AND workshop_id = $2
		ORDER BY paid_at DESC, created_at DESC
	`, ticketID, workshopID)
	if err != nil {
		return nil, classifyStoreErr(err)
	}
	defer rows.Close()

	payments := []models.Payment{}
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ID, &p.TicketID, &p.WorkshopID, &p.Reference, &p.Amount, &p.PaidAt, &p.Method, &p.Note, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, classifyStoreErr(err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyStoreErr(err)
	}

	return payments, nil
}

// withRetry re-runs op on Conflict/StoreUnavailable a bounded number of
// times with backoff before surfacing the failure.
func (s *LedgerService) withRetry(ctx context.Context, opName string, op func(context.Context) (*Balance, error)) (*Balance, error) {
	var lastErr error
	for attempt := 0; attempt <= s.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(s.config.RetryBackoff * time.Duration(attempt)):
			case <-ctx.Done():
				return nil, ledgerErr(CodeBusy, ctx.Err())
			}
			log.Printf("[LEDGER] %s retry %d/%d after: %v", opName, attempt, s.config.MaxRetries, lastErr)
		}

		opCtx, cancel := context.WithTimeout(ctx, s.config.LockTimeout)
		bal, err := op(opCtx)
		cancel()

		if err == nil {
			return bal, nil
		}
		lastErr = err

		if !retryable(ErrCode(err)) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (s *LedgerService) recordOnce(ctx context.Context, in RecordPaymentInput) (*Balance, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classifyStoreErr(err)
	}
	defer tx.Rollback()

	ticketID, err := s.lookup.Resolve(ctx, in.LookupCode, in.WorkshopID)
	if err != nil {
		return nil, err
	}

	ticket, err := s.lockTicket(ctx, tx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.WorkshopID != in.WorkshopID {
		// Resolve already scopes by workshop; a mismatch here means a
		// stale cache entry. Report it exactly like an unknown code.
		return nil, ledgerErr(CodeNotFound, fmt.Errorf("lookup code %s not found", in.LookupCode))
	}

	remaining := ticket.AmountTotal.Sub(ticket.AmountPaid)
	if !remaining.IsPositive() {
		return nil, ledgerErrTicket(CodeFullyPaid, ticket.ID, decimal.Zero)
	}
	if in.Amount.GreaterThan(remaining) {
		return nil, ledgerErrTicket(CodeAmountExceedsRemaining, ticket.ID, remaining)
	}

	payment := models.Payment{
		ID:         uuid.NewString(),
		TicketID:   ticket.ID,
		WorkshopID: ticket.WorkshopID,
		Reference:  in.Reference,
		Amount:     in.Amount,
		PaidAt:     in.PaidAt,
		Method:     in.Method,
		Note:       in.Note,
	}
	if err := s.insertPayment(ctx, tx, &payment); err != nil {
		return nil, err
	}

	newPaid := ticket.AmountPaid.Add(in.Amount)
	if err := s.updateTicketPaid(ctx, tx, ticket, newPaid); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, classifyStoreErr(err)
	}

	log.Printf("[LEDGER] Recorded payment %s of %s on ticket %s (paid %s/%s)",
		payment.ID, in.Amount, ticket.ID, newPaid, ticket.AmountTotal)
	bal := ComputeBalance(ticket.AmountTotal, newPaid)
	return &bal, nil
}

func (s *LedgerService) amendOnce(ctx context.Context, in AmendPaymentInput) (*Balance, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classifyStoreErr(err)
	}
	defer tx.Rollback()

	// Lock the payment first: the pre-edit amount read here is the one
	// the delta is computed from.
	oldPayment, err := s.lockPayment(ctx, tx, in.PaymentID, in.WorkshopID)
	if err != nil {
		return nil, err
	}

	ticket, err := s.lockTicket(ctx, tx, oldPayment.TicketID)
	if err != nil {
		return nil, err
	}

	delta := in.Amount.Sub(oldPayment.Amount)
	newPaid := ticket.AmountPaid.Add(delta)
	if newPaid.GreaterThan(ticket.AmountTotal) {
		remaining := ticket.AmountTotal.Sub(ticket.AmountPaid)
		return nil, ledgerErrTicket(CodeAmountExceedsRemaining, ticket.ID, remaining)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE payments
		SET amount = $1, paid_at = $2, method = $3, note = $4, updated_at = NOW()
		WHERE id = $5
	`, in.Amount, in.PaidAt, string(in.Method), in.Note, oldPayment.ID)
	if err != nil {
		return nil, classifyStoreErr(err)
	}

	if err := s.updateTicketPaid(ctx, tx, ticket, newPaid); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, classifyStoreErr(err)
	}

	log.Printf("[LEDGER] Amended payment %s on ticket %s: %s -> %s (paid %s/%s)",
		oldPayment.ID, ticket.ID, oldPayment.Amount, in.Amount, newPaid, ticket.AmountTotal)
	bal := ComputeBalance(ticket.AmountTotal, newPaid)
	return &bal, nil
}

func (s *LedgerService) lockTicket(ctx context.Context, tx *sql.Tx, ticketID string) (*models.Ticket, error) {
	var t models.Ticket
	err := tx.QueryRowContext(ctx, `
		SELECT id, workshop_id, lookup_code, amount_total, amount_paid, version
		FROM tickets
		WHERE id = $1
		FOR UPDATE
	`, ticketID).Scan(&t.ID, &t.WorkshopID, &t.LookupCode, &t.AmountTotal, &t.AmountPaid, &t.Version)

	if err == sql.ErrNoRows {
		return nil, ledgerErr(CodeNotFound, fmt.Errorf("ticket %s not found", ticketID))
	}
	if err != nil {
		return nil, classifyStoreErr(err)
	}
	return &t, nil
}

func (s *LedgerService) lockPayment(ctx context.Context, tx *sql.Tx, paymentID, workshopID string) (*models.Payment, error) {
	var p models.Payment
	err := tx.QueryRowContext(ctx, `
		SELECT id, ticket_id, workshop_id, amount, paid_at, method, COALESCE(note, '')
		FROM payments
		WHERE id = $1 AND workshop_id = $2
		FOR UPDATE
	`, paymentID, workshopID).Scan(&p.ID, &p.TicketID, &p.WorkshopID, &p.Amount, &p.PaidAt, &p.Method, &p.Note)

	if err == sql.ErrNoRows {
		return nil, ledgerErr(CodeNotFound, fmt.Errorf("payment %s not found", paymentID))
	}
	if err != nil {
		return nil, classifyStoreErr(err)
	}
	return &p, nil
}

func (s *LedgerService) insertPayment(ctx context.Context, tx *sql.Tx, p *models.Payment) error {
	var ref any
	if p.Reference != "" {
		ref = p.Reference
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO payments (id, ticket_id, workshop_id, reference, amount, paid_at, method, note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
	`, p.ID, p.TicketID, p.WorkshopID, ref, p.Amount, p.PaidAt, string(p.Method), p.Note)
	if err != nil {
		return classifyStoreErr(err)
	}
	return nil
}

// updateTicketPaid is the single write path both record and amend funnel
// through. The version check rejects the write if the row changed
// between the locked read and the update.
func (s *LedgerService) updateTicketPaid(ctx context.Context, tx *sql.Tx, ticket *models.Ticket, newPaid decimal.Decimal) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE tickets
		SET amount_paid = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3
	`, newPaid, ticket.ID, ticket.Version)
	if err != nil {
		return classifyStoreErr(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return classifyStoreErr(err)
	}
	if rowsAffected == 0 {
		return classifyStoreErr(fmt.Errorf("ticket %s: %w", ticket.ID, errVersionConflict))
	}
	return nil
}

func (s *LedgerService) findByReference(ctx context.Context, workshopID, reference string) (*Balance, bool, error) {
	var total, paid decimal.Decimal
	err := s.db.QueryRowContext(ctx, `
		SELECT t.amount_total, t.amount_paid
		FROM payments p
		JOIN tickets t ON t.id = p.ticket_id
		WHERE p.workshop_id = $1 AND p.reference = $2
	`, workshopID, reference).Scan(&total, &paid)

	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, classifyStoreErr(err)
	}

	bal := ComputeBalance(total, paid)
	return &bal, true, nil
}
