package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/atelio/backend/internal/models"
	"github.com/atelio/backend/internal/services"
)

type PaymentHandler struct {
	ledger    *services.LedgerService
	validator *services.ValidationHelper
}

func NewPaymentHandler(ledger *services.LedgerService) *PaymentHandler {
	return &PaymentHandler{
		ledger:    ledger,
		validator: services.NewValidationHelper(),
	}
}

type recordPaymentRequest struct {
	LookupCode string `json:"lookupCode" validate:"required,max=64"`
	Amount     string `json:"amount" validate:"required"`
	PaidAt     string `json:"paidAt"`
	Method     string `json:"method" validate:"required,oneof=cash check transfer card other"`
	Note       string `json:"note" validate:"max=500"`
	Reference  string `json:"reference" validate:"max=64"`
}

type amendPaymentRequest struct {
	Amount string `json:"amount" validate:"required"`
	PaidAt string `json:"paidAt"`
	Method string `json:"method" validate:"required,oneof=cash check transfer card other"`
	Note   string `json:"note" validate:"max=500"`
}

// RecordPayment records a payment against a ticket
// @Summary Record a payment
// @Description Record a payment against the ticket identified by a lookup code
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body recordPaymentRequest true "Payment to record"
// @Success 201 {object} services.Balance
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Router /payments [post]
func (h *PaymentHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	workshopID, ok := workshopFromContext(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req recordPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		services.SendErrorResponse(w, "Invalid amount", http.StatusBadRequest, nil)
		return
	}

	paidAt, ok := parsePaidAt(w, req.PaidAt)
	if !ok {
		return
	}

	bal, err := h.ledger.RecordPayment(r.Context(), services.RecordPaymentInput{
		LookupCode: req.LookupCode,
		WorkshopID: workshopID,
		Amount:     amount,
		PaidAt:     paidAt,
		Method:     models.PaymentMethod(req.Method),
		Note:       req.Note,
		Reference:  req.Reference,
	})
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"balance": bal,
	})
}

// AmendPayment edits a previously recorded payment
// @Summary Amend a payment
// @Description Edit a payment's amount, date, method or note; the ticket's paid total follows the delta
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param paymentId path string true "Payment ID"
// @Param request body amendPaymentRequest true "New payment fields"
// @Success 200 {object} services.Balance
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Router /payments/{paymentId} [put]
func (h *PaymentHandler) AmendPayment(w http.ResponseWriter, r *http.Request) {
	workshopID, ok := workshopFromContext(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	paymentID := chi.URLParam(r, "paymentId")
	if paymentID == "" {
		services.SendErrorResponse(w, "paymentId is required", http.StatusBadRequest, nil)
		return
	}

	var req amendPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		services.SendErrorResponse(w, "Invalid amount", http.StatusBadRequest, nil)
		return
	}

	paidAt, ok := parsePaidAt(w, req.PaidAt)
	if !ok {
		return
	}

	bal, err := h.ledger.AmendPayment(r.Context(), services.AmendPaymentInput{
		PaymentID:  paymentID,
		WorkshopID: workshopID,
		Amount:     amount,
		PaidAt:     paidAt,
		Method:     models.PaymentMethod(req.Method),
		Note:       req.Note,
	})
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"balance": bal,
	})
}

// GetTicketBalance returns the balance display for a ticket
// @Summary Get ticket balance
// @Description Get the paid/total/remaining triple for a ticket by lookup code
// @Tags tickets
// @Produce json
// @Security BearerAuth
// @Param lookupCode path string true "Ticket lookup code"
// @Success 200 {object} services.Balance
// @Failure 404 {object} services.ErrorResponse
// @Router /tickets/{lookupCode}/balance [get]
func (h *PaymentHandler) GetTicketBalance(w http.ResponseWriter, r *http.Request) {
	workshopID, ok := workshopFromContext(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	lookupCode := chi.URLParam(r, "lookupCode")
	bal, err := h.ledger.TicketBalance(r.Context(), lookupCode, workshopID)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(bal)
}

// ListTicketPayments returns the payment history for a ticket
// @Summary List ticket payments
// @Description List a ticket's recorded payments, newest first
// @Tags tickets
// @Produce json
// @Security BearerAuth
// @Param lookupCode path string true "Ticket lookup code"
// @Success 200 {object} object{payments=[]models.Payment,count=int}
// @Failure 404 {object} services.ErrorResponse
// @Router /tickets/{lookupCode}/payments [get]
func (h *PaymentHandler) ListTicketPayments(w http.ResponseWriter, r *http.Request) {
	workshopID, ok := workshopFromContext(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	lookupCode := chi.URLParam(r, "lookupCode")
	payments, err := h.ledger.ListPayments(r.Context(), lookupCode, workshopID)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"payments": payments,
		"count":    len(payments),
	})
}

// ListPaymentMethods returns the accepted payment methods
// @Summary List payment methods
// @Description Closed set of accepted payment methods for UI pickers
// @Tags payments
// @Produce json
// @Success 200 {object} object{methods=[]string}
// @Router /payment-methods [get]
func (h *PaymentHandler) ListPaymentMethods(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	json.NewEncoder(w).Encode(map[string]any{
		"methods": models.PaymentMethods(),
	})
}

func parsePaidAt(w http.ResponseWriter, raw string) (time.Time, bool) {
	if raw == "" {
		return time.Now(), true
	}
	paidAt, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		services.SendErrorResponse(w, "Invalid paidAt, expected RFC 3339 timestamp", http.StatusBadRequest, nil)
		return time.Time{}, false
	}
	return paidAt, true
}
