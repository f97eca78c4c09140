package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/atelio/backend/internal/services"
)

// ledgerErrorResponse is the error shape for ledger failures; remaining
// balance context lets the UI show a corrective message.
type ledgerErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	TicketID  string `json:"ticketId,omitempty"`
	Remaining string `json:"remaining,omitempty"`
}

func workshopFromContext(r *http.Request) (string, bool) {
	workshopID, ok := r.Context().Value("workshopID").(string)
	return workshopID, ok && workshopID != ""
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return false
	}

	return true
}

func writeLedgerError(w http.ResponseWriter, err error) {
	code := services.ErrCode(err)

	resp := ledgerErrorResponse{
		Error: messageForCode(code),
		Code:  string(code),
	}

	var le *services.LedgerError
	if errors.As(err, &le) && le.TicketID != "" {
		resp.TicketID = le.TicketID
		resp.Remaining = le.Remaining.StringFixed(3)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusForCode(code))
	json.NewEncoder(w).Encode(resp)
}

func statusForCode(code services.ErrorCode) int {
	switch code {
	case services.CodeNotFound:
		return http.StatusNotFound
	case services.CodeForbidden:
		return http.StatusForbidden
	case services.CodeFullyPaid, services.CodeAmountExceedsRemaining:
		return http.StatusUnprocessableEntity
	case services.CodeInvalidAmount, services.CodeInvalidMethod:
		return http.StatusBadRequest
	case services.CodeConflict:
		return http.StatusConflict
	case services.CodeBusy:
		return http.StatusTooManyRequests
	default:
		return http.StatusServiceUnavailable
	}
}

func messageForCode(code services.ErrorCode) string {
	switch code {
	case services.CodeNotFound:
		return "Ticket or payment not found"
	case services.CodeForbidden:
		return "Access denied"
	case services.CodeFullyPaid:
		return "Ticket is already fully paid"
	case services.CodeAmountExceedsRemaining:
		return "Amount exceeds the remaining balance"
	case services.CodeInvalidAmount:
		return "Amount must be positive"
	case services.CodeInvalidMethod:
		return "Unknown payment method"
	case services.CodeConflict:
		return "Concurrent update, please retry"
	case services.CodeBusy:
		return "Ticket is busy, please retry"
	default:
		return "Service temporarily unavailable"
	}
}
