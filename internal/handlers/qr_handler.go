package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/atelio/backend/internal/services"
)

type QRHandler struct {
	service *services.QRService
}

func NewQRHandler(service *services.QRService) *QRHandler {
	return &QRHandler{service: service}
}

// GenerateLabel renders a printable QR label for a ticket
// @Summary Generate ticket QR label
// @Description Render a PNG QR label encoding the ticket's lookup code
// @Tags QR
// @Produce json
// @Security BearerAuth
// @Param lookupCode path string true "Ticket lookup code"
// @Success 200 {object} object{qrImage=string}
// @Failure 404 {object} services.ErrorResponse
// @Router /tickets/{lookupCode}/qr [post]
func (h *QRHandler) GenerateLabel(w http.ResponseWriter, r *http.Request) {
	workshopID, ok := workshopFromContext(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	lookupCode := chi.URLParam(r, "lookupCode")
	qrImage, err := h.service.GenerateLabel(r.Context(), lookupCode, workshopID)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"qrImage": qrImage,
	})
}
