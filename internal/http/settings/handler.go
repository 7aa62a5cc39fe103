package settings

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mbruckner/vinetrack/internal/ledger"
	"github.com/mbruckner/vinetrack/internal/settings"
)

type Handler struct {
	svc    *settings.Service
	ledger *ledger.Service
}

func NewHandler(svc *settings.Service, ledgerSvc *ledger.Service) *Handler {
	return &Handler{svc: svc, ledger: ledgerSvc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/fiscal", h.getFiscal)
	r.Put("/fiscal", h.putFiscal)
	r.Get("/invoice", h.getInvoice)
	r.Put("/invoice", h.putInvoice)
	r.Put("/credential", h.putCredential)
	r.Delete("/credential", h.deleteCredential)
}

func (h *Handler) getFiscal(w http.ResponseWriter, r *http.Request) {
	fiscal, err := h.svc.Fiscal(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, fiscal)
}

func (h *Handler) putFiscal(w http.ResponseWriter, r *http.Request) {
	var req settings.Fiscal
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	updated, err := h.svc.UpdateFiscal(r.Context(), req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, updated)
}

func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.svc.Invoice(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, inv)
}

func (h *Handler) putInvoice(w http.ResponseWriter, r *http.Request) {
	var req settings.Invoice
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.svc.UpdateInvoice(r.Context(), req); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, req)
}

type credentialRequest struct {
	Credential string `json:"credential"`
}

func (h *Handler) putCredential(w http.ResponseWriter, r *http.Request) {
	var req credentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.Credential == "" {
		http.Error(w, "credential must not be empty", http.StatusBadRequest)
		return
	}

	if err := h.ledger.SetCredential(r.Context(), req.Credential); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteCredential(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.SetCredential(r.Context(), ""); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
