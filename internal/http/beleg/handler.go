// Package beleg exposes receipt generation: number proposals, previews and
// the finalization endpoints.
package beleg

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mbruckner/vinetrack/internal/document"
	"github.com/mbruckner/vinetrack/internal/finalize"
	"github.com/mbruckner/vinetrack/internal/fiscaldate"
	"github.com/mbruckner/vinetrack/internal/ledger"
	"github.com/mbruckner/vinetrack/internal/settings"
)

type Handler struct {
	ledger      *ledger.Service
	settings    *settings.Service
	finalizeSvc *finalize.Service
}

func NewHandler(ledgerSvc *ledger.Service, settingsSvc *settings.Service, finalizeSvc *finalize.Service) *Handler {
	return &Handler{
		ledger:      ledgerSvc,
		settings:    settingsSvc,
		finalizeSvc: finalizeSvc,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/proposals", h.proposals)
	r.Get("/window", h.window)
	r.Get("/preview/{asin}", h.preview)
	r.Post("/finalize", h.finalizeOne)
	r.Post("/finalize/batch", h.finalizeBatch)
}

func (h *Handler) proposals(w http.ResponseWriter, r *http.Request) {
	fiscal, err := h.settings.Fiscal(r.Context())
	if err != nil {
		http.Error(w, "loading settings", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(h.finalizeSvc.Proposals(fiscal)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type windowResponse struct {
	Start fiscaldate.Date `json:"start"`
	End   fiscaldate.Date `json:"end"`
}

// window proposes the default reporting window for batch finalization,
// spanning from the oldest eligible order date to the end of its quarter.
func (h *Handler) window(w http.ResponseWriter, r *http.Request) {
	fiscal, err := h.settings.Fiscal(r.Context())
	if err != nil {
		http.Error(w, "loading settings", http.StatusInternalServerError)
		return
	}

	start, end, ok := h.finalizeSvc.ProposedWindow(fiscal)
	if !ok {
		http.Error(w, "no eligible products", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(windowResponse{Start: start, End: end}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// preview renders the receipt text without finalizing. Non-finalized
// products use their current number proposal.
func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	asin := chi.URLParam(r, "asin")

	p, ok := h.ledger.Get(asin)
	if !ok {
		http.Error(w, "product not found", http.StatusNotFound)
		return
	}

	fiscal, err := h.settings.Fiscal(r.Context())
	if err != nil {
		http.Error(w, "loading settings", http.StatusInternalServerError)
		return
	}

	inv, err := h.settings.Invoice(r.Context())
	if err != nil {
		http.Error(w, "loading settings", http.StatusInternalServerError)
		return
	}

	number := p.InvoiceNumber
	if number == "" {
		number = h.finalizeSvc.Proposals(fiscal)[asin]
	}

	text := document.BelegText(p, inv, fiscal, number, fiscaldate.FromTime(time.Now()))

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if _, err := w.Write([]byte(text)); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

type finalizeRequest struct {
	ASIN string `json:"asin"`
}

type finalizeBatchRequest struct {
	ASINs []string `json:"asins"`
}

func (h *Handler) finalizeOne(w http.ResponseWriter, r *http.Request) {
	var req finalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	fiscal, inv, ok := h.loadSettings(w, r)
	if !ok {
		return
	}

	result, err := h.finalizeSvc.Finalize(r.Context(), req.ASIN, fiscal, inv)
	if err != nil {
		writeFinalizeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(result); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) finalizeBatch(w http.ResponseWriter, r *http.Request) {
	var req finalizeBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	fiscal, inv, ok := h.loadSettings(w, r)
	if !ok {
		return
	}

	result, err := h.finalizeSvc.FinalizeBatch(r.Context(), req.ASINs, fiscal, inv)
	if err != nil {
		writeFinalizeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(result); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) loadSettings(w http.ResponseWriter, r *http.Request) (settings.Fiscal, settings.Invoice, bool) {
	fiscal, err := h.settings.Fiscal(r.Context())
	if err != nil {
		http.Error(w, "loading settings", http.StatusInternalServerError)
		return settings.Fiscal{}, settings.Invoice{}, false
	}

	inv, err := h.settings.Invoice(r.Context())
	if err != nil {
		http.Error(w, "loading settings", http.StatusInternalServerError)
		return settings.Fiscal{}, settings.Invoice{}, false
	}

	return fiscal, inv, true
}

func writeFinalizeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, finalize.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, finalize.ErrSenderIncomplete),
		errors.Is(err, finalize.ErrAlreadyFinalized),
		errors.Is(err, finalize.ErrMinorValue),
		errors.Is(err, finalize.ErrCancelled),
		errors.Is(err, finalize.ErrNoInvoiceNumber),
		errors.Is(err, finalize.ErrEmptyBatch):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
