package product

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mbruckner/vinetrack/internal/finalize"
	"github.com/mbruckner/vinetrack/internal/fiscaldate"
	"github.com/mbruckner/vinetrack/internal/ledger"
	"github.com/mbruckner/vinetrack/internal/product"
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
	r.Get("/", h.list)
	r.Get("/{asin}", h.get)
	r.Put("/{asin}", h.update)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	fiscal, err := h.settings.Fiscal(r.Context())
	if err != nil {
		http.Error(w, "loading settings", http.StatusInternalServerError)
		return
	}

	products := h.ledger.Products(fiscal)

	if s := r.URL.Query().Get("year"); s != "" {
		year, err := strconv.Atoi(s)
		if err != nil {
			http.Error(w, "invalid year", http.StatusBadRequest)
			return
		}

		filtered := products[:0]

		for _, p := range products {
			if p.OrderDate.Year == year {
				filtered = append(filtered, p)
			}
		}

		products = filtered
	}

	proposals := h.finalizeSvc.Proposals(fiscal)

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponseList(products, fiscal, proposals)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	p, ok := h.ledger.Get(chi.URLParam(r, "asin"))
	if !ok {
		http.Error(w, "product not found", http.StatusNotFound)
		return
	}

	fiscal, err := h.settings.Fiscal(r.Context())
	if err != nil {
		http.Error(w, "loading settings", http.StatusInternalServerError)
		return
	}

	proposals := h.finalizeSvc.Proposals(fiscal)

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(p, fiscal, proposals)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// updateRequest carries the user-editable fields of a record. Absent
// pointer fields clear the corresponding value.
type updateRequest struct {
	OverrideFairValue *int64           `json:"overrideFairValue"`
	OverrideReason    string           `json:"overrideReason"`
	Usage             product.Usage    `json:"usage"`
	Defective         bool             `json:"defective"`
	SalePrice         *int64           `json:"salePrice"`
	SaleDate          *fiscaldate.Date `json:"saleDate"`
	BuyerAddress      string           `json:"buyerAddress"`
	WithdrawalDate    *fiscaldate.Date `json:"withdrawalDate"`
	ValuationDocURL   string           `json:"valuationDocUrl"`

	// Confirmed acknowledges an edit that changes booked fields of a
	// finalized record.
	Confirmed bool `json:"confirmed"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	asin := chi.URLParam(r, "asin")

	existing, ok := h.ledger.Get(asin)
	if !ok {
		http.Error(w, "product not found", http.StatusNotFound)
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if !req.Usage.Valid() {
		http.Error(w, "unknown usage status", http.StatusBadRequest)
		return
	}

	updated := existing
	updated.OverrideFairValue = req.OverrideFairValue
	updated.OverrideReason = req.OverrideReason
	updated.Usage = req.Usage
	updated.Defective = req.Defective
	updated.SalePrice = req.SalePrice
	updated.SaleDate = req.SaleDate
	updated.BuyerAddress = req.BuyerAddress
	updated.WithdrawalDate = req.WithdrawalDate
	updated.ValuationDocURL = req.ValuationDocURL

	saved, err := h.finalizeSvc.UpdateWithGuard(r.Context(), updated, req.Confirmed)
	if err != nil {
		if errors.Is(err, finalize.ErrConfirmationRequired) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}

		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	fiscal, err := h.settings.Fiscal(r.Context())
	if err != nil {
		http.Error(w, "loading settings", http.StatusInternalServerError)
		return
	}

	proposals := h.finalizeSvc.Proposals(fiscal)

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(saved, fiscal, proposals)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
