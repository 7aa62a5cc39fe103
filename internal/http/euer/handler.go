// Package euer exposes the yearly profit computation.
package euer

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mbruckner/vinetrack/internal/euer"
	"github.com/mbruckner/vinetrack/internal/expense"
	"github.com/mbruckner/vinetrack/internal/ledger"
	"github.com/mbruckner/vinetrack/internal/settings"
)

type Handler struct {
	ledger   *ledger.Service
	expenses *expense.Service
	settings *settings.Service
}

func NewHandler(ledgerSvc *ledger.Service, expenseSvc *expense.Service, settingsSvc *settings.Service) *Handler {
	return &Handler{
		ledger:   ledgerSvc,
		expenses: expenseSvc,
		settings: settingsSvc,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.report)
}

func (h *Handler) report(w http.ResponseWriter, r *http.Request) {
	year := time.Now().Year()

	if s := r.URL.Query().Get("year"); s != "" {
		parsed, err := strconv.Atoi(s)
		if err != nil {
			http.Error(w, "invalid year", http.StatusBadRequest)
			return
		}

		year = parsed
	}

	fiscal, err := h.settings.Fiscal(r.Context())
	if err != nil {
		http.Error(w, "loading settings", http.StatusInternalServerError)
		return
	}

	expenses, err := h.expenses.List(r.Context())
	if err != nil {
		http.Error(w, "loading expenses", http.StatusInternalServerError)
		return
	}

	report := euer.Compute(h.ledger.Products(fiscal), expenses, fiscal, year)

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(report); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
