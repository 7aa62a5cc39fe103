// Package sync exposes the remote round trip, file import and the
// destructive wipe endpoint.
package sync

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mbruckner/vinetrack/internal/importer"
	"github.com/mbruckner/vinetrack/internal/ledger"
	"github.com/mbruckner/vinetrack/internal/settings"
)

const maxImportSize = 50 << 20

type Handler struct {
	ledger   *ledger.Service
	settings *settings.Service
	logger   *slog.Logger
}

func NewHandler(ledgerSvc *ledger.Service, settingsSvc *settings.Service, logger *slog.Logger) *Handler {
	return &Handler{
		ledger:   ledgerSvc,
		settings: settingsSvc,
		logger:   logger,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.sync)
	r.Post("/import", h.importFile)
	r.Delete("/data", h.deleteAll)
}

func (h *Handler) sync(w http.ResponseWriter, r *http.Request) {
	fiscal, err := h.settings.Fiscal(r.Context())
	if err != nil {
		http.Error(w, "loading settings", http.StatusInternalServerError)
		return
	}

	result, err := h.ledger.Sync(r.Context(), fiscal)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(result); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) importFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		http.Error(w, "failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	products, err := importer.Parse(file, h.logger)
	if err != nil {
		if errors.Is(err, importer.ErrInvalidFormat) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	result, err := h.ledger.Import(r.Context(), products)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(result); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) deleteAll(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.DeleteAll(r.Context()); err != nil {
		writeLedgerError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrNoCredential):
		http.Error(w, err.Error(), http.StatusPreconditionFailed)
	case errors.Is(err, ledger.ErrInvalidCredential):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	default:
		http.Error(w, err.Error(), http.StatusBadGateway)
	}
}
