// Package export serves ledger backup downloads.
package export

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mbruckner/vinetrack/internal/export"
)

type Handler struct {
	svc    *export.Service
	logger *slog.Logger
	now    func() time.Time
}

func NewHandler(svc *export.Service, logger *slog.Logger, now func() time.Time) *Handler {
	if now == nil {
		now = time.Now
	}

	return &Handler{
		svc:    svc,
		logger: logger,
		now:    now,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.snapshot)
	r.Get("/archive", h.archive)
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", h.attachment("json"))

	if err := h.svc.Snapshot(w); err != nil {
		// Headers are out at this point, the download just comes up short.
		h.logger.Error("writing snapshot", "error", err)
	}
}

func (h *Handler) archive(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", h.attachment("zip"))

	if err := h.svc.Archive(w); err != nil {
		h.logger.Error("writing archive", "error", err)
	}
}

func (h *Handler) attachment(ext string) string {
	return fmt.Sprintf(`attachment; filename="vinetrack-export-%s.%s"`, h.now().Format("2006-01-02"), ext)
}
