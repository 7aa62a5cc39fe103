package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mbruckner/vinetrack/internal/http/beleg"
	"github.com/mbruckner/vinetrack/internal/http/euer"
	"github.com/mbruckner/vinetrack/internal/http/expense"
	"github.com/mbruckner/vinetrack/internal/http/export"
	"github.com/mbruckner/vinetrack/internal/http/product"
	"github.com/mbruckner/vinetrack/internal/http/settings"
	"github.com/mbruckner/vinetrack/internal/http/sync"
)

func New(
	allowedOrigins []string,
	productsV1 *product.Handler,
	belegeV1 *beleg.Handler,
	euerV1 *euer.Handler,
	expensesV1 *expense.Handler,
	settingsV1 *settings.Handler,
	syncV1 *sync.Handler,
	exportV1 *export.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	// The frontend is a browser SPA served from a different origin.
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			productsV1.Routes(r)
		})

		r.Route("/belege", belegeV1.Routes)

		r.Route("/euer", euerV1.Routes)

		r.Route("/expenses", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			expensesV1.Routes(r)
		})

		r.Route("/settings", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			settingsV1.Routes(r)
		})

		r.Route("/sync", syncV1.Routes)

		r.Route("/export", exportV1.Routes)
	})

	return router
}
