package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"fundledger/internal/http/handlers"
	"fundledger/internal/metrics"
	"fundledger/internal/middleware"
)

// Options wires the cross-cutting middleware of the API.
type Options struct {
	Logger        zerolog.Logger
	JWTSecret     string
	JWTIssuer     string
	CORSOrigins   []string
	RateLimit     int
	DefaultLocale string
	CountryLookup middleware.CountryLookup
	Metrics       *metrics.Metrics
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.CORSOrigins),
	)
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Instrument)
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.I18N(opts.DefaultLocale, opts.CountryLookup))

		r.Get("/healthz", app.Health)
		r.Get("/openapi.json", app.OpenAPIJSON)
		r.Get("/docs", app.OpenAPIDocs)

		// Reads are public.
		r.Get("/campaigns", app.CampaignsList)
		r.Get("/campaigns/{id}", app.CampaignsGet)
		r.Get("/campaigns/{id}/summary", app.CampaignsSummary)
		r.Get("/campaigns/{id}/donations", app.DonationsList)
		r.Get("/campaigns/{id}/donations/total", app.DonationsTotal)
		r.Get("/campaigns/{id}/donors", app.DonorsList)
		r.Get("/campaigns/{id}/withdrawals", app.WithdrawalsList)
		r.Get("/events", app.EventsList)
		r.Get("/events/stream", app.EventsStream)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthJWT(opts.JWTSecret, opts.JWTIssuer))
			if opts.RateLimit > 0 {
				r.Use(middleware.RateLimit(opts.RateLimit, time.Minute))
			}

			r.Post("/campaigns", app.CampaignsCreate)
			r.Post("/campaigns/{id}/deactivate", app.CampaignsDeactivate)
			r.Post("/campaigns/{id}/reactivate", app.CampaignsReactivate)
			r.Put("/campaigns/{id}/beneficiary", app.CampaignsUpdateBeneficiary)
			r.Post("/campaigns/{id}/donations", app.DonationsCreate)
			r.Post("/campaigns/{id}/withdrawals", app.WithdrawalsCreate)
		})
	})

	return r
}
