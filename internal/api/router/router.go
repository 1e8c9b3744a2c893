// Package router assembles the HTTP surface: vendor webhooks, the clinic
// REST API, admin provisioning and operational endpoints.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/curavoice/voice-backend/internal/http/handlers"
	httpmiddleware "github.com/curavoice/voice-backend/internal/http/middleware"
	"github.com/curavoice/voice-backend/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	VapiWebhook        *handlers.VapiWebhookHandler
	RetellWebhook      *handlers.RetellWebhookHandler
	API                *handlers.APIHandler
	Admin              *handlers.AdminHandler
	AdminAuthSecret    string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	WebhookRate        float64
	WebhookBurst       int
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Vendor webhooks. Rate limited per IP; each handler does its own
	// authentication (shared secret or body signature).
	r.Group(func(hooks chi.Router) {
		rate, burst := cfg.WebhookRate, cfg.WebhookBurst
		if rate <= 0 {
			rate = 10
		}
		if burst <= 0 {
			burst = 30
		}
		hooks.Use(httpmiddleware.RateLimit(rate, burst))

		if cfg.VapiWebhook != nil {
			hooks.Post("/webhooks/vapi", cfg.VapiWebhook.Handle)
		}
		if cfg.RetellWebhook != nil {
			hooks.Post("/webhooks/retell", cfg.RetellWebhook.HandleEvents)
			hooks.Post("/webhooks/retell/inbound", cfg.RetellWebhook.HandleInbound)
			hooks.Post("/webhooks/retell/functions/{clinicID}/{function}", cfg.RetellWebhook.HandleFunction)
		}
	})

	if cfg.API != nil {
		r.Route("/api/v1/clinics/{clinicID}", func(api chi.Router) {
			api.Get("/doctors", cfg.API.ListDoctors)
			api.Get("/doctors/{doctorID}/availability", cfg.API.GetAvailability)
			api.Post("/appointments", cfg.API.CreateAppointment)
			api.Post("/appointments/{appointmentID}/cancel", cfg.API.CancelAppointment)
			api.Patch("/appointments/{appointmentID}", cfg.API.RescheduleAppointment)
			api.Get("/patients/upcoming", cfg.API.ListUpcoming)
		})
	}

	if cfg.Admin != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Post("/clinics/{clinicID}/provision/vapi", cfg.Admin.ProvisionVapi)
			admin.Post("/clinics/{clinicID}/provision/retell", cfg.Admin.ProvisionRetell)
			admin.Post("/reminders/run", cfg.Admin.RunReminders)
		})
	}

	return r
}
