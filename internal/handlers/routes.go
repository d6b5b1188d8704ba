package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/gdg-garage/wedding-rsvp-api/internal/auth"
	"github.com/gdg-garage/wedding-rsvp-api/internal/database"
	"github.com/gdg-garage/wedding-rsvp-api/internal/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"
)

var organizerSecurity = []map[string][]string{{"bearerAuth": {}}, {"cookieAuth": {}}}

func RegisterRoutes(r *chi.Mux, db *gorm.DB, authenticator *auth.Authenticator, limiter *TokenRateLimiter, rsvpHandler *RSVPHandler, organizerHandler *OrganizerHandler, logger *logging.Logger) huma.API {
	logger = logging.OrDefault(logger)

	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)

	huma.NewError = newHumaError

	config := huma.DefaultConfig("Wedding RSVP API", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearerAuth": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
		},
		"cookieAuth": {
			Type: "apiKey",
			In:   "cookie",
			Name: auth.CookieName,
		},
	}
	api := humachi.New(r, config)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := database.HealthCheck(db); err != nil {
			logger.WithFields(logging.Fields{"error": err.Error()}).Error("Health check failed")
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy"})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	// Token-scoped guest routes
	public := func(o *huma.Operation) {
		o.Tags = []string{"rsvp"}
		o.Middlewares = huma.Middlewares{limiter.Middleware(api)}
	}
	huma.Get(api, "/rsvp/{token}", rsvpHandler.HandleVerify, public)
	huma.Post(api, "/rsvp/{token}/stage1", rsvpHandler.HandleStage1, public)
	huma.Post(api, "/rsvp/{token}/stage2", rsvpHandler.HandleStage2, public)
	huma.Get(api, "/rsvp/{token}/attendance", rsvpHandler.HandleAttendance, public)
	huma.Get(api, "/rsvp/{token}/progress", rsvpHandler.HandleProgress, public)
	huma.Get(api, "/rsvp/{token}/relationships", rsvpHandler.HandleListRelationships, public)
	huma.Post(api, "/rsvp/{token}/relationships", rsvpHandler.HandleAddRelationship, public, created)
	huma.Delete(api, "/rsvp/{token}/relationships/{relationshipId}", rsvpHandler.HandleRemoveRelationship, public)

	// Organizer routes
	protected := func(o *huma.Operation) {
		o.Tags = []string{"organizer"}
		o.Security = organizerSecurity
		o.Middlewares = huma.Middlewares{authenticator.Middleware(api)}
	}
	huma.Post(api, "/events/{eventId}/guests", organizerHandler.HandleCreateGuest, protected, created)
	huma.Post(api, "/events/{eventId}/guests/import", organizerHandler.HandleImport, protected)
	huma.Get(api, "/events/{eventId}/guests/{guestId}/progress", organizerHandler.HandleGuestProgress, protected)
	huma.Get(api, "/events/{eventId}/guests/{guestId}/history", organizerHandler.HandleHistory, protected)
	huma.Post(api, "/events/{eventId}/guests/{guestId}/token", organizerHandler.HandleIssueToken, protected)
	huma.Delete(api, "/events/{eventId}/guests/{guestId}/token", organizerHandler.HandleInvalidateToken, protected)
	huma.Delete(api, "/events/{eventId}/guests/{guestId}", organizerHandler.HandleDeleteGuest, protected)
	huma.Post(api, "/communications", organizerHandler.HandleLogCommunication, protected, created)

	return api
}

func created(o *huma.Operation) {
	o.DefaultStatus = http.StatusCreated
}
