package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions tune the outer middleware stack.
type RouterOptions struct {
	EnableCORS bool
}

// Router builds the chi mux. Auth routes are public; everything else sits
// behind the bearer-token middleware, and content mutations additionally
// behind the system write-lock.
func (s *Server) Router(opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if opts.EnableCORS {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/auth/signup", s.handleSignup)
	r.Post("/auth/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(s.auth.Middleware)

		r.Get("/me", s.handleGetMe)
		r.Put("/users/{username}", s.handleUpdateUser)

		r.Route("/systems", func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Get("/", s.handleListSystems)
			r.Post("/", s.handleCreateSystem)
			r.Get("/{systemId}", s.handleGetSystem)
			r.Put("/{systemId}", s.handleUpdateSystem)
			r.Post("/{systemId}/lock", s.handleLockSystem(true))
			r.Post("/{systemId}/unlock", s.handleLockSystem(false))
			r.Delete("/{systemId}", s.handleDeleteSystem)
		})

		r.Get("/venues", s.handleListVenues)
		r.Get("/venues/{venueId}", s.handleGetVenue)
		r.Get("/occurrences", s.handleListOccurrences)
		r.Get("/occurrences/{occurrenceId}", s.handleGetOccurrence)
		r.Get("/categories", s.handleListCategories)
		r.Get("/popular", s.handlePopular)
		r.Get("/suggestions", s.handleUserSuggestions)
		r.Get("/agendas", s.handleListAgendas)
		r.Get("/agendas/{agendaId}", s.handleGetAgenda)
		r.Get("/agendas/{agendaId}/suggestions", s.handleAgendaSuggestions)

		r.Group(func(r chi.Router) {
			r.Use(s.requireUnlocked)

			r.Post("/venues", s.handleCreateVenue)
			r.Put("/venues/{venueId}", s.handleUpdateVenue)
			r.Delete("/venues/{venueId}", s.handleDeleteVenue)
			r.Post("/venues/{venueId}/rooms", s.handleAddRoom)
			r.Delete("/venues/{venueId}/rooms/{room}", s.handleDeleteRoom)

			r.Post("/events", s.handleCreateEvent)
			r.Put("/events/{eventId}", s.handleEditEvent)
			r.Post("/events/{eventId}/occurrences", s.handleAddOccurrences)
			r.Post("/events/{eventId}/cancel", s.handleCancelEvent)
			r.Delete("/events/{eventId}", s.handleDeleteEvent)
			r.Put("/occurrences/{occurrenceId}", s.handleUpdateOccurrence)
			r.Post("/occurrences/{occurrenceId}/cancel", s.handleCancelOccurrence)
			r.Delete("/occurrences/{occurrenceId}", s.handleDeleteOccurrence)

			r.Post("/categories", s.handleCreateCategory)
			r.Put("/categories/{name}", s.handleUpdateCategory)
			r.Delete("/categories/{name}", s.handleDeleteCategory)

			r.Post("/agendas", s.handleCreateAgenda)
			r.Delete("/agendas/{agendaId}", s.handleDeleteAgenda)
			r.Post("/agendas/{agendaId}/items", s.handleAddAgendaItem)
			r.Delete("/agendas/{agendaId}/items/{occurrenceId}", s.handleDeleteAgendaItem)

			r.Post("/geo/entries", s.handleRecordGeoEntry)
		})
	})

	return r
}
