package rest

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/a3888968/wiseguide-backend/internal/repository"
	"github.com/a3888968/wiseguide-backend/internal/service"
)

// Server holds the handler dependencies. Handlers stay thin: decode, check
// shape, call a repository or service, convert to a view.
type Server struct {
	logger      *zap.Logger
	auth        *Authenticator
	validate    *validator.Validate
	users       *repository.UserRepository
	systems     *repository.SystemRepository
	venues      *repository.VenueRepository
	events      *repository.EventRepository
	categories  *repository.CategoryRepository
	agendas     *repository.AgendaRepository
	suggestions *repository.SuggestedEventRepository
	listing     *service.ListingService
	geoEntries  *service.GeoEntryService
	popularity  *service.PopularityService
	analysis    *service.AnalysisService
}

// ServerDeps bundles the dependencies of a Server.
type ServerDeps struct {
	Logger      *zap.Logger
	Auth        *Authenticator
	Users       *repository.UserRepository
	Systems     *repository.SystemRepository
	Venues      *repository.VenueRepository
	Events      *repository.EventRepository
	Categories  *repository.CategoryRepository
	Agendas     *repository.AgendaRepository
	Suggestions *repository.SuggestedEventRepository
	Listing     *service.ListingService
	GeoEntries  *service.GeoEntryService
	Popularity  *service.PopularityService
	Analysis    *service.AnalysisService
}

// NewServer creates a Server.
func NewServer(deps ServerDeps) *Server {
	return &Server{
		logger:      deps.Logger,
		auth:        deps.Auth,
		validate:    validator.New(),
		users:       deps.Users,
		systems:     deps.Systems,
		venues:      deps.Venues,
		events:      deps.Events,
		categories:  deps.Categories,
		agendas:     deps.Agendas,
		suggestions: deps.Suggestions,
		listing:     deps.Listing,
		geoEntries:  deps.GeoEntries,
		popularity:  deps.Popularity,
		analysis:    deps.Analysis,
	}
}

// decodeValid decodes a JSON body and applies the struct's validate tags.
func (s *Server) decodeValid(w http.ResponseWriter, r *http.Request, dst any) bool {
	if !decodeBody(w, r, dst) {
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Reason: "bad_request"})
		return false
	}
	return true
}

// requireUnlocked rejects content mutations while the caller's system is
// locked. Admin system management routes are not behind it, so an admin can
// always unlock.
func (s *Server) requireUnlocked(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFrom(r.Context())
		system, err := s.systems.GetSystem(r.Context(), claims.SystemID)
		if err != nil {
			writeError(w, s.logger, err)
			return
		}
		if system.Locked {
			writeJSON(w, http.StatusConflict, errorResponse{Reason: "system_locked"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAdmin rejects non-admin callers.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFrom(r.Context())
		if !claims.IsAdmin {
			writeJSON(w, http.StatusForbidden, errorResponse{Reason: "forbidden"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
