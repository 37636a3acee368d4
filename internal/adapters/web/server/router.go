package server

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/skyward-ops/droneops/internal/adapters/web/middleware"
	"github.com/skyward-ops/droneops/internal/core/domain"
)

// SetupRoutes builds the full route table. Every /drone-ops route requires a
// session; the role ladder and the armed gate are layered per route.
func SetupRoutes(s *Server) http.Handler {
	r := mux.NewRouter()

	// Rate limiters
	loginLimiter := middleware.NewRateLimiter(5, 1*time.Minute) // 5 login attempts per minute

	// Public API (with rate limiting)
	r.Handle("/api/login", middleware.RateLimitMiddleware(loginLimiter)(http.HandlerFunc(s.AuthHandler.HandleLogin))).Methods(http.MethodPost)
	r.HandleFunc("/api/logout", s.AuthHandler.HandleLogout).Methods(http.MethodPost)

	auth := middleware.AuthMiddleware(s.AuthService)
	armed := middleware.ArmedMiddleware(s.Service.Policy())

	viewer := func(h http.HandlerFunc) http.Handler {
		return auth(middleware.RoleMiddleware(domain.RoleViewer)(h))
	}
	analyst := func(h http.HandlerFunc) http.Handler {
		return auth(middleware.RoleMiddleware(domain.RoleAnalyst)(h))
	}
	operator := func(h http.HandlerFunc) http.Handler {
		return auth(middleware.RoleMiddleware(domain.RoleOperator)(h))
	}
	supervisor := func(h http.HandlerFunc) http.Handler {
		return auth(middleware.RoleMiddleware(domain.RoleSupervisor)(h))
	}
	operatorArmed := func(h http.HandlerFunc) http.Handler {
		return auth(middleware.RoleMiddleware(domain.RoleOperator)(armed(h)))
	}

	r.Handle("/api/me", auth(http.HandlerFunc(s.AuthHandler.HandleMe))).Methods(http.MethodGet)
	r.Handle("/ws", auth(http.HandlerFunc(s.WSManager.HandleWebSocket)))

	// Status and sessions
	r.Handle("/drone-ops/status", viewer(s.SessionHandler.HandleStatus)).Methods(http.MethodGet)
	r.Handle("/drone-ops/sessions", viewer(s.SessionHandler.HandleList)).Methods(http.MethodGet)
	r.Handle("/drone-ops/session/start", operator(s.SessionHandler.HandleStart)).Methods(http.MethodPost)
	r.Handle("/drone-ops/session/stop", operator(s.SessionHandler.HandleStop)).Methods(http.MethodPost)
	r.Handle("/drone-ops/ingest", operator(s.SessionHandler.HandleIngest)).Methods(http.MethodPost)

	// Detections, tracks, streaming
	r.Handle("/drone-ops/detections", viewer(s.DetectionHandler.HandleList)).Methods(http.MethodGet)
	r.Handle("/drone-ops/tracks", viewer(s.DetectionHandler.HandleTracks)).Methods(http.MethodGet)
	r.Handle("/drone-ops/stream", viewer(s.StreamHandler.HandleStream)).Methods(http.MethodGet)
	r.Handle("/drone-ops/remote-id/decode", analyst(s.DetectionHandler.HandleDecode)).Methods(http.MethodPost)
	r.Handle("/drone-ops/geolocate/estimate", analyst(s.DetectionHandler.HandleGeolocate)).Methods(http.MethodPost)
	r.Handle("/drone-ops/correlations", analyst(s.CorrelationHandler.HandleList)).Methods(http.MethodGet)

	// Incidents
	r.Handle("/drone-ops/incidents", viewer(s.IncidentHandler.HandleList)).Methods(http.MethodGet)
	r.Handle("/drone-ops/incidents", operator(s.IncidentHandler.HandleCreate)).Methods(http.MethodPost)
	r.Handle("/drone-ops/incidents/{id:[0-9]+}", viewer(s.IncidentHandler.HandleGet)).Methods(http.MethodGet)
	r.Handle("/drone-ops/incidents/{id:[0-9]+}", operator(s.IncidentHandler.HandleUpdate)).Methods(http.MethodPut)
	r.Handle("/drone-ops/incidents/{id:[0-9]+}/artifacts", operator(s.IncidentHandler.HandleAddArtifact)).Methods(http.MethodPost)

	// Action workflow
	r.Handle("/drone-ops/actions/arm", operator(s.ActionHandler.HandleArm)).Methods(http.MethodPost)
	r.Handle("/drone-ops/actions/disarm", operator(s.ActionHandler.HandleDisarm)).Methods(http.MethodPost)
	r.Handle("/drone-ops/actions/request", operator(s.ActionHandler.HandleRequest)).Methods(http.MethodPost)
	r.Handle("/drone-ops/actions/approve/{id:[0-9]+}", supervisor(s.ActionHandler.HandleApprove)).Methods(http.MethodPost)
	r.Handle("/drone-ops/actions/execute/{id:[0-9]+}", operatorArmed(s.ActionHandler.HandleExecute)).Methods(http.MethodPost)
	r.Handle("/drone-ops/actions/requests", viewer(s.ActionHandler.HandleListRequests)).Methods(http.MethodGet)
	r.Handle("/drone-ops/actions/requests/{id:[0-9]+}", viewer(s.ActionHandler.HandleGetRequest)).Methods(http.MethodGet)
	r.Handle("/drone-ops/actions/audit", viewer(s.ActionHandler.HandleAudit)).Methods(http.MethodGet)

	// Evidence manifests
	r.Handle("/drone-ops/evidence/{incident_id:[0-9]+}/manifest", analyst(s.EvidenceHandler.HandleCreate)).Methods(http.MethodPost)
	r.Handle("/drone-ops/evidence/{incident_id:[0-9]+}/manifests", viewer(s.EvidenceHandler.HandleList)).Methods(http.MethodGet)
	r.Handle("/drone-ops/evidence/manifests/{id:[0-9]+}", viewer(s.EvidenceHandler.HandleGet)).Methods(http.MethodGet)
	r.Handle("/drone-ops/evidence/manifests/{id:[0-9]+}/pdf", viewer(s.EvidenceHandler.HandleExportPDF)).Methods(http.MethodGet)

	// Metrics endpoint (protected - requires authentication)
	r.Handle("/metrics", auth(promhttp.Handler())).Methods(http.MethodGet)

	return r
}
