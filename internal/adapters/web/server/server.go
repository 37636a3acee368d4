// Package server assembles the HTTP surface of the drone ops control plane.
package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/skyward-ops/droneops/internal/adapters/reporting"
	"github.com/skyward-ops/droneops/internal/adapters/web"
	"github.com/skyward-ops/droneops/internal/adapters/web/handlers"
	"github.com/skyward-ops/droneops/internal/core/ports"
	"github.com/skyward-ops/droneops/internal/core/services/ops"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Server handles HTTP, SSE and WebSocket connections.
type Server struct {
	Addr        string
	Service     *ops.Service
	AuthService ports.AuthService
	WSManager   *web.WSManager

	AuthHandler        *handlers.AuthHandler
	SessionHandler     *handlers.SessionHandler
	DetectionHandler   *handlers.DetectionHandler
	StreamHandler      *handlers.StreamHandler
	CorrelationHandler *handlers.CorrelationHandler
	IncidentHandler    *handlers.IncidentHandler
	ActionHandler      *handlers.ActionHandler
	EvidenceHandler    *handlers.EvidenceHandler

	srv *http.Server
}

// NewServer creates a new web server. keepaliveSeconds sets the SSE
// keepalive cadence; zero or negative picks the handler default.
func NewServer(addr string, service *ops.Service, authService ports.AuthService, pdfExporter *reporting.PDFExporter, keepaliveSeconds int) *Server {
	return &Server{
		Addr:        addr,
		Service:     service,
		AuthService: authService,

		WSManager:          web.NewWSManager(service.Bus()),
		AuthHandler:        handlers.NewAuthHandler(authService),
		SessionHandler:     handlers.NewSessionHandler(service),
		DetectionHandler:   handlers.NewDetectionHandler(service),
		StreamHandler:      handlers.NewStreamHandler(service.Bus(), time.Duration(keepaliveSeconds)*time.Second),
		CorrelationHandler: handlers.NewCorrelationHandler(service),
		IncidentHandler:    handlers.NewIncidentHandler(service),
		ActionHandler:      handlers.NewActionHandler(service),
		EvidenceHandler:    handlers.NewEvidenceHandler(service, pdfExporter),
	}
}

// Run starts the server and the WebSocket broadcaster, shutting both down
// when ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.WSManager.Start(ctx)

	handler := SetupRoutes(s)
	instrumentedHandler := otelhttp.NewHandler(handler, "droneops-server")

	s.srv = &http.Server{
		Addr:              s.Addr,
		Handler:           instrumentedHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Println("Web server shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Web server shutdown error: %v", err)
		}
	}()

	log.Printf("Web server listening on %s", s.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
