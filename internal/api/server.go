package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/geogate/internal/audit"
	"github.com/nerrad567/geogate/internal/files"
	"github.com/nerrad567/geogate/internal/geofence"
	"github.com/nerrad567/geogate/internal/infrastructure/config"
	"github.com/nerrad567/geogate/internal/infrastructure/influxdb"
	"github.com/nerrad567/geogate/internal/infrastructure/logging"
	"github.com/nerrad567/geogate/internal/integrity"
	"github.com/nerrad567/geogate/internal/session"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// CredentialVerifier checks a username/password pair. A non-nil error means
// the credential store itself failed.
type CredentialVerifier interface {
	Verify(ctx context.Context, username, password string) (bool, error)
}

// LocationRecorder receives every parsed location report.
type LocationRecorder interface {
	WriteLocationReport(r influxdb.LocationReport)
}

// HealthChecker is a dependency reported by /health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      config.APIConfig
	Logger      *logging.Logger
	Credentials CredentialVerifier
	Sessions    *session.Manager
	Geofence    *geofence.Polygon
	Integrity   *integrity.Verifier
	Files       *files.Gate
	Audit       *audit.Recorder          // optional
	Locations   LocationRecorder         // optional
	Database    HealthChecker            // optional
	Optional    map[string]HealthChecker // reported, never fails /health
	Version     string
}

// Server is the geogate HTTP server.
type Server struct {
	cfg         config.APIConfig
	logger      *logging.Logger
	credentials CredentialVerifier
	sessions    *session.Manager
	geofence    *geofence.Polygon
	integrity   *integrity.Verifier
	files       *files.Gate
	audit       *audit.Recorder
	locations   LocationRecorder
	database    HealthChecker
	optional    map[string]HealthChecker
	version     string
	server      *http.Server
}

// New creates a new API server with the given dependencies.
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Credentials == nil {
		return nil, fmt.Errorf("credential verifier is required")
	}
	if deps.Sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if deps.Geofence == nil {
		return nil, fmt.Errorf("%w: polygon is required", geofence.ErrConfiguration)
	}
	if deps.Integrity == nil {
		return nil, integrity.ErrConfiguration
	}
	if deps.Files == nil {
		return nil, fmt.Errorf("file gate is required")
	}

	return &Server{
		cfg:         deps.Config,
		logger:      deps.Logger.With("component", "api"),
		credentials: deps.Credentials,
		sessions:    deps.Sessions,
		geofence:    deps.Geofence,
		integrity:   deps.Integrity,
		files:       deps.Files,
		audit:       deps.Audit,
		locations:   deps.Locations,
		database:    deps.Database,
		optional:    deps.Optional,
		version:     deps.Version,
	}, nil
}

// Handler returns the routed handler without starting a listener.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start begins listening for HTTP connections in a background goroutine.
// The server can be stopped with Close().
func (s *Server) Start(_ context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server, waiting up to
// gracefulShutdownTimeout for in-flight requests.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server has been started.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
