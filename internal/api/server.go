// Package api provides the HTTP REST API and WebSocket server for LISU Core.
//
// It exposes device registry operations, controller lifecycle management,
// mapping administration, and real-time action and status streams to
// monitoring dashboards and mapping editors.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MSandovalPhD/lisu-core/internal/controller"
	"github.com/MSandovalPhD/lisu-core/internal/device"
	"github.com/MSandovalPhD/lisu-core/internal/infrastructure/config"
	"github.com/MSandovalPhD/lisu-core/internal/infrastructure/logging"
	"github.com/MSandovalPhD/lisu-core/internal/mapping"
	"github.com/MSandovalPhD/lisu-core/internal/sampler"
	"github.com/MSandovalPhD/lisu-core/internal/status"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// wsSubscriberName identifies the server's status subscription so a restart
// replaces the previous queue instead of leaking it.
const wsSubscriberName = "websocket"

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Logger   *logging.Logger
	Registry *device.Registry
	Manager  *controller.Manager
	Sampler  *sampler.Sampler
	Matrix   *mapping.Matrix
	Reporter *status.Reporter
	Events   status.Repository // optional: enables GET /events history
	Version  string
}

// Server is the HTTP API server for LISU Core.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg      config.APIConfig
	wsCfg    config.WebSocketConfig
	logger   *logging.Logger
	registry *device.Registry
	manager  *controller.Manager
	sampler  *sampler.Sampler
	matrix   *mapping.Matrix
	reporter *status.Reporter
	events   status.Repository
	version  string
	started  time.Time
	server   *http.Server
	hub      *Hub
	cancel   context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("device registry is required")
	}
	if deps.Manager == nil {
		return nil, fmt.Errorf("controller manager is required")
	}
	if deps.Sampler == nil {
		return nil, fmt.Errorf("input sampler is required")
	}
	if deps.Matrix == nil {
		return nil, fmt.Errorf("mapping matrix is required")
	}

	return &Server{
		cfg:      deps.Config,
		wsCfg:    deps.WS,
		logger:   deps.Logger,
		registry: deps.Registry,
		manager:  deps.Manager,
		sampler:  deps.Sampler,
		matrix:   deps.Matrix,
		reporter: deps.Reporter,
		events:   deps.Events,
		version:  deps.Version,
	}, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub, attaches the status
// relay, and launches the HTTP listener in a background goroutine. The
// server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	// Create internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	s.started = time.Now()

	s.hub = NewHub(s.wsCfg, s.logger)
	go s.hub.Run(srvCtx)

	// Relay status events to WebSocket clients.
	if s.reporter != nil {
		if err := s.relayStatusEvents(srvCtx); err != nil {
			s.logger.Warn("status relay unavailable", "error", err)
		}
	}

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	s.logger.Info("API server started", "address", s.server.Addr)
	return nil
}

// relayStatusEvents forwards reporter events to subscribed WebSocket
// clients. Controller state transitions also go out on a dedicated channel
// so dashboards can track lifecycle without filtering the full stream.
func (s *Server) relayStatusEvents(ctx context.Context) error {
	ch, unsubscribe, err := s.reporter.Subscribe(wsSubscriberName, status.DefaultSubscriberBuffer)
	if err != nil {
		return err
	}

	go func() {
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-ch:
				if !ok {
					return
				}
				s.hub.Broadcast(WSChannelStatusEvent, e)
				if e.Kind == status.KindControllerState {
					s.hub.Broadcast(WSChannelControllerState, e)
				}
			}
		}
	}()

	return nil
}

// PublishActions broadcasts evaluated action results to WebSocket clients.
// The server registers itself as an action sink on the mapping matrix.
func (s *Server) PublishActions(result mapping.ActionResult) {
	if s.hub == nil || len(result.Actions) == 0 {
		return
	}
	s.hub.Broadcast(WSChannelActionResult, result)
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	// Cancel background goroutines (hub, status relay)
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
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
