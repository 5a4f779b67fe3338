package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/kaleidoswap/desktop-app/internal/account"
	"github.com/kaleidoswap/desktop-app/internal/auth"
	"github.com/kaleidoswap/desktop-app/internal/channelorder"
	"github.com/kaleidoswap/desktop-app/internal/infrastructure/config"
	"github.com/kaleidoswap/desktop-app/internal/infrastructure/database"
	"github.com/kaleidoswap/desktop-app/internal/infrastructure/influxdb"
	"github.com/kaleidoswap/desktop-app/internal/infrastructure/logging"
	"github.com/kaleidoswap/desktop-app/internal/infrastructure/mqtt"
	"github.com/kaleidoswap/desktop-app/internal/node"
	"github.com/kaleidoswap/desktop-app/internal/shutdown"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      config.APIConfig
	WS          config.WebSocketConfig
	Logger      *logging.Logger
	Supervisor  *node.Supervisor
	Coordinator *shutdown.Coordinator
	Accounts    account.Repository
	Orders      channelorder.Repository
	Selection   *account.Selection
	Issuer      *auth.Issuer
	Tickets     *auth.TicketStore
	Hub         *Hub // required; also the coordinator's emitter

	// Optional.
	DB      *database.DB
	MQTT    *mqtt.Client
	Influx  *influxdb.Client
	Version string

	// OnCloseComplete, if set, receives the result of every close sequence
	// started through the API.
	OnCloseComplete func(shutdown.Result)
}

// Server is the HTTP API server.
//
// It is created with New, started with Start and stopped with Close.
type Server struct {
	cfg         config.APIConfig
	wsCfg       config.WebSocketConfig
	logger      *logging.Logger
	supervisor  *node.Supervisor
	coordinator *shutdown.Coordinator
	accounts    account.Repository
	orders      channelorder.Repository
	selection   *account.Selection
	issuer      *auth.Issuer
	tickets     *auth.TicketStore
	hub         *Hub
	db          *database.DB
	mqtt        *mqtt.Client
	influx      *influxdb.Client
	version     string
	onClose     func(shutdown.Result)
	startTime   time.Time

	server   *http.Server
	listener net.Listener
	cancel   context.CancelFunc
}

// New creates a new API server with the given dependencies.
// The server is not started until Start is called.
func New(deps Deps) (*Server, error) {
	switch {
	case deps.Logger == nil:
		return nil, fmt.Errorf("logger is required")
	case deps.Supervisor == nil:
		return nil, fmt.Errorf("node supervisor is required")
	case deps.Coordinator == nil:
		return nil, fmt.Errorf("shutdown coordinator is required")
	case deps.Accounts == nil || deps.Orders == nil:
		return nil, fmt.Errorf("account and channel order repositories are required")
	case deps.Issuer == nil:
		return nil, fmt.Errorf("token issuer is required")
	case deps.Hub == nil:
		return nil, fmt.Errorf("websocket hub is required")
	}

	s := &Server{
		cfg:         deps.Config,
		wsCfg:       deps.WS,
		logger:      deps.Logger,
		supervisor:  deps.Supervisor,
		coordinator: deps.Coordinator,
		accounts:    deps.Accounts,
		orders:      deps.Orders,
		selection:   deps.Selection,
		issuer:      deps.Issuer,
		tickets:     deps.Tickets,
		hub:         deps.Hub,
		db:          deps.DB,
		mqtt:        deps.MQTT,
		influx:      deps.Influx,
		version:     deps.Version,
		onClose:     deps.OnCloseComplete,
		startTime:   time.Now(),
	}
	if s.selection == nil {
		s.selection = &account.Selection{}
	}
	if s.tickets == nil {
		s.tickets = auth.NewTicketStore(auth.DefaultTicketTTL)
	}
	return s, nil
}

// Handler returns the router. Start uses it; tests call it directly.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start binds the listener and serves in a background goroutine.
// Binding happens synchronously so a port conflict is returned to the caller.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	go s.hub.Run(srvCtx)
	go s.tickets.SweepLoop(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		s.cancel()
		return fmt.Errorf("listening on %s: %w", s.server.Addr, err)
	}
	s.listener = ln
	s.logger.Info("API server listening", "address", ln.Addr().String())

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

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

// HealthCheck verifies the API server is running.
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
