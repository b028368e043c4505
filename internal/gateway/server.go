// Package gateway exposes the real-time command channel and the read-only
// HTTP API. It routes client commands to the owning account session and
// streams status, progress, and result events back.
package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"tgranger/pkg/config"
	"tgranger/pkg/logger"
	"tgranger/pkg/session"
	"tgranger/pkg/storage"
	"tgranger/pkg/telegram"
)

// Server is the HTTP + WebSocket front of the scraping pipeline.
type Server struct {
	cfg      *config.Config
	store    storage.Store
	registry *session.Registry
	log      logger.Logger

	upgrader websocket.Upgrader
	httpSrv  *http.Server

	// baseCtx parents every scrape run so process shutdown reaches them.
	baseCtx    context.Context
	cancelBase context.CancelFunc
}

// New builds a server around the given store and provider factory.
func New(cfg *config.Config, store storage.Store, factory telegram.Factory) *Server {
	baseCtx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:      cfg,
		store:    store,
		registry: session.NewRegistry(store, factory),
		log:      logger.GetLogger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The dashboard is served from arbitrary dev origins.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		baseCtx:    baseCtx,
		cancelBase: cancel,
	}

	mux := http.NewServeMux()
	mux.HandleFunc(cfg.Server.WSPath, s.handleWS)
	mux.HandleFunc("GET /api/groups", s.handleGroups)
	mux.HandleFunc("GET /api/members/{groupId}", s.handleMembers)
	mux.HandleFunc("GET /api/stats", s.handleStats)

	s.httpSrv = &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Registry exposes the session registry, mainly for tests and stats.
func (s *Server) Registry() *session.Registry {
	return s.registry
}

// ListenAndServe blocks serving until Shutdown is called or the listener
// fails.
func (s *Server) ListenAndServe() error {
	s.log.WithField("addr", s.cfg.Server.Addr).Info("gateway listening")
	err := s.httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting connections and cancels all scrape runs.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancelBase()
	return s.httpSrv.Shutdown(ctx)
}

// handleWS upgrades the request and runs the per-connection loop.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	conn := newConn(ws)
	s.log.Info("websocket connection established")

	conn.send(reply{"status": "connected", "message": "Connected to tgranger"})

	defer func() {
		s.teardown(conn)
		conn.close()
		s.log.Info("websocket connection closed")
	}()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		s.dispatch(conn, data)
	}
}

// teardown cancels the connection's scrape and drops its session.
func (s *Server) teardown(c *conn) {
	phone := c.phoneKey()
	if phone == "" {
		return
	}
	s.registry.Remove(phone)
	s.log.WithField("phone", phone).Info("session removed on disconnect")
}
