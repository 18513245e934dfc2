// Package debugserver exposes read-only engine state and marker commands over
// HTTP for inspection while the map window runs.
package debugserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/Garsondee/Slippy-Sense/internal/mapview"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Source is what the server reads and drives. Snapshot must be safe for
// concurrent use; marker methods only enqueue commands.
type Source interface {
	Snapshot() *mapview.Snapshot
	AddMarker(lat, lon float64) uuid.UUID
	RemoveMarker(id uuid.UUID)
}

// SetupRouter registers the debug endpoints on r.
func SetupRouter(r *gin.Engine, src Source) {
	h := &handlers{src: src}
	r.GET("/state", h.state)

	layers := r.Group("/layers")
	layers.GET("/front/slots", h.frontSlots)

	markers := r.Group("/markers")
	markers.GET("", h.listMarkers)
	markers.POST("", h.addMarker)
	markers.DELETE("/:id", h.removeMarker)
}

// Server runs the debug router on its own http.Server.
type Server struct {
	srv *http.Server
	log *slog.Logger
}

// New builds a server on addr in gin release mode.
func New(addr string, src Source, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	SetupRouter(r, src)
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: logger,
	}
}

// Start listens on the configured address and serves in the background. The
// returned address is the one actually bound.
func (s *Server) Start() (net.Addr, error) {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return nil, err
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("debug server stopped", "err", err)
		}
	}()
	s.log.Info("debug server listening", "addr", ln.Addr().String())
	return ln.Addr(), nil
}

// Shutdown stops the server, waiting for in-flight requests until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
