// Package websocket pushes committed show writes to connected clients.
package websocket

import (
	"context"
	"net/http"

	"github.com/0xmhha/show-indexer/pkg/eventbus"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Server upgrades HTTP connections and attaches them to a Hub
type Server struct {
	hub      *Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewServer creates a server and starts its hub
func NewServer(logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("websocket")
	s := &Server{
		hub: NewHub(logger),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origins are enforced by the CORS middleware
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger,
	}
	go s.hub.Run()
	return s
}

// Hub returns the server's hub
func (s *Server) Hub() *Hub {
	return s.hub
}

// ServeHTTP upgrades the connection and starts the client pumps
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	client := NewClient(s.hub, conn, s.logger)
	if !s.hub.Register(client) {
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

// Consume forwards events from a local bus subscription to the hub until ctx
// is done or the subscription is closed
func (s *Server) Consume(ctx context.Context, sub *eventbus.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			s.hub.BroadcastShowUpserted(ev)
		}
	}
}

// Stop stops the hub and disconnects every client
func (s *Server) Stop() {
	s.hub.Stop()
}
