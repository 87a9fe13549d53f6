package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"crossbot/src/datamodels"
	"crossbot/src/metrics"
	"crossbot/src/utils/errors"
)

const shutdownTimeout = 5 * time.Second

type StateSource interface {
	Latest() datamodels.StateSnapshot
}

type ReportSource interface {
	ComputeMetrics() datamodels.MetricsSnapshot
	GetReport() string
}

type Server struct {
	addr        string
	upgrader    websocket.Upgrader
	httpMux     *http.ServeMux
	registered  sync.Once
	states      StateSource
	reports     ReportSource
	stateWriter *metrics.WebsocketStateWriter
}

func NewServer(addr string) *Server {
	return &Server{
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // dashboards are served from other origins
			},
		},
		httpMux: http.NewServeMux(),
	}
}

func (s *Server) WithStateSource(states StateSource) *Server {
	s.states = states
	return s
}

func (s *Server) WithReportSource(reports ReportSource) *Server {
	s.reports = reports
	return s
}

func (s *Server) WithStateWriter(stateWriter *metrics.WebsocketStateWriter) *Server {
	s.stateWriter = stateWriter
	return s
}

// Handler registers every route on first use and returns the mux.
func (s *Server) Handler() http.Handler {
	s.registered.Do(func() {
		s.RegisterHealthCheck()
		s.RegisterVersionHandler()
		s.RegisterStateHandler()
		s.RegisterReportHandler()
		s.RegisterMetricsHandler()
		s.RegisterWebSocketHandler()
		s.RegisterSwagger()
	})
	return s.httpMux
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	if s.states == nil || s.reports == nil {
		return errors.New("server needs a state source and a report source")
	}
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shut down server", "error", err)
		}
	}()

	slog.Info(fmt.Sprintf("Starting server on %s", s.addr))
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return errors.Wrap(err, "server error")
	}
	return nil
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.stateWriter == nil {
		http.Error(w, "state streaming is disabled", http.StatusServiceUnavailable)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection", "error", err)
		return
	}
	defer s.stateWriter.RemoveClient(conn)

	// greet with the current state so clients need not wait for the next poll
	if err := s.stateWriter.SendTo(conn, s.states.Latest()); err != nil {
		slog.Error("Failed to send initial state", "error", err)
		conn.Close()
		return
	}
	s.stateWriter.AddClient(conn)
	slog.Info("Client connected", "remote", conn.RemoteAddr().String())

	for {
		mType, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("Error reading websocket message", "error", err)
			}
			return
		}
		if mType != websocket.TextMessage {
			slog.Debug(fmt.Sprintf("Ignoring websocket message type: %d", mType))
			continue
		}

		var wsMessage WebSocketMessage
		if err := json.Unmarshal(msg, &wsMessage); err != nil {
			slog.Warn("Failed to unmarshal message", "error", err)
			if err := s.stateWriter.SendTo(conn, WebSocketResponse{Success: false, Error: err.Error()}); err != nil {
				return
			}
			continue
		}

		if err := s.stateWriter.SendTo(conn, s.handleMessage(wsMessage)); err != nil {
			slog.Error("Failed to send websocket response", "error", err)
			return
		}
	}
}
