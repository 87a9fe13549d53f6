package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"crossbot/src/version"
)

// @title Crossbot API
// @version 1.0
// @description Live state and performance metrics of the crossover bot
// @host localhost:8080
// @BasePath /

// WebSocketMessageType represents the type of WebSocket message
// @Description Type of request sent by a websocket client
type WebSocketMessageType string

const (
	// StateRequest asks for the latest state snapshot
	StateRequest WebSocketMessageType = "state"
	// MetricsRequest asks for a freshly computed metrics snapshot
	MetricsRequest WebSocketMessageType = "metrics"
	// ReportRequest asks for the text performance report
	ReportRequest WebSocketMessageType = "report"
)

// WebSocketMessage represents a message sent over WebSocket
// @Description Request structure for WebSocket communication
type WebSocketMessage struct {
	// Type of the request
	// Required: true
	// Enum: state, metrics, report
	MessageType WebSocketMessageType `json:"message_type" example:"state"`
}

// WebSocketResponse represents a response sent back over WebSocket
// @Description Response structure for WebSocket communication
type WebSocketResponse struct {
	// Whether the request was understood
	// Required: true
	Success bool `json:"success" example:"true"`
	// Response payload
	// Required: false
	Data any `json:"data"`
	// Error message if the request failed
	// Required: false
	Error string `json:"error,omitempty" example:"unknown message type"`
}

func (s *Server) handleMessage(message WebSocketMessage) WebSocketResponse {
	switch message.MessageType {
	case StateRequest:
		return WebSocketResponse{Success: true, Data: s.states.Latest()}
	case MetricsRequest:
		return WebSocketResponse{Success: true, Data: s.reports.ComputeMetrics()}
	case ReportRequest:
		return WebSocketResponse{Success: true, Data: s.reports.GetReport()}
	default:
		slog.Info("Received unknown websocket message type", "message_type", message.MessageType)
		return WebSocketResponse{Success: false, Error: "unknown message type: " + string(message.MessageType)}
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// RegisterHealthCheck registers the health check endpoint
// @Summary Health check endpoint
// @Description Returns health status of the service
// @Tags health
// @Produce plain
// @Success 200 {string} string "Crossbot is healthy"
// @Router /health [get]
func (s *Server) RegisterHealthCheck() {
	s.httpMux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Crossbot is healthy"))
	})
}

// RegisterVersionHandler registers the build info endpoint
// @Summary Build info
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /version [get]
func (s *Server) RegisterVersionHandler() {
	s.httpMux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, version.GetBuildInfo())
	})
}

// RegisterStateHandler registers the latest state endpoint
// @Summary Latest strategy state
// @Description Price, moving averages, position and realized pnl from the last poll. ready is false until the slow window has filled.
// @Tags state
// @Produce json
// @Success 200 {object} datamodels.StateSnapshot
// @Router /state [get]
func (s *Server) RegisterStateHandler() {
	s.httpMux.HandleFunc("GET /state", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.states.Latest())
	})
}

// RegisterReportHandler registers the performance report endpoint
// @Summary Performance report
// @Description Text report by default, the metrics snapshot with format=json
// @Tags metrics
// @Produce plain,json
// @Param format query string false "json for the raw snapshot"
// @Success 200 {object} datamodels.MetricsSnapshot
// @Router /report [get]
func (s *Server) RegisterReportHandler() {
	s.httpMux.HandleFunc("GET /report", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("format") == "json" {
			writeJSON(w, http.StatusOK, s.reports.ComputeMetrics())
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(s.reports.GetReport()))
	})
}

// RegisterMetricsHandler registers the prometheus scrape endpoint
// @Summary Prometheus metrics
// @Tags metrics
// @Produce plain
// @Router /metrics [get]
func (s *Server) RegisterMetricsHandler() {
	s.httpMux.Handle("GET /metrics", promhttp.Handler())
}

// RegisterWebSocketHandler registers the WebSocket endpoint
// @Summary WebSocket connection endpoint
// @Description Pushes every new state snapshot, answers state, metrics and report requests
// @Tags websocket
// @Accept json
// @Produce json
// @Success 101 {string} string "Switching protocols to websocket"
// @Router /ws [get]
func (s *Server) RegisterWebSocketHandler() {
	s.httpMux.HandleFunc("/ws", s.handleWebSocket)
}

// RegisterSwagger registers the Swagger documentation endpoint
// @Summary Swagger documentation endpoint
// @Description Serves Swagger API documentation UI and JSON spec
// @Tags docs
// @Produce json,html
// @Success 200 {string} string "Swagger documentation UI"
// @Router /swagger [get]
func (s *Server) RegisterSwagger() {
	s.httpMux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
}
