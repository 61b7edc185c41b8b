// Package http exposes the gateway's HTTP surface: the internal relay
// endpoint the worker posts in-app events to, plus health and metrics.
package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	apperrors "github.com/webstore4eto/messaging/internal/pkg/errors"
	"github.com/webstore4eto/messaging/internal/pkg/logger"
	"github.com/webstore4eto/messaging/internal/port"
	"github.com/webstore4eto/messaging/internal/transport/ws"
)

var relayDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gateway_relay_deliveries_total",
	Help: "Relay requests by outcome.",
}, []string{"outcome"})

// Broadcaster is the slice of the connection registry the relay endpoint
// needs.
type Broadcaster interface {
	SendToUser(userID string, env ws.Envelope) error
	Broadcast(env ws.Envelope)
}

// RelayHandler receives events from the worker and fans them out to live
// sockets.
type RelayHandler struct {
	hub Broadcaster
}

func NewRelayHandler(hub Broadcaster) *RelayHandler {
	return &RelayHandler{hub: hub}
}

// HandleMessage delivers one event.
//
//	200: at least one live socket took the message
//	404: recipient has no live connection on this instance
//	400: malformed or incomplete request
func (h *RelayHandler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req port.RelayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		relayDeliveries.WithLabelValues("invalid").Inc()
		writeError(w, http.StatusBadRequest, "invalid request", "request body is not valid JSON")
		return
	}
	if req.Type == "" {
		relayDeliveries.WithLabelValues("invalid").Inc()
		writeError(w, http.StatusBadRequest, "invalid request", "type is required")
		return
	}

	env := ws.Envelope{
		Type:    req.Type,
		OK:      true,
		Payload: req.Payload,
	}

	if req.UserID == "" {
		h.hub.Broadcast(env)
		relayDeliveries.WithLabelValues("broadcast").Inc()
		writeJSON(w, http.StatusOK, map[string]string{"status": "broadcast"})
		return
	}

	if err := h.hub.SendToUser(req.UserID, env); err != nil {
		relayDeliveries.WithLabelValues("not_connected").Inc()
		writeError(w, http.StatusNotFound, "not connected", "user has no live connection")
		return
	}
	relayDeliveries.WithLabelValues("delivered").Inc()
	writeJSON(w, http.StatusOK, map[string]string{"status": "delivered"})

	logger.From(r.Context()).Debug("relayed event",
		"user_id", req.UserID, "type", req.Type)
}

// NewRouter assembles the gateway's HTTP mux: the socket endpoint, the relay
// endpoint, health, and Prometheus metrics.
func NewRouter(socketPath string, socket http.Handler, relay *RelayHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Cookie"},
		AllowCredentials: false,
	}))

	r.Method(http.MethodGet, socketPath, socket)
	r.Post("/message", relay.HandleMessage)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	return otelhttp.NewHandler(r, "gateway")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, title, detail string) {
	writeJSON(w, status, apperrors.New(status, title, detail))
}
