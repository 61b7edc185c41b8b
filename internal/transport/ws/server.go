package ws

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"

	"github.com/webstore4eto/messaging/internal/pkg/logger"
	"github.com/webstore4eto/messaging/internal/pkg/presence"
	"github.com/webstore4eto/messaging/internal/port"
)

// Handshake close codes, in the private range per RFC 6455.
const (
	CloseAuthRequired   = 4001
	CloseInvalidSession = 4002
)

const sessionCookieName = "session_id"

// Server owns the socket side of the gateway: it authenticates inbound peers
// against the session store, tracks them in the hub, and routes their
// structured messages to handlers.
type Server struct {
	hub       *Hub
	sessions  port.SessionStore
	presence  *presence.Store
	apiBase   *url.URL
	threshold int

	upgrader websocket.Upgrader
	client   *http.Client
	validate *validator.Validate
}

func NewServer(hub *Hub, sessions port.SessionStore, pres *presence.Store, apiBaseURL string, streamThreshold int) (*Server, error) {
	base, err := url.Parse(apiBaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	return &Server{
		hub:       hub,
		sessions:  sessions,
		presence:  pres,
		apiBase:   base,
		threshold: streamThreshold,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Cross-origin policy is enforced by the fronting proxy.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		client:   &http.Client{Timeout: 30 * time.Second},
		validate: validator.New(),
	}, nil
}

// ServeHTTP upgrades the request and runs the connection to completion.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}

	ctx := r.Context()
	log := logger.From(ctx)

	token := sessionToken(r)
	if token == "" {
		closeWith(wsConn, CloseAuthRequired, "session token required")
		return
	}

	userID, err := s.sessions.UserBySession(ctx, token)
	if err == port.ErrSessionNotFound {
		closeWith(wsConn, CloseInvalidSession, "invalid or expired session")
		return
	}
	if err != nil {
		log.Error("session lookup failed", "error", err)
		closeWith(wsConn, websocket.CloseInternalServerErr, "server error")
		return
	}

	c := NewConn(wsConn, token, userID)
	c.state, err = Transition(c.state, EventAuthenticated)
	if err != nil {
		closeWith(wsConn, websocket.CloseInternalServerErr, "server error")
		return
	}

	s.hub.Register(c)
	if userID != "" && s.presence != nil {
		s.presence.Set(ctx, userID, true, time.Now())
	}
	log.Info("peer connected", "session_id", token, "user_id", userID)

	s.readLoop(c)

	s.hub.Unregister(c)
	c.state, _ = Transition(c.state, EventClose)
	if userID != "" && s.presence != nil && !s.hub.UserConnected(userID) {
		s.presence.Set(context.Background(), userID, false, time.Now())
	}
	_ = wsConn.Close()
	log.Info("peer disconnected", "session_id", token, "user_id", userID)
}

func (s *Server) readLoop(c *Conn) {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		s.handleMessage(c, data)
	}
}

// handleMessage parses, validates and dispatches one inbound peer message.
// Malformed or unknown messages answer with a system error envelope; only an
// invalid state transition tears the connection down.
func (s *Server) handleMessage(c *Conn, data []byte) {
	ctx := context.Background()

	next, err := Transition(c.state, EventMessage)
	if err != nil {
		logger.From(ctx).Error("connection state violation", "error", err)
		c.CloseWith(websocket.CloseInternalServerErr, "protocol state violation")
		return
	}
	c.state = next
	defer func() {
		c.state, _ = Transition(c.state, EventHandled)
	}()

	var msg InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(c, nil, "GATEWAY.SOCKET.MALFORMED_MESSAGE", "message is not valid JSON")
		return
	}
	if err := s.validate.Struct(msg); err != nil {
		s.sendError(c, msg.ID, "GATEWAY.SOCKET.INVALID_MESSAGE", err.Error())
		return
	}

	switch msg.Type {
	case MessageTypeAPICall:
		s.handleAPICall(ctx, c, msg)
	default:
		s.sendError(c, msg.ID, "GATEWAY.SOCKET.UNSUPPORTED_TYPE",
			fmt.Sprintf("message type %q is not supported", msg.Type))
	}
}

// handleAPICall proxies an HTTP call to the internal API on behalf of the
// authenticated peer, re-injecting the peer's session credential, and streams
// the response body back frame by frame.
func (s *Server) handleAPICall(ctx context.Context, c *Conn, msg InboundMessage) {
	var payload APICallPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		s.sendError(c, msg.ID, "GATEWAY.API_CALL.INVALID_PAYLOAD", "payload is not a valid api_call")
		return
	}
	if err := s.validate.Struct(payload); err != nil {
		s.sendError(c, msg.ID, "GATEWAY.API_CALL.INVALID_PAYLOAD", err.Error())
		return
	}

	ref, err := url.Parse(payload.URL)
	if err != nil || ref.IsAbs() {
		// Peers address the internal API by path only.
		s.sendError(c, msg.ID, "GATEWAY.API_CALL.INVALID_URL", "url must be a relative path")
		return
	}
	target := s.apiBase.ResolveReference(ref)

	method := payload.Options.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if len(payload.Options.Body) > 0 {
		body = bytes.NewReader(payload.Options.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		s.sendError(c, msg.ID, "GATEWAY.API_CALL.BAD_REQUEST", err.Error())
		return
	}
	for k, v := range payload.Options.Headers {
		req.Header.Set(k, v)
	}
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: c.SessionID})

	resp, err := s.client.Do(req)
	if err != nil {
		s.sendError(c, msg.ID, "GATEWAY.API_CALL.UPSTREAM_UNREACHABLE", "internal api call failed")
		return
	}
	defer resp.Body.Close()

	ack := Envelope{
		ID:   msg.ID,
		Type: MessageTypeAPICall,
		OK:   resp.StatusCode >= 200 && resp.StatusCode < 300,
		Payload: APICallResponse{
			Status:    resp.StatusCode,
			RequestID: msg.ID,
		},
	}
	if err := c.SendJSON(ack); err != nil {
		return
	}

	stream := NewStream(c, msg.ID, s.threshold)
	if _, err := io.Copy(stream, resp.Body); err != nil {
		// The stream is dead but the socket may be fine; tell the peer.
		logger.From(ctx).Warn("api_call response stream failed",
			"request_id", msg.ID, "error", err)
		_ = stream.Close()
		s.sendError(c, msg.ID, "GATEWAY.API_CALL.STREAM_FAILED", "response stream interrupted")
		return
	}
	_ = stream.Close()
}

func (s *Server) sendError(c *Conn, id any, code, detail string) {
	_ = c.SendJSON(Envelope{
		ID:   id,
		Type: MessageTypeSystem,
		OK:   false,
		Payload: ErrorPayload{
			Code:  code,
			Error: detail,
		},
	})
}

func sessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return r.URL.Query().Get(sessionCookieName)
}

// closeWith is for sockets rejected before they were registered anywhere.
func closeWith(wsConn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = wsConn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	_ = wsConn.Close()
}
