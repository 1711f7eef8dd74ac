// Package ws serves a chronote over HTTP and streams its events over a
// websocket.
//
//	GET  /events  websocket, one JSON event per text message
//	POST /notes   {"note": "..."}
//	PUT  /store   {"store": "...", "parts": 4}
//	GET  /state   introspection snapshot
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/aretw0/chronote/pkg/core"
	"github.com/aretw0/chronote/pkg/eventloop"
)

const writeTimeout = 5 * time.Second

// Backend is the chronote the server drives.
type Backend interface {
	Submit(text string) *eventloop.Promise
	Configure(kind core.StrategyKind, parts int) error
	Kind() core.StrategyKind
	State() any
}

// Stream hands out event channels. *events.Bus satisfies it.
type Stream interface {
	Channel(ctx context.Context, buffer int) <-chan core.Event
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithBuffer sets the per-connection event buffer.
func WithBuffer(n int) Option {
	return func(s *Server) {
		s.buffer = n
	}
}

// Server exposes a Backend over HTTP.
type Server struct {
	backend  Backend
	stream   Stream
	logger   *slog.Logger
	buffer   int
	upgrader websocket.Upgrader
}

// NewServer creates a server.
func NewServer(backend Backend, stream Stream, opts ...Option) *Server {
	s := &Server{
		backend: backend,
		stream:  stream,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routes wrapped in request logging.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			m := httpsnoop.CaptureMetrics(handler, writer, request)
			s.logger.Info("handled", "method", request.Method, "url", request.URL, "duration", m.Duration, "status", m.Code)
		})
	})

	r.Methods(http.MethodGet).Path("/events").HandlerFunc(s.streamEvents)
	r.Methods(http.MethodPost).Path("/notes").HandlerFunc(s.addNote)
	r.Methods(http.MethodPut).Path("/store").HandlerFunc(s.configure)
	r.Methods(http.MethodGet).Path("/state").HandlerFunc(s.state)
	return r
}

type noteRequest struct {
	Note string `json:"note"`
}

type storeRequest struct {
	Store string `json:"store"`
	Parts int    `json:"parts"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) addNote(writer http.ResponseWriter, request *http.Request) {
	var req noteRequest
	if err := json.NewDecoder(request.Body).Decode(&req); err != nil {
		s.writeError(writer, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Note) == "" {
		s.writeError(writer, http.StatusBadRequest, core.ErrEmptyNote)
		return
	}
	if s.backend.Kind() == "" {
		s.writeError(writer, http.StatusConflict, core.ErrNoStrategy)
		return
	}

	// The save outcome is reported on the event stream.
	s.backend.Submit(req.Note)
	s.writeJSON(writer, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) configure(writer http.ResponseWriter, request *http.Request) {
	var req storeRequest
	if err := json.NewDecoder(request.Body).Decode(&req); err != nil {
		s.writeError(writer, http.StatusBadRequest, err)
		return
	}
	if req.Parts < 0 {
		s.writeError(writer, http.StatusBadRequest, core.ErrInvalidParts)
		return
	}
	if err := s.backend.Configure(core.StrategyKind(req.Store), req.Parts); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, core.ErrUnknownStrategy) {
			status = http.StatusBadRequest
		}
		s.writeError(writer, status, err)
		return
	}
	s.writeJSON(writer, http.StatusOK, s.backend.State())
}

func (s *Server) state(writer http.ResponseWriter, _ *http.Request) {
	s.writeJSON(writer, http.StatusOK, s.backend.State())
}

func (s *Server) streamEvents(writer http.ResponseWriter, request *http.Request) {
	ctx, cancel := context.WithCancel(request.Context())
	defer cancel()

	// Subscribe before the handshake completes so a client sees every event
	// dispatched after Dial returns.
	events := s.stream.Channel(ctx, s.buffer)

	conn, err := s.upgrader.Upgrade(writer, request, nil)
	if err != nil {
		s.logger.Error("failed to upgrade", "err", err)
		return
	}
	defer conn.Close()

	// Reads only detect the client going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(e); err != nil {
				s.logger.Debug("event stream closed", "err", err)
				return
			}
		}
	}
}

func (s *Server) writeJSON(writer http.ResponseWriter, status int, v any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	if err := json.NewEncoder(writer).Encode(v); err != nil {
		s.logger.Error("failed to write out", "err", err)
	}
}

func (s *Server) writeError(writer http.ResponseWriter, status int, err error) {
	s.writeJSON(writer, status, errorResponse{Error: err.Error()})
}
