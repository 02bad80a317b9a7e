// Package server exposes an engine over websocket.
//
// Clients send input messages (see [Message]) which are dispatched into the
// engine's document. Every broadcast payload is written back to each
// connected client as {"type":"state","payload":...}. GET /state returns
// the latest snapshot.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/san-kum/choreo/internal/broadcast"
	"github.com/san-kum/choreo/internal/engine"
	"github.com/san-kum/choreo/internal/host"
)

const (
	DefaultWriteTimeout = 5 * time.Second
	DefaultBuffer       = 32
)

type Option func(*Server)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.log = l.With().Str("component", "server").Logger() }
}

// WithBuffer sets the per-session payload queue. A slow client drops
// payloads once its queue is full.
func WithBuffer(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.buffer = n
		}
	}
}

// WithOriginPatterns allows cross-origin websocket clients.
func WithOriginPatterns(patterns ...string) Option {
	return func(s *Server) { s.origins = patterns }
}

type session struct {
	id     string
	conn   *websocket.Conn
	out    chan broadcast.Payload
	logger zerolog.Logger
}

type Server struct {
	eng *engine.Engine
	doc *host.Memory
	log zerolog.Logger

	buffer       int
	writeTimeout time.Duration
	origins      []string

	mu       sync.RWMutex
	sessions map[string]*session
}

func New(eng *engine.Engine, doc *host.Memory, opts ...Option) *Server {
	s := &Server{
		eng:          eng,
		doc:          doc,
		log:          zerolog.Nop(),
		buffer:       DefaultBuffer,
		writeTimeout: DefaultWriteTimeout,
		sessions:     make(map[string]*session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("GET /state", s.handleState)
	return mux
}

// ListenAndServe serves until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info().Str("addr", addr).Msg("listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

// Sessions returns the number of connected clients.
func (s *Server) Sessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Dispatch applies one inbound message to the engine.
func (s *Server) Dispatch(m Message) error {
	if m.Type == TypePulse {
		s.eng.Pulse(m.Intensity)
		return nil
	}
	ev, _, err := m.Event()
	if err != nil {
		return err
	}
	if ev.Kind == host.KindMutation {
		for _, id := range ev.Added {
			s.doc.AddElement(id)
		}
		for _, id := range ev.Removed {
			s.doc.RemoveElement(id)
		}
	}
	s.doc.Dispatch(ev)
	return nil
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	p, ok := s.eng.State()
	if !ok {
		http.Error(w, "no state yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(Outbound{Type: TypeState, Payload: p}); err != nil {
		s.log.Warn().Err(err).Msg("failed to write state")
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.origins})
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket accept failed")
		return
	}

	sess := &session{
		id:   uuid.NewString(),
		conn: conn,
		out:  make(chan broadcast.Payload, s.buffer),
	}
	sess.logger = s.log.With().Str("session", sess.id).Str("remote", r.RemoteAddr).Logger()

	if err := s.eng.SubscribeChan(sess.id, sess.out); err != nil {
		sess.logger.Warn().Err(err).Msg("subscribe failed")
		conn.Close(websocket.StatusInternalError, "engine closed")
		return
	}
	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	sess.logger.Debug().Msg("session opened")

	ctx, cancel := context.WithCancel(r.Context())
	defer func() {
		cancel()
		s.mu.Lock()
		delete(s.sessions, sess.id)
		s.mu.Unlock()
		_ = s.eng.Unsubscribe(sess.id)
		conn.Close(websocket.StatusNormalClosure, "")
		sess.logger.Debug().Msg("session closed")
	}()

	if p, ok := s.eng.State(); ok {
		if !s.send(ctx, sess, p) {
			return
		}
	}
	go s.writeLoop(ctx, cancel, sess)
	s.readLoop(ctx, sess)
}

func (s *Server) readLoop(ctx context.Context, sess *session) {
	for {
		var m Message
		if err := wsjson.Read(ctx, sess.conn, &m); err != nil {
			if !isClosed(err) {
				sess.logger.Warn().Err(err).Msg("read failed")
			}
			return
		}
		if err := s.Dispatch(m); err != nil {
			sess.logger.Warn().Err(err).Str("type", m.Type).Msg("dropped message")
		}
	}
}

func (s *Server) writeLoop(ctx context.Context, cancel context.CancelFunc, sess *session) {
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case p := <-sess.out:
			if !s.send(ctx, sess, p) {
				return
			}
		}
	}
}

func (s *Server) send(ctx context.Context, sess *session, p broadcast.Payload) bool {
	if ctx.Err() != nil {
		return false
	}
	wctx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()

	if err := wsjson.Write(wctx, sess.conn, Outbound{Type: TypeState, Payload: p}); err != nil {
		if isClosed(err) {
			sess.logger.Debug().Err(err).Msg("websocket closed during send")
		} else {
			sess.logger.Warn().Err(err).Msg("failed to send state")
		}
		return false
	}
	return true
}

func isClosed(err error) bool {
	if errors.Is(err, context.Canceled) {
		return true
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "use of closed network connection") ||
		strings.Contains(msg, "connection reset by peer")
}
