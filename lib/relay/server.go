package relay

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nodecrypt/nodecrypt/lib/keys"
	"github.com/nodecrypt/nodecrypt/lib/protocol"
	"github.com/nodecrypt/nodecrypt/lib/transport"
	"github.com/samber/oops"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Config holds the relay's runtime options.
type Config struct {
	// ListenAddr is the HTTP listen address for WebSocket upgrades.
	ListenAddr string

	// IdleTimeout closes a session with no received frame for this long.
	IdleTimeout time.Duration

	// TickInterval drives the idle sweep and rotation check.
	TickInterval time.Duration

	// MaxEnvelopeBytes bounds one wire frame.
	MaxEnvelopeBytes int

	// FrameRate and FrameBurst bound per-connection frame intake. This is a
	// transport-level guard, not part of the protocol; the protocol itself
	// has no admission control.
	FrameRate  rate.Limit
	FrameBurst int
}

// DefaultConfig returns a Config with the reference protocol values.
func DefaultConfig() Config {
	return Config{
		ListenAddr:       "localhost:8787",
		IdleTimeout:      60 * time.Second,
		TickInterval:     10 * time.Second,
		MaxEnvelopeBytes: protocol.DefaultMaxEnvelopeBytes,
		FrameRate:        rate.Limit(200),
		FrameBurst:       400,
	}
}

// Server accepts WebSocket transports, runs each client's outer handshake and
// hands joined sessions to their channel's room.
type Server struct {
	cfg      Config
	keystore *keys.RelayKeystore
	upgrader websocket.Upgrader

	httpServer *http.Server
	listener   net.Listener

	mu    sync.Mutex
	rooms map[string]*Room

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer creates a relay server around an opened keystore.
func NewServer(cfg Config, ks *keys.RelayKeystore) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:      cfg,
		keystore: ks,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The relay carries only opaque ciphertext; any origin may
			// connect.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		rooms:  make(map[string]*Room),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins listening for upgrades. It returns once the listener is bound.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleUpgrade)

	listener, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return oops.Errorf("failed to listen on %s: %w", s.cfg.ListenAddr, err)
	}
	s.listener = listener
	s.httpServer = &http.Server{Handler: mux}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("relay http server stopped")
		}
	}()

	log.WithFields(logrus.Fields{
		"at":      "relay.Server.Start",
		"address": listener.Addr().String(),
	}).Info("relay_started")
	return nil
}

// Addr returns the bound listen address.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.cfg.ListenAddr
	}
	return s.listener.Addr().String()
}

// Stop closes the listener, all rooms and all live connections.
func (s *Server) Stop() {
	s.cancel()
	if s.httpServer != nil {
		s.httpServer.Close()
	}
	s.mu.Lock()
	for name, room := range s.rooms {
		room.Stop()
		delete(s.rooms, name)
	}
	s.mu.Unlock()
	s.wg.Wait()
	log.WithField("at", "relay.Server.Stop").Info("relay_stopped")
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Debug("websocket upgrade failed")
		return
	}
	t := transport.NewWSTransport(conn, int64(s.cfg.MaxEnvelopeBytes))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.HandleTransport(t)
	}()
}

// HandleTransport runs one connection to completion: announce, handshake,
// join, then forward frames into the channel room. Exposed for tests that
// drive in-process transports.
func (s *Server) HandleTransport(t transport.Transport) {
	ident, err := s.keystore.Current()
	if err != nil {
		log.WithError(err).Error("no relay identity available")
		t.Close()
		return
	}
	sess := NewClientSession(t, ident, s.cfg.MaxEnvelopeBytes)
	if err := sess.Announce(); err != nil {
		log.WithError(err).Debug("failed to announce")
		sess.Close()
		return
	}

	limiter := rate.NewLimiter(s.cfg.FrameRate, s.cfg.FrameBurst)
	var room *Room

	defer func() {
		if room != nil {
			room.Detach(sess)
		} else {
			sess.Close()
		}
	}()

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		t.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout))
		raw, err := t.ReadMessage()
		if err != nil {
			log.WithFields(logrus.Fields{
				"at":        "relay.Server.HandleTransport",
				"client_id": sess.ID,
				"state":     sess.State().String(),
			}).Debug("transport_closed")
			return
		}
		if !limiter.Allow() {
			log.WithFields(logrus.Fields{
				"at":        "relay.Server.HandleTransport",
				"client_id": sess.ID,
			}).Warn("frame_rate_exceeded")
			return
		}

		inner, err := sess.HandleFrame(raw)
		if err != nil {
			log.WithError(err).WithFields(logrus.Fields{
				"at":        "relay.Server.HandleTransport",
				"client_id": sess.ID,
				"state":     sess.State().String(),
			}).Debug("fatal_session_error")
			return
		}
		if inner == nil {
			continue
		}

		switch inner.Action {
		case protocol.ActionJoin:
			room = s.room(sess.Channel)
			if !room.Join(sess) {
				return
			}
		case protocol.ActionClient, protocol.ActionChannel:
			if room == nil || !room.Frame(sess, inner) {
				return
			}
		}
	}
}

// room returns the live room for a channel, creating it lazily. Empty rooms
// are stopped by SweepEmptyRooms; a stopped room is replaced.
func (s *Server) room(name string) *Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rooms[name]; ok {
		select {
		case <-r.done:
		default:
			return r
		}
	}
	r := NewRoom(name, s.keystore, s.cfg.IdleTimeout, s.cfg.TickInterval)
	s.rooms[name] = r
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		r.Run()
	}()
	return r
}

// SweepEmptyRooms stops rooms whose last member has left. Called from the
// serve command's maintenance loop.
func (s *Server) SweepEmptyRooms() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, room := range s.rooms {
		if room.Idle(s.cfg.TickInterval) {
			room.Stop()
			delete(s.rooms, name)
			log.WithFields(logrus.Fields{
				"at":      "relay.Server.SweepEmptyRooms",
				"channel": name,
			}).Debug("destroyed_empty_channel")
		}
	}
}
