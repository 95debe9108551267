// Package server runs the TCP listener and hands each accepted
// connection to the hub.
package server

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hubline/relay/config"
	"github.com/hubline/relay/src/hub"
	"github.com/hubline/relay/src/wire"
	"github.com/rs/zerolog"
)

// drainGrace bounds how long Stop waits for connections to wind down on
// their own before force-closing the transports. Connections that never
// completed registration sit in a blocking read and need the force.
const drainGrace = 3 * time.Second

// Server binds the listening endpoint and spawns one lifecycle goroutine
// per accepted connection. Stopping drains: every registered client gets
// a shutdown notice, every connection is closed, then the listener is
// released.
type Server struct {
	cfg    *config.Config
	hub    *hub.Hub
	health *hub.Reporter
	logger zerolog.Logger

	ln   net.Listener
	wg   sync.WaitGroup
	done chan struct{}
	once sync.Once

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

func New(cfg *config.Config, logger zerolog.Logger) *Server {
	h := hub.New(logger, cfg.SendBuffer)
	return &Server{
		cfg:    cfg,
		hub:    h,
		health: hub.NewReporter(h.Registry(), cfg.HealthInterval, logger),
		logger: logger.With().Str("component", "server").Logger(),
		done:   make(chan struct{}),
		conns:  make(map[net.Conn]struct{}),
	}
}

// Hub exposes the hub for tests and diagnostics.
func (s *Server) Hub() *hub.Hub {
	return s.hub
}

// Listen binds the configured address. Failure here is the only
// process-fatal error.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", s.cfg.Addr, err)
	}
	s.ln = ln
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("listening")
	return nil
}

// Addr returns the bound address. Valid after Listen; handy for tests
// that bind port 0.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Serve accepts connections until Stop. Accept errors during normal
// operation are logged and retried; they never abort the process.
func (s *Server) Serve() {
	go s.health.Run()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			s.logger.Error().Err(err).Msg("accept failed")
			continue
		}

		id := uuid.New().String()
		s.logger.Info().
			Str("client_id", id).
			Str("remote", conn.RemoteAddr().String()).
			Msg("connection accepted")

		s.track(conn)
		c := hub.NewClient(id, wire.Wrap(conn), s.hub)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(conn)
			c.ReadPump()
		}()
	}
}

// ListenAndServe is Listen followed by Serve.
func (s *Server) ListenAndServe() error {
	if err := s.Listen(); err != nil {
		return err
	}
	s.Serve()
	return nil
}

// Stop drains the server: health reporter halted, shutdown notice
// broadcast, all connections closed, listener released. Safe to call
// more than once; returns once every connection goroutine is done.
func (s *Server) Stop() {
	s.once.Do(func() {
		close(s.done)
		s.health.Stop()
		s.hub.Shutdown()
		if s.ln != nil {
			s.ln.Close()
		}

		finished := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(finished)
		}()
		select {
		case <-finished:
		case <-time.After(drainGrace):
			s.closeRemaining()
			<-finished
		}
		s.logger.Info().Msg("stopped")
	})
}

func (s *Server) track(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[conn] = struct{}{}
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

func (s *Server) closeRemaining() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		conn.Close()
	}
	if len(s.conns) > 0 {
		s.logger.Warn().Int("conns", len(s.conns)).Msg("force-closed straggling connections")
	}
}
