package service

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
)

// httpServer binds its listener synchronously, so a Shutdown that follows a
// successful start always finds the server and closes the port.
type httpServer struct {
	mu     sync.Mutex
	ctx    context.Context
	server *http.Server
	ln     net.Listener
	done   chan struct{}
	err    error // set before done is closed
}

func (s *httpServer) start(ctx context.Context, addr string, handler http.Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		return errors.New("server already started")
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.ctx = ctx
	s.ln = ln
	s.server = &http.Server{Handler: handler}
	s.done = make(chan struct{})
	go func(server *http.Server, done chan struct{}) {
		err := server.Serve(ln)
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(done)
	}(s.server, s.done)
	return nil
}

// Addr is the bound address, nil before a successful start
func (s *httpServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Done is closed once the server stops serving, nil before a successful start
func (s *httpServer) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Err is the error serving stopped with, http.ErrServerClosed after Shutdown
func (s *httpServer) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *httpServer) Shutdown() error {
	s.mu.Lock()
	server, ctx := s.server, s.ctx
	s.mu.Unlock()
	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}
