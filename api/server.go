package api

import (
	"encoding/json"
	"fmt"
	"net"
	"sync"
)

// Server is a TCP server answering Arrow IPC compute requests.
type Server struct {
	listener net.Listener
	handler  *Handler
	auth     *Authenticator
	running  bool
	mu       sync.Mutex
	quit     chan struct{}
}

// NewServer creates a Server. metrics and auth may be nil; a nil auth
// disables authentication.
func NewServer(metrics *Metrics, auth *Authenticator) *Server {
	if auth == nil {
		auth = NewAuthenticator(AuthConfig{})
	}
	return &Server{
		handler: NewHandler(metrics),
		auth:    auth,
		quit:    make(chan struct{}),
	}
}

// Handler returns the server's batch handler, for attaching an
// OnBatch callback before Start.
func (s *Server) Handler() *Handler {
	return s.handler
}

// Start starts the server on the specified address.
// This method blocks until the server is stopped or fails.
func (s *Server) Start(address string) error {
	lis, err := s.listen(address)
	if err != nil {
		return err
	}

	defer s.Stop()
	s.acceptLoop(lis)
	return nil
}

// StartAsync starts the server in a background goroutine.
func (s *Server) StartAsync(address string) error {
	lis, err := s.listen(address)
	if err != nil {
		return err
	}

	go s.acceptLoop(lis)
	return nil
}

// Addr returns the listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) listen(address string) (net.Listener, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil, fmt.Errorf("server is already running")
	}
	lis, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", address, err)
	}
	s.listener = lis
	s.running = true
	return lis, nil
}

func (s *Server) acceptLoop(lis net.Listener) {
	for {
		conn, err := lis.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
				continue
			}
		}
		go s.handleConnection(conn)
	}
}

// Stop stops the server.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.running = false
	close(s.quit)
	if s.listener != nil {
		_ = s.listener.Close()
	}
}

// handleConnection serves one client: an auth handshake when enabled,
// then request/response batches until the client disconnects.
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	if s.auth.IsEnabled() {
		if err := s.handshake(conn); err != nil {
			return
		}
	}

	for {
		data, err := ReadMessage(conn)
		if err != nil {
			return
		}

		response, err := s.handler.ProcessBatch(data)
		if err != nil {
			return
		}

		if err := WriteMessage(conn, response); err != nil {
			return
		}
	}
}

// handshake reads the auth frame and answers with an AuthResponse.
func (s *Server) handshake(conn net.Conn) error {
	data, err := ReadMessage(conn)
	if err != nil {
		return err
	}

	var msg AuthMessage
	if err := json.Unmarshal(data, &msg); err != nil || msg.Type != "auth" {
		s.writeAuthResponse(conn, AuthResponse{Success: false, Error: ErrAuthTokenInvalid.Error()})
		return ErrAuthTokenInvalid
	}

	if err := s.auth.ValidateToken(msg.Token); err != nil {
		s.writeAuthResponse(conn, AuthResponse{Success: false, Error: err.Error()})
		return err
	}

	s.writeAuthResponse(conn, AuthResponse{Success: true})
	return nil
}

func (s *Server) writeAuthResponse(conn net.Conn, resp AuthResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	_ = WriteMessage(conn, data)
}
