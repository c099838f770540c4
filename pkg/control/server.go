package control

import (
	"bufio"
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	goerrors "errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/craft-tools/mcman-go/pkg/domain"
	"github.com/craft-tools/mcman-go/pkg/errors"
	"github.com/craft-tools/mcman-go/pkg/logging"

	"vawter.tech/stopper"
)

const (
	// maxRequestLine bounds a single request line; anything larger is a
	// protocol violation, not a legitimate request
	maxRequestLine = 64 * 1024

	// shutdownGracePeriod is how long in-flight requests get to finish
	shutdownGracePeriod = 10 * time.Second
)

// ServerConfig configures the control socket listener
type ServerConfig struct {
	SocketFile string
}

// Server accepts control connections on a local socket and serves the
// line-delimited JSON protocol. One goroutine per connection; a slow or
// misbehaving client never affects others.
type Server struct {
	config   ServerConfig
	handler  *requestHandler
	logger   logging.Logger
	listener net.Listener
	sctx     *stopper.Context
}

// NewServer creates a control server for the given contract
func NewServer(config ServerConfig, contract domain.Contract, logger logging.Logger) *Server {
	return &Server{
		config:  config,
		handler: newRequestHandler(contract, logger),
		logger:  logger,
	}
}

// Start binds the socket and begins accepting connections. A stale
// socket file from an unclean daemon exit is removed first.
func (s *Server) Start(ctx context.Context) error {
	if s.config.SocketFile == "" {
		return errors.NewValidationError("socket file path cannot be empty", nil)
	}

	if err := os.Remove(s.config.SocketFile); err != nil && !os.IsNotExist(err) {
		return errors.NewIOError("failed to remove stale socket file", err).
			WithContext("socket_file", s.config.SocketFile)
	}

	listener, err := net.Listen("unix", s.config.SocketFile)
	if err != nil {
		return errors.NewIOError("failed to bind control socket", err).
			WithContext("socket_file", s.config.SocketFile)
	}
	s.listener = listener

	s.sctx = stopper.WithContext(ctx)
	s.sctx.Defer(func() {
		_ = os.Remove(s.config.SocketFile)
	})
	s.sctx.Go(func(sctx *stopper.Context) error {
		s.acceptLoop(ctx, sctx)
		return nil
	})

	s.logger.Infof("Control socket listening, socket: %s", s.config.SocketFile)
	return nil
}

// Stop closes the listener and waits for in-flight requests to finish
func (s *Server) Stop() error {
	if s.listener == nil {
		return nil
	}

	s.logger.Infof("Control socket shutting down, socket: %s", s.config.SocketFile)

	// Unblock Accept first; connection goroutines drain below
	_ = s.listener.Close()
	s.sctx.Stop(shutdownGracePeriod)

	if err := s.sctx.Wait(); err != nil {
		return errors.NewInternalError("control server shutdown failed", err)
	}
	return nil
}

func (s *Server) acceptLoop(ctx context.Context, sctx *stopper.Context) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if sctx.IsStopping() || goerrors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warnf("Accept failed, error: %v", err)
			continue
		}

		session := newSessionToken()
		sctx.Go(func(sctx *stopper.Context) error {
			// A fault in one connection must never take down the others
			// or the daemon
			defer func() {
				if r := recover(); r != nil {
					s.logger.Errorf("Connection handler panicked, session: %s, panic: %v", session, r)
					_ = conn.Close()
				}
			}()
			s.serveConnection(ctx, sctx, conn, session)
			return nil
		})
	}
}

// serveConnection reads request lines until the client disconnects or
// shutdown begins. Malformed lines produce a protocol error response;
// the connection stays usable. Reads run in a separate goroutine so a
// connection idle in a read never delays daemon shutdown.
func (s *Server) serveConnection(ctx context.Context, sctx *stopper.Context, conn net.Conn, session string) {
	closed := make(chan struct{})
	defer func() {
		close(closed)
		_ = conn.Close()
		s.logger.Infof("Client disconnected, session: %s", session)
	}()

	s.logger.Infof("Client connected, session: %s", session)

	lines := make(chan []byte)
	readDone := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(conn)
		scanner.Buffer(make([]byte, 0, 4096), maxRequestLine)
		for scanner.Scan() {
			line := append([]byte(nil), bytes.TrimSpace(scanner.Bytes())...)
			if len(line) == 0 {
				continue
			}
			select {
			case lines <- line:
			case <-closed:
				return
			}
		}
		readDone <- scanner.Err()
	}()

	encoder := json.NewEncoder(conn)
	for {
		select {
		case <-sctx.Stopping():
			return

		case err := <-readDone:
			if err != nil && !sctx.IsStopping() {
				s.logger.Debugf("Connection read ended, session: %s, error: %v", session, err)
			}
			return

		case line := <-lines:
			var response *Response
			var request Request
			if err := json.Unmarshal(line, &request); err != nil {
				s.logger.Warnf("Malformed request line, session: %s, error: %v", session, err)
				response = protocolErrorResponse("malformed request: not valid JSON")
			} else {
				s.logger.Debugf("Request, session: %s, op: %s, unit: %s", session, request.Op, request.Unit)
				response = s.handler.Handle(ctx, &request)
			}

			if err := encoder.Encode(response); err != nil {
				s.logger.Warnf("Failed to write response, session: %s, error: %v", session, err)
				return
			}
		}
	}
}

// newSessionToken returns an opaque random identifier for one accepted
// connection. Tokens are for log correlation only and carry no authority.
func newSessionToken() string {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return fmt.Sprintf("session-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf[:])
}
