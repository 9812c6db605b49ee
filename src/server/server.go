// Package server runs the Unix domain socket accept loop: one listener,
// one goroutine per connection, line-delimited JSON framed requests and
// responses.
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/wchklaus97/claw-core/src/rpc"
)

// Server owns the listening socket and the connection accept loop.
type Server struct {
	socketPath string
	dispatcher *rpc.Dispatcher
	log        *logrus.Entry

	listener net.Listener
	wg       sync.WaitGroup
}

// New builds a Server bound to socketPath. The socket is not opened until
// Run is called.
func New(socketPath string, dispatcher *rpc.Dispatcher) *Server {
	return &Server{
		socketPath: socketPath,
		dispatcher: dispatcher,
		log:        logrus.WithField("component", "server"),
	}
}

// Run binds the socket, removing any stale file left by a previous
// instance, and accepts connections until ctx is cancelled. It blocks
// until the accept loop has fully stopped and every in-flight connection
// goroutine has returned.
func (s *Server) Run(ctx context.Context) error {
	if _, err := os.Stat(s.socketPath); err == nil {
		if err := os.Remove(s.socketPath); err != nil {
			return err
		}
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return err
	}
	s.listener = listener
	defer func() {
		if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
			s.log.Warnf("failed to remove socket file: %v", err)
		}
	}()

	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		return err
	}
	s.log.Infof("listening on %s", s.socketPath)

	go func() {
		<-ctx.Done()
		s.log.Info("shutdown signal received in server")
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			s.log.Errorf("accept error: %v", err)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.handleConnection(ctx, conn); err != nil {
				s.log.Warnf("connection error: %v", err)
			}
		}()
	}

	s.wg.Wait()
	return nil
}

// handleConnection reads one line-delimited request at a time and writes
// its response back on the same line, serially — responses on one
// connection are emitted in request order by construction.
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) error {
	defer conn.Close()

	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadString('\n')
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			resp := s.handleLine(ctx, trimmed)
			if writeErr := s.writeResponse(conn, resp); writeErr != nil {
				return writeErr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
	}
}

func (s *Server) handleLine(ctx context.Context, line string) rpc.Response {
	var req rpc.Request
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		return rpc.Fail("unknown", rpc.CodeInvalidParams, "invalid JSON request: "+err.Error())
	}
	s.log.Infof("request method=%s id=%s", req.Method, req.ID)
	return s.dispatcher.Dispatch(ctx, req)
}

func (s *Server) writeResponse(conn net.Conn, resp rpc.Response) error {
	body, err := json.Marshal(resp)
	if err != nil {
		body = []byte(rpc.FallbackBody)
	}
	if _, err := conn.Write(append(body, '\n')); err != nil {
		return err
	}
	return nil
}
