package server

import (
	"bufio"
	"context"
	"io"
	"net"
	"strings"
	"sync"

	gopsutil "github.com/shirou/gopsutil/mem"
	"golang.org/x/sync/errgroup"

	"github.com/dchain-network/dchain/internal/log"
)

const readBufferSize = 4096

// Server accepts TCP connections and spawns one handler goroutine per
// connection, each framing requests on "\r\n\r\n" and routing them
// through Router.
type Server struct {
	addr     string
	router   *Router
	log      *log.Logger
	listener net.Listener

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

// NewServer builds a Server bound to addr, dispatching to router.
func NewServer(addr string, router *Router) *Server {
	return &Server{
		addr:   addr,
		router: router,
		log:    log.Root().New("component", "tcp"),
		conns:  make(map[net.Conn]struct{}),
	}
}

// logStartupResources mirrors the upstream node launcher's habit of
// logging available memory before accepting connections, so an
// operator sees the same class of diagnostic at startup.
func (s *Server) logStartupResources() {
	if vm, err := gopsutil.VirtualMemory(); err == nil {
		s.log.Info("system memory", "total_mb", vm.Total/1024/1024, "available_mb", vm.Available/1024/1024)
	} else {
		s.log.Debug("could not read system memory", "err", err)
	}
}

// Run binds the listener and serves until ctx is canceled, then closes
// the listener and returns once the accept loop has exited. Connection
// handlers that are already running are not waited for; each ends when
// its peer closes or an I/O error occurs.
func (s *Server) Run(ctx context.Context) error {
	s.logStartupResources()

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.log.Info("listening", "addr", ln.Addr().String())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		return ln.Close()
	})
	g.Go(func() error {
		return s.acceptLoop(gctx, ln)
	})
	return g.Wait()
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		s.trackConn(conn, true)
		go s.handleConn(conn)
	}
}

func (s *Server) trackConn(conn net.Conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.conns[conn] = struct{}{}
	} else {
		delete(s.conns, conn)
	}
}

// handleConn reads from conn until it yields at least one complete
// "\r\n\r\n"-framed batch, routes each, writes the response, and
// repeats until the peer closes the connection or an I/O error occurs.
// A panic inside request handling is recovered here so one bad
// connection never brings down the listener.
func (s *Server) handleConn(conn net.Conn) {
	defer s.trackConn(conn, false)
	defer conn.Close()
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("recovered from panic handling connection", "err", r, "remote", conn.RemoteAddr())
		}
	}()

	reader := bufio.NewReaderSize(conn, readBufferSize)
	var buf strings.Builder

	for {
		chunk := make([]byte, readBufferSize)
		n, err := reader.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
		}
		for {
			data := buf.String()
			idx := strings.Index(data, "\r\n\r\n")
			if idx < 0 {
				break
			}
			frame := data[:idx+4]
			buf.Reset()
			buf.WriteString(data[idx+4:])

			resp := s.router.HandleBatch(frame)
			if _, werr := io.WriteString(conn, resp); werr != nil {
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// Close shuts down the listener immediately; in-flight connections are
// not closed and each ends when its peer closes or an I/O error occurs.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}
