// Package transport delivers accepted mission plans to the robot over a
// plain TCP byte stream. The sender half-closes the connection to mark
// the end of the file; the receiver reads until EOF.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"time"
)

// ChunkSize is the write and read buffer size.
const ChunkSize = 1024

// TCPSender sends one file per connection to a fixed address.
type TCPSender struct {
	addr   string
	dialer net.Dialer
}

// NewTCPSender creates a sender for host:port.
func NewTCPSender(host string, port int, timeout time.Duration) *TCPSender {
	return &TCPSender{
		addr:   net.JoinHostPort(host, fmt.Sprint(port)),
		dialer: net.Dialer{Timeout: timeout},
	}
}

// Addr returns the destination address.
func (s *TCPSender) Addr() string { return s.addr }

// Send streams the file at path and half-closes the connection. Failures
// are returned to the caller, never retried here.
func (s *TCPSender) Send(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("transport: open %s: %w", path, err)
	}
	defer f.Close()

	conn, err := s.dialer.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("transport: dial %s: %w", s.addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	}

	n, copyErr := io.CopyBuffer(conn, f, make([]byte, ChunkSize))
	closeErr := closeWrite(conn)
	if copyErr != nil {
		return fmt.Errorf("transport: send %s after %d bytes: %w", path, n, copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("transport: half-close: %w", closeErr)
	}
	log.Printf("transport: sent %s (%d bytes) to %s", path, n, s.addr)
	return nil
}

// closeWrite signals end of data while leaving the read side open.
func closeWrite(conn net.Conn) error {
	if cw, ok := conn.(interface{ CloseWrite() error }); ok {
		return cw.CloseWrite()
	}
	return conn.Close()
}

// Receive accepts one connection on ln and stores everything read until
// the peer half-closes into a fresh file in dir. It returns the file's
// path.
func Receive(ctx context.Context, ln net.Listener, dir string) (string, error) {
	type accepted struct {
		conn net.Conn
		err  error
	}
	ch := make(chan accepted, 1)
	go func() {
		c, err := ln.Accept()
		ch <- accepted{c, err}
	}()

	var conn net.Conn
	select {
	case <-ctx.Done():
		_ = ln.Close()
		return "", ctx.Err()
	case a := <-ch:
		if a.err != nil {
			return "", fmt.Errorf("transport: accept: %w", a.err)
		}
		conn = a.conn
	}
	defer conn.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("transport: create %s: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, "received-*.xml")
	if err != nil {
		return "", fmt.Errorf("transport: create file: %w", err)
	}
	n, err := io.CopyBuffer(f, conn, make([]byte, ChunkSize))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("transport: receive: %w", err)
	}
	log.Printf("transport: received %d bytes from %s into %s", n, conn.RemoteAddr(), f.Name())
	return f.Name(), nil
}
