// Package testutil provides a fake origin server for proxy tests.
package testutil

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
)

// Origin answers every request with a fixed raw response and then closes the
// connection. It records each request head it receives and each address it
// was dialed with.
type Origin struct {
	mu       sync.Mutex
	response []byte
	requests []string
	dialed   []string
}

func NewOrigin(response string) *Origin {
	return &Origin{response: []byte(response)}
}

// SetResponse changes the response served to later requests.
func (o *Origin) SetResponse(response string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.response = []byte(response)
}

// DialContext connects to the origin over an in-memory pipe.
func (o *Origin) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o.mu.Lock()
	o.dialed = append(o.dialed, address)
	o.mu.Unlock()

	proxySide, originSide := net.Pipe()
	go o.serve(originSide)
	return proxySide, nil
}

// Listen serves the origin on a loopback TCP port until the test ends and
// returns its address.
func (o *Origin) Listen(t testing.TB) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("origin listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			o.mu.Lock()
			o.dialed = append(o.dialed, ln.Addr().String())
			o.mu.Unlock()
			go o.serve(conn)
		}
	}()

	return ln.Addr().String()
}

func (o *Origin) serve(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)
	var head strings.Builder
	for {
		line, err := reader.ReadString('\n')
		head.WriteString(line)
		if err != nil || line == "\r\n" {
			break
		}
	}

	o.mu.Lock()
	o.requests = append(o.requests, head.String())
	response := o.response
	o.mu.Unlock()

	if len(response) > 0 {
		_, _ = conn.Write(response)
	}
}

// Requests returns the request heads received so far.
func (o *Origin) Requests() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.requests...)
}

// Dialed returns the addresses the origin was reached through.
func (o *Origin) Dialed() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.dialed...)
}

// UnreachableDialer fails every dial.
type UnreachableDialer struct {
	mu    sync.Mutex
	dials int
}

var ErrRefused = errors.New("connection refused")

func (d *UnreachableDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	d.mu.Lock()
	d.dials++
	d.mu.Unlock()
	return nil, ErrRefused
}

func (d *UnreachableDialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}
