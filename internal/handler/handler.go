package handler

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"time"

	"httpProxy/internal/forward"
	proxystructs "httpProxy/internal/forwardproxy/structs"
	"httpProxy/internal/logging"
	"httpProxy/internal/metrics"
	httpRequest "httpProxy/internal/request"
	httpResponse "httpProxy/internal/response"
)

// HandleAccept serves exactly one request on conn and closes it.
func HandleAccept(ctx context.Context, conn net.Conn, proxy proxystructs.ProxyHandler) {
	metrics.ActiveConnections.Inc()
	defer metrics.ActiveConnections.Dec()

	defer func(conn net.Conn) {
		err := conn.Close()
		if err != nil && !errors.Is(err, net.ErrClosed) {
			proxy.Log(logging.LogLevelError, "Error closing connection from %v: %v", conn.RemoteAddr(), err)
		}
	}(conn)

	// Unblock any pending I/O when the server shuts down.
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	timeout := proxy.GetClientTimeout()
	if timeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			proxy.Log(logging.LogLevelWarn, "Failed to set read deadline for %v: %v", conn.RemoteAddr(), err)
		}
	}

	reader := bufio.NewReader(conn)
	writer := &deadlineWriter{conn: conn, timeout: timeout}

	req, ok := readRequest(reader, writer, conn.RemoteAddr(), proxy)
	if !ok {
		return
	}
	key := req.CacheKey()

	headers, err := httpRequest.ReadHeaders(reader)
	if err != nil {
		metrics.RequestErrors.WithLabelValues("client_io").Inc()
		proxy.Log(logging.LogLevelDebug, "Failed to read request headers from %v: %v", conn.RemoteAddr(), err)
		return
	}

	if blocklist := proxy.GetBlocklist(); blocklist != nil && blocklist.IsBlocked(req.Host) {
		metrics.RequestErrors.WithLabelValues("blocked_host").Inc()
		proxy.Log(logging.LogLevelWarn, "[FORBIDDEN] %v requested blocked host %s", conn.RemoteAddr(), req.Host)
		reply(httpResponse.WriteForbidden, writer, conn.RemoteAddr(), proxy)
		return
	}

	if proxy.IsCachingActive() {
		if value, hit := proxy.GetCache().Get(key); hit {
			n, err := writer.Write(value)
			metrics.BytesRelayed.WithLabelValues("cache").Add(float64(n))
			if err != nil {
				metrics.RequestErrors.WithLabelValues("client_io").Inc()
				proxy.Log(logging.LogLevelWarn, "Failed to serve cached %q to %v: %v", key, conn.RemoteAddr(), err)
				return
			}
			proxy.Log(logging.LogLevelInfo, "Served %q to %v from cache (%d bytes)", key, conn.RemoteAddr(), n)
			return
		}
	}

	res, err := proxy.GetEngine().Forward(ctx, writer, bytes.NewReader(headers), req)
	if err != nil {
		handleForwardError(err, res, writer, req, conn.RemoteAddr(), proxy)
		return
	}
	proxy.Log(logging.LogLevelInfo, "Relayed %q from %s to %v (%d bytes)", key, req.Address(), conn.RemoteAddr(), res.Size)

	if !res.Cacheable || !proxy.IsCachingActive() {
		metrics.CacheUncacheable.Inc()
		return
	}
	if err := proxy.GetCache().Put(key, res.Value); err != nil {
		proxy.Log(logging.LogLevelWarn, "Failed to cache %q: %v", key, err)
	}
}

// readRequest reads and parses the request line, answering the client
// itself when the request is rejected.
func readRequest(reader *bufio.Reader, w io.Writer, remote net.Addr, proxy proxystructs.ProxyHandler) (*httpRequest.ForwardRequest, bool) {
	line, err := httpRequest.ReadRequestLine(reader)
	if err == nil {
		var req *httpRequest.ForwardRequest
		req, err = httpRequest.ParseRequestLine(line)
		if err == nil {
			return req, true
		}
	}

	switch {
	case errors.Is(err, httpRequest.ErrMalformedRequest):
		metrics.RequestErrors.WithLabelValues("malformed").Inc()
		proxy.Log(logging.LogLevelWarn, "[BAD REQUEST] %v: %v", remote, err)
		drainHeaders(reader)
		reply(httpResponse.WriteBadRequest, w, remote, proxy)
	case errors.Is(err, httpRequest.ErrUnsupportedMethod):
		metrics.RequestErrors.WithLabelValues("unsupported_method").Inc()
		proxy.Log(logging.LogLevelWarn, "[NOT IMPLEMENTED] %v: %v", remote, err)
		drainHeaders(reader)
		reply(httpResponse.WriteNotImplemented, w, remote, proxy)
	default:
		metrics.RequestErrors.WithLabelValues("client_io").Inc()
		proxy.Log(logging.LogLevelDebug, "Failed to read request from %v: %v", remote, err)
	}
	return nil, false
}

func handleForwardError(err error, res *forward.Result, w io.Writer, req *httpRequest.ForwardRequest, remote net.Addr, proxy proxystructs.ProxyHandler) {
	switch {
	case errors.Is(err, forward.ErrUpstreamUnreachable):
		metrics.RequestErrors.WithLabelValues("upstream").Inc()
		proxy.Log(logging.LogLevelError, "[BAD GATEWAY] %s for %v: %v", req.Address(), remote, err)
		reply(httpResponse.WriteBadGateway, w, remote, proxy)
	case errors.Is(err, forward.ErrUpstreamFailed):
		metrics.RequestErrors.WithLabelValues("upstream").Inc()
		proxy.Log(logging.LogLevelError, "Origin %s failed after %d bytes for %v: %v", req.Address(), res.Size, remote, err)
		if res.Size == 0 {
			reply(httpResponse.WriteBadGateway, w, remote, proxy)
		}
	default:
		metrics.RequestErrors.WithLabelValues("client_io").Inc()
		proxy.Log(logging.LogLevelWarn, "Relay to %v aborted: %v", remote, err)
	}
}

func reply(write func(io.Writer) error, w io.Writer, remote net.Addr, proxy proxystructs.ProxyHandler) {
	if err := write(w); err != nil {
		proxy.Log(logging.LogLevelWarn, "Failed to write reply to %v: %v", remote, err)
	}
}

// drainHeaders consumes the rest of the request head so closing the socket
// does not reset a connection that still has unread input.
func drainHeaders(reader *bufio.Reader) {
	_, _ = httpRequest.CopyHeaders(reader, io.Discard)
}

// deadlineWriter pushes the write deadline forward before every write.
type deadlineWriter struct {
	conn    net.Conn
	timeout time.Duration
}

func (w *deadlineWriter) Write(p []byte) (int, error) {
	if w.timeout > 0 {
		if err := w.conn.SetWriteDeadline(time.Now().Add(w.timeout)); err != nil {
			return 0, err
		}
	}
	return w.conn.Write(p)
}
