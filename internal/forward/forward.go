package forward

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"httpProxy/internal/logging"
	"httpProxy/internal/metrics"
	httpRequest "httpProxy/internal/request"
	httpResponse "httpProxy/internal/response"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:56.0) Gecko/20100101 Firefox/56.0"
	DefaultChunkSize = 8192
)

var (
	// ErrUpstreamUnreachable means the request never reached the origin.
	ErrUpstreamUnreachable = errors.New("upstream unreachable")
	// ErrUpstreamFailed means the origin connection broke while relaying.
	ErrUpstreamFailed = errors.New("upstream failed")
	// ErrClientGone means the client stopped accepting the relayed response.
	ErrClientGone = errors.New("client connection failed")
)

// Dialer opens outbound connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

type Engine struct {
	Dialer        Dialer
	UserAgent     string
	MaxObjectSize int
	ChunkSize     int
	// Timeout bounds the dial and every individual read or write on the
	// origin connection. Zero disables it.
	Timeout time.Duration
	Logger  logging.Logger
}

// Result describes one relayed response.
type Result struct {
	// Value holds the full response when Cacheable is true.
	Value []byte
	// Size is the number of response bytes written to the client.
	Size int
	// Cacheable is set when a non-empty response fit within MaxObjectSize
	// and the origin closed the connection cleanly.
	Cacheable bool
}

func NewEngine(logger logging.Logger, maxObjectSize int, timeout time.Duration) *Engine {
	return &Engine{
		Dialer:        &net.Dialer{},
		UserAgent:     DefaultUserAgent,
		MaxObjectSize: maxObjectSize,
		ChunkSize:     DefaultChunkSize,
		Timeout:       timeout,
		Logger:        logger,
	}
}

// Forward sends req and the client's headers to the origin, then streams the
// origin's response to client while accumulating it for caching. headers is
// read up to its first empty line or EOF and should already be in memory.
func (e *Engine) Forward(ctx context.Context, client io.Writer, headers io.ByteReader, req *httpRequest.ForwardRequest) (*Result, error) {
	result := &Result{}

	origin, err := e.dial(ctx, req.Address())
	if err != nil {
		return result, fmt.Errorf("%w: %s: %v", ErrUpstreamUnreachable, req.Address(), err)
	}
	defer func() {
		if cerr := origin.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			e.log(logging.LogLevelError, "Error closing origin connection %s: %v", req.Address(), cerr)
		}
	}()
	stop := context.AfterFunc(ctx, func() { _ = origin.Close() })
	defer stop()

	start := time.Now()
	defer func() {
		metrics.OriginDuration.Observe(time.Since(start).Seconds())
	}()

	e.refreshDeadline(origin)
	if err := e.sendRequest(origin, headers, req); err != nil {
		return result, fmt.Errorf("%w: %s: %v", ErrUpstreamUnreachable, req.Address(), err)
	}
	e.log(logging.LogLevelDebug, "Sent %q to %s", req.CacheKey(), req.Address())

	return e.relay(origin, client, result)
}

func (e *Engine) dial(ctx context.Context, address string) (net.Conn, error) {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}
	return e.Dialer.DialContext(ctx, "tcp", address)
}

// sendRequest writes the canonical request line, the injected headers, the
// client's forwardable headers and the closing empty line.
func (e *Engine) sendRequest(origin net.Conn, headers io.ByteReader, req *httpRequest.ForwardRequest) error {
	w := bufio.NewWriter(origin)

	userAgent := e.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	head := req.CacheKey() +
		"Host: " + req.Host + "\r\n" +
		"Connection: close\r\n" +
		"Proxy-Connection: close\r\n" +
		"User-Agent: " + userAgent + "\r\n"
	if _, err := w.WriteString(head); err != nil {
		return err
	}

	if headers != nil {
		if _, err := httpRequest.CopyHeaders(headers, w); err != nil {
			return err
		}
	}

	if _, err := w.WriteString("\r\n"); err != nil {
		return err
	}
	return w.Flush()
}

func (e *Engine) relay(origin net.Conn, client io.Writer, result *Result) (*Result, error) {
	chunkSize := e.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	buf := make([]byte, chunkSize)
	acc := httpResponse.NewBoundedBuffer(e.MaxObjectSize)

	for {
		e.refreshDeadline(origin)
		n, rerr := origin.Read(buf)
		if n > 0 {
			if _, werr := client.Write(buf[:n]); werr != nil {
				metrics.BytesRelayed.WithLabelValues("origin").Add(float64(result.Size))
				return result, fmt.Errorf("%w: %v", ErrClientGone, werr)
			}
			result.Size += n
			_, _ = acc.Write(buf[:n])
		}

		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			metrics.BytesRelayed.WithLabelValues("origin").Add(float64(result.Size))
			return result, fmt.Errorf("%w: %v", ErrUpstreamFailed, rerr)
		}
	}

	metrics.BytesRelayed.WithLabelValues("origin").Add(float64(result.Size))
	if acc.Overflowed() {
		e.log(logging.LogLevelDebug, "Response of %d bytes exceeds %d, not caching", acc.Total(), acc.Capacity())
		return result, nil
	}
	if result.Size == 0 {
		return result, nil
	}

	result.Value = acc.Bytes()
	result.Cacheable = true
	return result, nil
}

func (e *Engine) refreshDeadline(conn net.Conn) {
	if e.Timeout <= 0 {
		return
	}
	if err := conn.SetDeadline(time.Now().Add(e.Timeout)); err != nil {
		e.log(logging.LogLevelWarn, "Failed to set origin deadline: %v", err)
	}
}

func (e *Engine) log(level logging.LogLevel, format string, args ...interface{}) {
	if e.Logger != nil {
		e.Logger.Log(level, format, args...)
	}
}
