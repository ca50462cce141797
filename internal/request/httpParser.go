package httpRequest

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"httpProxy/internal/helper"
)

const (
	scheme      = "http://"
	defaultPort = "80"
)

var (
	ErrMalformedRequest  = errors.New("malformed request")
	ErrUnsupportedMethod = errors.New("unsupported method")
)

// ForwardRequest is the normalized form of one client request.
type ForwardRequest struct {
	Method  string
	Host    string
	Port    string
	Path    string
	Version string
}

// CacheKey is the canonical request line sent upstream. Requests that differ
// only in version or URL spelling share a key.
func (r *ForwardRequest) CacheKey() string {
	return "GET " + r.Path + " HTTP/1.0\r\n"
}

// Address is the host:port to dial.
func (r *ForwardRequest) Address() string {
	return net.JoinHostPort(r.Host, r.Port)
}

// ReadRequestLine reads the first line of a client request.
func ReadRequestLine(reader io.ByteReader) (string, error) {
	line, err := helper.ReadLine(reader)
	if errors.Is(err, helper.ErrLineTooLong) {
		return "", fmt.Errorf("%w: request line too long", ErrMalformedRequest)
	}
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("can't read request line: %w", err)
	}
	return line, nil
}

// ParseRequestLine splits "METHOD http://host[:port]/path HTTP/x.y" into a
// ForwardRequest. A line that cannot be decomposed yields ErrMalformedRequest;
// any method other than GET yields ErrUnsupportedMethod.
func ParseRequestLine(line string) (*ForwardRequest, error) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return nil, fmt.Errorf("%w: format error: %q", ErrMalformedRequest, line)
	}
	method, target, version := fields[0], fields[1], fields[2]

	if !strings.HasPrefix(target, scheme) {
		return nil, fmt.Errorf("%w: target is not an absolute http URL: %q", ErrMalformedRequest, target)
	}
	if !strings.HasPrefix(version, "HTTP/") {
		return nil, fmt.Errorf("%w: proto format error: %q", ErrMalformedRequest, version)
	}

	authority := strings.TrimPrefix(target, scheme)
	path := "/"
	if slash := strings.IndexByte(authority, '/'); slash >= 0 {
		authority, path = authority[:slash], authority[slash:]
	}

	host, port, _ := strings.Cut(authority, ":")
	if host == "" {
		return nil, fmt.Errorf("%w: missing host: %q", ErrMalformedRequest, target)
	}
	if port == "" {
		port = defaultPort
	}

	if method != "GET" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, method)
	}

	return &ForwardRequest{
		Method:  method,
		Host:    host,
		Port:    port,
		Path:    path,
		Version: version,
	}, nil
}
