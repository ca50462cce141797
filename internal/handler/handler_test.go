package handler

import (
	"context"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"httpProxy/internal/access"
	"httpProxy/internal/cache"
	"httpProxy/internal/forward"
	"httpProxy/internal/logging"
	"httpProxy/internal/testutil"
)

const okResponse = "HTTP/1.0 200 OK\r\nContent-Type: text/html\r\n\r\n<html>hi</html>"

type fakeProxy struct {
	cache     *cache.Cache
	engine    *forward.Engine
	blocklist *access.HostBlocklist
	caching   bool
	timeout   time.Duration
}

func (p *fakeProxy) Log(level logging.LogLevel, message string, args ...interface{}) {}
func (p *fakeProxy) IsCachingActive() bool                                          { return p.caching }
func (p *fakeProxy) GetClientTimeout() time.Duration                                { return p.timeout }
func (p *fakeProxy) GetCache() *cache.Cache                                         { return p.cache }
func (p *fakeProxy) GetEngine() *forward.Engine                                     { return p.engine }
func (p *fakeProxy) GetBlocklist() *access.HostBlocklist                            { return p.blocklist }

func newFakeProxy(dialer forward.Dialer, maxObjectSize int) *fakeProxy {
	engine := forward.NewEngine(logging.NewNopLogger(), maxObjectSize, 2*time.Second)
	engine.Dialer = dialer
	return &fakeProxy{
		cache:     cache.NewCache(maxObjectSize, nil),
		engine:    engine,
		blocklist: access.NewHostBlocklist(nil),
		caching:   true,
		timeout:   2 * time.Second,
	}
}

// roundTrip sends request over an in-memory connection and returns
// everything the handler wrote before closing it.
func roundTrip(t *testing.T, proxy *fakeProxy, request string) string {
	t.Helper()
	client, server := net.Pipe()
	defer client.Close()

	done := make(chan struct{})
	go func() {
		HandleAccept(context.Background(), server, proxy)
		close(done)
	}()
	go func() {
		_, _ = client.Write([]byte(request))
	}()

	got, err := io.ReadAll(client)
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not return")
	}
	return string(got)
}

func TestMissThenHit(t *testing.T) {
	origin := testutil.NewOrigin(okResponse)
	proxy := newFakeProxy(origin, cache.MaxObjectSize)
	request := "GET http://example.com/index.html HTTP/1.0\r\n\r\n"

	assert.Equal(t, okResponse, roundTrip(t, proxy, request))
	require.Len(t, origin.Requests(), 1)
	assert.Equal(t, []string{"example.com:80"}, origin.Dialed())
	assert.True(t, strings.HasPrefix(origin.Requests()[0], "GET /index.html HTTP/1.0\r\nHost: example.com\r\n"))
	assert.Equal(t, 1, proxy.cache.Len())

	origin.SetResponse("HTTP/1.0 500 changed\r\n\r\n")
	assert.Equal(t, okResponse, roundTrip(t, proxy, request))
	assert.Len(t, origin.Requests(), 1, "second request must be served from cache")
}

func TestHitIgnoresVersionAndPort(t *testing.T) {
	origin := testutil.NewOrigin(okResponse)
	proxy := newFakeProxy(origin, cache.MaxObjectSize)

	roundTrip(t, proxy, "GET http://example.com/a HTTP/1.0\r\n\r\n")
	got := roundTrip(t, proxy, "GET http://example.com:80/a HTTP/1.1\r\nAccept: */*\r\n\r\n")

	assert.Equal(t, okResponse, got)
	assert.Len(t, origin.Requests(), 1)
}

func TestMalformedRequest(t *testing.T) {
	origin := testutil.NewOrigin(okResponse)
	proxy := newFakeProxy(origin, cache.MaxObjectSize)

	got := roundTrip(t, proxy, "GET /index.html HTTP/1.0\r\n\r\n")
	assert.Equal(t, "HTTP/1.0 400 Bad request\n", got)
	assert.Empty(t, origin.Dialed())
}

func TestUnsupportedMethod(t *testing.T) {
	origin := testutil.NewOrigin(okResponse)
	proxy := newFakeProxy(origin, cache.MaxObjectSize)

	got := roundTrip(t, proxy, "POST http://x/y HTTP/1.0\r\n\r\n")
	assert.Equal(t, "HTTP/1.0 501 Not implemented", got)
	assert.Empty(t, origin.Dialed())
}

func TestUpstreamUnreachable(t *testing.T) {
	dialer := &testutil.UnreachableDialer{}
	proxy := newFakeProxy(dialer, cache.MaxObjectSize)

	got := roundTrip(t, proxy, "GET http://down.example/ HTTP/1.0\r\n\r\n")
	assert.Equal(t, "HTTP/1.0 502 Bad gateway\r\n\r\n", got)
	assert.Equal(t, 1, dialer.Dials())
	assert.Equal(t, 0, proxy.cache.Len())
}

func TestOversizedResponseNotCached(t *testing.T) {
	body := "HTTP/1.0 200 OK\r\n\r\n" + strings.Repeat("x", 200)
	origin := testutil.NewOrigin(body)
	proxy := newFakeProxy(origin, 100)
	request := "GET http://example.com/big HTTP/1.0\r\n\r\n"

	assert.Equal(t, body, roundTrip(t, proxy, request))
	assert.Equal(t, 0, proxy.cache.Len())

	assert.Equal(t, body, roundTrip(t, proxy, request))
	assert.Len(t, origin.Requests(), 2)
}

func TestCachingDisabled(t *testing.T) {
	origin := testutil.NewOrigin(okResponse)
	proxy := newFakeProxy(origin, cache.MaxObjectSize)
	proxy.caching = false
	request := "GET http://example.com/ HTTP/1.0\r\n\r\n"

	roundTrip(t, proxy, request)
	roundTrip(t, proxy, request)
	assert.Len(t, origin.Requests(), 2)
	assert.Equal(t, 0, proxy.cache.Len())
}

func TestClientHeadersForwarded(t *testing.T) {
	origin := testutil.NewOrigin(okResponse)
	proxy := newFakeProxy(origin, cache.MaxObjectSize)

	roundTrip(t, proxy, "GET http://example.com/h HTTP/1.0\r\nHost: example.com\r\nAccept-Language: en\r\nUser-Agent: curl\r\n\r\n")

	require.Len(t, origin.Requests(), 1)
	head := origin.Requests()[0]
	assert.Contains(t, head, "Accept-Language: en\r\n")
	assert.NotContains(t, head, "curl")
	assert.Equal(t, 1, strings.Count(head, "Host:"))
	assert.True(t, strings.HasSuffix(head, "Accept-Language: en\r\n\r\n"))
}

func TestClientTimeout(t *testing.T) {
	proxy := newFakeProxy(testutil.NewOrigin(okResponse), cache.MaxObjectSize)
	proxy.timeout = 50 * time.Millisecond

	client, server := net.Pipe()
	defer client.Close()

	done := make(chan struct{})
	go func() {
		HandleAccept(context.Background(), server, proxy)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler ignored the client timeout")
	}
}

func TestShutdownUnblocksHandler(t *testing.T) {
	proxy := newFakeProxy(testutil.NewOrigin(okResponse), cache.MaxObjectSize)
	proxy.timeout = 0

	client, server := net.Pipe()
	defer client.Close()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		HandleAccept(ctx, server, proxy)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler kept running after cancellation")
	}
}

func TestStalledHeadersNeverReachOrigin(t *testing.T) {
	origin := testutil.NewOrigin(okResponse)
	proxy := newFakeProxy(origin, cache.MaxObjectSize)
	proxy.timeout = 100 * time.Millisecond

	// The empty line ending the head never arrives.
	got := roundTrip(t, proxy, "GET http://example.com/x HTTP/1.0\r\nAccept: */*\r\n")

	assert.Empty(t, got)
	assert.Empty(t, origin.Dialed())
	assert.Empty(t, origin.Requests())
}

func TestUpstreamUnreachableAfterHeaders(t *testing.T) {
	dialer := &testutil.UnreachableDialer{}
	proxy := newFakeProxy(dialer, cache.MaxObjectSize)

	got := roundTrip(t, proxy, "GET http://down.example/ HTTP/1.0\r\nAccept: */*\r\nCookie: a=b\r\n\r\n")
	assert.Equal(t, "HTTP/1.0 502 Bad gateway\r\n\r\n", got)
	assert.Equal(t, 1, dialer.Dials())
}

func TestBlockedHostForbidden(t *testing.T) {
	origin := testutil.NewOrigin(okResponse)
	proxy := newFakeProxy(origin, cache.MaxObjectSize)
	proxy.blocklist.Block("example.com")

	got := roundTrip(t, proxy, "GET http://www.example.com/ HTTP/1.0\r\nAccept: */*\r\n\r\n")
	assert.Equal(t, "HTTP/1.0 403 Forbidden\r\n\r\n", got)
	assert.Empty(t, origin.Dialed())

	proxy.blocklist.Unblock("example.com")
	assert.Equal(t, okResponse, roundTrip(t, proxy, "GET http://www.example.com/ HTTP/1.0\r\n\r\n"))
}

func TestBlockedHostNotServedFromCache(t *testing.T) {
	origin := testutil.NewOrigin(okResponse)
	proxy := newFakeProxy(origin, cache.MaxObjectSize)
	request := "GET http://example.com/cached HTTP/1.0\r\n\r\n"

	assert.Equal(t, okResponse, roundTrip(t, proxy, request))
	require.Equal(t, 1, proxy.cache.Len())

	proxy.blocklist.Block("example.com")
	assert.Equal(t, "HTTP/1.0 403 Forbidden\r\n\r\n", roundTrip(t, proxy, request))
}
