package forwardproxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"httpProxy/internal/access"
	"httpProxy/internal/admin"
	"httpProxy/internal/cache"
	"httpProxy/internal/forward"
	"httpProxy/internal/handler"
	"httpProxy/internal/logging"
	"httpProxy/internal/metrics"
)

type Proxy struct {
	Address       string
	Port          uint16
	AdminPort     uint16
	CachingActive bool
	ClientTimeout time.Duration
	Cache         *cache.Cache
	Engine        *forward.Engine
	Blacklist     []net.IP
	Blocklist     *access.HostBlocklist
	Logger        *logging.DefaultLogger

	handlers sync.WaitGroup
}

func NewForwardProxy(conf *Config, logger *logging.DefaultLogger) (*Proxy, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	if cacheLimit := cache.SlotCount * conf.Caching.MaxObjectSize; cacheLimit > conf.Caching.MaxCacheSize {
		logger.Log(logging.LogLevelWarn, "%d slots of %d bytes may exceed max_cache_size %d",
			cache.SlotCount, conf.Caching.MaxObjectSize, conf.Caching.MaxCacheSize)
	}

	// Validate has already rejected invalid entries.
	blacklist, _ := access.ParseBlacklist(conf.Blacklist)

	engine := forward.NewEngine(logger.With("forward"), conf.Caching.MaxObjectSize, conf.Timeouts.Origin)
	engine.UserAgent = conf.UserAgent

	return &Proxy{
		Address:       conf.Server.Address,
		Port:          uint16(conf.Server.Port),
		AdminPort:     uint16(conf.Server.AdminPort),
		CachingActive: conf.Caching.Enabled,
		ClientTimeout: conf.Timeouts.Client,
		Cache:         cache.NewCache(conf.Caching.MaxObjectSize, logger.With("cache")),
		Engine:        engine,
		Blacklist:     blacklist,
		Blocklist:     access.NewHostBlocklist(conf.BlockedHosts),
		Logger:        logger,
	}, nil
}

func (proxy *Proxy) IsCachingActive() bool {
	return proxy.CachingActive
}

func (proxy *Proxy) GetClientTimeout() time.Duration {
	return proxy.ClientTimeout
}

func (proxy *Proxy) GetCache() *cache.Cache {
	return proxy.Cache
}

func (proxy *Proxy) GetEngine() *forward.Engine {
	return proxy.Engine
}

func (proxy *Proxy) GetBlocklist() *access.HostBlocklist {
	return proxy.Blocklist
}

func (proxy *Proxy) Log(level logging.LogLevel, message string, args ...interface{}) {
	proxy.Logger.Log(level, message, args...)
}

// closeIfBlacklisted closes conn when its remote IP is blacklisted and reports
// whether it did.
func (proxy *Proxy) closeIfBlacklisted(conn net.Conn) bool {
	blacklisted, err := access.IsBlacklisted(conn.RemoteAddr().String(), proxy.Blacklist)
	if err != nil {
		proxy.Log(logging.LogLevelError, "Failed to parse remote address: %v", err)
		blacklisted = true
	}
	if !blacklisted {
		return false
	}

	if err := conn.Close(); err != nil {
		proxy.Log(logging.LogLevelError, "Failed to close connection from blacklisted IP: %v", err)
	}
	return true
}

// Start listens on the configured port (and admin port, if any) and serves
// until ctx is cancelled.
func (proxy *Proxy) Start(ctx context.Context) error {
	proxy.Log(logging.LogLevelInfo, "Starting proxy server on port %d", proxy.Port)

	ln, err := net.Listen("tcp", net.JoinHostPort(proxy.Address, strconv.Itoa(int(proxy.Port))))
	if err != nil {
		proxy.Log(logging.LogLevelError, "Failed to listen on port %d: %v", proxy.Port, err)
		return err
	}

	if proxy.AdminPort != 0 {
		adminServer := admin.NewServer(net.JoinHostPort(proxy.Address, strconv.Itoa(int(proxy.AdminPort))), proxy.Cache, proxy.Blocklist, proxy.Logger.With("admin"))
		go func() {
			proxy.Log(logging.LogLevelInfo, "Admin server listening on %s", adminServer.Addr)
			if err := adminServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				proxy.Log(logging.LogLevelError, "Admin server failed: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := adminServer.Shutdown(shutdownCtx); err != nil {
				proxy.Log(logging.LogLevelError, "Failed to shut down admin server: %v", err)
			}
		}()
	}

	return proxy.Serve(ctx, ln)
}

// Serve accepts connections on ln, handling each in its own goroutine. It
// closes ln when ctx is cancelled and returns once every handler finished.
func (proxy *Proxy) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() {
		if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			proxy.Log(logging.LogLevelError, "Failed to close listener: %v", err)
		}
	})
	defer stop()

	proxy.Log(logging.LogLevelInfo, "Listening on %s", ln.Addr().String())

	var serveErr error
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			if errors.Is(err, net.ErrClosed) {
				serveErr = fmt.Errorf("listener closed: %w", err)
				break
			}
			proxy.Log(logging.LogLevelError, "Failed to accept connection: %v", err)
			continue
		}

		if proxy.closeIfBlacklisted(conn) {
			metrics.RequestErrors.WithLabelValues("blacklisted").Inc()
			proxy.Log(logging.LogLevelWarn, "Closed connection from blacklisted IP: %v", conn.RemoteAddr())
			continue
		}

		proxy.Log(logging.LogLevelDebug, "Accepted new connection from %v", conn.RemoteAddr())

		proxy.handlers.Add(1)
		go func(conn net.Conn) {
			defer proxy.handlers.Done()
			handler.HandleAccept(ctx, conn, proxy)
		}(conn)
	}

	proxy.Log(logging.LogLevelInfo, "Waiting for open connections to finish")
	proxy.handlers.Wait()
	proxy.Cache.Purge()
	proxy.Log(logging.LogLevelInfo, "Proxy server stopped")
	return serveErr
}
