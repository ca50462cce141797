package structs

import (
	"time"

	"httpProxy/internal/access"
	"httpProxy/internal/cache"
	"httpProxy/internal/forward"
	"httpProxy/internal/logging"
)

// ProxyHandler is what a connection handler needs from the running proxy.
type ProxyHandler interface {
	Log(level logging.LogLevel, message string, args ...interface{})
	IsCachingActive() bool
	GetClientTimeout() time.Duration
	GetCache() *cache.Cache
	GetEngine() *forward.Engine
	GetBlocklist() *access.HostBlocklist
}
