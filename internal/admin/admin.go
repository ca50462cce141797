// Package admin serves the proxy's management endpoints: health, Prometheus
// metrics, a view of the cache slots and the blocked origin hosts.
package admin

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"httpProxy/internal/access"
	"httpProxy/internal/cache"
	cache_structs "httpProxy/internal/cache/structs"
	"httpProxy/internal/logging"
)

// CacheStatus is the body of GET /cache.
type CacheStatus struct {
	Entries       int                      `json:"entries"`
	Capacity      int                      `json:"capacity"`
	SizeBytes     int                      `json:"size_bytes"`
	MaxObjectSize int                      `json:"max_object_size"`
	Slots         []cache_structs.SlotInfo `json:"slots"`
}

// BlockedHosts is the body of GET /blocked.
type BlockedHosts struct {
	Hosts []string `json:"hosts"`
}

type api struct {
	cache     *cache.Cache
	blocklist *access.HostBlocklist
	logger    logging.Logger
}

func NewRouter(c *cache.Cache, blocklist *access.HostBlocklist, logger logging.Logger) chi.Router {
	if blocklist == nil {
		blocklist = access.NewHostBlocklist(nil)
	}
	a := &api{cache: c, blocklist: blocklist, logger: logger}

	r := chi.NewRouter()
	r.NotFound(a.notFound)
	r.MethodNotAllowed(a.methodNotAllowed)

	r.Get("/healthz", a.health)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/cache", a.listCache)
	r.Delete("/cache", a.purgeCache)
	r.Get("/blocked", a.listBlocked)
	r.Put("/blocked/{host}", a.blockHost)
	r.Delete("/blocked/{host}", a.unblockHost)

	return r
}

func NewServer(addr string, c *cache.Cache, blocklist *access.HostBlocklist, logger logging.Logger) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           NewRouter(c, blocklist, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (a *api) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		a.logger.Log(logging.LogLevelError, "Response writer failed in health: %s", err)
	}
}

func (a *api) listCache(w http.ResponseWriter, r *http.Request) {
	slots := a.cache.Snapshot()
	status := CacheStatus{
		Capacity:      len(slots),
		MaxObjectSize: a.cache.MaxObjectSize(),
		Slots:         slots,
	}
	for _, slot := range slots {
		if slot.Occupied {
			status.Entries++
			status.SizeBytes += slot.Size
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		a.logger.Log(logging.LogLevelError, "Failed to encode cache status: %v", err)
	}
}

func (a *api) purgeCache(w http.ResponseWriter, r *http.Request) {
	a.cache.Purge()
	a.logger.Log(logging.LogLevelInfo, "Cache purged by %s", r.RemoteAddr)
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) listBlocked(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(BlockedHosts{Hosts: a.blocklist.List()}); err != nil {
		a.logger.Log(logging.LogLevelError, "Failed to encode blocked hosts: %v", err)
	}
}

func (a *api) blockHost(w http.ResponseWriter, r *http.Request) {
	host := chi.URLParam(r, "host")
	if !a.blocklist.Block(host) {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	a.logger.Log(logging.LogLevelInfo, "Host %s blocked by %s", host, r.RemoteAddr)
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) unblockHost(w http.ResponseWriter, r *http.Request) {
	host := chi.URLParam(r, "host")
	if !a.blocklist.Unblock(host) {
		a.notFound(w, r)
		return
	}
	a.logger.Log(logging.LogLevelInfo, "Host %s unblocked by %s", host, r.RemoteAddr)
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) notFound(w http.ResponseWriter, r *http.Request) {
	a.logger.Log(logging.LogLevelWarn, "Not Found: %s %s", r.Method, r.URL.Path)
	w.WriteHeader(http.StatusNotFound)
	if _, err := w.Write([]byte("Not Found")); err != nil {
		a.logger.Log(logging.LogLevelError, "Response writer failed in notFound: %s", err)
	}
}

func (a *api) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	a.logger.Log(logging.LogLevelWarn, "Method Not Allowed: %s %s", r.Method, r.URL.Path)
	w.WriteHeader(http.StatusMethodNotAllowed)
	if _, err := w.Write([]byte("Method Not Allowed")); err != nil {
		a.logger.Log(logging.LogLevelError, "Response writer failed in methodNotAllowed: %s", err)
	}
}
