// Command testorigin is a small HTTP origin for trying the proxy by hand:
//
//	go run ./tools/testorigin -port 3000
//	curl -x http://localhost:8080 http://localhost:3000/small
package main

import (
	"flag"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"httpProxy/internal/cache"
	"httpProxy/internal/logging"
)

func loggingHandler(logger logging.Logger, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger.Log(logging.LogLevelInfo, "Received %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
		for key, values := range r.Header {
			for _, value := range values {
				logger.Log(logging.LogLevelDebug, "  %s: %s", key, value)
			}
		}

		next(w, r)
	}
}

func body(size int) http.HandlerFunc {
	payload := strings.Repeat("x", size)
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		_, _ = w.Write([]byte(payload))
	}
}

func main() {
	var port = flag.Int("port", 3000, "listening port")
	var level = flag.String("log-level", "INFO", "DEBUG, INFO, WARN or ERROR")
	flag.Parse()

	logger, err := logging.NewDefaultLogger(logging.Config{Level: logging.LogLevel(*level), Pretty: true})
	if err != nil {
		panic(err)
	}

	r := chi.NewRouter()
	r.Get("/small", loggingHandler(logger, body(512)))
	// The body alone exceeds the largest cacheable object.
	r.Get("/large", loggingHandler(logger, body(cache.MaxObjectSize+1)))
	r.Get("/time", loggingHandler(logger, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(time.Now().Format(time.RFC3339Nano) + "\n"))
	}))
	r.Get("/empty", loggingHandler(logger, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	server := &http.Server{
		Addr:              ":" + strconv.Itoa(*port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Log(logging.LogLevelInfo, "Test origin listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil {
		logger.Log(logging.LogLevelError, "Test origin stopped: %v", err)
	}
}
