package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server with the timeouts used across the service.
// writeTimeout must cover the slowest screening, so it tracks the
// connector timeout.
func New(addr string, handler http.Handler, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}
}
