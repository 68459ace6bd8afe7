package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server tuned for the scan path: resolution requests are
// short-lived, so slow clients are cut off early instead of pinning workers.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
