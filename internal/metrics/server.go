package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes /metrics on its own listener, separate from the public API.
// Start runs it in a goroutine; errors other than a clean close surface on
// the returned channel.
type Server struct {
	srv *http.Server
}

// NewServer builds the scrape endpoint on the given port.
func NewServer(port string) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &Server{srv: &http.Server{Addr: ":" + port, Handler: mux}}
}

// Start begins serving in the background.
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown stops the listener.
func (s *Server) Shutdown() error {
	return s.srv.Close()
}
