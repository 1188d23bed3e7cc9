// Package httpapi serves the three downstream endpoints named in the
// spec: the static GTFS bundle, the realtime feed bytes, and a version
// string, plus CORS preflight. Grounded on the teacher's manager.go
// lifecycle (a bundle is either present or it isn't -- the teacher's
// own Manager.Static()/Manager.Realtime() return an error when nothing
// has been built yet, which maps directly onto this package's 404
// behavior before the first successful build).
package httpapi

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/trinityinblue/kia-live/internal/feed"
)

// BundleSource is the out-of-scope static-bundle builder's interface
// into this package: it hands back the current zip bytes and a
// version string, or ok=false before the first successful build.
type BundleSource interface {
	Bytes() (data []byte, ok bool)
	Version() (version string, ok bool)
}

// FeedSource is the subset of feed.Publisher the HTTP surface needs.
type FeedSource interface {
	Bytes() ([]byte, error)
}

var _ FeedSource = (*feed.Publisher)(nil)

// Server serves the downstream HTTP surface.
type Server struct {
	bind   string
	port   int
	feed   FeedSource
	bundle BundleSource
	srv    *http.Server
}

func New(bind string, port int, feedSource FeedSource, bundle BundleSource) *Server {
	return &Server{bind: bind, port: port, feed: feedSource, bundle: bundle}
}

// Start builds the mux and blocks serving HTTP until the server is
// shut down, returning http.ErrServerClosed on a clean Shutdown.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/gtfs.zip", s.handleStaticBundle)
	mux.HandleFunc("/gtfs-rt.proto", s.handleRealtimeFeed)
	mux.HandleFunc("/gtfs-version", s.handleVersion)

	s.srv = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.bind, s.port),
		Handler:      s.withCORS(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: requestTimeout,
	}

	log.Printf("httpapi: listening on %s", s.srv.Addr)
	return s.srv.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// withCORS answers every OPTIONS request as a CORS preflight and adds
// Access-Control-Allow-Origin: * to every response, per §6.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET,OPTIONS")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStaticBundle(w http.ResponseWriter, r *http.Request) {
	data, ok := s.bundle.Bytes()
	if !ok {
		http.Error(w, "static bundle not built yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="gtfs.zip"`)
	if _, err := w.Write(data); err != nil {
		log.Printf("httpapi: writing gtfs.zip response: %v", err)
	}
}

func (s *Server) handleRealtimeFeed(w http.ResponseWriter, r *http.Request) {
	data, err := s.feed.Bytes()
	if err != nil {
		log.Printf("httpapi: serializing realtime feed: %v", err)
		http.Error(w, "failed to serialize feed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/x-protobuf")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(data); err != nil {
		log.Printf("httpapi: writing gtfs-rt.proto response: %v", err)
	}
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	version, ok := s.bundle.Version()
	if !ok {
		http.Error(w, "no bundle version available yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"version":%q}`, version)
}

// requestTimeout bounds how long a single handler may run before the
// surrounding http.Server's write deadline would otherwise be hit.
const requestTimeout = 30 * time.Second
