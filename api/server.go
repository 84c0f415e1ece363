// Package api serves the known-listings index over HTTP for the curation UI.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/mux"

	"rental-watch/config"
	"rental-watch/metrics"
	"rental-watch/models"
	"rental-watch/services"
	"rental-watch/storage"
	"rental-watch/utils"
)

type Server struct {
	store    storage.Store
	sources  []config.Source
	insights *services.InsightService
	metrics  *metrics.Registry
	logger   *utils.Logger
	user     string
	pass     string
	origin   string
	runStart time.Time
}

// NewServer wires the handlers. An empty user disables the /ping credential check.
func NewServer(store storage.Store, sources []config.Source, insights *services.InsightService, logger *utils.Logger, user, pass string) *Server {
	return &Server{
		store:    store,
		sources:  sources,
		insights: insights,
		logger:   logger,
		user:     user,
		pass:     pass,
		origin:   "*",
	}
}

// WithCORSOrigin sets the origin allowed to call the API from a browser.
func (s *Server) WithCORSOrigin(origin string) *Server {
	if origin != "" {
		s.origin = origin
	}
	return s
}

// WithMetrics exposes m on /metrics.
func (s *Server) WithMetrics(m *metrics.Registry) *Server {
	s.metrics = m
	return s
}

// WithRunStart sets the cut-off used for the "new" count on /insights.
func (s *Server) WithRunStart(t time.Time) *Server {
	s.runStart = t
	return s
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter().UseEncodedPath()
	r.HandleFunc("/ping", s.handlePing).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/listings", s.handleListings).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/listings/{address}", s.handleCurate).Methods(http.MethodPatch, http.MethodOptions)
	r.HandleFunc("/sites", s.handleSites).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/insights", s.handleInsights).Methods(http.MethodGet, http.MethodOptions)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}
	r.Use(mux.CORSMethodMiddleware(r), s.cors)
	return r
}

// cors lets the separately hosted frontend call the API and answers preflights.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.origin)
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Info("[api] Listening on %s", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		s.logger.Info("[api] Stopped")
		return nil
	}
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	if s.user != "" {
		user, pass, ok := r.BasicAuth()
		if !ok || !equal(user, s.user) || !equal(pass, s.pass) {
			w.Header().Set("WWW-Authenticate", `Basic realm="rental-watch"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]bool{"pong": true})
}

func (s *Server) handleListings(w http.ResponseWriter, r *http.Request) {
	all, err := s.store.ListAll(r.Context())
	if err != nil {
		s.fail(w, "list listings", err)
		return
	}
	out := make(map[string]models.KnownListing, len(all))
	for _, l := range all {
		out[l.Address] = l
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCurate(w http.ResponseWriter, r *http.Request) {
	address, err := url.PathUnescape(mux.Vars(r)["address"])
	if err != nil || address == "" {
		http.Error(w, "bad address", http.StatusBadRequest)
		return
	}

	var c models.Curation
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		http.Error(w, "bad curation body: "+err.Error(), http.StatusBadRequest)
		return
	}

	updated, err := s.store.UpdateCuration(r.Context(), address, c)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "listing not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.fail(w, "update curation", err)
		return
	}
	s.logger.Info("[api] Curated %q", address)
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleSites(w http.ResponseWriter, r *http.Request) {
	out := make(map[string]string, len(s.sources))
	for _, src := range s.sources {
		out[src.URL] = src.Name
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	all, err := s.store.ListAll(r.Context())
	if err != nil {
		s.fail(w, "list listings", err)
		return
	}
	writeJSON(w, http.StatusOK, s.insights.Generate(all, s.runStart))
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	s.logger.Error("[api] %s: %v", op, err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
