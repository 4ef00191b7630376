// Package server exposes configured cache sources over HTTP.
package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/gwillem/filecache"
	"github.com/gwillem/filecache/internal/config"
	"github.com/gwillem/filecache/internal/metrics"
)

// Server serves sources from a filecache.Cache.
type Server struct {
	cache   *filecache.Cache
	sources []config.Source
	logger  logrus.FieldLogger
	router  *chi.Mux
	metrics *metrics.Web

	// one lock per cache file, sources sharing a path share it
	locks map[string]*sync.Mutex
}

// New builds the router. Sources are served under /sources/{name}, reg is
// exported on /metrics and receives the server's own collectors.
func New(cache *filecache.Cache, sources []config.Source, logger logrus.FieldLogger, reg *prometheus.Registry) *Server {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	s := &Server{
		cache:   cache,
		sources: sources,
		logger:  logger,
		router:  chi.NewRouter(),
		metrics: metrics.NewWeb(reg),
		locks:   make(map[string]*sync.Mutex, len(sources)),
	}
	for _, src := range sources {
		path := cache.Path(src.Path)
		if s.locks[path] == nil {
			s.locks[path] = &sync.Mutex{}
		}
	}
	s.router.Use(middleware.RealIP)
	s.router.Use(s.logRequests)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/health", s.handleHealth)
	s.router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	s.router.Get("/sources", s.handleListSources)
	s.router.Get("/sources/{name}", s.handleSource)

	return s
}

// Router exposes the root HTTP handler.
func (s *Server) Router() http.Handler { return s.router }

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.HTTPResponseStatuses.WithLabelValues(strconv.Itoa(status)).Inc()

		s.logger.WithFields(logrus.Fields{
			"request_id": uuid.NewString(),
			"method":     r.Method,
			"path":       r.URL.Path,
			"remote":     r.RemoteAddr,
			"status":     status,
			"bytes":      ww.BytesWritten(),
			"duration":   time.Since(start).String(),
		}).Info("request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListSources(w http.ResponseWriter, _ *http.Request) {
	names := make([]string, 0, len(s.sources))
	for _, src := range s.sources {
		names = append(names, src.Name)
	}
	writeJSON(w, http.StatusOK, map[string][]string{"sources": names})
}

func (s *Server) handleSource(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var (
		src   config.Source
		found bool
	)
	for _, candidate := range s.sources {
		if candidate.Name == name {
			src, found = candidate, true
			break
		}
	}
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown source"})
		return
	}

	force := src.Force
	if v := r.URL.Query().Get("force"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil && parsed {
			force = true
		}
	}

	// the cache itself does no locking
	lock := s.locks[s.cache.Path(src.Path)]
	lock.Lock()
	content := s.cache.ReadOrUpdateFile(r.Context(), src.Path, src.URL, src.MaxAge.DurationValue(), force)
	lock.Unlock()
	if content == "" {
		// Empty content and a failed refresh look the same
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "source unavailable"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(content))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
