// Package mockapi serves an in-memory barangay API for local development
// and tests. It speaks the same envelope and routes as the real service.
package mockapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"

	"github.com/zjrosen/barangay/internal/api"
	"github.com/zjrosen/barangay/internal/domain"
	"github.com/zjrosen/barangay/internal/log"
)

var (
	errDuplicate        = errors.New("resident is already registered as an active official")
	errUnknownResident  = errors.New("resident not found")
	errOfficialNotFound = errors.New("official not found")
)

// Options configures a Server.
type Options struct {
	Token   string        // when set, requests must carry "Authorization: Bearer <token>"
	Latency time.Duration // artificial delay per request
	Seed    bool
}

// Server is the chi-based mock API.
type Server struct {
	store    *Store
	opts     Options
	router   chi.Router
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec

	failChecks atomic.Bool
}

// New builds a Server.
func New(opts Options) *Server {
	s := &Server{
		store:    NewStore(),
		opts:     opts,
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "barangay_mockapi_requests_total",
			Help: "Requests served by the mock barangay API",
		}, []string{"route", "method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "barangay_mockapi_request_duration_seconds",
			Help:    "Latency of mock barangay API requests",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		}, []string{"route"}),
	}
	s.registry.MustRegister(s.requests, s.duration)
	if opts.Seed {
		s.store.Seed()
	}
	s.router = s.routes()
	return s
}

// Store exposes the backing store for seeding in tests.
func (s *Server) Store() *Store { return s.store }

// FailRegistrationChecks makes the registration-check endpoint answer 500.
func (s *Server) FailRegistrationChecks(fail bool) { s.failChecks.Store(fail) }

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.auth)
		if s.opts.Latency > 0 {
			r.Use(s.delay)
		}
		r.Get("/residents", s.handleSearchResidents)
		r.Get("/residents/{id}", s.handleGetResident)
		r.Get("/officials", s.handleListOfficials)
		r.Post("/officials", s.handleCreateOfficial)
		r.Get("/officials/registration-check/{residentId}", s.handleRegistrationCheck)
		r.Get("/officials/{id}", s.handleGetOfficial)
		r.Put("/officials/{id}", s.handleUpdateOfficial)
	})
	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		s.requests.WithLabelValues(route, r.Method, http.StatusText(rec.status)).Inc()
		s.duration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		log.Debug(log.CatMock, "request", "method", r.Method, "route", route, "status", rec.status,
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.Token != "" && r.Header.Get("Authorization") != "Bearer "+s.opts.Token {
			writeFail(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) delay(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(s.opts.Latency):
		case <-r.Context().Done():
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleSearchResidents(w http.ResponseWriter, r *http.Request) {
	writeOK(w, http.StatusOK, s.store.SearchResidents(r.URL.Query().Get("search")))
}

func (s *Server) handleGetResident(w http.ResponseWriter, r *http.Request) {
	res, ok := s.store.Resident(chi.URLParam(r, "id"))
	if !ok {
		writeFail(w, http.StatusNotFound, "Resident not found")
		return
	}
	writeOK(w, http.StatusOK, res)
}

func (s *Server) handleRegistrationCheck(w http.ResponseWriter, r *http.Request) {
	if s.failChecks.Load() {
		writeFail(w, http.StatusInternalServerError, "registration check unavailable")
		return
	}
	writeOK(w, http.StatusOK, s.store.ActiveRegistrations(chi.URLParam(r, "residentId")))
}

func (s *Server) handleListOfficials(w http.ResponseWriter, _ *http.Request) {
	writeOK(w, http.StatusOK, s.store.Officials())
}

func (s *Server) handleGetOfficial(w http.ResponseWriter, r *http.Request) {
	o, ok := s.store.Official(chi.URLParam(r, "id"))
	if !ok {
		writeFail(w, http.StatusNotFound, "Official not found")
		return
	}
	writeOK(w, http.StatusOK, o)
}

func (s *Server) handleCreateOfficial(w http.ResponseWriter, r *http.Request) {
	data, ok := decodeOfficial(w, r)
	if !ok {
		return
	}
	o, err := s.store.CreateOfficial(data)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	log.Info(log.CatMock, "official created", "id", o.ID, "resident", o.ResidentID)
	writeOK(w, http.StatusCreated, o)
}

func (s *Server) handleUpdateOfficial(w http.ResponseWriter, r *http.Request) {
	data, ok := decodeOfficial(w, r)
	if !ok {
		return
	}
	o, err := s.store.UpdateOfficial(chi.URLParam(r, "id"), data)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeOK(w, http.StatusOK, o)
}

func decodeOfficial(w http.ResponseWriter, r *http.Request) (domain.OfficialFormData, bool) {
	var data domain.OfficialFormData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeFail(w, http.StatusBadRequest, "Invalid request body")
		return data, false
	}
	if msg := validateOfficial(data); msg != "" {
		writeFail(w, http.StatusBadRequest, msg)
		return data, false
	}
	return data, true
}

func validateOfficial(d domain.OfficialFormData) string {
	switch {
	case strings.TrimSpace(d.ResidentID) == "":
		return "residentId is required"
	case !lo.Contains(domain.Positions, d.Position):
		return "position must be one of " + strings.Join(domain.Positions, ", ")
	case d.Status != domain.StatusActive && d.Status != domain.StatusInactive:
		return "status must be ACTIVE or INACTIVE"
	case d.TermNumber < 1:
		return "termNumber must be at least 1"
	}
	start, err := time.Parse(domain.DateLayout, d.TermStart)
	if err != nil {
		return "termStart must be a date (YYYY-MM-DD)"
	}
	end, err := time.Parse(domain.DateLayout, d.TermEnd)
	if err != nil {
		return "termEnd must be a date (YYYY-MM-DD)"
	}
	if end.Before(start) {
		return "termEnd must not be before termStart"
	}
	return ""
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errDuplicate):
		writeFail(w, http.StatusConflict, "Resident is already registered as an active official")
	case errors.Is(err, errUnknownResident):
		writeFail(w, http.StatusUnprocessableEntity, "Resident not found")
	case errors.Is(err, errOfficialNotFound):
		writeFail(w, http.StatusNotFound, "Official not found")
	default:
		writeFail(w, http.StatusInternalServerError, "Internal error")
	}
}

func writeOK[T any](w http.ResponseWriter, status int, v T) {
	writeJSON(w, status, api.Ok(v))
}

func writeFail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, api.Fail(msg))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.ErrorErr(log.CatMock, "encode response", err)
	}
}
