// Package apitest runs an in-process marketplace backend speaking the same
// HTTP contract as the real API. Tests control its clock, its accounts and
// whether credential refresh succeeds.
package apitest

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// RecordedRequest is one request seen by the fake backend
type RecordedRequest struct {
	Method        string
	Path          string
	Authorization string
}

type Server struct {
	mux    *http.ServeMux
	routes []string
	http   *httptest.Server
	logger zerolog.Logger

	tokens   *tokenIssuer
	accounts *accountRepo
	chargers *chargerRepo

	clockLock sync.RWMutex
	offset    time.Duration

	failRefresh        atomic.Bool
	pendingAsForbidden atomic.Bool
	refreshCount       atomic.Int32

	requestsLock sync.Mutex
	requests     []RecordedRequest
}

type Option func(*Server)

// WithTokenTTL sets the lifetime of issued credentials.
func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Server) {
		s.tokens.ttl = ttl
	}
}

// New starts the backend and stops it when t finishes.
func New(t testing.TB, opts ...Option) *Server {
	t.Helper()

	s := &Server{
		mux:      http.NewServeMux(),
		logger:   zerolog.New(zerolog.NewTestWriter(t)).With().Str("component", "apitest").Logger(),
		accounts: newAccountRepo(),
		chargers: newChargerRepo(),
	}
	s.tokens = newTokenIssuer(s.now)
	for _, opt := range opts {
		opt(s)
	}

	s.initRoutes()
	s.http = httptest.NewServer(s)
	t.Cleanup(s.http.Close)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteFunc(pattern string, handler http.HandlerFunc) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// Routes lists the registered patterns.
func (s *Server) Routes() []string {
	return append([]string(nil), s.routes...)
}

// URL is the backend origin, e.g. http://127.0.0.1:41234
func (s *Server) URL() string {
	return s.http.URL
}

// BaseURL is the origin plus the /api prefix.
func (s *Server) BaseURL() string {
	return s.http.URL + APIPrefix
}

// Close stops the backend early, e.g. to provoke network errors.
func (s *Server) Close() {
	s.http.Close()
}

func (s *Server) now() time.Time {
	s.clockLock.RLock()
	defer s.clockLock.RUnlock()
	return time.Now().Add(s.offset)
}

// Advance moves the backend clock forward, expiring credentials issued before.
func (s *Server) Advance(d time.Duration) {
	s.clockLock.Lock()
	defer s.clockLock.Unlock()
	s.offset += d
}

// FailRefresh makes POST /auth/refresh answer 401.
func (s *Server) FailRefresh(fail bool) {
	s.failRefresh.Store(fail)
}

// PendingAsForbidden makes login of a pending host answer 403 instead of a
// 200 carrying the PENDING_HOST role.
func (s *Server) PendingAsForbidden(on bool) {
	s.pendingAsForbidden.Store(on)
}

// RefreshCount is the number of refresh calls received.
func (s *Server) RefreshCount() int {
	return int(s.refreshCount.Load())
}

// Requests returns every request received so far.
func (s *Server) Requests() []RecordedRequest {
	s.requestsLock.Lock()
	defer s.requestsLock.Unlock()
	return append([]RecordedRequest(nil), s.requests...)
}

func (s *Server) record(r *http.Request) {
	s.requestsLock.Lock()
	defer s.requestsLock.Unlock()
	s.requests = append(s.requests, RecordedRequest{
		Method:        r.Method,
		Path:          r.URL.Path,
		Authorization: r.Header.Get("Authorization"),
	})
}
