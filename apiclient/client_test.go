package apiclient_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jrsteele09/evcharge-client/apiclient"
	"github.com/jrsteele09/evcharge-client/session"
	"github.com/jrsteele09/evcharge-client/session/memstore"
	"github.com/jrsteele09/evcharge-client/users"
	"github.com/stretchr/testify/require"
)

var testIdentity = users.Identity{Role: users.RoleUser, Email: "a@b.com", FirstName: "A", LastName: "B"}

// recordingRedirector counts unauthenticated transitions
type recordingRedirector struct {
	count atomic.Int32
	mu    sync.Mutex
	path  string
}

func (r *recordingRedirector) Redirect(_ context.Context, path string) {
	r.count.Add(1)
	r.mu.Lock()
	r.path = path
	r.mu.Unlock()
}

func (r *recordingRedirector) lastPath() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path
}

// fakeAPI accepts exactly one valid token and counts refresh calls
type fakeAPI struct {
	mu            sync.Mutex
	validToken    string
	refreshToken  string // Token handed out by /auth/refresh, "" to fail the refresh
	refreshStatus int
	refreshCalls  atomic.Int32
	refreshAuth   []string
	seen          []seenRequest
	retryAlso401  bool
}

type seenRequest struct {
	Method string
	Path   string
	Query  url.Values
	Auth   string
	Body   string
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		f.refreshCalls.Add(1)
		f.mu.Lock()
		f.refreshAuth = append(f.refreshAuth, r.Header.Get("Authorization"))
		token, status := f.refreshToken, f.refreshStatus
		if token != "" && !f.retryAlso401 {
			f.validToken = token
		}
		f.mu.Unlock()

		if status != 0 {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"message":"refresh rejected"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"token": token})
	})
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		auth := r.Header.Get("Authorization")

		f.mu.Lock()
		f.seen = append(f.seen, seenRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.Query(), Auth: auth, Body: string(body)})
		valid := f.validToken
		f.mu.Unlock()

		switch r.URL.Path {
		case "/api/public":
			_, _ = w.Write([]byte(`{"ok":true}`))
			return
		case "/api/bad":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"message":"brand is required"}`))
			return
		case "/api/boom":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"database down","message":"ignored"}`))
			return
		}

		if auth != "Bearer "+valid {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"token expired"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"echo": string(body), "path": r.URL.Path})
	})
	return mux
}

func (f *fakeAPI) requests() []seenRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]seenRequest(nil), f.seen...)
}

type fixture struct {
	api        *fakeAPI
	server     *httptest.Server
	store      *memstore.Store
	redirector *recordingRedirector
	client     *apiclient.Client
}

func setup(t *testing.T, api *fakeAPI, opts ...apiclient.Option) *fixture {
	t.Helper()
	server := httptest.NewServer(api.handler())
	t.Cleanup(server.Close)

	store := memstore.New()
	redirector := &recordingRedirector{}
	opts = append([]apiclient.Option{apiclient.WithRedirector(redirector)}, opts...)

	return &fixture{
		api:        api,
		server:     server,
		store:      store,
		redirector: redirector,
		client:     apiclient.New(server.URL+"/api", store, opts...),
	}
}

func (f *fixture) login(t *testing.T, token string) {
	t.Helper()
	require.NoError(t, f.store.Save(context.Background(), session.Session{Token: token, Identity: testIdentity}))
}

func TestDispatch_AttachesBearer(t *testing.T) {
	f := setup(t, &fakeAPI{validToken: "good"})
	f.login(t, "good")

	resp, err := f.client.Get(context.Background(), "/chargers", apiclient.WithQuery(url.Values{"brand": {"Tesla"}}))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	reqs := f.api.requests()
	require.Len(t, reqs, 1)
	require.Equal(t, "Bearer good", reqs[0].Auth)
	require.Equal(t, "/api/chargers", reqs[0].Path)
	require.Equal(t, "Tesla", reqs[0].Query.Get("brand"))
}

func TestDispatch_NoCredential(t *testing.T) {
	f := setup(t, &fakeAPI{validToken: "good"})

	resp, err := f.client.Get(context.Background(), "/public")
	require.NoError(t, err)
	require.JSONEq(t, `{"ok":true}`, string(resp.Body))

	reqs := f.api.requests()
	require.Len(t, reqs, 1)
	require.Empty(t, reqs[0].Auth)
}

func TestDispatch_NoCredential401IsNotRefreshed(t *testing.T) {
	f := setup(t, &fakeAPI{validToken: "good", refreshToken: "fresh"})

	_, err := f.client.Get(context.Background(), "/chargers")
	require.ErrorIs(t, err, apiclient.ErrUnauthorized)
	require.NotErrorIs(t, err, apiclient.ErrAuthExpired)
	require.Zero(t, f.api.refreshCalls.Load())
	require.Zero(t, f.redirector.count.Load())
}

func TestDispatch_RefreshAndRetry(t *testing.T) {
	f := setup(t, &fakeAPI{validToken: "good", refreshToken: "fresh"})
	f.login(t, "stale")

	resp, err := f.client.Post(context.Background(), "/chargers", map[string]string{"name": "Depot"})
	require.NoError(t, err)

	var out map[string]string
	require.NoError(t, resp.Decode(&out))
	require.JSONEq(t, `{"name":"Depot"}`, out["echo"])

	require.EqualValues(t, 1, f.api.refreshCalls.Load())
	require.Equal(t, []string{"Bearer stale"}, f.api.refreshAuth)

	reqs := f.api.requests()
	require.Len(t, reqs, 2)
	require.Equal(t, "Bearer stale", reqs[0].Auth)
	require.Equal(t, "Bearer fresh", reqs[1].Auth)
	require.Equal(t, reqs[0].Body, reqs[1].Body, "retry replays the same body")

	stored, err := f.store.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "fresh", stored.Token)
	require.Equal(t, testIdentity, stored.Identity)
	require.Zero(t, f.redirector.count.Load())
}

func TestDispatch_RefreshFailureLogsOut(t *testing.T) {
	tests := []struct {
		name string
		api  *fakeAPI
	}{
		{name: "refresh rejected", api: &fakeAPI{validToken: "good", refreshStatus: http.StatusUnauthorized}},
		{name: "refresh without token", api: &fakeAPI{validToken: "good"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, tt.api)
			f.login(t, "stale")

			_, err := f.client.Get(context.Background(), "/profile")
			require.Error(t, err)
			require.ErrorIs(t, err, apiclient.ErrAuthExpired)

			var httpErr *apiclient.HTTPError
			require.True(t, errors.As(err, &httpErr))
			require.Equal(t, http.StatusUnauthorized, httpErr.StatusCode)
			require.Equal(t, "token expired", httpErr.Message)
			require.Equal(t, "Your session has expired. Please log in again.", apiclient.UserMessage(err, "fallback"))

			require.EqualValues(t, 1, f.api.refreshCalls.Load())
			require.EqualValues(t, 1, f.redirector.count.Load())
			require.Equal(t, apiclient.DefaultLoginPath, f.redirector.lastPath())

			token, err := f.store.Token(context.Background())
			require.NoError(t, err)
			require.Empty(t, token)
			_, err = f.store.Load(context.Background())
			require.ErrorIs(t, err, session.ErrNoSession)

			require.Len(t, f.api.requests(), 1, "no retry after a failed refresh")
		})
	}
}

func TestDispatch_RetriesAtMostOnce(t *testing.T) {
	f := setup(t, &fakeAPI{validToken: "good", refreshToken: "fresh", retryAlso401: true})
	f.login(t, "stale")

	_, err := f.client.Get(context.Background(), "/profile")
	require.ErrorIs(t, err, apiclient.ErrUnauthorized)
	require.NotErrorIs(t, err, apiclient.ErrAuthExpired)

	require.EqualValues(t, 1, f.api.refreshCalls.Load())
	require.Len(t, f.api.requests(), 2)
	require.Zero(t, f.redirector.count.Load())
}

func TestDispatch_WithoutRefresh(t *testing.T) {
	f := setup(t, &fakeAPI{validToken: "good", refreshToken: "fresh"})
	f.login(t, "stale")

	_, err := f.client.Post(context.Background(), "/auth/login", map[string]string{"email": "a@b.com"}, apiclient.WithoutRefresh())
	require.ErrorIs(t, err, apiclient.ErrUnauthorized)
	require.Zero(t, f.api.refreshCalls.Load())

	token, err := f.store.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "stale", token)
}

type failingTransport struct {
	calls atomic.Int32
}

func (ft *failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	ft.calls.Add(1)
	return nil, errors.New("dial tcp: connection refused")
}

func TestDispatch_NetworkErrorNeverRefreshes(t *testing.T) {
	transport := &failingTransport{}
	store := memstore.New()
	require.NoError(t, store.Save(context.Background(), session.Session{Token: "stale", Identity: testIdentity}))
	redirector := &recordingRedirector{}

	client := apiclient.New("http://api.invalid/api", store,
		apiclient.WithHTTPClient(&http.Client{Transport: transport}),
		apiclient.WithRedirector(redirector))

	_, err := client.Get(context.Background(), "/chargers")
	require.ErrorIs(t, err, apiclient.ErrNetwork)

	var netErr *apiclient.NetworkError
	require.True(t, errors.As(err, &netErr))
	require.Equal(t, "http://api.invalid/api/chargers", netErr.URL)

	require.EqualValues(t, 1, transport.calls.Load(), "only the original call, no refresh")
	require.Zero(t, redirector.count.Load())

	token, err := store.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "stale", token)
}

func TestDispatch_ValidCredentialIsIdempotent(t *testing.T) {
	f := setup(t, &fakeAPI{validToken: "good", refreshToken: "fresh"})
	f.login(t, "good")

	for i := 0; i < 2; i++ {
		_, err := f.client.Get(context.Background(), "/chargers")
		require.NoError(t, err)
	}

	require.Zero(t, f.api.refreshCalls.Load())
	stored, err := f.store.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "good", stored.Token)
}

func TestDispatch_ErrorClassification(t *testing.T) {
	f := setup(t, &fakeAPI{validToken: "good"})

	t.Run("validation", func(t *testing.T) {
		_, err := f.client.Get(context.Background(), "/bad")
		require.ErrorIs(t, err, apiclient.ErrValidation)
		require.Equal(t, "brand is required", apiclient.ServerMessage(err))
		require.Equal(t, "brand is required", apiclient.UserMessage(err, "fallback"))
	})

	t.Run("server", func(t *testing.T) {
		_, err := f.client.Get(context.Background(), "/boom")
		require.ErrorIs(t, err, apiclient.ErrServer)
		require.NotErrorIs(t, err, apiclient.ErrValidation)
		require.Equal(t, "database down", apiclient.ServerMessage(err))
	})

	t.Run("fallback message", func(t *testing.T) {
		require.Equal(t, "fallback", apiclient.UserMessage(errors.New("x"), "fallback"))
	})
}

// gatedAPI holds every request carrying the stale token until n have arrived,
// so all callers see a 401 before any refresh completes.
func gatedAPI(n int, refreshCalls *atomic.Int32) http.Handler {
	var arrived sync.WaitGroup
	arrived.Add(n)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		_, _ = w.Write([]byte(`{"token":"fresh"}`))
	})
	mux.HandleFunc("/api/chargers", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer stale" {
			arrived.Done()
			arrived.Wait()
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	})
	return mux
}

func TestDispatch_ConcurrentRefresh(t *testing.T) {
	const callers = 5

	tests := []struct {
		name        string
		coalesce    bool
		wantRefresh int32
	}{
		{name: "coalesced", coalesce: true, wantRefresh: 1},
		{name: "independent", coalesce: false, wantRefresh: callers},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var refreshCalls atomic.Int32
			server := httptest.NewServer(gatedAPI(callers, &refreshCalls))
			defer server.Close()

			store := memstore.New()
			require.NoError(t, store.Save(context.Background(), session.Session{Token: "stale", Identity: testIdentity}))
			client := apiclient.New(server.URL+"/api", store, apiclient.WithRefreshCoalescing(tt.coalesce))

			var wg sync.WaitGroup
			errs := make(chan error, callers)
			for i := 0; i < callers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := client.Get(context.Background(), "/chargers")
					errs <- err
				}()
			}
			wg.Wait()
			close(errs)

			for err := range errs {
				require.NoError(t, err)
			}
			require.Equal(t, tt.wantRefresh, refreshCalls.Load())

			token, err := store.Token(context.Background())
			require.NoError(t, err)
			require.Equal(t, "fresh", token)
		})
	}
}

func TestNewRequest_Bodies(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		req, err := apiclient.NewRequest("post", "/auth/login", map[string]string{"email": "a@b.com"})
		require.NoError(t, err)
		require.Equal(t, http.MethodPost, req.Method)
		require.Equal(t, "application/json", req.ContentType)
		require.JSONEq(t, `{"email":"a@b.com"}`, string(req.Body))
	})

	t.Run("raw", func(t *testing.T) {
		req, err := apiclient.NewRequest(http.MethodPut, "/chargers/1", apiclient.RawBody{Data: []byte("--x--"), ContentType: "multipart/form-data; boundary=x"})
		require.NoError(t, err)
		require.Equal(t, "multipart/form-data; boundary=x", req.ContentType)
		require.Equal(t, "--x--", string(req.Body))
	})

	t.Run("options", func(t *testing.T) {
		req, err := apiclient.NewRequest(http.MethodGet, "/chargers", nil,
			apiclient.WithHeader("X-Trace", "1"),
			apiclient.WithContentType("text/plain"),
			apiclient.WithoutRefresh())
		require.NoError(t, err)
		require.Nil(t, req.Body)
		require.Equal(t, "1", req.Header.Get("X-Trace"))
		require.Equal(t, "text/plain", req.ContentType)
		require.True(t, req.NoRefresh)
	})
}

// heldRefreshAPI parks the refresh exchange until release is closed. Only
// "fresh" is accepted on /api/chargers.
type heldRefreshAPI struct {
	refreshCalls atomic.Int32
	started      chan struct{}
	release      chan struct{}
	rejected     chan struct{}
	releaseOnce  sync.Once
}

func newHeldRefreshAPI() *heldRefreshAPI {
	return &heldRefreshAPI{
		started:  make(chan struct{}, 4),
		release:  make(chan struct{}),
		rejected: make(chan struct{}, 4),
	}
}

func (h *heldRefreshAPI) open() {
	h.releaseOnce.Do(func() { close(h.release) })
}

func (h *heldRefreshAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		h.refreshCalls.Add(1)
		h.started <- struct{}{}
		<-h.release
		_, _ = w.Write([]byte(`{"token":"fresh"}`))
	})
	mux.HandleFunc("/api/chargers", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"token expired"}`))
			h.rejected <- struct{}{}
			return
		}
		_, _ = w.Write([]byte(`[]`))
	})
	return mux
}

func heldSetup(t *testing.T, opts ...apiclient.Option) (*heldRefreshAPI, *fixture) {
	t.Helper()
	api := newHeldRefreshAPI()
	server := httptest.NewServer(api.handler())
	t.Cleanup(server.Close)
	t.Cleanup(api.open)

	store := memstore.New()
	redirector := &recordingRedirector{}
	opts = append([]apiclient.Option{apiclient.WithRedirector(redirector)}, opts...)
	f := &fixture{
		server:     server,
		store:      store,
		redirector: redirector,
		client:     apiclient.New(server.URL+"/api", store, opts...),
	}
	f.login(t, "stale")
	return api, f
}

func TestDispatch_CancelledCallerLeavesSessionAlone(t *testing.T) {
	tests := []struct {
		name     string
		coalesce bool
	}{
		{name: "coalesced", coalesce: true},
		{name: "independent", coalesce: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api, f := heldSetup(t, apiclient.WithRefreshCoalescing(tt.coalesce))

			ctx, cancel := context.WithCancel(context.Background())
			errs := make(chan error, 1)
			go func() {
				_, err := f.client.Get(ctx, "/chargers")
				errs <- err
			}()

			<-api.started
			cancel()
			err := <-errs
			require.ErrorIs(t, err, context.Canceled)
			require.NotErrorIs(t, err, apiclient.ErrAuthExpired)

			require.Zero(t, f.redirector.count.Load())
			stored, err := f.store.Load(context.Background())
			require.NoError(t, err)
			require.Equal(t, "stale", stored.Token)
		})
	}
}

func TestDispatch_CancelledLeaderDoesNotFailFollowers(t *testing.T) {
	api, f := heldSetup(t)

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := f.client.Get(leaderCtx, "/chargers")
		leaderErr <- err
	}()
	<-api.rejected
	<-api.started

	followerErr := make(chan error, 1)
	go func() {
		_, err := f.client.Get(context.Background(), "/chargers")
		followerErr <- err
	}()
	<-api.rejected

	cancelLeader()
	require.ErrorIs(t, <-leaderErr, context.Canceled)

	api.open()
	require.NoError(t, <-followerErr)

	require.EqualValues(t, 1, api.refreshCalls.Load())
	require.Zero(t, f.redirector.count.Load())
	token, err := f.store.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "fresh", token)
}

func TestDispatch_SessionChangedDuringRefresh(t *testing.T) {
	other := users.Identity{Role: users.RoleAdmin, Email: "admin@example.com"}

	t.Run("logout stays logged out", func(t *testing.T) {
		api, f := heldSetup(t)

		errs := make(chan error, 1)
		go func() {
			_, err := f.client.Get(context.Background(), "/chargers")
			errs <- err
		}()

		<-api.started
		require.NoError(t, f.store.Clear(context.Background()))
		api.open()

		err := <-errs
		require.ErrorIs(t, err, apiclient.ErrAuthExpired)
		require.ErrorIs(t, err, apiclient.ErrSessionEnded)
		require.Zero(t, f.redirector.count.Load())

		token, err := f.store.Token(context.Background())
		require.NoError(t, err)
		require.Empty(t, token)
		_, err = f.store.Load(context.Background())
		require.ErrorIs(t, err, session.ErrNoSession)
	})

	t.Run("new login is kept", func(t *testing.T) {
		api, f := heldSetup(t)

		errs := make(chan error, 1)
		go func() {
			_, err := f.client.Get(context.Background(), "/chargers")
			errs <- err
		}()

		<-api.started
		require.NoError(t, f.store.Save(context.Background(), session.Session{Token: "newer", Identity: other}))
		api.open()

		require.NoError(t, <-errs)
		require.Zero(t, f.redirector.count.Load())

		stored, err := f.store.Load(context.Background())
		require.NoError(t, err)
		require.Equal(t, "newer", stored.Token)
		require.Equal(t, other, stored.Identity)
	})
}
