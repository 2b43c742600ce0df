package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"

	"ordertrack/console/internal/backend"
	"ordertrack/console/internal/guard"
	"ordertrack/console/internal/metrics"
	"ordertrack/console/internal/modules"
	"ordertrack/console/internal/routes"
	"ordertrack/console/internal/session"
	"ordertrack/console/internal/views"
)

var testNow = time.Date(2026, 2, 16, 12, 0, 0, 0, time.UTC)

var fakeUsers = map[string]backend.User{
	"tok-admin": {ID: 1, Username: "admin", IsAdmin: true},
	"tok-user":  {ID: 2, Username: "alice"},
}

// fakeAPI stands in for the order-tracking backend.
type fakeAPI struct {
	mu        sync.Mutex
	setupDone bool
	revoked   map[string]bool
	modules   []backend.ModuleState
	meCalls   int
}

func newFakeAPI() *fakeAPI {
	configured := false
	desc := "Reads orders from **your own** IMAP inbox."
	return &fakeAPI{
		setupDone: true,
		revoked:   map[string]bool{},
		modules: []backend.ModuleState{
			{ModuleKey: "llm", Enabled: true},
			{ModuleKey: "email-user", Enabled: true, Description: &desc},
			{ModuleKey: "email-global", Enabled: false, Configured: &configured},
			{ModuleKey: "notify-email", Enabled: true},
		},
	}
}

func (f *fakeAPI) revoke(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked[token] = true
}

func (f *fakeAPI) user(r *http.Request) (backend.User, bool) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.revoked[token] {
		return backend.User{}, false
	}
	u, ok := fakeUsers[token]
	return u, ok
}

func (f *fakeAPI) authed(next func(http.ResponseWriter, *http.Request, backend.User)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, ok := f.user(r)
		if !ok {
			apiDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		next(w, r, u)
	}
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var creds backend.Credentials
		_ = json.NewDecoder(r.Body).Decode(&creds)
		switch {
		case creds.Username == "admin" && creds.Password == "pw":
			apiJSON(w, backend.TokenResponse{AccessToken: "tok-admin", TokenType: "bearer"})
		case creds.Username == "alice" && creds.Password == "pw":
			apiJSON(w, backend.TokenResponse{AccessToken: "tok-user", TokenType: "bearer"})
		default:
			apiDetail(w, http.StatusUnauthorized, "Incorrect username or password")
		}
	})
	mux.HandleFunc("POST /api/v1/auth/setup", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.setupDone {
			apiDetail(w, http.StatusBadRequest, "Setup already completed")
			return
		}
		f.setupDone = true
		apiJSON(w, backend.TokenResponse{AccessToken: "tok-admin", TokenType: "bearer"})
	})
	mux.HandleFunc("GET /api/v1/auth/status", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		apiJSON(w, backend.SetupStatus{SetupCompleted: f.setupDone})
	})
	mux.HandleFunc("GET /api/v1/auth/me", f.authed(func(w http.ResponseWriter, r *http.Request, u backend.User) {
		f.mu.Lock()
		f.meCalls++
		f.mu.Unlock()
		apiJSON(w, u)
	}))
	mux.HandleFunc("GET /api/v1/modules", f.authed(func(w http.ResponseWriter, r *http.Request, _ backend.User) {
		f.mu.Lock()
		defer f.mu.Unlock()
		apiJSON(w, f.modules)
	}))
	mux.HandleFunc("PUT /api/v1/modules/{key}", f.authed(func(w http.ResponseWriter, r *http.Request, u backend.User) {
		if !u.IsAdmin {
			apiDetail(w, http.StatusForbidden, "Admin access required")
			return
		}
		var body struct {
			Enabled bool `json:"enabled"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		state := backend.ModuleState{ModuleKey: r.PathValue("key"), Enabled: body.Enabled}
		f.mu.Lock()
		for i := range f.modules {
			if f.modules[i].ModuleKey == state.ModuleKey {
				f.modules[i].Enabled = body.Enabled
			}
		}
		f.mu.Unlock()
		apiJSON(w, state)
	}))
	mux.HandleFunc("GET /api/v1/queue/stats", f.authed(func(w http.ResponseWriter, r *http.Request, u backend.User) {
		if !u.IsAdmin {
			apiDetail(w, http.StatusForbidden, "Admin access required")
			return
		}
		apiJSON(w, backend.QueueStats{Queued: 1, Completed: 5, Failed: 2})
	}))
	mux.HandleFunc("GET /api/v1/orders", f.authed(func(w http.ResponseWriter, r *http.Request, _ backend.User) {
		status := r.URL.Query().Get("status")
		var out []backend.Order
		for _, o := range fakeOrders() {
			if status == "" || o.Status == status {
				out = append(out, o)
			}
		}
		apiJSON(w, out)
	}))
	mux.HandleFunc("GET /api/v1/orders/{id}", f.authed(func(w http.ResponseWriter, r *http.Request, _ backend.User) {
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		for _, o := range fakeOrders() {
			if o.ID == id {
				desc := "Left the warehouse"
				apiJSON(w, backend.OrderDetail{Order: o, Events: []backend.OrderEvent{
					{ID: 1, OrderID: id, EventType: "shipped", Description: &desc, Timestamp: testNow.Add(-2 * time.Hour)},
				}})
				return
			}
		}
		apiDetail(w, http.StatusNotFound, "Order not found")
	}))
	mux.HandleFunc("GET /api/v1/scan-history", f.authed(func(w http.ResponseWriter, r *http.Request, _ backend.User) {
		orderID := int64(7)
		apiJSON(w, backend.EmailScanList{
			Items: []backend.EmailScan{
				{ID: 30, Subject: "Your order has shipped", Sender: "shop@example.com", IsRelevant: true, OrderID: &orderID, CreatedAt: testNow.Add(-5 * time.Minute)},
				{ID: 29, Subject: "Newsletter", Sender: "news@example.com", CreatedAt: testNow.Add(-3 * time.Hour)},
			},
			Total:   12,
			Page:    1,
			PerPage: 5,
		})
	}))
	return mux
}

func fakeOrders() []backend.Order {
	str := func(s string) *string { return &s }
	amount := 12.99
	return []backend.Order{
		{ID: 7, OrderNumber: str("A-100"), VendorName: str("Acme"), Status: "shipped", OrderDate: str("2026-02-10"), TotalAmount: &amount, UpdatedAt: testNow.Add(-2 * time.Hour)},
		{ID: 8, VendorDomain: str("shop.example"), Status: "ordered", UpdatedAt: testNow.Add(-30 * time.Minute)},
		{ID: 9, OrderNumber: str("C-300"), Status: "shipped", UpdatedAt: testNow.Add(-48 * time.Hour)},
	}
}

func apiJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func apiDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}

type failingChecker struct{}

func (failingChecker) Ping(context.Context) error { return errors.New("connection refused") }

type harness struct {
	api     *fakeAPI
	service *Service
	server  *httptest.Server
	client  *http.Client
	redis   *session.RedisStore
}

type harnessOption func(*Deps)

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	api := newFakeAPI()
	backendServer := httptest.NewServer(api.handler())
	t.Cleanup(backendServer.Close)

	mr := miniredis.RunT(t)
	redisStore, err := session.NewRedisStore("redis://"+mr.Addr(), time.Hour)
	if err != nil {
		t.Fatalf("redis store: %v", err)
	}
	t.Cleanup(func() { _ = redisStore.Close() })

	reg, err := modules.NewRegistry()
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	table, err := routes.Compose(reg)
	if err != nil {
		t.Fatalf("routes: %v", err)
	}
	g, err := guard.New(table)
	if err != nil {
		t.Fatalf("guard: %v", err)
	}

	client := backend.New(backendServer.URL, backend.WithTimeout(5*time.Second))
	deps := Deps{
		Registry: reg,
		Table:    table,
		Guard:    g,
		Sessions: session.NewManager(client, redisStore, session.NewSealer("state-secret")),
		Views:    views.NewResolver(views.NewFSLoader(viewBundle(table))),
		Backend:  client,
		Checks:   map[string]Checker{"redis": redisStore},
	}
	for _, opt := range opts {
		opt(&deps)
	}
	svc, err := NewService(deps)
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	svc.now = func() time.Time { return testNow }

	promReg := prometheus.NewRegistry()
	if err := metrics.Register(promReg); err != nil {
		t.Fatalf("metrics: %v", err)
	}
	console := httptest.NewServer(NewHTTPServer(svc, "*", []byte("cookie-secret"), WithMetrics(metrics.Handler(promReg))).Handler())
	t.Cleanup(console.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	httpClient := console.Client()
	httpClient.Jar = jar

	return &harness{api: api, service: svc, server: console, client: httpClient, redis: redisStore}
}

// viewBundle serves one small HTML file per view the table references.
func viewBundle(table *routes.Table) fstest.MapFS {
	bundle := fstest.MapFS{}
	for _, e := range table.Entries() {
		for _, ref := range append([]views.Ref{e.View}, e.Layouts...) {
			if ref.IsZero() {
				continue
			}
			bundle[ref.Name+".html"] = &fstest.MapFile{Data: []byte("<div id=\"" + ref.Name + "\"></div>")}
		}
	}
	return bundle
}

type response struct {
	status int
	header http.Header
	body   map[string]any
	raw    []byte
}

func (h *harness) do(t *testing.T, method, path string, body any, headers ...string) response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, h.server.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	res, err := h.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	out := response{status: res.StatusCode, header: res.Header, raw: raw}
	if strings.HasPrefix(res.Header.Get("Content-Type"), "application/json") && len(raw) > 0 {
		if err := json.Unmarshal(raw, &out.body); err != nil {
			t.Fatalf("decode %s %s: %v (%s)", method, path, err, raw)
		}
	}
	return out
}

func (h *harness) login(t *testing.T, username string) {
	t.Helper()
	res := h.do(t, http.MethodPost, "/api/session/login", map[string]string{"username": username, "password": "pw"})
	if res.status != http.StatusOK {
		t.Fatalf("login %s: status %d (%s)", username, res.status, res.raw)
	}
}

// path walks nested JSON objects and arrays by key or index.
func path(v any, keys ...string) any {
	for _, key := range keys {
		switch node := v.(type) {
		case map[string]any:
			v = node[key]
		case []any:
			i, err := strconv.Atoi(key)
			if err != nil || i >= len(node) {
				return nil
			}
			v = node[i]
		default:
			return nil
		}
	}
	return v
}

func labels(items any, key string) []string {
	list, _ := items.([]any)
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := path(item, key).(string); ok {
			out = append(out, s)
		}
	}
	return out
}
