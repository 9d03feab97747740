package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/atharvakonge/papertrade/internal/admin"
	"github.com/atharvakonge/papertrade/internal/auth"
	"github.com/atharvakonge/papertrade/internal/db"
	"github.com/atharvakonge/papertrade/internal/ledger"
	"github.com/atharvakonge/papertrade/internal/market"
	"github.com/atharvakonge/papertrade/internal/metrics"
	"github.com/atharvakonge/papertrade/internal/models"
	"github.com/atharvakonge/papertrade/internal/pricing"
	"github.com/atharvakonge/papertrade/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Monday noon, not a holiday
var tradingTime = time.Date(2024, time.March, 4, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	t        testing.TB
	conn     *sqlx.DB
	repo     *repository.Repository
	auth     *auth.Service
	executor *ledger.Executor
	orders   *OrderProcessor
	hub      *PriceHub
	handler  *Handler
	router   *gin.Engine
}

func newTestEnv(t testing.TB, now time.Time) *testEnv {
	t.Helper()
	cfg := db.TestConfig()

	conn := db.SetupTestDB(t)
	db.SetTestSchedule(t, conn, "09:00", "16:00")
	repo := repository.New(conn)

	clock := func() time.Time { return now }
	gate := market.NewGate(time.UTC, nil)
	m := metrics.New()
	executor := ledger.NewExecutor(repo, gate, ledger.WithClock(clock), ledger.WithMetrics(m))
	orders := NewOrderProcessor(cfg.NumWorkers, executor)
	orders.Start()
	t.Cleanup(orders.Stop)

	hub := NewPriceHub(repo, pricing.NewFeed(cfg.Pricing.Seed, cfg.Pricing.Band), m)
	authSvc := auth.NewService(repo, auth.NewMemoryStore(cfg.Session.TTL), cfg.StartingBalance)

	h := New(Deps{
		Repo:    repo,
		Auth:    authSvc,
		Admin:   admin.NewService(repo),
		Orders:  orders,
		Cash:    executor,
		Feed:    pricing.NewFeed(cfg.Pricing.Seed, cfg.Pricing.Band),
		Gate:    gate,
		Hub:     hub,
		Metrics: m,
		Session: cfg.Session,
		Clock:   clock,
	})
	router := gin.New()
	h.Routes(router)

	return &testEnv{t: t, conn: conn, repo: repo, auth: authSvc, executor: executor, orders: orders, hub: hub, handler: h, router: router}
}

// orderExecutorFunc adapts a function to OrderExecutor.
type orderExecutorFunc func(ctx context.Context, o ledger.Order) (ledger.Receipt, error)

func (f orderExecutorFunc) Execute(ctx context.Context, o ledger.Order) (ledger.Receipt, error) {
	return f(ctx, o)
}

// do sends a request with an optional form body and session cookie.
func (e *testEnv) do(method, path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	e.t.Helper()
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// signup registers a user through the HTTP surface and logs them in.
func (e *testEnv) signup(username string) (*http.Cookie, int64) {
	e.t.Helper()
	w := e.do(http.MethodPost, "/register", url.Values{
		"full_name": {"Test " + username},
		"username":  {username},
		"email":     {username + "@example.com"},
		"password":  {"password1"},
	}, nil)
	if w.Code != http.StatusSeeOther {
		e.t.Fatalf("register %s: status %d body %s", username, w.Code, w.Body.String())
	}
	return e.login(username, "password1")
}

func (e *testEnv) login(username, password string) (*http.Cookie, int64) {
	e.t.Helper()
	w := e.do(http.MethodPost, "/login", url.Values{"username": {username}, "password": {password}}, nil)
	if w.Code != http.StatusSeeOther {
		e.t.Fatalf("login %s: status %d body %s", username, w.Code, w.Body.String())
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == "session_id" {
			u, err := e.repo.GetUserByUsername(context.Background(), username)
			if err != nil {
				e.t.Fatalf("GetUserByUsername failed: %v", err)
			}
			return c, u.ID
		}
	}
	e.t.Fatal("login did not set a session cookie")
	return nil, 0
}

func (e *testEnv) signupAdmin(username string) *http.Cookie {
	e.t.Helper()
	cookie, id := e.signup(username)
	if err := e.repo.SetUserRole(context.Background(), id, models.RoleAdmin); err != nil {
		e.t.Fatalf("SetUserRole failed: %v", err)
	}
	return cookie
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body %q: %v", w.Body.String(), err)
	}
	return body
}

// redirectMessage returns the path and message of a 303 response.
func redirectMessage(t *testing.T, w *httptest.ResponseRecorder) (string, string) {
	t.Helper()
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d: %s", w.Code, w.Body.String())
	}
	loc, err := url.Parse(w.Header().Get("Location"))
	if err != nil {
		t.Fatalf("bad Location header: %v", err)
	}
	return loc.Path, loc.Query().Get("message")
}
