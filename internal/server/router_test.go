package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"linkforge/internal/analytics"
	"linkforge/internal/controllers"
	"linkforge/internal/jwt"
	"linkforge/internal/metrics"
	"linkforge/internal/middleware"
	"linkforge/internal/models"
	"linkforge/internal/repository"
	"linkforge/internal/service"
	"linkforge/internal/shortcode"
)

const testBaseURL = "https://lnk.test"

func init() {
	gin.SetMode(gin.TestMode)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testApp struct {
	router   *gin.Engine
	store    *repository.MemoryStore
	clock    *testClock
	resolver *service.RedirectResolver
	recorder *analytics.Recorder
	done     chan error
}

// flush waits for pending click increments and stored click events
func (a *testApp) flush(t *testing.T) {
	t.Helper()
	a.resolver.Wait()
	a.recorder.Close()
	if err := <-a.done; err != nil {
		t.Fatalf("recorder Run() error = %v", err)
	}
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	logger := zap.NewNop()
	m := metrics.New(prometheus.NewRegistry())
	store := repository.NewMemoryStore()
	clock := &testClock{now: time.Now().UTC().Truncate(time.Second)}

	recorder := analytics.NewRecorder(store.Clicks(), logger, m, analytics.Options{Now: clock.Now})
	done := make(chan error, 1)
	go func() { done <- recorder.Run(context.Background()) }()
	t.Cleanup(recorder.Close)

	generator := shortcode.NewGenerator(store.URLs(), shortcode.NewSeededSource(3), 0)
	urls := service.NewURLService(store.URLs(), store.Clicks(), generator, nil, logger, m, service.URLOptions{
		BaseURL:           testBaseURL,
		CodeLength:        6,
		DefaultExpiryDays: 7,
		CreateRetries:     3,
		Now:               clock.Now,
	})
	resolver := service.NewRedirectResolver(store.URLs(), recorder, nil, logger, m, clock.Now)

	hash, err := bcrypt.GenerateFromPassword([]byte("letmein"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword() error = %v", err)
	}
	jwtService := jwt.NewJWTService("test-secret", time.Hour)
	auth := service.NewAuthService("admin@example.com", string(hash), jwtService, time.Hour)

	limit := func() *middleware.RateLimiter { return middleware.NewRateLimiter(rate.Inf, 1) }
	router, err := NewRouter(Deps{
		Logger:   logger,
		Metrics:  m,
		JWT:      jwtService,
		Limiters: Limiters{General: limit(), Shorten: limit(), Redirect: limit()},

		Shortener: controllers.NewShortenerController(urls, resolver, logger),
		Analytics: controllers.NewAnalyticsController(urls, logger),
		QRCode:    controllers.NewQRCodeController(urls, logger),
		Admin:     controllers.NewAdminController(auth, urls, logger),
	})
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}

	return &testApp{router: router, store: store, clock: clock, resolver: resolver, recorder: recorder, done: done}
}

func (a *testApp) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) shorten(t *testing.T, body map[string]any) models.CreateURLResponse {
	t.Helper()
	w := a.do(http.MethodPost, "/api/v1/shorten", body, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("shorten %v: status = %d, body = %s", body, w.Code, w.Body.String())
	}
	var resp models.CreateURLResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode shorten response: %v", err)
	}
	return resp
}

func TestShorten(t *testing.T) {
	app := newTestApp(t)

	resp := app.shorten(t, map[string]any{"url": "example.com/docs"})
	if len(resp.ShortCode) != 6 {
		t.Errorf("short code = %q, want 6 characters", resp.ShortCode)
	}
	if resp.OriginalURL != "https://example.com/docs" {
		t.Errorf("original url = %q", resp.OriginalURL)
	}
	if resp.ShortURL != testBaseURL+"/"+resp.ShortCode {
		t.Errorf("short url = %q", resp.ShortURL)
	}

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"missing url", map[string]any{}, http.StatusBadRequest},
		{"bad scheme", map[string]any{"url": "ftp://example.com"}, http.StatusBadRequest},
		{"bad custom code", map[string]any{"url": "https://example.com", "custom_code": "bad code!"}, http.StatusBadRequest},
		{"custom code too long", map[string]any{"url": "https://example.com", "custom_code": "abcdefghijk"}, http.StatusBadRequest},
		{"expiry too short", map[string]any{"url": "https://example.com", "expires_in_days": 0}, http.StatusBadRequest},
		{"expiry too long", map[string]any{"url": "https://example.com", "expires_in_days": 366}, http.StatusBadRequest},
		{"custom code", map[string]any{"url": "https://example.com", "custom_code": "promo"}, http.StatusCreated},
		{"custom code again", map[string]any{"url": "https://example.com/2", "custom_code": "promo"}, http.StatusConflict},
		{"reserved code", map[string]any{"url": "https://example.com", "custom_code": "admin"}, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := app.do(http.MethodPost, "/api/v1/shorten", tt.body, nil)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestCreateShortURL_LongCustomCodeMessage(t *testing.T) {
	app := newTestApp(t)

	w := app.do(http.MethodPost, "/api/v1/shorten", map[string]any{"url": "https://example.com", "custom_code": "abcdefghijk"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 (body %s)", w.Code, w.Body.String())
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !strings.Contains(body["error"], "at most 10 characters") {
		t.Errorf("error = %q, want the code length message", body["error"])
	}
}

func TestRedirect(t *testing.T) {
	app := newTestApp(t)

	live := app.shorten(t, map[string]any{"url": "https://example.com/live"})
	short := app.shorten(t, map[string]any{"url": "https://example.com/short", "expires_in_days": 1})
	off := app.shorten(t, map[string]any{"url": "https://example.com/off", "custom_code": "off"})

	w := app.do(http.MethodGet, "/"+live.ShortCode, nil, map[string]string{
		"X-Forwarded-For": "203.0.113.10, 10.0.0.1",
		"User-Agent":      "test-agent",
		"Referer":         "https://ref.example",
	})
	if w.Code != http.StatusFound {
		t.Fatalf("redirect status = %d, want 302", w.Code)
	}
	if got := w.Header().Get("Location"); got != "https://example.com/live" {
		t.Errorf("Location = %q", got)
	}

	token := app.login(t)
	w = app.do(http.MethodPatch, "/api/v1/admin/urls/off", map[string]any{"is_active": false}, map[string]string{"Authorization": "Bearer " + token})
	if w.Code != http.StatusOK {
		t.Fatalf("deactivate status = %d, body = %s", w.Code, w.Body.String())
	}

	app.clock.Advance(25 * time.Hour)

	var bodies []string
	for _, code := range []string{short.ShortCode, off.ShortCode, "never1"} {
		w := app.do(http.MethodGet, "/"+code, nil, nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("GET /%s status = %d, want 404", code, w.Code)
		}
		if !strings.HasPrefix(w.Header().Get("Content-Type"), "text/html") {
			t.Errorf("GET /%s content type = %q", code, w.Header().Get("Content-Type"))
		}
		bodies = append(bodies, w.Body.String())
	}
	if bodies[0] != bodies[1] || bodies[1] != bodies[2] {
		t.Error("expired, inactive and unknown codes should produce identical pages")
	}

	app.flush(t)

	mapping, err := app.store.URLs().FindByShortCode(context.Background(), live.ShortCode)
	if err != nil {
		t.Fatalf("FindByShortCode() error = %v", err)
	}
	if mapping.ClickCount != 1 {
		t.Errorf("click count = %d, want 1", mapping.ClickCount)
	}

	events, err := app.store.Clicks().ListByURL(context.Background(), mapping.ID, 10)
	if err != nil {
		t.Fatalf("ListByURL() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("stored %d click events, want 1", len(events))
	}
	ev := events[0]
	if ev.IPAddress == nil || *ev.IPAddress != "203.0.113.10" || ev.UserAgent != "test-agent" || ev.Referer != "https://ref.example" {
		t.Errorf("click event = %+v", ev)
	}
}

func (a *testApp) login(t *testing.T) string {
	t.Helper()
	w := a.do(http.MethodPost, "/api/v1/admin/login", map[string]any{"email": "admin@example.com", "password": "letmein"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp models.AuthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp.Token
}

func TestInfoStatsAndListing(t *testing.T) {
	app := newTestApp(t)
	resp := app.shorten(t, map[string]any{"url": "https://example.com/info", "expires_in_days": 1})

	for i := 0; i < 2; i++ {
		if w := app.do(http.MethodGet, "/"+resp.ShortCode, nil, nil); w.Code != http.StatusFound {
			t.Fatalf("redirect status = %d", w.Code)
		}
	}
	app.resolver.Wait()
	app.clock.Advance(2 * time.Hour)

	w := app.do(http.MethodGet, "/api/v1/info/"+resp.ShortCode, nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("info status = %d", w.Code)
	}
	var info models.URLInfoResponse
	if err := json.Unmarshal(w.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode info: %v", err)
	}
	if info.ClickCount != 2 || !info.IsActive || info.IsExpired || info.ExpiresAt == nil {
		t.Errorf("info = %+v", info)
	}

	if w := app.do(http.MethodGet, "/api/v1/info/unknown", nil, nil); w.Code != http.StatusNotFound {
		t.Errorf("info(unknown) status = %d, want 404", w.Code)
	}

	w = app.do(http.MethodGet, "/api/v1/stats", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("stats status = %d", w.Code)
	}
	var stats map[string]int64
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats["total_urls"] != 1 || stats["active_urls"] != 1 || stats["total_clicks"] != 2 {
		t.Errorf("stats = %v", stats)
	}

	w = app.do(http.MethodGet, "/api/v1/urls?page=1", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("urls status = %d", w.Code)
	}
	var list models.URLListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.URLs) != 1 || list.PerPage != service.URLsPerPage {
		t.Errorf("list = %+v", list)
	}
	if w := app.do(http.MethodGet, "/api/v1/urls?page=zero", nil, nil); w.Code != http.StatusBadRequest {
		t.Errorf("urls(page=zero) status = %d, want 400", w.Code)
	}
}

func TestQRCode(t *testing.T) {
	app := newTestApp(t)
	resp := app.shorten(t, map[string]any{"url": "https://example.com"})

	w := app.do(http.MethodGet, "/api/v1/qrcode/"+resp.ShortCode, nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("qrcode status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q", ct)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("body is not a PNG image")
	}

	if w := app.do(http.MethodGet, "/api/v1/qrcode/unknown", nil, nil); w.Code != http.StatusNotFound {
		t.Errorf("qrcode(unknown) status = %d, want 404", w.Code)
	}
	if w := app.do(http.MethodGet, "/api/v1/qrcode/"+resp.ShortCode+"?size=5000", nil, nil); w.Code != http.StatusBadRequest {
		t.Errorf("qrcode(size=5000) status = %d, want 400", w.Code)
	}
}

func TestAdmin(t *testing.T) {
	app := newTestApp(t)
	resp := app.shorten(t, map[string]any{"url": "https://example.com", "custom_code": "adm-1"})

	if w := app.do(http.MethodPost, "/api/v1/admin/login", map[string]any{"email": "admin@example.com", "password": "wrong"}, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("bad login status = %d, want 401", w.Code)
	}
	if w := app.do(http.MethodPatch, "/api/v1/admin/urls/adm-1", map[string]any{"is_active": false}, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated patch status = %d, want 401", w.Code)
	}

	auth := map[string]string{"Authorization": "Bearer " + app.login(t)}

	userAgent := strings.Repeat("x", 80)
	if w := app.do(http.MethodGet, "/"+resp.ShortCode, nil, map[string]string{"User-Agent": userAgent}); w.Code != http.StatusFound {
		t.Fatalf("redirect status = %d", w.Code)
	}
	app.flush(t)

	w := app.do(http.MethodGet, "/api/v1/admin/urls/adm-1/clicks?limit=5", nil, auth)
	if w.Code != http.StatusOK {
		t.Fatalf("clicks status = %d, body = %s", w.Code, w.Body.String())
	}
	var clicks struct {
		Clicks []models.ClickResponse `json:"clicks"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &clicks); err != nil {
		t.Fatalf("decode clicks: %v", err)
	}
	if len(clicks.Clicks) != 1 || clicks.Clicks[0].UserAgent != strings.Repeat("x", 50)+"..." {
		t.Errorf("clicks = %+v", clicks.Clicks)
	}

	if w := app.do(http.MethodPatch, "/api/v1/admin/urls/adm-1", map[string]any{}, auth); w.Code != http.StatusBadRequest {
		t.Errorf("patch without is_active status = %d, want 400", w.Code)
	}
	if w := app.do(http.MethodPatch, "/api/v1/admin/urls/missing", map[string]any{"is_active": true}, auth); w.Code != http.StatusNotFound {
		t.Errorf("patch missing status = %d, want 404", w.Code)
	}

	w = app.do(http.MethodPatch, "/api/v1/admin/urls/adm-1", map[string]any{"is_active": false}, auth)
	if w.Code != http.StatusOK {
		t.Fatalf("deactivate status = %d", w.Code)
	}
	if w := app.do(http.MethodGet, "/adm-1", nil, nil); w.Code != http.StatusNotFound {
		t.Errorf("redirect after deactivate status = %d, want 404", w.Code)
	}
	w = app.do(http.MethodGet, "/api/v1/info/adm-1", nil, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"is_active":false`) {
		t.Errorf("info after deactivate = %d %s", w.Code, w.Body.String())
	}
}

func TestHealthAndMetrics(t *testing.T) {
	app := newTestApp(t)

	if w := app.do(http.MethodGet, "/health", nil, nil); w.Code != http.StatusOK {
		t.Errorf("health status = %d", w.Code)
	}

	app.do(http.MethodGet, "/nothing", nil, nil)
	w := app.do(http.MethodGet, "/metrics", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `redirects_total{outcome="not_found"} 1`) {
		t.Errorf("metrics output missing redirect counter:\n%s", w.Body.String())
	}
}

func TestNewRouter_InvalidTrustedProxy(t *testing.T) {
	if _, err := NewRouter(Deps{TrustedProxies: []string{"not-a-proxy"}}); err == nil {
		t.Fatal("NewRouter() expected error for invalid trusted proxy")
	}
}
