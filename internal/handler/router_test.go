package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/uwuntu/keyhub/internal/cache"
	"github.com/uwuntu/keyhub/internal/metrics"
	"github.com/uwuntu/keyhub/internal/service"
	"github.com/uwuntu/keyhub/internal/session"
	"github.com/uwuntu/keyhub/internal/testutil"
)

type testAPI struct {
	t      *testing.T
	server *httptest.Server
	client *http.Client
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := testutil.NewTestRepository(t)
	recorder := metrics.NewInMemory()
	sessions := session.NewMemoryStore(time.Hour)

	router := NewRouter(RouterConfig{
		Logger:        logger,
		Account:       service.NewAccountService(repo, logger, recorder),
		AdminAuth:     service.NewAdminAuthService(repo, sessions, logger, recorder),
		Admin:         service.NewAdminService(repo, service.DefaultPresenceWindow, logger, recorder),
		Cookies:       session.NewCookieCodec("router-test-secret", false),
		DB:            repo,
		Metrics:       recorder,
		IsDevelopment: true,
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}

	return &testAPI{t: t, server: server, client: &http.Client{Jar: jar}}
}

func (a *testAPI) do(method, path string, body any) (*http.Response, []byte) {
	a.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, ok := body.(string)
		if !ok {
			encoded, err := json.Marshal(body)
			if err != nil {
				a.t.Fatalf("marshal body: %v", err)
			}
			raw = string(encoded)
		}
		reader = strings.NewReader(raw)
	}

	req, err := http.NewRequest(method, a.server.URL+path, reader)
	if err != nil {
		a.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		a.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		a.t.Fatalf("read body: %v", err)
	}
	return resp, data
}

func (a *testAPI) expect(method, path string, body any, wantStatus int) map[string]any {
	a.t.Helper()

	resp, data := a.do(method, path, body)
	if resp.StatusCode != wantStatus {
		a.t.Fatalf("%s %s: status = %d, want %d (body %s)", method, path, resp.StatusCode, wantStatus, data)
	}

	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		a.t.Fatalf("%s %s: decode body %q: %v", method, path, data, err)
	}
	return out
}

func (a *testAPI) expectError(method, path string, body any, wantStatus int, wantCode string) {
	a.t.Helper()

	out := a.expect(method, path, body, wantStatus)
	if out["code"] != wantCode {
		a.t.Errorf("%s %s: code = %v, want %s", method, path, out["code"], wantCode)
	}
	if msg, _ := out["error"].(string); msg == "" {
		a.t.Errorf("%s %s: missing error message", method, path)
	}
}

func (a *testAPI) saveUser(firstname, lastname, email string) (int64, string) {
	a.t.Helper()

	key := a.expect(http.MethodGet, "/api/generate-key", nil, http.StatusOK)["apiKey"].(string)
	out := a.expect(http.MethodPost, "/api/save-user", map[string]string{
		"firstname": firstname,
		"lastname":  lastname,
		"email":     email,
		"apiKey":    key,
	}, http.StatusOK)

	user := out["user"].(map[string]any)
	return int64(user["id"].(float64)), key
}

func (a *testAPI) loginAsAdmin() {
	a.t.Helper()

	creds := map[string]string{"email": "root@example.com", "password": "hunter22"}
	a.expect(http.MethodPost, "/admin/register", creds, http.StatusOK)
	a.expect(http.MethodPost, "/admin/login", creds, http.StatusOK)
}

func TestRouter_GenerateKey(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)

	out := api.expect(http.MethodGet, "/api/generate-key", nil, http.StatusOK)
	key, _ := out["apiKey"].(string)
	if !strings.HasPrefix(key, "UWUNTU-API-") || len(key) != len("UWUNTU-API-")+16 {
		t.Errorf("unexpected key %q", key)
	}
	if _, ok := out["createdAt"].(string); !ok {
		t.Errorf("missing createdAt in %v", out)
	}
}

func TestRouter_SaveUser(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)

	out := api.expect(http.MethodPost, "/api/save-user", map[string]string{
		"firstname": "Ada",
		"lastname":  "Lovelace",
		"email":     "ada@example.com",
		"apiKey":    "UWUNTU-API-0123456789ABCDEF",
	}, http.StatusOK)

	if out["success"] != true {
		t.Errorf("success = %v, want true", out["success"])
	}
	user := out["user"].(map[string]any)
	for _, field := range []string{"id", "firstname", "lastname", "email", "is_online", "last_seen", "user_created_at", "api_key", "apikey_created_at"} {
		if _, ok := user[field]; !ok {
			t.Errorf("user record missing %q", field)
		}
	}
	if user["api_key"] != "UWUNTU-API-0123456789ABCDEF" {
		t.Errorf("api_key = %v", user["api_key"])
	}

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{
			name:       "duplicate_email",
			body:       map[string]string{"firstname": "A", "lastname": "B", "email": "ada@example.com", "apiKey": "UWUNTU-API-0000000000000001"},
			wantStatus: http.StatusConflict,
			wantCode:   "DUPLICATE_EMAIL",
		},
		{
			name:       "duplicate_key",
			body:       map[string]string{"firstname": "A", "lastname": "B", "email": "other@example.com", "apiKey": "UWUNTU-API-0123456789ABCDEF"},
			wantStatus: http.StatusConflict,
			wantCode:   "DUPLICATE_KEY",
		},
		{
			name:       "missing_field",
			body:       map[string]string{"firstname": "A", "email": "x@example.com", "apiKey": "UWUNTU-API-0000000000000002"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "malformed_json",
			body:       "{not json",
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_REQUEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api.expectError(http.MethodPost, "/api/save-user", tt.body, tt.wantStatus, tt.wantCode)
		})
	}
}

func TestRouter_ValidateAndPresence(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)

	id, key := api.saveUser("Ada", "Lovelace", "ada@example.com")

	out := api.expect(http.MethodGet, "/api/validate?key="+key, nil, http.StatusOK)
	if out["valid"] != true || out["key"] != key || out["status"] != "active" {
		t.Errorf("unexpected validation response %v", out)
	}
	if out["message"] == "" || out["createdAt"] == nil {
		t.Errorf("missing message or createdAt in %v", out)
	}

	api.expectError(http.MethodGet, "/api/validate", nil, http.StatusBadRequest, "MISSING_KEY")
	api.expectError(http.MethodGet, "/api/validate?key=not-a-key", nil, http.StatusBadRequest, "INVALID_FORMAT")
	api.expectError(http.MethodGet, "/api/validate?key=UWUNTU-API-FFFFFFFFFFFFFFFF", nil, http.StatusNotFound, "NOT_FOUND")

	idPath := "/api/user/" + strconv.FormatInt(id, 10)
	if out := api.expect(http.MethodPost, idPath+"/online", nil, http.StatusOK); out["success"] != true {
		t.Errorf("online: %v", out)
	}
	if out := api.expect(http.MethodPost, idPath+"/offline", nil, http.StatusOK); out["success"] != true {
		t.Errorf("offline: %v", out)
	}

	api.expectError(http.MethodPost, "/api/user/abc/online", nil, http.StatusBadRequest, "INVALID_ID")
	api.expectError(http.MethodPost, "/api/user/abc/offline", nil, http.StatusBadRequest, "INVALID_ID")
}

func TestRouter_AdminRoutesRequireSession(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/admin/api/users"},
		{http.MethodGet, "/admin/api/export"},
		{http.MethodPost, "/admin/api/user/1/revoke"},
		{http.MethodPost, "/admin/api/user/1/delete"},
	}

	for _, route := range routes {
		api.expectError(route.method, route.path, nil, http.StatusUnauthorized, "UNAUTHORIZED")
	}
}

func TestRouter_TamperedCookieRejected(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)
	api.loginAsAdmin()

	req, err := http.NewRequest(http.MethodGet, api.server.URL+"/admin/api/users", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}

	var original string
	for _, c := range api.client.Jar.Cookies(req.URL) {
		if c.Name == session.CookieName {
			original = c.Value
		}
	}
	if original == "" {
		t.Fatal("login did not set the session cookie")
	}

	id, _, _ := strings.Cut(original, ".")
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: id + ".forged"})

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}

func TestRouter_AdminAuth(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)

	creds := map[string]string{"email": "root@example.com", "password": "hunter22"}
	out := api.expect(http.MethodPost, "/admin/register", creds, http.StatusOK)
	if out["success"] != true || out["adminId"] == nil {
		t.Errorf("unexpected register response %v", out)
	}

	api.expectError(http.MethodPost, "/admin/register", creds, http.StatusConflict, "DUPLICATE_EMAIL")
	api.expectError(http.MethodPost, "/admin/register", map[string]string{"email": "x@example.com"}, http.StatusBadRequest, "VALIDATION_ERROR")
	api.expectError(http.MethodPost, "/admin/login", map[string]string{"email": "root@example.com", "password": "wrong"}, http.StatusUnauthorized, "INVALID_CREDENTIALS")
	api.expectError(http.MethodPost, "/admin/login", map[string]string{"email": "nobody@example.com", "password": "hunter22"}, http.StatusUnauthorized, "INVALID_CREDENTIALS")

	resp, _ := api.do(http.MethodPost, "/admin/login", creds)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == session.CookieName {
			cookie = c
		}
	}
	if cookie == nil || !cookie.HttpOnly {
		t.Fatalf("expected HttpOnly session cookie, got %+v", cookie)
	}

	api.expect(http.MethodGet, "/admin/api/users", nil, http.StatusOK)

	api.expect(http.MethodPost, "/admin/logout", nil, http.StatusOK)
	api.expectError(http.MethodGet, "/admin/api/users", nil, http.StatusUnauthorized, "UNAUTHORIZED")

	// Logging out without a session still succeeds.
	api.expect(http.MethodPost, "/admin/logout", nil, http.StatusOK)
}

func TestRouter_AdminManagement(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)

	conanID, _ := api.saveUser("Conan", `O"Brien`, "conan@example.com")
	adaID, adaKey := api.saveUser("Ada", "Lovelace", "ada@example.com")
	api.expect(http.MethodGet, "/api/validate?key="+adaKey, nil, http.StatusOK)

	api.loginAsAdmin()

	out := api.expect(http.MethodGet, "/admin/api/users", nil, http.StatusOK)
	users := out["users"].([]any)
	if len(users) != 2 {
		t.Fatalf("got %d users, want 2", len(users))
	}
	first := users[0].(map[string]any)
	second := users[1].(map[string]any)
	if int64(first["id"].(float64)) != conanID || int64(second["id"].(float64)) != adaID {
		t.Errorf("users not ordered by id: %v", users)
	}
	if first["online_now"] != false || second["online_now"] != true {
		t.Errorf("online_now = %v/%v, want false/true", first["online_now"], second["online_now"])
	}

	// CSV export
	resp, body := api.do(http.MethodGet, "/admin/api/export", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Disposition"); got != `attachment; filename="users.csv"` {
		t.Errorf("Content-Disposition = %q", got)
	}
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/csv") {
		t.Errorf("Content-Type = %q", resp.Header.Get("Content-Type"))
	}
	if !bytes.Contains(body, []byte(`"O""Brien"`)) {
		t.Errorf("export does not double embedded quotes:\n%s", body)
	}
	if got := resp.Header.Get("Cache-Control"); got != "no-store" {
		t.Errorf("export Cache-Control = %q, want no-store", got)
	}
	if got := resp.Header.Get("Referrer-Policy"); got != "no-referrer" {
		t.Errorf("export Referrer-Policy = %q, want no-referrer", got)
	}
	if got := resp.Header.Values("Set-Cookie"); len(got) != 0 {
		t.Errorf("export must not set cookies, got %v", got)
	}

	// Revoke then delete
	conanPath := "/admin/api/user/" + strconv.FormatInt(conanID, 10)
	api.expect(http.MethodPost, conanPath+"/revoke", nil, http.StatusOK)
	api.expect(http.MethodPost, conanPath+"/revoke", nil, http.StatusOK)

	out = api.expect(http.MethodGet, "/admin/api/users", nil, http.StatusOK)
	first = out["users"].([]any)[0].(map[string]any)
	if first["api_key"] != nil {
		t.Errorf("api_key after revoke = %v, want null", first["api_key"])
	}

	api.expect(http.MethodPost, conanPath+"/delete", nil, http.StatusOK)
	api.expectError(http.MethodPost, "/admin/api/user/0/delete", nil, http.StatusBadRequest, "INVALID_ID")
	api.expectError(http.MethodPost, "/admin/api/user/abc/delete", nil, http.StatusBadRequest, "INVALID_ID")

	out = api.expect(http.MethodGet, "/admin/api/users", nil, http.StatusOK)
	if n := len(out["users"].([]any)); n != 1 {
		t.Errorf("got %d users after delete, want 1", n)
	}
}

func TestRouter_MetricsAndProbes(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)

	api.saveUser("Ada", "Lovelace", "ada@example.com")

	resp, body := api.do(http.MethodGet, "/metrics", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status = %d", resp.StatusCode)
	}
	for _, line := range []string{
		"uwuntu_keys_generated_total 1",
		`uwuntu_users_saved_total{status="success"} 1`,
	} {
		if !bytes.Contains(body, []byte(line)) {
			t.Errorf("metrics output missing %q:\n%s", line, body)
		}
	}

	api.expect(http.MethodGet, "/healthz", nil, http.StatusOK)
	out := api.expect(http.MethodGet, "/readyz", nil, http.StatusOK)
	checks := out["checks"].(map[string]any)
	if checks["database"] != "ok" || checks["redis"] != "not configured" {
		t.Errorf("unexpected checks %v", checks)
	}

	api.expectError(http.MethodGet, "/nope", nil, http.StatusNotFound, "NOT_FOUND")
}

type recordingLimiter struct {
	ips []string
}

func (l *recordingLimiter) CheckLoginRateLimit(_ context.Context, ip string, _, _ int) (*cache.RateLimitResult, error) {
	l.ips = append(l.ips, ip)
	return &cache.RateLimitResult{Allowed: false, RetryAfter: time.Minute}, nil
}

func TestRouter_LoginRateLimitKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		trustProxy bool
		want       []string
	}{
		{"forwarding_headers_ignored", false, []string{"192.0.2.1", "192.0.2.1"}},
		{"trusted_proxy", true, []string{"203.0.113.1", "203.0.113.2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			limiter := &recordingLimiter{}
			router := NewRouter(RouterConfig{
				Logger:            slog.New(slog.NewTextHandler(io.Discard, nil)),
				Cookies:           session.NewCookieCodec("router-test-secret", false),
				Metrics:           metrics.NewInMemory(),
				LoginLimiter:      limiter,
				LoginRateLimited:  true,
				LoginRPM:          10,
				LoginBurst:        5,
				TrustProxyHeaders: tt.trustProxy,
				IsDevelopment:     true,
			})

			for _, forwarded := range []string{"203.0.113.1", "203.0.113.2"} {
				req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(`{}`))
				req.RemoteAddr = "192.0.2.1:5555"
				req.Header.Set("X-Forwarded-For", forwarded)
				rec := httptest.NewRecorder()
				router.ServeHTTP(rec, req)

				if rec.Code != http.StatusTooManyRequests {
					t.Fatalf("status = %d, want %d", rec.Code, http.StatusTooManyRequests)
				}
			}

			if len(limiter.ips) != len(tt.want) {
				t.Fatalf("limiter calls = %v, want %v", limiter.ips, tt.want)
			}
			for i := range tt.want {
				if limiter.ips[i] != tt.want[i] {
					t.Errorf("limiter key %d = %q, want %q", i, limiter.ips[i], tt.want[i])
				}
			}
		})
	}
}

func TestRouter_StreamedBodyTooLarge(t *testing.T) {
	t.Parallel()

	router := NewRouter(RouterConfig{
		Logger:             slog.New(slog.NewTextHandler(io.Discard, nil)),
		Cookies:            session.NewCookieCodec("router-test-secret", false),
		Metrics:            metrics.NewInMemory(),
		MaxRequestBodySize: 64,
		IsDevelopment:      true,
	})

	body := `{"firstname":"` + strings.Repeat("a", 200) + `"}`
	for _, path := range []string{"/api/save-user", "/admin/register", "/admin/login"} {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.ContentLength = -1
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("%s status = %d, want %d", path, rec.Code, http.StatusRequestEntityTooLarge)
			continue
		}
		var out map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if out["code"] != "PAYLOAD_TOO_LARGE" {
			t.Errorf("%s code = %q, want PAYLOAD_TOO_LARGE", path, out["code"])
		}
	}
}
