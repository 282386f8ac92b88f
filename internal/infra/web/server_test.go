//go:build !integration

package web

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// newTestLogger creates a silent logger for tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(nil)
	return &logger
}

const testSecret = "test-admin-jwt-secret-please-change"

func TestAuthMiddleware(t *testing.T) {
	// A simple handler that we expect to be called on successful authentication.
	dummyHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	logger := newTestLogger()
	auth := NewAuthManager(testSecret, false, "", time.Minute)
	server := NewServer(nil, nil, nil, "test-admin-key", auth, logger)
	protected := server.authMiddleware(dummyHandler)

	t.Run("no credentials -> 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/sessions", nil)
		rr := httptest.NewRecorder()
		protected.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rr.Code)
		}
	})

	t.Run("wrong scheme -> 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/sessions", nil)
		req.Header.Set("Authorization", "Basic aaa.bbb.ccc")
		rr := httptest.NewRecorder()
		protected.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rr.Code)
		}
	})

	t.Run("bearer but invalid jwt -> 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/sessions", nil)
		req.Header.Set("Authorization", "Bearer invalid.jwt.token")
		rr := httptest.NewRecorder()
		protected.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rr.Code)
		}
	})

	t.Run("token signed with another secret -> 401", func(t *testing.T) {
		other := NewAuthManager("another-secret", false, "", time.Minute)
		token, err := other.Issue("ops")
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/sessions", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		protected.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rr.Code)
		}
	})

	t.Run("valid signature without admin role -> 401", func(t *testing.T) {
		claims := AdminClaims{
			Role: "viewer",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/sessions", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		protected.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rr.Code)
		}
	})

	t.Run("expired token -> 401", func(t *testing.T) {
		expired := NewAuthManager(testSecret, false, "", time.Nanosecond)
		token, err := expired.Issue("ops")
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/sessions", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		protected.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rr.Code)
		}
	})

	t.Run("valid bearer jwt -> 200", func(t *testing.T) {
		token, err := auth.Issue("ops")
		if err != nil || token == "" {
			t.Fatalf("failed to issue test token: %v", err)
		}
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/sessions", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		protected.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
	})

	t.Run("valid session cookie -> 200", func(t *testing.T) {
		dummy := httptest.NewRecorder()
		token, err := auth.Mint(dummy)
		if err != nil || token == "" {
			t.Fatalf("failed to mint test token: %v", err)
		}
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/sessions", nil)
		req.AddCookie(&http.Cookie{Name: "admin_session", Value: token})
		rr := httptest.NewRecorder()
		protected.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
	})

	t.Run("no auth manager configured -> 401", func(t *testing.T) {
		serverNoAuth := NewServer(nil, nil, nil, "test-admin-key", nil, logger)
		protectedNoAuth := serverNoAuth.authMiddleware(dummyHandler)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/sessions", nil)
		rr := httptest.NewRecorder()
		protectedNoAuth.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rr.Code)
		}
	})
}

func TestAdminLoginLogoutFlow(t *testing.T) {
	logger := newTestLogger()
	auth := NewAuthManager(testSecret, false, "", time.Minute)
	s := NewServer(&mockSessionUC{}, &mockVoucherUC{}, &mockSweeper{}, "test-admin-key", auth, logger)

	r := chi.NewRouter()
	s.RegisterRoutes(r)

	var sessionCookie *http.Cookie

	t.Run("login with wrong key -> 401", func(t *testing.T) {
		body := bytes.NewBufferString(`{"key":"wrong"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/auth/login", body)
		req.Header.Set("content-type", "application/json")
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rr.Code)
		}
	})

	t.Run("login with correct key -> 200 + cookie set", func(t *testing.T) {
		body := bytes.NewBufferString(`{"key":"test-admin-key"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/auth/login", body)
		req.Header.Set("content-type", "application/json")
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		for _, c := range rr.Result().Cookies() {
			if c.Name == "admin_session" {
				sessionCookie = c
				break
			}
		}
		if sessionCookie == nil || sessionCookie.Value == "" {
			t.Fatal("expected admin_session cookie")
		}
	})

	t.Run("protected route with cookie -> 200", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/sessions", nil)
		req.AddCookie(sessionCookie)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
	})

	t.Run("logout -> 204", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/auth/logout", nil)
		req.AddCookie(sessionCookie)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		if rr.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rr.Code)
		}
	})

	t.Run("after logout without cookie -> 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/sessions", nil)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rr.Code)
		}
	})

	t.Run("login disabled without admin key -> 403", func(t *testing.T) {
		noKey := NewServer(nil, nil, nil, "", auth, logger)
		rr2 := chi.NewRouter()
		noKey.RegisterRoutes(rr2)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/auth/login", bytes.NewBufferString(`{"key":""}`))
		rr := httptest.NewRecorder()
		rr2.ServeHTTP(rr, req)
		if rr.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rr.Code)
		}
	})
}
