package middlewares

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/taskhub/internal/actorctx"
	"github.com/geocoder89/taskhub/internal/auth"
	"github.com/geocoder89/taskhub/internal/domain/user"
	"github.com/gin-gonic/gin"
)

type fakeVerifier struct {
	claims *auth.Claims
	err    error
}

func (f fakeVerifier) VerifyAccessToken(string) (*auth.Claims, error) {
	return f.claims, f.err
}

type fakeResolver struct {
	users map[string]user.User
	err   error
}

func (f fakeResolver) GetByEmail(_ context.Context, email string) (user.User, error) {
	if f.err != nil {
		return user.User{}, f.err
	}
	u, ok := f.users[email]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func claimsFor(id int64, email string) *auth.Claims {
	c := &auth.Claims{UserID: id, Email: email, Role: "user", TokenType: "access"}
	c.ID = "jti-" + email
	return c
}

func newGate(t *testing.T, v TokenVerifier, revoker auth.Revoker, users CallerResolver) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m := NewAuthMiddleware(v, revoker, users, nil)
	r := gin.New()
	r.Use(RequestID())

	ok := func(c *gin.Context) {
		caller, _ := CallerFrom(c)
		actorID, _ := actorctx.UserIDFrom(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"caller": caller.ID, "actor": actorID})
	}

	r.GET("/user", m.RequireAuth(), m.RequireCaller(), ok)
	r.GET("/admin", m.RequireAuth(), m.RequireAdmin(), ok)
	return r
}

func do(r http.Handler, path, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return body
}

func TestRequireAuth_Rejections(t *testing.T) {
	users := fakeResolver{users: map[string]user.User{"u@example.com": {ID: 2, Email: "u@example.com", Role: "user"}}}
	revoker := auth.NewMemoryRevoker()
	_ = revoker.Revoke(context.Background(), "jti-u@example.com", time.Now().Add(time.Hour))

	tests := []struct {
		name     string
		verifier TokenVerifier
		header   string
		wantCode string
	}{
		{"no header", fakeVerifier{claims: claimsFor(2, "u@example.com")}, "", "missing_token"},
		{"not bearer", fakeVerifier{claims: claimsFor(2, "u@example.com")}, "Basic abc", "missing_token"},
		{"empty bearer", fakeVerifier{claims: claimsFor(2, "u@example.com")}, "Bearer    ", "missing_token"},
		{"invalid token", fakeVerifier{err: auth.ErrInvalidToken}, "Bearer garbage", "invalid_token"},
		{"revoked token", fakeVerifier{claims: claimsFor(2, "u@example.com")}, "Bearer good", "token_revoked"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newGate(t, tt.verifier, revoker, users)
			w := do(r, "/user", tt.header)

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d: %s", w.Code, w.Body.String())
			}
			body := decode(t, w)
			if body["code"] != tt.wantCode {
				t.Fatalf("expected code %q, got %v", tt.wantCode, body["code"])
			}
			if body["request_id"] == "" || body["request_id"] == nil {
				t.Fatalf("expected request_id in body: %v", body)
			}
		})
	}
}

func TestRequireCaller(t *testing.T) {
	users := fakeResolver{users: map[string]user.User{"u@example.com": {ID: 2, Email: "u@example.com", Role: "user"}}}

	t.Run("resolved caller", func(t *testing.T) {
		r := newGate(t, fakeVerifier{claims: claimsFor(2, "u@example.com")}, auth.NewMemoryRevoker(), users)
		w := do(r, "/user", "Bearer ok")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		body := decode(t, w)
		if body["caller"] != float64(2) || body["actor"] != float64(2) {
			t.Fatalf("unexpected body %v", body)
		}
	})

	t.Run("unknown caller is 404", func(t *testing.T) {
		r := newGate(t, fakeVerifier{claims: claimsFor(9, "ghost@example.com")}, auth.NewMemoryRevoker(), users)
		w := do(r, "/user", "Bearer ok")
		if w.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", w.Code)
		}
		if body := decode(t, w); body["error"] != "Utilisateur non trouvé" {
			t.Fatalf("unexpected body %v", body)
		}
	})

	t.Run("store failure is 500", func(t *testing.T) {
		r := newGate(t, fakeVerifier{claims: claimsFor(2, "u@example.com")}, auth.NewMemoryRevoker(), fakeResolver{err: errors.New("db down")})
		w := do(r, "/user", "Bearer ok")
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", w.Code)
		}
	})
}

func TestRequireAdmin(t *testing.T) {
	users := fakeResolver{users: map[string]user.User{
		"admin@example.com": {ID: 1, Email: "admin@example.com", Role: "Admin"},
		"u@example.com":     {ID: 2, Email: "u@example.com", Role: "user"},
	}}

	tests := []struct {
		name   string
		claims *auth.Claims
		want   int
	}{
		{"admin role matches case-insensitively", claimsFor(1, "admin@example.com"), http.StatusOK},
		{"plain user is forbidden", claimsFor(2, "u@example.com"), http.StatusForbidden},
		{"unknown caller is forbidden", claimsFor(3, "ghost@example.com"), http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newGate(t, fakeVerifier{claims: tt.claims}, auth.NewMemoryRevoker(), users)
			w := do(r, "/admin", "Bearer ok")
			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
			if tt.want == http.StatusForbidden {
				if body := decode(t, w); body["error"] != "Accès non autorisé" {
					t.Fatalf("unexpected body %v", body)
				}
			}
		})
	}
}

func TestRequireJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequireJSON())
	r.PUT("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	tests := []struct {
		name string
		body string
		ct   string
		want int
	}{
		{"json body", `{"a":1}`, "application/json; charset=utf-8", http.StatusNoContent},
		{"form body", `a=1`, "application/x-www-form-urlencoded", http.StatusUnsupportedMediaType},
		{"empty body", ``, "", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/x", strings.NewReader(tt.body))
			if tt.ct != "" {
				req.Header.Set("Content-Type", tt.ct)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	r := gin.New()
	r.POST("/login", rl.RateLimiterMiddleware(KeyByIP), func(c *gin.Context) { c.Status(http.StatusOK) })

	hit := func() int {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	if hit() != http.StatusOK || hit() != http.StatusOK {
		t.Fatalf("first two requests must pass")
	}
	if code := hit(); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", code)
	}

	now = now.Add(2 * time.Minute)
	if code := hit(); code != http.StatusOK {
		t.Fatalf("expected a fresh window, got %d", code)
	}
}
