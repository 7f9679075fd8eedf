package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/geocoder89/taskhub/internal/auth"
	"github.com/geocoder89/taskhub/internal/config"
	"github.com/geocoder89/taskhub/internal/db"
	apphttp "github.com/geocoder89/taskhub/internal/http"
	"github.com/geocoder89/taskhub/internal/notifications"
	"github.com/geocoder89/taskhub/internal/observability"
	"github.com/geocoder89/taskhub/internal/repo"
	"github.com/geocoder89/taskhub/internal/repo/memory"
	"github.com/geocoder89/taskhub/internal/repo/sqlite"
	"github.com/geocoder89/taskhub/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "admin123"
)

func testConfig() config.Config {
	return config.Config{
		Env:            "test",
		JWTSecret:      "test-secret-key",
		JWTTTLDays:     30,
		AdminEmail:     adminEmail,
		AdminPassword:  adminPassword,
		AdminNom:       "Admin",
		AdminPrenom:    "Super",
		AdminTelephone: "0000000000",
		ServiceName:    "taskhub-test",
	}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (n *recordingNotifier) Notify(_ context.Context, ev notifications.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

func (n *recordingNotifier) kinds() []notifications.Kind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notifications.Kind, 0, len(n.events))
	for _, ev := range n.events {
		out = append(out, ev.Kind)
	}
	return out
}

type app struct {
	router   http.Handler
	jwt      *auth.Manager
	prom     *observability.Prom
	notifier *recordingNotifier
}

type storeFactory func(t *testing.T) (repo.Users, repo.Tasks)

func memoryStores(*testing.T) (repo.Users, repo.Tasks) {
	users := memory.NewUsersRepo()
	return users, memory.NewTasksRepo(users)
}

func sqliteStores(t *testing.T) (repo.Users, repo.Tasks) {
	t.Helper()
	sqlDB, err := sqlite.Open(filepath.Join(t.TempDir(), "taskhub.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return sqlite.NewUsersRepo(sqlDB, nil), sqlite.NewTasksRepo(sqlDB, nil)
}

var backends = map[string]storeFactory{
	"memory": memoryStores,
	"sqlite": sqliteStores,
}

func newApp(t *testing.T, stores storeFactory) *app {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	users, tasks := stores(t)
	creds := security.NewBcryptVerifier(bcrypt.MinCost)

	if err := db.EnsureAdminUser(context.Background(), users, creds, cfg); err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	reg := prometheus.NewRegistry()
	a := &app{
		jwt:      auth.NewManager(cfg.JWTSecret, cfg.TokenTTL()),
		prom:     observability.NewProm(reg),
		notifier: &recordingNotifier{},
	}
	a.router = apphttp.NewRouter(apphttp.Deps{
		Config:   cfg,
		Users:    users,
		Tasks:    tasks,
		Creds:    creds,
		JWT:      a.jwt,
		Revoker:  auth.NewMemoryRevoker(),
		Notifier: a.notifier,
		Prom:     a.prom,
		Gatherer: reg,
	})
	return a
}

func (a *app) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *app) expect(t *testing.T, want int, method, path, token, body string) map[string]any {
	t.Helper()

	w := a.do(t, method, path, token, body)
	if w.Code != want {
		t.Fatalf("%s %s got status %d, want %d, body=%s", method, path, w.Code, want, w.Body.String())
	}
	if w.Body.Len() == 0 {
		return nil
	}

	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to unmarshal json: %v, body=%s", err, w.Body.String())
	}
	return out
}

func (a *app) expectList(t *testing.T, method, path, token string) []map[string]any {
	t.Helper()

	w := a.do(t, method, path, token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("%s %s got status %d, body=%s", method, path, w.Code, w.Body.String())
	}

	var out []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to unmarshal json list: %v, body=%s", err, w.Body.String())
	}
	return out
}

func (a *app) login(t *testing.T, email, password string) string {
	t.Helper()

	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	resp := a.expect(t, http.StatusOK, http.MethodPost, "/auth/login", "", string(body))

	token, _ := resp["token"].(string)
	if token == "" {
		t.Fatalf("login returned no token: %v", resp)
	}
	return token
}

// createUser has the admin create a plain account and returns its id and token.
func (a *app) createUser(t *testing.T, adminToken, email, phone string) (int64, string) {
	t.Helper()

	body, _ := json.Marshal(map[string]string{
		"nom":       "Rakoto",
		"prenom":    "Jean",
		"email":     email,
		"telephone": phone,
		"password":  "secret1",
	})
	resp := a.expect(t, http.StatusCreated, http.MethodPost, "/auth/admin/create-user", adminToken, string(body))

	u, _ := resp["user"].(map[string]any)
	id, _ := u["id"].(float64)
	if id == 0 {
		t.Fatalf("create-user returned no id: %v", resp)
	}
	return int64(id), a.login(t, email, "secret1")
}

func (a *app) assign(t *testing.T, adminToken string, userID int64, titre string) int64 {
	t.Helper()

	body, _ := json.Marshal(map[string]any{"user_id": userID, "titre": titre, "description": "à rendre vendredi"})
	resp := a.expect(t, http.StatusCreated, http.MethodPost, "/api/admin/tasks", adminToken, string(body))

	id, _ := resp["id"].(float64)
	return int64(id)
}

// tokenFor mints a valid token for an account the store does not know.
func (a *app) tokenFor(t *testing.T, email string) string {
	t.Helper()
	token, _, err := a.jwt.GenerateAccessToken(999, email, "admin")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

func taskPath(id int64, suffix string) string {
	return "/api/admin/tasks/" + itoa(id) + suffix
}

func userTaskPath(id int64, suffix string) string {
	return "/api/user/tasks/" + itoa(id) + suffix
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
