package routes

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"golang.org/x/crypto/bcrypt"

	"conecta/internal/auth"
	"conecta/internal/config"
	"conecta/internal/metrics"
	"conecta/internal/models"
	"conecta/internal/repository"
)

type healthResp struct {
	Status string `json:"status"`
	DB     struct {
		Status string `json:"status"`
		Error  string `json:"error,omitempty"`
	} `json:"db"`
}

type nopNotifier struct{}

func (nopNotifier) NotifyPasswordReset(context.Context, *models.Account, string) error { return nil }

var accountRowColumns = []string{
	"id", "email", "name", "document", "phone_number", "city", "state",
	"image_key", "resume_key", "password_hash",
	"reset_token_hash", "reset_token_expires_at", "last_access_at", "created_at",
}

type testServer struct {
	router  http.Handler
	mock    sqlmock.Sqlmock
	tokens  *auth.TokenIssuer
	hasher  *auth.BcryptHasher
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenIssuer("dev", nil, time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	hasher := auth.NewBcryptHasher(bcrypt.MinCost, 0)
	accounts := repository.NewAccountRepository(db)
	m := metrics.New()

	svc, err := auth.NewService(accounts, hasher, tokens, nopNotifier{}, auth.Options{Recorder: m})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	r := SetupRoutes(db, &config.Config{JWTSecret: "dev"}, Dependencies{
		Auth:     svc,
		Accounts: accounts,
		Metrics:  m,
	})
	return &testServer{router: r, mock: mock, tokens: tokens, hasher: hasher, metrics: m}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) bearer(t *testing.T, p auth.Principal) string {
	t.Helper()
	token, _, err := s.tokens.Issue(p)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return "Bearer " + token
}

func TestRootReturnsJSON(t *testing.T) {
	s := newTestServer(t)

	w := s.do(httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected application/json, got %q", ct)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body["message"] == "" {
		t.Fatalf("expected message, got %v", body)
	}
}

func TestHealthDBOK(t *testing.T) {
	s := newTestServer(t)
	s.mock.ExpectPing()

	w := s.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	var resp healthResp
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.DB.Status != "ok" {
		t.Fatalf("expected db ok, got %+v", resp)
	}

	if err := s.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestHealthDBDown(t *testing.T) {
	s := newTestServer(t)
	s.mock.ExpectPing().WillReturnError(sql.ErrConnDone)

	w := s.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d (%s)", w.Code, w.Body.String())
	}
	var resp healthResp
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.DB.Status != "down" {
		t.Fatalf("expected db down, got %+v", resp)
	}

	if err := s.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestProfileRequiresToken(t *testing.T) {
	s := newTestServer(t)

	w := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/auth/profile", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d (%s)", w.Code, w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/profile", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w = s.do(req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d (%s)", w.Code, w.Body.String())
	}
}

func TestProfileWithToken(t *testing.T) {
	s := newTestServer(t)
	created := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)

	s.mock.ExpectQuery(`FROM candidates\s+WHERE id = \$1`).
		WithArgs("k1").
		WillReturnRows(sqlmock.NewRows(accountRowColumns).
			AddRow("k1", "ana@example.com", "Ana", "", "", "Lagoa", "SC", "", "", "hash", "", nil, nil, created))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/profile", nil)
	req.Header.Set("Authorization", s.bearer(t, auth.Principal{AccountID: "k1", Role: models.RoleCandidate}))
	w := s.do(req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "hash") {
		t.Fatalf("credential material leaked: %s", w.Body.String())
	}
	if err := s.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRoleGuards(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/candidate/photo", nil)
	req.Header.Set("Authorization", s.bearer(t, auth.Principal{AccountID: "c1", Role: models.RoleCompany}))
	if w := s.do(req); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d (%s)", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/company/logo", nil)
	req.Header.Set("Authorization", s.bearer(t, auth.Principal{AccountID: "k1", Role: models.RoleCandidate}))
	if w := s.do(req); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d (%s)", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/company/logo", nil)
	if w := s.do(req); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d (%s)", w.Code, w.Body.String())
	}

	// Right role but no object store configured.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/company/logo", nil)
	req.Header.Set("Authorization", s.bearer(t, auth.Principal{AccountID: "c1", Role: models.RoleCompany}))
	if w := s.do(req); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d (%s)", w.Code, w.Body.String())
	}
}

func TestLoginThroughRouter(t *testing.T) {
	s := newTestServer(t)
	created := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	hash, err := s.hasher.Hash(context.Background(), "supersecret")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	s.mock.ExpectQuery(`FROM companies\s+WHERE LOWER\(email\) = LOWER\(\$1\)`).
		WithArgs("acme@example.com").
		WillReturnRows(sqlmock.NewRows(accountRowColumns).
			AddRow("c1", "acme@example.com", "Acme", "", "", "", "", "", "", hash, "", nil, nil, created))
	s.mock.ExpectExec(`UPDATE companies SET last_access_at = \$1 WHERE id = \$2`).
		WithArgs(sqlmock.AnyArg(), "c1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	body, _ := json.Marshal(map[string]any{"role": "company", "email": "ACME@example.com", "password": "supersecret"})
	w := s.do(httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body)))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}

	var resp models.AuthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	p, err := s.tokens.Verify(resp.AccessToken)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if p.AccountID != "c1" || p.Role != models.RoleCompany {
		t.Fatalf("unexpected principal %+v", p)
	}
	if err := s.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}

	w = s.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `conecta_auth_events_total{operation="login",outcome="success",role="company"} 1`) {
		t.Fatalf("login not counted:\n%s", w.Body.String())
	}
}

func TestSwaggerRoutesFollowConfig(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	off := SetupRoutes(db, &config.Config{}, Dependencies{})
	w := httptest.NewRecorder()
	off.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	on := SetupRoutes(db, &config.Config{SwaggerEnabled: true}, Dependencies{})
	w = httptest.NewRecorder()
	on.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger", nil))
	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/swagger/index.html" {
		t.Fatalf("unexpected redirect %q", loc)
	}
}
