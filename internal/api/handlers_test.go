package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/ignite/person-registry/internal/config"
	"github.com/ignite/person-registry/internal/domain"
	"github.com/ignite/person-registry/internal/pkg/httputil"
	"github.com/ignite/person-registry/internal/service/registration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memRepo is an in-memory registration.Repository with the same uniqueness
// rules as the database.
type memRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]domain.PersonRegistration
	err    error
}

func newMemRepo() *memRepo {
	return &memRepo{rows: map[int64]domain.PersonRegistration{}}
}

func (m *memRepo) clash(p *domain.PersonRegistration) bool {
	for id, row := range m.rows {
		if id != p.ID && (row.CPF == p.CPF || row.Email == p.Email) {
			return true
		}
	}
	return false
}

func (m *memRepo) Create(_ context.Context, p *domain.PersonRegistration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.clash(p) {
		return registration.ErrConflict
	}
	m.nextID++
	p.ID = m.nextID
	m.rows[p.ID] = *p
	return nil
}

func (m *memRepo) List(context.Context) ([]domain.PersonRegistration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.PersonRegistration, 0, len(m.rows))
	for _, row := range m.rows {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *memRepo) Get(_ context.Context, id int64) (*domain.PersonRegistration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	row, ok := m.rows[id]
	if !ok {
		return nil, registration.ErrNotFound
	}
	return &row, nil
}

func (m *memRepo) Update(_ context.Context, p *domain.PersonRegistration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[p.ID]; !ok {
		return registration.ErrNotFound
	}
	if m.clash(p) {
		return registration.ErrConflict
	}
	m.rows[p.ID] = *p
	return nil
}

func (m *memRepo) Delete(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return false, nil
	}
	delete(m.rows, id)
	return true, nil
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

func setupTestServer(t *testing.T) (http.Handler, *memRepo) {
	t.Helper()
	repo := newMemRepo()
	svc := registration.NewService(repo)
	srv := NewServer(config.ServerConfig{RequestTimeoutSeconds: 5}, Deps{
		Registrations:  svc,
		DB:             fakePinger{},
		AllowedOrigins: []string{"http://localhost:5173"},
	})
	return srv.Handler(), repo
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

const anaJSON = `{"name":" Ana Lima ","birthDate":"1992-03-04","cpf":"123.456.789-01","email":"ana@example.com","description":"  "}`

func decodeRegistration(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) httputil.ErrorResponse {
	t.Helper()
	var body httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestHealthCheck(t *testing.T) {
	h, _ := setupTestServer(t)

	rr := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	var status HealthStatus
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "up", status.Checks["database"].Status)
}

func TestHealthCheck_DatabaseDown(t *testing.T) {
	srv := NewServer(config.ServerConfig{}, Deps{
		Registrations: registration.NewService(newMemRepo()),
		DB:            fakePinger{err: errors.New("connection refused")},
		Cache:         fakePinger{},
	})

	rr := do(t, srv.Handler(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.NotContains(t, rr.Body.String(), "connection refused")
}

func TestHealthCheck_CacheDownIsDegraded(t *testing.T) {
	srv := NewServer(config.ServerConfig{}, Deps{
		Registrations: registration.NewService(newMemRepo()),
		DB:            fakePinger{},
		Cache:         fakePinger{err: errors.New("redis down")},
	})

	rr := do(t, srv.Handler(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"degraded"`)
}

func TestRootRedirectsToCollection(t *testing.T) {
	h, _ := setupTestServer(t)

	rr := do(t, h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/api/registrations", rr.Header().Get("Location"))
}

func TestCreateRegistration(t *testing.T) {
	h, _ := setupTestServer(t)

	rr := do(t, h, http.MethodPost, "/api/registrations", anaJSON)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "/api/registrations/1", rr.Header().Get("Location"))

	body := decodeRegistration(t, rr)
	assert.Equal(t, float64(1), body["id"])
	assert.Equal(t, "Ana Lima", body["name"])
	assert.Equal(t, "1992-03-04", body["birthDate"])
	assert.Equal(t, "12345678901", body["cpf"])
	assert.Equal(t, "ana@example.com", body["email"])
	assert.Contains(t, body, "description")
	assert.Nil(t, body["description"])
	assert.NotEmpty(t, body["createdAt"])
}

func TestCreateRegistration_Validation(t *testing.T) {
	h, repo := setupTestServer(t)

	rr := do(t, h, http.MethodPost, "/api/registrations",
		`{"name":"Ana","birthDate":"1992-03-04","cpf":"123","email":"ana@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	body := decodeError(t, rr)
	assert.Equal(t, "validation", body.Code)
	assert.NotEmpty(t, body.Error)
	details, ok := body.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "cpf", details["field"])
	assert.Equal(t, "length", details["rule"])
	assert.Empty(t, repo.rows)
}

func TestCreateRegistration_MalformedJSON(t *testing.T) {
	h, _ := setupTestServer(t)

	rr := do(t, h, http.MethodPost, "/api/registrations", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "bad_request", decodeError(t, rr).Code)
}

func TestCreateRegistration_Conflict(t *testing.T) {
	h, _ := setupTestServer(t)

	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/api/registrations", anaJSON).Code)

	rr := do(t, h, http.MethodPost, "/api/registrations",
		`{"name":"Outra","birthDate":"1990-01-01","cpf":"12345678901","email":"outra@example.com"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)
	body := decodeError(t, rr)
	assert.Equal(t, "conflict", body.Code)
	assert.Equal(t, "CPF ou e-mail já cadastrado.", body.Error)
}

func TestListRegistrations_EmptyIsArray(t *testing.T) {
	h, _ := setupTestServer(t)

	rr := do(t, h, http.MethodGet, "/api/registrations", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestListRegistrations(t *testing.T) {
	h, _ := setupTestServer(t)
	do(t, h, http.MethodPost, "/api/registrations", anaJSON)
	do(t, h, http.MethodPost, "/api/registrations",
		`{"name":"Bruno","birthDate":"1980-01-02","cpf":"22222222222","email":"bruno@example.com"}`)

	rr := do(t, h, http.MethodGet, "/api/registrations", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var items []RegistrationResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &items))
	assert.Len(t, items, 2)
}

func TestGetRegistration(t *testing.T) {
	h, _ := setupTestServer(t)
	do(t, h, http.MethodPost, "/api/registrations", anaJSON)

	rr := do(t, h, http.MethodGet, "/api/registrations/1", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Ana Lima", decodeRegistration(t, rr)["name"])

	rr = do(t, h, http.MethodGet, "/api/registrations/99", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not_found", decodeError(t, rr).Code)

	rr = do(t, h, http.MethodGet, "/api/registrations/abc", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUpdateRegistration(t *testing.T) {
	h, _ := setupTestServer(t)
	do(t, h, http.MethodPost, "/api/registrations", anaJSON)

	rr := do(t, h, http.MethodPut, "/api/registrations/1",
		`{"email":"ana.lima@example.com","description":"nova nota","cpf":null}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	body := decodeRegistration(t, rr)
	assert.Equal(t, "ana.lima@example.com", body["email"])
	assert.Equal(t, "nova nota", body["description"])
	assert.Equal(t, "12345678901", body["cpf"])
	assert.Equal(t, "Ana Lima", body["name"])
}

func TestUpdateRegistration_Errors(t *testing.T) {
	h, _ := setupTestServer(t)
	do(t, h, http.MethodPost, "/api/registrations", anaJSON)
	do(t, h, http.MethodPost, "/api/registrations",
		`{"name":"Bruno","birthDate":"1980-01-02","cpf":"22222222222","email":"bruno@example.com"}`)

	rr := do(t, h, http.MethodPut, "/api/registrations/1", `{"email":"sem-arroba"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodPut, "/api/registrations/1", `{"email":"bruno@example.com"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(t, h, http.MethodPut, "/api/registrations/42", `{"name":"X"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, h, http.MethodPut, "/api/registrations/x1", `{"name":"X"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestDeleteRegistration(t *testing.T) {
	h, _ := setupTestServer(t)
	do(t, h, http.MethodPost, "/api/registrations", anaJSON)

	rr := do(t, h, http.MethodDelete, "/api/registrations/1", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Body.String())

	rr = do(t, h, http.MethodDelete, "/api/registrations/1", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestStoreFailureIsGeneric500(t *testing.T) {
	h, repo := setupTestServer(t)
	repo.err = errors.New(`pq: password authentication failed for user "app"`)

	rr := do(t, h, http.MethodGet, "/api/registrations", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "password")
	assert.Equal(t, "internal", decodeError(t, rr).Code)
}

func TestRequestIDHeader(t *testing.T) {
	h, _ := setupTestServer(t)

	rr := do(t, h, http.MethodGet, "/health", "")
	assert.Len(t, rr.Header().Get(requestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "abc-123", rr.Header().Get(requestIDHeader))
}

func TestCORSPreflight(t *testing.T) {
	h, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/registrations", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "http://localhost:5173", rr.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/registrations", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}
