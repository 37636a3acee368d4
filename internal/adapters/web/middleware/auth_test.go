package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/skyward-ops/droneops/internal/core/domain"
	"github.com/skyward-ops/droneops/internal/core/services/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAuth struct {
	user *domain.User
}

func (s *stubAuth) Login(context.Context, domain.Credentials) (string, error) { return "", nil }
func (s *stubAuth) Logout(context.Context, string) error                      { return nil }
func (s *stubAuth) CreateUser(context.Context, domain.User, string) error     { return nil }

func (s *stubAuth) ValidateToken(_ context.Context, token string) (*domain.User, error) {
	if token == "valid" && s.user != nil {
		return s.user, nil
	}
	return nil, errors.New("invalid session")
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestAuthMiddlewareCookieToken(t *testing.T) {
	auth := &stubAuth{user: &domain.User{Username: "op", Role: domain.RoleOperator}}
	var seen *domain.User
	handler := AuthMiddleware(auth)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "auth_token", Value: "valid"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "op", seen.Username)
}

func TestAuthMiddlewareBearerFallback(t *testing.T) {
	auth := &stubAuth{user: &domain.User{Username: "op", Role: domain.RoleViewer}}
	handler := AuthMiddleware(auth)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer valid")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddlewareMissingToken(t *testing.T) {
	handler := AuthMiddleware(&stubAuth{})(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "error", decodeBody(t, rec)["status"])
}

func TestAuthMiddlewareInvalidTokenClearsCookie(t *testing.T) {
	handler := AuthMiddleware(&stubAuth{})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "auth_token", Value: "stale"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "auth_token", cookies[0].Name)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func withUser(req *http.Request, user *domain.User) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), UserContextKey, user))
}

func TestRoleMiddlewareAllowsSufficientRole(t *testing.T) {
	handler := RoleMiddleware(domain.RoleOperator)(okHandler())

	req := withUser(httptest.NewRequest(http.MethodGet, "/", nil), &domain.User{Role: domain.RoleAdmin})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRoleMiddlewareRejectsLowerRole(t *testing.T) {
	handler := RoleMiddleware(domain.RoleSupervisor)(okHandler())

	req := withUser(httptest.NewRequest(http.MethodGet, "/", nil), &domain.User{Role: domain.RoleAnalyst})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "supervisor", body["required_role"])
	assert.Equal(t, "analyst", body["current_role"])
}

func TestRoleMiddlewareWithoutUser(t *testing.T) {
	handler := RoleMiddleware(domain.RoleViewer)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestArmedMiddleware(t *testing.T) {
	engine := policy.NewEngine()
	handler := ArmedMiddleware(engine)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Action plane is not armed", body["message"])
	policySnapshot, ok := body["policy"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, policySnapshot["armed"])

	engine.Arm("supervisor", "drill", 1, 120)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
