package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"

	"github.com/spiderlily190/cad/internal/core/domain"
	"github.com/spiderlily190/cad/internal/infra/security"
	"github.com/spiderlily190/cad/internal/usecase"
)

const testSecret = "test-secret-test-secret-test-secret"

func newTestTokens(t *testing.T) *security.TokenManager {
	t.Helper()
	tokens, err := security.NewTokenManager(testSecret, "cad", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	return tokens
}

func signToken(t *testing.T, tokens *security.TokenManager, opts security.AccessTokenOptions) string {
	t.Helper()
	claims, err := tokens.NewAccessTokenClaims(opts)
	if err != nil {
		t.Fatalf("NewAccessTokenClaims: %v", err)
	}
	raw, err := tokens.Sign(claims)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	return raw
}

func newAuthRouter(t *testing.T, auth *Authenticator, action usecase.Action) (*gin.Engine, *domain.Actor) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	seen := &domain.Actor{}
	router := gin.New()
	router.Use(EnrichContext())
	router.GET("/protected", auth.RequireAuth(), RequireAccess(action), func(c *gin.Context) {
		actor, _ := GetActor(c)
		*seen = actor
		c.Status(http.StatusOK)
	})
	return router, seen
}

func TestRequireAuthAcceptsBearerToken(t *testing.T) {
	tokens := newTestTokens(t)
	auth := NewAuthenticator(tokens, nil, zaptest.NewLogger(t))
	router, seen := newAuthRouter(t, auth, usecase.ActionOfficerList)

	raw := signToken(t, tokens, security.AccessTokenOptions{
		UserID:      "user-1",
		Username:    "casper",
		Permissions: []string{string(domain.PermissionLeo)},
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if seen.UserID != "user-1" || !seen.HasPermission(domain.PermissionLeo) {
		t.Fatalf("unexpected actor %+v", seen)
	}
}

func TestRequireAuthRejectsMissingAndInvalidCredentials(t *testing.T) {
	tokens := newTestTokens(t)
	auth := NewAuthenticator(tokens, security.NewAPITokenVerifier("api-secret"), zaptest.NewLogger(t))
	router, _ := newAuthRouter(t, auth, usecase.ActionOfficerList)

	cases := map[string]func(*http.Request){
		"missing header": func(*http.Request) {},
		"wrong scheme":   func(r *http.Request) { r.Header.Set("Authorization", "Basic abc") },
		"garbage token":  func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") },
		"bad api token":  func(r *http.Request) { r.Header.Set(APITokenHeader, "wrong") },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			mutate(req)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rr.Code)
			}
			var body ErrorResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Kind != "unauthorized" || body.TraceID == "" {
				t.Fatalf("unexpected body %+v", body)
			}
		})
	}
}

func TestRequireAuthAcceptsAPIToken(t *testing.T) {
	auth := NewAuthenticator(newTestTokens(t), security.NewAPITokenVerifier("api-secret"), zaptest.NewLogger(t))
	router, seen := newAuthRouter(t, auth, usecase.ActionDispatchAop)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(APITokenHeader, "api-secret")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !seen.IsAPIToken || seen.UserID != security.APITokenUserID {
		t.Fatalf("unexpected actor %+v", seen)
	}
}

func TestRequireAccessForbidsMissingPermission(t *testing.T) {
	tokens := newTestTokens(t)
	auth := NewAuthenticator(tokens, nil, zaptest.NewLogger(t))
	router, _ := newAuthRouter(t, auth, usecase.ActionAdminStats)

	raw := signToken(t, tokens, security.AccessTokenOptions{
		UserID:      "user-2",
		Permissions: []string{string(domain.PermissionLeo)},
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestRequireAuthAcceptsQueryTokenOnlyForWebsocketUpgrade(t *testing.T) {
	tokens := newTestTokens(t)
	auth := NewAuthenticator(tokens, nil, zaptest.NewLogger(t))
	router, seen := newAuthRouter(t, auth, usecase.ActionOfficerList)

	raw := signToken(t, tokens, security.AccessTokenOptions{
		UserID:      "user-3",
		Permissions: []string{string(domain.PermissionLeo)},
	})

	plain := httptest.NewRequest(http.MethodGet, "/protected?access_token="+raw, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, plain)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected query token to be ignored on plain requests, got %d", rr.Code)
	}

	upgrade := httptest.NewRequest(http.MethodGet, "/protected?access_token="+raw, nil)
	upgrade.Header.Set("Connection", "Upgrade")
	upgrade.Header.Set("Upgrade", "websocket")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, upgrade)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected upgrade with query token to pass, got %d: %s", rr.Code, rr.Body.String())
	}
	if seen.UserID != "user-3" {
		t.Fatalf("unexpected actor %+v", seen)
	}
}

type failingVerifier struct{}

func (failingVerifier) Verify(string) (*security.AccessTokenClaims, error) {
	return nil, errors.New("key store offline")
}

func TestRequireAuthInternalVerifierError(t *testing.T) {
	auth := NewAuthenticator(failingVerifier{}, nil, zaptest.NewLogger(t))
	router, _ := newAuthRouter(t, auth, usecase.ActionOfficerList)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
}

type stubCadLoader struct {
	cad domain.Cad
	err error
}

func (s stubCadLoader) Current(context.Context) (domain.Cad, error) { return s.cad, s.err }

func TestLoadCad(t *testing.T) {
	gin.SetMode(gin.TestMode)

	ok := stubCadLoader{cad: domain.Cad{ID: "cad-1"}}
	router := gin.New()
	router.GET("/ok", LoadCad(ok, zaptest.NewLogger(t)), func(c *gin.Context) {
		cad, found := GetCad(c)
		if !found || cad.ID != "cad-1" {
			c.Status(http.StatusTeapot)
			return
		}
		c.Status(http.StatusOK)
	})
	router.GET("/missing", LoadCad(stubCadLoader{err: errors.New("no cad")}, zaptest.NewLogger(t)), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/missing", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}
