package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubAuthenticator struct {
	userID string
	err    error
}

func (s stubAuthenticator) Authenticate(_ context.Context, token string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.userID, nil
}

func TestRequireAuth_MissingHeaderIsRejected(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })
	h := requireAuth(stubAuthenticator{userID: "user-1"}, slog.Default())(next)

	req := httptest.NewRequest(http.MethodGet, "/api/interviews/history", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	if called {
		t.Error("expected next handler not to be called")
	}
}

func TestRequireAuth_InvalidTokenIsRejected(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	h := requireAuth(stubAuthenticator{err: errors.New("bad token")}, slog.Default())(next)

	req := httptest.NewRequest(http.MethodGet, "/api/interviews/history", nil)
	req.Header.Set("Authorization", "Bearer bad")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestRequireAuth_ValidTokenAttachesUserID(t *testing.T) {
	var gotUserID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = userIDFromContext(r.Context())
	})
	h := requireAuth(stubAuthenticator{userID: "user-1"}, slog.Default())(next)

	req := httptest.NewRequest(http.MethodGet, "/api/interviews/history", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if gotUserID != "user-1" {
		t.Errorf("expected userID user-1, got %q", gotUserID)
	}
}
