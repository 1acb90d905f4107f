package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/oichat/backend/internal/models"
)

type mockTokens struct {
	valid map[string]uuid.UUID
}

func (m *mockTokens) ValidateToken(_ context.Context, token string) (uuid.UUID, error) {
	if id, ok := m.valid[token]; ok {
		return id, nil
	}
	return uuid.Nil, errors.New("invalid token")
}

type mockUsers struct {
	users map[uuid.UUID]*models.User
}

func (m *mockUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	return m.users[id], nil
}

func newSessionAuth(t *testing.T) (func(http.Handler) http.Handler, *models.User) {
	t.Helper()
	user := &models.User{ID: uuid.New(), Email: "test@example.com"}
	tokens := &mockTokens{valid: map[string]uuid.UUID{"good-token": user.ID}}
	users := &mockUsers{users: map[uuid.UUID]*models.User{user.ID: user}}
	return SessionAuth(tokens, users), user
}

func TestSessionAuthLoadsUser(t *testing.T) {
	mw, user := newSessionAuth(t)

	var got *models.User
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = UserFromCtx(r.Context())
	})

	r := httptest.NewRequest(http.MethodGet, "/api/user", nil)
	r.Header.Set("Authorization", "Bearer good-token")
	w := httptest.NewRecorder()
	mw(next).ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got == nil || got.ID != user.ID {
		t.Fatalf("expected user in context, got %+v", got)
	}
}

func TestSessionAuthRejects(t *testing.T) {
	mw, _ := newSessionAuth(t)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler must not run")
	})

	cases := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"not bearer", "Basic abc"},
		{"bad token", "Bearer wrong-token"},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/api/user", nil)
		if tc.header != "" {
			r.Header.Set("Authorization", tc.header)
		}
		w := httptest.NewRecorder()
		mw(next).ServeHTTP(w, r)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", tc.name, w.Code)
		}
	}
}

func TestSessionAuthRejectsDeletedUser(t *testing.T) {
	user := &models.User{ID: uuid.New()}
	tokens := &mockTokens{valid: map[string]uuid.UUID{"good-token": user.ID}}
	users := &mockUsers{users: map[uuid.UUID]*models.User{}} // user since deleted
	mw := SessionAuth(tokens, users)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler must not run")
	})
	r := httptest.NewRequest(http.MethodGet, "/api/user", nil)
	r.Header.Set("Authorization", "Bearer good-token")
	w := httptest.NewRecorder()
	mw(next).ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for deleted user, got %d", w.Code)
	}
}
