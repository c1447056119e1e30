package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/authapi/internal/auth"
	"github.com/hitoshi/authapi/internal/model"
	"github.com/hitoshi/authapi/internal/result"
)

// --- POST /auth/register ---

func TestAuthHandler_Register_Created(t *testing.T) {
	var got auth.RegisterInput
	svc := &mockAuthService{
		registerFn: func(ctx context.Context, in auth.RegisterInput) result.Result[model.UserView, *model.AppError] {
			got = in
			return result.Ok[model.UserView, *model.AppError](model.UserView{ID: "u1", Email: in.Email, Name: in.Name})
		},
	}
	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/auth/register",
		strings.NewReader(`{"email":"a@example.com","password":"password123","name":"Alice"}`))
	w := httptest.NewRecorder()
	h.Register(w, req, nil)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	if got.Email != "a@example.com" || got.Password != "password123" || got.Name != "Alice" {
		t.Errorf("input = %+v", got)
	}

	body := decodeBody[map[string]map[string]any](t, w)
	if body["user"]["id"] != "u1" {
		t.Errorf("user.id = %v, want u1", body["user"]["id"])
	}
	if _, ok := body["user"]["password"]; ok {
		t.Error("response should not contain password")
	}
}

func TestAuthHandler_InvalidJSON(t *testing.T) {
	called := false
	svc := &mockAuthService{
		registerFn: func(ctx context.Context, in auth.RegisterInput) result.Result[model.UserView, *model.AppError] {
			called = true
			return result.Ok[model.UserView, *model.AppError](model.UserView{})
		},
	}
	h := NewAuthHandler(svc)

	for _, body := range []string{"", "{", "not json", `{"email": 5}`} {
		req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
		w := httptest.NewRecorder()
		h.Register(w, req, nil)

		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want %d", body, w.Code, http.StatusBadRequest)
			continue
		}
		resp := decodeErrorBody(t, w)
		if resp.Error.Type != model.ErrCodeValidation || resp.Error.Message != "Invalid JSON" {
			t.Errorf("body %q: error = %+v", body, resp.Error)
		}
	}
	if called {
		t.Error("service should not be called for an invalid body")
	}
}

func TestAuthHandler_Register_Conflict(t *testing.T) {
	svc := &mockAuthService{
		registerFn: func(ctx context.Context, in auth.RegisterInput) result.Result[model.UserView, *model.AppError] {
			return result.Err[model.UserView](model.NewConflictError("User with this email already exists"))
		},
	}
	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	h.Register(w, req, nil)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusConflict)
	}
	resp := decodeErrorBody(t, w)
	if resp.Error.Type != model.ErrCodeConflict {
		t.Errorf("type = %q, want %q", resp.Error.Type, model.ErrCodeConflict)
	}
	if resp.Path != "/auth/register" {
		t.Errorf("path = %q, want /auth/register", resp.Path)
	}
}

// --- POST /auth/login ---

func TestAuthHandler_Login(t *testing.T) {
	svc := &mockAuthService{
		loginFn: func(ctx context.Context, in auth.LoginInput) result.Result[model.LoginResult, *model.AppError] {
			if in.Password != "password123" {
				return result.Err[model.LoginResult](model.NewInvalidCredentialsError(""))
			}
			return result.Ok[model.LoginResult, *model.AppError](model.LoginResult{
				User:         model.UserView{ID: "u1"},
				Token:        "access",
				RefreshToken: "refresh",
			})
		},
	}
	h := NewAuthHandler(svc)

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"success", `{"email":"a@example.com","password":"password123"}`, http.StatusOK},
		{"wrong password", `{"email":"a@example.com","password":"nope"}`, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			h.Login(w, req, nil)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			lr := decodeBody[model.LoginResult](t, w)
			if lr.Token != "access" || lr.RefreshToken != "refresh" || lr.User.ID != "u1" {
				t.Errorf("login result = %+v", lr)
			}
		})
	}
}

// --- GET /auth/me ---

func TestAuthHandler_Me_PassesAuthorizationHeader(t *testing.T) {
	var gotHeader string
	svc := &mockAuthService{
		currentUserFn: func(ctx context.Context, authorization string) result.Result[model.UserView, *model.AppError] {
			gotHeader = authorization
			return result.Ok[model.UserView, *model.AppError](model.UserView{ID: "u1"})
		},
	}
	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer abc")
	w := httptest.NewRecorder()
	h.Me(w, req, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotHeader != "Bearer abc" {
		t.Errorf("authorization = %q, want %q", gotHeader, "Bearer abc")
	}
	body := decodeBody[map[string]model.UserView](t, w)
	if body["user"].ID != "u1" {
		t.Errorf("user.id = %q, want u1", body["user"].ID)
	}
}

func TestAuthHandler_Me_Unauthorized(t *testing.T) {
	svc := &mockAuthService{
		currentUserFn: func(ctx context.Context, authorization string) result.Result[model.UserView, *model.AppError] {
			return result.Err[model.UserView](model.NewUnauthorizedError("Authorization header missing"))
		},
	}
	h := NewAuthHandler(svc)

	w := httptest.NewRecorder()
	h.Me(w, httptest.NewRequest(http.MethodGet, "/auth/me", nil), nil)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if resp := decodeErrorBody(t, w); resp.Error.Type != model.ErrCodeUnauthorized {
		t.Errorf("type = %q, want %q", resp.Error.Type, model.ErrCodeUnauthorized)
	}
}

// --- POST /auth/refresh ---

func TestAuthHandler_Refresh(t *testing.T) {
	svc := &mockAuthService{
		refreshFn: func(ctx context.Context, refreshToken string) result.Result[string, *model.AppError] {
			if refreshToken != "good" {
				return result.Err[string](model.NewInvalidTokenError("Invalid refresh token"))
			}
			return result.Ok[string, *model.AppError]("new-access")
		},
	}
	h := NewAuthHandler(svc)

	t.Run("success", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/auth/refresh", strings.NewReader(`{"refreshToken":"good"}`))
		w := httptest.NewRecorder()
		h.Refresh(w, req, nil)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
		}
		if got := decodeBody[map[string]string](t, w)["token"]; got != "new-access" {
			t.Errorf("token = %q, want new-access", got)
		}
	})

	t.Run("missing token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/auth/refresh", strings.NewReader(`{}`))
		w := httptest.NewRecorder()
		h.Refresh(w, req, nil)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
		}
		if resp := decodeErrorBody(t, w); resp.Error.Message != "Refresh token is required" {
			t.Errorf("message = %q", resp.Error.Message)
		}
	})

	t.Run("rejected token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/auth/refresh", strings.NewReader(`{"refreshToken":"bad"}`))
		w := httptest.NewRecorder()
		h.Refresh(w, req, nil)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
		}
		if resp := decodeErrorBody(t, w); resp.Error.Type != model.ErrCodeInvalidToken {
			t.Errorf("type = %q, want %q", resp.Error.Type, model.ErrCodeInvalidToken)
		}
	})
}
