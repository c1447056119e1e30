package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/authapi/internal/auth"
	"github.com/hitoshi/authapi/internal/model"
	"github.com/hitoshi/authapi/internal/result"
)

// --- モック定義 ---

type mockAuthService struct {
	registerFn    func(ctx context.Context, in auth.RegisterInput) result.Result[model.UserView, *model.AppError]
	loginFn       func(ctx context.Context, in auth.LoginInput) result.Result[model.LoginResult, *model.AppError]
	currentUserFn func(ctx context.Context, authorization string) result.Result[model.UserView, *model.AppError]
	refreshFn     func(ctx context.Context, refreshToken string) result.Result[string, *model.AppError]
}

func (m *mockAuthService) Register(ctx context.Context, in auth.RegisterInput) result.Result[model.UserView, *model.AppError] {
	if m.registerFn != nil {
		return m.registerFn(ctx, in)
	}
	return result.Ok[model.UserView, *model.AppError](model.UserView{})
}

func (m *mockAuthService) Login(ctx context.Context, in auth.LoginInput) result.Result[model.LoginResult, *model.AppError] {
	if m.loginFn != nil {
		return m.loginFn(ctx, in)
	}
	return result.Ok[model.LoginResult, *model.AppError](model.LoginResult{})
}

func (m *mockAuthService) CurrentUser(ctx context.Context, authorization string) result.Result[model.UserView, *model.AppError] {
	if m.currentUserFn != nil {
		return m.currentUserFn(ctx, authorization)
	}
	return result.Ok[model.UserView, *model.AppError](model.UserView{})
}

func (m *mockAuthService) Refresh(ctx context.Context, refreshToken string) result.Result[string, *model.AppError] {
	if m.refreshFn != nil {
		return m.refreshFn(ctx, refreshToken)
	}
	return result.Ok[string, *model.AppError]("")
}

type mockUserService struct {
	listFn   func(ctx context.Context, page, limit int) result.Result[model.Page[model.UserView], *model.AppError]
	getFn    func(ctx context.Context, id string) result.Result[model.UserView, *model.AppError]
	updateFn func(ctx context.Context, id string, in auth.UpdateInput) result.Result[model.UserView, *model.AppError]
	deleteFn func(ctx context.Context, id string) result.Result[struct{}, *model.AppError]
}

func (m *mockUserService) List(ctx context.Context, page, limit int) result.Result[model.Page[model.UserView], *model.AppError] {
	if m.listFn != nil {
		return m.listFn(ctx, page, limit)
	}
	return result.Ok[model.Page[model.UserView], *model.AppError](model.Page[model.UserView]{Data: []model.UserView{}})
}

func (m *mockUserService) Get(ctx context.Context, id string) result.Result[model.UserView, *model.AppError] {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return result.Ok[model.UserView, *model.AppError](model.UserView{ID: id})
}

func (m *mockUserService) Update(ctx context.Context, id string, in auth.UpdateInput) result.Result[model.UserView, *model.AppError] {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, in)
	}
	return result.Ok[model.UserView, *model.AppError](model.UserView{ID: id})
}

func (m *mockUserService) Delete(ctx context.Context, id string) result.Result[struct{}, *model.AppError] {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return result.Ok[struct{}, *model.AppError](struct{}{})
}

// --- compile-time interface checks ---
var _ AuthServiceInterface = (*mockAuthService)(nil)
var _ UserServiceInterface = (*mockUserService)(nil)

// --- 共通ヘルパー ---

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) model.ErrorResponse {
	t.Helper()
	var body model.ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return body
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var body T
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return body
}
