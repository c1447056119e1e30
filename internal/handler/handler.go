// Package handler は認証APIのHTTPハンドラーとルーティングを提供する。
package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/hitoshi/authapi/internal/auth"
	"github.com/hitoshi/authapi/internal/middleware"
	"github.com/hitoshi/authapi/internal/model"
	"github.com/hitoshi/authapi/internal/result"
)

// リクエストボディの上限（1MiB）。
const maxBodyBytes = 1 << 20

// AuthServiceInterface はAuthHandlerが使用する認証サービスのインターフェース。
type AuthServiceInterface interface {
	Register(ctx context.Context, in auth.RegisterInput) result.Result[model.UserView, *model.AppError]
	Login(ctx context.Context, in auth.LoginInput) result.Result[model.LoginResult, *model.AppError]
	CurrentUser(ctx context.Context, authorization string) result.Result[model.UserView, *model.AppError]
	Refresh(ctx context.Context, refreshToken string) result.Result[string, *model.AppError]
}

// UserServiceInterface はUserHandlerが使用するユーザー管理サービスのインターフェース。
type UserServiceInterface interface {
	List(ctx context.Context, page, limit int) result.Result[model.Page[model.UserView], *model.AppError]
	Get(ctx context.Context, id string) result.Result[model.UserView, *model.AppError]
	Update(ctx context.Context, id string, in auth.UpdateInput) result.Result[model.UserView, *model.AppError]
	Delete(ctx context.Context, id string) result.Result[struct{}, *model.AppError]
}

type userResponse struct {
	User model.UserView `json:"user"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// respond はresが成功ならbodyで変換した値をstatusで、失敗ならエラーエンベロープを書き込む。
func respond[T any](w http.ResponseWriter, r *http.Request, status int, res result.Result[T, *model.AppError], body func(T) any) {
	value, appErr, ok := res.Get()
	if !ok {
		middleware.WriteErrorResponse(w, r, appErr)
		return
	}
	middleware.WriteJSON(w, status, body(value))
}

func asUser(u model.UserView) any {
	return userResponse{User: u}
}

// decodeJSON はリクエストボディをdstにデコードする。
// 空のボディや不正なJSONはVALIDATION_ERROR("Invalid JSON")となる。
func decodeJSON(r *http.Request, dst any) *model.AppError {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst); err != nil {
		return model.NewValidationError("Invalid JSON", nil)
	}
	return nil
}
