package handler

import (
	"net/http"

	"github.com/hitoshi/authapi/internal/router"
)

// Routes はAPIのルートテーブルを登録順で返す。
func Routes(auth *AuthHandler, users *UserHandler) []router.Route {
	return []router.Route{
		{Method: http.MethodPost, Pattern: "/auth/register", Handler: auth.Register},
		{Method: http.MethodPost, Pattern: "/auth/login", Handler: auth.Login},
		{Method: http.MethodGet, Pattern: "/auth/me", Handler: auth.Me},
		{Method: http.MethodPost, Pattern: "/auth/refresh", Handler: auth.Refresh},
		{Method: http.MethodGet, Pattern: "/users", Handler: users.List},
		{Method: http.MethodGet, Pattern: "/users/:id", Handler: users.Get},
		{Method: http.MethodPut, Pattern: "/users/:id", Handler: users.Update},
		{Method: http.MethodDelete, Pattern: "/users/:id", Handler: users.Delete},
	}
}
