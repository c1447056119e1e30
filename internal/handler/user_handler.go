package handler

import (
	"net/http"
	"strconv"

	"github.com/hitoshi/authapi/internal/auth"
	"github.com/hitoshi/authapi/internal/middleware"
	"github.com/hitoshi/authapi/internal/model"
)

// UserHandler は /users 配下のエンドポイントを処理する。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

// List はGET /usersを処理する。
// pageとlimitは数値として解釈できなければ既定値を使う。範囲外の値はサービス側で丸める。
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request, _ []string) {
	q := r.URL.Query()
	page := queryInt(q.Get("page"))
	limit := queryInt(q.Get("limit"))

	respond(w, r, http.StatusOK, h.service.List(r.Context(), page, limit), func(p model.Page[model.UserView]) any {
		return p
	})
}

// Get はGET /users/:idを処理する。
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request, params []string) {
	respond(w, r, http.StatusOK, h.service.Get(r.Context(), params[0]), asUser)
}

// Update はPUT /users/:idを処理する。
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request, params []string) {
	var in auth.UpdateInput
	if appErr := decodeJSON(r, &in); appErr != nil {
		middleware.WriteErrorResponse(w, r, appErr)
		return
	}
	respond(w, r, http.StatusOK, h.service.Update(r.Context(), params[0], in), asUser)
}

// Delete はDELETE /users/:idを処理する。
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request, params []string) {
	respond(w, r, http.StatusOK, h.service.Delete(r.Context(), params[0]), func(struct{}) any {
		return messageResponse{Message: "User deleted successfully"}
	})
}

// queryInt はsを整数として解釈する。解釈できなければ0（既定値扱い）を返す。
func queryInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
