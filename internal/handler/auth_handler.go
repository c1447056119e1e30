package handler

import (
	"net/http"

	"github.com/hitoshi/authapi/internal/auth"
	"github.com/hitoshi/authapi/internal/middleware"
	"github.com/hitoshi/authapi/internal/model"
)

// AuthHandler は /auth 配下のエンドポイントを処理する。
type AuthHandler struct {
	service AuthServiceInterface
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

// Register はPOST /auth/registerを処理する。成功時は201で {"user": ...} を返す。
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request, _ []string) {
	var in auth.RegisterInput
	if appErr := decodeJSON(r, &in); appErr != nil {
		middleware.WriteErrorResponse(w, r, appErr)
		return
	}
	respond(w, r, http.StatusCreated, h.service.Register(r.Context(), in), asUser)
}

// Login はPOST /auth/loginを処理する。
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request, _ []string) {
	var in auth.LoginInput
	if appErr := decodeJSON(r, &in); appErr != nil {
		middleware.WriteErrorResponse(w, r, appErr)
		return
	}
	respond(w, r, http.StatusOK, h.service.Login(r.Context(), in), func(lr model.LoginResult) any { return lr })
}

// Me はGET /auth/meを処理する。Authorizationヘッダーのベアラートークンを検証する。
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request, _ []string) {
	res := h.service.CurrentUser(r.Context(), r.Header.Get("Authorization"))
	respond(w, r, http.StatusOK, res, asUser)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh はPOST /auth/refreshを処理する。成功時は {"token": ...} を返す。
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request, _ []string) {
	var req refreshRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		middleware.WriteErrorResponse(w, r, appErr)
		return
	}
	if req.RefreshToken == "" {
		middleware.WriteErrorResponse(w, r, model.NewValidationError("Refresh token is required", nil))
		return
	}
	respond(w, r, http.StatusOK, h.service.Refresh(r.Context(), req.RefreshToken), func(t string) any {
		return tokenResponse{Token: t}
	})
}
