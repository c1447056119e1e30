package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/authapi/internal/model"
)

// WriteJSON はvをJSONとしてstatusCodeで書き込む。
func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// ステータスコードはappErr.StatusCodeを使い、pathにはリクエストパスを入れる。
func WriteErrorResponse(w http.ResponseWriter, r *http.Request, appErr *model.AppError) {
	if appErr == nil {
		appErr = model.NewInternalError("")
	}
	path := ""
	if r != nil {
		path = r.URL.Path
	}
	WriteJSON(w, appErr.StatusCode, model.NewErrorResponse(appErr, path, time.Now()))
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、クライアントには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter, r *http.Request) {
	WriteErrorResponse(w, r, model.NewInternalError(""))
}
