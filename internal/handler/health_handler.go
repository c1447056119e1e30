package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/authapi/internal/database"
	"github.com/hitoshi/authapi/internal/middleware"
	"github.com/hitoshi/authapi/internal/model"
)

// Version はヘルスチェックで返すAPIバージョン。
const Version = "1.0.0"

const healthPingTimeout = 2 * time.Second

// HealthResponse はGET /healthのレスポンスボディ。
type HealthResponse struct {
	Status    string  `json:"status"`
	Timestamp string  `json:"timestamp"`
	Uptime    float64 `json:"uptime"`
	Database  string  `json:"database"`
	Version   string  `json:"version"`
}

// HealthHandler はDB疎通を含むヘルスチェックを行う。
type HealthHandler struct {
	db        database.Pinger
	startedAt time.Time
	now       func() time.Time
	logger    *slog.Logger
}

// NewHealthHandler はHealthHandlerを生成する。startedAtは稼働時間の起点。
func NewHealthHandler(db database.Pinger, startedAt time.Time, now func() time.Time, logger *slog.Logger) *HealthHandler {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{db: db, startedAt: startedAt, now: now, logger: logger}
}

// ServeHTTP はヘルスチェック結果を返す。
// DBに到達できない場合もステータスコードは200で、statusがunhealthyになる。
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:   "healthy",
		Database: "connected",
		Version:  Version,
	}

	if h.db == nil {
		resp.Status, resp.Database = "unhealthy", "disconnected"
	} else if err := database.Ping(r.Context(), h.db, healthPingTimeout); err != nil {
		h.logger.Warn("health check database ping failed", slog.String("error", err.Error()))
		resp.Status, resp.Database = "unhealthy", "disconnected"
	}

	now := h.now()
	resp.Timestamp = model.FormatTimestamp(now)
	resp.Uptime = now.Sub(h.startedAt).Seconds()

	middleware.WriteJSON(w, http.StatusOK, resp)
}
