package handler

import (
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/authapi/internal/database"
	"github.com/hitoshi/authapi/internal/metrics"
	"github.com/hitoshi/authapi/internal/middleware"
	"github.com/hitoshi/authapi/internal/router"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger

	// ミドルウェア依存
	CORSAllowedOrigin string
	HSTS              bool
	RateLimiter       *middleware.RateLimiter
	StatusObserver    middleware.StatusObserver

	// 転送ヘッダーを信頼するプロキシ。空なら接続元アドレスをそのまま使う。
	TrustedProxies []netip.Prefix

	// ヘルスチェック
	DB        database.Pinger
	StartedAt time.Time

	// メトリクス。nilなら /metrics を公開しない。
	Gatherer prometheus.Gatherer

	AuthService AuthServiceInterface
	UserService UserServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したhttp.Handlerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → TrustedRealIP → Logging → Recovery → CORS → SecurityHeaders
//
// /health と /metrics はchiに直接登録する。それ以外はレート制限を経て
// 順序付きルートテーブル（router.Dispatcher）に渡され、未登録のパスとメソッドは
// NOT_FOUND("Route not found") となる。/auth/* には認証用の厳しい制限も掛かる。
func NewRouter(deps RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.NewTrustedRealIPMiddleware(deps.TrustedProxies))
	r.Use(middleware.NewLoggingMiddleware(logger, deps.StatusObserver))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.HSTS))

	r.Method(http.MethodGet, "/health", NewHealthHandler(deps.DB, deps.StartedAt, nil, logger))
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	var api http.Handler = router.NewDispatcher(logger, Routes(
		NewAuthHandler(deps.AuthService),
		NewUserHandler(deps.UserService),
	)...)
	if deps.RateLimiter != nil {
		api = onPathPrefix("/auth/", deps.RateLimiter.AuthMiddleware())(api)
		api = deps.RateLimiter.GeneralMiddleware()(api)
	}

	r.NotFound(api.ServeHTTP)
	r.MethodNotAllowed(api.ServeHTTP)

	return r
}

// onPathPrefix はパスがprefixで始まるリクエストにだけmwを適用する。
func onPathPrefix(prefix string, mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		wrapped := mw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, prefix) {
				wrapped.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
