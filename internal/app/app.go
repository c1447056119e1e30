// Package app はサブコマンドの解析と依存関係のワイヤリングを行い、アプリケーションを起動する。
package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/authapi/internal/auth"
	"github.com/hitoshi/authapi/internal/config"
	"github.com/hitoshi/authapi/internal/database"
	"github.com/hitoshi/authapi/internal/handler"
	"github.com/hitoshi/authapi/internal/logger"
	"github.com/hitoshi/authapi/internal/metrics"
	"github.com/hitoshi/authapi/internal/middleware"
	"github.com/hitoshi/authapi/internal/repository"
	"github.com/hitoshi/authapi/internal/security"
	"github.com/hitoshi/authapi/internal/token"
	"github.com/hitoshi/authapi/internal/user"
	"github.com/hitoshi/authapi/internal/worker/cleanup"
)

const (
	defaultHealthcheckPort = "3000"
	shutdownTimeout        = 30 * time.Second
)

// startupRetry は起動時にDBの準備を待つ設定。
var startupRetry = database.DefaultRetryConfig()

// Init はアプリケーションの初期化を行う。
// 環境変数（と.envファイル）からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, "info")

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再設定する
	logger.SetupDefault(w, cfg.LogLevel)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = defaultHealthcheckPort
		}
		return runHealthcheck(&http.Client{Timeout: 5 * time.Second}, "http://localhost:"+port+"/health")
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("env", cfg.Env),
		slog.Int("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandMigrate:
		var rest []string
		if len(args) > 1 {
			rest = args[1:]
		}
		return runMigrate(cfg, rest)
	case CommandCleanup:
		return runCleanup(cfg)
	default:
		return runServe(cfg)
	}
}

// openDatabase はDB接続を開き、到達できるまで待つ。
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := database.WaitForConnection(context.Background(), db, startupRetry, slog.Default()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")
	return db, nil
}

// server はrunServeが起動するHTTPハンドラーとその付属物。
type server struct {
	handler http.Handler
	limiter *middleware.RateLimiter
}

// newServer は全依存関係をワイヤリングしてHTTPハンドラーを構築する。
// DBへの接続はリクエスト処理時まで行わない。
func newServer(cfg *config.Config, db *sql.DB, reg *prometheus.Registry) *server {
	collector := metrics.NewCollector(reg)

	// 1. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	tokenRepo := repository.NewPostgresRefreshTokenRepo(db)

	// 2. 入力検証とトークン
	validator := auth.NewInputValidator(security.NewTextSanitizer())
	codec := token.NewCodec(token.WithObserver(collector))

	// 3. ドメインサービスの初期化
	authService := auth.NewService(
		userRepo,
		auth.NewRefreshTokens(tokenRepo, userRepo, nil),
		auth.NewBcryptHasher(cfg.BcryptCost),
		codec,
		validator,
		auth.ServiceConfig{JWT: token.Config{
			Secret:            cfg.JWTSecret,
			ExpirationMinutes: cfg.JWTExpirationMinutes,
		}},
		auth.WithRecorder(collector),
	)
	userService := user.NewService(userRepo, tokenRepo, validator, nil)

	// 4. ルーターの構築（レート制限はreq/min単位の設定から組み立てる）
	limiter := middleware.NewRateLimiter(middleware.PerMinuteConfig(cfg.RateLimitGeneral, cfg.RateLimitAuth))

	h := handler.NewRouter(handler.RouterDeps{
		Logger:            slog.Default(),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		HSTS:              cfg.IsProduction(),
		RateLimiter:       limiter,
		StatusObserver:    collector,
		TrustedProxies:    cfg.TrustedProxies,
		DB:                db,
		StartedAt:         time.Now(),
		Gatherer:          reg,
		AuthService:       authService,
		UserService:       userService,
	})

	return &server{handler: h, limiter: limiter}
}

// newRegistry はプロセスとGoランタイムのメトリクスを含むレジストリを生成する。
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// runServe はAPIサーバーモードで起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	srv := newServer(cfg, db, newRegistry())
	defer srv.limiter.Stop()

	httpServer := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.ServerPort),
		Handler:      srv.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	listenErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
	}()

	select {
	case err := <-listenErr:
		return fmt.Errorf("server listen error: %w", err)
	case <-stop:
	}
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// 引数なしまたはupで未適用分をすべて適用し、down [N]で直近N件（既定1件）を巻き戻す。
func runMigrate(cfg *config.Config, args []string) error {
	steps, err := ParseRollbackSteps(args)
	if err != nil {
		return err
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		slog.Int("rollback_steps", steps),
	)

	if steps > 0 {
		if err := database.RollbackMigrations(cfg.DatabaseURL, steps); err != nil {
			return fmt.Errorf("migration rollback failed: %w", err)
		}
		slog.Info("database migrations rolled back successfully")
		return nil
	}

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runCleanup は期限切れリフレッシュトークンの一括削除を1回実行する。
// 交換時の遅延削除とは独立に、運用者が明示的に起動する。
func runCleanup(cfg *config.Config) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	userRepo := repository.NewPostgresUserRepo(db)
	tokenRepo := repository.NewPostgresRefreshTokenRepo(db)
	collector := metrics.NewCollector(prometheus.NewRegistry())

	job := cleanup.NewCleanupJob(auth.NewRefreshTokens(tokenRepo, userRepo, nil), collector, slog.Default())
	job.RetentionDays = cfg.RefreshTokenRetentionDays

	if _, err := job.Run(context.Background()); err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// ステータスコードが200以外、またはstatusがhealthyでなければエラーを返す。
func runHealthcheck(client *http.Client, target string) error {
	resp, err := client.Get(target)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	var body handler.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("health check returned invalid body: %w", err)
	}
	if body.Status != "healthy" {
		return fmt.Errorf("health check reported %s (database %s)", body.Status, body.Database)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
