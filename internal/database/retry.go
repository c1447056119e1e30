package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RetryConfig は起動時の接続待ちの設定。
type RetryConfig struct {
	Attempts       int           // 最大試行回数
	InitialBackoff time.Duration // 初回の待機時間
	MaxBackoff     time.Duration // 待機時間の上限
	PingTimeout    time.Duration // 1回あたりのPingタイムアウト
}

// DefaultRetryConfig は既定の接続待ち設定を返す。
// 0.5秒から2倍ずつ増やし最大8秒、合計6回試行する。
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts:       6,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     8 * time.Second,
		PingTimeout:    5 * time.Second,
	}
}

// Backoff は失敗回数failuresに対する指数バックオフの待機時間を返す。
// 初回はInitialBackoffで、2倍ずつ増加し、MaxBackoffを超えない。
func (c RetryConfig) Backoff(failures int) time.Duration {
	delay := c.InitialBackoff
	for i := 0; i < failures; i++ {
		delay *= 2
		if delay > c.MaxBackoff {
			return c.MaxBackoff
		}
	}
	return delay
}

// WaitForConnection はDBに到達できるまでPingを繰り返す。
// コンテナ起動直後などDBの準備が遅れる場合に使う。
// Attempts回失敗するかctxが終了すると最後のエラーを返す。
func WaitForConnection(ctx context.Context, db Pinger, cfg RetryConfig, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	attempts := cfg.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if lastErr = Ping(ctx, db, cfg.PingTimeout); lastErr == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}

		delay := cfg.Backoff(i)
		logger.Warn("database not ready, retrying",
			slog.Int("attempt", i+1),
			slog.Duration("retry_in", delay),
			slog.String("error", lastErr.Error()),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("gave up waiting for database: %w", ctx.Err())
		case <-timer.C:
		}
	}

	return fmt.Errorf("database unreachable after %d attempts: %w", attempts, lastErr)
}
