// Package cleanup は期限切れリフレッシュトークンの一括削除ジョブを提供する。
// 交換時の遅延削除とは別に、運用者が cleanup サブコマンドで明示的に実行する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Purger は期限切れリフレッシュトークンを削除するインターフェース。
// auth.RefreshTokensが実装する。
type Purger interface {
	PurgeExpired(ctx context.Context, retention time.Duration) (int64, error)
}

// Recorder はジョブの結果を記録するインターフェース。metrics.Collectorが実装する。
type Recorder interface {
	RecordTokensPurged(count int64)
	RecordCleanupDuration(duration time.Duration)
}

// CleanupJob は期限切れリフレッシュトークンの削除ジョブ。
// 冪等な削除処理を保証する。
type CleanupJob struct {
	purger        Purger
	recorder      Recorder
	logger        *slog.Logger
	RetentionDays int // 期限切れ後の保持日数（デフォルト: 0）
}

// NewCleanupJob は新しいCleanupJobを生成する。recorderはnilでもよい。
func NewCleanupJob(purger Purger, recorder Recorder, logger *slog.Logger) *CleanupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanupJob{
		purger:   purger,
		recorder: recorder,
		logger:   logger,
	}
}

// Run はexpires_atがRetentionDays日前以前のリフレッシュトークンを削除し、削除件数を返す。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) (int64, error) {
	if j.RetentionDays < 0 {
		return 0, fmt.Errorf("retention days must not be negative: %d", j.RetentionDays)
	}

	start := time.Now()
	retention := time.Duration(j.RetentionDays) * 24 * time.Hour

	deleted, err := j.purger.PurgeExpired(ctx, retention)
	if err != nil {
		j.logger.Error("refresh token cleanup failed",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return 0, fmt.Errorf("failed to purge expired refresh tokens: %w", err)
	}

	duration := time.Since(start)
	if j.recorder != nil {
		j.recorder.RecordTokensPurged(deleted)
		j.recorder.RecordCleanupDuration(duration)
	}

	j.logger.Info("refresh token cleanup completed",
		slog.Int64("deleted_count", deleted),
		slog.Int("retention_days", j.RetentionDays),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return deleted, nil
}
