package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/authapi/internal/model"
	"github.com/hitoshi/authapi/internal/repository"
	"github.com/hitoshi/authapi/internal/result"
)

// RefreshTokenTTL はリフレッシュトークンの有効期間。
const RefreshTokenTTL = 7 * 24 * time.Hour

// RefreshTokens はリフレッシュトークンの発行と交換を行う。
//
// 発行されたトークンは期限まで何度でも交換できる（交換時に失効・再発行はしない）。
// 期限切れのレコードは交換時に見つかった時点で削除する。
type RefreshTokens struct {
	tokens   repository.RefreshTokenRepository
	users    repository.UserRepository
	now      func() time.Time
	generate func() string
}

// NewRefreshTokens はRefreshTokensを生成する。nowがnilの場合はtime.Nowを使う。
func NewRefreshTokens(tokens repository.RefreshTokenRepository, users repository.UserRepository, now func() time.Time) *RefreshTokens {
	if now == nil {
		now = time.Now
	}
	return &RefreshTokens{
		tokens:   tokens,
		users:    users,
		now:      now,
		generate: uuid.NewString,
	}
}

// Issue はuserIDに対する新しいリフレッシュトークンを発行して保存する。
// トークンは暗号論的乱数によるランダムな文字列で、有効期限は発行から7日後。
func (r *RefreshTokens) Issue(ctx context.Context, userID string) result.Result[string, *model.AppError] {
	now := r.now()
	record := &model.RefreshToken{
		ID:        uuid.NewString(),
		Token:     r.generate(),
		UserID:    userID,
		ExpiresAt: now.Add(RefreshTokenTTL),
		CreatedAt: now,
	}

	if err := r.tokens.Create(ctx, record); err != nil {
		slog.Error("failed to store refresh token",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return result.Err[string](model.NewDatabaseError("Failed to store refresh token"))
	}

	return result.Ok[string, *model.AppError](record.Token)
}

// Exchange は提示されたトークンを検証し、所有ユーザーを返す。
//   - 未登録のトークン: INVALID_TOKEN
//   - 期限切れ（expires_at <= now）: レコードを削除してINVALID_TOKEN
//   - 所有ユーザーが存在しない: NOT_FOUND
//
// 有効なトークンのレコードはそのまま残す。
func (r *RefreshTokens) Exchange(ctx context.Context, presented string) result.Result[*model.User, *model.AppError] {
	if presented == "" {
		return result.Err[*model.User](model.NewInvalidTokenError(""))
	}

	record, err := r.tokens.FindByToken(ctx, presented)
	if err != nil {
		slog.Error("failed to find refresh token", slog.String("error", err.Error()))
		return result.Err[*model.User](model.NewDatabaseError(""))
	}
	if record == nil {
		return result.Err[*model.User](model.NewInvalidTokenError(""))
	}

	if record.IsExpired(r.now()) {
		if err := r.tokens.DeleteByToken(ctx, presented); err != nil {
			slog.Warn("failed to purge expired refresh token",
				slog.String("user_id", record.UserID),
				slog.String("error", err.Error()),
			)
		}
		return result.Err[*model.User](model.NewInvalidTokenError(""))
	}

	user, err := r.users.FindByID(ctx, record.UserID)
	if err != nil {
		slog.Error("failed to find refresh token owner",
			slog.String("user_id", record.UserID),
			slog.String("error", err.Error()),
		)
		return result.Err[*model.User](model.NewDatabaseError(""))
	}
	if user == nil {
		return result.Err[*model.User](model.NewNotFoundError("User"))
	}

	return result.Ok[*model.User, *model.AppError](user)
}

// PurgeExpired はretention以上前に期限切れとなったレコードを一括削除し、削除件数を返す。
// 交換時の遅延削除とは別に、運用者が明示的に実行するためのもの。
func (r *RefreshTokens) PurgeExpired(ctx context.Context, retention time.Duration) (int64, error) {
	return r.tokens.DeleteExpiredBefore(ctx, r.now().Add(-retention))
}
