// Package repository はデータ永続化のインターフェースとPostgreSQL実装を定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/authapi/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。メールアドレスが重複する場合はErrDuplicateを返す。
	Create(ctx context.Context, user *model.User) error

	// Update はユーザーのemail、name、updated_atを更新する。
	// 対象が存在しない場合はErrNotFound、メールアドレスが重複する場合はErrDuplicateを返す。
	Update(ctx context.Context, user *model.User) error

	// DeleteByID は指定IDのユーザーを削除する。対象が存在しない場合はErrNotFoundを返す。
	// 関連するrefresh_tokensはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error

	// List はcreated_at昇順でユーザーを取得する。
	List(ctx context.Context, limit, offset int) ([]*model.User, error)

	// Count はユーザーの総数を返す。
	Count(ctx context.Context) (int, error)
}

// RefreshTokenRepository はリフレッシュトークンの永続化インターフェース。
type RefreshTokenRepository interface {
	// Create はリフレッシュトークンを保存する。
	Create(ctx context.Context, token *model.RefreshToken) error

	// FindByToken はトークン文字列でレコードを取得する。見つからない場合はnilを返す。
	// 期限切れのレコードもそのまま返す。期限の判定は呼び出し側で行う。
	FindByToken(ctx context.Context, token string) (*model.RefreshToken, error)

	// DeleteByToken はトークン文字列に一致するレコードを削除する。
	DeleteByToken(ctx context.Context, token string) error

	// DeleteByUserID は指定ユーザーの全リフレッシュトークンを削除する。
	DeleteByUserID(ctx context.Context, userID string) error

	// DeleteExpiredBefore はexpires_atがcutoff以前のレコードを削除し、削除件数を返す。
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
