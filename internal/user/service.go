// Package user はユーザー管理（一覧・取得・更新・削除）のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hitoshi/authapi/internal/auth"
	"github.com/hitoshi/authapi/internal/model"
	"github.com/hitoshi/authapi/internal/repository"
	"github.com/hitoshi/authapi/internal/result"
)

// ページングの既定値と上限。
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// RefreshTokenDeleter はユーザーのリフレッシュトークン一括削除インターフェース。
type RefreshTokenDeleter interface {
	DeleteByUserID(ctx context.Context, userID string) error
}

// Service はユーザー管理のサービス層。
type Service struct {
	userRepo  repository.UserRepository
	tokens    RefreshTokenDeleter
	validator *auth.InputValidator
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。nowがnilの場合はtime.Nowを使う。
func NewService(
	userRepo repository.UserRepository,
	tokens RefreshTokenDeleter,
	validator *auth.InputValidator,
	now func() time.Time,
) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		userRepo:  userRepo,
		tokens:    tokens,
		validator: validator,
		now:       now,
	}
}

// NormalizePaging はページ番号と件数を既定値・上限に丸める。
// 1未満のpageは1、1未満のlimitは既定値、上限を超えるlimitはMaxLimitになる。
func NormalizePaging(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

// List は作成日時順のユーザー一覧を1ページ分返す。
func (s *Service) List(ctx context.Context, page, limit int) result.Result[model.Page[model.UserView], *model.AppError] {
	page, limit = NormalizePaging(page, limit)

	total, err := s.userRepo.Count(ctx)
	if err != nil {
		slog.Error("failed to count users", slog.String("error", err.Error()))
		return result.Err[model.Page[model.UserView]](model.NewDatabaseError(""))
	}

	users, err := s.userRepo.List(ctx, limit, (page-1)*limit)
	if err != nil {
		slog.Error("failed to list users",
			slog.Int("page", page),
			slog.Int("limit", limit),
			slog.String("error", err.Error()),
		)
		return result.Err[model.Page[model.UserView]](model.NewDatabaseError(""))
	}

	views := make([]model.UserView, 0, len(users))
	for _, u := range users {
		views = append(views, u.View())
	}

	return result.Ok[model.Page[model.UserView], *model.AppError](model.Page[model.UserView]{
		Data:       views,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	})
}

// Get は指定IDのユーザーを返す。存在しない場合はNOT_FOUND。
func (s *Service) Get(ctx context.Context, id string) result.Result[model.UserView, *model.AppError] {
	return result.Map(s.find(ctx, id), (*model.User).View)
}

func (s *Service) find(ctx context.Context, id string) result.Result[*model.User, *model.AppError] {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		slog.Error("failed to find user",
			slog.String("user_id", id),
			slog.String("error", err.Error()),
		)
		return result.Err[*model.User](model.NewDatabaseError(""))
	}
	if user == nil {
		return result.Err[*model.User](model.NewNotFoundError("User"))
	}
	return result.Ok[*model.User, *model.AppError](user)
}

// Update は指定されたフィールドだけを更新し、updated_atを現在時刻にする。
// 他のユーザーが使用中のメールアドレスへの変更はCONFLICT。
func (s *Service) Update(ctx context.Context, id string, in auth.UpdateInput) result.Result[model.UserView, *model.AppError] {
	validated := auth.Validate(s.validator, in)
	current := result.Chain(validated, func(auth.UpdateInput) result.Result[*model.User, *model.AppError] {
		return s.find(ctx, id)
	})
	updated := result.Chain(current, func(u *model.User) result.Result[*model.User, *model.AppError] {
		return s.apply(ctx, u, in)
	})
	return result.Map(updated, (*model.User).View)
}

func (s *Service) apply(ctx context.Context, user *model.User, in auth.UpdateInput) result.Result[*model.User, *model.AppError] {
	if in.Email != nil && *in.Email != user.Email {
		owner, err := s.userRepo.FindByEmail(ctx, *in.Email)
		if err != nil {
			slog.Error("failed to look up user by email", slog.String("error", err.Error()))
			return result.Err[*model.User](model.NewDatabaseError(""))
		}
		if owner != nil && owner.ID != user.ID {
			return result.Err[*model.User](model.NewConflictError("User with this email already exists"))
		}
		user.Email = *in.Email
	}
	if in.Name != nil {
		user.Name = *in.Name
	}
	user.UpdatedAt = s.now()

	if err := s.userRepo.Update(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return result.Err[*model.User](model.NewConflictError("User with this email already exists"))
		case errors.Is(err, repository.ErrNotFound):
			return result.Err[*model.User](model.NewNotFoundError("User"))
		}
		slog.Error("failed to update user",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return result.Err[*model.User](model.NewDatabaseError("Failed to update user"))
	}

	slog.Info("user updated", slog.String("user_id", user.ID))
	return result.Ok[*model.User, *model.AppError](user)
}

// Delete はユーザーを削除する。
// 削除順序: refresh_tokens → user
func (s *Service) Delete(ctx context.Context, id string) result.Result[struct{}, *model.AppError] {
	found := s.find(ctx, id)
	return result.Chain(found, func(u *model.User) result.Result[struct{}, *model.AppError] {
		return s.remove(ctx, u.ID)
	})
}

func (s *Service) remove(ctx context.Context, userID string) result.Result[struct{}, *model.AppError] {
	slog.Info("deleting user", slog.String("user_id", userID))

	// 1. リフレッシュトークンを削除
	if s.tokens != nil {
		if err := s.tokens.DeleteByUserID(ctx, userID); err != nil {
			slog.Error("failed to delete refresh tokens",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
			return result.Err[struct{}](model.NewDatabaseError("Failed to delete user"))
		}
	}

	// 2. ユーザーを削除
	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return result.Err[struct{}](model.NewNotFoundError("User"))
		}
		slog.Error("failed to delete user",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return result.Err[struct{}](model.NewDatabaseError("Failed to delete user"))
	}

	slog.Info("user deleted", slog.String("user_id", userID))
	return result.Ok[struct{}, *model.AppError](struct{}{})
}
