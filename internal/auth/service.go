// Package auth はユーザー登録・ログイン・アクセストークンの再発行と、
// リフレッシュトークンの発行・交換を提供する。
//
// すべての操作は想定内の失敗をresult.Resultで返し、panicやerrorの戻り値で
// 呼び出し元に伝えることはない。
package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/authapi/internal/model"
	"github.com/hitoshi/authapi/internal/repository"
	"github.com/hitoshi/authapi/internal/result"
	"github.com/hitoshi/authapi/internal/token"
)

// メトリクスに記録する結果ラベル。失敗時はAppErrorのKindを使う。
const OutcomeSuccess = "success"

// TokenCodec はアクセストークンの発行と検証を行う。*token.Codecが実装する。
type TokenCodec interface {
	Issue(subject token.Subject, cfg token.Config) result.Result[string, error]
	Verify(tokenString, secret string) result.Result[*token.Claims, *model.AppError]
}

// Recorder は認証操作の結果を記録する。metrics.Collectorが実装する。
type Recorder interface {
	RecordRegistration(outcome string)
	RecordLogin(outcome string)
	RecordRefresh(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) RecordRegistration(string) {}
func (nopRecorder) RecordLogin(string)        {}
func (nopRecorder) RecordRefresh(string)      {}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	JWT token.Config
}

// Service は認証に関するユースケースを提供する。
type Service struct {
	users     repository.UserRepository
	refresh   *RefreshTokens
	hasher    PasswordHasher
	codec     TokenCodec
	validator *InputValidator
	recorder  Recorder
	config    ServiceConfig
	now       func() time.Time
}

// ServiceOption はServiceの生成オプション。
type ServiceOption func(*Service)

// WithRecorder は結果の記録先を設定する。
func WithRecorder(r Recorder) ServiceOption {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithClock は現在時刻の取得関数を差し替える。
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService はServiceを生成する。
func NewService(
	users repository.UserRepository,
	refresh *RefreshTokens,
	hasher PasswordHasher,
	codec TokenCodec,
	validator *InputValidator,
	config ServiceConfig,
	opts ...ServiceOption,
) *Service {
	s := &Service{
		users:     users,
		refresh:   refresh,
		hasher:    hasher,
		codec:     codec,
		validator: validator,
		recorder:  nopRecorder{},
		config:    config,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register は入力を検証し、新しいユーザーを作成する。
// 検証に失敗した場合はストアに触れない。メールアドレスが登録済みならCONFLICT。
// 戻り値にパスワードとそのダイジェストは含まれない。
func (s *Service) Register(ctx context.Context, in RegisterInput) result.Result[model.UserView, *model.AppError] {
	validated := Validate(s.validator, in)
	available := result.Chain(validated, func(in RegisterInput) result.Result[RegisterInput, *model.AppError] {
		return s.ensureEmailAvailable(ctx, in)
	})
	created := result.Chain(available, func(in RegisterInput) result.Result[*model.User, *model.AppError] {
		return s.createUser(ctx, in)
	})

	s.recorder.RecordRegistration(outcome(created))
	return result.Map(created, (*model.User).View)
}

func (s *Service) ensureEmailAvailable(ctx context.Context, in RegisterInput) result.Result[RegisterInput, *model.AppError] {
	existing, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		slog.Error("failed to look up user by email", slog.String("error", err.Error()))
		return result.Err[RegisterInput](model.NewDatabaseError(""))
	}
	if existing != nil {
		return result.Err[RegisterInput](model.NewConflictError("User with this email already exists"))
	}
	return result.Ok[RegisterInput, *model.AppError](in)
}

func (s *Service) createUser(ctx context.Context, in RegisterInput) result.Result[*model.User, *model.AppError] {
	digest, err, ok := s.hasher.Hash(in.Password).Get()
	if !ok {
		slog.Error("failed to hash password", slog.String("error", err.Error()))
		return result.Err[*model.User](model.NewInternalError("Password hashing failed"))
	}

	now := s.now()
	user := &model.User{
		ID:           uuid.NewString(),
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: digest,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		// 同時登録による一意制約違反はCONFLICTとして扱う
		if errors.Is(err, repository.ErrDuplicate) {
			return result.Err[*model.User](model.NewConflictError("User with this email already exists"))
		}
		slog.Error("failed to create user", slog.String("error", err.Error()))
		return result.Err[*model.User](model.NewDatabaseError("Failed to create user"))
	}

	slog.Info("user registered", slog.String("user_id", user.ID))
	return result.Ok[*model.User, *model.AppError](user)
}

// Login はメールアドレスとパスワードを照合し、アクセストークンとリフレッシュトークンを発行する。
// メールアドレスの未登録とパスワード不一致はどちらもINVALID_CREDENTIALSとなる。
func (s *Service) Login(ctx context.Context, in LoginInput) result.Result[model.LoginResult, *model.AppError] {
	validated := Validate(s.validator, in)
	user := result.Chain(validated, func(in LoginInput) result.Result[*model.User, *model.AppError] {
		return s.findByCredentials(ctx, in)
	})
	issued := result.Chain(user, func(u *model.User) result.Result[model.LoginResult, *model.AppError] {
		return s.issueSession(ctx, u)
	})

	s.recorder.RecordLogin(outcome(issued))
	return issued
}

func (s *Service) findByCredentials(ctx context.Context, in LoginInput) result.Result[*model.User, *model.AppError] {
	user, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		slog.Error("failed to look up user by email", slog.String("error", err.Error()))
		return result.Err[*model.User](model.NewDatabaseError(""))
	}
	if user == nil {
		return result.Err[*model.User](model.NewInvalidCredentialsError(""))
	}

	matched, err, ok := s.hasher.Verify(in.Password, user.PasswordHash).Get()
	if !ok {
		slog.Error("failed to verify password",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return result.Err[*model.User](model.NewInternalError("Password verification failed"))
	}
	if !matched {
		return result.Err[*model.User](model.NewInvalidCredentialsError(""))
	}
	return result.Ok[*model.User, *model.AppError](user)
}

func (s *Service) issueSession(ctx context.Context, user *model.User) result.Result[model.LoginResult, *model.AppError] {
	access := s.issueAccessToken(user)
	return result.Chain(access, func(accessToken string) result.Result[model.LoginResult, *model.AppError] {
		return result.Map(s.refresh.Issue(ctx, user.ID), func(refreshToken string) model.LoginResult {
			return model.LoginResult{
				User:         user.View(),
				Token:        accessToken,
				RefreshToken: refreshToken,
			}
		})
	})
}

func (s *Service) issueAccessToken(user *model.User) result.Result[string, *model.AppError] {
	issued := s.codec.Issue(token.Subject{UserID: user.ID, Email: user.Email}, s.config.JWT)
	return result.MapErr(issued, func(err error) *model.AppError {
		slog.Error("failed to issue access token",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return model.NewInternalError("Token generation failed")
	})
}

// GetByID は指定IDのユーザーを返す。存在しない場合はNOT_FOUND。
func (s *Service) GetByID(ctx context.Context, id string) result.Result[model.UserView, *model.AppError] {
	return result.Map(s.findUser(ctx, id), (*model.User).View)
}

func (s *Service) findUser(ctx context.Context, id string) result.Result[*model.User, *model.AppError] {
	user, err := s.users.FindByID(ctx, id)
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

// Authenticate はAuthorizationヘッダーからアクセストークンを取り出して検証する。
func (s *Service) Authenticate(authorization string) result.Result[*token.Claims, *model.AppError] {
	return result.Chain(token.ExtractFromHeader(authorization), func(t string) result.Result[*token.Claims, *model.AppError] {
		return s.codec.Verify(t, s.config.JWT.Secret)
	})
}

// CurrentUser はAuthorizationヘッダーのアクセストークンが示すユーザーを返す。
func (s *Service) CurrentUser(ctx context.Context, authorization string) result.Result[model.UserView, *model.AppError] {
	return result.Chain(s.Authenticate(authorization), func(c *token.Claims) result.Result[model.UserView, *model.AppError] {
		return s.GetByID(ctx, c.UserID)
	})
}

// Refresh はリフレッシュトークンを交換し、新しいアクセストークンだけを返す。
// リフレッシュトークン自体は失効させない。
func (s *Service) Refresh(ctx context.Context, refreshToken string) result.Result[string, *model.AppError] {
	owner := s.refresh.Exchange(ctx, refreshToken)
	issued := result.Chain(owner, s.issueAccessToken)

	s.recorder.RecordRefresh(outcome(issued))
	return issued
}

func outcome[T any](r result.Result[T, *model.AppError]) string {
	return result.Match(r,
		func(T) string { return OutcomeSuccess },
		func(e *model.AppError) string { return e.Kind },
	)
}
