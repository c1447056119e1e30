// Package token はアクセストークン（JWT）の発行・検証と、
// Authorizationヘッダーからのトークン抽出を提供する。
package token

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hitoshi/authapi/internal/model"
	"github.com/hitoshi/authapi/internal/result"
)

// 検証失敗の内部的な原因。呼び出し元にはいずれもINVALID_TOKENとして返すが、
// ログとメトリクスでは区別する。
const (
	ReasonExpired          = "expired"
	ReasonInvalidSignature = "invalid_signature"
	ReasonMalformed        = "malformed"
	ReasonInvalidClaims    = "invalid_claims"
	ReasonOther            = "other"
)

// Config はトークン発行・検証の設定。
type Config struct {
	Secret            string
	ExpirationMinutes int
}

// Subject はトークンに埋め込む主体の情報。
type Subject struct {
	UserID string
	Email  string
}

// Claims はアクセストークンのペイロード。
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Observer はトークン検証失敗を記録するインターフェース。
// metrics.Collectorが実装する。
type Observer interface {
	RecordTokenRejected(reason string)
}

// Codec はHS256でアクセストークンを署名・検証する。
// 時刻はnowから取得するため、テストでは固定時刻を注入できる。
type Codec struct {
	now      func() time.Time
	observer Observer
	logger   *slog.Logger
}

// Option はCodecの生成オプション。
type Option func(*Codec)

// WithClock は現在時刻の取得関数を差し替える。
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		c.now = now
	}
}

// WithObserver は検証失敗の記録先を設定する。
func WithObserver(o Observer) Option {
	return func(c *Codec) {
		c.observer = o
	}
}

// WithLogger はログ出力先を設定する。
func WithLogger(l *slog.Logger) Option {
	return func(c *Codec) {
		c.logger = l
	}
}

// NewCodec はCodecを生成する。
func NewCodec(opts ...Option) *Codec {
	c := &Codec{
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Issue はsubjectとcfgからアクセストークンを発行する。
// 有効期限は発行時刻からcfg.ExpirationMinutes分後。
// 失敗するのは署名処理自体が失敗した場合のみ。
func (c *Codec) Issue(subject Subject, cfg Config) result.Result[string, error] {
	if cfg.Secret == "" {
		return result.Err[string](errors.New("token: signing secret is empty"))
	}

	now := c.now()
	claims := Claims{
		UserID: subject.UserID,
		Email:  subject.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(cfg.ExpirationMinutes) * time.Minute)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return result.Err[string](fmt.Errorf("token: failed to sign: %w", err))
	}
	return result.Ok[string, error](signed)
}

// Verify は署名と有効期限を一度に検証し、ペイロードを返す。
// 署名不正・期限切れ・形式不正はINVALID_TOKEN、それ以外の失敗はINTERNAL_ERRORとなる。
func (c *Codec) Verify(tokenString, secret string) result.Result[*Claims, *model.AppError] {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)

	parsed, err := parser.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		reason := classify(err)
		c.reject(reason, err)
		if reason == ReasonOther {
			return result.Err[*Claims](model.NewInternalError("Token verification failed"))
		}
		return result.Err[*Claims](model.NewInvalidTokenError(""))
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.UserID == "" {
		c.reject(ReasonInvalidClaims, errors.New("missing subject claims"))
		return result.Err[*Claims](model.NewInvalidTokenError(""))
	}

	return result.Ok[*Claims, *model.AppError](claims)
}

// reject は検証失敗の原因をログとメトリクスに記録する。
func (c *Codec) reject(reason string, err error) {
	c.logger.Warn("access token rejected",
		slog.String("reason", reason),
		slog.String("error", err.Error()),
	)
	if c.observer != nil {
		c.observer.RecordTokenRejected(reason)
	}
}

// classify はjwtライブラリのエラーを失敗原因に分類する。
func classify(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ReasonExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ReasonInvalidSignature
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return ReasonMalformed
	case errors.Is(err, jwt.ErrTokenInvalidClaims),
		errors.Is(err, jwt.ErrTokenNotValidYet),
		errors.Is(err, jwt.ErrTokenUsedBeforeIssued),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing),
		errors.Is(err, jwt.ErrTokenInvalidAudience),
		errors.Is(err, jwt.ErrTokenInvalidIssuer),
		errors.Is(err, jwt.ErrTokenInvalidSubject),
		errors.Is(err, jwt.ErrTokenInvalidId):
		return ReasonInvalidClaims
	default:
		return ReasonOther
	}
}

// Issue は現在時刻でアクセストークンを発行する。
func Issue(subject Subject, cfg Config) result.Result[string, error] {
	return NewCodec().Issue(subject, cfg)
}

// Verify は現在時刻でアクセストークンを検証する。
func Verify(tokenString, secret string) result.Result[*Claims, *model.AppError] {
	return NewCodec().Verify(tokenString, secret)
}

// ExtractFromHeader は "Bearer <token>" 形式のAuthorizationヘッダーからトークンを取り出す。
// ヘッダー欠落・形式不正・トークン欠落はいずれもUNAUTHORIZEDだが、メッセージで区別する。
func ExtractFromHeader(header string) result.Result[string, *model.AppError] {
	if header == "" {
		return result.Err[string](model.NewUnauthorizedError("Authorization header missing"))
	}

	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return result.Err[string](model.NewUnauthorizedError("Invalid authorization header format"))
	}

	if parts[1] == "" {
		return result.Err[string](model.NewUnauthorizedError("Token missing"))
	}

	return result.Ok[string, *model.AppError](parts[1])
}
