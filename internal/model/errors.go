package model

import (
	"fmt"
	"net/http"
)

// AppError はアプリケーション全体で扱う統一エラー。
// 生成後は変更しない。境界でエラーレスポンスに変換される。
type AppError struct {
	Kind       string         // エラー種別（ErrCodeXxx）
	Message    string         // 利用者向けメッセージ
	StatusCode int            // HTTPステータスコード
	Details    map[string]any // 構造化された詳細情報（任意）
}

// Error はerrorインターフェースを実装する。
func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeInvalidToken       = "INVALID_TOKEN"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeInternal           = "INTERNAL_ERROR"
	ErrCodeDatabase           = "DATABASE_ERROR"
	ErrCodeTooManyRequests    = "TOO_MANY_REQUESTS"
)

// ErrorKinds は定義済みの全エラーコードを返す。
func ErrorKinds() []string {
	return []string{
		ErrCodeUnauthorized,
		ErrCodeForbidden,
		ErrCodeInvalidCredentials,
		ErrCodeInvalidToken,
		ErrCodeValidation,
		ErrCodeNotFound,
		ErrCodeConflict,
		ErrCodeInternal,
		ErrCodeDatabase,
		ErrCodeTooManyRequests,
	}
}

func newAppError(kind, message string, statusCode int, details map[string]any) *AppError {
	return &AppError{
		Kind:       kind,
		Message:    message,
		StatusCode: statusCode,
		Details:    details,
	}
}

func messageOr(message, def string) string {
	if message == "" {
		return def
	}
	return message
}

// NewUnauthorizedError は認証が必要な操作で認証情報が不足している場合のエラーを生成する。
func NewUnauthorizedError(message string) *AppError {
	return newAppError(ErrCodeUnauthorized, messageOr(message, "Unauthorized"), http.StatusUnauthorized, nil)
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError(message string) *AppError {
	return newAppError(ErrCodeForbidden, messageOr(message, "Forbidden"), http.StatusForbidden, nil)
}

// NewInvalidCredentialsError はログイン失敗エラーを生成する。
// メールアドレスの未登録とパスワード不一致を区別しないメッセージを既定とする。
func NewInvalidCredentialsError(message string) *AppError {
	return newAppError(ErrCodeInvalidCredentials, messageOr(message, "Invalid email or password"), http.StatusUnauthorized, nil)
}

// NewInvalidTokenError は無効または期限切れトークンのエラーを生成する。
func NewInvalidTokenError(message string) *AppError {
	return newAppError(ErrCodeInvalidToken, messageOr(message, "Invalid or expired token"), http.StatusUnauthorized, nil)
}

// NewValidationError は入力検証エラーを生成する。
// detailsにはフィールド単位の検証失敗内容を格納する。
func NewValidationError(message string, details map[string]any) *AppError {
	return newAppError(ErrCodeValidation, messageOr(message, "Invalid input data"), http.StatusBadRequest, details)
}

// NewNotFoundError はリソース未検出エラーを生成する。
// resourceには "User" や "Route" などのリソース名を指定する。
func NewNotFoundError(resource string) *AppError {
	return newAppError(ErrCodeNotFound, fmt.Sprintf("%s not found", messageOr(resource, "Resource")), http.StatusNotFound, nil)
}

// NewConflictError は一意制約などの競合エラーを生成する。
func NewConflictError(message string) *AppError {
	return newAppError(ErrCodeConflict, messageOr(message, "Conflict"), http.StatusConflict, nil)
}

// NewInternalError は内部エラーを生成する。
func NewInternalError(message string) *AppError {
	return newAppError(ErrCodeInternal, messageOr(message, "Internal server error"), http.StatusInternalServerError, nil)
}

// NewDatabaseError はデータベース操作の失敗エラーを生成する。
func NewDatabaseError(message string) *AppError {
	return newAppError(ErrCodeDatabase, messageOr(message, "Database operation failed"), http.StatusInternalServerError, nil)
}

// NewTooManyRequestsError はレート制限超過エラーを生成する。
func NewTooManyRequestsError(message string) *AppError {
	return newAppError(ErrCodeTooManyRequests, messageOr(message, "Too many requests"), http.StatusTooManyRequests, nil)
}

// FieldError はフィールド単位の検証失敗を表す。
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// NewFieldValidationError はフィールド単位の検証失敗一覧から検証エラーを生成する。
// 一覧は details.errors に格納される。
func NewFieldValidationError(fieldErrors []FieldError) *AppError {
	return NewValidationError("Invalid input data", map[string]any{"errors": fieldErrors})
}
