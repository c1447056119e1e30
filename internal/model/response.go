package model

import "time"

// timestampLayout はミリ秒精度のUTC ISO-8601形式。
const timestampLayout = "2006-01-02T15:04:05.000Z"

// ErrorBody はエラーレスポンスの error フィールド。
type ErrorBody struct {
	Type    string         `json:"type"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorResponse はAPIエラーレスポンスの統一フォーマット。
type ErrorResponse struct {
	Error     ErrorBody `json:"error"`
	Timestamp string    `json:"timestamp"`
	Path      string    `json:"path,omitempty"`
}

// FormatTimestamp はtをミリ秒精度のUTC ISO-8601文字列にする。
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// NewErrorResponse はAppErrorとリクエストパスからエラーレスポンスを組み立てる。
// pathが空の場合はpathフィールドを省略する。errがnilの場合は内部エラーとして扱う。
func NewErrorResponse(err *AppError, path string, now time.Time) ErrorResponse {
	if err == nil {
		err = NewInternalError("")
	}
	return ErrorResponse{
		Error: ErrorBody{
			Type:    err.Kind,
			Message: err.Message,
			Details: err.Details,
		},
		Timestamp: FormatTimestamp(now),
		Path:      path,
	}
}
