package repository

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrDuplicate は一意制約違反を表す。
	ErrDuplicate = errors.New("repository: duplicate key")
	// ErrNotFound は更新・削除対象が存在しないことを表す。
	ErrNotFound = errors.New("repository: not found")
)

// PostgreSQLのSQLSTATE
const (
	pqUniqueViolation  = "23505"
	pqInvalidTextInput = "22P02"
)

func pqCode(err error) pq.ErrorCode {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code
	}
	return ""
}

// isUniqueViolation は一意制約違反かを判定する。
func isUniqueViolation(err error) bool {
	return pqCode(err) == pqUniqueViolation
}

// isInvalidTextInput はUUIDなどの型変換に失敗したかを判定する。
// UUID形式でないIDでの検索は「見つからない」として扱う。
func isInvalidTextInput(err error) bool {
	return pqCode(err) == pqInvalidTextInput
}
