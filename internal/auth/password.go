package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/authapi/internal/result"
)

// DefaultBcryptCost はパスワードハッシュの既定コスト。
const DefaultBcryptCost = 12

// PasswordHasher はパスワードのハッシュ化と照合を行う。
type PasswordHasher interface {
	// Hash はpasswordのダイジェストを返す。
	Hash(password string) result.Result[string, error]
	// Verify はpasswordがdigestと一致するかを返す。不一致はOk(false)。
	Verify(password, digest string) result.Result[bool, error]
}

// BcryptHasher はbcryptによるPasswordHasherの実装。
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher はcostを指定してBcryptHasherを生成する。
// 範囲外のcostは既定値に置き換える。
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash はpasswordのbcryptダイジェストを返す。
func (h *BcryptHasher) Hash(password string) result.Result[string, error] {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return result.Err[string](fmt.Errorf("failed to hash password: %w", err))
	}
	return result.Ok[string, error](string(digest))
}

// Verify はpasswordがdigestと一致するかを返す。
// ダイジェストが壊れている場合などはErrを返す。
func (h *BcryptHasher) Verify(password, digest string) result.Result[bool, error] {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(password))
	switch {
	case err == nil:
		return result.Ok[bool, error](true)
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return result.Ok[bool, error](false)
	default:
		return result.Err[bool](fmt.Errorf("failed to verify password: %w", err))
	}
}

var _ PasswordHasher = (*BcryptHasher)(nil)
