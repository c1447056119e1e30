// Package result は成功値か失敗値のどちらか一方だけを保持する Result 型を提供する。
// 想定内の失敗は panic ではなく Result で呼び出し元へ伝播させる。
package result

import "fmt"

// Result は Ok(value) か Err(err) のいずれか一方を表す。
// ゼロ値は使用しないこと。必ず Ok / Err で生成する。
type Result[T, E any] struct {
	value T
	err   E
	ok    bool
}

// Ok は成功値を保持する Result を生成する。
func Ok[T, E any](value T) Result[T, E] {
	return Result[T, E]{value: value, ok: true}
}

// Err は失敗値を保持する Result を生成する。
func Err[T, E any](err E) Result[T, E] {
	return Result[T, E]{err: err}
}

// IsOk は成功値を保持している場合に true を返す。
func (r Result[T, E]) IsOk() bool {
	return r.ok
}

// IsErr は失敗値を保持している場合に true を返す。
func (r Result[T, E]) IsErr() bool {
	return !r.ok
}

// Get は値・エラー・成功フラグを同時に返す。
// if 文で分岐させたい呼び出し元向け。
func (r Result[T, E]) Get() (T, E, bool) {
	return r.value, r.err, r.ok
}

// Unwrap は成功値を返す。Err に対して呼ぶと panic する。
// テストコードか、Ok であることが確定している箇所でのみ使うこと。
func (r Result[T, E]) Unwrap() T {
	if !r.ok {
		panic(fmt.Sprintf("result: Unwrap called on Err: %v", r.err))
	}
	return r.value
}

// UnwrapOr は成功値を返し、Err の場合は def を返す。
func (r Result[T, E]) UnwrapOr(def T) T {
	if !r.ok {
		return def
	}
	return r.value
}

// UnwrapErr は失敗値を返す。Ok に対して呼ぶと panic する。
func (r Result[T, E]) UnwrapErr() E {
	if r.ok {
		panic(fmt.Sprintf("result: UnwrapErr called on Ok: %v", r.value))
	}
	return r.err
}

// Map は Ok の値に f を適用した新しい Result を返す。
// Err の場合 f は呼ばれず、エラーがそのまま引き継がれる。
func Map[T, U, E any](r Result[T, E], f func(T) U) Result[U, E] {
	if !r.ok {
		return Err[U](r.err)
	}
	return Ok[U, E](f(r.value))
}

// Chain は Ok の値を f に渡し、f が返す Result をそのまま返す。
// 依存関係のある失敗しうる処理を順に繋げるために使う。
func Chain[T, U, E any](r Result[T, E], f func(T) Result[U, E]) Result[U, E] {
	if !r.ok {
		return Err[U](r.err)
	}
	return f(r.value)
}

// MapErr は Err のエラーに f を適用する。Ok はそのまま返す。
func MapErr[T, E, F any](r Result[T, E], f func(E) F) Result[T, F] {
	if r.ok {
		return Ok[T, F](r.value)
	}
	return Err[T](f(r.err))
}

// Match は onOk か onErr のどちらか一方だけを呼び出し、その戻り値を返す。
func Match[T, E, U any](r Result[T, E], onOk func(T) U, onErr func(E) U) U {
	if r.ok {
		return onOk(r.value)
	}
	return onErr(r.err)
}

// FromPair は (value, error) 形式の戻り値を Result[T, error] に変換する。
func FromPair[T any](value T, err error) Result[T, error] {
	if err != nil {
		return Err[T](err)
	}
	return Ok[T, error](value)
}
