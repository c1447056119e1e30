// Package router はメソッドとパスパターンの順序付きテーブルによるリクエスト振り分けを提供する。
//
// ルートは登録順に試行され、最初に完全一致したものが採用される。
// パターン同士が重なり得る場合は、より具体的なリテラルのルートを先に登録すること。
package router

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/hitoshi/authapi/internal/middleware"
	"github.com/hitoshi/authapi/internal/model"
)

// Handler はマッチしたルートの処理関数。
// paramsにはパターン中の :name セグメントに対応する値がパターン順に入る。
type Handler func(w http.ResponseWriter, r *http.Request, params []string)

// Route はメソッド・パスパターン・処理関数の組。
type Route struct {
	Method  string
	Pattern string
	Handler Handler
}

// Match はpatternとpathを比較し、一致した場合はパラメータ値を返す。
// 両者を "/" で分割して空セグメントを除いた上で、セグメント数が等しく、
// リテラルセグメントがすべて一致する場合のみ一致とみなす。
func Match(pattern, path string) ([]string, bool) {
	patternParts := splitPath(pattern)
	pathParts := splitPath(path)

	if len(patternParts) != len(pathParts) {
		return nil, false
	}

	params := []string{}
	for i, part := range patternParts {
		if strings.HasPrefix(part, ":") {
			params = append(params, pathParts[i])
			continue
		}
		if part != pathParts[i] {
			return nil, false
		}
	}
	return params, true
}

func splitPath(p string) []string {
	return strings.FieldsFunc(p, func(r rune) bool { return r == '/' })
}

// Dispatcher は登録順のルートテーブルでリクエストを振り分けるhttp.Handler。
type Dispatcher struct {
	routes []Route
	logger *slog.Logger
}

// NewDispatcher はroutesを登録順に保持するDispatcherを生成する。
func NewDispatcher(logger *slog.Logger, routes ...Route) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{logger: logger}
	d.routes = append(d.routes, routes...)
	return d
}

// Handle はルートをテーブルの末尾に追加する。
// サーバー起動前にのみ呼ぶこと。
func (d *Dispatcher) Handle(method, pattern string, h Handler) {
	d.routes = append(d.routes, Route{Method: method, Pattern: pattern, Handler: h})
}

// Routes は登録済みルートのコピーを登録順で返す。
func (d *Dispatcher) Routes() []Route {
	out := make([]Route, len(d.routes))
	copy(out, d.routes)
	return out
}

// ServeHTTP はメソッドとパスが一致する最初のルートの処理関数を呼び出す。
// パスはパーセントエンコードされたまま照合し、パラメータもデコードせずに渡す。
// 一致するルートがなければ NOT_FOUND("Route not found") を返す。
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.EscapedPath()
	for _, route := range d.routes {
		if route.Method != r.Method {
			continue
		}
		params, ok := Match(route.Pattern, path)
		if !ok {
			continue
		}
		d.invoke(route, w, r, params)
		return
	}

	middleware.WriteErrorResponse(w, r, model.NewNotFoundError("Route"))
}

// invoke は処理関数を呼び出し、panicをINTERNAL_ERRORに変換する。
// レスポンス書き込み開始後のpanicはログのみ残す。
func (d *Dispatcher) invoke(route Route, w http.ResponseWriter, r *http.Request, params []string) {
	tw := &trackingWriter{ResponseWriter: w}
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		if rec == http.ErrAbortHandler {
			panic(rec)
		}
		d.logger.Error("route handler panic",
			slog.Any("panic", rec),
			slog.String("method", r.Method),
			slog.String("route", route.Pattern),
			slog.String("path", r.URL.Path),
			slog.String("stack", string(debug.Stack())),
		)
		if !tw.wroteHeader {
			middleware.WriteInternalServerError(w, r)
		}
	}()
	route.Handler(tw, r, params)
}

// trackingWriter はレスポンスヘッダーが書き込まれたかを記録する。
type trackingWriter struct {
	http.ResponseWriter
	wroteHeader bool
}

func (t *trackingWriter) WriteHeader(code int) {
	t.wroteHeader = true
	t.ResponseWriter.WriteHeader(code)
}

func (t *trackingWriter) Write(b []byte) (int, error) {
	t.wroteHeader = true
	return t.ResponseWriter.Write(b)
}

func (t *trackingWriter) Unwrap() http.ResponseWriter {
	return t.ResponseWriter
}
