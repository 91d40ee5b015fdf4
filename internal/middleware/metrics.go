package middleware

import (
	"net/http"
	"time"
)

// HTTPRecorder はHTTPリクエストの計測値を記録する。
type HTTPRecorder interface {
	RecordHTTPRequest(method, route string, statusCode int, duration time.Duration)
}

// NewMetricsMiddleware はリクエストごとにメソッド、ルートパターン、ステータス、処理時間を記録するミドルウェアを返す。
// パスパラメータによるラベルの増殖を防ぐため、実パスではなくchiのルートパターンを使う。
func NewMetricsMiddleware(recorder HTTPRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newResponseRecorder(w)

			next.ServeHTTP(rec, r)

			recorder.RecordHTTPRequest(r.Method, routePattern(r), rec.status, time.Since(start))
		})
	}
}
