package middleware

import (
	"net/http"
	"strings"
)

// corsHeaders は全レスポンスに付与するCORSヘッダーを組み立てる。
func corsHeaders(allowedOrigin string) http.Header {
	h := http.Header{}
	h.Set("Access-Control-Allow-Origin", allowedOrigin)
	h.Set("Access-Control-Allow-Methods", strings.Join([]string{
		http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions,
	}, ", "))
	h.Set("Access-Control-Allow-Headers", strings.Join([]string{"Content-Type", UserIDHeader, RequestIDHeader}, ", "))
	h.Set("Access-Control-Expose-Headers", RequestIDHeader)
	h.Set("Access-Control-Max-Age", "86400")
	return h
}

// NewCORSMiddleware はallowedOriginからのブラウザアクセスを許可する。
// プリフライト(OPTIONS)は後続に渡さず204で終える。
func NewCORSMiddleware(allowedOrigin string) func(next http.Handler) http.Handler {
	fixed := corsHeaders(allowedOrigin)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for k, v := range fixed {
				h[k] = append([]string(nil), v...)
			}
			h.Add("Vary", "Origin")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
