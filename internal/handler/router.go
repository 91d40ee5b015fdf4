package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/shareit/internal/middleware"
)

// healthCheckTimeout はヘルスチェック時のDB疎通確認のタイムアウト。
const healthCheckTimeout = 2 * time.Second

// HealthChecker はヘルスチェックで疎通を確認する依存先。*sql.DBが満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	MetricsRecorder   middleware.HTTPRecorder
	MetricsHandler    http.Handler
	HealthChecker     HealthChecker

	// 予約の日時検証に使う現在時刻。nilの場合はtime.Now
	Clock func() time.Time

	UserService    UserServiceInterface
	ItemService    ItemServiceInterface
	BookingService BookingServiceInterface
	RequestService RequestServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Recovery → Logging → Metrics → SecurityHeaders → CORS
//	  /items, /bookings, /requests: → UserID → RateLimit(General)
//	  POST /bookings: → RateLimit(Booking)
//
// /health、/metrics、/users はユーザーIDヘッダーを要求しない。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.MetricsRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.MetricsRecorder))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeAPIErrorResponse(w, http.StatusNotFound, notFoundRouteError())
	})

	userHandler := NewUserHandler(deps.UserService)
	itemHandler := NewItemHandler(deps.ItemService)
	bookingHandler := NewBookingHandler(deps.BookingService, deps.Clock)
	requestHandler := NewRequestHandler(deps.RequestService)

	// --- ユーザーIDヘッダー不要のルート ---

	r.Get("/health", healthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/users", func(r chi.Router) {
		r.Post("/", userHandler.Create)
		r.Get("/", userHandler.List)
		r.Route("/{userId}", func(r chi.Router) {
			r.Get("/", userHandler.Get)
			r.Patch("/", userHandler.Update)
			r.Delete("/", userHandler.Delete)
		})
	})

	// --- ユーザーIDヘッダーが必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewUserIDMiddleware())
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.GeneralMiddleware())
		}

		r.Route("/items", func(r chi.Router) {
			r.Post("/", itemHandler.Create)
			r.Get("/", itemHandler.ListByOwner)
			r.Get("/search", itemHandler.Search)
			r.Route("/{itemId}", func(r chi.Router) {
				r.Get("/", itemHandler.Get)
				r.Patch("/", itemHandler.Update)
				r.Delete("/", itemHandler.Delete)
				r.Post("/comment", itemHandler.CreateComment)
			})
		})

		r.Route("/bookings", func(r chi.Router) {
			// POST /bookings - 予約作成（予約専用レート制限を追加）
			if deps.RateLimiter != nil {
				r.With(deps.RateLimiter.BookingMiddleware()).Post("/", bookingHandler.Create)
			} else {
				r.Post("/", bookingHandler.Create)
			}
			r.Get("/", bookingHandler.ListByBooker)
			r.Get("/owner", bookingHandler.ListByOwner)
			r.Route("/{bookingId}", func(r chi.Router) {
				r.Get("/", bookingHandler.Get)
				r.Patch("/", bookingHandler.Approve)
			})
		})

		r.Route("/requests", func(r chi.Router) {
			r.Post("/", requestHandler.Create)
			r.Get("/", requestHandler.ListOwn)
			r.Get("/all", requestHandler.ListOthers)
			r.Get("/{requestId}", requestHandler.Get)
		})
	})

	return r
}

// healthHandler はDBへの疎通を確認し、200または503を返すハンドラーを生成する。
func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			defer cancel()
			if err := checker.PingContext(ctx); err != nil {
				slog.WarnContext(r.Context(), "health check failed", slog.String("error", err.Error()))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
