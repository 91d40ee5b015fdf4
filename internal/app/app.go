package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/shareit/internal/booking"
	"github.com/hitoshi/shareit/internal/config"
	"github.com/hitoshi/shareit/internal/database"
	"github.com/hitoshi/shareit/internal/event"
	"github.com/hitoshi/shareit/internal/handler"
	"github.com/hitoshi/shareit/internal/item"
	"github.com/hitoshi/shareit/internal/logger"
	"github.com/hitoshi/shareit/internal/metrics"
	"github.com/hitoshi/shareit/internal/middleware"
	"github.com/hitoshi/shareit/internal/mq"
	"github.com/hitoshi/shareit/internal/repository"
	"github.com/hitoshi/shareit/internal/request"
	"github.com/hitoshi/shareit/internal/security"
	"github.com/hitoshi/shareit/internal/user"
	"github.com/hitoshi/shareit/internal/worker/notify"
)

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, os.Getenv("LOG_LEVEL"))

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. .envから読み込んだLOG_LEVELを反映する
	logger.SetupDefault(w, cfg.LogLevel)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// argsにはos.Args[1:]を渡す。SIGINTまたはSIGTERMを受信すると実行中のコマンドを停止する。
func Run(w io.Writer, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := NewRootCommand(w)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	slog.Info("starting application",
		slog.String("command", CommandServe),
		slog.String("port", cfg.ServerPort),
		slog.Bool("events_enabled", cfg.EventsEnabled()),
	)

	// 1. DB接続
	db, err := database.Connect(ctx, cfg.DatabaseURL, poolConfig(cfg), 10*time.Second)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	itemRepo := repository.NewPostgresItemRepo(db)
	bookingRepo := repository.NewPostgresBookingRepo(db)
	requestRepo := repository.NewPostgresRequestRepo(db)
	commentRepo := repository.NewPostgresCommentRepo(db)

	// 3. メトリクスとイベント配信
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	publisher, closePublisher, err := newPublisher(cfg)
	if err != nil {
		return err
	}
	defer closePublisher()

	// 4. ドメインサービスの初期化
	sanitizer := security.NewTextSanitizer()

	userService := user.NewService(userRepo)
	itemService := item.NewService(itemRepo, userRepo, requestRepo, bookingRepo, commentRepo, sanitizer)
	requestService := request.NewService(requestRepo, userRepo, itemRepo, sanitizer)
	bookingService := booking.NewService(bookingRepo, userRepo, itemRepo,
		booking.WithPublisher(publisher),
		booking.WithMetrics(collector),
		booking.WithLogger(slog.Default()),
	)

	// 5. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitBooking),
	)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		MetricsRecorder:   collector,
		MetricsHandler:    metrics.Handler(reg),
		HealthChecker:     db,

		UserService:    userService,
		ItemService:    itemService,
		BookingService: bookingService,
		RequestService: requestService,
	})

	// 6. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("API server starting", slog.String("addr", server.Addr))
	if err := serveUntilDone(ctx, server, cfg.ShutdownTimeout); err != nil {
		return err
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 予約イベントキューを購読して通知を発行し、メトリクスを別ポートで公開する。
func runWorker(ctx context.Context, cfg *config.Config) error {
	if !cfg.EventsEnabled() {
		return errors.New("worker requires RABBITMQ_URL to be set")
	}

	slog.Info("starting application",
		slog.String("command", CommandWorker),
		slog.String("queue", cfg.BookingEventsQueue),
		slog.String("metrics_port", cfg.WorkerMetricsPort),
	)

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           metrics.SetupMetricsRoute(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- serveUntilDone(ctx, metricsServer, cfg.ShutdownTimeout)
	}()

	connect := func() (mq.Backend, error) {
		return mq.NewRabbitMQClient(mq.RabbitMQConfig{
			URL:           cfg.RabbitMQURL,
			PrefetchCount: cfg.RabbitMQPrefetch,
		})
	}
	consumer := notify.NewConsumer(connect, cfg.BookingEventsQueue, collector, slog.Default())
	if err := consumer.Run(ctx); err != nil {
		return err
	}

	cancel()
	if err := <-serverErr; err != nil {
		return err
	}

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate は未適用のデータベースマイグレーションをすべて適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runMigrateDown は直近のマイグレーションをsteps件取り消す。
func runMigrateDown(cfg *config.Config, steps int) error {
	slog.Info("rolling back database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		slog.Int("steps", steps),
	)

	if err := database.RollbackMigrations(cfg.DatabaseURL, steps); err != nil {
		return fmt.Errorf("migration rollback failed: %w", err)
	}

	slog.Info("database migrations rolled back successfully")
	return nil
}

// runMigrateVersion は適用済みのマイグレーションバージョンをwに出力する。
func runMigrateVersion(w io.Writer, cfg *config.Config) error {
	status, err := database.CurrentMigrationStatus(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to read migration status: %w", err)
	}

	_, err = fmt.Fprintf(w, "version=%d dirty=%t\n", status.Version, status.Dirty)
	return err
}

// runHealthcheck はヘルスチェックを実行する。
// /health エンドポイントにHTTPリクエストを送り、200以外ならエラーを返す。
func runHealthcheck(ctx context.Context, target string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

func healthcheckURL(port string) string {
	return fmt.Sprintf("http://localhost:%s/health", port)
}

// poolConfig は設定値からコネクションプールの設定を組み立てる。
func poolConfig(cfg *config.Config) database.PoolConfig {
	return database.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	}
}

// newPublisher はRABBITMQ_URLの有無に応じて予約イベントのPublisherを生成する。
// 返す関数でブローカー接続を閉じる。
func newPublisher(cfg *config.Config) (event.Publisher, func(), error) {
	if !cfg.EventsEnabled() {
		slog.Info("booking events disabled: RABBITMQ_URL is not set")
		return event.NopPublisher{}, func() {}, nil
	}

	client, err := mq.NewRabbitMQClient(mq.RabbitMQConfig{
		URL:           cfg.RabbitMQURL,
		PrefetchCount: cfg.RabbitMQPrefetch,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to message broker: %w", err)
	}

	closeFn := func() {
		if err := client.Close(); err != nil {
			slog.Warn("failed to close message broker connection", slog.String("error", err.Error()))
		}
	}
	return event.NewBrokerPublisher(client, cfg.BookingEventsQueue), closeFn, nil
}

// serveUntilDone はサーバーを起動し、ctxがキャンセルされるとtimeout以内にシャットダウンする。
func serveUntilDone(ctx context.Context, server *http.Server, timeout time.Duration) error {
	listenErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
		close(listenErr)
	}()

	select {
	case err := <-listenErr:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down server...", slog.String("addr", server.Addr))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
