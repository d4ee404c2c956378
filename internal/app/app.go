package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/folio/internal/auth"
	"github.com/hitoshi/folio/internal/config"
	"github.com/hitoshi/folio/internal/contact"
	"github.com/hitoshi/folio/internal/database"
	"github.com/hitoshi/folio/internal/guard"
	"github.com/hitoshi/folio/internal/handler"
	"github.com/hitoshi/folio/internal/logger"
	"github.com/hitoshi/folio/internal/metrics"
	"github.com/hitoshi/folio/internal/middleware"
	"github.com/hitoshi/folio/internal/notify"
	"github.com/hitoshi/folio/internal/repository"
	"github.com/hitoshi/folio/internal/security"
	"github.com/hitoshi/folio/internal/stats"
	"github.com/hitoshi/folio/internal/worker/cleanup"
)

// guardCleanupInterval はインメモリ試行ストアの期限切れキー掃除間隔。
const guardCleanupInterval = 10 * time.Minute

// pageViewTimeout は切り離したページビュー書き込みの制限時間。
const pageViewTimeout = 5 * time.Second

// newPageViewRecorder はページビューを統計サービスへ記録するレコーダーを返す。
// レスポンスがDB書き込みを待たないよう、リクエストから切り離した
// コンテキストで非同期に書き込む。collectorはnil許容。
func newPageViewRecorder(statsService *stats.Service, collector *metrics.Collector) middleware.PageViewRecorder {
	return func(r *http.Request, ip string) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), pageViewTimeout)
		go func() {
			defer cancel()
			statsService.Record(ctx, ip)
			if collector != nil {
				collector.RecordPageView()
			}
		}()
	}
}

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// newAttemptStore は問い合わせフォームの試行履歴ストアを生成する。
// REDIS_URLが設定されていればRedis、未設定ならインメモリストアを使う。
// Redisへの接続に失敗した場合は起動エラーとする（サイレントに
// インメモリへフォールバックすると複数レプリカ時に制限が骨抜きになるため）。
func newAttemptStore(cfg *config.Config) (guard.AttemptStore, error) {
	if cfg.RedisURL == "" {
		slog.Info("using in-memory attempt store for contact form")
		return guard.NewMemoryStore(guardCleanupInterval), nil
	}

	store, err := guard.NewRedisStore(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	slog.Info("using redis attempt store for contact form")
	return store, nil
}

// newNotifier は設定に応じた通知チャネルを構築する。
// Telegram・メールともに未設定の場合はnilを返し、通知は行われない。
func newNotifier(cfg *config.Config) notify.Notifier {
	var channels []notify.Notifier

	if cfg.TelegramEnabled() && cfg.TelegramChatID != "" {
		channels = append(channels, notify.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
	}

	if cfg.MailEnabled() {
		channels = append(channels, notify.NewEmailNotifier(notify.EmailConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			To:       cfg.ContactEmail,
		}))
	}

	if len(channels) == 0 {
		slog.Warn("no notification channel configured; contact messages will be stored without notification")
		return nil
	}

	return notify.NewFanout(channels...)
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	telegramUserRepo := repository.NewPostgresTelegramUserRepo(db)
	skillRepo := repository.NewPostgresSkillRepo(db)
	projectRepo := repository.NewPostgresProjectRepo(db)
	experienceRepo := repository.NewPostgresExperienceRepo(db)
	resumeRepo := repository.NewPostgresResumeRepo(db)
	contactRepo := repository.NewPostgresContactRepo(db)
	pageViewRepo := repository.NewPostgresPageViewRepo(db)

	// 3. セキュリティサービスの初期化
	fetchGuard := security.NewFetchGuard()
	sanitizer := security.NewTextSanitizer()

	// 4. Telegramログイン認証の初期化
	verifier := auth.NewVerifier(cfg.TelegramBotToken)
	if !verifier.Enabled() {
		slog.Warn("TELEGRAM_BOT_TOKEN is not set; telegram login and notification are disabled")
	}
	avatarFetcher := auth.NewAvatarFetcher(fetchGuard)
	authService := auth.NewService(verifier, telegramUserRepo, avatarFetcher)

	// 5. 問い合わせ受付の初期化
	attemptStore, err := newAttemptStore(cfg)
	if err != nil {
		return err
	}
	contactGuard := guard.New(attemptStore, cfg.ContactRateLimit, cfg.ContactRateWindow)
	contactService := contact.NewService(contactRepo, telegramUserRepo, contactGuard, sanitizer, newNotifier(cfg))

	// 6. 統計サービスの初期化
	statsService := stats.NewService(pageViewRepo)

	// 7. メトリクスの初期化（:METRICS_PORTの別リスナーで公開する）
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	metricsServer := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: metrics.SetupMetricsRoute(registry),
	}
	go func() {
		slog.Info("metrics server starting", slog.String("addr", metricsServer.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server listen error", slog.String("error", err.Error()))
		}
	}()

	// 8. ルーターの構築
	deps := &handler.RouterDeps{
		HealthChecker:     db,
		Logger:            slog.Default(),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		// RateLimitGeneralはreq/min単位なのでreq/secに変換する
		RateLimiter: middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:            rate.Limit(float64(cfg.RateLimitGeneral) / 60.0),
			Burst:           cfg.RateLimitGeneral,
			CleanupInterval: 10 * time.Minute,
		}),
		AdminAPIKey: cfg.AdminAPIKey,
		HTTPMetrics: collector,
		PageViewRecorder: newPageViewRecorder(statsService, collector),

		AuthService: authService,
		AuthMetrics: collector,

		ContactService: contactService,
		ContactMetrics: collector,

		Skills:      skillRepo,
		Projects:    projectRepo,
		Experiences: experienceRepo,
		Resumes:     resumeRepo,

		StatsService: statsService,

		AdminMessages: contactRepo,

		StaticDir: cfg.StaticDir,
	}

	router := handler.NewRouter(deps)

	// 9. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := metricsServer.Shutdown(ctx); err != nil {
		slog.Error("metrics server shutdown failed", slog.String("error", err.Error()))
	}

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 保持期間を超過した訪問者ハッシュを日次で削除する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. クリーンアップジョブの初期化
	pageViewRepo := repository.NewPostgresPageViewRepo(db)
	cleanupJob := cleanup.NewJob(pageViewRepo, slog.Default())
	cleanupJob.RetentionDays = cfg.PageViewRetentionDays

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Int("retention_days", cfg.PageViewRetentionDays),
	)

	// 起動直後に1回実行し、以降は日次で実行する
	if err := cleanupJob.Run(ctx); err != nil {
		slog.Error("cleanup job failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped gracefully")
			return nil
		case <-ticker.C:
			if err := cleanupJob.Run(ctx); err != nil {
				slog.Error("cleanup job failed", slog.String("error", err.Error()))
			}
		}
	}
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
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

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
