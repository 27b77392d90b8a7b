package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/hitoshi/showroom/internal/apiclient"
	"github.com/hitoshi/showroom/internal/config"
	"github.com/hitoshi/showroom/internal/database"
	"github.com/hitoshi/showroom/internal/handler"
	"github.com/hitoshi/showroom/internal/logger"
	"github.com/hitoshi/showroom/internal/metrics"
	"github.com/hitoshi/showroom/internal/middleware"
	"github.com/hitoshi/showroom/internal/security"
	"github.com/hitoshi/showroom/internal/session"
	"github.com/hitoshi/showroom/internal/view"
	"github.com/hitoshi/showroom/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップしてから環境変数（と.env）からConfigを読み込み、
// LOG_LEVELをログレベルに反映する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	level := new(slog.LevelVar)
	logger.SetupDefault(w, level)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level.Set(logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd, err := ParseCommand(args)
	if err != nil {
		return err
	}

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
		slog.String("state_backend", cfg.StateBackend),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// stateBackend はセッション状態の永続化先と、その後始末をまとめたもの。
type stateBackend struct {
	backend session.Backend
	close   func() error
}

// openStateBackend はSTATE_BACKENDに応じた永続化先を開き、疎通を確認する。
func openStateBackend(ctx context.Context, cfg *config.Config) (*stateBackend, error) {
	switch cfg.StateBackend {
	case config.StateBackendPostgres:
		db, err := openDatabase(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return &stateBackend{backend: session.NewPostgresBackend(db), close: db.Close}, nil

	case config.StateBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		slog.Info("redis connection established", slog.String("addr", cfg.RedisAddr))
		ttl := time.Duration(cfg.SessionMaxAge) * time.Second
		return &stateBackend{backend: session.NewRedisBackend(client, ttl), close: client.Close}, nil

	default:
		return &stateBackend{backend: session.NewMemoryBackend(), close: func() error { return nil }}, nil
	}
}

// openDatabase はPostgreSQLへの接続を開き、疎通を確認する。
func openDatabase(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := database.Connect(ctx, databaseURL, database.DefaultPoolConfig())
	if err != nil {
		return nil, err
	}
	slog.Info("database connection established")
	return db, nil
}

// newRegistry はアプリケーションのメトリクスとランタイムのメトリクスを登録したレジストリを返す。
func newRegistry() (*prometheus.Registry, *metrics.Collector) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, metrics.NewCollector(reg)
}

// newAPIClient はディーラーAPIクライアントを設定から生成する。
func newAPIClient(cfg *config.Config, recorder apiclient.Recorder) *apiclient.Client {
	client := apiclient.NewClient(
		&http.Client{Timeout: cfg.APITimeout},
		slog.Default(),
		apiclient.Config{
			BaseURL:      cfg.APIBaseURL,
			ImageBaseURL: cfg.ImageBaseURL,
			RateLimit:    rate.Limit(cfg.APIRateLimit),
			Burst:        apiBurst(cfg.APIRateLimit),
		},
	)
	client.SetRecorder(recorder)
	return client
}

// apiBurst は送信レートから1秒分のバーストサイズを求める。
func apiBurst(perSecond float64) int {
	if perSecond <= 1 {
		return 1
	}
	return int(math.Ceil(perSecond))
}

// rateLimiterConfig はreq/min単位の設定値をreq/secのレート制限設定に変換する。
// 0以下の値はデフォルトのままにする。
func rateLimiterConfig(cfg *config.Config) middleware.RateLimiterConfig {
	rl := middleware.DefaultRateLimiterConfig()
	if cfg.RateLimitGeneral > 0 {
		rl.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
		rl.GeneralBurst = cfg.RateLimitGeneral
	}
	if cfg.RateLimitLogin > 0 {
		rl.LoginRate = rate.Limit(float64(cfg.RateLimitLogin) / 60.0)
		rl.LoginBurst = cfg.RateLimitLogin
	}
	return rl
}

// runServe はBFFサーバーモードで起動する。
// 永続化先を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. セッション状態の永続化先
	startCtx, cancelStart := context.WithTimeout(context.Background(), 10*time.Second)
	state, err := openStateBackend(startCtx, cfg)
	cancelStart()
	if err != nil {
		return err
	}
	defer state.close()

	// 2. メトリクス
	reg, collector := newRegistry()

	// 3. ディーラーAPIクライアント
	api := newAPIClient(cfg, collector)

	// 4. セッションマネージャー
	managerCfg := session.DefaultManagerConfig()
	managerCfg.IdleTimeout = cfg.SessionIdleTTL
	managerCfg.LogoutTimeout = cfg.LogoutNotifyTimeout
	managerCfg.LandingPath = cfg.LandingPath
	manager := session.NewManager(state.backend, api.Auth, slog.Default(), managerCfg)
	manager.SetRecorder(collector)

	// 5. 画面サービス
	catalog := view.NewCatalog(api.Cars, api.Brands, api, security.NewDescriptionSanitizer(), slog.Default())
	admin := view.NewAdmin(api.Cars, api.Brands, api, slog.Default())

	// 6. ルーターの構築
	limiter := middleware.NewRateLimiter(rateLimiterConfig(cfg))

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:          slog.Default(),
		SessionProvider: manager,
		SessionCookie: middleware.SessionCookieConfig{
			Secure: cfg.CookieSecure,
			Domain: cfg.CookieDomain,
			MaxAge: cfg.SessionMaxAge,
		},
		CSRF: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		RateLimiter:       limiter,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		Guard:             middleware.GuardConfig{FallbackPath: cfg.LandingPath},
		Catalog:           catalog,
		Admin:             admin,
		Slideshow:         handler.SlideshowConfig{Interval: cfg.SlideshowInterval},
		MetricsHandler:    metrics.Handler(reg),
	})

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("BFF server starting",
			slog.String("addr", server.Addr),
			slog.String("api_base_url", cfg.APIBaseURL),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-stop:
	case err, ok := <-serveErr:
		if ok {
			limiter.Stop()
			manager.Stop()
			return fmt.Errorf("server listen error: %w", err)
		}
	}
	slog.Info("shutting down BFF server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	shutdownErr := server.Shutdown(ctx)

	limiter.Stop()
	manager.Stop()
	// 実行中のログアウト通知を待ってから永続化先を閉じる
	manager.Wait()

	if shutdownErr != nil {
		return fmt.Errorf("server shutdown failed: %w", shutdownErr)
	}

	slog.Info("BFF server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// PostgreSQLに永続化されたクライアント状態のクリーンアップを日次で実行し、
// その計測値を/metricsで公開する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	if cfg.StateBackend != config.StateBackendPostgres {
		return fmt.Errorf("worker requires STATE_BACKEND=%s (got %q)", config.StateBackendPostgres, cfg.StateBackend)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. DB接続
	db, err := openDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	// 2. メトリクス
	reg, collector := newRegistry()

	// 3. クリーンアップジョブの初期化
	cleanupJob := cleanup.NewCleanupJob(db, slog.Default())
	if cfg.StateRetentionDays > 0 {
		cleanupJob.RetentionDays = cfg.StateRetentionDays
	}
	cleanupJob.SetRecorder(collector)

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	go func() {
		select {
		case <-stop:
			slog.Info("shutting down worker...")
			cancel()
		case <-ctx.Done():
		}
	}()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           metrics.SetupMetricsRoute(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server error", slog.String("error", err.Error()))
		}
	}()

	slog.Info("worker starting",
		slog.Int("retention_days", cleanupJob.RetentionDays),
	)

	runCleanupLoop(ctx, cleanupJob, 24*time.Hour)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("metrics server shutdown failed", slog.String("error", err.Error()))
	}

	slog.Info("worker stopped gracefully")
	return nil
}

// cleanupRunner はクリーンアップジョブの実行部分。
type cleanupRunner interface {
	Run(ctx context.Context) error
}

// runCleanupLoop は起動直後に1回、その後interval毎にジョブを実行する。
// ctxがキャンセルされるまでブロックする。
func runCleanupLoop(ctx context.Context, job cleanupRunner, interval time.Duration) {
	run := func() {
		if err := job.Run(ctx); err != nil && ctx.Err() == nil {
			slog.Error("cleanup job failed", slog.String("error", err.Error()))
		}
	}

	run()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	if cfg.DatabaseURL == "" {
		return errors.New("migrate requires DATABASE_URL")
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("schema_version", uint64(version)),
	)
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
