package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	"github.com/hitoshi/showroom/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger

	// ミドルウェア依存
	SessionProvider   middleware.StoreProvider
	SessionCookie     middleware.SessionCookieConfig
	CSRF              middleware.CSRFConfig
	RateLimiter       *middleware.RateLimiter
	CORSAllowedOrigin string
	Guard             middleware.GuardConfig

	// 画面
	Catalog CatalogService
	Admin   AdminService

	// スライドショー
	Slideshow SlideshowConfig

	// Prometheusのスクレイプ用ハンドラー（nilの場合は/metricsを公開しない）
	MetricsHandler http.Handler
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS → Session → CSRF → RateLimit(General) → Guard(Admin)
//
// /health と /metrics はセッションの外に配置する。
// ログイン系のルートにはログイン専用のレート制限を追加する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware(deps.Logger))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(newCORS(deps.CORSAllowedOrigin).Handler)

	catalogHandler := NewCatalogHandler(deps.Catalog, deps.Logger)
	adminHandler := NewAdminHandler(deps.Admin, deps.Logger)
	authHandler := NewAuthHandler(deps.Logger)
	slideshowConfig := deps.Slideshow
	if len(slideshowConfig.AllowedOrigins) == 0 && deps.CORSAllowedOrigin != "" {
		slideshowConfig.AllowedOrigins = []string{deps.CORSAllowedOrigin}
	}
	slideshowHandler := NewSlideshowHandler(deps.Catalog, slideshowConfig, deps.Logger)

	// --- セッション不要のルート ---
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// --- セッションが必要なルート ---
	// ミドルウェアスタック: Session → CSRF → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionProvider, deps.SessionCookie))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRF))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRF))

		// 公開画面
		r.Get("/api/home", catalogHandler.Home)
		r.Route("/api/cars", func(r chi.Router) {
			r.Get("/", catalogHandler.ListCars)
			r.Get("/{id}", catalogHandler.GetCar)
		})
		r.Route("/api/brands", func(r chi.Router) {
			r.Get("/", catalogHandler.ListBrands)
			r.Get("/{id}/cars", catalogHandler.ListBrandCars)
		})
		r.Method(http.MethodGet, "/ws/cars/{id}/slideshow", slideshowHandler)

		// 認証
		r.Route("/api/auth", func(r chi.Router) {
			r.With(deps.RateLimiter.LoginMiddleware()).Post("/login", authHandler.Login)
			r.With(deps.RateLimiter.LoginMiddleware()).Post("/register", authHandler.Register)
			r.Post("/logout", authHandler.Logout)
			r.Get("/me", authHandler.Me)
			r.Post("/refresh", authHandler.Refresh)
		})

		// 管理画面
		r.Route("/api/admin", func(r chi.Router) {
			r.With(deps.RateLimiter.LoginMiddleware()).Post("/login", authHandler.AdminLogin)

			r.Group(func(r chi.Router) {
				r.Use(middleware.NewGuardMiddleware(middleware.PolicyAdmin, deps.Guard))

				r.Get("/dashboard", adminHandler.Dashboard)

				r.Route("/cars", func(r chi.Router) {
					r.Post("/", adminHandler.CreateCar)
					r.Route("/{id}", func(r chi.Router) {
						r.Put("/", adminHandler.UpdateCar)
						r.Delete("/", adminHandler.DeleteCar)
						r.Post("/images", adminHandler.UploadImages)
						r.Delete("/images/{imageID}", adminHandler.DeleteImage)
						r.Put("/images/{imageID}/primary", adminHandler.SetPrimaryImage)
					})
				})

				r.Post("/specifications/move", adminHandler.MoveSpecification)

				r.Route("/brands", func(r chi.Router) {
					r.Post("/", adminHandler.CreateBrand)
					r.Post("/{id}", adminHandler.UpdateBrand)
					r.Delete("/{id}", adminHandler.DeleteBrand)
				})
			})
		})
	})

	return r
}

// newCORS はフロントエンドのオリジンからのCookie付きリクエストを許可するCORS設定を返す。
// オリジンが未設定の場合はクロスオリジンのリクエストを許可しない。
func newCORS(allowedOrigin string) *cors.Cors {
	return cors.New(cors.Options{
		AllowOriginFunc: func(origin string) bool {
			return allowedOrigin != "" && origin == allowedOrigin
		},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           3600,
	})
}
