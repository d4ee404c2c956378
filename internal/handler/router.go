package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/folio/internal/middleware"
)

// HealthChecker はヘルスチェック対象への疎通確認インターフェース。
// *sql.DBがそのまま満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// HealthChecker はnil許容。未設定の場合、/healthは常にokを返す。
	HealthChecker HealthChecker

	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	AdminAPIKey       string
	PageViewRecorder  middleware.PageViewRecorder
	HTTPMetrics       middleware.HTTPMetrics

	// 認証
	AuthService AuthServiceInterface
	AuthMetrics AuthMetrics

	// 問い合わせ
	ContactService ContactServiceInterface
	ContactMetrics ContactMetrics

	// 公開コンテンツ
	Skills      SkillListerInterface
	Projects    ProjectFinderInterface
	Experiences ExperienceListerInterface
	Resumes     ResumeFinderInterface

	// 統計
	StatsService StatsServiceInterface

	// 管理
	AdminMessages AdminMessageRepoInterface

	// 静的ファイル配信ディレクトリ（空なら配信しない）
	StaticDir string
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → Metrics → PageView → RateLimit
//
// 管理ルート（/api/admin/*）はさらにAdminKey認証の内側に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}
	if deps.HTTPMetrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.HTTPMetrics))
	}
	if deps.PageViewRecorder != nil {
		r.Use(middleware.NewPageViewMiddleware(deps.PageViewRecorder))
	}
	if deps.RateLimiter != nil {
		r.Use(deps.RateLimiter.Middleware())
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthMetrics)
	contactHandler := NewContactHandler(deps.ContactService, deps.ContactMetrics)
	contentHandler := NewContentHandler(deps.Skills, deps.Projects, deps.Experiences, deps.Resumes)
	statsHandler := NewStatsHandler(deps.StatsService)
	adminHandler := NewAdminHandler(deps.AdminMessages)

	// ヘルスチェック
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if deps.HealthChecker != nil {
			if err := deps.HealthChecker.PingContext(r.Context()); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"unhealthy"}`))
				return
			}
		}
		writeJSON(w, map[string]string{"status": "ok"})
	})

	// --- 公開API ---
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/telegram", authHandler.Telegram)
		r.Post("/contact", contactHandler.Send)

		r.Get("/skills", contentHandler.ListSkills)
		r.Get("/projects", contentHandler.ListProjects)
		r.Get("/projects/{id}", contentHandler.GetProject)
		r.Get("/experience", contentHandler.ListExperience)
		r.Get("/cv", contentHandler.GetResume)
		r.Get("/cv/file", contentHandler.DownloadResume)
		r.Get("/stats", statsHandler.GetStats)

		// --- 管理API ---
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.NewAdminKeyMiddleware(deps.AdminAPIKey))

			r.Get("/messages", adminHandler.ListMessages)
			r.Patch("/messages/{id}/status", adminHandler.UpdateMessageStatus)
		})
	})

	// 静的ファイル配信（SPAフロントエンドのビルド成果物）
	if deps.StaticDir != "" {
		fileServer := http.FileServer(http.Dir(deps.StaticDir))
		r.Handle("/static/*", http.StripPrefix("/static/", fileServer))
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			http.ServeFile(w, r, deps.StaticDir+"/index.html")
		})
	}

	return r
}
