package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/campuspoint/internal/metrics"
	"github.com/hitoshi/campuspoint/internal/middleware"
)

// HealthChecker はヘルスチェックが必要とするDB疎通確認のインターフェース。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenVerifier     middleware.TokenVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	MetricsCollector  *metrics.Collector
	MetricsGatherer   prometheus.Gatherer

	// ヘルスチェック
	HealthChecker HealthChecker

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// プロフィール
	ProfileService ProfileServiceInterface
	AvatarStore    AvatarStore
	UploadMaxSize  int64

	// 購入・ポイント
	PurchaseService PurchaseServiceInterface
	PointsService   PointsServiceInterface

	// リアルタイム通知
	RealtimeHandler http.Handler

	// 静的ページ
	StaticDir string
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → SecurityHeaders → Logging → Metrics → Recovery
//	（保護ルートのみ）→ Session → RateLimit(General)
//
// /ws のハンドシェイク認証はSessionMiddlewareを通さず、リアルタイム
// ハンドラー自身が行う。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(slog.Default()))
	r.Use(middleware.NewMetricsMiddleware(deps.MetricsCollector))
	r.Use(middleware.NewRecoveryMiddleware())

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	profileHandler := NewProfileHandler(deps.ProfileService, deps.AvatarStore, deps.UploadMaxSize)
	purchaseHandler := NewPurchaseHandler(deps.PurchaseService)
	pointsHandler := NewPointsHandler(deps.PointsService)
	pageHandler := NewPageHandler(deps.TokenVerifier, deps.StaticDir)

	// --- 認証不要のルート ---

	r.Get("/", pageHandler.Index)
	r.Get("/dashboard", pageHandler.Dashboard)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(deps.StaticDir))))

	r.Get("/health", newHealthHandler(deps.HealthChecker))
	r.Handle("/metrics", metrics.Handler(deps.MetricsGatherer))

	r.Post("/api/register", authHandler.Register)
	r.Post("/api/login", authHandler.Login)
	r.Post("/api/logout", authHandler.Logout)

	// リアルタイム接続（ハンドシェイク時にCookieを自前で検証する）
	r.Get("/ws", deps.RealtimeHandler.ServeHTTP)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.TokenVerifier))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/api/profile", func(r chi.Router) {
			r.Get("/", profileHandler.Get)
			r.Put("/", profileHandler.Update)
		})

		// アップロード専用レート制限を追加
		r.With(deps.RateLimiter.UploadMiddleware()).
			Post("/api/upload-profile-pic", profileHandler.UploadAvatar)

		r.Route("/api/purchases", func(r chi.Router) {
			r.Get("/", purchaseHandler.List)
			r.Post("/", purchaseHandler.Create)
		})

		r.Post("/api/points/convert", pointsHandler.Convert)
	})

	return r
}

// newHealthHandler はDB疎通を確認するヘルスチェックハンドラーを返す。
// GET /health
func newHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := checker.PingContext(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	}
}
