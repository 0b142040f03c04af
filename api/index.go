package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/skrivtilmatias-del/ciderflow-hq/pkg/authz"
	"github.com/skrivtilmatias-del/ciderflow-hq/pkg/config"
	"github.com/skrivtilmatias-del/ciderflow-hq/pkg/database"
	"github.com/skrivtilmatias-del/ciderflow-hq/pkg/handlers"
	customMiddleware "github.com/skrivtilmatias-del/ciderflow-hq/pkg/middleware"
	"github.com/skrivtilmatias-del/ciderflow-hq/pkg/utils"
)

// Handler 是serverless函数的入口点
// 单体路由模式：所有API端点集中在一个Chi路由器中管理
func Handler(w http.ResponseWriter, r *http.Request) {
	// 加载配置
	cfg := config.GetCached()

	if err := cfg.Validate(); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Configuration error: "+err.Error())
		return
	}

	// 获取池化的数据库连接（跨请求复用）
	db := database.GetDatabase(database.DatabaseConfig{
		PostgresDSN: cfg.PostgresDSN,
		SupabaseURL: cfg.SupabaseURL,
		SupabaseKey: cfg.SupabaseKey,
		Debug:       cfg.Debug,
	})
	// 连接由连接池管理，无需手动关闭

	router := chi.NewRouter()

	setupMiddleware(router, cfg)
	setupRoutes(router, cfg, db)

	router.ServeHTTP(w, r)
}

// setupMiddleware 设置全局中间件
func setupMiddleware(router *chi.Mux, cfg *config.Config) {
	// 基础中间件
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	// 在日志与路由之前规范化路径与scheme/host
	router.Use(customMiddleware.Normalize())
	router.Use(customMiddleware.Logger(cfg))
	router.Use(middleware.Recoverer)

	// CORS中间件
	router.Use(customMiddleware.CORS(cfg))

	// 超时中间件（serverless函数有时间限制，留5秒缓冲）
	router.Use(middleware.Timeout(25 * time.Second))

	// 压缩中间件
	router.Use(middleware.Compress(5))

	// 请求体限制与Content-Type校验
	router.Use(customMiddleware.MaxBodySize(1 << 20))
	router.Use(customMiddleware.ContentTypeJSON)

	// 开发环境额外中间件
	if cfg.IsDevelopment() {
		router.Use(middleware.Heartbeat("/ping"))
	}
}

// setupRoutes 设置所有API路由
func setupRoutes(router *chi.Mux, cfg *config.Config, db database.DatabaseInterface) {
	// 全部处理器共享同一个成员关系判定器
	resolver := authz.NewResolver(db)

	authHandler := handlers.NewAuthHandler(cfg, db)
	orgsHandler := handlers.NewOrgsHandler(cfg, db, resolver)
	batchesHandler := handlers.NewBatchesHandler(cfg, db, resolver)
	fermentationHandler := handlers.NewFermentationHandler(cfg, db, resolver)
	tastingHandler := handlers.NewTastingHandler(cfg, db, resolver)
	packagingHandler := handlers.NewPackagingHandler(cfg, db, resolver)

	// 健康检查端点
	router.Get("/", authHandler.HealthCheck)

	// 数据库连接池状态端点（调试用）
	if cfg.IsDevelopment() {
		router.Get("/debug/db-pool", func(w http.ResponseWriter, r *http.Request) {
			utils.WriteSuccessResponse(w, database.GetConnectionStats())
		})
	}

	// API路由组
	router.Route("/api", func(r chi.Router) {
		// 公开路由（不需要认证）
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.RefreshToken)
			r.Post("/logout", authHandler.Logout)
		})

		// 需要认证的路由
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.AuthMiddleware(cfg))

			// 当前用户
			r.Get("/me", authHandler.Me)
			r.Put("/me/password", authHandler.UpdatePassword)

			// 组织与成员
			r.Route("/orgs", func(r chi.Router) {
				r.Get("/", orgsHandler.ListOrganizations)
				r.Post("/", orgsHandler.CreateOrganization)
				r.Post("/invite", orgsHandler.Invite)
				r.Get("/{id}", orgsHandler.GetOrganization)
				r.Put("/{id}", orgsHandler.UpdateOrganization)
				r.Delete("/{id}", orgsHandler.DeleteOrganization)
				r.Get("/{id}/members", orgsHandler.ListMembers)
			})

			// 邀请
			r.Route("/invitations", func(r chi.Router) {
				r.Get("/my", orgsHandler.MyInvitations)
				r.Post("/accept", orgsHandler.AcceptInvitation)
			})

			// 批次与子记录
			r.Route("/batches", func(r chi.Router) {
				r.Get("/", batchesHandler.ListBatches) // expects ?org_id=
				r.Post("/", batchesHandler.CreateBatch)
				r.Get("/{id}", batchesHandler.GetBatch)
				r.Put("/{id}", batchesHandler.UpdateBatch)
				r.Delete("/{id}", batchesHandler.DeleteBatch)
				r.Post("/{id}/advance", batchesHandler.AdvanceBatch)

				r.Get("/{id}/logs", fermentationHandler.ListLogs)
				r.Post("/{id}/logs", fermentationHandler.CreateLog)
				r.Get("/{id}/tasting-notes", tastingHandler.ListNotes)
				r.Post("/{id}/tasting-notes", tastingHandler.CreateNote)
				r.Get("/{id}/packaging", packagingHandler.ListSchedules) // ?status=upcoming|completed
				r.Post("/{id}/packaging", packagingHandler.CreateSchedule)
			})

			r.Route("/logs", func(r chi.Router) {
				r.Put("/{id}", fermentationHandler.UpdateLog)
				r.Delete("/{id}", fermentationHandler.DeleteLog)
			})

			r.Route("/tasting-notes", func(r chi.Router) {
				r.Put("/{id}", tastingHandler.UpdateNote)
				r.Delete("/{id}", tastingHandler.DeleteNote)
			})

			r.Route("/packaging", func(r chi.Router) {
				r.Put("/{id}", packagingHandler.UpdateSchedule)
				r.Delete("/{id}", packagingHandler.DeleteSchedule)
				r.Post("/{id}/complete", packagingHandler.CompleteSchedule)
			})
		})
	})

	// 404处理
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteNotFoundResponse(w, fmt.Sprintf("Route not found: %s %s", r.Method, r.URL.Path))
	})

	// 405处理
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteErrorResponseWithCode(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			fmt.Sprintf("Method %s not allowed for %s", r.Method, r.URL.Path), "")
	})
}
