package router

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/dxbfab/site/internal/handler"
	"github.com/dxbfab/site/internal/logging"
)

const sessionName = "dxbfab_session"

// Deps 汇总构建路由所需的依赖
type Deps struct {
	API            *handler.API
	Logger         *zap.Logger
	SessionSecret  string
	SecureCookies  bool
	UploadDir      string
	UploadURL      string
	TrustedProxies []string
}

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(deps Deps) *gin.Engine {
	logger := logging.OrNop(deps.Logger)

	r := gin.New()
	r.MaxMultipartMemory = 32 << 20
	if err := r.SetTrustedProxies(deps.TrustedProxies); err != nil {
		logger.Warn("invalid trusted proxies, trusting none", zap.Error(err))
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(logging.Middleware(logger), logging.Recovery(logger))

	// 配置会话中间件
	store := cookie.NewStore([]byte(deps.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   7 * 24 * 3600,
		HttpOnly: true,
		Secure:   deps.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))

	// 本地存储的图片直接由 gin 提供
	if deps.UploadDir != "" {
		uploadURL := strings.TrimRight(deps.UploadURL, "/")
		if uploadURL == "" {
			uploadURL = "/uploads"
		}
		r.Static(uploadURL, deps.UploadDir)
	}

	api := deps.API

	r.GET("/healthz", api.HealthCheck)
	r.GET("/sitemap.xml", api.Sitemap)
	r.GET("/robots.txt", api.Robots)

	public := r.Group("/api")
	{
		public.GET("/divisions", api.ListDivisions)
		public.GET("/gallery", api.ListGallery)
		public.GET("/gallery/featured", api.ListFeaturedGallery)
		public.GET("/gallery/capabilities", api.ListCapabilityCards)
		public.POST("/contact", api.SubmitContact)
		public.GET("/og", api.OGImage)
	}

	// 后台管理接口
	admin := r.Group("/admin/api")
	{
		admin.POST("/login", api.Login)

		auth := admin.Group("")
		auth.Use(handler.AuthRequired())
		{
			auth.POST("/logout", api.Logout)
			auth.GET("/me", api.Me)

			auth.GET("/gallery", api.AdminListGallery)
			auth.POST("/gallery/upload", api.UploadGalleryImages)
			auth.POST("/gallery/reorder", api.ReorderGallery)
			auth.PUT("/gallery/:id", api.UpdateGalleryImage)
			auth.DELETE("/gallery/:id", api.DeleteGalleryImage)
			auth.POST("/gallery/:id/featured", api.SetGalleryFeatured)
			auth.POST("/gallery/:id/capability-slot", api.AssignCapabilitySlot)

			auth.GET("/contacts", api.ListContacts)

			auth.GET("/settings", api.GetSystemSettings)
			auth.PUT("/settings", api.UpdateSystemSettings)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return r
}

// WithCORS wraps h so the single-page frontend can call the API with
// credentials from the listed origins.
func WithCORS(h http.Handler, origins []string) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Retry-After", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler(h)
}
