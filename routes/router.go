package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/cppla/sharebox/config"
	"github.com/cppla/sharebox/controllers"
	"github.com/cppla/sharebox/middleware"
	"github.com/cppla/sharebox/services"
	"github.com/cppla/sharebox/storage"
	"github.com/cppla/sharebox/utils"
	"github.com/cppla/sharebox/web"
)

// SetupRouter wires routes, middlewares, and controllers. rc may be nil.
func SetupRouter(db *gorm.DB, store storage.Store, rc *redis.Client) *gin.Engine {
	// Load config and set Gin mode from configuration
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.MaxMultipartMemory = 32 << 20
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(ginzap.Ginzap(gl, time.RFC3339, true))
		r.Use(ginzap.RecoveryWithZap(gl, true))
	} else {
		utils.Sugar.Warnf("gin file logger unavailable path=%s err=%v", cfg.GinPath, err)
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	log := utils.Logger
	settings := services.NewSettingsService(db, rc, log)
	policy := services.NewPolicy(settings, services.NewCounter(cfg.QuotaBackend, db, rc), log)
	creator := services.NewCreator(db, store, policy, log, cfg.BaseURL, int64(cfg.MaxUploadMB)<<20)
	gate := services.NewGate(db, log)
	admin := services.NewAdmin(db, store, settings, log)

	auth := middleware.NewAuth(db)
	authLimit := middleware.NewRateLimiter(cfg.RateLimitPerMinute).Middleware()
	accessLimit := middleware.NewRateLimiter(cfg.RateLimitPerMinute).Middleware()

	authController := controllers.NewAuthController(db, settings)
	contentController := controllers.NewContentController(creator, gate, store)
	adminController := controllers.NewAdminController(admin)
	miscController := controllers.NewMiscController(settings, rc)

	r.StaticFS("/static", http.FS(web.Static()))
	r.GET("/url/:code", accessLimit, contentController.Redirect)

	api := r.Group("/api/v1")
	api.GET("/health", miscController.Health)
	api.GET("/theme", miscController.Theme)
	api.GET("/themes", miscController.Themes)
	api.POST("/qr", accessLimit, miscController.QRCode)

	authGroup := api.Group("/auth")
	authGroup.Use(authLimit)
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.GET("/captcha", authController.Captcha)
	authGroup.GET("/oauth/:provider/login", authController.OAuthRedirect)
	authGroup.GET("/oauth/:provider/callback", authController.OAuthCallback)
	authGroup.POST("/logout", auth.Required(), authController.Logout)
	authGroup.GET("/me", auth.Required(), authController.Me)

	content := api.Group("/content")
	content.GET("/mine", auth.Required(), contentController.Mine)
	content.GET("/file/:code", accessLimit, contentController.Download)
	content.POST("/:kind", auth.Optional(), accessLimit, contentController.Create)
	content.POST("/:kind/:code", accessLimit, contentController.Access)
	content.DELETE("/:kind/:code", auth.Required(), contentController.Delete)

	adminGroup := api.Group("/admin")
	adminGroup.Use(auth.AdminRequired())
	adminGroup.GET("", adminController.Dashboard)
	adminGroup.PATCH("/users/:id", adminController.UpdateUser)
	adminGroup.DELETE("/users/:id", adminController.DeleteUser)
	adminGroup.DELETE("/content/:kind/:id", adminController.DeleteContent)
	adminGroup.GET("/settings", adminController.GetSettings)
	adminGroup.PATCH("/settings", adminController.UpdateSettings)

	r.NoRoute(controllers.NotFound)

	return r
}
