package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/cppla/forumkit/config"
	"github.com/cppla/forumkit/controllers"
	"github.com/cppla/forumkit/middleware"
	"github.com/cppla/forumkit/services"
	"github.com/cppla/forumkit/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB) *gin.Engine {
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
	r.Use(middleware.RequestID())
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	opts := services.Options{
		ReportThreshold:  cfg.ReportThreshold,
		AuthorEditWindow: time.Duration(cfg.AuthorEditWindowHours) * time.Hour,
	}

	forumCtl := controllers.NewForumController(services.NewForumService(db))
	postCtl := controllers.NewPostController(services.NewPostService(db, opts))
	modCtl := controllers.NewModerationController(services.NewModerationService(db))
	reportCtl := controllers.NewReportController(services.NewReportService(db, opts))
	statsCtl := controllers.NewStatsController(db)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")

	// Public reads; an optional token upgrades visibility for staff.
	public := api.Group("")
	public.Use(middleware.OptionalAuth())
	public.GET("/forums", forumCtl.ListForums)
	public.GET("/forums/:id", forumCtl.GetForum)
	public.GET("/forums/:id/topics", postCtl.ListTopics)
	public.GET("/posts/:id", postCtl.GetPost)
	public.GET("/posts/:id/replies", postCtl.ListReplies)
	public.GET("/stats", statsCtl.GetStats)

	// Writes require authentication and are rate limited per IP.
	auth := api.Group("")
	auth.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())
	{
		auth.POST("/forums", forumCtl.CreateForum)
		auth.PATCH("/forums/:id", forumCtl.UpdateForum)
		auth.DELETE("/forums/:id", forumCtl.DeleteForum)
		auth.POST("/forums/:id/moderators", forumCtl.AddModerator)
		auth.DELETE("/forums/:id/moderators", forumCtl.RemoveModerator)
		auth.POST("/forums/:id/recompute", forumCtl.RecomputeStats)

		auth.POST("/forums/:id/topics", postCtl.CreateTopic)
		auth.POST("/posts/:id/replies", postCtl.CreateReply)
		auth.PATCH("/posts/:id", postCtl.EditPost)
		auth.DELETE("/posts/:id", postCtl.DeletePost)
		auth.POST("/posts/:id/reactions", postCtl.React)

		auth.POST("/posts/:id/approve", modCtl.ApprovePost)
		auth.POST("/posts/:id/reject", modCtl.RejectPost)
		auth.POST("/posts/:id/pin", modCtl.PinPost)
		auth.POST("/posts/:id/lock", modCtl.LockPost)

		auth.POST("/posts/:id/reports", reportCtl.FileReport)
		auth.GET("/posts/:id/reports", reportCtl.ListPostReports)
		auth.GET("/reports", reportCtl.ListReports)
		auth.POST("/posts/:id/reports/:reportID/resolve", modCtl.ResolveReport)
		auth.POST("/posts/:id/reports/:reportID/dismiss", modCtl.DismissReport)
	}

	return r
}
