package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/acadops-api/internal/handler"
	"github.com/noah-isme/acadops-api/internal/middleware"
	"github.com/noah-isme/acadops-api/internal/models"
	"github.com/noah-isme/acadops-api/internal/repository"
	"github.com/noah-isme/acadops-api/internal/service"
	"github.com/noah-isme/acadops-api/pkg/config"
	"github.com/noah-isme/acadops-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/acadops-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/acadops-api/pkg/middleware/requestid"
)

type routerDeps struct {
	auth       *service.AuthService
	metrics    *service.MetricsService
	audit      *repository.AuditRepository
	drafts     *handler.ClassDraftHandler
	patterns   *handler.PatternHandler
	conflicts  *handler.ConflictHandler
	teachers   *handler.TeacherAssignmentHandler
	readiness  *handler.ReadinessHandler
	wizard     *handler.WizardHandler
	exports    *handler.ExportHandler
	health     *handler.MetricsHandler
	authLookup *handler.AuthHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", deps.health.Health)
	r.GET("/ready", deps.health.Ready)
	r.GET("/metrics", deps.health.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	if deps.exports != nil {
		// The signed token is the credential for downloads.
		api.GET("/exports/download/:token", middleware.Audit(deps.audit, models.AuditActionExportDownload, models.AuditResourceExport), deps.exports.Download)
	}

	secured := api.Group("")
	secured.Use(middleware.JWT(deps.auth))
	secured.GET("/auth/me", deps.authLookup.Me)

	staff := secured.Group("")
	staff.Use(middleware.RequireRoles(models.RoleAcademicAffairs, models.RoleAdmin, models.RoleCenterHead))

	classes := staff.Group("/classes")
	classes.POST("", deps.drafts.Create)
	classes.GET("/:id", deps.drafts.Get)
	classes.PUT("/:id", deps.drafts.Update)
	classes.DELETE("/:id", deps.drafts.Delete)
	classes.GET("/:id/sessions", deps.drafts.Sessions)
	classes.GET("/:id/history", deps.drafts.History)

	classes.GET("/:id/time-slots/candidates", deps.patterns.TimeSlotCandidates)
	classes.POST("/:id/time-slots/pattern", deps.patterns.ApplyTimeSlotPattern)
	classes.GET("/:id/patterns/:dimension", deps.patterns.CurrentPattern)
	classes.GET("/:id/resources/candidates", deps.patterns.ResourceCandidates)
	classes.POST("/:id/resources/pattern", deps.patterns.ApplyResourcePattern)
	classes.GET("/:id/sessions/:sessionId/resource-suggestions", deps.patterns.ResourceSuggestions)
	classes.PUT("/:id/sessions/:sessionId/resource", deps.patterns.AssignSessionResource)

	classes.GET("/:id/conflicts", deps.conflicts.State)
	classes.POST("/:id/conflicts/suggestions", deps.conflicts.LoadSuggestions)
	classes.POST("/:id/conflicts/resolve-all", deps.conflicts.ResolveAll)
	classes.POST("/:id/conflicts/reapply", deps.conflicts.Reapply)
	classes.POST("/:id/conflicts/:sessionId/resolve", deps.conflicts.Resolve)

	classes.GET("/:id/teachers/candidates", deps.teachers.Candidates)
	classes.GET("/:id/teachers/candidates/:teacherId", deps.teachers.CandidateDetail)
	classes.POST("/:id/teachers", deps.teachers.Assign)
	classes.POST("/:id/teachers/substitute", deps.teachers.Substitute)

	classes.GET("/:id/readiness", deps.readiness.Readiness)
	classes.POST("/:id/submit", deps.readiness.Submit)
	classes.POST("/:id/review", middleware.RequireRoles(models.RoleCenterHead, models.RoleAdmin), deps.readiness.Review)

	wizard := staff.Group("/wizard")
	wizard.GET("", deps.wizard.Overview)
	wizard.POST("/advance", deps.wizard.Advance)
	wizard.POST("/goto", deps.wizard.Goto)
	wizard.POST("/leave", deps.wizard.Leave)

	if deps.exports != nil {
		classes.POST("/:id/exports", deps.exports.Create)
		staff.GET("/exports/:id", deps.exports.Status)
	}

	return r
}
