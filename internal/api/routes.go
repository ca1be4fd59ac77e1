package api

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"resumeBuilder/internal/api/middleware"
	"resumeBuilder/internal/auth"
	"resumeBuilder/internal/document"
)

// Dependencies 汇总路由所需的服务实例。
type Dependencies struct {
	DB             *gorm.DB
	Documents      *document.Service
	Auth           *auth.Service
	Revocations    auth.Revocations
	Redis          redis.UniversalClient
	Tasks          TaskEnqueuer
	Storage        Storage
	Scanner        Scanner
	ExportRetry    int
	CookieDomain   string
	AllowedOrigins []string
}

// Storage is the full object store surface used by the handlers.
type Storage interface {
	AssetStorage
	ExportStorage
}

// RegisterRoutes 注册 API 路由，统一挂在 /v1 下。
func RegisterRoutes(router *gin.Engine, deps Dependencies) {
	resumeHandler := NewResumeHandler(deps.Documents, deps.Tasks, deps.Storage, deps.ExportRetry)
	portfolioHandler := NewPortfolioHandler(deps.Documents)
	publicHandler := NewPublicHandler(deps.Documents, deps.Storage)
	authHandler := NewAuthHandler(deps.DB, deps.Auth, deps.Revocations, deps.CookieDomain)
	assetHandler := NewAssetHandler(deps.Storage, deps.Scanner)
	wsHandler := NewWsHandler(deps.Redis, deps.Auth, deps.AllowedOrigins)
	authMiddleware := middleware.AuthMiddleware(deps.Auth)

	v1 := router.Group("/v1")
	{
		v1.GET("/ws", wsHandler.HandleConnection)
		v1.GET("/public/portfolios/:slug", publicHandler.GetPortfolio)

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/logout", authMiddleware, authHandler.Logout)
		}

		resumeGroup := v1.Group("/resumes")
		resumeGroup.Use(authMiddleware)
		{
			resumeGroup.GET("", resumeHandler.ListResumes)
			resumeGroup.POST("", resumeHandler.CreateResume)
			resumeGroup.GET("/:id", resumeHandler.GetResume)
			resumeGroup.PUT("/:id", resumeHandler.UpdateResume)
			resumeGroup.DELETE("/:id", resumeHandler.DeleteResume)
			resumeGroup.POST("/:id/export", resumeHandler.RequestExport)
			resumeGroup.GET("/:id/export", resumeHandler.GetExport)
		}

		portfolioGroup := v1.Group("/portfolios")
		portfolioGroup.Use(authMiddleware)
		{
			portfolioGroup.GET("", portfolioHandler.ListPortfolios)
			portfolioGroup.POST("", portfolioHandler.CreatePortfolio)
			portfolioGroup.GET("/:id", portfolioHandler.GetPortfolio)
			portfolioGroup.PUT("/:id", portfolioHandler.UpdatePortfolio)
			portfolioGroup.DELETE("/:id", portfolioHandler.DeletePortfolio)
		}

		assetGroup := v1.Group("/assets")
		assetGroup.Use(authMiddleware)
		{
			assetGroup.POST("/upload", assetHandler.UploadAsset)
			assetGroup.GET("/view", assetHandler.GetAssetURL)
		}
	}
}
