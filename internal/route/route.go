package route

import (
	"context"
	"net/http"
	"time"

	"terminal-terrace/foodgram/config"
	"terminal-terrace/foodgram/internal/auth"
	"terminal-terrace/foodgram/internal/catalog"
	"terminal-terrace/foodgram/internal/middleware"
	"terminal-terrace/foodgram/internal/recipe"
	"terminal-terrace/foodgram/internal/storage"
	"terminal-terrace/foodgram/internal/user"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

func initRoute(r *gin.Engine, db *gorm.DB, store storage.Storage, tokens auth.TokenStore) {
	// Swagger 文档路由
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", healthz(db))

	// 本地存储的图片由本服务提供
	if local, ok := store.(*storage.LocalStorage); ok {
		r.Static(config.Conf.Storage.Local.BaseURL, local.Root())
	}

	api := r.Group("/api")
	{
		catalog.SetupCatalogRoutes(api, db)
		recipe.SetupRecipeRoutes(api, db, store)
		user.SetupUserRoutes(api, db, tokens)
	}
}

func SetupRouter(db *gorm.DB, store storage.Storage, tokens auth.TokenStore) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger(), middleware.Metrics())

	// 设置跨域请求
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{config.Conf.Server.FrontendURL},
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Disposition", "X-Request-ID"},
	}))

	initRoute(r, db, store, tokens)

	return r
}

// healthz 数据库不可用时返回 503
func healthz(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
