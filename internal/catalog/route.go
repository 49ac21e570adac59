package catalog

import (
	"terminal-terrace/foodgram/internal/middleware"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupCatalogRoutes 注册标签与食材路由
func SetupCatalogRoutes(r *gin.RouterGroup, db *gorm.DB) {
	handler := NewCatalogHandler(NewCatalogService(NewCatalogRepository(db)))
	registerRoutes(r, handler)
}

func registerRoutes(r *gin.RouterGroup, handler *CatalogHandler) {
	tags := r.Group("/tags")
	{
		tags.GET("/", handler.ListTags)
		tags.GET("/:id/", handler.GetTag)
		// 仅管理员可创建
		tags.POST("/", middleware.JWTAuth(), middleware.AdminOnly(), handler.CreateTag)
	}

	ingredients := r.Group("/ingredients")
	{
		ingredients.GET("/", handler.ListIngredients)
		ingredients.GET("/:id/", handler.GetIngredient)
	}
}
