package recipe

import (
	"terminal-terrace/foodgram/config"
	"terminal-terrace/foodgram/internal/middleware"
	"terminal-terrace/foodgram/internal/render"
	"terminal-terrace/foodgram/internal/storage"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRecipeRoutes 注册菜谱、收藏、购物车路由
func SetupRecipeRoutes(r *gin.RouterGroup, db *gorm.DB, store storage.Storage) {
	service := NewRecipeService(NewRecipeRepository(db), store)
	handler := NewRecipeHandler(
		service,
		render.NewPDFRenderer(config.Conf.ShoppingList.FontPath),
		config.Conf.ShoppingList.Filename,
	)
	registerRoutes(r, handler)
}

func registerRoutes(r *gin.RouterGroup, handler *RecipeHandler) {
	recipes := r.Group("/recipes")
	{
		recipes.GET("/", middleware.OptionalJWTAuth(), handler.List)
		recipes.GET("/:id/", middleware.OptionalJWTAuth(), handler.Get)
	}

	// 需要登录
	authed := recipes.Group("", middleware.JWTAuth())
	{
		authed.POST("/", handler.Create)
		authed.PATCH("/:id/", handler.Update)
		authed.DELETE("/:id/", handler.Delete)
		authed.GET("/download_shopping_cart/", handler.DownloadShoppingCart)

		authed.POST("/:id/favorite/", handler.AddRelation(RelationFavorite))
		authed.DELETE("/:id/favorite/", handler.RemoveRelation(RelationFavorite))
		authed.POST("/:id/shopping_cart/", handler.AddRelation(RelationShoppingCart))
		authed.DELETE("/:id/shopping_cart/", handler.RemoveRelation(RelationShoppingCart))
	}
}
