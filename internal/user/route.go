package user

import (
	"time"

	"terminal-terrace/foodgram/config"
	"terminal-terrace/foodgram/internal/auth"
	"terminal-terrace/foodgram/internal/middleware"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupUserRoutes 注册用户、认证与关注路由
func SetupUserRoutes(r *gin.RouterGroup, db *gorm.DB, tokens auth.TokenStore) {
	repo := NewUserRepository(db)
	issuer := auth.NewIssuer(config.Conf.JWT.Secret, time.Duration(config.Conf.JWT.ExpireTime)*time.Hour)
	accounts := NewAccounts(repo, BcryptHasher{}, issuer, tokens)
	handler := NewUserHandler(NewUserService(repo, accounts), accounts)
	registerRoutes(r, handler)
}

func registerRoutes(r *gin.RouterGroup, handler *UserHandler) {
	users := r.Group("/users")
	{
		users.POST("/", handler.Register)
		users.GET("/", middleware.OptionalJWTAuth(), handler.List)
		users.GET("/:id/", middleware.OptionalJWTAuth(), handler.Get)
	}

	// 需要登录
	authed := users.Group("", middleware.JWTAuth())
	{
		authed.GET("/me/", handler.Me)
		authed.POST("/set_password/", handler.SetPassword)
		authed.GET("/subscriptions/", handler.Subscriptions)
		authed.POST("/:id/subscribe/", handler.Subscribe)
		authed.DELETE("/:id/subscribe/", handler.Unsubscribe)
	}

	token := r.Group("/auth/token")
	{
		token.POST("/login/", handler.Login)
		token.POST("/logout/", middleware.JWTAuth(), handler.Logout)
	}
}
