package middleware

import (
	"context"
	"errors"

	"terminal-terrace/foodgram/config"
	"terminal-terrace/foodgram/internal/dto"
	"terminal-terrace/foodgram/internal/logging"
	"terminal-terrace/foodgram/internal/permission"
	"terminal-terrace/foodgram/pkg/authsdk"
	"terminal-terrace/foodgram/pkg/response"

	"github.com/gin-gonic/gin"
)

var errRevokedToken = errors.New("认证令牌已失效")

// TokenValidator 校验令牌 jti 是否仍然有效
type TokenValidator interface {
	Exists(ctx context.Context, jti string) (bool, error)
}

var tokenValidator TokenValidator

// SetTokenValidator 启动时注入令牌存储; 为 nil 时只校验签名
func SetTokenValidator(v TokenValidator) {
	tokenValidator = v
}

// parseToken 从 Authorization header 中解析 token
func parseToken(c *gin.Context) (*authsdk.UserContext, error) {
	tokenString, err := authsdk.ExtractTokenFromHeader(c.GetHeader("Authorization"))
	if err != nil {
		return nil, err
	}

	userCtx, err := authsdk.ParseToken(tokenString, config.Conf.JWT.Secret)
	if err != nil {
		return nil, err
	}

	if tokenValidator != nil {
		ok, err := tokenValidator.Exists(c.Request.Context(), userCtx.TokenID)
		if err != nil {
			logging.Ctx(c.Request.Context()).Error().Err(err).Msg("查询令牌状态失败")
			return nil, err
		}
		if !ok {
			return nil, errRevokedToken
		}
	}

	return userCtx, nil
}

func setUser(c *gin.Context, u *authsdk.UserContext) {
	c.Set("user_id", u.UserID)
	c.Set("username", u.Username)
	c.Set("email", u.Email)
	c.Set("user_role", u.Role)
	c.Set("token_id", u.TokenID)
}

// JWTAuth JWT 认证中间件（必需认证）
func JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userCtx, err := parseToken(c)
		if err != nil {
			msg := "无效的认证令牌"
			switch {
			case errors.Is(err, authsdk.ErrNoToken):
				msg = "未提供认证令牌"
			case errors.Is(err, authsdk.ErrExpiredToken):
				msg = "认证令牌已过期"
			case errors.Is(err, errRevokedToken):
				msg = errRevokedToken.Error()
			}
			dto.ErrorResponse(c, response.NewBusinessError(
				response.WithErrorCode(response.Unauthorized),
				response.WithErrorMessage(msg),
			))
			c.Abort()
			return
		}

		// 将用户信息存入上下文
		setUser(c, userCtx)
		c.Next()
	}
}

// OptionalJWTAuth 可选的 JWT 认证中间件（不强制要求认证，但如果有token则解析）
func OptionalJWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userCtx, err := parseToken(c); err == nil {
			setUser(c, userCtx)
		}
		// 无论是否有 token，都继续执行
		c.Next()
	}
}

// AdminOnly 需要放在 JWTAuth 之后
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !permission.IsGlobalAdmin(c.GetString("user_role")) {
			dto.ErrorResponse(c, response.NewBusinessError(
				response.WithErrorCode(response.Forbidden),
				response.WithErrorMessage("需要管理员权限"),
			))
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUserID 未登录时返回 0
func CurrentUserID(c *gin.Context) uint {
	if uid, exists := c.Get("user_id"); exists && uid != nil {
		if id, ok := uid.(uint); ok {
			return id
		}
	}
	return 0
}
