package authsdk

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrNoToken      = errors.New("no token provided")
)

// 支持的 Authorization 前缀: "Token xxx"(前端沿用的格式) 与 "Bearer xxx"
var authSchemes = []string{"Token ", "Bearer "}

// Claims JWT 自定义声明, jti 存放在 RegisteredClaims.ID
type Claims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// UserContext 用户上下文信息
type UserContext struct {
	UserID   uint
	Username string
	Email    string
	Role     string // "admin" 表示管理员
	TokenID  string
}

// IsAnonymous 未登录用户 UserID 为 0
func (u *UserContext) IsAnonymous() bool {
	return u == nil || u.UserID == 0
}

// IsAdmin 是否为管理员
func (u *UserContext) IsAdmin() bool {
	return u != nil && u.Role == "admin"
}

// ParseToken 解析并验证 JWT token
// secret: JWT 签名密钥
func ParseToken(tokenString, secret string) (*UserContext, error) {
	if tokenString == "" {
		return nil, ErrNoToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// 验证签名算法
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return &UserContext{
			UserID:   claims.UserID,
			Username: claims.Username,
			Email:    claims.Email,
			Role:     claims.Role,
			TokenID:  claims.ID,
		}, nil
	}

	return nil, ErrInvalidToken
}

// ExtractTokenFromHeader 从 Authorization 头中取出令牌
func ExtractTokenFromHeader(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrNoToken
	}
	for _, scheme := range authSchemes {
		if len(header) > len(scheme) && strings.EqualFold(header[:len(scheme)], scheme) {
			return strings.TrimSpace(header[len(scheme):]), nil
		}
	}
	return "", ErrInvalidToken
}
