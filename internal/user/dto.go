package user

import "terminal-terrace/foodgram/internal/dto"

// RegisterRequest 注册请求
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email,max=254" example:"vpupkin@yandex.ru"`
	Username  string `json:"username" binding:"required,max=150,username" example:"vasya.pupkin"`
	FirstName string `json:"first_name" binding:"required,max=150" example:"Вася"`
	LastName  string `json:"last_name" binding:"required,max=150" example:"Пупкин"`
	Password  string `json:"password" binding:"required,min=8,max=150" example:"Qwerty123"`
}

// LoginRequest 获取令牌
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse 登录结果
type TokenResponse struct {
	AuthToken string `json:"auth_token"`
}

// SetPasswordRequest 修改密码
type SetPasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=150"`
}

// RegisteredUser 注册成功后的返回, 不含 is_subscribed
type RegisteredUser struct {
	Email     string `json:"email"`
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// AuthorResponse 关注列表中的作者
type AuthorResponse struct {
	dto.UserResponse
	Recipes []dto.MinifiedRecipe `json:"recipes"`
}
