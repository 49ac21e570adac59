package dto

import (
	recipeModel "terminal-terrace/foodgram/internal/model/recipe"
	userModel "terminal-terrace/foodgram/internal/model/user"
)

// UserResponse 用户展示信息, is_subscribed 针对当前请求用户计算
type UserResponse struct {
	Email        string `json:"email"`
	ID           uint   `json:"id"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	IsSubscribed bool   `json:"is_subscribed"`
}

// MinifiedRecipe 精简的菜谱信息
type MinifiedRecipe struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	CookingTime int    `json:"cooking_time"`
}

func NewUserResponse(u *userModel.User, subscribed bool) UserResponse {
	return UserResponse{
		Email:        u.Email,
		ID:           u.ID,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsSubscribed: subscribed,
	}
}

func NewMinifiedRecipe(r *recipeModel.Recipe) MinifiedRecipe {
	return MinifiedRecipe{
		ID:          r.ID,
		Name:        r.Name,
		Image:       r.Image,
		CookingTime: r.CookingTime,
	}
}

func NewMinifiedRecipes(recipes []recipeModel.Recipe) []MinifiedRecipe {
	result := make([]MinifiedRecipe, 0, len(recipes))
	for i := range recipes {
		result = append(result, NewMinifiedRecipe(&recipes[i]))
	}
	return result
}
