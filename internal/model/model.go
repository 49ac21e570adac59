package model

import (
	"gorm.io/gorm"
	"terminal-terrace/foodgram/internal/model/recipe"
	"terminal-terrace/foodgram/internal/model/user"
)

func InitTable(db *gorm.DB) error {
	// 自动迁移数据库表结构, 被引用的表在前
	err := db.AutoMigrate(
		// 用户模型
		&user.User{},
		&user.Follow{},
		// 目录
		&recipe.Tag{},
		&recipe.Ingredient{},
		// 菜谱相关模型
		&recipe.Recipe{},
		&recipe.IngredientAmount{},
		&recipe.RecipeTag{},
		&recipe.Favorite{},
		&recipe.ShoppingCart{},
	)
	if err != nil {
		return err
	}
	return nil
}
