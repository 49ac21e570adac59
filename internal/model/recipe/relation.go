package recipe

import (
	"time"

	"terminal-terrace/foodgram/internal/model/user"
)

// Favorite 收藏
type Favorite struct {
	UserID    uint      `gorm:"primaryKey" json:"user_id"`
	RecipeID  uint      `gorm:"primaryKey;index" json:"recipe_id"`
	CreatedAt time.Time `json:"created_at"`

	User   user.User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Recipe Recipe    `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Favorite) TableName() string {
	return "favorites"
}

// ShoppingCart 购物车
type ShoppingCart struct {
	UserID    uint      `gorm:"primaryKey" json:"user_id"`
	RecipeID  uint      `gorm:"primaryKey;index" json:"recipe_id"`
	CreatedAt time.Time `json:"created_at"`

	User   user.User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Recipe Recipe    `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE" json:"-"`
}

func (ShoppingCart) TableName() string {
	return "shopping_carts"
}
