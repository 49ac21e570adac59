package recipe

import (
	"context"
	"fmt"

	recipeModel "terminal-terrace/foodgram/internal/model/recipe"
	userModel "terminal-terrace/foodgram/internal/model/user"

	"gorm.io/gorm"
)

// RelationKind 用户与菜谱的关系类型
type RelationKind string

const (
	RelationFavorite     RelationKind = "favorite"
	RelationShoppingCart RelationKind = "shopping_cart"
)

// table 关系对应的表名
func (k RelationKind) table() string {
	if k == RelationShoppingCart {
		return recipeModel.ShoppingCart{}.TableName()
	}
	return recipeModel.Favorite{}.TableName()
}

func (k RelationKind) row(userID, recipeID uint) any {
	if k == RelationShoppingCart {
		return &recipeModel.ShoppingCart{UserID: userID, RecipeID: recipeID}
	}
	return &recipeModel.Favorite{UserID: userID, RecipeID: recipeID}
}

// RecipeRepository 菜谱数据访问接口
type RecipeRepository interface {
	// Transaction 在同一事务中执行 fn, fn 返回错误时整体回滚
	Transaction(ctx context.Context, fn func(repo RecipeRepository) error) error

	Create(ctx context.Context, recipe *recipeModel.Recipe) error
	Update(ctx context.Context, recipe *recipeModel.Recipe) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*recipeModel.Recipe, error)
	List(ctx context.Context, filter ListFilter, offset, limit int) ([]recipeModel.Recipe, int64, error)

	CountTags(ctx context.Context, ids []uint) (int64, error)
	CountIngredients(ctx context.Context, ids []uint) (int64, error)
	ClearAssociations(ctx context.Context, recipeID uint) error
	AddTags(ctx context.Context, recipeID uint, tagIDs []uint) error
	AddIngredients(ctx context.Context, amounts []recipeModel.IngredientAmount) error

	RelationExists(ctx context.Context, kind RelationKind, userID, recipeID uint) (bool, error)
	CreateRelation(ctx context.Context, kind RelationKind, userID, recipeID uint) error
	DeleteRelation(ctx context.Context, kind RelationKind, userID, recipeID uint) (int64, error)
	RelatedRecipeIDs(ctx context.Context, kind RelationKind, userID uint, recipeIDs []uint) (map[uint]bool, error)
	SubscribedAuthorIDs(ctx context.Context, userID uint, authorIDs []uint) (map[uint]bool, error)

	ShoppingList(ctx context.Context, userID uint) ([]ShoppingListItem, error)
}

type recipeRepository struct {
	db *gorm.DB
}

func NewRecipeRepository(db *gorm.DB) RecipeRepository {
	return &recipeRepository{db: db}
}

func (r *recipeRepository) Transaction(ctx context.Context, fn func(repo RecipeRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&recipeRepository{db: tx})
	})
}

func (r *recipeRepository) Create(ctx context.Context, recipe *recipeModel.Recipe) error {
	return r.db.WithContext(ctx).Omit("Author", "Ingredients", "RecipeTags").Create(recipe).Error
}

// Update 只更新基础字段, 关联由调用方重写
func (r *recipeRepository) Update(ctx context.Context, recipe *recipeModel.Recipe) error {
	return r.db.WithContext(ctx).Model(&recipeModel.Recipe{ID: recipe.ID}).
		Updates(map[string]any{
			"name":         recipe.Name,
			"text":         recipe.Text,
			"image":        recipe.Image,
			"cooking_time": recipe.CookingTime,
		}).Error
}

// Delete 依赖外键 ON DELETE CASCADE 删除关联与收藏/购物车
func (r *recipeRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&recipeModel.Recipe{}, id).Error
}

func (r *recipeRepository) preload(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB { return db.Order("ingredient_amounts.id ASC") }).
		Preload("Ingredients.Ingredient").
		Preload("RecipeTags", func(db *gorm.DB) *gorm.DB { return db.Order("recipe_tags.tag_id ASC") }).
		Preload("RecipeTags.Tag")
}

func (r *recipeRepository) FindByID(ctx context.Context, id uint) (*recipeModel.Recipe, error) {
	var recipe recipeModel.Recipe
	if err := r.preload(r.db.WithContext(ctx)).First(&recipe, id).Error; err != nil {
		return nil, err
	}
	return &recipe, nil
}

// List 按发布时间倒序
func (r *recipeRepository) List(ctx context.Context, filter ListFilter, offset, limit int) ([]recipeModel.Recipe, int64, error) {
	db := r.db.WithContext(ctx)
	query := db.Model(&recipeModel.Recipe{})

	if filter.AuthorID != 0 {
		query = query.Where("recipes.author_id = ?", filter.AuthorID)
	}
	if len(filter.TagSlugs) > 0 {
		// 多个标签之间为"或"
		query = query.Where("recipes.id IN (?)", db.Table("recipe_tags").
			Select("recipe_tags.recipe_id").
			Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
			Where("tags.slug IN ?", filter.TagSlugs))
	}
	if filter.FavoritedBy != 0 {
		query = query.Where("recipes.id IN (?)", db.Table(RelationFavorite.table()).
			Select("recipe_id").Where("user_id = ?", filter.FavoritedBy))
	}
	if filter.InCartOf != 0 {
		query = query.Where("recipes.id IN (?)", db.Table(RelationShoppingCart.table()).
			Select("recipe_id").Where("user_id = ?", filter.InCartOf))
	}
	query = query.Session(&gorm.Session{})

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	var recipes []recipeModel.Recipe
	err := r.preload(query).
		Order("recipes.pub_date DESC, recipes.id DESC").
		Offset(offset).Limit(limit).
		Find(&recipes).Error
	return recipes, count, err
}

func (r *recipeRepository) CountTags(ctx context.Context, ids []uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&recipeModel.Tag{}).Where("id IN ?", ids).Count(&count).Error
	return count, err
}

func (r *recipeRepository) CountIngredients(ctx context.Context, ids []uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&recipeModel.Ingredient{}).Where("id IN ?", ids).Count(&count).Error
	return count, err
}

func (r *recipeRepository) ClearAssociations(ctx context.Context, recipeID uint) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("recipe_id = ?", recipeID).Delete(&recipeModel.RecipeTag{}).Error; err != nil {
		return err
	}
	return db.Where("recipe_id = ?", recipeID).Delete(&recipeModel.IngredientAmount{}).Error
}

func (r *recipeRepository) AddTags(ctx context.Context, recipeID uint, tagIDs []uint) error {
	if len(tagIDs) == 0 {
		return nil
	}
	rows := make([]recipeModel.RecipeTag, 0, len(tagIDs))
	for _, id := range tagIDs {
		rows = append(rows, recipeModel.RecipeTag{RecipeID: recipeID, TagID: id})
	}
	return r.db.WithContext(ctx).Omit("Tag").Create(&rows).Error
}

func (r *recipeRepository) AddIngredients(ctx context.Context, amounts []recipeModel.IngredientAmount) error {
	if len(amounts) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit("Ingredient").Create(&amounts).Error
}

func (r *recipeRepository) RelationExists(ctx context.Context, kind RelationKind, userID, recipeID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Table(kind.table()).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Count(&count).Error
	return count > 0, err
}

func (r *recipeRepository) CreateRelation(ctx context.Context, kind RelationKind, userID, recipeID uint) error {
	return r.db.WithContext(ctx).Omit("User", "Recipe").Create(kind.row(userID, recipeID)).Error
}

func (r *recipeRepository) DeleteRelation(ctx context.Context, kind RelationKind, userID, recipeID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Delete(kind.row(0, 0))
	return result.RowsAffected, result.Error
}

// RelatedRecipeIDs recipeIDs 中与用户存在 kind 关系的菜谱
func (r *recipeRepository) RelatedRecipeIDs(ctx context.Context, kind RelationKind, userID uint, recipeIDs []uint) (map[uint]bool, error) {
	result := make(map[uint]bool)
	if userID == 0 || len(recipeIDs) == 0 {
		return result, nil
	}

	var ids []uint
	err := r.db.WithContext(ctx).Table(kind.table()).
		Where("user_id = ? AND recipe_id IN ?", userID, recipeIDs).
		Pluck("recipe_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("查询%s失败: %w", kind, err)
	}
	for _, id := range ids {
		result[id] = true
	}
	return result, nil
}

func (r *recipeRepository) SubscribedAuthorIDs(ctx context.Context, userID uint, authorIDs []uint) (map[uint]bool, error) {
	result := make(map[uint]bool)
	if userID == 0 || len(authorIDs) == 0 {
		return result, nil
	}

	var ids []uint
	err := r.db.WithContext(ctx).Model(&userModel.Follow{}).
		Where("user_id = ? AND author_id IN ?", userID, authorIDs).
		Pluck("author_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		result[id] = true
	}
	return result, nil
}

// ShoppingList 按 (名称, 单位) 汇总购物车中所有菜谱的食材用量
func (r *recipeRepository) ShoppingList(ctx context.Context, userID uint) ([]ShoppingListItem, error) {
	var items []ShoppingListItem
	err := r.db.WithContext(ctx).Table("shopping_carts").
		Select("ingredients.name AS name, ingredients.measurement_unit AS measurement_unit, SUM(ingredient_amounts.amount) AS total_amount").
		Joins("JOIN ingredient_amounts ON ingredient_amounts.recipe_id = shopping_carts.recipe_id").
		Joins("JOIN ingredients ON ingredients.id = ingredient_amounts.ingredient_id").
		Where("shopping_carts.user_id = ?", userID).
		Group("ingredients.name, ingredients.measurement_unit").
		Order("ingredients.name ASC, ingredients.measurement_unit ASC").
		Scan(&items).Error
	return items, err
}
