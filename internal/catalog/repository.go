package catalog

import (
	"context"
	"strings"

	recipeModel "terminal-terrace/foodgram/internal/model/recipe"

	"gorm.io/gorm"
)

// CatalogRepository 标签与食材数据访问接口
type CatalogRepository interface {
	ListTags(ctx context.Context) ([]recipeModel.Tag, error)
	FindTagByID(ctx context.Context, id uint) (*recipeModel.Tag, error)
	CreateTag(ctx context.Context, tag *recipeModel.Tag) error

	ListIngredients(ctx context.Context, namePrefix string) ([]recipeModel.Ingredient, error)
	FindIngredientByID(ctx context.Context, id uint) (*recipeModel.Ingredient, error)
}

type catalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) ListTags(ctx context.Context) ([]recipeModel.Tag, error) {
	var tags []recipeModel.Tag
	err := r.db.WithContext(ctx).Order("name ASC").Find(&tags).Error
	return tags, err
}

func (r *catalogRepository) FindTagByID(ctx context.Context, id uint) (*recipeModel.Tag, error) {
	var tag recipeModel.Tag
	if err := r.db.WithContext(ctx).First(&tag, id).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

func (r *catalogRepository) CreateTag(ctx context.Context, tag *recipeModel.Tag) error {
	return r.db.WithContext(ctx).Create(tag).Error
}

// ListIngredients 名称前缀搜索, 不区分大小写
func (r *catalogRepository) ListIngredients(ctx context.Context, namePrefix string) ([]recipeModel.Ingredient, error) {
	var ingredients []recipeModel.Ingredient
	query := r.db.WithContext(ctx).Model(&recipeModel.Ingredient{})
	if namePrefix != "" {
		query = query.Where("name ILIKE ?", escapeLike(namePrefix)+"%")
	}
	err := query.Order("name ASC").Find(&ingredients).Error
	return ingredients, err
}

func (r *catalogRepository) FindIngredientByID(ctx context.Context, id uint) (*recipeModel.Ingredient, error) {
	var ingredient recipeModel.Ingredient
	if err := r.db.WithContext(ctx).First(&ingredient, id).Error; err != nil {
		return nil, err
	}
	return &ingredient, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
