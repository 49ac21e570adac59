package catalog

import (
	"context"
	"errors"
	"strings"

	"terminal-terrace/foodgram/internal/logging"
	recipeModel "terminal-terrace/foodgram/internal/model/recipe"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

var (
	ErrTagNotFound        = errors.New("标签不存在")
	ErrIngredientNotFound = errors.New("食材不存在")
	ErrTagExists          = errors.New("同名标签或 slug 已存在")
	ErrInvalidSlug        = errors.New("slug 只能包含小写字母、数字、- 和 _")
)

// CatalogService 标签与食材服务接口
type CatalogService interface {
	ListTags(ctx context.Context) ([]recipeModel.Tag, error)
	GetTag(ctx context.Context, id uint) (*recipeModel.Tag, error)
	CreateTag(ctx context.Context, req *CreateTagRequest) (*recipeModel.Tag, error)

	ListIngredients(ctx context.Context, namePrefix string) ([]recipeModel.Ingredient, error)
	GetIngredient(ctx context.Context, id uint) (*recipeModel.Ingredient, error)
}

type catalogService struct {
	repo CatalogRepository
}

func NewCatalogService(repo CatalogRepository) CatalogService {
	return &catalogService{repo: repo}
}

// DeriveSlug 由名称生成 slug, 西里尔字母等会被转写
func DeriveSlug(name string) string {
	return slug.Make(name)
}

func (s *catalogService) ListTags(ctx context.Context) ([]recipeModel.Tag, error) {
	return s.repo.ListTags(ctx)
}

func (s *catalogService) GetTag(ctx context.Context, id uint) (*recipeModel.Tag, error) {
	tag, err := s.repo.FindTagByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTagNotFound
	}
	return tag, err
}

func (s *catalogService) CreateTag(ctx context.Context, req *CreateTagRequest) (*recipeModel.Tag, error) {
	tagSlug := strings.TrimSpace(req.Slug)
	if tagSlug == "" {
		tagSlug = DeriveSlug(req.Name)
	}
	if !slug.IsSlug(tagSlug) {
		return nil, ErrInvalidSlug
	}

	tag := &recipeModel.Tag{
		Name:  strings.TrimSpace(req.Name),
		Color: strings.ToUpper(req.Color),
		Slug:  tagSlug,
	}
	if err := s.repo.CreateTag(ctx, tag); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrTagExists
		}
		return nil, err
	}

	logging.Ctx(ctx).Info().Uint("tag_id", tag.ID).Str("slug", tag.Slug).Msg("标签已创建")
	return tag, nil
}

func (s *catalogService) ListIngredients(ctx context.Context, namePrefix string) ([]recipeModel.Ingredient, error) {
	return s.repo.ListIngredients(ctx, strings.TrimSpace(namePrefix))
}

func (s *catalogService) GetIngredient(ctx context.Context, id uint) (*recipeModel.Ingredient, error) {
	ingredient, err := s.repo.FindIngredientByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrIngredientNotFound
	}
	return ingredient, err
}
