package recipe

import (
	"context"
	"errors"

	"terminal-terrace/foodgram/internal/dto"
	"terminal-terrace/foodgram/internal/logging"
	"terminal-terrace/foodgram/internal/metrics"
	recipeModel "terminal-terrace/foodgram/internal/model/recipe"
	"terminal-terrace/foodgram/internal/permission"
	"terminal-terrace/foodgram/internal/storage"

	"gorm.io/gorm"
)

var (
	ErrRecipeNotFound      = errors.New("recipe not found")
	ErrTagNotFound         = errors.New("tag not found")
	ErrIngredientNotFound  = errors.New("ingredient not found")
	ErrReferenceNotFound   = errors.New("tag or ingredient not found")
	ErrNoIngredients       = errors.New("must specify at least one ingredient")
	ErrDuplicateIngredient = errors.New("ingredients must not repeat")
	ErrImageRequired       = errors.New("image is required")
	ErrInvalidImage        = errors.New("invalid image")
	ErrNotPositive         = errors.New("cooking_time and amount must be at least 1")
	ErrForbidden           = errors.New("only the author can modify this recipe")
	ErrRelationExists      = errors.New("already exists")
	ErrRelationNotFound    = errors.New("not found")
)

// imagePrefix 菜谱图片在存储中的目录
const imagePrefix = "recipes/images"

// RecipeService 菜谱服务接口
// userID/viewerID 为 0 表示匿名用户
type RecipeService interface {
	Create(ctx context.Context, authorID uint, req *WriteRecipeRequest) (*RecipeResponse, error)
	Update(ctx context.Context, recipeID, userID uint, req *WriteRecipeRequest) (*RecipeResponse, error)
	Delete(ctx context.Context, recipeID, userID uint) error
	Get(ctx context.Context, recipeID, viewerID uint) (*RecipeResponse, error)
	List(ctx context.Context, filter ListFilter, offset, limit int, viewerID uint) ([]RecipeResponse, int64, error)

	AddRelation(ctx context.Context, kind RelationKind, userID, recipeID uint) (*dto.MinifiedRecipe, error)
	RemoveRelation(ctx context.Context, kind RelationKind, userID, recipeID uint) error
	ShoppingList(ctx context.Context, userID uint) ([]ShoppingListItem, error)
}

type recipeService struct {
	repo    RecipeRepository
	storage storage.Storage
}

func NewRecipeService(repo RecipeRepository, store storage.Storage) RecipeService {
	return &recipeService{repo: repo, storage: store}
}

// validateWrite 在任何写入之前校验请求, 返回去重后的标签 ID
// 食材重复是错误, 标签重复则静默合并
func validateWrite(req *WriteRecipeRequest) ([]uint, error) {
	if len(req.Ingredients) == 0 {
		return nil, ErrNoIngredients
	}

	seen := make(map[uint]struct{}, len(req.Ingredients))
	for _, line := range req.Ingredients {
		if line.Amount < 1 {
			return nil, ErrNotPositive
		}
		if _, ok := seen[line.ID]; ok {
			return nil, ErrDuplicateIngredient
		}
		seen[line.ID] = struct{}{}
	}
	if req.CookingTime < 1 {
		return nil, ErrNotPositive
	}

	return uniqueIDs(req.Tags), nil
}

// uniqueIDs 保持首次出现的顺序
func uniqueIDs(ids []uint) []uint {
	result := make([]uint, 0, len(ids))
	seen := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}

// checkReferences 确认所有标签与食材都存在
// 保存图片前先检查一次, 事务内再检查一次
func checkReferences(ctx context.Context, repo RecipeRepository, tagIDs []uint, lines []IngredientLine) error {
	if len(tagIDs) > 0 {
		n, err := repo.CountTags(ctx, tagIDs)
		if err != nil {
			return err
		}
		if n != int64(len(tagIDs)) {
			return ErrTagNotFound
		}
	}

	ingredientIDs := make([]uint, 0, len(lines))
	for _, line := range lines {
		ingredientIDs = append(ingredientIDs, line.ID)
	}
	n, err := repo.CountIngredients(ctx, ingredientIDs)
	if err != nil {
		return err
	}
	if n != int64(len(ingredientIDs)) {
		return ErrIngredientNotFound
	}
	return nil
}

// writeAssociations 写入标签与食材关联, 须在事务中调用
func writeAssociations(ctx context.Context, repo RecipeRepository, recipeID uint, tagIDs []uint, lines []IngredientLine) error {
	if err := checkReferences(ctx, repo, tagIDs, lines); err != nil {
		return err
	}

	amounts := make([]recipeModel.IngredientAmount, 0, len(lines))
	for _, line := range lines {
		amounts = append(amounts, recipeModel.IngredientAmount{
			RecipeID:     recipeID,
			IngredientID: line.ID,
			Amount:       line.Amount,
		})
	}

	if err := repo.AddTags(ctx, recipeID, tagIDs); err != nil {
		return err
	}
	return repo.AddIngredients(ctx, amounts)
}

// translateWriteError 并发请求绕过应用层检查时, 数据库约束错误转换为同样的业务错误
func translateWriteError(err error) error {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicateIngredient
	case errors.Is(err, gorm.ErrCheckConstraintViolated):
		return ErrNotPositive
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		// 检查之后被删除的可能是标签也可能是食材
		return ErrReferenceNotFound
	default:
		return err
	}
}

func (s *recipeService) saveImage(ctx context.Context, req *WriteRecipeRequest) (string, error) {
	var (
		ref string
		err error
	)
	if req.ImageFile != nil {
		ref, err = storage.SaveFileHeader(ctx, s.storage, imagePrefix, req.ImageFile)
	} else {
		ref, err = storage.SaveDataURI(ctx, s.storage, imagePrefix, req.Image)
	}
	if errors.Is(err, storage.ErrInvalidDataURI) || errors.Is(err, storage.ErrUnsupportedType) {
		return "", ErrInvalidImage
	}
	return ref, err
}

func (s *recipeService) Create(ctx context.Context, authorID uint, req *WriteRecipeRequest) (*RecipeResponse, error) {
	// 1. 校验
	tagIDs, err := validateWrite(req)
	if err != nil {
		return nil, err
	}
	if !req.hasImage() {
		return nil, ErrImageRequired
	}
	if err := checkReferences(ctx, s.repo, tagIDs, req.Ingredients); err != nil {
		return nil, err
	}

	// 2. 保存图片
	imageRef, err := s.saveImage(ctx, req)
	if err != nil {
		return nil, err
	}

	// 3. 在一个事务中写入菜谱与全部关联
	recipe := &recipeModel.Recipe{
		AuthorID:    authorID,
		Name:        req.Name,
		Text:        req.Text,
		Image:       imageRef,
		CookingTime: req.CookingTime,
	}
	err = s.repo.Transaction(ctx, func(repo RecipeRepository) error {
		if err := repo.Create(ctx, recipe); err != nil {
			return err
		}
		return writeAssociations(ctx, repo, recipe.ID, tagIDs, req.Ingredients)
	})
	if err != nil {
		return nil, translateWriteError(err)
	}

	metrics.RecordRecipeWrite("create")
	logging.Ctx(ctx).Info().Uint("recipe_id", recipe.ID).Uint("author_id", authorID).Msg("菜谱已创建")

	return s.Get(ctx, recipe.ID, authorID)
}

// Update 全量重写标签与食材关联; 未提供图片时保留原图
func (s *recipeService) Update(ctx context.Context, recipeID, userID uint, req *WriteRecipeRequest) (*RecipeResponse, error) {
	// 1. 检查菜谱与权限
	recipe, err := s.findRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	if !permission.CanModify(recipe.AuthorID, userID) {
		return nil, ErrForbidden
	}

	// 2. 校验
	tagIDs, err := validateWrite(req)
	if err != nil {
		return nil, err
	}
	if err := checkReferences(ctx, s.repo, tagIDs, req.Ingredients); err != nil {
		return nil, err
	}

	// 3. 保存新图片
	if req.hasImage() {
		imageRef, err := s.saveImage(ctx, req)
		if err != nil {
			return nil, err
		}
		recipe.Image = imageRef
	}

	recipe.Name = req.Name
	recipe.Text = req.Text
	recipe.CookingTime = req.CookingTime

	// 4. 先清空关联再重写
	err = s.repo.Transaction(ctx, func(repo RecipeRepository) error {
		if err := repo.Update(ctx, recipe); err != nil {
			return err
		}
		if err := repo.ClearAssociations(ctx, recipe.ID); err != nil {
			return err
		}
		return writeAssociations(ctx, repo, recipe.ID, tagIDs, req.Ingredients)
	})
	if err != nil {
		return nil, translateWriteError(err)
	}

	metrics.RecordRecipeWrite("update")
	logging.Ctx(ctx).Info().Uint("recipe_id", recipe.ID).Msg("菜谱已更新")

	return s.Get(ctx, recipe.ID, userID)
}

func (s *recipeService) Delete(ctx context.Context, recipeID, userID uint) error {
	recipe, err := s.findRecipe(ctx, recipeID)
	if err != nil {
		return err
	}
	if !permission.CanModify(recipe.AuthorID, userID) {
		return ErrForbidden
	}

	if err := s.repo.Delete(ctx, recipeID); err != nil {
		return err
	}

	metrics.RecordRecipeWrite("delete")
	logging.Ctx(ctx).Info().Uint("recipe_id", recipeID).Msg("菜谱已删除")
	return nil
}

func (s *recipeService) findRecipe(ctx context.Context, recipeID uint) (*recipeModel.Recipe, error) {
	recipe, err := s.repo.FindByID(ctx, recipeID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecipeNotFound
	}
	return recipe, err
}

func (s *recipeService) Get(ctx context.Context, recipeID, viewerID uint) (*RecipeResponse, error) {
	recipe, err := s.findRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}

	responses, err := s.present(ctx, []recipeModel.Recipe{*recipe}, viewerID)
	if err != nil {
		return nil, err
	}
	return &responses[0], nil
}

// List 匿名用户的 is_favorited / is_in_shopping_cart 筛选会被忽略
func (s *recipeService) List(ctx context.Context, filter ListFilter, offset, limit int, viewerID uint) ([]RecipeResponse, int64, error) {
	if viewerID == 0 {
		filter.FavoritedBy = 0
		filter.InCartOf = 0
	}

	recipes, count, err := s.repo.List(ctx, filter, offset, limit)
	if err != nil {
		return nil, 0, err
	}

	responses, err := s.present(ctx, recipes, viewerID)
	if err != nil {
		return nil, 0, err
	}
	return responses, count, nil
}

// present 为一批菜谱计算当前用户相关的标记, 每种标记一次查询
func (s *recipeService) present(ctx context.Context, recipes []recipeModel.Recipe, viewerID uint) ([]RecipeResponse, error) {
	var flags viewerFlags
	if viewerID != 0 && len(recipes) > 0 {
		recipeIDs := make([]uint, 0, len(recipes))
		authorIDs := make([]uint, 0, len(recipes))
		for _, r := range recipes {
			recipeIDs = append(recipeIDs, r.ID)
			authorIDs = append(authorIDs, r.AuthorID)
		}

		var err error
		if flags.favorited, err = s.repo.RelatedRecipeIDs(ctx, RelationFavorite, viewerID, recipeIDs); err != nil {
			return nil, err
		}
		if flags.inCart, err = s.repo.RelatedRecipeIDs(ctx, RelationShoppingCart, viewerID, recipeIDs); err != nil {
			return nil, err
		}
		if flags.subscribed, err = s.repo.SubscribedAuthorIDs(ctx, viewerID, uniqueIDs(authorIDs)); err != nil {
			return nil, err
		}
	}

	responses := make([]RecipeResponse, 0, len(recipes))
	for i := range recipes {
		responses = append(responses, newRecipeResponse(&recipes[i], flags))
	}
	return responses, nil
}

// AddRelation 收藏或加入购物车, 返回精简的菜谱信息
func (s *recipeService) AddRelation(ctx context.Context, kind RelationKind, userID, recipeID uint) (*dto.MinifiedRecipe, error) {
	recipe, err := s.findRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}

	// 应用层检查只为给出友好的错误, 唯一约束才是最终保证
	exists, err := s.repo.RelationExists(ctx, kind, userID, recipeID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrRelationExists
	}

	if err := s.repo.CreateRelation(ctx, kind, userID, recipeID); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrRelationExists
		}
		return nil, err
	}

	metrics.RecordRelationChange(string(kind), "add")
	logging.Ctx(ctx).Info().Str("relation", string(kind)).Uint("user_id", userID).Uint("recipe_id", recipeID).Msg("关系已添加")

	minified := dto.NewMinifiedRecipe(recipe)
	return &minified, nil
}

func (s *recipeService) RemoveRelation(ctx context.Context, kind RelationKind, userID, recipeID uint) error {
	if _, err := s.findRecipe(ctx, recipeID); err != nil {
		return err
	}

	deleted, err := s.repo.DeleteRelation(ctx, kind, userID, recipeID)
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ErrRelationNotFound
	}

	metrics.RecordRelationChange(string(kind), "remove")
	logging.Ctx(ctx).Info().Str("relation", string(kind)).Uint("user_id", userID).Uint("recipe_id", recipeID).Msg("关系已删除")
	return nil
}

func (s *recipeService) ShoppingList(ctx context.Context, userID uint) ([]ShoppingListItem, error) {
	return s.repo.ShoppingList(ctx, userID)
}
