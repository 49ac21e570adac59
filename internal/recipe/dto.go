package recipe

import (
	"mime/multipart"

	"terminal-terrace/foodgram/internal/dto"
	recipeModel "terminal-terrace/foodgram/internal/model/recipe"
)

// IngredientLine 菜谱中的一行食材
type IngredientLine struct {
	ID     uint `json:"id" binding:"required"`
	Amount int  `json:"amount" binding:"required,gte=1"`
}

// WriteRecipeRequest 创建/更新菜谱请求
// image 为 data:<mime>;base64,<payload>; multipart 上传时使用 ImageFile
type WriteRecipeRequest struct {
	Ingredients []IngredientLine `json:"ingredients" binding:"dive"`
	Tags        []uint           `json:"tags"`
	Image       string           `json:"image"`
	Name        string           `json:"name" binding:"required,max=200"`
	Text        string           `json:"text" binding:"required"`
	CookingTime int              `json:"cooking_time" binding:"required,gte=1"`

	ImageFile *multipart.FileHeader `json:"-" swaggerignore:"true"`
}

func (r *WriteRecipeRequest) hasImage() bool {
	return r.Image != "" || r.ImageFile != nil
}

// ListFilter 菜谱列表筛选条件, 0 或空表示不筛选
type ListFilter struct {
	AuthorID    uint
	TagSlugs    []string
	FavoritedBy uint
	InCartOf    uint
}

// IngredientAmountResponse 菜谱详情中的食材
type IngredientAmountResponse struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	Amount          int    `json:"amount"`
}

// RecipeResponse 菜谱详情
type RecipeResponse struct {
	ID               uint                       `json:"id"`
	Tags             []recipeModel.Tag          `json:"tags"`
	Author           dto.UserResponse           `json:"author"`
	Ingredients      []IngredientAmountResponse `json:"ingredients"`
	IsFavorited      bool                       `json:"is_favorited"`
	IsInShoppingCart bool                       `json:"is_in_shopping_cart"`
	Name             string                     `json:"name"`
	Image            string                     `json:"image"`
	Text             string                     `json:"text"`
	CookingTime      int                        `json:"cooking_time"`
}

// ShoppingListItem 购物清单聚合结果
type ShoppingListItem struct {
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	TotalAmount     int64  `json:"total_amount"`
}

// viewerFlags 当前用户相关的标记, 匿名用户全部为空
type viewerFlags struct {
	favorited  map[uint]bool
	inCart     map[uint]bool
	subscribed map[uint]bool
}

func newRecipeResponse(r *recipeModel.Recipe, flags viewerFlags) RecipeResponse {
	tags := make([]recipeModel.Tag, 0, len(r.RecipeTags))
	for _, rt := range r.RecipeTags {
		tags = append(tags, rt.Tag)
	}

	ingredients := make([]IngredientAmountResponse, 0, len(r.Ingredients))
	for _, ia := range r.Ingredients {
		ingredients = append(ingredients, IngredientAmountResponse{
			ID:              ia.IngredientID,
			Name:            ia.Ingredient.Name,
			MeasurementUnit: ia.Ingredient.MeasurementUnit,
			Amount:          ia.Amount,
		})
	}

	return RecipeResponse{
		ID:               r.ID,
		Tags:             tags,
		Author:           dto.NewUserResponse(&r.Author, flags.subscribed[r.AuthorID]),
		Ingredients:      ingredients,
		IsFavorited:      flags.favorited[r.ID],
		IsInShoppingCart: flags.inCart[r.ID],
		Name:             r.Name,
		Image:            r.Image,
		Text:             r.Text,
		CookingTime:      r.CookingTime,
	}
}
