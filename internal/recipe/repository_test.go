package recipe

import (
	"context"
	"testing"

	recipeModel "terminal-terrace/foodgram/internal/model/recipe"
	userModel "terminal-terrace/foodgram/internal/model/user"
	"terminal-terrace/foodgram/internal/testutils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestShoppingListAggregation(t *testing.T) {
	db := testutils.SetupTestDB(t)
	repo := NewRecipeRepository(db)
	ctx := context.Background()

	author := testutils.CreateTestUser(db)
	buyer := testutils.CreateTestUser(db)
	salt := testutils.CreateTestIngredient(db, "Salt", "g")
	milk := testutils.CreateTestIngredient(db, "Milk", "ml")

	first := testutils.CreateTestRecipe(db, author.ID, map[uint]int{salt.ID: 5, milk.ID: 200})
	second := testutils.CreateTestRecipe(db, author.ID, map[uint]int{salt.ID: 3})
	// 不在购物车中的菜谱不参与汇总
	testutils.CreateTestRecipe(db, author.ID, map[uint]int{salt.ID: 100})

	require.NoError(t, repo.CreateRelation(ctx, RelationShoppingCart, buyer.ID, first.ID))
	require.NoError(t, repo.CreateRelation(ctx, RelationShoppingCart, buyer.ID, second.ID))

	items, err := repo.ShoppingList(ctx, buyer.ID)
	require.NoError(t, err)

	totals := map[string]int64{}
	for _, item := range items {
		totals[item.Name+"|"+item.MeasurementUnit] = item.TotalAmount
	}
	assert.Len(t, items, 2)
	assert.Equal(t, int64(8), totals[salt.Name+"|g"])
	assert.Equal(t, int64(200), totals[milk.Name+"|ml"])

	empty, err := repo.ShoppingList(ctx, author.ID)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestServiceCreateAndUpdateAgainstDatabase(t *testing.T) {
	db := testutils.SetupTestDB(t)
	svc := NewRecipeService(NewRecipeRepository(db), &memStorage{})
	ctx := context.Background()

	author := testutils.CreateTestUser(db)
	tagA := testutils.CreateTestTag(db)
	tagB := testutils.CreateTestTag(db)
	salt := testutils.CreateTestIngredient(db, "Salt", "g")
	egg := testutils.CreateTestIngredient(db, "Egg", "pcs")

	req := &WriteRecipeRequest{
		Ingredients: []IngredientLine{{ID: salt.ID, Amount: 5}},
		Tags:        []uint{tagA.ID, tagA.ID, tagB.ID},
		Image:       testImage,
		Name:        "Soup",
		Text:        "Boil",
		CookingTime: 30,
	}
	created, err := svc.Create(ctx, author.ID, req)
	require.NoError(t, err)
	assert.Len(t, created.Tags, 2)

	var tagCount int64
	db.Model(&recipeModel.RecipeTag{}).Where("recipe_id = ?", created.ID).Count(&tagCount)
	assert.Equal(t, int64(2), tagCount)

	update := &WriteRecipeRequest{
		Ingredients: []IngredientLine{{ID: egg.ID, Amount: 2}},
		Tags:        []uint{tagB.ID},
		Name:        "Eggs",
		Text:        "Fry",
		CookingTime: 5,
	}
	updated, err := svc.Update(ctx, created.ID, author.ID, update)
	require.NoError(t, err)
	require.Len(t, updated.Ingredients, 1)
	assert.Equal(t, egg.ID, updated.Ingredients[0].ID)
	require.Len(t, updated.Tags, 1)
	assert.Equal(t, tagB.ID, updated.Tags[0].ID)
	assert.Equal(t, created.Image, updated.Image)

	var amountCount int64
	db.Model(&recipeModel.IngredientAmount{}).Where("recipe_id = ?", created.ID).Count(&amountCount)
	assert.Equal(t, int64(1), amountCount)
}

func TestServiceCreateUnknownIngredientRollsBack(t *testing.T) {
	db := testutils.SetupTestDB(t)
	svc := NewRecipeService(NewRecipeRepository(db), &memStorage{})
	author := testutils.CreateTestUser(db)
	tag := testutils.CreateTestTag(db)

	_, err := svc.Create(context.Background(), author.ID, &WriteRecipeRequest{
		Ingredients: []IngredientLine{{ID: 987654321, Amount: 1}},
		Tags:        []uint{tag.ID},
		Image:       testImage,
		Name:        "Ghost",
		Text:        "...",
		CookingTime: 1,
	})
	assert.ErrorIs(t, err, ErrIngredientNotFound)

	var count int64
	db.Model(&recipeModel.Recipe{}).Where("author_id = ?", author.ID).Count(&count)
	assert.Zero(t, count)
	db.Model(&recipeModel.RecipeTag{}).Where("tag_id = ?", tag.ID).Count(&count)
	assert.Zero(t, count)
}

func TestDeleteRecipeCascades(t *testing.T) {
	db := testutils.SetupTestDB(t)
	repo := NewRecipeRepository(db)
	ctx := context.Background()

	author := testutils.CreateTestUser(db)
	fan := testutils.CreateTestUser(db)
	salt := testutils.CreateTestIngredient(db, "Salt", "g")
	recipe := testutils.CreateTestRecipe(db, author.ID, map[uint]int{salt.ID: 1})
	require.NoError(t, repo.CreateRelation(ctx, RelationFavorite, fan.ID, recipe.ID))
	require.NoError(t, repo.CreateRelation(ctx, RelationShoppingCart, fan.ID, recipe.ID))

	require.NoError(t, repo.Delete(ctx, recipe.ID))

	for _, model := range []any{&recipeModel.IngredientAmount{}, &recipeModel.Favorite{}, &recipeModel.ShoppingCart{}} {
		var count int64
		db.Model(model).Where("recipe_id = ?", recipe.ID).Count(&count)
		assert.Zero(t, count)
	}
}

func TestListFilters(t *testing.T) {
	db := testutils.SetupTestDB(t)
	repo := NewRecipeRepository(db)
	ctx := context.Background()

	author := testutils.CreateTestUser(db)
	other := testutils.CreateTestUser(db)
	tag := testutils.CreateTestTag(db)
	salt := testutils.CreateTestIngredient(db, "Salt", "g")

	tagged := testutils.CreateTestRecipe(db, author.ID, map[uint]int{salt.ID: 1})
	require.NoError(t, repo.AddTags(ctx, tagged.ID, []uint{tag.ID}))
	plain := testutils.CreateTestRecipe(db, author.ID, map[uint]int{salt.ID: 2})
	testutils.CreateTestRecipe(db, other.ID, map[uint]int{salt.ID: 3})
	require.NoError(t, repo.CreateRelation(ctx, RelationFavorite, other.ID, plain.ID))

	byAuthor, count, err := repo.List(ctx, ListFilter{AuthorID: author.ID}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.Len(t, byAuthor, 2)

	byTag, count, err := repo.List(ctx, ListFilter{TagSlugs: []string{tag.Slug, "missing"}}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	require.Len(t, byTag, 1)
	assert.Equal(t, tagged.ID, byTag[0].ID)
	require.Len(t, byTag[0].RecipeTags, 1)
	assert.Equal(t, tag.Slug, byTag[0].RecipeTags[0].Tag.Slug)

	favorited, count, err := repo.List(ctx, ListFilter{FavoritedBy: other.ID}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, plain.ID, favorited[0].ID)

	flags, err := repo.RelatedRecipeIDs(ctx, RelationFavorite, other.ID, []uint{tagged.ID, plain.ID})
	require.NoError(t, err)
	assert.Equal(t, map[uint]bool{plain.ID: true}, flags)
}

func TestStorageConstraints(t *testing.T) {
	db := testutils.SetupTestDB(t)
	author := testutils.CreateTestUser(db)

	// cooking_time 检查约束
	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.Omit("Author", "Ingredients", "RecipeTags").Create(&recipeModel.Recipe{
			AuthorID: author.ID, Name: "bad", Text: "bad", Image: "x", CookingTime: 0,
		}).Error
	})
	assert.ErrorIs(t, err, gorm.ErrCheckConstraintViolated)

	// 不能关注自己
	err = db.Transaction(func(tx *gorm.DB) error {
		return tx.Omit("User", "Author").Create(&userModel.Follow{UserID: author.ID, AuthorID: author.ID}).Error
	})
	assert.ErrorIs(t, err, gorm.ErrCheckConstraintViolated)

	// 重复收藏由唯一约束拦截
	recipe := testutils.CreateTestRecipe(db, author.ID, nil)
	repo := NewRecipeRepository(db)
	require.NoError(t, repo.CreateRelation(context.Background(), RelationFavorite, author.ID, recipe.ID))
	err = db.Transaction(func(tx *gorm.DB) error {
		return NewRecipeRepository(tx).CreateRelation(context.Background(), RelationFavorite, author.ID, recipe.ID)
	})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}
