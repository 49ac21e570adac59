package recipe

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sort"
	"testing"

	recipeModel "terminal-terrace/foodgram/internal/model/recipe"
	userModel "terminal-terrace/foodgram/internal/model/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeRepo 内存实现, Transaction 在副本上执行, 成功后才提交
type fakeRepo struct {
	recipes     map[uint]recipeModel.Recipe
	tags        map[uint]recipeModel.Tag
	ingredients map[uint]recipeModel.Ingredient
	recipeTags  map[uint][]uint
	amounts     map[uint][]recipeModel.IngredientAmount
	relations   map[RelationKind]map[[2]uint]bool
	follows     map[[2]uint]bool
	nextID      uint

	failAddIngredients error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		recipes: map[uint]recipeModel.Recipe{},
		tags: map[uint]recipeModel.Tag{
			1: {ID: 1, Name: "Завтрак", Color: "#E26C2D", Slug: "breakfast"},
			2: {ID: 2, Name: "Обед", Color: "#49B64E", Slug: "lunch"},
			3: {ID: 3, Name: "Ужин", Color: "#8775D2", Slug: "dinner"},
		},
		ingredients: map[uint]recipeModel.Ingredient{
			1: {ID: 1, Name: "Salt", MeasurementUnit: "g"},
			2: {ID: 2, Name: "Milk", MeasurementUnit: "ml"},
			3: {ID: 3, Name: "Egg", MeasurementUnit: "pcs"},
		},
		recipeTags: map[uint][]uint{},
		amounts:    map[uint][]recipeModel.IngredientAmount{},
		relations: map[RelationKind]map[[2]uint]bool{
			RelationFavorite:     {},
			RelationShoppingCart: {},
		},
		follows: map[[2]uint]bool{},
	}
}

func (f *fakeRepo) clone() *fakeRepo {
	c := *f
	c.recipes = make(map[uint]recipeModel.Recipe, len(f.recipes))
	for k, v := range f.recipes {
		c.recipes[k] = v
	}
	c.recipeTags = make(map[uint][]uint, len(f.recipeTags))
	for k, v := range f.recipeTags {
		c.recipeTags[k] = append([]uint(nil), v...)
	}
	c.amounts = make(map[uint][]recipeModel.IngredientAmount, len(f.amounts))
	for k, v := range f.amounts {
		c.amounts[k] = append([]recipeModel.IngredientAmount(nil), v...)
	}
	return &c
}

func (f *fakeRepo) Transaction(_ context.Context, fn func(repo RecipeRepository) error) error {
	tx := f.clone()
	if err := fn(tx); err != nil {
		return err
	}
	*f = *tx
	return nil
}

func (f *fakeRepo) Create(_ context.Context, r *recipeModel.Recipe) error {
	f.nextID++
	r.ID = f.nextID
	f.recipes[r.ID] = *r
	return nil
}

func (f *fakeRepo) Update(_ context.Context, r *recipeModel.Recipe) error {
	f.recipes[r.ID] = *r
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, id uint) error {
	delete(f.recipes, id)
	delete(f.recipeTags, id)
	delete(f.amounts, id)
	for _, rel := range f.relations {
		for key := range rel {
			if key[1] == id {
				delete(rel, key)
			}
		}
	}
	return nil
}

func (f *fakeRepo) FindByID(_ context.Context, id uint) (*recipeModel.Recipe, error) {
	r, ok := f.recipes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	r.Author = userModel.User{ID: r.AuthorID, Username: fmt.Sprintf("user%d", r.AuthorID)}
	r.RecipeTags = nil
	for _, tagID := range f.recipeTags[id] {
		r.RecipeTags = append(r.RecipeTags, recipeModel.RecipeTag{RecipeID: id, TagID: tagID, Tag: f.tags[tagID]})
	}
	r.Ingredients = nil
	for _, ia := range f.amounts[id] {
		ia.Ingredient = f.ingredients[ia.IngredientID]
		r.Ingredients = append(r.Ingredients, ia)
	}
	return &r, nil
}

func (f *fakeRepo) List(ctx context.Context, filter ListFilter, offset, limit int) ([]recipeModel.Recipe, int64, error) {
	var ids []uint
	for id, r := range f.recipes {
		if filter.AuthorID != 0 && r.AuthorID != filter.AuthorID {
			continue
		}
		if filter.FavoritedBy != 0 && !f.relations[RelationFavorite][[2]uint{filter.FavoritedBy, id}] {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })

	var result []recipeModel.Recipe
	for i := offset; i < len(ids) && i < offset+limit; i++ {
		r, _ := f.FindByID(ctx, ids[i])
		result = append(result, *r)
	}
	return result, int64(len(ids)), nil
}

func (f *fakeRepo) CountTags(_ context.Context, ids []uint) (int64, error) {
	var n int64
	for _, id := range ids {
		if _, ok := f.tags[id]; ok {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) CountIngredients(_ context.Context, ids []uint) (int64, error) {
	var n int64
	for _, id := range ids {
		if _, ok := f.ingredients[id]; ok {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) ClearAssociations(_ context.Context, recipeID uint) error {
	delete(f.recipeTags, recipeID)
	delete(f.amounts, recipeID)
	return nil
}

func (f *fakeRepo) AddTags(_ context.Context, recipeID uint, tagIDs []uint) error {
	for _, id := range tagIDs {
		for _, existing := range f.recipeTags[recipeID] {
			if existing == id {
				return gorm.ErrDuplicatedKey
			}
		}
		f.recipeTags[recipeID] = append(f.recipeTags[recipeID], id)
	}
	return nil
}

func (f *fakeRepo) AddIngredients(_ context.Context, amounts []recipeModel.IngredientAmount) error {
	if f.failAddIngredients != nil {
		return f.failAddIngredients
	}
	for _, a := range amounts {
		f.amounts[a.RecipeID] = append(f.amounts[a.RecipeID], a)
	}
	return nil
}

func (f *fakeRepo) RelationExists(_ context.Context, kind RelationKind, userID, recipeID uint) (bool, error) {
	return f.relations[kind][[2]uint{userID, recipeID}], nil
}

func (f *fakeRepo) CreateRelation(_ context.Context, kind RelationKind, userID, recipeID uint) error {
	key := [2]uint{userID, recipeID}
	if f.relations[kind][key] {
		return gorm.ErrDuplicatedKey
	}
	f.relations[kind][key] = true
	return nil
}

func (f *fakeRepo) DeleteRelation(_ context.Context, kind RelationKind, userID, recipeID uint) (int64, error) {
	key := [2]uint{userID, recipeID}
	if !f.relations[kind][key] {
		return 0, nil
	}
	delete(f.relations[kind], key)
	return 1, nil
}

func (f *fakeRepo) RelatedRecipeIDs(_ context.Context, kind RelationKind, userID uint, recipeIDs []uint) (map[uint]bool, error) {
	result := map[uint]bool{}
	for _, id := range recipeIDs {
		if f.relations[kind][[2]uint{userID, id}] {
			result[id] = true
		}
	}
	return result, nil
}

func (f *fakeRepo) SubscribedAuthorIDs(_ context.Context, userID uint, authorIDs []uint) (map[uint]bool, error) {
	result := map[uint]bool{}
	for _, id := range authorIDs {
		if f.follows[[2]uint{userID, id}] {
			result[id] = true
		}
	}
	return result, nil
}

func (f *fakeRepo) ShoppingList(_ context.Context, userID uint) ([]ShoppingListItem, error) {
	totals := map[[2]string]int64{}
	for key := range f.relations[RelationShoppingCart] {
		if key[0] != userID {
			continue
		}
		for _, a := range f.amounts[key[1]] {
			ing := f.ingredients[a.IngredientID]
			totals[[2]string{ing.Name, ing.MeasurementUnit}] += int64(a.Amount)
		}
	}
	var items []ShoppingListItem
	for k, v := range totals {
		items = append(items, ShoppingListItem{Name: k[0], MeasurementUnit: k[1], TotalAmount: v})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

type memStorage struct {
	saved int
}

func (m *memStorage) Save(_ context.Context, prefix, contentType string, r io.Reader) (string, error) {
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	m.saved++
	return fmt.Sprintf("/media/%s/%d.png", prefix, m.saved), nil
}

var testImage = "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte{0x89, 'P', 'N', 'G'})

func newTestService() (*recipeService, *fakeRepo, *memStorage) {
	repo := newFakeRepo()
	store := &memStorage{}
	return &recipeService{repo: repo, storage: store}, repo, store
}

func validRequest() *WriteRecipeRequest {
	return &WriteRecipeRequest{
		Ingredients: []IngredientLine{{ID: 1, Amount: 5}, {ID: 2, Amount: 200}},
		Tags:        []uint{1, 2},
		Image:       testImage,
		Name:        "Омлет",
		Text:        "Взбить и пожарить",
		CookingTime: 10,
	}
}

func TestValidateWrite(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(r *WriteRecipeRequest)
		wantErr  error
		wantTags []uint
	}{
		{"合法请求", func(r *WriteRecipeRequest) {}, nil, []uint{1, 2}},
		{"食材为空", func(r *WriteRecipeRequest) { r.Ingredients = nil }, ErrNoIngredients, nil},
		{"食材重复", func(r *WriteRecipeRequest) {
			r.Ingredients = []IngredientLine{{ID: 1, Amount: 5}, {ID: 1, Amount: 3}}
		}, ErrDuplicateIngredient, nil},
		{"用量为 0", func(r *WriteRecipeRequest) { r.Ingredients[0].Amount = 0 }, ErrNotPositive, nil},
		{"烹饪时间为 0", func(r *WriteRecipeRequest) { r.CookingTime = 0 }, ErrNotPositive, nil},
		{"标签重复被合并", func(r *WriteRecipeRequest) { r.Tags = []uint{2, 1, 2, 2} }, nil, []uint{2, 1}},
		{"没有标签", func(r *WriteRecipeRequest) { r.Tags = nil }, nil, []uint{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(req)
			tags, err := validateWrite(req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTags, tags)
		})
	}
}

func TestCreateRecipe(t *testing.T) {
	svc, repo, store := newTestService()

	resp, err := svc.Create(context.Background(), 7, validRequest())
	require.NoError(t, err)

	assert.Equal(t, "Омлет", resp.Name)
	assert.Equal(t, uint(7), resp.Author.ID)
	assert.Equal(t, "/media/recipes/images/1.png", resp.Image)
	assert.Len(t, resp.Tags, 2)
	require.Len(t, resp.Ingredients, 2)
	assert.Equal(t, IngredientAmountResponse{ID: 1, Name: "Salt", MeasurementUnit: "g", Amount: 5}, resp.Ingredients[0])
	assert.False(t, resp.IsFavorited)
	assert.Equal(t, 1, store.saved)
	assert.Len(t, repo.recipes, 1)
}

func TestCreateRecipeValidationPersistsNothing(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *WriteRecipeRequest)
		wantErr error
	}{
		{"食材为空", func(r *WriteRecipeRequest) { r.Ingredients = []IngredientLine{} }, ErrNoIngredients},
		{"同一食材出现两次", func(r *WriteRecipeRequest) {
			r.Ingredients = []IngredientLine{{ID: 1, Amount: 5}, {ID: 1, Amount: 3}}
		}, ErrDuplicateIngredient},
		{"缺少图片", func(r *WriteRecipeRequest) { r.Image = "" }, ErrImageRequired},
		{"图片格式错误", func(r *WriteRecipeRequest) { r.Image = "not-an-image" }, ErrInvalidImage},
		{"标签不存在", func(r *WriteRecipeRequest) { r.Tags = []uint{1, 99} }, ErrTagNotFound},
		{"食材不存在", func(r *WriteRecipeRequest) { r.Ingredients[1].ID = 99 }, ErrIngredientNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, store := newTestService()
			req := validRequest()
			tt.mutate(req)

			_, err := svc.Create(context.Background(), 7, req)
			assert.ErrorIs(t, err, tt.wantErr)
			// 校验失败时图片也不落盘
			assert.Zero(t, store.saved)
			assert.Empty(t, repo.recipes)
			assert.Empty(t, repo.recipeTags)
			assert.Empty(t, repo.amounts)
		})
	}
}

func TestCreateRecipeRollsBackOnWriteFailure(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.failAddIngredients = errors.New("connection reset")

	_, err := svc.Create(context.Background(), 7, validRequest())
	require.Error(t, err)
	assert.Empty(t, repo.recipes)
	assert.Empty(t, repo.recipeTags)
}

func TestCreateRecipeTranslatesConstraintErrors(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.failAddIngredients = fmt.Errorf("insert: %w", gorm.ErrCheckConstraintViolated)

	_, err := svc.Create(context.Background(), 7, validRequest())
	assert.ErrorIs(t, err, ErrNotPositive)

	repo.failAddIngredients = fmt.Errorf("insert: %w", gorm.ErrForeignKeyViolated)
	_, err = svc.Create(context.Background(), 7, validRequest())
	assert.ErrorIs(t, err, ErrReferenceNotFound)
}

func TestCreateRecipeCollapsesDuplicateTags(t *testing.T) {
	svc, repo, _ := newTestService()
	req := validRequest()
	req.Tags = []uint{3, 3, 1, 3}

	resp, err := svc.Create(context.Background(), 7, req)
	require.NoError(t, err)
	assert.Len(t, repo.recipeTags[resp.ID], 2)
	assert.Len(t, resp.Tags, 2)
}

func TestUpdateRecipeReplacesAssociations(t *testing.T) {
	svc, repo, store := newTestService()
	created, err := svc.Create(context.Background(), 7, validRequest())
	require.NoError(t, err)

	update := &WriteRecipeRequest{
		Ingredients: []IngredientLine{{ID: 3, Amount: 2}},
		Tags:        []uint{3},
		Name:        "Яичница",
		Text:        "Пожарить",
		CookingTime: 5,
	}
	resp, err := svc.Update(context.Background(), created.ID, 7, update)
	require.NoError(t, err)

	assert.Equal(t, "Яичница", resp.Name)
	// 未提供图片时保留原图
	assert.Equal(t, created.Image, resp.Image)
	assert.Equal(t, 1, store.saved)
	assert.Equal(t, []uint{3}, repo.recipeTags[created.ID])
	require.Len(t, repo.amounts[created.ID], 1)
	assert.Equal(t, uint(3), repo.amounts[created.ID][0].IngredientID)
}

func TestUpdateRecipeFailureKeepsPreviousAssociations(t *testing.T) {
	svc, repo, store := newTestService()
	created, err := svc.Create(context.Background(), 7, validRequest())
	require.NoError(t, err)

	update := validRequest()
	update.Ingredients = []IngredientLine{{ID: 99, Amount: 1}}
	_, err = svc.Update(context.Background(), created.ID, 7, update)
	assert.ErrorIs(t, err, ErrIngredientNotFound)
	assert.Equal(t, 1, store.saved)
	assert.Equal(t, created.Image, repo.recipes[created.ID].Image)

	assert.Equal(t, []uint{1, 2}, repo.recipeTags[created.ID])
	assert.Len(t, repo.amounts[created.ID], 2)
	assert.Equal(t, "Омлет", repo.recipes[created.ID].Name)
}

func TestUpdateAndDeleteRequireAuthor(t *testing.T) {
	svc, repo, _ := newTestService()
	created, err := svc.Create(context.Background(), 7, validRequest())
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), created.ID, 8, validRequest())
	assert.ErrorIs(t, err, ErrForbidden)

	assert.ErrorIs(t, svc.Delete(context.Background(), created.ID, 8), ErrForbidden)
	assert.ErrorIs(t, svc.Delete(context.Background(), created.ID, 0), ErrForbidden)
	assert.ErrorIs(t, svc.Delete(context.Background(), 999, 7), ErrRecipeNotFound)

	require.NoError(t, svc.Delete(context.Background(), created.ID, 7))
	assert.Empty(t, repo.recipes)
}

func TestFavoriteToggleScenario(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()
	created, err := svc.Create(ctx, 7, validRequest())
	require.NoError(t, err)

	// 收藏成功, 返回精简信息
	minified, err := svc.AddRelation(ctx, RelationFavorite, 8, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, minified.ID)
	assert.Equal(t, created.Image, minified.Image)
	assert.Equal(t, 10, minified.CookingTime)
	assert.Len(t, repo.relations[RelationFavorite], 1)

	// 重复收藏
	_, err = svc.AddRelation(ctx, RelationFavorite, 8, created.ID)
	assert.ErrorIs(t, err, ErrRelationExists)
	assert.Len(t, repo.relations[RelationFavorite], 1)

	// 取消收藏
	require.NoError(t, svc.RemoveRelation(ctx, RelationFavorite, 8, created.ID))

	// 再次取消
	assert.ErrorIs(t, svc.RemoveRelation(ctx, RelationFavorite, 8, created.ID), ErrRelationNotFound)
}

func TestRelationOnMissingRecipe(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.AddRelation(context.Background(), RelationShoppingCart, 8, 42)
	assert.ErrorIs(t, err, ErrRecipeNotFound)
	assert.ErrorIs(t, svc.RemoveRelation(context.Background(), RelationShoppingCart, 8, 42), ErrRecipeNotFound)
}

func TestViewerFlags(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()
	created, err := svc.Create(ctx, 7, validRequest())
	require.NoError(t, err)

	_, err = svc.AddRelation(ctx, RelationFavorite, 8, created.ID)
	require.NoError(t, err)
	_, err = svc.AddRelation(ctx, RelationShoppingCart, 8, created.ID)
	require.NoError(t, err)
	repo.follows[[2]uint{8, 7}] = true

	viewer, err := svc.Get(ctx, created.ID, 8)
	require.NoError(t, err)
	assert.True(t, viewer.IsFavorited)
	assert.True(t, viewer.IsInShoppingCart)
	assert.True(t, viewer.Author.IsSubscribed)

	// 标记只针对当前用户
	other, err := svc.Get(ctx, created.ID, 9)
	require.NoError(t, err)
	assert.False(t, other.IsFavorited)
	assert.False(t, other.IsInShoppingCart)
	assert.False(t, other.Author.IsSubscribed)

	anonymous, err := svc.Get(ctx, created.ID, 0)
	require.NoError(t, err)
	assert.False(t, anonymous.IsFavorited)
	assert.False(t, anonymous.Author.IsSubscribed)
}

func TestListIgnoresRelationFiltersForAnonymous(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	_, err := svc.Create(ctx, 7, validRequest())
	require.NoError(t, err)

	recipes, count, err := svc.List(ctx, ListFilter{FavoritedBy: 5}, 0, 6, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Len(t, recipes, 1)

	recipes, count, err = svc.List(ctx, ListFilter{FavoritedBy: 5}, 0, 6, 5)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, recipes)
}

func TestShoppingListSumsSharedIngredients(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	first := validRequest()
	first.Ingredients = []IngredientLine{{ID: 1, Amount: 5}, {ID: 2, Amount: 100}}
	a, err := svc.Create(ctx, 7, first)
	require.NoError(t, err)

	second := validRequest()
	second.Ingredients = []IngredientLine{{ID: 1, Amount: 3}}
	b, err := svc.Create(ctx, 7, second)
	require.NoError(t, err)

	_, err = svc.AddRelation(ctx, RelationShoppingCart, 8, a.ID)
	require.NoError(t, err)
	_, err = svc.AddRelation(ctx, RelationShoppingCart, 8, b.ID)
	require.NoError(t, err)

	items, err := svc.ShoppingList(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, []ShoppingListItem{
		{Name: "Milk", MeasurementUnit: "ml", TotalAmount: 100},
		{Name: "Salt", MeasurementUnit: "g", TotalAmount: 8},
	}, items)
}
