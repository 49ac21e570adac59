package recipe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"terminal-terrace/foodgram/internal/render"
	"terminal-terrace/foodgram/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRenderer struct {
	lines []render.Line
}

func (s *stubRenderer) ShoppingList(w io.Writer, lines []render.Line) error {
	s.lines = lines
	_, err := w.Write([]byte("%PDF-stub"))
	return err
}

// setupTestRouter 用 header 模拟认证中间件写入的 user_id
func setupTestRouter(svc RecipeService, renderer ShoppingListRenderer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		var id uint
		if _, err := fmt.Sscan(c.GetHeader("X-Test-User"), &id); err == nil && id != 0 {
			c.Set("user_id", id)
		}
		c.Next()
	})

	h := NewRecipeHandler(svc, renderer, "shopping_list.pdf")
	api := r.Group("/api/recipes")
	api.GET("/", h.List)
	api.POST("/", h.Create)
	api.GET("/download_shopping_cart/", h.DownloadShoppingCart)
	api.GET("/:id/", h.Get)
	api.PATCH("/:id/", h.Update)
	api.DELETE("/:id/", h.Delete)
	api.POST("/:id/favorite/", h.AddRelation(RelationFavorite))
	api.DELETE("/:id/favorite/", h.RemoveRelation(RelationFavorite))
	api.POST("/:id/shopping_cart/", h.AddRelation(RelationShoppingCart))
	return r
}

func doRequest(t *testing.T, r http.Handler, method, path string, userID uint, body any) (*httptest.ResponseRecorder, response.Response) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		req.Header.Set("X-Test-User", fmt.Sprint(userID))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp response.Response
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "application/pdf" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func createRecipe(t *testing.T, svc RecipeService, authorID uint) *RecipeResponse {
	t.Helper()
	created, err := svc.Create(context.Background(), authorID, validRequest())
	require.NoError(t, err)
	return created
}

func TestHandlerCreateRejectsRepeatedIngredient(t *testing.T) {
	svc, repo, _ := newTestService()
	r := setupTestRouter(svc, &stubRenderer{})

	body := map[string]any{
		"ingredients":  []map[string]any{{"id": 1, "amount": 5}, {"id": 1, "amount": 3}},
		"tags":         []uint{1},
		"image":        testImage,
		"name":         "Salt soup",
		"text":         "...",
		"cooking_time": 5,
	}
	w, resp := doRequest(t, r, http.MethodPost, "/api/recipes/", 7, body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ingredients must not repeat", resp.Message)
	assert.Equal(t, response.InvalidParameter, resp.Code)
	assert.Empty(t, repo.recipes)
}

func TestHandlerCreateBindingErrors(t *testing.T) {
	svc, _, _ := newTestService()
	r := setupTestRouter(svc, &stubRenderer{})

	tests := []struct {
		name string
		body map[string]any
	}{
		{"缺少名称", map[string]any{"ingredients": []map[string]any{{"id": 1, "amount": 1}}, "text": "t", "cooking_time": 1}},
		{"烹饪时间为 0", map[string]any{"ingredients": []map[string]any{{"id": 1, "amount": 1}}, "name": "n", "text": "t", "cooking_time": 0}},
		{"用量为负数", map[string]any{"ingredients": []map[string]any{{"id": 1, "amount": -1}}, "name": "n", "text": "t", "cooking_time": 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := doRequest(t, r, http.MethodPost, "/api/recipes/", 7, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, response.ParseError, resp.Code)
		})
	}
}

func TestHandlerCreateSuccess(t *testing.T) {
	svc, _, _ := newTestService()
	r := setupTestRouter(svc, &stubRenderer{})

	w, resp := doRequest(t, r, http.MethodPost, "/api/recipes/", 7, validRequest())
	assert.Equal(t, http.StatusCreated, w.Code)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Омлет", data["name"])
	assert.Len(t, data["ingredients"], 2)
	assert.Equal(t, false, data["is_favorited"])
}

func TestHandlerFavoriteLifecycle(t *testing.T) {
	svc, _, _ := newTestService()
	r := setupTestRouter(svc, &stubRenderer{})
	created := createRecipe(t, svc, 7)
	path := fmt.Sprintf("/api/recipes/%d/favorite/", created.ID)

	w, resp := doRequest(t, r, http.MethodPost, path, 8, nil)
	assert.Equal(t, http.StatusCreated, w.Code)
	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(created.ID), data["id"])
	assert.NotContains(t, data, "ingredients")

	w, resp = doRequest(t, r, http.MethodPost, path, 8, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.AlreadyExists, resp.Code)

	w, _ = doRequest(t, r, http.MethodDelete, path, 8, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, resp = doRequest(t, r, http.MethodDelete, path, 8, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.RelationNotFound, resp.Code)
}

func TestHandlerNotFoundAndForbidden(t *testing.T) {
	svc, _, _ := newTestService()
	r := setupTestRouter(svc, &stubRenderer{})
	created := createRecipe(t, svc, 7)

	w, _ := doRequest(t, r, http.MethodGet, "/api/recipes/999/", 0, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = doRequest(t, r, http.MethodGet, "/api/recipes/abc/", 0, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = doRequest(t, r, http.MethodPost, "/api/recipes/999/shopping_cart/", 8, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, resp := doRequest(t, r, http.MethodPatch, fmt.Sprintf("/api/recipes/%d/", created.ID), 8, validRequest())
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, response.Forbidden, resp.Code)

	w, _ = doRequest(t, r, http.MethodDelete, fmt.Sprintf("/api/recipes/%d/", created.ID), 8, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = doRequest(t, r, http.MethodDelete, fmt.Sprintf("/api/recipes/%d/", created.ID), 7, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestHandlerListPagination(t *testing.T) {
	svc, _, _ := newTestService()
	r := setupTestRouter(svc, &stubRenderer{})
	for i := 0; i < 3; i++ {
		createRecipe(t, svc, 7)
	}

	w, resp := doRequest(t, r, http.MethodGet, "/api/recipes/?limit=2", 0, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := resp.Data.(map[string]any)
	assert.Equal(t, float64(3), page["count"])
	assert.Len(t, page["results"], 2)
	assert.NotNil(t, page["next"])
	assert.Nil(t, page["previous"])

	w, _ = doRequest(t, r, http.MethodGet, "/api/recipes/?limit=2&page=5", 0, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// 极大的页码不会让偏移量溢出
	w, _ = doRequest(t, r, http.MethodGet, "/api/recipes/?limit=2&page=4611686018427387904", 0, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlerDownloadShoppingCart(t *testing.T) {
	svc, _, _ := newTestService()
	renderer := &stubRenderer{}
	r := setupTestRouter(svc, renderer)
	created := createRecipe(t, svc, 7)

	w, _ := doRequest(t, r, http.MethodPost, fmt.Sprintf("/api/recipes/%d/shopping_cart/", created.ID), 8, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w, _ = doRequest(t, r, http.MethodGet, "/api/recipes/download_shopping_cart/", 8, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="shopping_list.pdf"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-stub", w.Body.String())
	assert.Equal(t, []render.Line{
		{Name: "Milk", MeasurementUnit: "ml", Amount: 200},
		{Name: "Salt", MeasurementUnit: "g", Amount: 5},
	}, renderer.lines)
}
