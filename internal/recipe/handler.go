package recipe

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"terminal-terrace/foodgram/internal/dto"
	"terminal-terrace/foodgram/internal/logging"
	"terminal-terrace/foodgram/internal/metrics"
	"terminal-terrace/foodgram/internal/middleware"
	"terminal-terrace/foodgram/internal/pagination"
	"terminal-terrace/foodgram/internal/render"
	"terminal-terrace/foodgram/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// ShoppingListRenderer 购物清单文档渲染
type ShoppingListRenderer interface {
	ShoppingList(w io.Writer, lines []render.Line) error
}

// RecipeHandler 菜谱处理器
type RecipeHandler struct {
	service  RecipeService
	renderer ShoppingListRenderer
	filename string
}

func NewRecipeHandler(service RecipeService, renderer ShoppingListRenderer, filename string) *RecipeHandler {
	return &RecipeHandler{service: service, renderer: renderer, filename: filename}
}

// List 菜谱列表
// @Summary 菜谱列表（分页）
// @Tags Recipe
// @Produce json
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Param author query int false "作者ID"
// @Param tags query []string false "标签 slug, 可重复" collectionFormat(multi)
// @Param is_favorited query int false "只看收藏 (1)"
// @Param is_in_shopping_cart query int false "只看购物车 (1)"
// @Success 200 {object} response.Response{data=response.Page{results=[]RecipeResponse}}
// @Router /recipes/ [get]
func (h *RecipeHandler) List(c *gin.Context) {
	viewerID := middleware.CurrentUserID(c)
	filter := ListFilter{TagSlugs: c.QueryArray("tags")}
	if author, err := strconv.ParseUint(c.Query("author"), 10, 32); err == nil {
		filter.AuthorID = uint(author)
	}
	if isTruthy(c.Query("is_favorited")) {
		filter.FavoritedBy = viewerID
	}
	if isTruthy(c.Query("is_in_shopping_cart")) {
		filter.InCartOf = viewerID
	}

	params := pagination.FromRequest(c)
	recipes, count, err := h.service.List(c.Request.Context(), filter, params.Offset(), params.Limit, viewerID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if err := params.Check(count); err != nil {
		h.handleError(c, err)
		return
	}

	dto.SuccessResponse(c, pagination.NewPage(c, params, count, recipes))
}

// Get 菜谱详情
// @Summary 获取菜谱
// @Tags Recipe
// @Produce json
// @Param id path int true "菜谱ID"
// @Success 200 {object} response.Response{data=RecipeResponse}
// @Router /recipes/{id}/ [get]
func (h *RecipeHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	recipe, err := h.service.Get(c.Request.Context(), id, middleware.CurrentUserID(c))
	if err != nil {
		h.handleError(c, err)
		return
	}
	dto.SuccessResponse(c, recipe)
}

// Create 创建菜谱
// @Summary 创建菜谱
// @Tags Recipe
// @Accept json
// @Produce json
// @Param request body WriteRecipeRequest true "菜谱"
// @Success 201 {object} response.Response{data=RecipeResponse}
// @Security BearerAuth
// @Router /recipes/ [post]
func (h *RecipeHandler) Create(c *gin.Context) {
	req, ok := bindWriteRequest(c)
	if !ok {
		return
	}
	recipe, err := h.service.Create(c.Request.Context(), middleware.CurrentUserID(c), req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	dto.CreatedResponse(c, recipe)
}

// Update 更新菜谱
// @Summary 更新菜谱（仅作者）
// @Tags Recipe
// @Accept json
// @Produce json
// @Param id path int true "菜谱ID"
// @Param request body WriteRecipeRequest true "菜谱"
// @Success 200 {object} response.Response{data=RecipeResponse}
// @Security BearerAuth
// @Router /recipes/{id}/ [patch]
func (h *RecipeHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	req, ok := bindWriteRequest(c)
	if !ok {
		return
	}
	recipe, err := h.service.Update(c.Request.Context(), id, middleware.CurrentUserID(c), req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	dto.SuccessResponse(c, recipe)
}

// Delete 删除菜谱
// @Summary 删除菜谱（仅作者）
// @Tags Recipe
// @Param id path int true "菜谱ID"
// @Success 204
// @Security BearerAuth
// @Router /recipes/{id}/ [delete]
func (h *RecipeHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id, middleware.CurrentUserID(c)); err != nil {
		h.handleError(c, err)
		return
	}
	dto.NoContentResponse(c)
}

// AddRelation 收藏 / 加入购物车
// @Summary 收藏或加入购物车
// @Tags Recipe
// @Produce json
// @Param id path int true "菜谱ID"
// @Success 201 {object} response.Response{data=dto.MinifiedRecipe}
// @Security BearerAuth
// @Router /recipes/{id}/favorite/ [post]
// @Router /recipes/{id}/shopping_cart/ [post]
func (h *RecipeHandler) AddRelation(kind RelationKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		recipe, err := h.service.AddRelation(c.Request.Context(), kind, middleware.CurrentUserID(c), id)
		if err != nil {
			h.handleError(c, err)
			return
		}
		dto.CreatedResponse(c, recipe)
	}
}

// RemoveRelation 取消收藏 / 移出购物车
// @Summary 取消收藏或移出购物车
// @Tags Recipe
// @Param id path int true "菜谱ID"
// @Success 204
// @Security BearerAuth
// @Router /recipes/{id}/favorite/ [delete]
// @Router /recipes/{id}/shopping_cart/ [delete]
func (h *RecipeHandler) RemoveRelation(kind RelationKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		if err := h.service.RemoveRelation(c.Request.Context(), kind, middleware.CurrentUserID(c), id); err != nil {
			h.handleError(c, err)
			return
		}
		dto.NoContentResponse(c)
	}
}

// DownloadShoppingCart 下载购物清单
// @Summary 下载购物清单 PDF
// @Tags Recipe
// @Produce application/pdf
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /recipes/download_shopping_cart/ [get]
func (h *RecipeHandler) DownloadShoppingCart(c *gin.Context) {
	items, err := h.service.ShoppingList(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		h.handleError(c, err)
		return
	}

	lines := make([]render.Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, render.Line{
			Name:            item.Name,
			MeasurementUnit: item.MeasurementUnit,
			Amount:          item.TotalAmount,
		})
	}

	var buf bytes.Buffer
	if err := h.renderer.ShoppingList(&buf, lines); err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, h.filename))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
	metrics.RecordShoppingListExport()
}

// bindWriteRequest 支持 JSON 与 multipart 两种格式
// multipart 时 ingredients 为 JSON 字符串, tags 可重复
func bindWriteRequest(c *gin.Context) (*WriteRecipeRequest, bool) {
	var req WriteRecipeRequest
	if c.ContentType() != binding.MIMEMultipartPOSTForm {
		if err := c.ShouldBindJSON(&req); err != nil {
			dto.ValidationErrorResponse(c, err)
			return nil, false
		}
		return &req, true
	}

	req.Name = c.PostForm("name")
	req.Text = c.PostForm("text")
	req.CookingTime, _ = strconv.Atoi(c.PostForm("cooking_time"))
	for _, raw := range c.PostFormArray("tags") {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			invalidParam(c, "无效的标签ID: "+raw)
			return nil, false
		}
		req.Tags = append(req.Tags, uint(id))
	}
	if raw := c.PostForm("ingredients"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Ingredients); err != nil {
			invalidParam(c, "ingredients 必须是 JSON 数组")
			return nil, false
		}
	}
	if fh, err := c.FormFile("image"); err == nil {
		req.ImageFile = fh
	}

	if err := binding.Validator.ValidateStruct(&req); err != nil {
		dto.ValidationErrorResponse(c, err)
		return nil, false
	}
	return &req, true
}

func isTruthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true":
		return true
	}
	return false
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		dto.ErrorResponse(c, response.NewBusinessError(
			response.WithErrorCode(response.NotFound),
			response.WithErrorMessage(ErrRecipeNotFound.Error()),
		))
		return 0, false
	}
	return uint(id), true
}

func invalidParam(c *gin.Context, msg string) {
	dto.ErrorResponse(c, response.NewBusinessError(
		response.WithErrorCode(response.InvalidParameter),
		response.WithErrorMessage(msg),
	))
}

// handleError 统一错误处理
func (h *RecipeHandler) handleError(c *gin.Context, err error) {
	var code response.ResponseCode
	switch {
	case errors.Is(err, ErrRecipeNotFound),
		errors.Is(err, ErrTagNotFound),
		errors.Is(err, ErrIngredientNotFound),
		errors.Is(err, ErrReferenceNotFound),
		errors.Is(err, pagination.ErrInvalidPage):
		code = response.NotFound
	case errors.Is(err, ErrForbidden):
		code = response.Forbidden
	case errors.Is(err, ErrRelationExists):
		code = response.AlreadyExists
	case errors.Is(err, ErrRelationNotFound):
		code = response.RelationNotFound
	case errors.Is(err, ErrNoIngredients),
		errors.Is(err, ErrDuplicateIngredient),
		errors.Is(err, ErrImageRequired),
		errors.Is(err, ErrInvalidImage),
		errors.Is(err, ErrNotPositive):
		code = response.InvalidParameter
	default:
		logging.Ctx(c.Request.Context()).Error().Err(err).Msg("菜谱请求失败")
		dto.ErrorResponse(c, response.NewBusinessError(
			response.WithErrorCode(response.Fail),
			response.WithErrorMessage("服务器内部错误"),
		))
		return
	}

	dto.ErrorResponse(c, response.NewBusinessError(
		response.WithErrorCode(code),
		response.WithErrorMessage(err.Error()),
	))
}
