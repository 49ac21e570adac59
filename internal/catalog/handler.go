package catalog

import (
	"errors"
	"strconv"

	"terminal-terrace/foodgram/internal/dto"
	"terminal-terrace/foodgram/internal/logging"
	"terminal-terrace/foodgram/pkg/response"

	"github.com/gin-gonic/gin"
)

// CatalogHandler 标签与食材处理器
type CatalogHandler struct {
	service CatalogService
}

func NewCatalogHandler(service CatalogService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// ListTags 标签列表
// @Summary 获取全部标签（不分页）
// @Tags Tag
// @Produce json
// @Success 200 {object} response.Response{data=[]recipe.Tag}
// @Router /tags/ [get]
func (h *CatalogHandler) ListTags(c *gin.Context) {
	tags, err := h.service.ListTags(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	dto.SuccessResponse(c, tags)
}

// GetTag 标签详情
// @Summary 获取标签
// @Tags Tag
// @Produce json
// @Param id path int true "标签ID"
// @Success 200 {object} response.Response{data=recipe.Tag}
// @Router /tags/{id}/ [get]
func (h *CatalogHandler) GetTag(c *gin.Context) {
	id, ok := parseID(c, "无效的标签ID")
	if !ok {
		return
	}
	tag, err := h.service.GetTag(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	dto.SuccessResponse(c, tag)
}

// CreateTag 创建标签
// @Summary 创建标签（管理员）
// @Tags Tag
// @Accept json
// @Produce json
// @Param request body CreateTagRequest true "创建标签请求"
// @Success 201 {object} response.Response{data=recipe.Tag}
// @Router /tags/ [post]
func (h *CatalogHandler) CreateTag(c *gin.Context) {
	var req CreateTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.ValidationErrorResponse(c, err)
		return
	}
	tag, err := h.service.CreateTag(c.Request.Context(), &req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	dto.CreatedResponse(c, tag)
}

// ListIngredients 食材列表
// @Summary 获取食材（不分页，支持名称前缀搜索）
// @Tags Ingredient
// @Produce json
// @Param name query string false "名称前缀"
// @Success 200 {object} response.Response{data=[]recipe.Ingredient}
// @Router /ingredients/ [get]
func (h *CatalogHandler) ListIngredients(c *gin.Context) {
	ingredients, err := h.service.ListIngredients(c.Request.Context(), c.Query("name"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	dto.SuccessResponse(c, ingredients)
}

// GetIngredient 食材详情
// @Summary 获取食材
// @Tags Ingredient
// @Produce json
// @Param id path int true "食材ID"
// @Success 200 {object} response.Response{data=recipe.Ingredient}
// @Router /ingredients/{id}/ [get]
func (h *CatalogHandler) GetIngredient(c *gin.Context) {
	id, ok := parseID(c, "无效的食材ID")
	if !ok {
		return
	}
	ingredient, err := h.service.GetIngredient(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	dto.SuccessResponse(c, ingredient)
}

func parseID(c *gin.Context, msg string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		dto.ErrorResponse(c, response.NewBusinessError(
			response.WithErrorCode(response.NotFound),
			response.WithErrorMessage(msg),
		))
		return 0, false
	}
	return uint(id), true
}

// handleError 统一错误处理
func (h *CatalogHandler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrTagNotFound), errors.Is(err, ErrIngredientNotFound):
		dto.ErrorResponse(c, response.NewBusinessError(
			response.WithErrorCode(response.NotFound),
			response.WithErrorMessage(err.Error()),
		))
	case errors.Is(err, ErrTagExists), errors.Is(err, ErrInvalidSlug):
		dto.ErrorResponse(c, response.NewBusinessError(
			response.WithErrorCode(response.InvalidParameter),
			response.WithErrorMessage(err.Error()),
		))
	default:
		logging.Ctx(c.Request.Context()).Error().Err(err).Msg("目录请求失败")
		dto.ErrorResponse(c, response.NewBusinessError(
			response.WithErrorCode(response.Fail),
			response.WithErrorMessage("服务器内部错误"),
		))
	}
}
