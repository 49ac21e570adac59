package user

import (
	"context"
	"errors"
	"strconv"

	"terminal-terrace/foodgram/internal/dto"
	"terminal-terrace/foodgram/internal/logging"
	"terminal-terrace/foodgram/internal/middleware"
	userModel "terminal-terrace/foodgram/internal/model/user"
	"terminal-terrace/foodgram/internal/pagination"
	"terminal-terrace/foodgram/pkg/response"

	"github.com/gin-gonic/gin"
)

// AccountService 账号相关操作, 由 *Accounts 实现
type AccountService interface {
	Create(ctx context.Context, req *RegisterRequest) (*userModel.User, error)
	Authenticate(ctx context.Context, email, password string) (string, error)
	Logout(ctx context.Context, tokenID string) error
	SetPassword(ctx context.Context, userID uint, req *SetPasswordRequest) error
}

// UserHandler 用户、认证与关注处理器
type UserHandler struct {
	service  UserService
	accounts AccountService
}

func NewUserHandler(service UserService, accounts AccountService) *UserHandler {
	return &UserHandler{service: service, accounts: accounts}
}

// Register 注册
// @Summary 注册用户
// @Tags User
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "注册请求"
// @Success 201 {object} response.Response{data=RegisteredUser}
// @Router /users/ [post]
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.ValidationErrorResponse(c, err)
		return
	}

	u, err := h.accounts.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	dto.CreatedResponse(c, RegisteredUser{
		Email:     u.Email,
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	})
}

// Login 获取令牌
// @Summary 使用邮箱和密码获取令牌
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "登录请求"
// @Success 200 {object} response.Response{data=TokenResponse}
// @Router /auth/token/login/ [post]
func (h *UserHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.ValidationErrorResponse(c, err)
		return
	}

	token, err := h.accounts.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.handleError(c, err)
		return
	}
	dto.SuccessResponse(c, TokenResponse{AuthToken: token})
}

// Logout 吊销当前令牌
// @Summary 登出
// @Tags Auth
// @Success 204
// @Security BearerAuth
// @Router /auth/token/logout/ [post]
func (h *UserHandler) Logout(c *gin.Context) {
	if err := h.accounts.Logout(c.Request.Context(), c.GetString("token_id")); err != nil {
		h.handleError(c, err)
		return
	}
	dto.NoContentResponse(c)
}

// List 用户列表
// @Summary 用户列表（分页）
// @Tags User
// @Produce json
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} response.Response{data=response.Page{results=[]dto.UserResponse}}
// @Router /users/ [get]
func (h *UserHandler) List(c *gin.Context) {
	p := pagination.FromRequest(c)
	users, total, err := h.service.List(c.Request.Context(), p.Offset(), p.Limit, middleware.CurrentUserID(c))
	if err != nil {
		h.handleError(c, err)
		return
	}
	if err := p.Check(total); err != nil {
		h.handleError(c, err)
		return
	}
	dto.SuccessResponse(c, pagination.NewPage(c, p, total, users))
}

// Get 用户详情
// @Summary 获取用户
// @Tags User
// @Produce json
// @Param id path int true "用户ID"
// @Success 200 {object} response.Response{data=dto.UserResponse}
// @Router /users/{id}/ [get]
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	u, err := h.service.Get(c.Request.Context(), id, middleware.CurrentUserID(c))
	if err != nil {
		h.handleError(c, err)
		return
	}
	dto.SuccessResponse(c, u)
}

// Me 当前用户
// @Summary 获取当前用户
// @Tags User
// @Produce json
// @Success 200 {object} response.Response{data=dto.UserResponse}
// @Security BearerAuth
// @Router /users/me/ [get]
func (h *UserHandler) Me(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	u, err := h.service.Get(c.Request.Context(), userID, userID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	dto.SuccessResponse(c, u)
}

// SetPassword 修改密码
// @Summary 修改当前用户密码
// @Tags User
// @Accept json
// @Param request body SetPasswordRequest true "修改密码请求"
// @Success 204
// @Security BearerAuth
// @Router /users/set_password/ [post]
func (h *UserHandler) SetPassword(c *gin.Context) {
	var req SetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.ValidationErrorResponse(c, err)
		return
	}
	if err := h.accounts.SetPassword(c.Request.Context(), middleware.CurrentUserID(c), &req); err != nil {
		h.handleError(c, err)
		return
	}
	dto.NoContentResponse(c)
}

// Subscriptions 我的关注
// @Summary 关注的作者列表（分页）
// @Tags User
// @Produce json
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Param recipes_limit query int false "每个作者返回的菜谱数量"
// @Success 200 {object} response.Response{data=response.Page{results=[]AuthorResponse}}
// @Security BearerAuth
// @Router /users/subscriptions/ [get]
func (h *UserHandler) Subscriptions(c *gin.Context) {
	p := pagination.FromRequest(c)
	authors, total, err := h.service.ListFollowing(
		c.Request.Context(), middleware.CurrentUserID(c), p.Offset(), p.Limit, recipesLimit(c),
	)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if err := p.Check(total); err != nil {
		h.handleError(c, err)
		return
	}
	dto.SuccessResponse(c, pagination.NewPage(c, p, total, authors))
}

// Subscribe 关注作者
// @Summary 关注作者
// @Tags User
// @Produce json
// @Param id path int true "作者ID"
// @Param recipes_limit query int false "返回的菜谱数量"
// @Success 201 {object} response.Response{data=AuthorResponse}
// @Security BearerAuth
// @Router /users/{id}/subscribe/ [post]
func (h *UserHandler) Subscribe(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	author, err := h.service.Follow(c.Request.Context(), middleware.CurrentUserID(c), id, recipesLimit(c))
	if err != nil {
		h.handleError(c, err)
		return
	}
	dto.CreatedResponse(c, author)
}

// Unsubscribe 取消关注
// @Summary 取消关注作者
// @Tags User
// @Param id path int true "作者ID"
// @Success 204
// @Security BearerAuth
// @Router /users/{id}/subscribe/ [delete]
func (h *UserHandler) Unsubscribe(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.service.Unfollow(c.Request.Context(), middleware.CurrentUserID(c), id); err != nil {
		h.handleError(c, err)
		return
	}
	dto.NoContentResponse(c)
}

// recipesLimit 缺省、非法或负数表示不限制; 显式的 0 不返回菜谱
func recipesLimit(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("recipes_limit"))
	if err != nil || n < 0 {
		return NoRecipesLimit
	}
	return n
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		dto.ErrorResponse(c, response.NewBusinessError(
			response.WithErrorCode(response.NotFound),
			response.WithErrorMessage(ErrUserNotFound.Error()),
		))
		return 0, false
	}
	return uint(id), true
}

// handleError 统一错误处理
func (h *UserHandler) handleError(c *gin.Context, err error) {
	var code response.ResponseCode
	switch {
	case errors.Is(err, ErrUserNotFound),
		errors.Is(err, pagination.ErrInvalidPage):
		code = response.NotFound
	case errors.Is(err, ErrAlreadyFollowing):
		code = response.AlreadyExists
	case errors.Is(err, ErrNotFollowing):
		code = response.RelationNotFound
	case errors.Is(err, ErrFollowSelf),
		errors.Is(err, ErrUsernameTaken),
		errors.Is(err, ErrEmailTaken),
		errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrWrongPassword):
		code = response.InvalidParameter
	default:
		logging.Ctx(c.Request.Context()).Error().Err(err).Msg("用户请求失败")
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
