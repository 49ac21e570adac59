package user

import (
	"context"
	"errors"

	"terminal-terrace/foodgram/internal/dto"
	"terminal-terrace/foodgram/internal/logging"
	"terminal-terrace/foodgram/internal/metrics"
	userModel "terminal-terrace/foodgram/internal/model/user"

	"gorm.io/gorm"
)

var (
	ErrFollowSelf       = errors.New("cannot follow yourself")
	ErrAlreadyFollowing = errors.New("already following")
	ErrNotFollowing     = errors.New("not following")
)

// UserService 用户查询与关注
// viewerID 为 0 表示匿名用户
type UserService interface {
	List(ctx context.Context, offset, limit int, viewerID uint) ([]dto.UserResponse, int64, error)
	Get(ctx context.Context, id, viewerID uint) (*dto.UserResponse, error)

	Follow(ctx context.Context, userID, authorID uint, recipesLimit int) (*AuthorResponse, error)
	Unfollow(ctx context.Context, userID, authorID uint) error
	ListFollowing(ctx context.Context, userID uint, offset, limit, recipesLimit int) ([]AuthorResponse, int64, error)
}

type userService struct {
	repo     UserRepository
	accounts *Accounts
}

func NewUserService(repo UserRepository, accounts *Accounts) UserService {
	return &userService{repo: repo, accounts: accounts}
}

func (s *userService) List(ctx context.Context, offset, limit int, viewerID uint) ([]dto.UserResponse, int64, error) {
	users, total, err := s.repo.List(ctx, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	result, err := s.accounts.RepresentMany(ctx, users, viewerID)
	if err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

func (s *userService) Get(ctx context.Context, id, viewerID uint) (*dto.UserResponse, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	result, err := s.accounts.Represent(ctx, u, viewerID)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Follow 关注作者
// 应用层检查只为给出友好的错误, 唯一索引与 check 约束才是最终保证
func (s *userService) Follow(ctx context.Context, userID, authorID uint, recipesLimit int) (*AuthorResponse, error) {
	author, err := s.repo.FindByID(ctx, authorID)
	if err != nil {
		return nil, err
	}
	if userID == authorID {
		return nil, ErrFollowSelf
	}

	exists, err := s.repo.FollowExists(ctx, userID, authorID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyFollowing
	}

	if err := s.repo.CreateFollow(ctx, userID, authorID); err != nil {
		switch {
		case errors.Is(err, gorm.ErrDuplicatedKey):
			return nil, ErrAlreadyFollowing
		case errors.Is(err, gorm.ErrCheckConstraintViolated):
			return nil, ErrFollowSelf
		}
		return nil, err
	}
	metrics.RecordRelationChange("follow", "add")
	logging.Ctx(ctx).Info().Uint("user_id", userID).Uint("author_id", authorID).Msg("关注作者")

	authors, err := s.present(ctx, userID, []userModel.User{*author}, recipesLimit)
	if err != nil {
		return nil, err
	}
	return &authors[0], nil
}

func (s *userService) Unfollow(ctx context.Context, userID, authorID uint) error {
	if _, err := s.repo.FindByID(ctx, authorID); err != nil {
		return err
	}

	affected, err := s.repo.DeleteFollow(ctx, userID, authorID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFollowing
	}
	metrics.RecordRelationChange("follow", "remove")
	logging.Ctx(ctx).Info().Uint("user_id", userID).Uint("author_id", authorID).Msg("取消关注")
	return nil
}

func (s *userService) ListFollowing(ctx context.Context, userID uint, offset, limit, recipesLimit int) ([]AuthorResponse, int64, error) {
	authors, total, err := s.repo.ListFollowing(ctx, userID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	result, err := s.present(ctx, userID, authors, recipesLimit)
	if err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

// present 组装作者信息, is_subscribed 与菜谱均批量查询
func (s *userService) present(ctx context.Context, viewerID uint, authors []userModel.User, recipesLimit int) ([]AuthorResponse, error) {
	users, err := s.accounts.RepresentMany(ctx, authors, viewerID)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(authors))
	for _, a := range authors {
		ids = append(ids, a.ID)
	}
	recipes, err := s.repo.RecipesByAuthors(ctx, ids, recipesLimit)
	if err != nil {
		return nil, err
	}

	result := make([]AuthorResponse, 0, len(users))
	for _, u := range users {
		result = append(result, AuthorResponse{
			UserResponse: u,
			Recipes:      dto.NewMinifiedRecipes(recipes[u.ID]),
		})
	}
	return result, nil
}
