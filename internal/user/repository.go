package user

import (
	"context"
	"errors"

	recipeModel "terminal-terrace/foodgram/internal/model/recipe"
	userModel "terminal-terrace/foodgram/internal/model/user"

	"gorm.io/gorm"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository 用户与关注关系数据访问
type UserRepository interface {
	Create(ctx context.Context, u *userModel.User) error
	FindByID(ctx context.Context, id uint) (*userModel.User, error)
	FindByEmail(ctx context.Context, email string) (*userModel.User, error)
	// FindConflict 查找用户名或邮箱已被占用的用户
	FindConflict(ctx context.Context, username, email string) (*userModel.User, error)
	List(ctx context.Context, offset, limit int) ([]userModel.User, int64, error)
	UpdatePassword(ctx context.Context, id uint, hash string) error

	FollowExists(ctx context.Context, userID, authorID uint) (bool, error)
	CreateFollow(ctx context.Context, userID, authorID uint) error
	DeleteFollow(ctx context.Context, userID, authorID uint) (int64, error)
	// ListFollowing 按关注时间倒序返回被关注的作者
	ListFollowing(ctx context.Context, userID uint, offset, limit int) ([]userModel.User, int64, error)
	SubscribedAuthorIDs(ctx context.Context, userID uint, authorIDs []uint) (map[uint]bool, error)
	// RecipesByAuthors 每个作者最多 limit 个菜谱, limit 为 NoRecipesLimit 时不限制, 0 时不返回菜谱
	RecipesByAuthors(ctx context.Context, authorIDs []uint, limit int) (map[uint][]recipeModel.Recipe, error)
}

// NoRecipesLimit 未指定 recipes_limit
const NoRecipesLimit = -1

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, u *userModel.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *userRepository) FindByID(ctx context.Context, id uint) (*userModel.User, error) {
	var u userModel.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*userModel.User, error) {
	var u userModel.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) FindConflict(ctx context.Context, username, email string) (*userModel.User, error) {
	var u userModel.User
	err := r.db.WithContext(ctx).Where("username = ? OR email = ?", username, email).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) List(ctx context.Context, offset, limit int) ([]userModel.User, int64, error) {
	var users []userModel.User
	var total int64

	query := r.db.WithContext(ctx).Model(&userModel.User{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("id ASC").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, id uint, hash string) error {
	result := r.db.WithContext(ctx).Model(&userModel.User{}).Where("id = ?", id).Update("password_hash", hash)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *userRepository) FollowExists(ctx context.Context, userID, authorID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&userModel.Follow{}).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Count(&count).Error
	return count > 0, err
}

func (r *userRepository) CreateFollow(ctx context.Context, userID, authorID uint) error {
	return r.db.WithContext(ctx).Omit("User", "Author").
		Create(&userModel.Follow{UserID: userID, AuthorID: authorID}).Error
}

func (r *userRepository) DeleteFollow(ctx context.Context, userID, authorID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Delete(&userModel.Follow{})
	return result.RowsAffected, result.Error
}

func (r *userRepository) ListFollowing(ctx context.Context, userID uint, offset, limit int) ([]userModel.User, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&userModel.Follow{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []userModel.User
	err := r.db.WithContext(ctx).
		Joins("JOIN follows ON follows.author_id = users.id").
		Where("follows.user_id = ?", userID).
		Order("follows.created_at DESC, follows.id DESC").
		Offset(offset).Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *userRepository) SubscribedAuthorIDs(ctx context.Context, userID uint, authorIDs []uint) (map[uint]bool, error) {
	result := make(map[uint]bool)
	if userID == 0 || len(authorIDs) == 0 {
		return result, nil
	}

	var ids []uint
	err := r.db.WithContext(ctx).Model(&userModel.Follow{}).
		Where("user_id = ? AND author_id IN ?", userID, authorIDs).
		Pluck("author_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		result[id] = true
	}
	return result, nil
}

func (r *userRepository) RecipesByAuthors(ctx context.Context, authorIDs []uint, limit int) (map[uint][]recipeModel.Recipe, error) {
	result := make(map[uint][]recipeModel.Recipe, len(authorIDs))
	if len(authorIDs) == 0 || limit == 0 {
		return result, nil
	}

	var recipes []recipeModel.Recipe
	db := r.db.WithContext(ctx)
	if limit > 0 {
		// 窗口函数为每个作者截取最新的 limit 个菜谱
		ranked := db.Model(&recipeModel.Recipe{}).
			Select("recipes.*, ROW_NUMBER() OVER (PARTITION BY author_id ORDER BY pub_date DESC, id DESC) AS rn").
			Where("author_id IN ?", authorIDs)
		err := db.Table("(?) AS ranked", ranked).
			Where("rn <= ?", limit).
			Order("pub_date DESC, id DESC").
			Find(&recipes).Error
		if err != nil {
			return nil, err
		}
	} else {
		err := db.Where("author_id IN ?", authorIDs).
			Order("pub_date DESC, id DESC").
			Find(&recipes).Error
		if err != nil {
			return nil, err
		}
	}

	for _, recipe := range recipes {
		result[recipe.AuthorID] = append(result[recipe.AuthorID], recipe)
	}
	return result, nil
}
