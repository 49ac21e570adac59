package user

import (
	"context"
	"errors"
	"time"

	"terminal-terrace/foodgram/internal/auth"
	"terminal-terrace/foodgram/internal/dto"
	"terminal-terrace/foodgram/internal/logging"
	userModel "terminal-terrace/foodgram/internal/model/user"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrUsernameTaken      = errors.New("a user with that username already exists")
	ErrEmailTaken         = errors.New("a user with that email already exists")
	ErrInvalidCredentials = errors.New("unable to log in with provided credentials")
	ErrWrongPassword      = errors.New("current password is incorrect")
)

// PasswordHasher 密码哈希
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

// BcryptHasher bcrypt 实现, cost 为 0 时使用默认值
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (h BcryptHasher) Compare(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// TokenIssuer 令牌签发
type TokenIssuer interface {
	Issue(u *userModel.User) (*auth.IssuedToken, error)
	TTL() time.Duration
}

// Accounts 账号能力: 创建、认证、展示
// 由仓库、哈希器、签发器与令牌存储组合而成
type Accounts struct {
	repo   UserRepository
	hasher PasswordHasher
	issuer TokenIssuer
	tokens auth.TokenStore
}

func NewAccounts(repo UserRepository, hasher PasswordHasher, issuer TokenIssuer, tokens auth.TokenStore) *Accounts {
	return &Accounts{repo: repo, hasher: hasher, issuer: issuer, tokens: tokens}
}

// Create 注册新用户
func (a *Accounts) Create(ctx context.Context, req *RegisterRequest) (*userModel.User, error) {
	// 1. 检查用户名和邮箱是否已存在
	existing, err := a.repo.FindConflict(ctx, req.Username, req.Email)
	switch {
	case err == nil:
		if existing.Username == req.Username {
			return nil, ErrUsernameTaken
		}
		return nil, ErrEmailTaken
	case !errors.Is(err, ErrUserNotFound):
		return nil, err
	}

	// 2. 密码加密
	hash, err := a.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	// 3. 创建用户, 并发注册由唯一索引兜底
	u := &userModel.User{
		Email:        req.Email,
		Username:     req.Username,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: hash,
		Role:         userModel.RoleUser,
	}
	if err := a.repo.Create(ctx, u); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}

	logging.Ctx(ctx).Info().Uint("user_id", u.ID).Str("username", u.Username).Msg("用户注册成功")
	return u, nil
}

// Authenticate 校验邮箱与密码, 签发并登记令牌
func (a *Accounts) Authenticate(ctx context.Context, email, password string) (string, error) {
	u, err := a.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if !a.hasher.Compare(u.PasswordHash, password) {
		return "", ErrInvalidCredentials
	}

	issued, err := a.issuer.Issue(u)
	if err != nil {
		return "", err
	}
	if err := a.tokens.Save(ctx, issued.ID, u.ID, a.issuer.TTL()); err != nil {
		return "", err
	}

	logging.Ctx(ctx).Info().Uint("user_id", u.ID).Msg("用户登录")
	return issued.Token, nil
}

// Logout 吊销令牌
func (a *Accounts) Logout(ctx context.Context, tokenID string) error {
	return a.tokens.Delete(ctx, tokenID)
}

// SetPassword 校验旧密码后更新, 并吊销该用户已签发的全部令牌
func (a *Accounts) SetPassword(ctx context.Context, userID uint, req *SetPasswordRequest) error {
	u, err := a.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !a.hasher.Compare(u.PasswordHash, req.CurrentPassword) {
		return ErrWrongPassword
	}
	hash, err := a.hasher.Hash(req.NewPassword)
	if err != nil {
		return err
	}
	if err := a.repo.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}
	if err := a.tokens.DeleteAll(ctx, userID); err != nil {
		return err
	}
	logging.Ctx(ctx).Info().Uint("user_id", userID).Msg("密码已修改, 旧令牌已吊销")
	return nil
}

// Represent 以 viewerID 的视角展示用户, 匿名时 is_subscribed 恒为 false
func (a *Accounts) Represent(ctx context.Context, u *userModel.User, viewerID uint) (dto.UserResponse, error) {
	subscribed, err := a.repo.SubscribedAuthorIDs(ctx, viewerID, []uint{u.ID})
	if err != nil {
		return dto.UserResponse{}, err
	}
	return dto.NewUserResponse(u, subscribed[u.ID]), nil
}

// RepresentMany 批量展示, 一次查询计算 is_subscribed
func (a *Accounts) RepresentMany(ctx context.Context, users []userModel.User, viewerID uint) ([]dto.UserResponse, error) {
	ids := make([]uint, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	subscribed, err := a.repo.SubscribedAuthorIDs(ctx, viewerID, ids)
	if err != nil {
		return nil, err
	}
	result := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		result = append(result, dto.NewUserResponse(&users[i], subscribed[users[i].ID]))
	}
	return result, nil
}
