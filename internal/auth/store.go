package auth

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"terminal-terrace/foodgram/pkg/database"
)

const (
	// 令牌 key 前缀
	TokenPrefix = "auth_token:"
	// 用户的令牌集合 key 前缀
	UserTokensPrefix = "user_tokens:"
)

// TokenStore 记录有效令牌的 jti, 登出即删除
type TokenStore interface {
	Save(ctx context.Context, jti string, userID uint, ttl time.Duration) error
	Exists(ctx context.Context, jti string) (bool, error)
	Delete(ctx context.Context, jti string) error
	// DeleteAll 吊销用户的全部令牌
	DeleteAll(ctx context.Context, userID uint) error
}

// RedisTokenStore 基于 Redis 的令牌存储
type RedisTokenStore struct {
	redis *database.RedisClient
}

func NewRedisTokenStore(redisClient *database.RedisClient) *RedisTokenStore {
	return &RedisTokenStore{redis: redisClient}
}

func (s *RedisTokenStore) Save(ctx context.Context, jti string, userID uint, ttl time.Duration) error {
	key := TokenPrefix + jti
	if err := s.redis.HSet(ctx, key, map[string]interface{}{"user_id": userID}).Err(); err != nil {
		return fmt.Errorf("存储令牌失败: %w", err)
	}
	if err := s.redis.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("设置令牌过期时间失败: %w", err)
	}

	userTokensKey := UserTokensPrefix + strconv.FormatUint(uint64(userID), 10)
	if err := s.redis.SAdd(ctx, userTokensKey, jti).Err(); err != nil {
		return fmt.Errorf("添加到用户令牌集合失败: %w", err)
	}
	if err := s.redis.Expire(ctx, userTokensKey, ttl).Err(); err != nil {
		return fmt.Errorf("设置用户令牌集合过期时间失败: %w", err)
	}
	return nil
}

func (s *RedisTokenStore) Exists(ctx context.Context, jti string) (bool, error) {
	n, err := s.redis.Exists(ctx, TokenPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("查询令牌失败: %w", err)
	}
	return n > 0, nil
}

func (s *RedisTokenStore) Delete(ctx context.Context, jti string) error {
	key := TokenPrefix + jti

	// 先取出用户 ID, 以便从用户的令牌集合中删除
	if userIDStr, err := s.redis.HGet(ctx, key, "user_id").Result(); err == nil && userIDStr != "" {
		s.redis.SRem(ctx, UserTokensPrefix+userIDStr, jti)
	}

	if err := s.redis.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("删除令牌失败: %w", err)
	}
	return nil
}

func (s *RedisTokenStore) DeleteAll(ctx context.Context, userID uint) error {
	userTokensKey := UserTokensPrefix + strconv.FormatUint(uint64(userID), 10)
	jtis, err := s.redis.SMembers(ctx, userTokensKey).Result()
	if err != nil {
		return fmt.Errorf("查询用户令牌集合失败: %w", err)
	}

	keys := make([]string, 0, len(jtis)+1)
	for _, jti := range jtis {
		keys = append(keys, TokenPrefix+jti)
	}
	keys = append(keys, userTokensKey)
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("删除用户令牌失败: %w", err)
	}
	return nil
}

// MemoryTokenStore 进程内令牌存储, 未启用 Redis 时使用
type MemoryTokenStore struct {
	mu     sync.Mutex
	tokens map[string]memoryToken
	now    func() time.Time
}

type memoryToken struct {
	userID    uint
	expiresAt time.Time
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: make(map[string]memoryToken), now: time.Now}
}

func (s *MemoryTokenStore) Save(_ context.Context, jti string, userID uint, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[jti] = memoryToken{userID: userID, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryTokenStore) Exists(_ context.Context, jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[jti]
	if !ok {
		return false, nil
	}
	if !s.now().Before(token.expiresAt) {
		delete(s.tokens, jti)
		return false, nil
	}
	return true, nil
}

func (s *MemoryTokenStore) Delete(_ context.Context, jti string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, jti)
	return nil
}

func (s *MemoryTokenStore) DeleteAll(_ context.Context, userID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for jti, token := range s.tokens {
		if token.userID == userID {
			delete(s.tokens, jti)
		}
	}
	return nil
}

// NewTokenStore redis 为 nil 时退回进程内存储
func NewTokenStore(redisClient *database.RedisClient) TokenStore {
	if redisClient == nil {
		return NewMemoryTokenStore()
	}
	return NewRedisTokenStore(redisClient)
}
