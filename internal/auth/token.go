package auth

import (
	"errors"
	"time"

	"terminal-terrace/foodgram/internal/model/user"
	"terminal-terrace/foodgram/pkg/authsdk"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrEmptySecret = errors.New("jwt secret is empty")

// IssuedToken 签发结果
type IssuedToken struct {
	Token     string
	ID        string // jti
	ExpiresAt time.Time
}

// Issuer 访问令牌签发器
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer ttl 为令牌有效期
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL 令牌有效期
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue 为用户签发 HS256 令牌
func (i *Issuer) Issue(u *user.User) (*IssuedToken, error) {
	if len(i.secret) == 0 {
		return nil, ErrEmptySecret
	}

	now := i.now()
	expiresAt := now.Add(i.ttl)
	jti := uuid.New().String()

	claims := &authsdk.Claims{
		UserID:   u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return nil, err
	}

	return &IssuedToken{Token: signed, ID: jti, ExpiresAt: expiresAt}, nil
}
