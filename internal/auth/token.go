package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidCredentials 表示令牌签名无效、已过期或缺少必要声明
var ErrInvalidCredentials = errors.New("invalid credentials")

// TokenType 为登录响应中的 token_type
const TokenType = "bearer"

// Claims 为访问令牌中解析出的用户身份
type Claims struct {
	Username string
	UserID   uint
}

type accessClaims struct {
	UserID *uint `json:"id,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer 使用对称密钥签发与校验 HS256 访问令牌
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer 构造 TokenIssuer
func NewTokenIssuer(secret []byte, ttl time.Duration) (*TokenIssuer, error) {
	if len(secret) == 0 {
		return nil, errors.New("token secret is empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}
	return &TokenIssuer{secret: secret, ttl: ttl, now: time.Now}, nil
}

// WithClock 替换时间源，便于测试过期逻辑
func (i *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	clone := *i
	clone.now = now
	return &clone
}

// TTL 返回令牌有效期
func (i *TokenIssuer) TTL() time.Duration {
	return i.ttl
}

// Issue 签发令牌：sub=username，id=userID，exp=now+ttl
func (i *TokenIssuer) Issue(username string, userID uint) (string, error) {
	now := i.now()
	id := userID
	claims := accessClaims{
		UserID: &id,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate 校验签名与过期时间并提取用户身份
func (i *TokenIssuer) Validate(raw string) (Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Claims{}, ErrInvalidCredentials
	}

	var claims accessClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !token.Valid {
		return Claims{}, ErrInvalidCredentials
	}

	if claims.Subject == "" || claims.UserID == nil {
		return Claims{}, ErrInvalidCredentials
	}

	return Claims{Username: claims.Subject, UserID: *claims.UserID}, nil
}
