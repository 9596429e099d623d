package service

import (
	"errors"
	"fmt"

	"github.com/habittracker/internal/auth"
	"github.com/habittracker/internal/db"
	"gorm.io/gorm"
)

// ErrInvalidCredentials 用户名/密码错误，或令牌无法解析到现存用户
var ErrInvalidCredentials = auth.ErrInvalidCredentials

// AuthService 负责登录校验与令牌到用户的解析
type AuthService struct {
	db     *gorm.DB
	tokens *auth.TokenIssuer
}

// LoginResult 为登录成功后返回给客户端的数据
type LoginResult struct {
	Username    string
	AccessToken string
	TokenType   string
	// ExpiresIn 为令牌有效期（秒）
	ExpiresIn int64
}

// NewAuthService 构造 AuthService
func NewAuthService(gdb *gorm.DB, tokens *auth.TokenIssuer) *AuthService {
	return &AuthService{db: gdb, tokens: tokens}
}

// Authenticate 按用户名查找用户并校验密码。
// 用户不存在与密码错误返回同一个错误。
func (s *AuthService) Authenticate(username, password string) (*db.User, error) {
	name := db.NormalizeUsername(username)
	if name == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	var user db.User
	if err := s.db.Where("username = ?", name).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if !user.VerifyPassword(password) {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// Login 校验凭据并签发访问令牌
func (s *AuthService) Login(username, password string) (*LoginResult, error) {
	user, err := s.Authenticate(username, password)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(user.Username, user.ID)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		Username:    user.Username,
		AccessToken: token,
		TokenType:   auth.TokenType,
		ExpiresIn:   int64(s.tokens.TTL().Seconds()),
	}, nil
}

// Resolve 查找同时匹配用户名与 ID 的用户，防止已删除或改名账号的旧令牌继续生效
func (s *AuthService) Resolve(username string, id uint) (*db.User, error) {
	if username == "" || id == 0 {
		return nil, ErrInvalidCredentials
	}

	var user db.User
	if err := s.db.Where("username = ? AND id = ?", username, id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("resolve user: %w", err)
	}
	return &user, nil
}

// ResolveToken 校验令牌并解析出当前用户
func (s *AuthService) ResolveToken(raw string) (*db.User, error) {
	claims, err := s.tokens.Validate(raw)
	if err != nil {
		return nil, err
	}
	return s.Resolve(claims.Username, claims.UserID)
}
