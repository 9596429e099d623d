package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/habittracker/internal/db"
	"gorm.io/gorm"
)

var (
	// ErrUserNotFound 在指定用户不存在时返回
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists 用户名或邮箱已被占用
	ErrUserExists = errors.New("username or email already registered")
	// ErrForbidden 当前用户无权执行该操作
	ErrForbidden = errors.New("admin access required")
)

// UserService 负责账号的增删改查
type UserService struct {
	db   *gorm.DB
	cost int
}

// UserInput 定义注册账号时的字段
type UserInput struct {
	Username string
	Email    string
	Password string
	IsAdmin  bool
}

// UserPatch 定义更新账号时可选的字段，nil 表示不修改
type UserPatch struct {
	Username *string
	Email    *string
	Password *string
}

// NewUserService 构造 UserService，cost 为 bcrypt 计算代价
func NewUserService(gdb *gorm.DB, cost int) *UserService {
	return &UserService{db: gdb, cost: cost}
}

// Create 新建账号
func (s *UserService) Create(input UserInput) (*db.User, error) {
	username := db.NormalizeUsername(input.Username)
	email := strings.TrimSpace(input.Email)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if input.Password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}

	if err := s.ensureAvailable(0, username, email); err != nil {
		return nil, err
	}

	user := db.User{Username: username, Email: email, IsAdmin: input.IsAdmin}
	if err := user.SetPassword(input.Password, s.cost); err != nil {
		return nil, err
	}

	if err := s.db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	user.Habits = []db.Habit{}
	return &user, nil
}

// Update 按字段合并更新账号信息
func (s *UserService) Update(id uint, patch UserPatch) (*db.User, error) {
	user, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}

	if patch.Username != nil {
		username := db.NormalizeUsername(*patch.Username)
		if username == "" {
			return nil, fmt.Errorf("%w: username cannot be empty", ErrInvalidInput)
		}
		if username != user.Username {
			if err := s.ensureAvailable(user.ID, username, ""); err != nil {
				return nil, err
			}
			updates["username"] = username
		}
	}

	if patch.Email != nil {
		email := strings.TrimSpace(*patch.Email)
		if email == "" {
			return nil, fmt.Errorf("%w: email cannot be empty", ErrInvalidInput)
		}
		if email != user.Email {
			if err := s.ensureAvailable(user.ID, "", email); err != nil {
				return nil, err
			}
			updates["email"] = email
		}
	}

	if patch.Password != nil && *patch.Password != "" {
		if err := user.SetPassword(*patch.Password, s.cost); err != nil {
			return nil, err
		}
		updates["password_hash"] = user.PasswordHash
	}

	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.Model(user).Updates(updates).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	return s.Get(id)
}

// List 返回全部账号及其习惯
func (s *UserService) List() ([]db.User, error) {
	var users []db.User
	if err := s.db.Preload("Habits", orderByID).Order("id ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Get 根据 ID 获取账号
func (s *UserService) Get(id uint) (*db.User, error) {
	var user db.User
	if err := s.db.Preload("Habits", orderByID).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// GetByUsername 根据规范化后的用户名获取账号
func (s *UserService) GetByUsername(username string) (*db.User, error) {
	var user db.User
	if err := s.db.Preload("Habits", orderByID).
		Where("username = ?", db.NormalizeUsername(username)).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return &user, nil
}

// Delete 删除账号及其全部习惯与完成记录；仅本人或管理员可操作
func (s *UserService) Delete(id uint, actor db.User) error {
	if actor.ID != id && !actor.IsAdmin {
		return ErrForbidden
	}

	var target db.User
	if err := s.db.First(&target, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		habitIDs := tx.Model(&db.Habit{}).Select("id").Where("user_id = ?", target.ID)
		if err := tx.Where("habit_id IN (?)", habitIDs).Delete(&db.HabitCompletion{}).Error; err != nil {
			return fmt.Errorf("delete user completions: %w", err)
		}
		if err := tx.Where("user_id = ?", target.ID).Delete(&db.Habit{}).Error; err != nil {
			return fmt.Errorf("delete user habits: %w", err)
		}
		if err := tx.Delete(&target).Error; err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
}

// EnsureAdmin 根据配置初始化管理员账号
func (s *UserService) EnsureAdmin(username, email, password string) error {
	return db.EnsureAdmin(s.db, username, email, password, s.cost)
}

func (s *UserService) ensureAvailable(excludeID uint, username, email string) error {
	query := s.db.Model(&db.User{})
	switch {
	case username != "" && email != "":
		query = query.Where("(username = ? OR email = ?)", username, email)
	case username != "":
		query = query.Where("username = ?", username)
	case email != "":
		query = query.Where("email = ?", email)
	default:
		return nil
	}
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return fmt.Errorf("check user uniqueness: %w", err)
	}
	if count > 0 {
		return ErrUserExists
	}
	return nil
}

func orderByID(tx *gorm.DB) *gorm.DB {
	return tx.Order("id ASC")
}
