package db

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// User 定义了用户模型
// PasswordHash 只保存 bcrypt 哈希，永不序列化
type User struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"uniqueIndex;not null"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"column:password_hash;not null"`
	IsAdmin      bool   `gorm:"not null;default:false"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Habits       []Habit `gorm:"constraint:OnDelete:CASCADE"`
}

// NormalizeUsername 去除首尾空白并转为小写
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// SetPassword 计算带盐哈希并写入 PasswordHash。
func (u *User) SetPassword(raw string, cost int) error {
	if raw == "" {
		return errors.New("password is empty")
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(raw), cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = string(hashed)
	return nil
}

// VerifyPassword 使用 bcrypt 的常量时间比较校验密码
func (u *User) VerifyPassword(raw string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(raw)) == nil
}

// EnsureAdmin 存在性检查：若用户名与密码均非空且不存在对应账号，则创建一个管理员账号；
// 已存在的同名账号会被提升为管理员，但不会覆盖其密码。
func EnsureAdmin(gdb *gorm.DB, username, email, password string, cost int) error {
	trimmedUser := NormalizeUsername(username)
	trimmedPassword := strings.TrimSpace(password)
	if trimmedUser == "" || trimmedPassword == "" {
		return nil
	}

	if gdb == nil {
		return errors.New("database not initialized")
	}

	var existing User
	if err := gdb.Where("username = ?", trimmedUser).First(&existing).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		email = strings.TrimSpace(email)
		if email == "" {
			email = trimmedUser + "@localhost"
		}

		user := User{Username: trimmedUser, Email: email, IsAdmin: true}
		if err := user.SetPassword(trimmedPassword, cost); err != nil {
			return err
		}
		return gdb.Create(&user).Error
	}

	if existing.IsAdmin {
		return nil
	}
	return gdb.Model(&existing).Update("is_admin", true).Error
}
