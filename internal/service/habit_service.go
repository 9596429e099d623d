package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/habittracker/internal/db"
	"gorm.io/gorm"
)

// likeEscaper 转义 LIKE 通配符，关键字按字面匹配
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ErrHabitNotFound 习惯不存在或不属于当前用户，两种情况对调用方不可区分
var ErrHabitNotFound = errors.New("habit not found or not authorized")

// HabitService 负责按用户隔离的习惯增删改查
// 所有读写都先经过 findHabitOfUser 校验归属
type HabitService struct {
	db    *gorm.DB
	clock Clock
}

// HabitFilter 描述列表过滤条件，均为原始查询参数
type HabitFilter struct {
	Category  string
	Frequency string
	Search    string
}

// HabitInput 定义创建习惯时可配置字段
type HabitInput struct {
	Name         string
	Description  *string
	Category     string
	Frequency    string
	ReminderTime string
}

// HabitPatch 定义更新习惯时的可选字段，nil 表示不修改；
// Description/ReminderTime 传入空字符串表示清空
type HabitPatch struct {
	Name         *string
	Description  *string
	Category     *string
	Frequency    *string
	ReminderTime *string
}

// NewHabitService 构造 HabitService
func NewHabitService(gdb *gorm.DB, clock Clock) *HabitService {
	return &HabitService{db: gdb, clock: clock}
}

// GetOfUser 返回同时匹配 ID 与所属用户的习惯
func (s *HabitService) GetOfUser(habitID, userID uint) (*db.Habit, error) {
	return findHabitOfUser(s.db, habitID, userID)
}

// GetByName 按规范化后的名称查找当前用户的习惯
func (s *HabitService) GetByName(userID uint, name string) (*db.Habit, error) {
	normalized := NormalizeHabitName(name)
	if normalized == "" {
		return nil, ErrHabitNotFound
	}

	var habit db.Habit
	if err := s.db.Where("user_id = ? AND name = ?", userID, normalized).Order("id ASC").First(&habit).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHabitNotFound
		}
		return nil, fmt.Errorf("get habit by name: %w", err)
	}
	return &habit, nil
}

// List 返回当前用户的习惯，支持按类别/频率/关键字筛选
func (s *HabitService) List(userID uint, filter HabitFilter) ([]db.Habit, error) {
	query := s.db.Model(&db.Habit{}).Where("user_id = ?", userID)

	category, ok, err := ParseCategory(filter.Category)
	if err != nil {
		return nil, err
	}
	if ok {
		query = query.Where("category = ?", category)
	}

	frequency, ok, err := ParseFrequency(filter.Frequency)
	if err != nil {
		return nil, err
	}
	if ok {
		query = query.Where("frequency = ?", frequency)
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + likeEscaper.Replace(strings.ToLower(search)) + "%"
		query = query.Where(`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`, like, like)
	}

	habits := []db.Habit{}
	if err := query.Order("id ASC").Find(&habits).Error; err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}
	return habits, nil
}

// Create 为用户新建习惯，开始日期固定为当天
func (s *HabitService) Create(userID uint, input HabitInput) (*db.Habit, error) {
	name, err := habitName(input.Name)
	if err != nil {
		return nil, err
	}

	description, err := optionalText("description", input.Description)
	if err != nil {
		return nil, err
	}

	frequency, ok, err := ParseFrequency(input.Frequency)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: frequency is required", ErrInvalidFrequency)
	}

	category, ok, err := ParseCategory(input.Category)
	if err != nil {
		return nil, err
	}
	if !ok {
		category = db.CategoryGeneral
	}

	reminder, err := ParseReminderTime(input.ReminderTime)
	if err != nil {
		return nil, err
	}

	habit := db.Habit{
		UserID:       userID,
		Name:         name,
		Description:  description,
		Category:     category,
		Frequency:    frequency,
		StartDate:    s.clock.Today(),
		ReminderTime: reminder,
	}

	if err := s.db.Create(&habit).Error; err != nil {
		return nil, fmt.Errorf("create habit: %w", err)
	}
	return &habit, nil
}

// Update 校验归属后逐字段合并更新
func (s *HabitService) Update(habitID, userID uint, patch HabitPatch) (*db.Habit, error) {
	habit, err := findHabitOfUser(s.db, habitID, userID)
	if err != nil {
		return nil, err
	}

	if err := applyHabitPatch(habit, patch); err != nil {
		return nil, err
	}

	if err := s.db.Save(habit).Error; err != nil {
		return nil, fmt.Errorf("update habit: %w", err)
	}
	return habit, nil
}

// Delete 校验归属后删除习惯及其完成记录
func (s *HabitService) Delete(habitID, userID uint) error {
	habit, err := findHabitOfUser(s.db, habitID, userID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("habit_id = ?", habit.ID).Delete(&db.HabitCompletion{}).Error; err != nil {
			return fmt.Errorf("delete habit completions: %w", err)
		}
		if err := tx.Delete(habit).Error; err != nil {
			return fmt.Errorf("delete habit: %w", err)
		}
		return nil
	})
}

func applyHabitPatch(habit *db.Habit, patch HabitPatch) error {
	if patch.Name != nil {
		name, err := habitName(*patch.Name)
		if err != nil {
			return err
		}
		habit.Name = name
	}

	if patch.Description != nil {
		description, err := optionalText("description", patch.Description)
		if err != nil {
			return err
		}
		habit.Description = description
	}

	// 类别与频率没有"清空"语义，显式传入空字符串视为非法
	if patch.Category != nil {
		category, ok, err := ParseCategory(*patch.Category)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: category cannot be empty", ErrInvalidCategory)
		}
		habit.Category = category
	}

	if patch.Frequency != nil {
		frequency, ok, err := ParseFrequency(*patch.Frequency)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: frequency cannot be empty", ErrInvalidFrequency)
		}
		habit.Frequency = frequency
	}

	if patch.ReminderTime != nil {
		reminder, err := ParseReminderTime(*patch.ReminderTime)
		if err != nil {
			return err
		}
		habit.ReminderTime = reminder
	}

	return nil
}

func findHabitOfUser(gdb *gorm.DB, habitID, userID uint) (*db.Habit, error) {
	var habit db.Habit
	if err := gdb.Where("id = ? AND user_id = ?", habitID, userID).First(&habit).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHabitNotFound
		}
		return nil, fmt.Errorf("get habit: %w", err)
	}
	return &habit, nil
}
