package db

import (
	"time"
)

// Category 习惯类别，取值见 Categories
type Category string

// Frequency 习惯频率，取值见 Frequencies
type Frequency string

const (
	CategoryPersonalDevelopment Category = "Personal Development"
	CategoryFitness             Category = "Fitness"
	CategoryFinance             Category = "Finance"
	CategoryNutrition           Category = "Nutrition"
	CategorySocial              Category = "Social"
	CategoryHomeAndOrganization Category = "Home and Organization"
	CategorySelfCare            Category = "Self Care"
	CategoryMentalWellness      Category = "Mental Wellness"
	CategoryGeneral             Category = "General"
)

const (
	FrequencyDaily   Frequency = "Daily"
	FrequencyWeekly  Frequency = "Weekly"
	FrequencyMonthly Frequency = "Monthly"
	FrequencyYearly  Frequency = "Yearly"
)

// Categories 按展示顺序列出全部类别
var Categories = []Category{
	CategoryPersonalDevelopment,
	CategoryFitness,
	CategoryFinance,
	CategoryNutrition,
	CategorySocial,
	CategoryHomeAndOrganization,
	CategorySelfCare,
	CategoryMentalWellness,
	CategoryGeneral,
}

// Frequencies 列出全部频率
var Frequencies = []Frequency{FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly}

// Habit 定义了习惯模型
// Name 以标题格式存储，按名称查询前需先做同样的规范化
// StartDate 在创建时固定为当天，之后不再修改
// ReminderTime 为一天中的时刻，格式 15:04:05
type Habit struct {
	ID           uint      `gorm:"primaryKey"`
	UserID       uint      `gorm:"index;not null"`
	Name         string    `gorm:"not null;index"`
	Description  *string
	Category     Category  `gorm:"type:varchar(32);not null"`
	Frequency    Frequency `gorm:"type:varchar(16);not null"`
	StartDate    time.Time `gorm:"not null"`
	ReminderTime *string   `gorm:"type:varchar(8)"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Completions  []HabitCompletion `gorm:"constraint:OnDelete:CASCADE"`
}

// HabitCompletion 记录某一天的完成情况
// HabitID + Date 采用唯一索引，保证同一天只有一条记录；Date 统一为 UTC 零点
type HabitCompletion struct {
	ID        uint      `gorm:"primaryKey"`
	HabitID   uint      `gorm:"not null;uniqueIndex:idx_habit_completion_day"`
	Date      time.Time `gorm:"not null;uniqueIndex:idx_habit_completion_day"`
	Status    bool      `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName 重写确保唯一索引作用到 habit_id + date
func (HabitCompletion) TableName() string {
	return "habit_completions"
}
