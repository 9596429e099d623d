package service

import (
	"fmt"
	"time"

	"github.com/habittracker/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CompletionService 负责每日完成状态的标记与查询
type CompletionService struct {
	db    *gorm.DB
	clock Clock
}

// CompletionStatus 表示习惯今天是否已完成
type CompletionStatus struct {
	HabitID        uint
	Name           string
	CompletedToday bool
}

// CompletionHistory 汇总习惯的全部完成日期与连续天数
type CompletionHistory struct {
	HabitID       uint
	Name          string
	Dates         []time.Time
	CurrentStreak int
	LongestStreak int
}

// NewCompletionService 构造 CompletionService
func NewCompletionService(gdb *gorm.DB, clock Clock) *CompletionService {
	return &CompletionService{db: gdb, clock: clock}
}

// MarkToday 幂等标记当天完成状态：已有记录则更新 status，否则插入
func (s *CompletionService) MarkToday(habitID, userID uint, status bool) (*CompletionStatus, error) {
	habit, err := findHabitOfUser(s.db, habitID, userID)
	if err != nil {
		return nil, err
	}

	today := s.clock.Today()
	record := db.HabitCompletion{
		HabitID: habit.ID,
		Date:    today,
		Status:  status,
	}

	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "habit_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
	}).Create(&record).Error; err != nil {
		return nil, fmt.Errorf("upsert habit completion: %w", err)
	}

	if err := s.db.Where("habit_id = ? AND date = ?", habit.ID, today).First(&record).Error; err != nil {
		return nil, fmt.Errorf("reload habit completion: %w", err)
	}

	return &CompletionStatus{HabitID: habit.ID, Name: habit.Name, CompletedToday: record.Status}, nil
}

// TodayStatus 返回当天完成状态，无记录视为未完成
func (s *CompletionService) TodayStatus(habitID, userID uint) (*CompletionStatus, error) {
	habit, err := findHabitOfUser(s.db, habitID, userID)
	if err != nil {
		return nil, err
	}

	var records []db.HabitCompletion
	if err := s.db.Where("habit_id = ? AND date = ?", habit.ID, s.clock.Today()).
		Limit(1).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("get today completion: %w", err)
	}

	completed := len(records) > 0 && records[0].Status
	return &CompletionStatus{HabitID: habit.ID, Name: habit.Name, CompletedToday: completed}, nil
}

// History 返回所有标记为完成的日期（升序）及连续天数
func (s *CompletionService) History(habitID, userID uint) (*CompletionHistory, error) {
	habit, err := findHabitOfUser(s.db, habitID, userID)
	if err != nil {
		return nil, err
	}

	var records []db.HabitCompletion
	if err := s.db.Where("habit_id = ? AND status = ?", habit.ID, true).
		Order("date ASC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list habit completions: %w", err)
	}

	dates := make([]time.Time, 0, len(records))
	for _, record := range records {
		dates = append(dates, normalizeToDate(record.Date))
	}

	current, longest := calculateStreaks(dates, s.clock.Today())
	return &CompletionHistory{
		HabitID:       habit.ID,
		Name:          habit.Name,
		Dates:         dates,
		CurrentStreak: current,
		LongestStreak: longest,
	}, nil
}

// calculateStreaks 计算按天连续的完成次数；
// 当前连续天数只在最后一次完成是今天或昨天时计入
func calculateStreaks(dates []time.Time, today time.Time) (current, longest int) {
	if len(dates) == 0 {
		return 0, 0
	}

	longest = 1
	run := 1

	for i := 1; i < len(dates); i++ {
		delta := int(dates[i].Sub(dates[i-1]).Hours() / 24)
		switch delta {
		case 0:
			continue
		case 1:
			run++
		default:
			run = 1
		}
		if run > longest {
			longest = run
		}
	}

	gap := int(today.Sub(dates[len(dates)-1]).Hours() / 24)
	if gap == 0 || gap == 1 {
		current = run
	}
	return current, longest
}
