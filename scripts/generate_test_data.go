package main

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/habittracker/internal/config"
	"github.com/habittracker/internal/db"
	"github.com/habittracker/internal/service"
	"gorm.io/gorm"
)

const (
	demoUsername = "demo"
	demoPassword = "demo123"
	demoDays     = 14
)

type demoHabit struct {
	name        string
	description string
	category    string
	frequency   string
	reminder    string
	// 每隔 every 天完成一次
	every int
}

var demoHabits = []demoHabit{
	{name: "read books", description: "20 pages before bed", category: "Personal Development", frequency: "Daily", reminder: "21:30", every: 1},
	{name: "morning run", description: "5km around the park", category: "Fitness", frequency: "Daily", reminder: "07:00", every: 2},
	{name: "budget review", description: "check spending", category: "Finance", frequency: "Weekly", every: 7},
	{name: "call family", category: "Social", frequency: "Weekly", every: 7},
	{name: "meditate", description: "10 minutes", category: "Mental Wellness", frequency: "Daily", reminder: "06:45", every: 1},
}

type seedSummary struct {
	Users       int
	Habits      int
	Completions int
}

// 测试数据生成器
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("配置加载失败:", err)
	}

	gdb, err := db.Open(db.Options{Driver: cfg.DatabaseDriver, Path: cfg.DatabasePath, URL: cfg.DatabaseURL})
	if err != nil {
		log.Fatal("数据库初始化失败:", err)
	}
	defer db.Close(gdb)

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("开始生成测试数据...")

	summary, err := seedDemoData(gdb, cfg.BcryptCost, service.SystemClock(loc))
	if err != nil {
		log.Fatal("生成测试数据失败:", err)
	}

	fmt.Println("测试数据生成完成！")
	fmt.Printf("用户: %s (密码: %s)\n", demoUsername, demoPassword)
	fmt.Printf("新增用户 %d，习惯 %d，完成记录 %d\n", summary.Users, summary.Habits, summary.Completions)
}

// seedDemoData 创建演示账号、习惯以及最近两周的完成记录；重复执行不会产生重复数据
func seedDemoData(gdb *gorm.DB, cost int, clock service.Clock) (seedSummary, error) {
	var summary seedSummary

	users := service.NewUserService(gdb, cost)
	user, err := users.GetByUsername(demoUsername)
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		user, err = users.Create(service.UserInput{
			Username: demoUsername,
			Email:    demoUsername + "@example.com",
			Password: demoPassword,
		})
		if err != nil {
			return summary, err
		}
		summary.Users++
	case err != nil:
		return summary, err
	}

	today := clock.Today()
	habits := service.NewHabitService(gdb, clock)

	for _, item := range demoHabits {
		habit, err := habits.GetByName(user.ID, item.name)
		if errors.Is(err, service.ErrHabitNotFound) {
			description := item.description
			habit, err = habits.Create(user.ID, service.HabitInput{
				Name:         item.name,
				Description:  &description,
				Category:     item.category,
				Frequency:    item.frequency,
				ReminderTime: item.reminder,
			})
			if err != nil {
				return summary, fmt.Errorf("create habit %q: %w", item.name, err)
			}
			summary.Habits++
		} else if err != nil {
			return summary, err
		}

		for offset := demoDays - 1; offset >= 0; offset -= item.every {
			day := today.AddDate(0, 0, -offset)
			dayClock := service.Clock{Now: func() time.Time { return day }, Location: time.UTC}
			if _, err := service.NewCompletionService(gdb, dayClock).MarkToday(habit.ID, user.ID, true); err != nil {
				return summary, fmt.Errorf("mark %q on %s: %w", item.name, day.Format("2006-01-02"), err)
			}
			summary.Completions++
		}
	}

	return summary, nil
}
