package service

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/habittracker/internal/db"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	// ErrInvalidCategory 类别不在允许的枚举中
	ErrInvalidCategory = errors.New("invalid category")
	// ErrInvalidFrequency 频率不在允许的枚举中
	ErrInvalidFrequency = errors.New("invalid frequency")
	// ErrInvalidReminderTime 提醒时间无法解析
	ErrInvalidReminderTime = errors.New("invalid reminder_time")
	// ErrInvalidInput 必填字段缺失等通用校验失败
	ErrInvalidInput = errors.New("invalid input")
)

const reminderTimeFormat = "15:04:05"

var reminderTimeLayouts = []string{"15:04:05", "15:04", "3:04PM", "3:04 PM"}

// 名称与描述只接受纯文本
var textPolicy = bluemonday.StrictPolicy()

// plainText 去除首尾空白；内容包含 HTML 标签或字符实体时返回 ErrInvalidInput，
// 不做静默删减
func plainText(field, value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if html.UnescapeString(textPolicy.Sanitize(trimmed)) != trimmed {
		return "", fmt.Errorf("%w: %s must be plain text without markup", ErrInvalidInput, field)
	}
	return trimmed, nil
}

// NormalizeHabitName 将习惯名称规范为标题格式，例如 "  read books " -> "Read Books"
func NormalizeHabitName(name string) string {
	cleaned := strings.Join(strings.Fields(name), " ")
	return cases.Title(language.Und).String(cleaned)
}

// habitName 校验并规范化写入的习惯名称
func habitName(raw string) (string, error) {
	text, err := plainText("name", raw)
	if err != nil {
		return "", err
	}
	name := NormalizeHabitName(text)
	if name == "" {
		return "", fmt.Errorf("%w: habit name is required", ErrInvalidInput)
	}
	return name, nil
}

// ParseCategory 忽略大小写与首尾空白匹配类别；空字符串返回 ok=false。
func ParseCategory(raw string) (db.Category, bool, error) {
	trimmed := strings.Join(strings.Fields(raw), " ")
	if trimmed == "" {
		return "", false, nil
	}
	for _, category := range db.Categories {
		if strings.EqualFold(trimmed, string(category)) {
			return category, true, nil
		}
	}

	allowed := make([]string, 0, len(db.Categories))
	for _, category := range db.Categories {
		allowed = append(allowed, string(category))
	}
	return "", false, fmt.Errorf("%w %q; category must be one of: %s", ErrInvalidCategory, trimmed, strings.Join(allowed, ", "))
}

// ParseFrequency 忽略大小写与首尾空白匹配频率；空字符串返回 ok=false。
func ParseFrequency(raw string) (db.Frequency, bool, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false, nil
	}
	for _, frequency := range db.Frequencies {
		if strings.EqualFold(trimmed, string(frequency)) {
			return frequency, true, nil
		}
	}

	allowed := make([]string, 0, len(db.Frequencies))
	for _, frequency := range db.Frequencies {
		allowed = append(allowed, string(frequency))
	}
	return "", false, fmt.Errorf("%w %q; frequency must be one of: %s", ErrInvalidFrequency, trimmed, strings.Join(allowed, ", "))
}

// ParseReminderTime 解析一天中的时刻并统一为 15:04:05；空字符串返回 nil。
func ParseReminderTime(raw string) (*string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}
	for _, layout := range reminderTimeLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			formatted := t.Format(reminderTimeFormat)
			return &formatted, nil
		}
	}
	return nil, fmt.Errorf("%w %q; expected HH:MM or HH:MM:SS", ErrInvalidReminderTime, trimmed)
}

func optionalText(field string, value *string) (*string, error) {
	if value == nil {
		return nil, nil
	}
	cleaned, err := plainText(field, *value)
	if err != nil {
		return nil, err
	}
	if cleaned == "" {
		return nil, nil
	}
	return &cleaned, nil
}
