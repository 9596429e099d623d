package service

import "time"

// Clock 决定“今天”是哪一天
// 零值使用 time.Now 与 UTC
type Clock struct {
	Now      func() time.Time
	Location *time.Location
}

// SystemClock 返回指定时区下的系统时钟
func SystemClock(loc *time.Location) Clock {
	return Clock{Now: time.Now, Location: loc}
}

// Today 返回当前日期，统一以 UTC 零点表示，便于跨驱动比较
func (c Clock) Today() time.Time {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return normalizeToDate(now().In(loc))
}

func normalizeToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
