package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/habittracker/internal/db"
	"github.com/habittracker/internal/service"
)

const dateFormat = "2006-01-02"

type habitSummary struct {
	ID           uint         `json:"id"`
	Name         string       `json:"name"`
	Description  *string      `json:"description"`
	Category     db.Category  `json:"category"`
	Frequency    db.Frequency `json:"frequency"`
	ReminderTime *string      `json:"reminder_time"`
	StartDate    string       `json:"start_date"`
}

type habitCreateRequest struct {
	Name         string  `json:"name" binding:"required"`
	Description  *string `json:"description"`
	Category     *string `json:"category"`
	Frequency    string  `json:"frequency" binding:"required"`
	ReminderTime *string `json:"reminder_time"`
}

type habitUpdateRequest struct {
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	Category     *string `json:"category"`
	Frequency    *string `json:"frequency"`
	ReminderTime *string `json:"reminder_time"`
}

// CreateHabit 为当前用户创建习惯
func (a *API) CreateHabit(c *gin.Context) {
	var req habitCreateRequest
	if !bindJSON(c, &req, "invalid habit payload") {
		return
	}

	habit, err := a.habitService(c).Create(currentUser(c).ID, service.HabitInput{
		Name:         req.Name,
		Description:  req.Description,
		Category:     derefString(req.Category),
		Frequency:    req.Frequency,
		ReminderTime: derefString(req.ReminderTime),
	})
	if err != nil {
		a.handleServiceError(c, err, "")
		return
	}

	c.JSON(http.StatusCreated, habitToSummary(*habit))
}

// ListHabits 返回当前用户的习惯列表
func (a *API) ListHabits(c *gin.Context) {
	filter := service.HabitFilter{
		Category:  c.Query("category"),
		Frequency: c.Query("frequency"),
		Search:    c.Query("search"),
	}

	habits, err := a.habitService(c).List(currentUser(c).ID, filter)
	if err != nil {
		a.handleServiceError(c, err, "")
		return
	}

	items := make([]habitSummary, 0, len(habits))
	for _, habit := range habits {
		items = append(items, habitToSummary(habit))
	}
	c.JSON(http.StatusOK, items)
}

// GetHabit 返回单个习惯详情
func (a *API) GetHabit(c *gin.Context) {
	id, ok := habitIDParam(c)
	if !ok {
		return
	}

	habit, err := a.habitService(c).GetOfUser(id, currentUser(c).ID)
	if err != nil {
		a.handleServiceError(c, err, habitNotFoundByID(id))
		return
	}
	c.JSON(http.StatusOK, habitToSummary(*habit))
}

// GetHabitByName 按名称查找习惯，名称按创建时的规则规范化
func (a *API) GetHabitByName(c *gin.Context) {
	name := c.Param("name")
	habit, err := a.habitService(c).GetByName(currentUser(c).ID, name)
	if err != nil {
		a.handleServiceError(c, err, fmt.Sprintf("Habit with name %s not found or not authorized.", name))
		return
	}
	c.JSON(http.StatusOK, habitToSummary(*habit))
}

// UpdateHabit 按字段合并更新习惯
func (a *API) UpdateHabit(c *gin.Context) {
	id, ok := habitIDParam(c)
	if !ok {
		return
	}

	var req habitUpdateRequest
	if !bindJSON(c, &req, "invalid habit payload") {
		return
	}

	habit, err := a.habitService(c).Update(id, currentUser(c).ID, service.HabitPatch{
		Name:         req.Name,
		Description:  req.Description,
		Category:     req.Category,
		Frequency:    req.Frequency,
		ReminderTime: req.ReminderTime,
	})
	if err != nil {
		a.handleServiceError(c, err, habitNotFoundByID(id))
		return
	}
	c.JSON(http.StatusOK, habitToSummary(*habit))
}

// DeleteHabit 删除习惯及其完成记录
func (a *API) DeleteHabit(c *gin.Context) {
	id, ok := habitIDParam(c)
	if !ok {
		return
	}

	if err := a.habitService(c).Delete(id, currentUser(c).ID); err != nil {
		a.handleServiceError(c, err, habitNotFoundByID(id))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func habitIDParam(c *gin.Context) (uint, bool) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusUnprocessableEntity, "invalid habit id")
		return 0, false
	}
	return id, true
}

func habitNotFoundByID(id uint) string {
	return fmt.Sprintf("Habit with id %d not found or not authorized.", id)
}

func habitToSummary(habit db.Habit) habitSummary {
	return habitSummary{
		ID:           habit.ID,
		Name:         habit.Name,
		Description:  habit.Description,
		Category:     habit.Category,
		Frequency:    habit.Frequency,
		ReminderTime: habit.ReminderTime,
		StartDate:    habit.StartDate.Format(dateFormat),
	}
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
