package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

type completionStatusPayload struct {
	ID             uint   `json:"id"`
	Name           string `json:"name"`
	CompletedToday bool   `json:"completed_today"`
}

type habitCompletionsPayload struct {
	ID             uint     `json:"id"`
	Name           string   `json:"name"`
	CompletedDates []string `json:"completed_dates"`
	CurrentStreak  int      `json:"current_streak"`
	LongestStreak  int      `json:"longest_streak"`
}

type markCompletionRequest struct {
	Status *bool `json:"status"`
}

// MarkHabitCompletedToday 标记今天的完成状态，请求体可选，默认为已完成
func (a *API) MarkHabitCompletedToday(c *gin.Context) {
	id, ok := habitIDParam(c)
	if !ok {
		return
	}

	status := true
	if c.Request.Body != nil && c.Request.Body != http.NoBody {
		var req markCompletionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			if !errors.Is(err, io.EOF) {
				respondError(c, http.StatusUnprocessableEntity, "invalid completion payload")
				return
			}
		} else if req.Status != nil {
			status = *req.Status
		}
	}

	result, err := a.completionService(c).MarkToday(id, currentUser(c).ID, status)
	if err != nil {
		a.handleServiceError(c, err, habitNotFoundByID(id))
		return
	}

	c.JSON(http.StatusOK, completionStatusPayload{
		ID:             result.HabitID,
		Name:           result.Name,
		CompletedToday: result.CompletedToday,
	})
}

// GetHabitTodayStatus 返回今天是否已完成
func (a *API) GetHabitTodayStatus(c *gin.Context) {
	id, ok := habitIDParam(c)
	if !ok {
		return
	}

	result, err := a.completionService(c).TodayStatus(id, currentUser(c).ID)
	if err != nil {
		a.handleServiceError(c, err, habitNotFoundByID(id))
		return
	}

	c.JSON(http.StatusOK, completionStatusPayload{
		ID:             result.HabitID,
		Name:           result.Name,
		CompletedToday: result.CompletedToday,
	})
}

// GetHabitCompletions 返回全部完成日期及连续天数
func (a *API) GetHabitCompletions(c *gin.Context) {
	id, ok := habitIDParam(c)
	if !ok {
		return
	}

	history, err := a.completionService(c).History(id, currentUser(c).ID)
	if err != nil {
		a.handleServiceError(c, err, habitNotFoundByID(id))
		return
	}

	dates := make([]string, 0, len(history.Dates))
	for _, date := range history.Dates {
		dates = append(dates, date.Format(dateFormat))
	}

	c.JSON(http.StatusOK, habitCompletionsPayload{
		ID:             history.HabitID,
		Name:           history.Name,
		CompletedDates: dates,
		CurrentStreak:  history.CurrentStreak,
		LongestStreak:  history.LongestStreak,
	})
}
