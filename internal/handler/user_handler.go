package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/habittracker/internal/db"
	"github.com/habittracker/internal/service"
)

type habitBasicInfo struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type userSummary struct {
	ID        uint             `json:"id"`
	Username  string           `json:"username"`
	Email     string           `json:"email"`
	IsAdmin   bool             `json:"is_admin"`
	CreatedAt time.Time        `json:"created_at"`
	Habits    []habitBasicInfo `json:"habits"`
}

type userCreateRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	IsAdmin  bool   `json:"is_admin"`
}

type userUpdateRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Password *string `json:"password"`
}

// CreateUser 注册账号；只有已登录的管理员可以创建管理员
func (a *API) CreateUser(c *gin.Context) {
	var req userCreateRequest
	if !bindJSON(c, &req, "invalid user payload") {
		return
	}

	actor := currentUser(c)
	input := service.UserInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		IsAdmin:  req.IsAdmin && actor != nil && actor.IsAdmin,
	}

	user, err := a.userService(c).Create(input)
	if err != nil {
		a.handleServiceError(c, err, "")
		return
	}

	c.JSON(http.StatusCreated, userToSummary(*user))
}

// GetCurrentUser 返回当前用户
func (a *API) GetCurrentUser(c *gin.Context) {
	user, err := a.userService(c).Get(currentUser(c).ID)
	if err != nil {
		a.handleServiceError(c, err, "User not found.")
		return
	}
	c.JSON(http.StatusOK, userToSummary(*user))
}

// UpdateCurrentUser 更新当前用户的用户名、邮箱或密码
func (a *API) UpdateCurrentUser(c *gin.Context) {
	var req userUpdateRequest
	if !bindJSON(c, &req, "invalid user payload") {
		return
	}

	user, err := a.userService(c).Update(currentUser(c).ID, service.UserPatch{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		a.handleServiceError(c, err, "User not found.")
		return
	}
	c.JSON(http.StatusOK, userToSummary(*user))
}

// ListUsers 返回全部账号（管理员）
func (a *API) ListUsers(c *gin.Context) {
	users, err := a.userService(c).List()
	if err != nil {
		a.handleServiceError(c, err, "")
		return
	}

	items := make([]userSummary, 0, len(users))
	for _, user := range users {
		items = append(items, userToSummary(user))
	}
	c.JSON(http.StatusOK, items)
}

// GetUser 按 ID 查询账号（管理员）
func (a *API) GetUser(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusUnprocessableEntity, "invalid user id")
		return
	}

	user, err := a.userService(c).Get(id)
	if err != nil {
		a.handleServiceError(c, err, fmt.Sprintf("User with id %d not found.", id))
		return
	}
	c.JSON(http.StatusOK, userToSummary(*user))
}

// GetUserByUsername 按用户名查询账号（管理员）
func (a *API) GetUserByUsername(c *gin.Context) {
	username := c.Param("username")
	user, err := a.userService(c).GetByUsername(username)
	if err != nil {
		a.handleServiceError(c, err, fmt.Sprintf("User with username %s not found.", username))
		return
	}
	c.JSON(http.StatusOK, userToSummary(*user))
}

// DeleteUser 删除账号，仅本人或管理员
func (a *API) DeleteUser(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusUnprocessableEntity, "invalid user id")
		return
	}

	if err := a.userService(c).Delete(id, *currentUser(c)); err != nil {
		a.handleServiceError(c, err, fmt.Sprintf("User with id %d not found.", id))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func userToSummary(user db.User) userSummary {
	habits := make([]habitBasicInfo, 0, len(user.Habits))
	for _, habit := range user.Habits {
		habits = append(habits, habitBasicInfo{ID: habit.ID, Name: habit.Name})
	}
	return userSummary{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		IsAdmin:   user.IsAdmin,
		CreatedAt: user.CreatedAt,
		Habits:    habits,
	}
}
