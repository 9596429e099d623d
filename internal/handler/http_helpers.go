package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/habittracker/internal/service"
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// respondUnauthorized 附带 WWW-Authenticate 头，提示客户端使用 Bearer 令牌
func respondUnauthorized(c *gin.Context, message string) {
	c.Header("WWW-Authenticate", "Bearer")
	respondError(c, http.StatusUnauthorized, message)
}

// bindJSON 解析请求体，字段缺失或格式错误时返回 422
func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusUnprocessableEntity, fmt.Sprintf("%s: %v", message, err))
		return false
	}
	return true
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	raw := c.Param(key)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(id), nil
}

// handleServiceError 将服务层错误映射为 HTTP 状态码；
// notFound 为资源不存在时返回给客户端的提示
func (a *API) handleServiceError(c *gin.Context, err error, notFound string) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		respondUnauthorized(c, "Invalid credentials")
	case errors.Is(err, service.ErrForbidden):
		respondError(c, http.StatusForbidden, "Admin access required")
	case errors.Is(err, service.ErrHabitNotFound), errors.Is(err, service.ErrUserNotFound):
		respondError(c, http.StatusNotFound, notFound)
	case errors.Is(err, service.ErrUserExists):
		respondError(c, http.StatusConflict, "Username or email already registered")
	case errors.Is(err, service.ErrInvalidCategory),
		errors.Is(err, service.ErrInvalidFrequency),
		errors.Is(err, service.ErrInvalidReminderTime),
		errors.Is(err, service.ErrInvalidInput):
		respondError(c, http.StatusBadRequest, err.Error())
	default:
		c.Error(err)
		a.log.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "err", err)
		respondError(c, http.StatusInternalServerError, "Internal server error")
	}
}
