package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/habittracker/internal/service"
)

type loginForm struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

// Welcome 返回欢迎信息
func (a *API) Welcome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Welcome to the Habit Tracker API!"})
}

// Ping 健康检查
func (a *API) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

// Login 处理表单登录，成功后签发访问令牌
func (a *API) Login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		respondError(c, http.StatusUnprocessableEntity, "username and password are required")
		return
	}

	result, err := a.authService(c).Login(form.Username, form.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			a.log.Warn("login failed", "username", form.Username)
			respondUnauthorized(c, "Could not validate user.")
			return
		}
		a.handleServiceError(c, err, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"username":     result.Username,
		"access_token": result.AccessToken,
		"token_type":   result.TokenType,
		"expires_in":   result.ExpiresIn,
	})
}

// SecureData 受保护的探测接口
func (a *API) SecureData(c *gin.Context) {
	user := currentUser(c)
	c.JSON(http.StatusOK, gin.H{"msg": fmt.Sprintf("You're authenticated as %s!", user.Username)})
}
