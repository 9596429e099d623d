package router

import (
	"github.com/gin-gonic/gin"
	"github.com/habittracker/internal/handler"
)

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API) *gin.Engine {
	r := gin.New()

	// 事务中间件在认证之前，认证查询与业务写入共用同一个事务
	r.Use(gin.Recovery(), api.RequestLogger(), api.Transactional())

	r.GET("/", api.Welcome)
	r.GET("/ping", api.Ping)

	r.POST("/login", api.Login)
	r.GET("/secure-data", api.AuthRequired(), api.SecureData)

	users := r.Group("/users")
	{
		users.POST("/", api.OptionalAuth(), api.CreateUser)

		authed := users.Group("")
		authed.Use(api.AuthRequired())
		{
			authed.GET("/me", api.GetCurrentUser)
			authed.PUT("/me", api.UpdateCurrentUser)
			authed.DELETE("/:id", api.DeleteUser)

			admin := authed.Group("")
			admin.Use(api.AdminRequired())
			{
				admin.GET("/", api.ListUsers)
				admin.GET("/:id", api.GetUser)
				admin.GET("/by-username/:username", api.GetUserByUsername)
			}
		}
	}

	habits := r.Group("/habits")
	habits.Use(api.AuthRequired())
	{
		habits.POST("/", api.CreateHabit)
		habits.GET("/", api.ListHabits)
		habits.GET("/by-name/:name", api.GetHabitByName)
		habits.GET("/:id", api.GetHabit)
		habits.PUT("/:id", api.UpdateHabit)
		habits.DELETE("/:id", api.DeleteHabit)

		habits.POST("/complete/today/:id", api.MarkHabitCompletedToday)
		habits.GET("/complete/today/:id", api.GetHabitTodayStatus)
		habits.GET("/complete/:id", api.GetHabitCompletions)
	}

	return r
}
