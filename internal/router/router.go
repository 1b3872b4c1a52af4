package router

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/habitforge/internal/config"
	"github.com/habitforge/internal/db"
	"github.com/habitforge/internal/handler"
)

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(cfg config.AppConfig) *gin.Engine {
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	r := gin.Default()

	// 配置会话中间件
	store := cookie.NewStore([]byte(cfg.SessionSecret))
	r.Use(sessions.Sessions("habitforge_session", store))

	api := handler.NewAPI(db.DB)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	// 认证入口，无需会话
	authGroup := r.Group("/api/auth")
	{
		authGroup.POST("/signup", api.Signup)
		authGroup.POST("/login", api.Login)
	}

	// 需要已验证用户身份的业务路由
	authed := r.Group("/api")
	authed.Use(handler.AuthRequired())
	{
		authed.POST("/auth/logout", api.Logout)
		authed.GET("/auth/profile", api.Profile)

		authed.GET("/habits", api.ListHabits)
		authed.POST("/habits", api.CreateHabit)
		authed.GET("/habits/:id", api.GetHabit)
		authed.PUT("/habits/:id", api.UpdateHabit)
		authed.DELETE("/habits/:id", api.DeleteHabit)
		authed.POST("/habits/:id/track", api.TrackHabit)
		authed.GET("/habits/:id/history", api.HabitHistory)
		authed.GET("/habits/:id/stats", api.HabitStats)

		authed.GET("/sync/pull", api.PullChanges)
		authed.POST("/sync/push", api.PushChanges)
		authed.GET("/sync/conflicts", api.ListSyncConflicts)
		authed.POST("/sync/conflicts/:recordId/resolve", api.ResolveSyncConflict)
	}

	return r
}
