package handler

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/habitforge/internal/db"
	"golang.org/x/crypto/bcrypt"
)

const sessionUserIDKey = "user_id"

type credentialsPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Signup 注册新用户并直接建立会话
func (a *API) Signup(c *gin.Context) {
	var payload credentialsPayload
	if !bindJSON(c, &payload, "请求体格式错误") {
		return
	}

	username := strings.TrimSpace(payload.Username)
	if username == "" || strings.TrimSpace(payload.Password) == "" {
		respondError(c, http.StatusBadRequest, "用户名与密码不能为空")
		return
	}

	var existing db.User
	if err := a.db.Where("username = ?", username).First(&existing).Error; err == nil {
		respondError(c, http.StatusConflict, "用户名已被占用")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "创建用户失败")
		return
	}

	user := db.User{Username: username, Password: string(hashed)}
	if err := a.db.Create(&user).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "创建用户失败")
		return
	}

	if !saveSessionUser(c, user.ID) {
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": user.ID, "username": user.Username})
}

// Login 处理用户登录请求
func (a *API) Login(c *gin.Context) {
	var payload credentialsPayload
	if !bindJSON(c, &payload, "请求体格式错误") {
		return
	}

	// 查找用户
	var user db.User
	if err := a.db.Where("username = ?", strings.TrimSpace(payload.Username)).First(&user).Error; err != nil {
		respondError(c, http.StatusUnauthorized, "用户名或密码错误")
		return
	}

	// 验证密码
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(payload.Password)); err != nil {
		respondError(c, http.StatusUnauthorized, "用户名或密码错误")
		return
	}

	if !saveSessionUser(c, user.ID) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": user.ID, "username": user.Username})
}

// Logout 处理用户登出
func (a *API) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Save()
	c.JSON(http.StatusOK, gin.H{"message": "已退出登录"})
}

// Profile 返回当前登录用户信息
func (a *API) Profile(c *gin.Context) {
	userID := currentUserID(c)

	var user db.User
	if err := a.db.First(&user, userID).Error; err != nil {
		respondError(c, http.StatusNotFound, "用户不存在")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":           user.ID,
		"username":     user.Username,
		"displayName":  user.DisplayName,
		"coachingTone": user.CoachingTone,
		"timezone":     user.Timezone,
	})
}

// AuthRequired 是一个简单的认证中间件，产出已验证的用户标识
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID := session.Get(sessionUserIDKey)
		if userID == nil {
			respondError(c, http.StatusUnauthorized, "请先登录")
			c.Abort()
			return
		}
		c.Next()
	}
}

// currentUserID 读取会话中的用户 ID；必须在 AuthRequired 之后调用
func currentUserID(c *gin.Context) uint {
	session := sessions.Default(c)
	if id, ok := session.Get(sessionUserIDKey).(uint); ok {
		return id
	}
	return 0
}

func saveSessionUser(c *gin.Context, userID uint) bool {
	session := sessions.Default(c)
	session.Set(sessionUserIDKey, userID)
	if err := session.Save(); err != nil {
		respondError(c, http.StatusInternalServerError, "会话保存失败")
		return false
	}
	return true
}
