package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/habitforge/internal/db"
	"github.com/habitforge/internal/service"
)

type habitPayload struct {
	Title             string `json:"title"`
	Description       string `json:"description"`
	Category          string `json:"category"`
	Frequency         string `json:"frequency"`
	TargetDays        []int  `json:"targetDays"`
	TimeOfDay         string `json:"timeOfDay"`
	Status            string `json:"status"`
	CurrentDifficulty int    `json:"currentDifficulty"`
	LockedDifficulty  bool   `json:"lockedDifficulty"`
}

type completionPayload struct {
	CompletedAt     *time.Time `json:"completedAt"`
	EnergyLevel     *int       `json:"energyLevel"`
	TimeAvailable   *int       `json:"timeAvailable"`
	DayType         string     `json:"dayType"`
	FeltTooEasy     bool       `json:"feltTooEasy"`
	FeltTooHard     bool       `json:"feltTooHard"`
	Notes           string     `json:"notes"`
	ClientCreatedAt *time.Time `json:"clientCreatedAt"`
}

func habitInputFromPayload(payload habitPayload) service.HabitInput {
	return service.HabitInput{
		Title:             payload.Title,
		Description:       payload.Description,
		Category:          payload.Category,
		Frequency:         payload.Frequency,
		TargetDays:        payload.TargetDays,
		TimeOfDay:         payload.TimeOfDay,
		Status:            payload.Status,
		CurrentDifficulty: payload.CurrentDifficulty,
		LockedDifficulty:  payload.LockedDifficulty,
	}
}

// ListHabits 返回当前用户的习惯列表 JSON
func (a *API) ListHabits(c *gin.Context) {
	habits, err := a.habits.List(currentUserID(c), c.Query("status"))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取习惯列表失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"habits": habits})
}

// GetHabit 返回单个习惯详情
func (a *API) GetHabit(c *gin.Context) {
	habit, err := a.habits.Get(currentUserID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrHabitNotFound) {
			respondError(c, http.StatusNotFound, "习惯不存在")
			return
		}
		respondError(c, http.StatusInternalServerError, "获取习惯失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"habit": habit})
}

// CreateHabit 新建习惯
func (a *API) CreateHabit(c *gin.Context) {
	var payload habitPayload
	if !bindJSON(c, &payload, "请求体格式错误") {
		return
	}

	habit, err := a.habits.Create(currentUserID(c), habitInputFromPayload(payload))
	if err != nil {
		if errors.Is(err, service.ErrHabitInvalidInput) {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "创建习惯失败")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"habit": habit})
}

// UpdateHabit 更新习惯
func (a *API) UpdateHabit(c *gin.Context) {
	var payload habitPayload
	if !bindJSON(c, &payload, "请求体格式错误") {
		return
	}

	habit, err := a.habits.Update(currentUserID(c), c.Param("id"), habitInputFromPayload(payload))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrHabitNotFound):
			respondError(c, http.StatusNotFound, "习惯不存在")
		case errors.Is(err, service.ErrHabitInvalidInput):
			respondError(c, http.StatusBadRequest, err.Error())
		default:
			respondError(c, http.StatusInternalServerError, "更新习惯失败")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"habit": habit})
}

// DeleteHabit 删除习惯及其派生数据
func (a *API) DeleteHabit(c *gin.Context) {
	if err := a.habits.Delete(currentUserID(c), c.Param("id")); err != nil {
		if errors.Is(err, service.ErrHabitNotFound) {
			respondError(c, http.StatusNotFound, "习惯不存在")
			return
		}
		respondError(c, http.StatusInternalServerError, "删除习惯失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "已删除"})
}

// TrackHabit 记录一次打卡并返回顾问反馈
func (a *API) TrackHabit(c *gin.Context) {
	var payload completionPayload
	if !bindJSON(c, &payload, "请求体格式错误") {
		return
	}

	userID := currentUserID(c)
	habitID := c.Param("id")

	result, err := a.habits.LogCompletion(userID, habitID, service.CompletionInput{
		CompletedAt:     payload.CompletedAt,
		EnergyLevel:     payload.EnergyLevel,
		TimeAvailable:   payload.TimeAvailable,
		DayType:         payload.DayType,
		FeltTooEasy:     payload.FeltTooEasy,
		FeltTooHard:     payload.FeltTooHard,
		Notes:           payload.Notes,
		ClientCreatedAt: payload.ClientCreatedAt,
	})
	if err != nil {
		if errors.Is(err, service.ErrHabitNotFound) {
			respondError(c, http.StatusNotFound, "习惯不存在")
			return
		}
		respondError(c, http.StatusInternalServerError, "打卡失败")
		return
	}

	// 顾问只产出建议载荷，难度调整由独立流程执行
	var habit db.Habit
	advice := service.DifficultyAdvice{}
	if err := a.db.Where("id = ?", habitID).First(&habit).Error; err == nil {
		stats, statsErr := a.habits.Stats(userID, habitID, 7)
		rate := 0.0
		if statsErr == nil {
			rate = stats.CompletionRate
		}
		advice = a.advisor.Evaluate(habit, service.CompletionContext{
			Streak:         *result.Streak,
			CompletionRate: rate,
			IsRecovery:     result.IsRecovery,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"completion": result.Log,
		"streak":     result.Streak,
		"aiFeedback": advice,
	})
}

// HabitHistory 返回习惯最近的打卡记录
func (a *API) HabitHistory(c *gin.Context) {
	logs, err := a.habits.History(currentUserID(c), c.Param("id"), parseIntQuery(c, "limit", 30))
	if err != nil {
		if errors.Is(err, service.ErrHabitNotFound) {
			respondError(c, http.StatusNotFound, "习惯不存在")
			return
		}
		respondError(c, http.StatusInternalServerError, "获取打卡记录失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

// HabitStats 返回习惯统计摘要
func (a *API) HabitStats(c *gin.Context) {
	stats, err := a.habits.Stats(currentUserID(c), c.Param("id"), parseIntQuery(c, "days", 30))
	if err != nil {
		if errors.Is(err, service.ErrHabitNotFound) {
			respondError(c, http.StatusNotFound, "习惯不存在")
			return
		}
		respondError(c, http.StatusInternalServerError, "获取统计失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"stats": stats})
}
