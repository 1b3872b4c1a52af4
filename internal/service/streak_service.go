package service

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/habitforge/internal/db"
	"gorm.io/gorm"
)

// 连胜推演只回看最近一段历史，与客户端展示窗口一致
const streakHistoryWindow = 30

// StreakService 负责把纯函数的连胜推演结果落到 Streak 记录上
type StreakService struct {
	db *gorm.DB
}

// NewStreakService 构造 StreakService
func NewStreakService(gdb *gorm.DB) *StreakService {
	return &StreakService{db: gdb}
}

// EnsureForHabit 为新建习惯补一条归零的连胜记录
func (s *StreakService) EnsureForHabit(tx *gorm.DB, habitID string, userID uint) error {
	var existing db.Streak
	err := tx.Where("habit_id = ?", habitID).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("find streak: %w", err)
	}

	streak := db.Streak{HabitID: habitID, UserID: userID}
	if err := tx.Create(&streak).Error; err != nil {
		return fmt.Errorf("create streak: %w", err)
	}
	return nil
}

// Recalculate 在一次新打卡之后重算习惯连胜并持久化。
// 必须与日志插入在同一事务内调用（tx），保证两者同生共死。
// excludeLogID 为刚插入的日志 ID：推演只统计既有历史，锚点日志
// 在这里以 +1 的形式计入；LongestStreak 只增不减。
// 锚点永远取最新一次完成：迟到同步的旧日志只会补进历史，
// 不会把可见连胜拉回到它自己的日期。
func (s *StreakService) Recalculate(tx *gorm.DB, habitID string, userID uint, excludeLogID string, completedAt time.Time) (*db.Streak, StreakWalk, error) {
	var history []db.HabitLog
	if err := tx.Where("habit_id = ? AND id <> ?", habitID, excludeLogID).
		Order("completed_at DESC").
		Limit(streakHistoryWindow).
		Find(&history).Error; err != nil {
		return nil, StreakWalk{}, fmt.Errorf("load streak history: %w", err)
	}

	logs := append([]db.HabitLog{{CompletedAt: completedAt}}, history...)
	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].CompletedAt.After(logs[j].CompletedAt)
	})

	walk := ComputeStreak(logs[1:], logs[0].CompletedAt)
	current := walk.Streak + 1

	var streak db.Streak
	err := tx.Where("habit_id = ?", habitID).First(&streak).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		streak = db.Streak{HabitID: habitID, UserID: userID}
	} else if err != nil {
		return nil, StreakWalk{}, fmt.Errorf("find streak: %w", err)
	}

	streak.CurrentStreak = current
	streak.LongestStreak = max(streak.LongestStreak, current)

	if err := tx.Save(&streak).Error; err != nil {
		return nil, StreakWalk{}, fmt.Errorf("save streak: %w", err)
	}

	return &streak, walk, nil
}
