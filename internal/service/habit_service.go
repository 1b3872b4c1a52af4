package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/habitforge/internal/db"
	"gorm.io/gorm"
)

var (
	// ErrHabitNotFound 在指定习惯不存在或不属于当前用户时返回
	ErrHabitNotFound = errors.New("habit not found")
	// ErrHabitInvalidInput 当习惯配置不合法时返回
	ErrHabitInvalidInput = errors.New("invalid habit input")
)

// 新习惯的默认难度，与 AI 首次评估的基线一致
const defaultDifficulty = 3

// 打卡统计的默认回看窗口（天）
const defaultStatsWindow = 30

// HabitService 负责 Habit 及其打卡日志的增删改查
// 所有操作都以 userID 为边界做所有权校验，保持与 handler 解耦
// Frequency 支持 daily/weekly/custom，Status 支持 active/paused/archived
type HabitService struct {
	db      *gorm.DB
	streaks *StreakService
}

// HabitInput 定义创建/更新习惯时可配置字段
type HabitInput struct {
	Title             string
	Description       string
	Category          string
	Frequency         string
	TargetDays        []int
	TimeOfDay         string
	Status            string
	CurrentDifficulty int
	LockedDifficulty  bool
}

// CompletionInput 定义打卡时的输入对象
type CompletionInput struct {
	CompletedAt     *time.Time
	EnergyLevel     *int
	TimeAvailable   *int
	DayType         string
	FeltTooEasy     bool
	FeltTooHard     bool
	Notes           string
	ClientCreatedAt *time.Time
}

// CompletionResult 汇总一次打卡的落库结果与顾问上下文
type CompletionResult struct {
	Log        *db.HabitLog
	Streak     *db.Streak
	IsRecovery bool
}

// HabitStats 汇总基础统计数据
type HabitStats struct {
	HabitID           string  `json:"habitId"`
	Title             string  `json:"title"`
	CurrentStreak     int     `json:"currentStreak"`
	LongestStreak     int     `json:"longestStreak"`
	CompletionRate    float64 `json:"completionRate"`
	TotalCompletions  int     `json:"totalCompletions"`
	CurrentDifficulty int     `json:"currentDifficulty"`
}

// NewHabitService 构造 HabitService
func NewHabitService(gdb *gorm.DB) *HabitService {
	return &HabitService{db: gdb, streaks: NewStreakService(gdb)}
}

// List 返回用户的习惯集合，status 为空时默认只看 active
func (s *HabitService) List(userID uint, status string) ([]db.Habit, error) {
	if strings.TrimSpace(status) == "" {
		status = "active"
	}

	var habits []db.Habit
	if err := s.db.Where("user_id = ? AND status = ?", userID, status).
		Order("created_at DESC").
		Find(&habits).Error; err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}
	return habits, nil
}

// Get 根据 ID 获取习惯，并校验所有权
func (s *HabitService) Get(userID uint, habitID string) (*db.Habit, error) {
	var habit db.Habit
	if err := s.db.Where("id = ? AND user_id = ?", habitID, userID).First(&habit).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHabitNotFound
		}
		return nil, fmt.Errorf("get habit: %w", err)
	}
	return &habit, nil
}

// Create 新建习惯并同时补一条归零的连胜记录
func (s *HabitService) Create(userID uint, input HabitInput) (*db.Habit, error) {
	if err := validateHabitInput(input); err != nil {
		return nil, err
	}

	habit := db.Habit{
		UserID:            userID,
		Title:             sanitizeUserText(input.Title),
		Description:       sanitizeUserText(input.Description),
		Category:          sanitizeUserText(input.Category),
		Frequency:         normalizeFrequency(input.Frequency),
		TargetDays:        input.TargetDays,
		TimeOfDay:         strings.TrimSpace(input.TimeOfDay),
		Status:            normalizeStatus(input.Status),
		CurrentDifficulty: normalizeDifficulty(input.CurrentDifficulty),
		BaseDifficulty:    normalizeDifficulty(input.CurrentDifficulty),
		LockedDifficulty:  input.LockedDifficulty,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&habit).Error; err != nil {
			return fmt.Errorf("create habit: %w", err)
		}
		return s.streaks.EnsureForHabit(tx, habit.ID, userID)
	})
	if err != nil {
		return nil, err
	}
	return &habit, nil
}

// Update 更新习惯，难度锁定时忽略难度改动
func (s *HabitService) Update(userID uint, habitID string, input HabitInput) (*db.Habit, error) {
	if err := validateHabitInput(input); err != nil {
		return nil, err
	}

	existing, err := s.Get(userID, habitID)
	if err != nil {
		return nil, err
	}

	existing.Title = sanitizeUserText(input.Title)
	existing.Description = sanitizeUserText(input.Description)
	existing.Category = sanitizeUserText(input.Category)
	existing.Frequency = normalizeFrequency(input.Frequency)
	existing.TargetDays = input.TargetDays
	existing.TimeOfDay = strings.TrimSpace(input.TimeOfDay)
	existing.Status = normalizeStatus(input.Status)
	existing.LockedDifficulty = input.LockedDifficulty
	if !existing.LockedDifficulty && input.CurrentDifficulty > 0 {
		existing.CurrentDifficulty = normalizeDifficulty(input.CurrentDifficulty)
	}

	if err := s.db.Save(existing).Error; err != nil {
		return nil, fmt.Errorf("update habit: %w", err)
	}
	return existing, nil
}

// Delete 删除习惯及其派生数据（日志、连胜、未发通知）
func (s *HabitService) Delete(userID uint, habitID string) error {
	if _, err := s.Get(userID, habitID); err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("habit_id = ?", habitID).Delete(&db.HabitLog{}).Error; err != nil {
			return fmt.Errorf("delete habit logs: %w", err)
		}
		if err := tx.Where("habit_id = ?", habitID).Delete(&db.Streak{}).Error; err != nil {
			return fmt.Errorf("delete streak: %w", err)
		}
		if err := tx.Where("habit_id = ?", habitID).Delete(&db.Notification{}).Error; err != nil {
			return fmt.Errorf("delete notifications: %w", err)
		}
		if err := tx.Where("id = ?", habitID).Delete(&db.Habit{}).Error; err != nil {
			return fmt.Errorf("delete habit: %w", err)
		}
		return nil
	})
}

// LogCompletion 记录一次打卡：写日志、更新最后完成时间并在同一事务
// 内重算连胜。难度快照取自习惯当前难度，此后不可变。
func (s *HabitService) LogCompletion(userID uint, habitID string, input CompletionInput) (*CompletionResult, error) {
	habit, err := s.Get(userID, habitID)
	if err != nil {
		return nil, err
	}

	completedAt := time.Now()
	if input.CompletedAt != nil {
		completedAt = *input.CompletedAt
	}

	entry := db.HabitLog{
		HabitID:                habitID,
		UserID:                 userID,
		CompletedAt:            completedAt,
		DifficultyAtCompletion: habit.CurrentDifficulty,
		EnergyLevel:            input.EnergyLevel,
		TimeAvailable:          input.TimeAvailable,
		DayType:                strings.TrimSpace(input.DayType),
		FeltTooEasy:            input.FeltTooEasy,
		FeltTooHard:            input.FeltTooHard,
		Notes:                  sanitizeUserText(input.Notes),
		Synced:                 true,
		ClientCreatedAt:        input.ClientCreatedAt,
	}

	result := &CompletionResult{}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("create habit log: %w", err)
		}

		if err := tx.Model(&db.Habit{}).
			Where("id = ?", habitID).
			Update("last_completed_at", entry.CompletedAt).Error; err != nil {
			return fmt.Errorf("update habit: %w", err)
		}

		streak, walk, err := s.streaks.Recalculate(tx, habitID, userID, entry.ID, entry.CompletedAt)
		if err != nil {
			return err
		}

		result.Log = &entry
		result.Streak = streak
		result.IsRecovery = walk.IsRecovery
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// History 返回习惯最近的打卡日志，按完成时间倒序
func (s *HabitService) History(userID uint, habitID string, limit int) ([]db.HabitLog, error) {
	if _, err := s.Get(userID, habitID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = streakHistoryWindow
	}

	var logs []db.HabitLog
	if err := s.db.Where("habit_id = ? AND user_id = ?", habitID, userID).
		Order("completed_at DESC").
		Limit(limit).
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("list habit logs: %w", err)
	}
	return logs, nil
}

// Stats 汇总最近 days 天的完成率与连胜数据
func (s *HabitService) Stats(userID uint, habitID string, days int) (*HabitStats, error) {
	habit, err := s.Get(userID, habitID)
	if err != nil {
		return nil, err
	}
	if days <= 0 {
		days = defaultStatsWindow
	}

	cutoff := time.Now().AddDate(0, 0, -days)

	var completed int64
	if err := s.db.Model(&db.HabitLog{}).
		Where("habit_id = ? AND completed_at >= ?", habitID, cutoff).
		Count(&completed).Error; err != nil {
		return nil, fmt.Errorf("count habit logs: %w", err)
	}

	var streak db.Streak
	if err := s.db.Where("habit_id = ?", habitID).First(&streak).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("get streak: %w", err)
		}
	}

	return &HabitStats{
		HabitID:           habit.ID,
		Title:             habit.Title,
		CurrentStreak:     streak.CurrentStreak,
		LongestStreak:     streak.LongestStreak,
		CompletionRate:    float64(completed) / float64(days),
		TotalCompletions:  int(completed),
		CurrentDifficulty: habit.CurrentDifficulty,
	}, nil
}

func validateHabitInput(input HabitInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrHabitInvalidInput)
	}

	freq := strings.TrimSpace(strings.ToLower(input.Frequency))
	if freq != "" && freq != "daily" && freq != "weekly" && freq != "custom" {
		return fmt.Errorf("%w: unsupported frequency %s", ErrHabitInvalidInput, input.Frequency)
	}

	if input.CurrentDifficulty < 0 || input.CurrentDifficulty > 10 {
		return fmt.Errorf("%w: difficulty must be between 1 and 10", ErrHabitInvalidInput)
	}

	return nil
}

func normalizeFrequency(frequency string) string {
	freq := strings.TrimSpace(strings.ToLower(frequency))
	if freq == "" {
		return "daily"
	}
	return freq
}

func normalizeStatus(status string) string {
	status = strings.TrimSpace(strings.ToLower(status))
	switch status {
	case "paused", "archived":
		return status
	default:
		return "active"
	}
}

func normalizeDifficulty(difficulty int) int {
	if difficulty <= 0 {
		return defaultDifficulty
	}
	if difficulty > 10 {
		return 10
	}
	return difficulty
}
