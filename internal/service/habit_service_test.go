package service

import (
	"errors"
	"testing"
	"time"

	"github.com/habitforge/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupHabitTestDB(t *testing.T) func() {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := gdb.AutoMigrate(&db.User{}, &db.Habit{}, &db.HabitLog{}, &db.Streak{}, &db.Notification{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	db.DB = gdb

	return func() {
		sqlDB, err := db.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
}

func TestHabitServiceCreateAndList(t *testing.T) {
	cleanup := setupHabitTestDB(t)
	defer cleanup()

	svc := NewHabitService(db.DB)

	habit, err := svc.Create(1, HabitInput{
		Title:             "晨跑",
		Description:       "每天 5 公里",
		Frequency:         "daily",
		CurrentDifficulty: 4,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if habit.ID == "" {
		t.Fatal("expected habit to have ID")
	}
	if habit.Status != "active" {
		t.Fatalf("unexpected status: %s", habit.Status)
	}

	// 新建习惯附带归零的连胜记录
	var streak db.Streak
	if err := db.DB.First(&streak, "habit_id = ?", habit.ID).Error; err != nil {
		t.Fatalf("expected streak row for new habit: %v", err)
	}
	if streak.CurrentStreak != 0 || streak.LongestStreak != 0 {
		t.Fatalf("expected zeroed streak, got %+v", streak)
	}

	habits, err := svc.List(1, "")
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(habits) != 1 {
		t.Fatalf("expected 1 habit, got %d", len(habits))
	}

	// 其他用户不可见
	habits, err = svc.List(2, "")
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(habits) != 0 {
		t.Fatalf("expected ownership scoping, got %d habits", len(habits))
	}

	// 不合法频率
	if _, err := svc.Create(1, HabitInput{Title: "阅读", Frequency: "yearly"}); err == nil {
		t.Fatal("expected error for invalid frequency")
	}

	// 标题必填
	if _, err := svc.Create(1, HabitInput{Frequency: "daily"}); err == nil {
		t.Fatal("expected error for missing title")
	}
}

func TestHabitServiceUpdate(t *testing.T) {
	cleanup := setupHabitTestDB(t)
	defer cleanup()

	svc := NewHabitService(db.DB)
	habit, err := svc.Create(1, HabitInput{Title: "冥想", CurrentDifficulty: 3})
	if err != nil {
		t.Fatalf("failed to create habit: %v", err)
	}

	updated, err := svc.Update(1, habit.ID, HabitInput{
		Title:             "冥想训练",
		Description:       "晚间 10 分钟",
		Status:            "paused",
		CurrentDifficulty: 6,
	})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	if updated.Title != "冥想训练" {
		t.Fatalf("expected title to update, got %s", updated.Title)
	}
	if updated.Status != "paused" {
		t.Fatalf("expected status paused, got %s", updated.Status)
	}
	if updated.CurrentDifficulty != 6 {
		t.Fatalf("expected difficulty 6, got %d", updated.CurrentDifficulty)
	}

	// 难度锁定后不再接受难度改动
	locked, err := svc.Update(1, habit.ID, HabitInput{
		Title:             "冥想训练",
		LockedDifficulty:  true,
		CurrentDifficulty: 9,
	})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if locked.CurrentDifficulty != 6 {
		t.Fatalf("locked habit must keep difficulty, got %d", locked.CurrentDifficulty)
	}

	// 不属于当前用户
	if _, err := svc.Update(2, habit.ID, HabitInput{Title: "越权"}); !errors.Is(err, ErrHabitNotFound) {
		t.Fatalf("expected ErrHabitNotFound, got %v", err)
	}
}

func TestHabitServiceDeleteCascades(t *testing.T) {
	cleanup := setupHabitTestDB(t)
	defer cleanup()

	svc := NewHabitService(db.DB)
	habit, err := svc.Create(1, HabitInput{Title: "写日记"})
	if err != nil {
		t.Fatalf("failed to create habit: %v", err)
	}

	if _, err := svc.LogCompletion(1, habit.ID, CompletionInput{}); err != nil {
		t.Fatalf("LogCompletion returned error: %v", err)
	}

	if err := svc.Delete(1, habit.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	var logs int64
	db.DB.Model(&db.HabitLog{}).Where("habit_id = ?", habit.ID).Count(&logs)
	var streaks int64
	db.DB.Model(&db.Streak{}).Where("habit_id = ?", habit.ID).Count(&streaks)
	if logs != 0 || streaks != 0 {
		t.Fatalf("expected derived rows removed, logs=%d streaks=%d", logs, streaks)
	}
}

func TestLogCompletionUpdatesStreak(t *testing.T) {
	cleanup := setupHabitTestDB(t)
	defer cleanup()

	svc := NewHabitService(db.DB)
	habit, err := svc.Create(1, HabitInput{Title: "晨跑", CurrentDifficulty: 5})
	if err != nil {
		t.Fatalf("failed to create habit: %v", err)
	}

	yesterday := time.Now().AddDate(0, 0, -1)
	first, err := svc.LogCompletion(1, habit.ID, CompletionInput{CompletedAt: &yesterday})
	if err != nil {
		t.Fatalf("LogCompletion returned error: %v", err)
	}
	if first.Streak.CurrentStreak != 1 {
		t.Fatalf("expected streak 1, got %d", first.Streak.CurrentStreak)
	}
	if !first.IsRecovery {
		t.Fatal("first ever completion has no yesterday log, expected recovery")
	}
	if first.Log.DifficultyAtCompletion != 5 {
		t.Fatalf("expected difficulty snapshot 5, got %d", first.Log.DifficultyAtCompletion)
	}

	second, err := svc.LogCompletion(1, habit.ID, CompletionInput{})
	if err != nil {
		t.Fatalf("LogCompletion returned error: %v", err)
	}
	if second.Streak.CurrentStreak != 2 {
		t.Fatalf("expected streak 2, got %d", second.Streak.CurrentStreak)
	}
	if second.Streak.LongestStreak != 2 {
		t.Fatalf("expected longest 2, got %d", second.Streak.LongestStreak)
	}
	if second.IsRecovery {
		t.Fatal("yesterday is logged, not a recovery")
	}

	// LastCompletedAt 同步推进
	refreshed, err := svc.Get(1, habit.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if refreshed.LastCompletedAt == nil {
		t.Fatal("expected last completed at to be stamped")
	}
}

func TestHabitServiceStats(t *testing.T) {
	cleanup := setupHabitTestDB(t)
	defer cleanup()

	svc := NewHabitService(db.DB)
	habit, err := svc.Create(1, HabitInput{Title: "晨跑"})
	if err != nil {
		t.Fatalf("failed to create habit: %v", err)
	}

	for i := 0; i < 3; i++ {
		when := time.Now().AddDate(0, 0, -i)
		if _, err := svc.LogCompletion(1, habit.ID, CompletionInput{CompletedAt: &when}); err != nil {
			t.Fatalf("LogCompletion returned error: %v", err)
		}
	}

	stats, err := svc.Stats(1, habit.ID, 30)
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if stats.TotalCompletions != 3 {
		t.Fatalf("expected 3 completions, got %d", stats.TotalCompletions)
	}
	if stats.CompletionRate != float64(3)/30 {
		t.Fatalf("unexpected completion rate %f", stats.CompletionRate)
	}
}
