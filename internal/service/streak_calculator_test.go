package service

import (
	"testing"
	"time"

	"github.com/habitforge/internal/db"
)

func logOn(day time.Time) db.HabitLog {
	return db.HabitLog{CompletedAt: day}
}

func TestComputeStreakEmptyHistory(t *testing.T) {
	today := time.Date(2025, 6, 10, 9, 30, 0, 0, time.UTC)

	walk := ComputeStreak(nil, today)
	if walk.Streak != 0 {
		t.Fatalf("expected streak 0, got %d", walk.Streak)
	}
	if !walk.IsRecovery {
		t.Fatal("expected empty history to be a recovery completion")
	}
}

func TestComputeStreakConsecutiveDays(t *testing.T) {
	today := time.Date(2025, 6, 10, 9, 30, 0, 0, time.UTC)
	logs := []db.HabitLog{
		logOn(today),
		logOn(today.AddDate(0, 0, -1)),
		logOn(today.AddDate(0, 0, -2)),
	}

	walk := ComputeStreak(logs, today)
	if walk.Streak != 3 {
		t.Fatalf("expected streak 3, got %d", walk.Streak)
	}
	if walk.IsRecovery {
		t.Fatal("did not expect recovery with yesterday logged")
	}
}

func TestComputeStreakGraceDay(t *testing.T) {
	// 昨天缺卡：前天的记录恰好早于期望日一天，宽限日仍计入连胜
	today := time.Date(2025, 6, 10, 22, 0, 0, 0, time.UTC)
	logs := []db.HabitLog{
		logOn(today),
		logOn(today.AddDate(0, 0, -2)),
	}

	walk := ComputeStreak(logs, today)
	if walk.Streak != 2 {
		t.Fatalf("expected streak 2 with grace day, got %d", walk.Streak)
	}
}

func TestComputeStreakLargerGapBreaks(t *testing.T) {
	today := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	logs := []db.HabitLog{
		logOn(today),
		logOn(today.AddDate(0, 0, -3)),
	}

	walk := ComputeStreak(logs, today)
	if walk.Streak != 1 {
		t.Fatalf("expected streak 1, got %d", walk.Streak)
	}
}

func TestComputeStreakHistoryWithGraceThenBreak(t *testing.T) {
	// 当次打卡在 today，历史只有 {today-1, today-3}：
	// today-1 经宽限计入后，today-3 相对期望日差两天，推演终止。
	// 调用方为当次打卡 +1 后，连胜应为 2。
	today := time.Date(2025, 6, 10, 7, 15, 0, 0, time.UTC)
	history := []db.HabitLog{
		logOn(today.AddDate(0, 0, -1)),
		logOn(today.AddDate(0, 0, -3)),
	}

	walk := ComputeStreak(history, today)
	if walk.Streak != 1 {
		t.Fatalf("expected walk of 1 over history, got %d", walk.Streak)
	}
	if got := walk.Streak + 1; got != 2 {
		t.Fatalf("expected current streak 2 including today, got %d", got)
	}
	if walk.IsRecovery {
		t.Fatal("yesterday is logged, completion is not a recovery")
	}
}

func TestComputeStreakDuplicateSameDay(t *testing.T) {
	today := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	logs := []db.HabitLog{
		logOn(today),
		logOn(today.Add(-2 * time.Hour)),
	}

	walk := ComputeStreak(logs, today)
	if walk.Streak != 1 {
		t.Fatalf("expected duplicate same-day logs to count once, got %d", walk.Streak)
	}
}

func TestComputeStreakRecoveryFlag(t *testing.T) {
	today := time.Date(2025, 6, 10, 18, 0, 0, 0, time.UTC)
	logs := []db.HabitLog{
		logOn(today.AddDate(0, 0, -2)),
		logOn(today.AddDate(0, 0, -3)),
	}

	walk := ComputeStreak(logs, today)
	if !walk.IsRecovery {
		t.Fatal("expected recovery when yesterday has no log")
	}
}
