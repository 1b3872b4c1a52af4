package service

import (
	"testing"
	"time"

	"github.com/habitforge/internal/db"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
func boolPtr(b bool) *bool    { return &b }

func fixedResolver(now time.Time) *ConflictResolver {
	return &ConflictResolver{now: func() time.Time { return now }}
}

func TestMergeHabitDataFieldPartition(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	resolver := fixedResolver(now)

	server := db.Habit{
		ID:                "h1",
		Title:             "Old",
		CurrentDifficulty: 5,
		MicroSteps:        []string{"step one"},
		AIRationale:       "server rationale",
		UpdatedAt:         now.Add(-time.Hour),
	}
	client := HabitChangePayload{
		Title:             strPtr("New"),
		CurrentDifficulty: intPtr(9),
		AIRationale:       strPtr("stale client rationale"),
	}

	merged := resolver.MergeHabitData(server, client)

	// 用户可编辑字段以客户端为准
	if merged.Title != "New" {
		t.Fatalf("expected client title to win, got %q", merged.Title)
	}
	// AI 管理字段一律以服务端为准
	if merged.CurrentDifficulty != 5 {
		t.Fatalf("expected server difficulty 5, got %d", merged.CurrentDifficulty)
	}
	if merged.AIRationale != "server rationale" {
		t.Fatalf("expected server rationale, got %q", merged.AIRationale)
	}
	if len(merged.MicroSteps) != 1 || merged.MicroSteps[0] != "step one" {
		t.Fatalf("expected server micro steps preserved, got %v", merged.MicroSteps)
	}
	// 合并记录的 updatedAt 盖章为裁决时间
	if !merged.UpdatedAt.Equal(now) {
		t.Fatalf("expected merge timestamp %v, got %v", now, merged.UpdatedAt)
	}
}

func TestMergeHabitDataAbsentFieldsFallBackToServer(t *testing.T) {
	resolver := fixedResolver(time.Now())

	server := db.Habit{
		ID:          "h1",
		Title:       "读书",
		Description: "每天半小时",
		Status:      "active",
	}

	merged := resolver.MergeHabitData(server, HabitChangePayload{Status: strPtr("paused")})

	if merged.Title != "读书" || merged.Description != "每天半小时" {
		t.Fatalf("expected untouched fields to keep server values, got %q/%q", merged.Title, merged.Description)
	}
	if merged.Status != "paused" {
		t.Fatalf("expected client status to win, got %q", merged.Status)
	}
}

func TestResolveHabitUpdateServerNewerReportsMerged(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	resolver := fixedResolver(now)

	server := db.Habit{ID: "h1", Title: "Old", CurrentDifficulty: 5, UpdatedAt: now.Add(-time.Minute)}
	client := HabitChangePayload{Title: strPtr("New")}

	resolved, resolution := resolver.ResolveHabitUpdate(server, client, now.Add(-time.Hour))

	if resolution == nil {
		t.Fatal("expected a merged resolution when server is newer")
	}
	if resolution.Strategy != StrategyMerged {
		t.Fatalf("expected strategy merged, got %s", resolution.Strategy)
	}
	if resolved.Title != "New" || resolved.CurrentDifficulty != 5 {
		t.Fatalf("unexpected merge output: %+v", resolved)
	}
}

func TestResolveHabitUpdateClientAtLeastAsFresh(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	resolver := fixedResolver(now)

	server := db.Habit{ID: "h1", Title: "Old", UpdatedAt: now.Add(-time.Hour)}
	client := HabitChangePayload{Title: strPtr("New"), CurrentDifficulty: intPtr(7)}

	resolved, resolution := resolver.ResolveHabitUpdate(server, client, now)

	if resolution != nil {
		t.Fatalf("client-wins path must not report a conflict, got %+v", resolution)
	}
	if resolved.Title != "New" || resolved.CurrentDifficulty != 7 {
		t.Fatalf("expected client payload applied verbatim, got %+v", resolved)
	}
}

func TestApplyHabitPayloadRespectsLockedDifficulty(t *testing.T) {
	habit := db.Habit{ID: "h1", CurrentDifficulty: 4, LockedDifficulty: true}

	applyHabitPayload(&habit, HabitChangePayload{CurrentDifficulty: intPtr(9)})

	if habit.CurrentDifficulty != 4 {
		t.Fatalf("locked habit must keep its difficulty, got %d", habit.CurrentDifficulty)
	}
}

func TestApplyHabitPayloadStripsHTML(t *testing.T) {
	habit := db.Habit{ID: "h1"}

	applyHabitPayload(&habit, HabitChangePayload{
		Title:            strPtr("<b>晨跑</b> "),
		LockedDifficulty: boolPtr(false),
	})

	if habit.Title != "晨跑" {
		t.Fatalf("expected sanitized title, got %q", habit.Title)
	}
}
