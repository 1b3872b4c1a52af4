package service

import (
	"time"

	"github.com/habitforge/internal/db"
)

// 冲突裁决策略常量，与同步协议的 wire 取值保持一致
const (
	StrategyServerWins = "server_wins"
	StrategyClientWins = "client_wins"
	StrategyMerged     = "merged"
)

// ConflictResolution 描述一次冲突的裁决结果，随 push 响应返回给客户端
type ConflictResolution struct {
	RecordID   string      `json:"recordId"`
	Table      string      `json:"table"`
	Strategy   string      `json:"strategy"`
	ServerData interface{} `json:"serverData"`
	ClientData interface{} `json:"clientData"`
	MergedData interface{} `json:"mergedData,omitempty"`
}

// HabitChangePayload 是 habits 表变更的类型化载荷。
// 指针字段用于区分“客户端提供了该字段”与“客户端未提及”，
// 字段级合并依赖这一语义。
type HabitChangePayload struct {
	Title             *string    `json:"title"`
	Description       *string    `json:"description"`
	Category          *string    `json:"category"`
	Frequency         *string    `json:"frequency"`
	TargetDays        *[]int     `json:"targetDays"`
	TimeOfDay         *string    `json:"timeOfDay"`
	Status            *string    `json:"status"`
	LockedDifficulty  *bool      `json:"lockedDifficulty"`
	CurrentDifficulty *int       `json:"currentDifficulty"`
	BaseDifficulty    *int       `json:"baseDifficulty"`
	MicroSteps        *[]string  `json:"microSteps"`
	AIRationale       *string    `json:"aiRationale"`
	LastCompletedAt   *time.Time `json:"lastCompletedAt"`
}

// HabitLogChangePayload 是 habit_logs 表变更的类型化载荷
type HabitLogChangePayload struct {
	HabitID                string     `json:"habitId"`
	CompletedAt            time.Time  `json:"completedAt"`
	DifficultyAtCompletion int        `json:"difficultyAtCompletion"`
	EnergyLevel            *int       `json:"energyLevel"`
	TimeAvailable          *int       `json:"timeAvailable"`
	DayType                string     `json:"dayType"`
	FeltTooEasy            bool       `json:"feltTooEasy"`
	FeltTooHard            bool       `json:"feltTooHard"`
	Notes                  string     `json:"notes"`
	ClientCreatedAt        *time.Time `json:"clientCreatedAt"`
}

// ConflictResolver 按表裁决同步冲突：接受、合并或拒绝客户端变更。
// now 可注入，便于测试固定裁决时间。
type ConflictResolver struct {
	now func() time.Time
}

// NewConflictResolver 构造使用系统时钟的 ConflictResolver
func NewConflictResolver() *ConflictResolver {
	return &ConflictResolver{now: time.Now}
}

// ResolveHabitCreate 处理“客户端认为是新建、服务端已存在”的冲突。
// 服务端状态权威：已有记录保持原样返回，客户端需要重新 pull 后再决定。
func (r *ConflictResolver) ResolveHabitCreate(existing db.Habit, client HabitChangePayload) *ConflictResolution {
	return &ConflictResolution{
		RecordID:   existing.ID,
		Table:      TableHabits,
		Strategy:   StrategyServerWins,
		ServerData: existing,
		ClientData: client,
	}
}

// ResolveHabitUpdate 比较服务端 updatedAt 与客户端快照时间：
// 服务端更新则双方发生并发修改，走字段级合并并上报 merged；
// 否则客户端至少同样新，原样套用客户端载荷（client wins，不上报）。
func (r *ConflictResolver) ResolveHabitUpdate(server db.Habit, client HabitChangePayload, clientUpdatedAt time.Time) (db.Habit, *ConflictResolution) {
	if server.UpdatedAt.After(clientUpdatedAt) {
		merged := r.MergeHabitData(server, client)
		return merged, &ConflictResolution{
			RecordID:   server.ID,
			Table:      TableHabits,
			Strategy:   StrategyMerged,
			ServerData: server,
			ClientData: client,
			MergedData: merged,
		}
	}

	updated := server
	applyHabitPayload(&updated, client)
	updated.UpdatedAt = r.now()
	return updated, nil
}

// MergeHabitData 执行字段级合并：
// 用户可编辑字段以客户端为准（未提供时保留服务端值），
// AI 管理字段（难度、微步骤、理由）一律以服务端为准——离线客户端
// 不可能见过服务端最新的 AI 调整，它的副本对这些字段必然过期。
// 合并结果的 updatedAt 盖章为裁决时间，不从任何一方继承。
func (r *ConflictResolver) MergeHabitData(server db.Habit, client HabitChangePayload) db.Habit {
	merged := server

	if client.Title != nil {
		merged.Title = sanitizeUserText(*client.Title)
	}
	if client.Description != nil {
		merged.Description = sanitizeUserText(*client.Description)
	}
	if client.Category != nil {
		merged.Category = sanitizeUserText(*client.Category)
	}
	if client.Frequency != nil {
		merged.Frequency = *client.Frequency
	}
	if client.TargetDays != nil {
		merged.TargetDays = *client.TargetDays
	}
	if client.TimeOfDay != nil {
		merged.TimeOfDay = *client.TimeOfDay
	}
	if client.Status != nil {
		merged.Status = *client.Status
	}
	if client.LockedDifficulty != nil {
		merged.LockedDifficulty = *client.LockedDifficulty
	}

	// AI 管理字段保持服务端值：CurrentDifficulty/MicroSteps/AIRationale
	merged.CurrentDifficulty = server.CurrentDifficulty
	merged.MicroSteps = server.MicroSteps
	merged.AIRationale = server.AIRationale

	merged.UpdatedAt = r.now()
	return merged
}

// applyHabitPayload 将客户端载荷原样套用到记录上（client wins 路径）。
// 难度已锁定的习惯不接受同步对难度的改动。
func applyHabitPayload(habit *db.Habit, payload HabitChangePayload) {
	if payload.Title != nil {
		habit.Title = sanitizeUserText(*payload.Title)
	}
	if payload.Description != nil {
		habit.Description = sanitizeUserText(*payload.Description)
	}
	if payload.Category != nil {
		habit.Category = sanitizeUserText(*payload.Category)
	}
	if payload.Frequency != nil {
		habit.Frequency = *payload.Frequency
	}
	if payload.TargetDays != nil {
		habit.TargetDays = *payload.TargetDays
	}
	if payload.TimeOfDay != nil {
		habit.TimeOfDay = *payload.TimeOfDay
	}
	if payload.Status != nil {
		habit.Status = *payload.Status
	}
	if payload.LockedDifficulty != nil {
		habit.LockedDifficulty = *payload.LockedDifficulty
	}
	if payload.CurrentDifficulty != nil && !habit.LockedDifficulty {
		habit.CurrentDifficulty = *payload.CurrentDifficulty
	}
	if payload.BaseDifficulty != nil {
		habit.BaseDifficulty = *payload.BaseDifficulty
	}
	if payload.MicroSteps != nil {
		habit.MicroSteps = *payload.MicroSteps
	}
	if payload.AIRationale != nil {
		habit.AIRationale = *payload.AIRationale
	}
	if payload.LastCompletedAt != nil {
		habit.LastCompletedAt = payload.LastCompletedAt
	}
}
