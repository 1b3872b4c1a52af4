package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Habit 定义了习惯模型
// ID 允许客户端预先生成（UUID），这是跨设备同步与幂等创建的前提；
// 服务端在未提供时兜底生成。
// CurrentDifficulty/MicroSteps/AIRationale 由 AI 顾问维护，
// LockedDifficulty 为 true 时同步与顾问都不得改动难度。
// UpdatedAt 只由服务端在写入时盖章，客户端永远不能直接指定。
type Habit struct {
	ID                string     `gorm:"primaryKey;size:36" json:"id"`
	UserID            uint       `gorm:"index" json:"userId"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	Category          string     `json:"category"`
	Frequency         string     `gorm:"default:daily" json:"frequency"` // daily/weekly/custom
	TargetDays        []int      `gorm:"serializer:json" json:"targetDays"`
	TimeOfDay         string     `json:"timeOfDay"` // morning/afternoon/evening/anytime
	Status            string     `gorm:"default:active" json:"status"` // active/paused/archived
	CurrentDifficulty int        `json:"currentDifficulty"`            // 1-10
	BaseDifficulty    int        `json:"baseDifficulty"`
	LockedDifficulty  bool       `json:"lockedDifficulty"`
	MicroSteps        []string   `gorm:"serializer:json" json:"microSteps"`
	AIRationale       string     `json:"aiRationale"`
	LastCompletedAt   *time.Time `json:"lastCompletedAt"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `gorm:"index" json:"updatedAt"`
}

// BeforeCreate 在客户端未携带 ID 时生成服务端 UUID
func (h *Habit) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	return nil
}

// HabitLog 记录习惯打卡日志，只追加、不修改、不删除
// ID 由客户端生成并作为幂等键：同一 ID 的重复创建是静默 no-op
// DifficultyAtCompletion 是打卡时刻的难度快照，创建后不可变
type HabitLog struct {
	ID                     string     `gorm:"primaryKey;size:36" json:"id"`
	HabitID                string     `gorm:"index;size:36" json:"habitId"`
	UserID                 uint       `gorm:"index" json:"userId"`
	CompletedAt            time.Time  `gorm:"index" json:"completedAt"`
	DifficultyAtCompletion int        `json:"difficultyAtCompletion"`
	EnergyLevel            *int       `json:"energyLevel"`
	TimeAvailable          *int       `json:"timeAvailable"`
	DayType                string     `json:"dayType"`
	FeltTooEasy            bool       `json:"feltTooEasy"`
	FeltTooHard            bool       `json:"feltTooHard"`
	Notes                  string     `json:"notes"`
	Synced                 bool       `json:"synced"`
	ClientCreatedAt        *time.Time `json:"clientCreatedAt"`
	CreatedAt              time.Time  `json:"createdAt"`
	UpdatedAt              time.Time  `gorm:"index" json:"updatedAt"`
}

// TableName 与同步协议中的表名保持一致
func (HabitLog) TableName() string {
	return "habit_logs"
}

// BeforeCreate 兜底生成日志 ID（正常路径下客户端已生成）
func (l *HabitLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}
