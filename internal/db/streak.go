package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Streak 是按习惯维度派生的连胜记录，每个习惯恰好一条
// CurrentStreak/LongestStreak 只由服务端重算，客户端不可手改；
// LongestStreak 永远不小于 CurrentStreak，且单调不减。
type Streak struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	HabitID       string    `gorm:"uniqueIndex;size:36" json:"habitId"`
	UserID        uint      `gorm:"index" json:"userId"`
	CurrentStreak int       `json:"currentStreak"`
	LongestStreak int       `json:"longestStreak"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `gorm:"index" json:"updatedAt"`
}

// BeforeCreate 生成主键 UUID
func (s *Streak) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
