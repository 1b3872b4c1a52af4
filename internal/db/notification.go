package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification 是等待下发给客户端的提醒/鼓励消息
// 调度本身由外部 worker 完成，这里只负责随 pull 增量同步给设备
type Notification struct {
	ID           string     `gorm:"primaryKey;size:36" json:"id"`
	UserID       uint       `gorm:"index" json:"userId"`
	HabitID      string     `gorm:"index;size:36" json:"habitId"`
	Type         string     `json:"type"` // reminder/encouragement/streak
	Message      string     `json:"message"`
	ScheduledFor time.Time  `json:"scheduledFor"`
	SentAt       *time.Time `json:"sentAt"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `gorm:"index" json:"updatedAt"`
}

// BeforeCreate 生成主键 UUID
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}
