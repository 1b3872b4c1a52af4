package db

import "time"

// ConflictAudit 持久化一次冲突裁决的快照，便于事后审计与人工复核
// ServerData/ClientData/MergedData 存 JSON 文本；Resolution 记录用户
// 之后的人工选择（为空表示尚未复核）
type ConflictAudit struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"index" json:"userId"`
	RecordID   string    `gorm:"index;size:36" json:"recordId"`
	TableName  string    `json:"table"`
	Strategy   string    `json:"strategy"` // server_wins/client_wins/merged
	ServerData string    `json:"serverData"`
	ClientData string    `json:"clientData"`
	MergedData string    `json:"mergedData"`
	Resolution string    `json:"resolution"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
