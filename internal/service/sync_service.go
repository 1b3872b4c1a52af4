package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/habitforge/internal/db"
	"gorm.io/gorm"
)

// 同步协议识别的表名与动作
const (
	TableHabits    = "habits"
	TableHabitLogs = "habit_logs"

	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

var (
	// ErrUnsupportedTable 在变更指向未知表时返回，只影响该条变更
	ErrUnsupportedTable = errors.New("unsupported sync table")
	// ErrInvalidChange 表示变更载荷畸形或缺少必填字段
	ErrInvalidChange = errors.New("invalid sync change")
	// ErrSyncHabitNotFound 在变更指向不存在或不属于当前用户的习惯时返回
	ErrSyncHabitNotFound = errors.New("habit not found")
)

// SyncChange 是客户端推送的最小工作单元，只存在于 wire 层，不落库
// UpdatedAt 是客户端本地看到的记录时间快照，用于冲突判定
type SyncChange struct {
	Table         string          `json:"table"`
	RecordID      string          `json:"recordId"`
	Action        string          `json:"action"`
	Data          json.RawMessage `json:"data"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	ClientVersion int             `json:"clientVersion,omitempty"`
}

// PullResult 是一次增量拉取的响应；Timestamp 即客户端的下一个水位
type PullResult struct {
	Habits        []db.Habit        `json:"habits"`
	HabitLogs     []db.HabitLog     `json:"habitLogs"`
	Streaks       []db.Streak       `json:"streaks"`
	Notifications []db.Notification `json:"notifications"`
	Timestamp     time.Time         `json:"timestamp"`
}

// PushResult 汇总一个批次的应用结果
type PushResult struct {
	Applied   []string             `json:"applied"`
	Conflicts []ConflictResolution `json:"conflicts"`
	Timestamp time.Time            `json:"timestamp"`
}

// SyncService 对边界层暴露 pull/push 两个操作，自身不持有请求外状态。
// 每条变更的应用在独立事务中执行；批次内互不影响（isolate-and-continue）。
type SyncService struct {
	db       *gorm.DB
	resolver *ConflictResolver
	streaks  *StreakService
	now      func() time.Time
}

// NewSyncService 构造 SyncService
func NewSyncService(gdb *gorm.DB) *SyncService {
	return &SyncService{
		db:       gdb,
		resolver: NewConflictResolver(),
		streaks:  NewStreakService(gdb),
		now:      time.Now,
	}
}

// Pull 计算 since 水位之后发生变化的全部实体增量。
// since 为 nil 表示从纪元开始全量重同步。水位时间必须在发起读取之前
// 捕获，避免漏掉读取与响应之间提交的变更。过滤是严格大于，
// 边界记录不会被重复下发。无副作用，可安全重试。
func (s *SyncService) Pull(userID uint, since *time.Time) (*PullResult, error) {
	watermark := time.Unix(0, 0).UTC()
	if since != nil {
		watermark = *since
	}

	// 先取响应时间戳，再执行四段增量读取
	timestamp := s.now()

	result := &PullResult{
		Habits:        []db.Habit{},
		HabitLogs:     []db.HabitLog{},
		Streaks:       []db.Streak{},
		Notifications: []db.Notification{},
		Timestamp:     timestamp,
	}

	if err := s.db.Where("user_id = ? AND updated_at > ?", userID, watermark).
		Find(&result.Habits).Error; err != nil {
		return nil, fmt.Errorf("pull habits: %w", err)
	}
	if err := s.db.Where("user_id = ? AND updated_at > ?", userID, watermark).
		Find(&result.HabitLogs).Error; err != nil {
		return nil, fmt.Errorf("pull habit logs: %w", err)
	}
	if err := s.db.Where("user_id = ? AND updated_at > ?", userID, watermark).
		Find(&result.Streaks).Error; err != nil {
		return nil, fmt.Errorf("pull streaks: %w", err)
	}
	if err := s.db.Where("user_id = ? AND updated_at > ?", userID, watermark).
		Find(&result.Notifications).Error; err != nil {
		return nil, fmt.Errorf("pull notifications: %w", err)
	}

	return result, nil
}

// Push 按给定顺序逐条应用客户端变更。
// 单条失败不会中止批次：失败的变更记日志后跳过，既不进 applied
// 也不算冲突；冲突是正常的、会上报的结果而非错误。
func (s *SyncService) Push(userID uint, changes []SyncChange) (*PushResult, error) {
	result := &PushResult{
		Applied:   []string{},
		Conflicts: []ConflictResolution{},
	}

	for _, change := range changes {
		conflict, err := s.applyChange(userID, change)
		if err != nil {
			log.Printf("[SYNC] apply %s/%s (%s) failed: %v", change.Table, change.RecordID, change.Action, err)
			continue
		}

		if conflict != nil {
			result.Conflicts = append(result.Conflicts, *conflict)
			s.recordConflict(userID, conflict)
			continue
		}

		result.Applied = append(result.Applied, change.RecordID)
	}

	result.Timestamp = s.now()
	return result, nil
}

// applyChange 按表分发一条变更
func (s *SyncService) applyChange(userID uint, change SyncChange) (*ConflictResolution, error) {
	if change.RecordID == "" {
		return nil, fmt.Errorf("%w: missing record id", ErrInvalidChange)
	}

	switch change.Table {
	case TableHabits:
		return s.applyHabitChange(userID, change)
	case TableHabitLogs:
		return s.applyHabitLogChange(userID, change)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedTable, change.Table)
	}
}

// applyHabitChange 在单个事务内完成“检查-裁决-写入”，
// 避免存在性/新旧判断与写入之间被并发设备插队。
func (s *SyncService) applyHabitChange(userID uint, change SyncChange) (*ConflictResolution, error) {
	var payload HabitChangePayload
	if change.Action != ActionDelete {
		if err := json.Unmarshal(change.Data, &payload); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidChange, err)
		}
	}

	var conflict *ConflictResolution
	err := s.db.Transaction(func(tx *gorm.DB) error {
		switch change.Action {
		case ActionCreate:
			var existing db.Habit
			err := tx.Where("id = ? AND user_id = ?", change.RecordID, userID).First(&existing).Error
			if err == nil {
				// 客户端以为是新建，服务端已存在：服务端权威，原样返回
				conflict = s.resolver.ResolveHabitCreate(existing, payload)
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("check habit: %w", err)
			}
			return s.insertHabit(tx, userID, change.RecordID, payload)

		case ActionUpdate:
			var existing db.Habit
			err := tx.Where("id = ? AND user_id = ?", change.RecordID, userID).First(&existing).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// 服务端没有这条记录，按创建处理：防御客户端丢失 create 回执后的重试
				return s.insertHabit(tx, userID, change.RecordID, payload)
			}
			if err != nil {
				return fmt.Errorf("check habit: %w", err)
			}

			resolved, resolution := s.resolver.ResolveHabitUpdate(existing, payload, change.UpdatedAt)
			if err := tx.Save(&resolved).Error; err != nil {
				return fmt.Errorf("save habit: %w", err)
			}
			conflict = resolution
			return nil

		case ActionDelete:
			// 无墓碑的硬删除；删除不存在的记录按单条失败处理
			res := tx.Where("id = ? AND user_id = ?", change.RecordID, userID).Delete(&db.Habit{})
			if res.Error != nil {
				return fmt.Errorf("delete habit: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return ErrSyncHabitNotFound
			}
			return nil

		default:
			return fmt.Errorf("%w: action %s", ErrInvalidChange, change.Action)
		}
	})
	if err != nil {
		return nil, err
	}
	return conflict, nil
}

// insertHabit 以客户端 ID 落库，并盖上调用方的用户 ID
func (s *SyncService) insertHabit(tx *gorm.DB, userID uint, recordID string, payload HabitChangePayload) error {
	habit := db.Habit{
		ID:                recordID,
		UserID:            userID,
		Frequency:         "daily",
		Status:            "active",
		CurrentDifficulty: defaultDifficulty,
		BaseDifficulty:    defaultDifficulty,
	}
	applyHabitPayload(&habit, payload)

	if err := tx.Create(&habit).Error; err != nil {
		return fmt.Errorf("create habit: %w", err)
	}
	return nil
}

// applyHabitLogChange 处理只追加的打卡日志：
// create 以 ID 幂等，已存在即静默 no-op（仍计入 applied，让客户端停止重试）；
// update/delete 一律忽略，保护 StreakCalculator 依赖的审计链。
func (s *SyncService) applyHabitLogChange(userID uint, change SyncChange) (*ConflictResolution, error) {
	if change.Action != ActionCreate {
		return nil, nil
	}

	var payload HabitLogChangePayload
	if err := json.Unmarshal(change.Data, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidChange, err)
	}
	if payload.HabitID == "" || payload.CompletedAt.IsZero() {
		return nil, fmt.Errorf("%w: habit log requires habitId and completedAt", ErrInvalidChange)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		// 打卡只能落在推送者自己的习惯上，越权或不存在都按单条失败处理
		var habit db.Habit
		if err := tx.Where("id = ? AND user_id = ?", payload.HabitID, userID).First(&habit).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSyncHabitNotFound
			}
			return fmt.Errorf("check habit: %w", err)
		}

		var existing db.HabitLog
		err := tx.Where("id = ?", change.RecordID).First(&existing).Error
		if err == nil {
			// 幂等命中：同一 ID 的日志已存在，不做任何改动
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("check habit log: %w", err)
		}

		entry := db.HabitLog{
			ID:                     change.RecordID,
			HabitID:                payload.HabitID,
			UserID:                 userID,
			CompletedAt:            payload.CompletedAt,
			DifficultyAtCompletion: payload.DifficultyAtCompletion,
			EnergyLevel:            payload.EnergyLevel,
			TimeAvailable:          payload.TimeAvailable,
			DayType:                payload.DayType,
			FeltTooEasy:            payload.FeltTooEasy,
			FeltTooHard:            payload.FeltTooHard,
			Notes:                  sanitizeUserText(payload.Notes),
			Synced:                 true,
			ClientCreatedAt:        payload.ClientCreatedAt,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("create habit log: %w", err)
		}

		// 连胜重算与日志插入同一事务提交，两者要么都生效要么都不生效
		if _, _, err := s.streaks.Recalculate(tx, payload.HabitID, userID, entry.ID, payload.CompletedAt); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return nil, nil
}

// recordConflict 把裁决快照落入审计表；失败只记日志，不影响响应
func (s *SyncService) recordConflict(userID uint, resolution *ConflictResolution) {
	audit := db.ConflictAudit{
		UserID:     userID,
		RecordID:   resolution.RecordID,
		TableName:  resolution.Table,
		Strategy:   resolution.Strategy,
		ServerData: marshalAuditData(resolution.ServerData),
		ClientData: marshalAuditData(resolution.ClientData),
		MergedData: marshalAuditData(resolution.MergedData),
	}

	if err := s.db.Create(&audit).Error; err != nil {
		log.Printf("[SYNC] record conflict audit for %s failed: %v", resolution.RecordID, err)
	}
}

func marshalAuditData(data interface{}) string {
	if data == nil {
		return ""
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return ""
	}
	return string(raw)
}

// ListConflicts 返回最近的冲突审计记录，供客户端展示与人工复核
func (s *SyncService) ListConflicts(userID uint, limit int) ([]db.ConflictAudit, error) {
	if limit <= 0 {
		limit = 50
	}

	var audits []db.ConflictAudit
	if err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&audits).Error; err != nil {
		return nil, fmt.Errorf("list conflicts: %w", err)
	}
	return audits, nil
}

// ResolveConflict 记录用户对某条冲突的人工选择
func (s *SyncService) ResolveConflict(userID uint, recordID, resolution string) error {
	var strategy string
	switch resolution {
	case "accept_server":
		strategy = StrategyServerWins
	case "accept_client":
		strategy = StrategyClientWins
	case "accept_merged":
		strategy = StrategyMerged
	default:
		return fmt.Errorf("%w: resolution %s", ErrInvalidChange, resolution)
	}

	if err := s.db.Model(&db.ConflictAudit{}).
		Where("user_id = ? AND record_id = ?", userID, recordID).
		Update("resolution", strategy).Error; err != nil {
		return fmt.Errorf("resolve conflict: %w", err)
	}
	return nil
}
