package service

import (
	"math"
	"time"

	"github.com/habitforge/internal/db"
)

// StreakWalk 是对已落库打卡历史的一次连胜推演结果。
// Streak 只统计历史记录本身；刚插入的当次打卡由调用方 +1 计入。
// IsRecovery 表示历史中昨天没有打卡，即本次打卡属于中断后的回归。
type StreakWalk struct {
	Streak     int
	IsRecovery bool
}

// ComputeStreak 从最近一条记录开始逆序推演连胜。
// logs 需要按 completedAt 倒序排列，today 为当次打卡所在日（锚点）。
// 第 i 步的期望日期是 today 减去当前连胜天数；日期与期望完全一致时
// 连胜 +1；恰好早一天视作宽限日，同样计入连胜；更大的缺口终止推演。
func ComputeStreak(logs []db.HabitLog, today time.Time) StreakWalk {
	anchor := normalizeToDate(today)

	streak := 0
	for _, entry := range logs {
		logDate := normalizeToDate(entry.CompletedAt)
		expected := anchor.AddDate(0, 0, -streak)

		gap := daysBetween(logDate, expected)
		if gap == 0 || gap == 1 {
			streak++
			continue
		}
		break
	}

	return StreakWalk{
		Streak:     streak,
		IsRecovery: !hasLogOn(logs, anchor.AddDate(0, 0, -1)),
	}
}

// hasLogOn 判断历史中是否存在指定日期的打卡
func hasLogOn(logs []db.HabitLog, date time.Time) bool {
	target := normalizeToDate(date)
	for _, entry := range logs {
		if normalizeToDate(entry.CompletedAt).Equal(target) {
			return true
		}
	}
	return false
}

func normalizeToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// daysBetween 返回 later - earlier 的整日差，四舍五入以吸收夏令时偏差
func daysBetween(earlier, later time.Time) int {
	return int(math.Round(later.Sub(earlier).Hours() / 24))
}
