package service

import (
	"fmt"

	"github.com/habitforge/internal/db"
)

// DifficultyAdvice 是顾问组件产出的不透明决策载荷，随打卡响应返回。
// 它只是建议：真正改动难度要走独立的调整流程，这里绝不落库。
type DifficultyAdvice struct {
	Message                string `json:"message"`
	ShouldAdjustDifficulty bool   `json:"should_adjust_difficulty"`
	SuggestedAdjustment    int    `json:"suggested_adjustment,omitempty"`
}

// CompletionContext 汇总一次打卡的顾问输入
type CompletionContext struct {
	Streak         db.Streak
	CompletionRate float64
	IsRecovery     bool
}

// DifficultyAdvisor 定义难度建议能力，便于在业务层注入不同实现。
type DifficultyAdvisor interface {
	Evaluate(habit db.Habit, ctx CompletionContext) DifficultyAdvice
}

// 难度上调的准入门槛：连胜不足或回归打卡时永远不给上调
const (
	adviceMinStreak         = 7
	adviceMinCompletionRate = 0.85
)

// RuleAdvisor 是基于规则的默认顾问实现
type RuleAdvisor struct{}

// NewRuleAdvisor 构造 RuleAdvisor
func NewRuleAdvisor() *RuleAdvisor {
	return &RuleAdvisor{}
}

// Evaluate 产出打卡反馈：
// 连胜 >= 7 且完成率 > 0.85 且不是回归打卡、难度未锁定时建议 +1；
// 回归打卡给鼓励文案；其余给常规进度文案。
func (a *RuleAdvisor) Evaluate(habit db.Habit, ctx CompletionContext) DifficultyAdvice {
	if ctx.IsRecovery {
		return DifficultyAdvice{
			Message: "Welcome back! Every restart is a step forward.",
		}
	}

	if !habit.LockedDifficulty &&
		ctx.Streak.CurrentStreak >= adviceMinStreak &&
		ctx.CompletionRate > adviceMinCompletionRate {
		return DifficultyAdvice{
			Message:                "Great job maintaining your streak! You're building real momentum.",
			ShouldAdjustDifficulty: true,
			SuggestedAdjustment:    1,
		}
	}

	return DifficultyAdvice{
		Message: fmt.Sprintf("Day %d complete! Keep going.", ctx.Streak.CurrentStreak),
	}
}
