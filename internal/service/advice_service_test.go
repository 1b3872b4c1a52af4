package service

import (
	"testing"

	"github.com/habitforge/internal/db"
)

func TestRuleAdvisorSuggestsIncrease(t *testing.T) {
	advisor := NewRuleAdvisor()

	advice := advisor.Evaluate(db.Habit{ID: "h1"}, CompletionContext{
		Streak:         db.Streak{CurrentStreak: 7, LongestStreak: 7},
		CompletionRate: 0.9,
	})

	if !advice.ShouldAdjustDifficulty {
		t.Fatal("expected difficulty increase suggestion")
	}
	if advice.SuggestedAdjustment != 1 {
		t.Fatalf("expected +1 adjustment, got %d", advice.SuggestedAdjustment)
	}
}

func TestRuleAdvisorNeverIncreasesOnRecovery(t *testing.T) {
	advisor := NewRuleAdvisor()

	advice := advisor.Evaluate(db.Habit{ID: "h1"}, CompletionContext{
		Streak:         db.Streak{CurrentStreak: 12, LongestStreak: 12},
		CompletionRate: 1.0,
		IsRecovery:     true,
	})

	if advice.ShouldAdjustDifficulty {
		t.Fatal("recovery completion must never grant a difficulty increase")
	}
	if advice.Message == "" {
		t.Fatal("expected an encouragement message")
	}
}

func TestRuleAdvisorRequiresMinimumStreak(t *testing.T) {
	advisor := NewRuleAdvisor()

	advice := advisor.Evaluate(db.Habit{ID: "h1"}, CompletionContext{
		Streak:         db.Streak{CurrentStreak: 6, LongestStreak: 10},
		CompletionRate: 1.0,
	})

	if advice.ShouldAdjustDifficulty {
		t.Fatal("streak below 7 must not grant an increase")
	}
}

func TestRuleAdvisorRespectsLockedDifficulty(t *testing.T) {
	advisor := NewRuleAdvisor()

	advice := advisor.Evaluate(db.Habit{ID: "h1", LockedDifficulty: true}, CompletionContext{
		Streak:         db.Streak{CurrentStreak: 30, LongestStreak: 30},
		CompletionRate: 1.0,
	})

	if advice.ShouldAdjustDifficulty {
		t.Fatal("locked difficulty must never be adjusted")
	}
}
