package pipeline

import (
	"fmt"

	"github.com/khanglvm/tool-router/internal/selection"
	"github.com/khanglvm/tool-router/internal/session"
)

// Tier is a bucketed confidence label.
type Tier string

// Confidence tiers, highest first.
const (
	TierVeryHigh Tier = "VERY_HIGH"
	TierHigh     Tier = "HIGH"
	TierMedium   Tier = "MEDIUM"
	TierLow      Tier = "LOW"
	TierFallback Tier = "FALLBACK"
)

// Tier thresholds; a score must exceed the threshold to reach the tier.
const (
	VeryHighThreshold = 0.85
	HighThreshold     = 0.7
	MediumThreshold   = 0.5
	LowThreshold      = 0.3
)

// Enhanced-score boosts.
const (
	ReferenceBoost     = 0.10
	MultiStepBoost     = 0.05
	PreferredToolBoost = 0.15
	SuccessStreakBoost = 0.10

	// SuccessWindow recent operations must contain SuccessThreshold
	// successes for the streak boost.
	SuccessWindow    = 5
	SuccessThreshold = 3
)

// Strategy is how a turn is executed.
type Strategy string

// Execution strategies.
const (
	// StrategyDirect runs the plan without the model.
	StrategyDirect Strategy = "direct"
	// StrategyDirectThenModel runs the plan and asks the model only if it fails.
	StrategyDirectThenModel Strategy = "direct_then_model"
	// StrategyModel hands the turn to the model with the plan as advice.
	StrategyModel Strategy = "model"
)

// TierFor buckets an enhanced score.
func TierFor(score float64) Tier {
	switch {
	case score > VeryHighThreshold:
		return TierVeryHigh
	case score > HighThreshold:
		return TierHigh
	case score > MediumThreshold:
		return TierMedium
	case score > LowThreshold:
		return TierLow
	default:
		return TierFallback
	}
}

// StrategyFor maps a tier to its execution strategy.
func StrategyFor(t Tier) Strategy {
	switch t {
	case TierVeryHigh, TierHigh:
		return StrategyDirect
	case TierMedium:
		return StrategyDirectThenModel
	default:
		return StrategyModel
	}
}

// EnhancedScore adds the independent context boosts to the plan's
// confidence. The raw sum decides the tier; it may exceed 1.
func EnhancedScore(plan selection.Plan, bundle session.ContextBundle, recentSuccesses int) (float64, []string) {
	score := plan.Confidence
	var boosts []string

	add := func(v float64, why string) {
		score += v
		boosts = append(boosts, fmt.Sprintf("+%.2f %s", v, why))
	}

	if bundle.Signals.ReferencesPrevious {
		add(ReferenceBoost, "prior reference")
	}
	if plan.MultiStep {
		add(MultiStepBoost, "multi-step plan")
	}
	if plan.HasTool() && bundle.PrefersTool(plan.Tool) {
		add(PreferredToolBoost, "preferred tool "+plan.Tool)
	}
	if recentSuccesses >= SuccessThreshold {
		add(SuccessStreakBoost, fmt.Sprintf("%d of last %d operations succeeded", recentSuccesses, SuccessWindow))
	}
	return score, boosts
}
