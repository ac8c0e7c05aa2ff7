package pipeline

import (
	"go.uber.org/zap"

	"github.com/khanglvm/tool-router/internal/budget"
	"github.com/khanglvm/tool-router/internal/intent"
	"github.com/khanglvm/tool-router/internal/registry"
	"github.com/khanglvm/tool-router/internal/selection"
	"github.com/khanglvm/tool-router/internal/session"
)

// Decision is the structured outcome of Decide.
type Decision struct {
	ID      string                `json:"id"`
	Text    string                `json:"text"`
	Intent  intent.Result         `json:"intent"`
	Context session.ContextBundle `json:"context"`
	Plan    selection.Plan        `json:"plan"`

	// Score is the raw enhanced score; Confidence is Score clamped to [0,1].
	Score      float64  `json:"score"`
	Confidence float64  `json:"confidence"`
	Boosts     []string `json:"boosts,omitempty"`
	Tier       Tier     `json:"tier"`
	Strategy   Strategy `json:"strategy"`

	// MissingArgs lists required "tool.param" arguments the text did not supply.
	MissingArgs []string `json:"missingArgs,omitempty"`
	// Handoff explains why a direct tier was sent to the model.
	Handoff string `json:"handoff,omitempty"`

	Complexity budget.Complexity `json:"complexity"`
	Budget     budget.Allocation `json:"budget"`
}

// Decide classifies text, plans tools and picks a strategy. It does not
// execute anything or touch the session. The error is non-nil only in
// strict mode, for ambiguous or malformed input.
func (p *Pipeline) Decide(text string) (Decision, error) {
	d := Decision{ID: newDecisionID(), Text: text}

	refined, err := p.refiner.Refine(text)
	d.Intent = refined.Result
	d.Context = refined.Context
	if err != nil {
		d.Tier = TierFallback
		d.Strategy = StrategyModel
		return d, err
	}

	d.Plan = p.planner.Plan(text, refined.Result, refined.Context)
	d.Score, d.Boosts = EnhancedScore(d.Plan, refined.Context, p.store.RecentSuccessCount(SuccessWindow))
	d.Confidence = clamp01(d.Score)
	d.Tier = TierFor(d.Score)
	d.Strategy = StrategyFor(d.Tier)
	d.MissingArgs = p.missingArgs(d.Plan)

	if d.Strategy != StrategyModel {
		switch {
		case !d.Plan.HasTool():
			d.Strategy = StrategyModel
			d.Handoff = "no tool for " + string(d.Intent.Intent)
		case len(d.MissingArgs) > 0:
			d.Strategy = StrategyModel
			d.Handoff = "missing arguments the model must supply"
		}
	}

	d.Complexity, d.Budget = p.Budget(text, budget.ModeTools)

	p.logger.Debug("decided",
		zap.String("intent", string(d.Intent.Intent)),
		zap.String("tool", d.Plan.Tool),
		zap.Float64("score", d.Score),
		zap.String("tier", string(d.Tier)),
		zap.String("strategy", string(d.Strategy)))
	return d, nil
}

// missingArgs checks every plan step against its tool's required params.
func (p *Pipeline) missingArgs(plan selection.Plan) []string {
	var missing []string
	for _, step := range plan.Steps {
		tool, ok := p.registry.Get(step.Tool)
		if !ok {
			continue
		}
		for _, name := range registry.MissingRequired(tool, step.Params) {
			missing = append(missing, step.Tool+"."+name)
		}
	}
	return missing
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
