package selection

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/khanglvm/tool-router/internal/intent"
	"github.com/khanglvm/tool-router/internal/session"
)

// Confidence adjustments applied by the planner.
const (
	MultiStepBoost  = 0.10
	PreferredBoost  = 0.15
	RecentToolBoost = 0.10
	ReferenceBoost  = 0.10
)

// Plan is the planner's decision: one tool, or an ordered sequence of steps.
type Plan struct {
	Intent     intent.Intent  `json:"intent"`
	Tool       string         `json:"tool,omitempty"`
	Confidence float64        `json:"confidence"`
	Source     Source         `json:"source"`
	Template   string         `json:"template,omitempty"`
	MultiStep  bool           `json:"multiStep"`
	Steps      []Step         `json:"steps,omitempty"`
	Target     string         `json:"target,omitempty"`
	Params     map[string]any `json:"params,omitempty"`
	Reasoning  []string       `json:"reasoning,omitempty"`
}

// HasTool reports whether the plan names at least one tool.
func (p Plan) HasTool() bool {
	return p.Tool != ""
}

func (p *Plan) reason(format string, args ...any) {
	p.Reasoning = append(p.Reasoning, fmt.Sprintf(format, args...))
}

// Planner refines the scorer's selection with session context.
type Planner struct {
	scorer *Scorer
	logger *zap.Logger
}

// NewPlanner wraps scorer. A nil scorer uses the default tables.
func NewPlanner(scorer *Scorer, logger *zap.Logger) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if scorer == nil {
		scorer = NewScorer(logger)
	}
	return &Planner{scorer: scorer, logger: logger}
}

// Plan produces a plan for text given the refined intent and its context.
// It never fails; on an internal error it falls back to the generic create
// tool at the incoming confidence.
func (p *Planner) Plan(text string, res intent.Result, bundle session.ContextBundle) (plan Plan) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn("Planning failed, using fallback tool", zap.Any("panic", r))
			plan = Plan{
				Intent:     res.Intent,
				Tool:       FallbackTool,
				Confidence: clamp01(res.Confidence),
				Source:     SourceFallback,
				Params:     map[string]any{},
				Reasoning:  []string{"planning failed"},
			}
			plan.Steps = []Step{{Tool: FallbackTool, Description: "Fallback"}}
		}
	}()

	sel := p.scorer.Select(res.Intent, text, res.Confidence)
	plan = Plan{
		Intent:     res.Intent,
		Tool:       sel.Tool,
		Confidence: sel.Confidence,
		Source:     sel.Source,
	}
	plan.reason("selected %q (%s)", sel.Tool, sel.Reason)

	if name, steps := DetectMultiStep(text, bundle); len(steps) > 0 {
		plan.Template = name
		plan.MultiStep = true
		plan.Steps = steps
		plan.Tool = steps[0].Tool
		plan.Source = SourceMultiStep
		plan.Confidence = clamp01(plan.Confidence + MultiStepBoost)
		plan.reason("multi-step template %s with %d steps", name, len(steps))
		plan.Confidence = p.fuse(&plan, bundle)
		plan.Params = steps[0].Params
		return plan
	}

	p.resolveFileReference(&plan, bundle)
	p.applyPreference(&plan, bundle)

	if !plan.HasTool() {
		plan.reason("no tool for %s", res.Intent)
		return plan
	}

	plan.Confidence = p.fuse(&plan, bundle)
	plan.Params = ExtractParams(plan.Tool, text, plan.Target)
	plan.Steps = []Step{{Tool: plan.Tool, Description: fmt.Sprintf("Run %s", plan.Tool), Params: plan.Params}}
	return plan
}

// resolveFileReference points the plan at the latest tracked file when the
// text refers back to earlier work.
func (p *Planner) resolveFileReference(plan *Plan, bundle session.ContextBundle) {
	if !bundle.Signals.ReferencesPrevious {
		return
	}
	latest, ok := bundle.LatestFile()
	if !ok {
		return
	}

	switch {
	case plan.Tool == ToolCreateFile:
		plan.Tool = ToolWriteFile
	case plan.Intent == intent.FileManagement && plan.Source == SourceDefault:
		plan.Tool = ToolReadFile
	case !FileTargetTools[plan.Tool]:
		return
	}
	plan.Target = latest.Name
	plan.Source = SourceFileReference
	plan.reason("targets recent file %s with %s", latest.Name, plan.Tool)
}

// applyPreference replaces a pattern-derived default with the user's
// highest ranked tool that is also valid for the intent.
func (p *Planner) applyPreference(plan *Plan, bundle session.ContextBundle) {
	if plan.Source != SourceDefault || len(bundle.PreferredTools) == 0 {
		return
	}
	valid := make(map[string]bool)
	for _, t := range ValidTools(plan.Intent) {
		valid[t] = true
	}
	for _, t := range bundle.PreferredTools {
		if !valid[t] {
			continue
		}
		if t != plan.Tool {
			plan.reason("preferred %s over default %s", t, plan.Tool)
			plan.Tool = t
			plan.Source = SourcePreference
		}
		return
	}
}

// fuse applies the context boosts to the plan's primary tool.
func (p *Planner) fuse(plan *Plan, bundle session.ContextBundle) float64 {
	conf := plan.Confidence
	if bundle.PrefersTool(plan.Tool) {
		conf += PreferredBoost
		plan.reason("+%.2f preferred tool", PreferredBoost)
	}
	for _, t := range bundle.RecentTools() {
		if t == plan.Tool {
			conf += RecentToolBoost
			plan.reason("+%.2f recently used", RecentToolBoost)
			break
		}
	}
	if bundle.Signals.ReferencesPrevious && ReadWriteTools[plan.Tool] {
		conf += ReferenceBoost
		plan.reason("+%.2f refers to previous work", ReferenceBoost)
	}
	return clamp01(conf)
}
