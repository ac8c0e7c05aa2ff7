package intent

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	apperrors "github.com/khanglvm/tool-router/internal/errors"
	"github.com/khanglvm/tool-router/internal/session"
)

// Refinement constants.
const (
	DefaultContinuationBoost = 0.2
	DefaultProjectBoost      = 0.15
	DefaultPreferenceBoost   = 0.10
	DefaultOverrideMargin    = 0.2

	DefaultPreviousReferenceConfidence = 0.8
	DefaultRecentOperationsConfidence  = 0.75
	DefaultPreferredToolConfidence     = 0.7
	DefaultSpecificityConfidence       = 0.6
)

// Options tunes the Refiner.
type Options struct {
	// Strict surfaces ambiguous ties and malformed input as errors.
	Strict bool

	ContinuationBoost float64
	ProjectBoost      float64
	PreferenceBoost   float64

	// OverrideMargin is how far the contextual score must exceed the current
	// confidence before it replaces the result.
	OverrideMargin float64

	PreviousReferenceConfidence float64
	RecentOperationsConfidence  float64
	PreferredToolConfidence     float64
	SpecificityConfidence       float64
}

// DefaultOptions returns the calibrated constants.
func DefaultOptions() Options {
	return Options{
		ContinuationBoost:           DefaultContinuationBoost,
		ProjectBoost:                DefaultProjectBoost,
		PreferenceBoost:             DefaultPreferenceBoost,
		OverrideMargin:              DefaultOverrideMargin,
		PreviousReferenceConfidence: DefaultPreviousReferenceConfidence,
		RecentOperationsConfidence:  DefaultRecentOperationsConfidence,
		PreferredToolConfidence:     DefaultPreferredToolConfidence,
		SpecificityConfidence:       DefaultSpecificityConfidence,
	}
}

// Refined is a refined classification together with the bundle it was based on.
type Refined struct {
	Result
	Context session.ContextBundle `json:"context"`
}

// Refiner adjusts base classifications using session context.
type Refiner struct {
	scorer *Scorer
	store  *session.Store
	opts   Options
	logger *zap.Logger
}

// NewRefiner wires a refiner to the session store.
func NewRefiner(scorer *Scorer, store *session.Store, opts Options, logger *zap.Logger) *Refiner {
	if scorer == nil {
		scorer = NewScorer()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Refiner{scorer: scorer, store: store, opts: opts, logger: logger}
}

// Refine classifies text against the live session. In default mode the error
// is always nil and failures degrade to UNCLEAR.
func (r *Refiner) Refine(text string) (Refined, error) {
	bundle := r.store.ContextForIntent(text)
	res, err := r.RefineWithContext(text, bundle)
	return Refined{Result: res, Context: bundle}, err
}

// RefineWithContext classifies text against an explicit bundle.
func (r *Refiner) RefineWithContext(text string, bundle session.ContextBundle) (Result, error) {
	base, err := r.scorer.Score(text)
	if err != nil {
		switch {
		case apperrors.HasCode(err, apperrors.ErrCodeNoIntentMatch):
			r.logger.Debug("No base intent matched", zap.String("input", apperrors.Truncate(text, 100)))
			scores := base.Scores
			base = UnclearResult("no base pattern matched")
			base.Scores = scores
		default:
			r.logger.Warn("Intent classification failed", zap.Error(err))
			if r.opts.Strict {
				return UnclearResult(err.Error()), err
			}
			return UnclearResult(err.Error()), nil
		}
	}

	if base.Ambiguous {
		if r.opts.Strict {
			alts := make([]string, len(base.Tied))
			for i, in := range base.Tied {
				alts[i] = string(in)
			}
			return base, apperrors.New(apperrors.ErrCodeAmbiguousIntent,
				fmt.Sprintf("intents tied: %s", joinIntents(base.Tied)), nil).
				WithInput(text).WithScores(scoreMap(base.Scores)).WithAlternatives(alts...)
		}
		res := r.resolveAmbiguity(base, bundle)
		r.logger.Debug("Resolved ambiguous intent",
			zap.String("intent", string(res.Intent)), zap.String("why", res.Justification))
		return res, nil
	}

	res := r.applyContextRules(text, base, bundle)
	res.Confidence = clamp01(res.Confidence)
	return res, nil
}

// applyContextRules runs the four context rules in order.
func (r *Refiner) applyContextRules(text string, base Result, bundle session.ContextBundle) Result {
	res := base
	res.Reasoning = append([]string(nil), base.Reasoning...)

	if bundle.Signals.ReferencesPrevious && res.Intent == ContentCreation && matchesAny(ContinuationPatterns, text) {
		res.Intent = ContentContinuation
		res.Confidence = math.Min(res.Confidence+r.opts.ContinuationBoost, 1)
		res.addReason("references earlier work with continuation wording")
	} else if (res.Intent == ContentCreation || res.Intent == FileManagement) && matchesAny(ProjectScopePatterns, text) {
		res.Intent = ProjectManagement
		res.Confidence = math.Min(res.Confidence+r.opts.ProjectBoost, 1)
		res.addReason("project-scope wording")
	}

	if base.Intent != Unclear && intersects(ExpectedTools[base.Intent], bundle.PreferredTools) {
		res.Confidence = math.Min(res.Confidence+r.opts.PreferenceBoost, 1)
		res.addReason("intent matches preferred tools")
	}

	if ctxIntent, ctxScore := ScoreContextual(text); ctxScore > 0 && ctxScore-res.Confidence > r.opts.OverrideMargin {
		res.addReason(fmt.Sprintf("contextual override %s (%.2f) over %s (%.2f)",
			ctxIntent, ctxScore, res.Intent, res.Confidence))
		res.Intent = ctxIntent
		res.Confidence = ctxScore
	}

	return res
}

// ScoreContextual scores text against ContextualPatterns and returns the best
// intent with its score capped at 1.
func ScoreContextual(text string) (Intent, float64) {
	scores := make(map[Intent]float64)
	var order []Intent
	for _, p := range ContextualPatterns {
		if _, ok := scores[p.Intent]; !ok {
			order = append(order, p.Intent)
			scores[p.Intent] = 0
		}
		if p.Expr.MatchString(text) {
			scores[p.Intent] += p.Weight
		}
	}

	best, bestScore := Unclear, 0.0
	for _, in := range order {
		if scores[in] > bestScore {
			best, bestScore = in, scores[in]
		}
	}
	return best, math.Min(bestScore, 1)
}

func intersects(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
