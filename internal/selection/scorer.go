package selection

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/khanglvm/tool-router/internal/intent"
)

// Source records which step of selection produced a tool.
type Source string

// Selection sources.
const (
	SourceDisambiguation Source = "disambiguation"
	SourceOverride       Source = "override"
	SourceDefault        Source = "default"
	SourceFallback       Source = "fallback"
	SourceFileReference  Source = "file_reference"
	SourcePreference     Source = "preference"
	SourceMultiStep      Source = "multi_step"
)

// Selection is the base scorer's pick.
type Selection struct {
	Tool       string  `json:"tool"`
	Confidence float64 `json:"confidence"`
	Source     Source  `json:"source"`
	Reason     string  `json:"reason"`
}

// Scorer maps (intent, text) to a tool.
type Scorer struct {
	disambiguation []Rule
	maps           map[intent.Intent]ToolMap
	fallback       []Rule
	logger         *zap.Logger
}

// NewScorer returns a scorer over the default tables.
func NewScorer(logger *zap.Logger) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{
		disambiguation: DisambiguationRules,
		maps:           ToolMaps,
		fallback:       FallbackLadder,
		logger:         logger,
	}
}

// Select picks a tool. It never fails: any internal problem yields the
// generic create tool.
func (s *Scorer) Select(in intent.Intent, text string, confidence float64) (sel Selection) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("Tool selection failed, using fallback tool", zap.Any("panic", r))
			sel = Selection{Tool: FallbackTool, Confidence: confidence, Source: SourceFallback,
				Reason: "selection failed"}
		}
	}()

	confidence = clamp01(confidence)

	for _, r := range s.disambiguation {
		if r.Expr.MatchString(text) {
			return Selection{Tool: r.Tool, Confidence: confidence, Source: SourceDisambiguation,
				Reason: fmt.Sprintf("disambiguation rule %q", r.Expr.String())}
		}
	}

	if confidence < LowConfidenceThreshold {
		return s.fallbackSelect(text, confidence)
	}

	m, ok := s.maps[in]
	if !ok {
		return s.fallbackSelect(text, confidence)
	}
	for _, r := range m.Overrides {
		if r.Expr.MatchString(text) {
			return Selection{Tool: r.Tool, Confidence: confidence, Source: SourceOverride,
				Reason: fmt.Sprintf("%s override %q", in, r.Expr.String())}
		}
	}
	return Selection{Tool: m.Default, Confidence: confidence, Source: SourceDefault,
		Reason: fmt.Sprintf("%s default", in)}
}

func (s *Scorer) fallbackSelect(text string, confidence float64) Selection {
	for _, r := range s.fallback {
		if r.Expr.MatchString(text) {
			return Selection{Tool: r.Tool, Confidence: confidence, Source: SourceFallback,
				Reason: fmt.Sprintf("low confidence keyword %q", r.Expr.String())}
		}
	}
	return Selection{Tool: FallbackTool, Confidence: confidence, Source: SourceFallback,
		Reason: "low confidence default"}
}

// ValidTools returns every tool a given intent may resolve to.
func ValidTools(in intent.Intent) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(tool string) {
		if tool != "" && !seen[tool] {
			seen[tool] = true
			out = append(out, tool)
		}
	}
	if m, ok := ToolMaps[in]; ok {
		add(m.Default)
		for _, r := range m.Overrides {
			add(r.Tool)
		}
	}
	for _, tool := range intent.ExpectedTools[in] {
		add(tool)
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
