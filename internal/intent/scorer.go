package intent

import (
	"fmt"
	"strings"
	"unicode/utf8"

	apperrors "github.com/khanglvm/tool-router/internal/errors"
)

const (
	// AmbiguityFloor is the minimum confidence at which a tie is reported as ambiguous.
	AmbiguityFloor = 0.4

	// MaxInputChars bounds the text handed to the regex tables.
	MaxInputChars = 10000
)

// Scorer is the stateless base classifier.
type Scorer struct {
	patterns []Pattern
	intents  []Intent
}

// NewScorer returns a scorer over DefaultPatterns.
func NewScorer() *Scorer {
	return NewScorerWithPatterns(DefaultPatterns)
}

// NewScorerWithPatterns returns a scorer over a custom table. Intent order is
// the order of first appearance in the table.
func NewScorerWithPatterns(patterns []Pattern) *Scorer {
	var intents []Intent
	seen := make(map[Intent]bool)
	for _, p := range patterns {
		if !seen[p.Intent] {
			seen[p.Intent] = true
			intents = append(intents, p.Intent)
		}
	}
	return &Scorer{patterns: patterns, intents: intents}
}

// Score classifies text. It returns an INVALID_INPUT error for empty or
// non-UTF-8 text, NO_INTENT_MATCH when nothing matched and
// PATTERN_ENGINE_FAILED if a pattern misbehaves.
func (s *Scorer) Score(text string) (res Result, err error) {
	if err := validateInput(text); err != nil {
		return Result{}, err
	}
	if utf8.RuneCountInString(text) > MaxInputChars {
		text = string([]rune(text)[:MaxInputChars])
	}

	defer func() {
		if r := recover(); r != nil {
			res = Result{}
			err = apperrors.New(apperrors.ErrCodePatternEngine, "pattern evaluation failed",
				fmt.Errorf("%v", r)).WithInput(text)
		}
	}()

	scores := make(map[Intent]float64, len(s.intents))
	for _, in := range s.intents {
		scores[in] = 0
	}
	for _, p := range s.patterns {
		if p.Expr.MatchString(text) {
			scores[p.Intent] += p.Weight
		}
	}

	var total, best float64
	for _, in := range s.intents {
		total += scores[in]
		if scores[in] > best {
			best = scores[in]
		}
	}
	if total == 0 {
		return Result{Scores: scores}, apperrors.New(apperrors.ErrCodeNoIntentMatch,
			"no intent pattern matched", nil).WithInput(text).WithScores(scoreMap(scores))
	}

	var tied []Intent
	for _, in := range s.intents {
		if scores[in] == best {
			tied = append(tied, in)
		}
	}

	res = Result{
		Intent:     tied[0],
		Confidence: clamp01(best / total),
		Scores:     scores,
	}
	res.addReason(fmt.Sprintf("base score %.1f of %.1f for %s", best, total, res.Intent))

	if len(tied) > 1 && res.Confidence >= AmbiguityFloor {
		res.Ambiguous = true
		res.Tied = tied
		res.addReason(fmt.Sprintf("tie between %s", joinIntents(tied)))
	}
	return res, nil
}

// Classify is Score with failures degraded to UNCLEAR/0.0.
func (s *Scorer) Classify(text string) Result {
	res, err := s.Score(text)
	if err != nil {
		out := UnclearResult(err.Error())
		out.Scores = res.Scores
		return out
	}
	return res
}

func validateInput(text string) error {
	if !utf8.ValidString(text) {
		return apperrors.New(apperrors.ErrCodeInvalidInput, "input is not valid UTF-8", nil).
			WithInput(strings.ToValidUTF8(text, "?"))
	}
	if strings.TrimSpace(text) == "" {
		return apperrors.New(apperrors.ErrCodeInvalidInput, "input is empty", nil)
	}
	return nil
}

func joinIntents(list []Intent) string {
	parts := make([]string, len(list))
	for i, in := range list {
		parts[i] = string(in)
	}
	return strings.Join(parts, ", ")
}
