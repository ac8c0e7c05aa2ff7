/*
Package budget estimates how demanding a request is and slices a model's
context window into token buckets accordingly.

Complexity is a weighted blend of four sub-scores, each in [0,1]: message
length, complexity keywords (square-root damped, with a density guard against
keyword stuffing), code fragments and question-style phrasing. The Allocator
turns that score into per-bucket token counts for a chat or tools profile.
*/
package budget

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Mode selects an allocation profile.
type Mode string

// Interaction modes.
const (
	ModeChat  Mode = "chat"
	ModeTools Mode = "tools"
)

// ParseMode returns the mode named s, defaulting to chat.
func ParseMode(s string) Mode {
	if Mode(strings.ToLower(strings.TrimSpace(s))) == ModeTools {
		return ModeTools
	}
	return ModeChat
}

// Sub-score weights.
const (
	LengthWeight   = 0.25
	KeywordWeight  = 0.30
	CodeWeight     = 0.25
	QuestionWeight = 0.20

	ToolsModeMultiplier = 1.2
)

// Keyword is a complexity keyword and its weight.
type Keyword struct {
	Word   string
	Weight float64
	expr   *regexp.Regexp
}

func keyword(word string, weight float64) Keyword {
	return Keyword{Word: word, Weight: weight, expr: regexp.MustCompile(`(?i)\b` + word + `\w*`)}
}

// ComplexityKeywords are matched as word prefixes ("optimiz" matches
// "optimize" and "optimization").
var ComplexityKeywords = []Keyword{
	keyword("analy[sz]", 2.0),
	keyword("implement", 2.5),
	keyword("optimi[sz]", 2.5),
	keyword("refactor", 2.0),
	keyword("debug", 2.0),
	keyword("architect", 3.0),
	keyword("design", 1.5),
	keyword("compar", 1.5),
	keyword("explain", 1.0),
	keyword("algorithm", 2.5),
	keyword("integrat", 2.0),
	keyword("migrat", 2.0),
	keyword("comprehensive", 2.0),
	keyword("detailed", 1.5),
	keyword("evaluat", 1.5),
	keyword("troubleshoot", 2.0),
	keyword("performance", 1.5),
	keyword("security", 1.5),
	keyword("scalab", 2.0),
	keyword("concurren", 2.5),
}

// KeywordDensityLimit is keyword matches per 10 characters above which the
// accumulated weight is halved.
const KeywordDensityLimit = 0.3

// Code fragments are matched on the original-case text.
var (
	fencedCodeRe = regexp.MustCompile("(?s)```.*?```")
	inlineCodeRe = regexp.MustCompile("`[^`\n]+`")
	codeSyntaxRe = []*regexp.Regexp{
		regexp.MustCompile(`\b(function|def|func|class|import|package|return|const|let|var)\b`),
		regexp.MustCompile(`#include\b`),
		regexp.MustCompile(`</?[A-Za-z][\w-]*(\s[^<>]*)?>`),
		regexp.MustCompile(`\b\w+\([^()\n]*\)`),
	}
)

// Code fragment weights.
const (
	FencedBlockWeight  = 0.5
	CodeFragmentWeight = 0.1
)

// QuestionIndicator is a question-style phrase and its weight.
type QuestionIndicator struct {
	Phrase string
	Weight float64
	expr   *regexp.Regexp
}

func indicator(phrase string, weight float64) QuestionIndicator {
	return QuestionIndicator{Phrase: phrase, Weight: weight, expr: regexp.MustCompile(`(?i)\b` + phrase + `\b`)}
}

// QuestionIndicators are counted once each when present.
var QuestionIndicators = []QuestionIndicator{
	indicator("how", 1.0),
	indicator("why", 1.5),
	indicator("what", 0.5),
	indicator(`explain\s+how`, 2.0),
	indicator(`help\s+me`, 1.0),
	indicator(`walk\s+me\s+through`, 2.0),
	indicator(`step\s+by\s+step`, 1.5),
	indicator(`what\s+is\s+the\s+difference`, 2.0),
	indicator(`can\s+you`, 0.5),
}

// Question mark weight and the multi-indicator multiplier.
const (
	QuestionMarkWeight      = 0.5
	MultipleQuestionsFactor = 1.2
)

// Complexity is a score and its components.
type Complexity struct {
	Score    float64 `json:"score"`
	Length   float64 `json:"length"`
	Keyword  float64 `json:"keyword"`
	Code     float64 `json:"code"`
	Question float64 `json:"question"`
}

// Analyze scores text for mode. The result is always in [0,1].
func Analyze(text string, mode Mode) Complexity {
	c := Complexity{
		Length:   LengthScore(text),
		Keyword:  KeywordScore(text),
		Code:     CodeScore(text),
		Question: QuestionScore(text),
	}
	score := LengthWeight*c.Length + KeywordWeight*c.Keyword + CodeWeight*c.Code + QuestionWeight*c.Question
	if mode == ModeTools {
		score *= ToolsModeMultiplier
	}
	c.Score = clamp01(score)
	return c
}

// LengthScore is a step function of the character count.
func LengthScore(text string) float64 {
	n := utf8.RuneCountInString(text)
	switch {
	case n <= 50:
		return 0.1
	case n <= 150:
		return 0.3
	case n <= 300:
		return 0.6
	}
	return math.Min(0.9, 0.6+0.3*math.Min(1, float64(n-300)/1000))
}

// KeywordScore sums weight × √occurrences for every matched keyword.
func KeywordScore(text string) float64 {
	var total float64
	matches := 0
	for _, kw := range ComplexityKeywords {
		count := len(kw.expr.FindAllStringIndex(text, -1))
		if count == 0 {
			continue
		}
		matches += count
		total += kw.Weight * math.Sqrt(float64(count))
	}
	if matches == 0 {
		return 0
	}

	chars := utf8.RuneCountInString(text)
	density := float64(matches) / (float64(chars) / 10)
	if density > KeywordDensityLimit {
		total /= 2
	}
	return math.Min(1, total/10)
}

// CodeScore counts fenced blocks, inline spans and code-like fragments.
func CodeScore(text string) float64 {
	fenced := fencedCodeRe.FindAllStringIndex(text, -1)
	score := FencedBlockWeight * float64(len(fenced))

	rest := fencedCodeRe.ReplaceAllString(text, " ")
	score += CodeFragmentWeight * float64(len(inlineCodeRe.FindAllStringIndex(rest, -1)))
	for _, re := range codeSyntaxRe {
		score += CodeFragmentWeight * float64(len(re.FindAllStringIndex(rest, -1)))
	}
	return math.Min(1, score)
}

// QuestionScore sums the weights of the question indicators present.
func QuestionScore(text string) float64 {
	var total float64
	distinct := 0
	for _, qi := range QuestionIndicators {
		if qi.expr.MatchString(text) {
			total += qi.Weight
			distinct++
		}
	}
	if strings.Contains(text, "?") {
		total += QuestionMarkWeight
		distinct++
	}
	if distinct > 1 {
		total *= MultipleQuestionsFactor
	}
	return math.Min(1, total/5)
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
