package learning

import (
	"math"
	"sort"
	"time"

	"github.com/khanglvm/tool-router/internal/storage"
)

const (
	// frequencyWeight is the weight for frequency in the score (0.6 = 60%).
	frequencyWeight = 0.6

	// recencyWeight is the weight for recency in the score (0.3 = 30%).
	recencyWeight = 0.3

	// successWeight is the weight for success rate in the score (0.1 = 10%).
	successWeight = 0.1

	// FrequencyWindow is the time window considered for ranking (7 days).
	FrequencyWindow = 7 * 24 * time.Hour

	// recencyHalfLife is the half-life for exponential decay (24 hours).
	recencyHalfLife = 24 * time.Hour

	// frequencySaturation is the use count treated as maximal frequency.
	frequencySaturation = 100.0
)

// Score combines a tool's aggregate into 0.6*frequency + 0.3*recency +
// 0.1*success rate, each normalized to [0,1].
func Score(stats storage.ToolStats, now time.Time) float64 {
	if stats.Count == 0 {
		return 0
	}
	return frequencyWeight*frequency(stats.Count) +
		recencyWeight*recency(stats.LastUsed, now) +
		successWeight*stats.SuccessRate()
}

// frequency normalizes a use count, saturating at 100 uses.
func frequency(count int) float64 {
	return math.Min(float64(count)/frequencySaturation, 1.0)
}

// recency decays exponentially with the time since last use: 1 now, 0.5
// after a day, 0.25 after two.
func recency(lastUsed, now time.Time) float64 {
	hours := now.Sub(lastUsed).Hours()
	if hours < 0 {
		hours = 0
	}
	return math.Exp(-math.Ln2 * hours / recencyHalfLife.Hours())
}

// ToolScore represents a tool with its score for ranking.
type ToolScore struct {
	Tool        string  `json:"tool"`
	Score       float64 `json:"score"`
	Count       int     `json:"count"`
	SuccessRate float64 `json:"success_rate"`
}

// RankTools scores every tool used in the last FrequencyWindow, highest
// first. Ties are broken by name.
func RankTools(s storage.Storage, now time.Time) ([]ToolScore, error) {
	stats, err := s.ToolStats(now.Add(-FrequencyWindow))
	if err != nil {
		return nil, err
	}

	scores := make([]ToolScore, 0, len(stats))
	for _, st := range stats {
		scores = append(scores, ToolScore{
			Tool:        st.Tool,
			Score:       Score(st, now),
			Count:       st.Count,
			SuccessRate: st.SuccessRate(),
		})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].Tool < scores[j].Tool
	})
	return scores, nil
}
