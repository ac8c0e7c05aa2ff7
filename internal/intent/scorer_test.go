package intent

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/khanglvm/tool-router/internal/errors"
)

var corpus = []string{
	"write me a guide for git",
	"install docker on ubuntu",
	"what is a goroutine?",
	"list all the files in docs/",
	"open the file we created",
	"copy notes.md to backup/notes.md",
	"create a project structure with folders and files",
	"continue the tutorial with the next section",
	"how do I install node",
	"keep going",
	"zzz qqq",
	"delete the old folder and explain why",
}

func TestPatternTablesWellFormed(t *testing.T) {
	perIntent := make(map[Intent]int)
	for _, p := range DefaultPatterns {
		require.NotNil(t, p.Expr)
		if p.Booster {
			assert.Equal(t, BoosterWeight, p.Weight)
		} else {
			assert.Equal(t, BaseWeight, p.Weight)
			perIntent[p.Intent]++
		}
	}
	for _, in := range BaseIntents {
		assert.Positive(t, perIntent[in], "intent %s has no base pattern", in)
	}
}

func TestScoreGuideIsContentCreation(t *testing.T) {
	res, err := NewScorer().Score("write me a guide for git")
	require.NoError(t, err)

	assert.Equal(t, ContentCreation, res.Intent)
	assert.Equal(t, 3.5, res.Scores[ContentCreation])
	assert.Equal(t, 1.0, res.Scores[SoftwareInstallation])
	assert.InDelta(t, 3.5/4.5, res.Confidence, 1e-9)
	assert.False(t, res.Ambiguous)
}

func TestScoreRepresentativeRequests(t *testing.T) {
	tests := []struct {
		text string
		want Intent
	}{
		{"install docker on ubuntu", SoftwareInstallation},
		{"what is a goroutine?", InformationRequest},
		{"list all the files in docs/", FileManagement},
		{"how do I install node", SoftwareInstallation},
	}
	s := NewScorer()
	for _, tt := range tests {
		res, err := s.Score(tt.text)
		require.NoError(t, err, tt.text)
		assert.Equal(t, tt.want, res.Intent, tt.text)
	}
}

func TestScoreTieIsAmbiguous(t *testing.T) {
	res, err := NewScorer().Score("open the file we created")
	require.NoError(t, err)

	assert.True(t, res.Ambiguous)
	assert.Equal(t, []Intent{ContentCreation, FileManagement}, res.Tied)
	assert.Equal(t, ContentCreation, res.Intent, "best guess follows table order")
	assert.Equal(t, 0.5, res.Confidence)
}

func TestScoreTieBelowFloorNotAmbiguous(t *testing.T) {
	patterns := []Pattern{
		{Intent: "a", Expr: regexp.MustCompile(`x`), Weight: 1},
		{Intent: "b", Expr: regexp.MustCompile(`x`), Weight: 1},
		{Intent: "c", Expr: regexp.MustCompile(`x`), Weight: 1},
	}
	res, err := NewScorerWithPatterns(patterns).Score("x")
	require.NoError(t, err)
	assert.False(t, res.Ambiguous)
	assert.InDelta(t, 1.0/3, res.Confidence, 1e-9)
}

func TestScoreErrors(t *testing.T) {
	s := NewScorer()

	_, err := s.Score("   ")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidInput))

	_, err = s.Score("bad \xff bytes")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidInput))

	_, err = s.Score("zzz qqq")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNoIntentMatch))
}

func TestClassifyDegradesToUnclear(t *testing.T) {
	res := NewScorer().Classify("zzz qqq")
	assert.Equal(t, Unclear, res.Intent)
	assert.Equal(t, 0.0, res.Confidence)
	assert.NotEmpty(t, res.Reasoning)
}

func TestScoreIsIdempotentAndBounded(t *testing.T) {
	s := NewScorer()
	for _, text := range corpus {
		first := s.Classify(text)
		second := s.Classify(text)
		assert.Equal(t, first.Intent, second.Intent, text)
		assert.Equal(t, first.Confidence, second.Confidence, text)
		assert.GreaterOrEqual(t, first.Confidence, 0.0, text)
		assert.LessOrEqual(t, first.Confidence, 1.0, text)
	}
}
