package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeToolExecution, "tool failed", nil)

	require.NotNil(t, err)
	assert.Equal(t, ErrCodeToolExecution, err.Code)
	assert.Equal(t, "TOOL_EXECUTION_FAILED: tool failed", err.Error())
	assert.Nil(t, err.Unwrap())
}

func TestErrorWithCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := New(ErrCodeToolExecution, "write failed", cause)

	assert.Contains(t, err.Error(), "caused by: disk full")
	assert.True(t, stderrors.Is(err, cause))
}

func TestWithInputTruncates(t *testing.T) {
	long := strings.Repeat("x", 250)
	err := New(ErrCodeInvalidInput, "bad", nil).WithInput(long)

	assert.Equal(t, 103, len(err.Input))
	assert.True(t, strings.HasSuffix(err.Input, "..."))

	short := New(ErrCodeInvalidInput, "bad", nil).WithInput("hello")
	assert.Equal(t, "hello", short.Input)
}

func TestWithScoresCopies(t *testing.T) {
	scores := map[string]float64{"b": 1, "a": 2}
	err := New(ErrCodeNoIntentMatch, "none", nil).WithScores(scores)
	scores["a"] = 99

	assert.Equal(t, 2.0, err.Scores["a"])
	assert.Equal(t, []string{"a", "b"}, err.ScoreKeys())
}

func TestAlternativesRendered(t *testing.T) {
	err := New(ErrCodeUnknownTool, "unknown tool: cpy_file", nil).WithAlternatives("copy_file", "move_file")
	assert.Contains(t, err.Error(), "did you mean: copy_file, move_file?")
}

func TestHasCodeThroughWrapping(t *testing.T) {
	base := New(ErrCodeUnknownTool, "nope", nil)
	wrapped := fmt.Errorf("execute: %w", base)

	assert.True(t, HasCode(wrapped, ErrCodeUnknownTool))
	assert.False(t, HasCode(wrapped, ErrCodeInvalidParameter))
	assert.Equal(t, ErrCodeUnknownTool, CodeOf(wrapped))
	assert.Equal(t, "", CodeOf(stderrors.New("plain")))
}
