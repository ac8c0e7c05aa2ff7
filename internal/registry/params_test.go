package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/khanglvm/tool-router/internal/errors"
)

var writeTool = Tool{
	Name: "write_file",
	Params: []Param{
		{Name: "filename", Type: TypeString, Required: true, Aliases: []string{"path"}},
		{Name: "content", Type: TypeString, Required: true},
		{Name: "mode", Type: TypeString, Default: "append", Enum: []string{"append", "overwrite"}},
		{Name: "count", Type: TypeInteger},
		{Name: "force", Type: TypeBoolean},
		{Name: "files", Type: TypeArray},
	},
}

func TestValidateArgsCoercion(t *testing.T) {
	out, err := ValidateArgs(writeTool, map[string]any{
		"path":    "a.md",
		"content": 42,
		"count":   "3",
		"force":   "true",
		"files":   "a.md, b.md,",
		"extra":   "ignored",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"filename": "a.md",
		"content":  "42",
		"mode":     "append",
		"count":    3,
		"force":    true,
		"files":    []string{"a.md", "b.md"},
	}, out)
}

func TestValidateArgsJSONNumbers(t *testing.T) {
	out, err := ValidateArgs(writeTool, map[string]any{
		"filename": "a.md", "content": "x", "count": float64(7), "files": []any{"a", 1},
	})
	require.NoError(t, err)
	assert.Equal(t, 7, out["count"])
	assert.Equal(t, []string{"a", "1"}, out["files"])

	_, err = ValidateArgs(writeTool, map[string]any{"filename": "a.md", "content": "x", "count": 1.5})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidParameter))
}

func TestValidateArgsMissingRequired(t *testing.T) {
	_, err := ValidateArgs(writeTool, map[string]any{"filename": "a.md", "content": "  "})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidParameter))

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "content", appErr.Input)
	assert.Contains(t, appErr.Alternatives, "filename")
}

func TestValidateArgsEnum(t *testing.T) {
	_, err := ValidateArgs(writeTool, map[string]any{"filename": "a", "content": "b", "mode": "replace"})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, []string{"append", "overwrite"}, appErr.Alternatives)
}

func TestValidateArgsBadBoolean(t *testing.T) {
	_, err := ValidateArgs(writeTool, map[string]any{"filename": "a", "content": "b", "force": "maybe"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidParameter))
}

func TestMissingRequired(t *testing.T) {
	assert.Equal(t, []string{"filename", "content"}, MissingRequired(writeTool, nil))
	assert.Empty(t, MissingRequired(writeTool, map[string]any{"path": "a", "content": "b"}))
}

func TestJSONSchema(t *testing.T) {
	schema := writeTool.JSONSchema()
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, []string{"content", "filename"}, schema["required"])

	props := schema["properties"].(map[string]any)
	mode := props["mode"].(map[string]any)
	assert.Equal(t, []string{"append", "overwrite"}, mode["enum"])
	assert.Equal(t, "append", mode["default"])
	files := props["files"].(map[string]any)
	assert.Equal(t, map[string]any{"type": "string"}, files["items"])
}
