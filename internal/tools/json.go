package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"
)

// readJSON parses JSON with comments and trailing commas and returns it
// re-indented.
func (h *handlers) readJSON(_ context.Context, args map[string]any) (string, error) {
	path, err := h.ws.Path(str(args, "filename"))
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", h.ws.Rel(path), err)
	}

	var v any
	if err := json.Unmarshal(jsonc.ToJSON(data), &v); err != nil {
		return "", fmt.Errorf("invalid JSON in %s: %w", h.ws.Rel(path), err)
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to format %s: %w", h.ws.Rel(path), err)
	}
	return string(out), nil
}

// writeJSON accepts data as a JSON(C) string or a structured value and
// writes it indented.
func (h *handlers) writeJSON(_ context.Context, args map[string]any) (string, error) {
	path, err := h.ws.Path(str(args, "filename"))
	if err != nil {
		return "", err
	}

	var v any
	switch data := args["data"].(type) {
	case string:
		if err := json.Unmarshal(jsonc.ToJSON([]byte(data)), &v); err != nil {
			return "", fmt.Errorf("data is not valid JSON: %w", err)
		}
	case nil:
		return "", fmt.Errorf("data is required")
	default:
		v = data
	}

	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode data: %w", err)
	}
	out = append(out, '\n')
	if err := writeFile(path, out, os.O_CREATE|os.O_WRONLY|os.O_TRUNC); err != nil {
		return "", err
	}
	return fmt.Sprintf("Wrote %s (%d bytes)", h.ws.Rel(path), len(out)), nil
}
