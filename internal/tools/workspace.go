/*
Package tools provides the built-in tool handlers.

Every file-system tool operates inside a Workspace root; paths that resolve
outside it are rejected.
*/
package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Workspace is the directory tools are confined to.
type Workspace struct {
	root string
}

// NewWorkspace creates root if needed and returns a workspace on it.
func NewWorkspace(root string) (*Workspace, error) {
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace %s: %w", root, err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create workspace %s: %w", abs, err)
	}
	return &Workspace{root: abs}, nil
}

// Root returns the absolute workspace directory.
func (w *Workspace) Root() string {
	return w.root
}

// Path resolves rel inside the workspace. Absolute paths are accepted only
// when they already lie inside it.
func (w *Workspace) Path(rel string) (string, error) {
	rel = strings.TrimSpace(rel)
	if rel == "" {
		return "", fmt.Errorf("empty path")
	}

	var full string
	if filepath.IsAbs(rel) {
		full = filepath.Clean(rel)
	} else {
		full = filepath.Join(w.root, rel)
	}

	r, err := filepath.Rel(w.root, full)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s escapes workspace", rel)
	}
	return full, nil
}

// Rel returns full relative to the workspace root, for display.
func (w *Workspace) Rel(full string) string {
	if r, err := filepath.Rel(w.root, full); err == nil {
		return filepath.ToSlash(r)
	}
	return full
}
