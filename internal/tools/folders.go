package tools

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

func (h *handlers) createFolder(_ context.Context, args map[string]any) (string, error) {
	path, err := h.ws.Path(str(args, "folder_name"))
	if err != nil {
		return "", err
	}
	if info, err := os.Stat(path); err == nil {
		if !info.IsDir() {
			return "", fmt.Errorf("%s exists and is a file", h.ws.Rel(path))
		}
		return fmt.Sprintf("Folder %s already exists", h.ws.Rel(path)), nil
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", h.ws.Rel(path), err)
	}
	return "Created folder " + h.ws.Rel(path), nil
}

func (h *handlers) deleteFolder(_ context.Context, args map[string]any) (string, error) {
	path, err := h.ws.Path(str(args, "folder_name"))
	if err != nil {
		return "", err
	}
	if path == h.ws.Root() {
		return "", fmt.Errorf("refusing to delete the workspace root")
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", h.ws.Rel(path), err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is a file, use delete_file", h.ws.Rel(path))
	}

	if boolean(args, "recursive") {
		err = os.RemoveAll(path)
	} else {
		err = os.Remove(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to delete %s (set recursive to remove a non-empty folder): %w", h.ws.Rel(path), err)
	}
	return "Deleted folder " + h.ws.Rel(path), nil
}

func (h *handlers) copyFolder(ctx context.Context, args map[string]any) (string, error) {
	src, err := h.ws.Path(str(args, "source"))
	if err != nil {
		return "", err
	}
	info, err := os.Stat(src)
	if err != nil {
		return "", fmt.Errorf("source %s: %w", h.ws.Rel(src), err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is a file, use copy_file", h.ws.Rel(src))
	}

	dst := src + "_backup"
	if raw := str(args, "destination"); raw != "" {
		if dst, err = h.ws.Path(raw); err != nil {
			return "", err
		}
	}
	if r, err := filepath.Rel(src, dst); err == nil && filepath.IsLocal(r) {
		return "", fmt.Errorf("cannot copy %s into itself", h.ws.Rel(src))
	}

	files := 0
	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if _, err := copyVerified(path, target); err != nil {
			return err
		}
		files++
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to copy %s: %w", h.ws.Rel(src), err)
	}
	return fmt.Sprintf("Copied folder %s to %s (%d files)", h.ws.Rel(src), h.ws.Rel(dst), files), nil
}
