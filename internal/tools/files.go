package tools

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeebo/blake3"
)

// Read and search limits.
const (
	maxReadBytes    = 64 * 1024
	maxSearchBytes  = 1 << 20
	maxSearchResult = 50
)

func str(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func boolean(args map[string]any, key string) bool {
	b, _ := args[key].(bool)
	return b
}

func (h *handlers) createFile(_ context.Context, args map[string]any) (string, error) {
	path, err := h.ws.Path(str(args, "filename"))
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err == nil && !boolean(args, "overwrite") {
		return "", fmt.Errorf("%s already exists", h.ws.Rel(path))
	}
	content := str(args, "content")
	if err := writeFile(path, []byte(content), os.O_CREATE|os.O_WRONLY|os.O_TRUNC); err != nil {
		return "", err
	}
	return fmt.Sprintf("Created %s (%d bytes)", h.ws.Rel(path), len(content)), nil
}

func (h *handlers) readFile(_ context.Context, args map[string]any) (string, error) {
	path, err := h.ws.Path(str(args, "filename"))
	if err != nil {
		return "", err
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", h.ws.Rel(path), err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxReadBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", h.ws.Rel(path), err)
	}
	if len(data) > maxReadBytes {
		return string(data[:maxReadBytes]) + "\n[truncated]", nil
	}
	return string(data), nil
}

func (h *handlers) writeFile(_ context.Context, args map[string]any) (string, error) {
	path, err := h.ws.Path(str(args, "filename"))
	if err != nil {
		return "", err
	}
	content := str(args, "content")
	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	verb := "Appended to"
	if str(args, "mode") == "overwrite" {
		flags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
		verb = "Wrote"
	}
	if flags&os.O_APPEND != 0 && content != "" && !strings.HasPrefix(content, "\n") {
		if info, err := os.Stat(path); err == nil && info.Size() > 0 {
			content = "\n" + content
		}
	}
	if err := writeFile(path, []byte(content), flags); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s (%d bytes)", verb, h.ws.Rel(path), len(content)), nil
}

func (h *handlers) deleteFile(_ context.Context, args map[string]any) (string, error) {
	path, err := h.ws.Path(str(args, "filename"))
	if err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", h.ws.Rel(path), err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a folder, use delete_folder", h.ws.Rel(path))
	}
	if err := os.Remove(path); err != nil {
		return "", fmt.Errorf("failed to delete %s: %w", h.ws.Rel(path), err)
	}
	return "Deleted " + h.ws.Rel(path), nil
}

func (h *handlers) copyFile(_ context.Context, args map[string]any) (string, error) {
	src, dst, err := h.sourceDest(args, ".bak")
	if err != nil {
		return "", err
	}
	sum, err := copyVerified(src, dst)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Copied %s to %s (blake3 %x)", h.ws.Rel(src), h.ws.Rel(dst), sum[:8]), nil
}

func (h *handlers) moveFile(_ context.Context, args map[string]any) (string, error) {
	src, dst, err := h.sourceDest(args, "")
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", filepath.Dir(dst), err)
	}
	if err := os.Rename(src, dst); err != nil {
		return "", fmt.Errorf("failed to move %s: %w", h.ws.Rel(src), err)
	}
	return fmt.Sprintf("Moved %s to %s", h.ws.Rel(src), h.ws.Rel(dst)), nil
}

// sourceDest resolves source and destination. An empty destination becomes
// source+suffix; an existing directory destination receives the source's
// base name.
func (h *handlers) sourceDest(args map[string]any, suffix string) (string, string, error) {
	src, err := h.ws.Path(str(args, "source"))
	if err != nil {
		return "", "", err
	}
	if _, err := os.Stat(src); err != nil {
		return "", "", fmt.Errorf("source %s: %w", h.ws.Rel(src), err)
	}

	rawDst := str(args, "destination")
	if rawDst == "" {
		if suffix == "" {
			return "", "", fmt.Errorf("destination is required")
		}
		return src, src + suffix, nil
	}
	dst, err := h.ws.Path(rawDst)
	if err != nil {
		return "", "", err
	}
	if info, err := os.Stat(dst); err == nil && info.IsDir() {
		dst = filepath.Join(dst, filepath.Base(src))
	}
	if dst == src {
		return "", "", fmt.Errorf("source and destination are the same")
	}
	return src, dst, nil
}

func (h *handlers) listFiles(_ context.Context, args map[string]any) (string, error) {
	dir, err := h.ws.Path(str(args, "directory"))
	if err != nil {
		return "", err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to list %s: %w", h.ws.Rel(dir), err)
	}
	if len(entries) == 0 {
		return fmt.Sprintf("%s is empty", h.ws.Rel(dir)), nil
	}

	var b strings.Builder
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		b.WriteString(name)
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

var errSearchLimit = errors.New("search limit reached")

func (h *handlers) searchFiles(ctx context.Context, args map[string]any) (string, error) {
	dir, err := h.ws.Path(str(args, "directory"))
	if err != nil {
		return "", err
	}
	pattern := str(args, "pattern")
	needle := strings.ToLower(pattern)

	var matches []string
	add := func(m string) error {
		matches = append(matches, m)
		if len(matches) >= maxSearchResult {
			return errSearchLimit
		}
		return nil
	}

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		rel := h.ws.Rel(path)
		if ok, _ := filepath.Match(pattern, d.Name()); ok || strings.Contains(strings.ToLower(d.Name()), needle) {
			return add(rel)
		}
		return grepFile(path, rel, needle, add)
	})
	if err != nil && !errors.Is(err, errSearchLimit) {
		return "", fmt.Errorf("search failed: %w", err)
	}

	if len(matches) == 0 {
		return fmt.Sprintf("No matches for %q", pattern), nil
	}
	return strings.Join(matches, "\n"), nil
}

// grepFile reports lines of small text files containing needle.
func grepFile(path, rel, needle string, add func(string) error) error {
	info, err := os.Stat(path)
	if err != nil || info.Size() > maxSearchBytes {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if strings.Contains(strings.ToLower(text), needle) {
			if err := add(fmt.Sprintf("%s:%d: %s", rel, line, strings.TrimSpace(text))); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeFile(path string, data []byte, flags int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// copyVerified copies src to dst and checks both sides hash identically.
func copyVerified(src, dst string) ([]byte, error) {
	in, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", src, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a folder, use copy_folder", filepath.Base(src))
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", dst, err)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dst, err)
	}

	srcHash := blake3.New()
	if _, err := io.Copy(io.MultiWriter(out, srcHash), in); err != nil {
		out.Close()
		return nil, fmt.Errorf("failed to copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("failed to close %s: %w", dst, err)
	}

	dstSum, err := hashFile(dst)
	if err != nil {
		return nil, err
	}
	srcSum := srcHash.Sum(nil)
	if string(srcSum) != string(dstSum) {
		return nil, fmt.Errorf("copy of %s failed verification", src)
	}
	return srcSum, nil
}

func hashFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return h.Sum(nil), nil
}
