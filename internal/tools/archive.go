package tools

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// ArchiveExt is appended to archive names that lack it.
const ArchiveExt = ".tar.zst"

func (h *handlers) compressFiles(ctx context.Context, args map[string]any) (string, error) {
	files, _ := args["files"].([]string)
	if len(files) == 0 {
		return "", fmt.Errorf("no files to compress")
	}

	name := str(args, "archive_name")
	if !strings.HasSuffix(name, ArchiveExt) {
		name = strings.TrimSuffix(name, ".zip") + ArchiveExt
	}
	archivePath, err := h.ws.Path(name)
	if err != nil {
		return "", err
	}

	sources := make([]string, 0, len(files))
	for _, f := range files {
		p, err := h.ws.Path(f)
		if err != nil {
			return "", err
		}
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("%s: %w", f, err)
		}
		sources = append(sources, p)
	}

	count, err := h.writeArchive(ctx, archivePath, sources)
	if err != nil {
		os.Remove(archivePath)
		return "", err
	}
	return fmt.Sprintf("Compressed %d files into %s", count, h.ws.Rel(archivePath)), nil
}

// writeArchive streams sources (files or folders) into a zstd compressed tar.
func (h *handlers) writeArchive(ctx context.Context, archivePath string, sources []string) (int, error) {
	if err := os.MkdirAll(filepath.Dir(archivePath), 0755); err != nil {
		return 0, fmt.Errorf("failed to create directory for %s: %w", archivePath, err)
	}
	out, err := os.Create(archivePath)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", archivePath, err)
	}
	defer out.Close()

	enc, err := zstd.NewWriter(out, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return 0, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	tw := tar.NewWriter(enc)

	count := 0
	for _, src := range sources {
		err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if path == archivePath || !(d.IsDir() || d.Type().IsRegular()) {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			hdr, err := tar.FileInfoHeader(info, "")
			if err != nil {
				return err
			}
			hdr.Name = h.ws.Rel(path)
			if d.IsDir() {
				hdr.Name += "/"
			}
			if err := tw.WriteHeader(hdr); err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			if _, err := io.Copy(tw, f); err != nil {
				return err
			}
			count++
			return nil
		})
		if err != nil {
			enc.Close()
			return 0, fmt.Errorf("failed to archive %s: %w", h.ws.Rel(src), err)
		}
	}

	if err := tw.Close(); err != nil {
		enc.Close()
		return 0, fmt.Errorf("failed to finish tar stream: %w", err)
	}
	if err := enc.Close(); err != nil {
		return 0, fmt.Errorf("failed to finish zstd stream: %w", err)
	}
	return count, nil
}
