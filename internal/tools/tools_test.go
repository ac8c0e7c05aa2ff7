package tools

import (
	"archive/tar"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/khanglvm/tool-router/internal/errors"
	"github.com/khanglvm/tool-router/internal/registry"
)

func setup(t *testing.T) (*registry.Registry, *Workspace) {
	t.Helper()
	ws, err := NewWorkspace(t.TempDir())
	require.NoError(t, err)

	reg := registry.New(nil)
	t.Cleanup(func() { reg.Close() })
	require.NoError(t, Register(reg, ws))
	return reg, ws
}

func run(t *testing.T, reg *registry.Registry, name string, args map[string]any) string {
	t.Helper()
	exec, err := reg.Execute(context.Background(), name, args)
	require.NoError(t, err)
	return exec.Output
}

func writeTestFile(t *testing.T, ws *Workspace, rel, content string) {
	t.Helper()
	path := filepath.Join(ws.Root(), rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func readTestFile(t *testing.T, ws *Workspace, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(ws.Root(), rel))
	require.NoError(t, err)
	return string(data)
}

func TestBuiltinToolNames(t *testing.T) {
	reg, _ := setup(t)
	assert.Equal(t, []string{
		"compress_files", "copy_file", "copy_folder", "create_file", "create_folder",
		"delete_file", "delete_folder", "generate_install_commands", "list_files",
		"move_file", "read_file", "read_json", "search_files", "write_file", "write_json",
	}, reg.Names())
}

func TestWorkspaceRejectsEscape(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir())
	require.NoError(t, err)

	for _, p := range []string{"../outside.txt", "a/../../x", "/etc/passwd", ""} {
		_, err := ws.Path(p)
		assert.Error(t, err, p)
	}

	inside, err := ws.Path(filepath.Join(ws.Root(), "docs", "a.md"))
	require.NoError(t, err)
	assert.Equal(t, "docs/a.md", ws.Rel(inside))
}

func TestCreateReadWriteFile(t *testing.T) {
	reg, ws := setup(t)

	out := run(t, reg, "create_file", map[string]any{"filename": "docs/guide.md", "content": "# Guide"})
	assert.Contains(t, out, "Created docs/guide.md")

	_, err := reg.Execute(context.Background(), "create_file", map[string]any{"filename": "docs/guide.md"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeToolExecution))

	run(t, reg, "write_file", map[string]any{"filename": "docs/guide.md", "content": "More"})
	assert.Equal(t, "# Guide\nMore", readTestFile(t, ws, "docs/guide.md"))

	run(t, reg, "write_file", map[string]any{"path": "docs/guide.md", "content": "Fresh", "mode": "overwrite"})
	assert.Equal(t, "Fresh", run(t, reg, "read_file", map[string]any{"filename": "docs/guide.md"}))
}

func TestWriteFileRequiresContent(t *testing.T) {
	reg, _ := setup(t)
	_, err := reg.Execute(context.Background(), "write_file", map[string]any{"filename": "a.md"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidParameter))
}

func TestDeleteFile(t *testing.T) {
	reg, ws := setup(t)
	writeTestFile(t, ws, "old.txt", "x")

	run(t, reg, "delete_file", map[string]any{"filename": "old.txt"})
	_, err := os.Stat(filepath.Join(ws.Root(), "old.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestCopyFileViaBackupAlias(t *testing.T) {
	reg, ws := setup(t)
	writeTestFile(t, ws, "notes.md", "keep me")

	exec, err := reg.Execute(context.Background(), "backup_files", map[string]any{"source": "notes.md"})
	require.NoError(t, err)
	assert.Equal(t, "copy_file", exec.Resolution.Name)
	assert.Contains(t, exec.Output, "blake3")
	assert.Equal(t, "keep me", readTestFile(t, ws, "notes.md.bak"))

	require.NoError(t, os.Mkdir(filepath.Join(ws.Root(), "archive"), 0755))
	run(t, reg, "copy_file", map[string]any{"source": "notes.md", "destination": "archive"})
	assert.Equal(t, "keep me", readTestFile(t, ws, "archive/notes.md"))
}

func TestMoveFile(t *testing.T) {
	reg, ws := setup(t)
	writeTestFile(t, ws, "a.md", "A")

	run(t, reg, "move_file", map[string]any{"source": "a.md", "destination": "b/c.md"})
	assert.Equal(t, "A", readTestFile(t, ws, "b/c.md"))
	_, err := os.Stat(filepath.Join(ws.Root(), "a.md"))
	assert.True(t, os.IsNotExist(err))
}

func TestListAndSearchFiles(t *testing.T) {
	reg, ws := setup(t)
	writeTestFile(t, ws, "docs/a.md", "alpha\nneedle here")
	writeTestFile(t, ws, "docs/b.txt", "beta")
	writeTestFile(t, ws, "readme.md", "root")

	assert.Equal(t, "docs/\nreadme.md", run(t, reg, "list_files", nil))
	assert.Equal(t, "a.md\nb.txt", run(t, reg, "list_files", map[string]any{"directory": "docs"}))

	assert.Equal(t, "docs/a.md:2: needle here", run(t, reg, "search_files", map[string]any{"pattern": "needle"}))
	assert.Equal(t, "docs/b.txt", run(t, reg, "search_files", map[string]any{"pattern": "*.txt"}))
	assert.Contains(t, run(t, reg, "search_files", map[string]any{"pattern": "zzz"}), "No matches")
}

func TestFolders(t *testing.T) {
	reg, ws := setup(t)

	run(t, reg, "mkdir", map[string]any{"folder_name": "proj/src"})
	writeTestFile(t, ws, "proj/src/main.go", "package main")

	out := run(t, reg, "copy_folder", map[string]any{"source": "proj"})
	assert.Contains(t, out, "1 files")
	assert.Equal(t, "package main", readTestFile(t, ws, "proj_backup/src/main.go"))

	_, err := reg.Execute(context.Background(), "copy_folder", map[string]any{"source": "proj", "destination": "proj/inner"})
	assert.Error(t, err)

	_, err = reg.Execute(context.Background(), "delete_folder", map[string]any{"folder_name": "proj"})
	assert.Error(t, err, "non-empty folder needs recursive")

	run(t, reg, "delete_folder", map[string]any{"folder_name": "proj", "recursive": true})
	_, err = os.Stat(filepath.Join(ws.Root(), "proj"))
	assert.True(t, os.IsNotExist(err))

	_, err = reg.Execute(context.Background(), "delete_folder", map[string]any{"folder_name": ".", "recursive": true})
	assert.Error(t, err)
}

func TestCompressFiles(t *testing.T) {
	reg, ws := setup(t)
	writeTestFile(t, ws, "logs/a.log", "first")
	writeTestFile(t, ws, "logs/b.log", "second")

	out := run(t, reg, "compress_files", map[string]any{"files": "logs", "archive_name": "logs"})
	assert.Contains(t, out, "Compressed 2 files into logs.tar.zst")

	f, err := os.Open(filepath.Join(ws.Root(), "logs.tar.zst"))
	require.NoError(t, err)
	defer f.Close()
	dec, err := zstd.NewReader(f)
	require.NoError(t, err)
	defer dec.Close()

	contents := map[string]string{}
	tr := tar.NewReader(dec)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if hdr.Typeflag == tar.TypeReg {
			data, err := io.ReadAll(tr)
			require.NoError(t, err)
			contents[hdr.Name] = string(data)
		}
	}
	assert.Equal(t, map[string]string{"logs/a.log": "first", "logs/b.log": "second"}, contents)
}

func TestJSONTools(t *testing.T) {
	reg, ws := setup(t)
	writeTestFile(t, ws, "config.jsonc", "{\n  // comment\n  \"name\": \"demo\",\n}\n")

	assert.Equal(t, "{\n  \"name\": \"demo\"\n}", run(t, reg, "read_json", map[string]any{"filename": "config.jsonc"}))

	run(t, reg, "write_json", map[string]any{"filename": "out.json", "data": `{"b": 1, "a": [true]}`})
	assert.Equal(t, "{\n  \"a\": [\n    true\n  ],\n  \"b\": 1\n}\n", readTestFile(t, ws, "out.json"))

	run(t, reg, "save_json", map[string]any{"filename": "obj.json", "data": map[string]any{"k": "v"}})
	assert.Equal(t, "{\n  \"k\": \"v\"\n}\n", readTestFile(t, ws, "obj.json"))

	_, err := reg.Execute(context.Background(), "write_json", map[string]any{"filename": "bad.json", "data": "{nope"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeToolExecution))
}

func TestInstallCommands(t *testing.T) {
	tests := []struct {
		software string
		os       string
		family   string
		want     []string
	}{
		{"docker", "ubuntu", OSDebian, []string{"sudo apt-get update", "sudo apt-get install -y docker.io", "sudo usermod -aG docker $USER"}},
		{"node", "mac", OSMacOS, []string{"brew install node"}},
		{"git", "windows", OSWindows, []string{"winget install --id Git.Git -e"}},
		{"htop", "fedora", OSFedora, []string{"sudo dnf install -y htop"}},
		{"Go", "arch", OSArch, []string{"sudo pacman -S --noconfirm go"}},
	}
	for _, tt := range tests {
		t.Run(tt.software+"/"+tt.os, func(t *testing.T) {
			family, cmds, err := InstallCommands(tt.software, tt.os)
			require.NoError(t, err)
			assert.Equal(t, tt.family, family)
			assert.Equal(t, tt.want, cmds)
		})
	}

	_, _, err := InstallCommands("git", "plan9")
	assert.Error(t, err)
	_, _, err = InstallCommands("", "ubuntu")
	assert.Error(t, err)
}

func TestInstallCommandsTool(t *testing.T) {
	reg, _ := setup(t)
	out := run(t, reg, "generate_install_commands", map[string]any{"software": "git", "os": "debian"})
	assert.Equal(t, "Install git on debian:\n  sudo apt-get update\n  sudo apt-get install -y git", out)
}

func TestSchemasRequiredParams(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir())
	require.NoError(t, err)

	required := map[string][]string{}
	for _, tool := range Builtin(ws) {
		if r, ok := tool.JSONSchema()["required"].([]string); ok {
			required[tool.Name] = r
		}
	}
	assert.Equal(t, []string{"content", "filename"}, required["write_file"])
	assert.Equal(t, []string{"source"}, required["copy_file"])
	assert.NotContains(t, required, "list_files")
}
