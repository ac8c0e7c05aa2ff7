package tools

import (
	"github.com/khanglvm/tool-router/internal/registry"
)

// Tool categories.
const (
	CategoryFile   = "file"
	CategoryFolder = "folder"
	CategoryJSON   = "json"
	CategorySystem = "system"
)

type handlers struct {
	ws *Workspace
}

var (
	fileAliases   = []string{"file_name", "path", "file", "name"}
	folderAliases = []string{"folder", "directory", "dir", "path", "name"}
)

// Builtin returns the built-in tools bound to ws.
func Builtin(ws *Workspace) []registry.Tool {
	h := &handlers{ws: ws}

	filename := registry.Param{Name: "filename", Type: registry.TypeString, Required: true,
		Description: "File path relative to the workspace", Aliases: fileAliases}
	source := registry.Param{Name: "source", Type: registry.TypeString, Required: true,
		Description: "Path to copy or move from", Aliases: []string{"src", "from", "filename", "file"}}

	return []registry.Tool{
		{
			Name: "create_file", Category: CategoryFile, Handler: h.createFile,
			Description: "Create a new file with optional content",
			Params: []registry.Param{
				filename,
				{Name: "content", Type: registry.TypeString, Description: "Initial file content", Aliases: []string{"text", "body"}},
				{Name: "overwrite", Type: registry.TypeBoolean, Default: false, Description: "Replace an existing file"},
			},
		},
		{
			Name: "read_file", Category: CategoryFile, Handler: h.readFile,
			Description: "Read the contents of a text file",
			Params:      []registry.Param{filename},
		},
		{
			Name: "write_file", Category: CategoryFile, Handler: h.writeFile,
			Description: "Append to or overwrite a file, creating it if missing",
			Params: []registry.Param{
				filename,
				{Name: "content", Type: registry.TypeString, Required: true, Description: "Text to write", Aliases: []string{"text", "body"}},
				{Name: "mode", Type: registry.TypeString, Default: "append", Enum: []string{"append", "overwrite"}, Description: "append or overwrite"},
			},
		},
		{
			Name: "delete_file", Category: CategoryFile, Handler: h.deleteFile,
			Description: "Delete a file",
			Params:      []registry.Param{filename},
		},
		{
			Name: "copy_file", Category: CategoryFile, Handler: h.copyFile,
			Description: "Copy or back up a file, verifying the copy by hash",
			Params: []registry.Param{
				source,
				{Name: "destination", Type: registry.TypeString, Description: "Target path; defaults to source.bak", Aliases: []string{"dest", "to", "target"}},
			},
		},
		{
			Name: "move_file", Category: CategoryFile, Handler: h.moveFile,
			Description: "Move or rename a file",
			Params: []registry.Param{
				source,
				{Name: "destination", Type: registry.TypeString, Required: true, Description: "New path", Aliases: []string{"dest", "to", "target", "new_name"}},
			},
		},
		{
			Name: "list_files", Category: CategoryFile, Handler: h.listFiles,
			Description: "List files and folders in a directory",
			Params: []registry.Param{
				{Name: "directory", Type: registry.TypeString, Default: ".", Description: "Directory to list", Aliases: []string{"dir", "folder", "path"}},
			},
		},
		{
			Name: "search_files", Category: CategoryFile, Handler: h.searchFiles,
			Description: "Search file names and contents for a pattern",
			Params: []registry.Param{
				{Name: "pattern", Type: registry.TypeString, Required: true, Description: "Glob or text to find", Aliases: []string{"query", "text", "name"}},
				{Name: "directory", Type: registry.TypeString, Default: ".", Description: "Directory to search", Aliases: []string{"dir", "folder", "path"}},
			},
		},
		{
			Name: "compress_files", Category: CategoryFile, Handler: h.compressFiles,
			Description: "Pack files or folders into a zstd compressed tar archive",
			Params: []registry.Param{
				{Name: "files", Type: registry.TypeArray, Required: true, Description: "Files or folders to include", Aliases: []string{"paths", "source", "directory"}},
				{Name: "archive_name", Type: registry.TypeString, Default: "archive" + ArchiveExt, Description: "Archive file name", Aliases: []string{"archive", "output", "name"}},
			},
		},
		{
			Name: "create_folder", Category: CategoryFolder, Handler: h.createFolder,
			Description: "Create a folder and any missing parents",
			Params: []registry.Param{
				{Name: "folder_name", Type: registry.TypeString, Required: true, Description: "Folder path", Aliases: folderAliases},
			},
		},
		{
			Name: "delete_folder", Category: CategoryFolder, Handler: h.deleteFolder,
			Description: "Delete a folder",
			Params: []registry.Param{
				{Name: "folder_name", Type: registry.TypeString, Required: true, Description: "Folder path", Aliases: folderAliases},
				{Name: "recursive", Type: registry.TypeBoolean, Default: false, Description: "Delete non-empty folders"},
			},
		},
		{
			Name: "copy_folder", Category: CategoryFolder, Handler: h.copyFolder,
			Description: "Copy or back up a folder recursively",
			Params: []registry.Param{
				{Name: "source", Type: registry.TypeString, Required: true, Description: "Folder to copy", Aliases: []string{"src", "from", "folder_name", "folder"}},
				{Name: "destination", Type: registry.TypeString, Description: "Target folder; defaults to source_backup", Aliases: []string{"dest", "to", "target"}},
			},
		},
		{
			Name: "read_json", Category: CategoryJSON, Handler: h.readJSON,
			Description: "Read a JSON file, tolerating comments and trailing commas",
			Params:      []registry.Param{filename},
		},
		{
			Name: "write_json", Category: CategoryJSON, Handler: h.writeJSON,
			Description: "Write structured data to a JSON file",
			Params: []registry.Param{
				filename,
				{Name: "data", Type: registry.TypeObject, Required: true, Description: "JSON value or JSON text", Aliases: []string{"content", "json"}},
			},
		},
		{
			Name: "generate_install_commands", Category: CategorySystem, Handler: h.installCommands,
			Description: "Generate installation commands for software on an operating system",
			Params: []registry.Param{
				{Name: "software", Type: registry.TypeString, Required: true, Description: "Software to install", Aliases: []string{"package", "name", "app"}},
				{Name: "os", Type: registry.TypeString, Description: "Target OS (macos, ubuntu, fedora, arch, windows); defaults to the host", Aliases: []string{"platform", "system"}},
			},
		},
	}
}

// Register adds the built-in tools for ws to reg.
func Register(reg *registry.Registry, ws *Workspace) error {
	return reg.RegisterAll(Builtin(ws)...)
}
