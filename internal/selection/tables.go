/*
Package selection maps a classified intent to a concrete tool or plan.

The Scorer is table driven: cross-cutting disambiguation rules first, then
the intent's tool map, and a conservative keyword ladder when confidence is
too low to trust the intent at all. The Planner layers session context on
top: implicit file targets, user preferences, multi-step plans and the final
confidence fusion.
*/
package selection

import (
	"regexp"

	"github.com/khanglvm/tool-router/internal/intent"
)

// Tool names.
const (
	ToolCreateFile      = "create_file"
	ToolReadFile        = "read_file"
	ToolWriteFile       = "write_file"
	ToolDeleteFile      = "delete_file"
	ToolCopyFile        = "copy_file"
	ToolMoveFile        = "move_file"
	ToolListFiles       = "list_files"
	ToolSearchFiles     = "search_files"
	ToolCompressFiles   = "compress_files"
	ToolCreateFolder    = "create_folder"
	ToolDeleteFolder    = "delete_folder"
	ToolCopyFolder      = "copy_folder"
	ToolReadJSON        = "read_json"
	ToolWriteJSON       = "write_json"
	ToolInstallCommands = "generate_install_commands"
)

// OperationTypes maps each tool to the operation type recorded in the session.
var OperationTypes = map[string]string{
	ToolCreateFile:      "file_creation",
	ToolWriteJSON:       "file_creation",
	ToolWriteFile:       "file_update",
	ToolReadFile:        "file_read",
	ToolReadJSON:        "file_read",
	ToolDeleteFile:      "file_deletion",
	ToolCopyFile:        "file_copy",
	ToolMoveFile:        "file_move",
	ToolListFiles:       "file_listing",
	ToolSearchFiles:     "file_search",
	ToolCompressFiles:   "file_compression",
	ToolCreateFolder:    "folder_creation",
	ToolDeleteFolder:    "folder_deletion",
	ToolCopyFolder:      "folder_copy",
	ToolInstallCommands: "installation",
}

// OperationTypeFor returns the recorded operation type for tool.
func OperationTypeFor(tool string) string {
	if t, ok := OperationTypes[tool]; ok {
		return t
	}
	return "information"
}

// Rule maps a pattern to a tool.
type Rule struct {
	Expr *regexp.Regexp
	Tool string
}

func rule(expr, tool string) Rule {
	return Rule{Expr: regexp.MustCompile(`(?i)` + expr), Tool: tool}
}

// ToolMap is an intent's default tool plus ordered overrides.
type ToolMap struct {
	Default   string
	Overrides []Rule
}

// DisambiguationRules pre-empt every other selection step.
var DisambiguationRules = []Rule{
	rule(`\b(write|create|make|draft|generate|compose)\b.*\b(guide|tutorial|docs?|documentation|readme|article|notes?|cheat\s*sheet)\b`, ToolCreateFile),
	rule(`\b(back\s*up|backup)\b.*\b(folder|director(y|ies)|dir)\b`, ToolCopyFolder),
	rule(`\b(back\s*up|backup)\b`, ToolCopyFile),
}

const folderWords = `(folder|director(y|ies)|dir)`

// ToolMaps holds the per-intent tool maps.
var ToolMaps = map[intent.Intent]ToolMap{
	intent.ContentCreation: {
		Default: ToolCreateFile,
		Overrides: []Rule{
			rule(`\bjson\b`, ToolWriteJSON),
			rule(`\b(append|add\s+to|update|overwrite)\b`, ToolWriteFile),
			rule(`\b(create|make|new)\s+(a\s+)?`+folderWords+`\b`, ToolCreateFolder),
		},
	},
	intent.ContentContinuation: {
		Default: ToolWriteFile,
		Overrides: []Rule{
			rule(`\b(show|read|review)\b`, ToolReadFile),
		},
	},
	intent.FileManagement: {
		Default: ToolListFiles,
		Overrides: []Rule{
			rule(`\b(read|open|view|show|cat)\b.*\.json\b`, ToolReadJSON),
			rule(`\b(delete|remove)\b.*\b`+folderWords+`\b`, ToolDeleteFolder),
			rule(`\b(delete|remove)\b`, ToolDeleteFile),
			rule(`\b(copy|duplicate)\b.*\b`+folderWords+`\b`, ToolCopyFolder),
			rule(`\b(copy|duplicate)\b`, ToolCopyFile),
			rule(`\b(move|rename)\b`, ToolMoveFile),
			rule(`\b(search|find|locate|grep)\b`, ToolSearchFiles),
			rule(`\b(compress|zip|archive|tar)\b`, ToolCompressFiles),
			rule(`\b(create|make|new)\s+(a\s+)?`+folderWords+`\b`, ToolCreateFolder),
			rule(`\b(read|open|view|cat)\b`, ToolReadFile),
			rule(`\b(list|show|display|ls)\b`, ToolListFiles),
		},
	},
	intent.SoftwareInstallation: {
		Default: ToolInstallCommands,
	},
	intent.ProjectManagement: {
		Default: ToolCreateFolder,
		Overrides: []Rule{
			rule(`\b(readme|file)\b`, ToolCreateFile),
		},
	},
	// Answered by the model; no tool.
	intent.InformationRequest: {
		Default: "",
	},
}

// FallbackLadder applies when confidence is below LowConfidenceThreshold.
var FallbackLadder = []Rule{
	rule(`\b(create|write|make|new|generate|draft|add)\b`, ToolCreateFile),
	rule(`\b(read|open|view|show|display|cat)\b`, ToolReadFile),
	rule(`\b(list|ls|files|folders|directory)\b`, ToolListFiles),
}

// Selection thresholds.
const (
	LowConfidenceThreshold = 0.3
	FallbackTool           = ToolCreateFile
)

// FileTargetTools accept a filename parameter that may come from a tracked file.
var FileTargetTools = map[string]bool{
	ToolReadFile:   true,
	ToolWriteFile:  true,
	ToolReadJSON:   true,
	ToolWriteJSON:  true,
	ToolDeleteFile: true,
}

// ReadWriteTools are the tools a previous-reference boost applies to.
var ReadWriteTools = map[string]bool{
	ToolReadFile:  true,
	ToolWriteFile: true,
	ToolReadJSON:  true,
	ToolWriteJSON: true,
}
