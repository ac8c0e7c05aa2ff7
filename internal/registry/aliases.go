package registry

import (
	"strings"
	"unicode"
)

// Aliases maps common alternative tool names, as produced by models and
// users, to registered tools. Keys are normalized.
var Aliases = map[string]string{
	"backup_files": "copy_file",
	"backup_file":  "copy_file",
	"backup":       "copy_file",
	"duplicate":    "copy_file",
	"cp":           "copy_file",

	"make_file": "create_file",
	"new_file":  "create_file",
	"touch":     "create_file",

	"cat":       "read_file",
	"open_file": "read_file",
	"view_file": "read_file",
	"show_file": "read_file",

	"append_file": "write_file",
	"update_file": "write_file",
	"edit_file":   "write_file",

	"remove_file": "delete_file",
	"rm":          "delete_file",

	"mv":          "move_file",
	"rename":      "move_file",
	"rename_file": "move_file",

	"ls":             "list_files",
	"list":           "list_files",
	"list_dir":       "list_files",
	"list_directory": "list_files",

	"find":       "search_files",
	"grep":       "search_files",
	"find_files": "search_files",

	"zip":       "compress_files",
	"zip_files": "compress_files",
	"archive":   "compress_files",
	"compress":  "compress_files",

	"mkdir":            "create_folder",
	"make_folder":      "create_folder",
	"new_folder":       "create_folder",
	"make_dir":         "create_folder",
	"create_directory": "create_folder",

	"rmdir":            "delete_folder",
	"remove_folder":    "delete_folder",
	"delete_directory": "delete_folder",

	"copy_directory": "copy_folder",
	"backup_folder":  "copy_folder",

	"load_json":  "read_json",
	"parse_json": "read_json",
	"save_json":  "write_json",

	"install":          "generate_install_commands",
	"install_software": "generate_install_commands",
	"install_commands": "generate_install_commands",
}

// Normalize lower-cases name and joins its words with underscores. It splits
// camelCase and treats spaces, dashes and dots as separators.
func Normalize(name string) string {
	var b strings.Builder
	prevLower := false
	pendingSep := false
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r == ' ' || r == '-' || r == '.' || r == '_' || r == '\t':
			pendingSep = b.Len() > 0
			prevLower = false
			continue
		case unicode.IsUpper(r):
			if prevLower {
				pendingSep = true
			}
			prevLower = false
			r = unicode.ToLower(r)
		default:
			prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
		}
		if pendingSep {
			b.WriteByte('_')
			pendingSep = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
