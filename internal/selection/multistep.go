package selection

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/khanglvm/tool-router/internal/session"
)

// Step is one tool invocation of a plan.
type Step struct {
	Tool        string         `json:"tool"`
	Description string         `json:"description"`
	Params      map[string]any `json:"params,omitempty"`
}

// Template recognizes a request that needs several tool calls.
type Template struct {
	Name  string
	Expr  *regexp.Regexp
	Build func(text string) []Step
}

// MultiStepTemplates is checked in order; the first match wins.
var MultiStepTemplates = []Template{
	{
		Name:  "project_structure",
		Expr:  regexp.MustCompile(`(?i)\bproject\s+(structure|layout|skeleton|scaffold)\b|\b(scaffold|bootstrap)\s+(a\s+)?(new\s+)?project\b|\bfolder\s+structure\b|\bset\s*up\s+(a\s+)?(new\s+)?project\b`),
		Build: buildProjectStructure,
	},
	{
		Name:  "documentation_series",
		Expr:  regexp.MustCompile(`(?i)\b(documentation|docs)\s+(series|set|site)\b|\bseries\s+of\s+(guides|docs|documents|articles|tutorials)\b|\b(several|multiple)\s+(guides|docs|documents|pages)\b`),
		Build: buildDocumentationSeries,
	},
	{
		Name:  "batch_file_operations",
		Expr:  regexp.MustCompile(`(?i)\b(copy|move|back\s*up|backup|compress|zip|archive|delete|remove)\b.*\b(all|every|each)\s+(the\s+|of\s+the\s+)?([\w.]+\s+)?files\b|\b(all|every|each)\s+(the\s+)?([\w.]+\s+)?files\b.*\b(copy|move|back\s*up|backup|compress|zip|archive|delete|remove)\b`),
		Build: buildBatchOperation,
	},
}

var (
	projectNameRe = regexp.MustCompile(`(?i)\bproject\s+(?:called|named|for)\s+["']?([\w\-.]+)`)
	jsonRe        = regexp.MustCompile(`(?i)\bjson\b`)
	batchVerbRe   = regexp.MustCompile(`(?i)\b(copy|move|back\s*up|backup|compress|zip|archive|delete|remove)\b`)
)

// entryPoints maps a language mention to the project's entry file and body.
var entryPoints = []struct {
	expr    *regexp.Regexp
	file    string
	content string
}{
	{regexp.MustCompile(`(?i)\b(go|golang)\b`), "main.go", "package main\n\nfunc main() {\n}\n"},
	{regexp.MustCompile(`(?i)\b(typescript|ts)\b`), "index.ts", "export {};\n"},
	{regexp.MustCompile(`(?i)\b(javascript|node|nodejs|js)\b`), "index.js", "'use strict';\n"},
	{regexp.MustCompile(`(?i)\brust\b`), "main.rs", "fn main() {\n}\n"},
	{regexp.MustCompile(`.`), "main.py", "def main():\n    pass\n\n\nif __name__ == \"__main__\":\n    main()\n"},
}

// DetectMultiStep returns the first matching template and its steps, with
// substitutions for JSON mentions and the user's write-tool preference.
func DetectMultiStep(text string, bundle session.ContextBundle) (string, []Step) {
	for _, tpl := range MultiStepTemplates {
		if !tpl.Expr.MatchString(text) {
			continue
		}
		steps := tpl.Build(text)
		if jsonRe.MatchString(text) {
			steps = substituteJSON(steps)
		}
		steps = substituteWriteTool(steps, bundle)
		return tpl.Name, steps
	}
	return "", nil
}

func buildProjectStructure(text string) []Step {
	name := "my-project"
	if m := projectNameRe.FindStringSubmatch(text); m != nil {
		name = m[1]
	} else if m := namedRe.FindStringSubmatch(text); m != nil {
		name = m[1]
	}

	entry := entryPoints[len(entryPoints)-1]
	for _, ep := range entryPoints {
		if ep.expr.MatchString(text) {
			entry = ep
			break
		}
	}

	return []Step{
		{Tool: ToolCreateFolder, Description: "Create project root " + name,
			Params: map[string]any{"folder_name": name}},
		{Tool: ToolCreateFolder, Description: "Create source folder",
			Params: map[string]any{"folder_name": path.Join(name, "src")}},
		{Tool: ToolCreateFolder, Description: "Create docs folder",
			Params: map[string]any{"folder_name": path.Join(name, "docs")}},
		{Tool: ToolCreateFile, Description: "Write README",
			Params: map[string]any{"filename": path.Join(name, "README.md"), "content": "# " + name + "\n"}},
		{Tool: ToolCreateFile, Description: "Create entry point " + entry.file,
			Params: map[string]any{"filename": path.Join(name, "src", entry.file), "content": entry.content}},
	}
}

func buildDocumentationSeries(text string) []Step {
	dir := "docs"
	title := "Documentation"
	if m := topicRe.FindStringSubmatch(text); m != nil {
		if topic := slug(m[2]); topic != "" {
			dir = path.Join("docs", topic)
			title = strings.TrimSpace(m[2])
		}
	}
	page := func(file, heading string) Step {
		return Step{Tool: ToolCreateFile, Description: "Write " + file,
			Params: map[string]any{"filename": path.Join(dir, file), "content": "# " + heading + "\n"}}
	}
	return []Step{
		{Tool: ToolCreateFolder, Description: "Create " + dir,
			Params: map[string]any{"folder_name": dir}},
		page("index.md", title),
		page("getting-started.md", "Getting started"),
		page("reference.md", "Reference"),
	}
}

func buildBatchOperation(text string) []Step {
	dir := extractLocation(text)
	if dir == "" {
		dir = "."
	}

	action := ToolCopyFile
	verb := strings.ToLower(batchVerbRe.FindString(text))
	switch {
	case strings.HasPrefix(verb, "move"):
		action = ToolMoveFile
	case verb == "compress" || verb == "zip" || verb == "archive":
		action = ToolCompressFiles
	case verb == "delete" || verb == "remove":
		action = ToolDeleteFile
	}

	actionStep := Step{Tool: action, Description: fmt.Sprintf("Apply %s to each listed file", action)}
	if action == ToolCompressFiles {
		actionStep.Description = "Compress the listed files"
		actionStep.Params = map[string]any{"files": dir}
	}

	return []Step{
		{Tool: ToolListFiles, Description: "List files in " + dir,
			Params: map[string]any{"directory": dir}},
		actionStep,
		{Tool: ToolListFiles, Description: "Verify the result",
			Params: map[string]any{"directory": dir}},
	}
}

// substituteJSON swaps the last generic create step for a JSON write.
func substituteJSON(steps []Step) []Step {
	for i := len(steps) - 1; i >= 0; i-- {
		if steps[i].Tool != ToolCreateFile {
			continue
		}
		name := "config.json"
		if fn, ok := steps[i].Params["filename"].(string); ok {
			name = path.Join(path.Dir(fn), "config.json")
		}
		steps[i] = Step{Tool: ToolWriteJSON, Description: "Write " + path.Base(name),
			Params: map[string]any{"filename": name, "data": "{}"}}
		break
	}
	return steps
}

// substituteWriteTool swaps create_file and write_file to match the user's
// historically preferred write tool.
func substituteWriteTool(steps []Step, bundle session.ContextBundle) []Step {
	preferred := preferredWriteTool(bundle.PreferredTools)
	if preferred == "" {
		return steps
	}
	for i, st := range steps {
		switch {
		case preferred == ToolWriteFile && st.Tool == ToolCreateFile:
			steps[i].Tool = ToolWriteFile
			steps[i].Params = withParam(st.Params, "mode", "overwrite")
		case preferred == ToolCreateFile && st.Tool == ToolWriteFile:
			steps[i].Tool = ToolCreateFile
			steps[i].Params = withoutParam(st.Params, "mode")
		}
	}
	return steps
}

// preferredWriteTool returns whichever of create_file/write_file ranks first.
func preferredWriteTool(preferred []string) string {
	for _, t := range preferred {
		if t == ToolCreateFile || t == ToolWriteFile {
			return t
		}
	}
	return ""
}

func withParam(params map[string]any, key string, value any) map[string]any {
	out := make(map[string]any, len(params)+1)
	for k, v := range params {
		out[k] = v
	}
	out[key] = value
	return out
}

func withoutParam(params map[string]any, key string) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		if k != key {
			out[k] = v
		}
	}
	return out
}
