package selection

import (
	"regexp"
	"strings"

	"github.com/khanglvm/tool-router/internal/session"
)

var (
	quotedRe     = regexp.MustCompile("[\"'“”`]([^\"'“”`]+)[\"'“”`]")
	contentRe    = regexp.MustCompile(`(?is)\b(?:with\s+(?:the\s+)?(?:content|text)|containing|that\s+says|saying)\s*:?\s*(.+)$`)
	folderNameRe = regexp.MustCompile(`(?i)\b(?:folder|directory|dir)\s+(?:called\s+|named\s+)?["']?([\w\-./]+)`)
	namedRe      = regexp.MustCompile(`(?i)\b(?:called|named)\s+["']?([\w\-./]+)`)
	locationRe   = regexp.MustCompile(`(?i)\b(?:in|under|inside|within)\s+(?:the\s+)?["']?([\w\-./]*[/\w])/?["']?(?:\s|$)`)
	destRe       = regexp.MustCompile(`(?i)\b(?:to|into)\s+(?:the\s+)?["']?([\w\-./]*[/\w])/?["']?(?:\s|$)`)
	searchRe     = regexp.MustCompile(`(?i)\b(?:for|containing|matching)\s+["']?([^"']+?)["']?(?:\s+in\b|\s*$)`)
	topicRe      = regexp.MustCompile(`(?i)\b(guide|tutorial|notes|readme|article|doc|cheat\s*sheet|report)\s+(?:for|on|about)\s+([\w\-. ]{1,40}?)(?:[.,!?]|\s+(?:with|and|that|including)\b|$)`)
	softwareRe   = regexp.MustCompile(`(?i)\b(?:install|uninstall|upgrade|set\s*up|download)\s+(?:the\s+latest\s+)?([\w\-.+]+)`)
	osRe         = regexp.MustCompile(`(?i)\b(windows|macos|mac|osx|linux|ubuntu|debian|fedora|centos|arch)\b`)
	slugRe       = regexp.MustCompile(`[^a-z0-9]+`)
	overwriteRe  = regexp.MustCompile(`(?i)\b(overwrite|replace)\b`)
	knownRe      = regexp.MustCompile(`(?i)\b(git|docker|nodejs|node|python|java|kubectl|terraform|vscode|postgresql|postgres|redis|nginx|golang|rust)\b`)
)

// Words that follow "install" but are not software names.
var softwareStopwords = map[string]bool{
	"a": true, "an": true, "the": true, "it": true, "me": true, "my": true, "some": true, "this": true, "that": true,
}

// ExtractParams fills best-effort arguments for tool from text. target is an
// implicit file resolved from session context and may be empty.
func ExtractParams(tool, text, target string) map[string]any {
	files := session.ExtractFileNames(text)
	params := make(map[string]any)

	firstFile := func() string {
		if len(files) > 0 {
			return files[0]
		}
		return target
	}

	switch tool {
	case ToolCreateFile, ToolWriteFile:
		if name := firstFile(); name != "" {
			params["filename"] = name
		} else if name := topicFileName(text); name != "" {
			params["filename"] = name
		}
		if content := extractContent(text); content != "" {
			params["content"] = content
		}
		if tool == ToolWriteFile {
			if overwriteRe.MatchString(text) {
				params["mode"] = "overwrite"
			} else {
				params["mode"] = "append"
			}
		}
	case ToolWriteJSON:
		if name := firstFile(); name != "" {
			params["filename"] = name
		}
		if content := extractContent(text); content != "" {
			params["data"] = content
		}
	case ToolReadFile, ToolReadJSON, ToolDeleteFile:
		if name := firstFile(); name != "" {
			params["filename"] = name
		}
	case ToolCopyFile, ToolMoveFile:
		switch {
		case len(files) >= 2:
			params["source"] = files[0]
			params["destination"] = files[1]
		case len(files) == 1:
			params["source"] = files[0]
		case target != "":
			params["source"] = target
		}
		if _, ok := params["destination"]; !ok {
			if m := destRe.FindStringSubmatch(text); m != nil && params["source"] != nil && !isArticle(m[1]) {
				params["destination"] = m[1]
			}
		}
	case ToolCreateFolder, ToolDeleteFolder:
		if name := extractFolderName(text); name != "" {
			params["folder_name"] = name
		}
	case ToolCopyFolder:
		names := folderNameRe.FindAllStringSubmatch(text, 2)
		if len(names) > 0 {
			params["source"] = names[0][1]
		}
		if len(names) > 1 {
			params["destination"] = names[1][1]
		}
	case ToolListFiles:
		params["directory"] = "."
		if dir := extractLocation(text); dir != "" {
			params["directory"] = dir
		}
	case ToolSearchFiles:
		if m := searchRe.FindStringSubmatch(text); m != nil {
			params["pattern"] = strings.TrimSpace(m[1])
		} else if q := quotedRe.FindStringSubmatch(text); q != nil {
			params["pattern"] = q[1]
		}
		if dir := extractLocation(text); dir != "" {
			params["directory"] = dir
		}
	case ToolCompressFiles:
		if len(files) > 0 {
			params["files"] = strings.Join(files, ",")
		} else if dir := extractLocation(text); dir != "" {
			params["files"] = dir
		}
		if m := namedRe.FindStringSubmatch(text); m != nil {
			params["archive_name"] = m[1]
		}
	case ToolInstallCommands:
		if sw := extractSoftware(text); sw != "" {
			params["software"] = sw
		}
		if m := osRe.FindStringSubmatch(text); m != nil {
			params["os"] = strings.ToLower(m[1])
		}
	}
	return params
}

func extractContent(text string) string {
	if m := contentRe.FindStringSubmatch(text); m != nil {
		c := strings.TrimSpace(m[1])
		if q := quotedRe.FindStringSubmatch(c); q != nil && len(q[0]) == len(c) {
			return q[1]
		}
		return c
	}
	return ""
}

func extractFolderName(text string) string {
	if m := folderNameRe.FindStringSubmatch(text); m != nil && !isArticle(m[1]) {
		return strings.TrimSuffix(m[1], "/")
	}
	if m := namedRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSuffix(m[1], "/")
	}
	return ""
}

func extractLocation(text string) string {
	if m := locationRe.FindStringSubmatch(text); m != nil && !isArticle(m[1]) {
		return m[1]
	}
	return ""
}

func extractSoftware(text string) string {
	for _, m := range softwareRe.FindAllStringSubmatch(text, -1) {
		name := strings.ToLower(m[1])
		if !softwareStopwords[name] {
			return name
		}
	}
	if m := knownRe.FindStringSubmatch(text); m != nil {
		return strings.ToLower(m[1])
	}
	return ""
}

// topicFileName derives a markdown file name from "guide for <topic>" wording.
func topicFileName(text string) string {
	m := topicRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	kind := slug(m[1])
	topic := slug(m[2])
	if topic == "" {
		return ""
	}
	return topic + "-" + kind + ".md"
}

// slug lower-cases s and joins its words with dashes.
func slug(s string) string {
	return strings.Trim(slugRe.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

func isArticle(s string) bool {
	switch strings.ToLower(s) {
	case "a", "an", "the", "my", "this", "that", "and", "with":
		return true
	}
	return false
}
