/*
Package session holds the live conversation state the router decides against.

A Session records every completed operation, the files those operations
produced and a running tally of the user's habits. Components never read the
session directly; they ask the Store for a ContextBundle built for the text of
the current turn.
*/
package session

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FileProducingTools are the tools whose success creates or overwrites a tracked file.
var FileProducingTools = map[string]bool{
	"create_file": true,
	"write_file":  true,
	"write_json":  true,
}

// FileNameParams are the parameter names inspected, in order, for a file name.
var FileNameParams = []string{"filename", "file_name", "path", "name"}

// fileTypes maps lower-case extensions to a detected file type.
var fileTypes = map[string]string{
	".md":   "markdown",
	".txt":  "text",
	".py":   "python",
	".go":   "go",
	".js":   "javascript",
	".ts":   "typescript",
	".json": "json",
	".yaml": "yaml",
	".yml":  "yaml",
	".toml": "toml",
	".xml":  "xml",
	".html": "html",
	".css":  "css",
	".sh":   "shell",
	".csv":  "csv",
	".sql":  "sql",
	".rs":   "rust",
	".java": "java",
	".rb":   "ruby",
	".log":  "log",
}

// DetectFileType returns the file type for name's extension, or "unknown".
func DetectFileType(name string) string {
	if t, ok := fileTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return t
	}
	return "unknown"
}

// Operation is one completed action. It is never mutated after it is appended.
type Operation struct {
	Timestamp time.Time         `json:"timestamp"`
	Type      string            `json:"type"`
	Tool      string            `json:"tool"`
	Params    map[string]string `json:"params,omitempty"`
	Result    string            `json:"result"`
	Success   bool              `json:"success"`
	Tags      []string          `json:"tags,omitempty"`
}

// HasTag reports whether the operation carries tag.
func (o Operation) HasTag(tag string) bool {
	for _, t := range o.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func (o Operation) clone() Operation {
	c := o
	if o.Params != nil {
		c.Params = make(map[string]string, len(o.Params))
		for k, v := range o.Params {
			c.Params[k] = v
		}
	}
	c.Tags = append([]string(nil), o.Tags...)
	return c
}

// TrackedFile describes a file produced during the session. Keyed by name,
// last write wins.
type TrackedFile struct {
	Name          string    `json:"name"`
	Created       time.Time `json:"created"`
	Modified      time.Time `json:"modified"`
	SizeEstimate  int       `json:"sizeEstimate"`
	FileType      string    `json:"fileType"`
	OperationType string    `json:"operationType"`
	Tags          []string  `json:"tags,omitempty"`
}

func (f TrackedFile) clone() TrackedFile {
	c := f
	c.Tags = append([]string(nil), f.Tags...)
	return c
}

// Session is the aggregate root for one conversation.
type Session struct {
	ID            string                  `json:"id"`
	Started       time.Time               `json:"started"`
	LastActivity  time.Time               `json:"lastActivity"`
	Operations    []Operation             `json:"operations"`
	Files         map[string]*TrackedFile `json:"files"`
	Patterns      *UserPatterns           `json:"patterns"`
	ActiveProject string                  `json:"activeProject,omitempty"`
}

func newSession(now time.Time) *Session {
	return &Session{
		ID:           NewSessionID(now),
		Started:      now,
		LastActivity: now,
		Files:        make(map[string]*TrackedFile),
		Patterns:     NewUserPatterns(),
	}
}

// NewSessionID builds an opaque id from the wall clock plus a random suffix.
func NewSessionID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("session_%s_%s", now.Format("20060102_150405"), suffix)
}

func (s *Session) clone() *Session {
	c := &Session{
		ID:            s.ID,
		Started:       s.Started,
		LastActivity:  s.LastActivity,
		Operations:    make([]Operation, len(s.Operations)),
		Files:         make(map[string]*TrackedFile, len(s.Files)),
		Patterns:      s.Patterns.clone(),
		ActiveProject: s.ActiveProject,
	}
	for i, op := range s.Operations {
		c.Operations[i] = op.clone()
	}
	for name, f := range s.Files {
		fc := f.clone()
		c.Files[name] = &fc
	}
	return c
}

// fileNameFrom returns the first non-empty file-name parameter.
func fileNameFrom(params map[string]string) string {
	for _, key := range FileNameParams {
		if v := strings.TrimSpace(params[key]); v != "" {
			return v
		}
	}
	return ""
}
