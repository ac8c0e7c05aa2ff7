package session

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Bundle sizes.
const (
	bundleRecentOps   = 3
	bundleRecentFiles = 5
	bundleTopPrefs    = 3
	bundleRecentTags  = 5
)

// ContextBundle is everything downstream components may know about history.
type ContextBundle struct {
	SessionID               string        `json:"sessionId"`
	RecentOperations        []Operation   `json:"recentOperations,omitempty"`
	RecentFiles             []TrackedFile `json:"recentFiles,omitempty"`
	PreferredTools          []string      `json:"preferredTools,omitempty"`
	PreferredOperationTypes []string      `json:"preferredOperationTypes,omitempty"`
	RecentTags              []string      `json:"recentTags,omitempty"`
	ActiveProject           string        `json:"activeProject,omitempty"`
	Signals                 Signals       `json:"signals"`
	MentionedFiles          []string      `json:"mentionedFiles,omitempty"`

	// Error is set when the bundle could not be assembled; only SessionID is valid then.
	Error string `json:"error,omitempty"`
}

// PrefersTool reports whether tool is among the preferred tools.
func (b ContextBundle) PrefersTool(tool string) bool {
	for _, t := range b.PreferredTools {
		if t == tool {
			return true
		}
	}
	return false
}

// RecentTools returns the tools of the bundled recent operations.
func (b ContextBundle) RecentTools() []string {
	tools := make([]string, 0, len(b.RecentOperations))
	for _, op := range b.RecentOperations {
		tools = append(tools, op.Tool)
	}
	return tools
}

// LatestFile returns the most recently modified tracked file, if any.
func (b ContextBundle) LatestFile() (TrackedFile, bool) {
	if len(b.RecentFiles) == 0 {
		return TrackedFile{}, false
	}
	return b.RecentFiles[0], true
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Store owns the single live Session of a process.
type Store struct {
	mu      sync.RWMutex
	session *Session
	now     func() time.Time
	logger  *zap.Logger
}

// NewStore creates a store with a fresh session.
func NewStore(opts ...Option) *Store {
	s := &Store{
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.session = newSession(s.now())
	return s
}

// SessionID returns the live session id.
func (s *Store) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.ID
}

// Reset discards the session and starts a new one with a new id.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.session.ID
	s.session = newSession(s.now())
	s.logger.Info("Session reset", zap.String("old", old), zap.String("new", s.session.ID))
}

// AddOperation appends a completed operation. Successful operations also feed
// the user patterns and, for file-producing tools, the tracked files.
func (s *Store) AddOperation(opType, tool string, params map[string]string, result string, success bool, tags []string) Operation {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.stampLocked()

	op := Operation{
		Timestamp: ts,
		Type:      opType,
		Tool:      tool,
		Params:    params,
		Result:    result,
		Success:   success,
		Tags:      tags,
	}.clone()

	s.session.Operations = append(s.session.Operations, op)
	s.session.LastActivity = ts

	if success {
		s.session.Patterns.record(op)
		if FileProducingTools[tool] {
			s.trackFile(op)
		}
		if project := projectFrom(op); project != "" {
			s.session.ActiveProject = project
		}
	}

	return op.clone()
}

// TrackFile records a file written by a successful file-producing call that
// is not itself logged as an operation, such as a secondary step of a plan.
// It reports whether a file was tracked.
func (s *Store) TrackFile(opType, tool string, params map[string]string, tags []string) bool {
	if !FileProducingTools[tool] || fileNameFrom(params) == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.stampLocked()
	s.trackFile(Operation{Timestamp: ts, Type: opType, Tool: tool, Params: params, Tags: tags}.clone())
	s.session.LastActivity = ts
	return true
}

// stampLocked returns the current time, clamped so it never precedes the
// last operation.
func (s *Store) stampLocked() time.Time {
	ts := s.now()
	if n := len(s.session.Operations); n > 0 {
		if last := s.session.Operations[n-1].Timestamp; ts.Before(last) {
			ts = last
		}
	}
	return ts
}

func (s *Store) trackFile(op Operation) {
	name := fileNameFrom(op.Params)
	if name == "" {
		return
	}

	created := op.Timestamp
	if prev, ok := s.session.Files[name]; ok && prev.Created.Before(created) {
		created = prev.Created
	}

	s.session.Files[name] = &TrackedFile{
		Name:          name,
		Created:       created,
		Modified:      op.Timestamp,
		SizeEstimate:  len(op.Params["content"]),
		FileType:      DetectFileType(name),
		OperationType: op.Type,
		Tags:          append([]string(nil), op.Tags...),
	}
}

func projectFrom(op Operation) string {
	for _, tag := range op.Tags {
		if strings.HasPrefix(tag, "project:") {
			return strings.TrimPrefix(tag, "project:")
		}
	}
	return op.Params["project_name"]
}

// RecentOperations returns the last n operations matching typeFilter ("" for
// any) in insertion order, oldest first.
func (s *Store) RecentOperations(n int, typeFilter string) []Operation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recentLocked(n, typeFilter)
}

func (s *Store) recentLocked(n int, typeFilter string) []Operation {
	if n <= 0 {
		return nil
	}
	var picked []Operation
	for i := len(s.session.Operations) - 1; i >= 0 && len(picked) < n; i-- {
		op := s.session.Operations[i]
		if typeFilter != "" && op.Type != typeFilter {
			continue
		}
		picked = append(picked, op.clone())
	}
	for i, j := 0, len(picked)-1; i < j; i, j = i+1, j-1 {
		picked[i], picked[j] = picked[j], picked[i]
	}
	return picked
}

// RecentSuccessCount returns how many of the last n operations succeeded.
func (s *Store) RecentSuccessCount(n int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, op := range s.recentLocked(n, "") {
		if op.Success {
			count++
		}
	}
	return count
}

// TrackedFiles returns tracked files, most recently modified first.
func (s *Store) TrackedFiles() []TrackedFile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filesLocked(0)
}

func (s *Store) filesLocked(limit int) []TrackedFile {
	files := make([]TrackedFile, 0, len(s.session.Files))
	for _, f := range s.session.Files {
		files = append(files, f.clone())
	}
	sort.Slice(files, func(i, j int) bool {
		if !files[i].Modified.Equal(files[j].Modified) {
			return files[i].Modified.After(files[j].Modified)
		}
		return files[i].Name < files[j].Name
	})
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}
	return files
}

// Snapshot returns a deep copy of the live session.
func (s *Store) Snapshot() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.clone()
}

// ContextForIntent assembles the context bundle for text. It never panics:
// on internal failure the bundle carries only the session id and Error.
func (s *Store) ContextForIntent(text string) (bundle ContextBundle) {
	id := s.SessionID()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("Context bundle failed, returning minimal bundle",
				zap.String("session", id), zap.Any("panic", r))
			bundle = ContextBundle{SessionID: id, Error: fmt.Sprint(r)}
		}
	}()
	return s.buildBundle(text)
}

func (s *Store) buildBundle(text string) ContextBundle {
	signals, mentioned := AnalyzeText(text)

	s.mu.RLock()
	defer s.mu.RUnlock()

	return ContextBundle{
		SessionID:               s.session.ID,
		RecentOperations:        s.recentLocked(bundleRecentOps, ""),
		RecentFiles:             s.filesLocked(bundleRecentFiles),
		PreferredTools:          s.session.Patterns.TopTools(bundleTopPrefs),
		PreferredOperationTypes: s.session.Patterns.TopOperationTypes(bundleTopPrefs),
		RecentTags:              s.recentTagsLocked(bundleRecentTags),
		ActiveProject:           s.session.ActiveProject,
		Signals:                 signals,
		MentionedFiles:          mentioned,
	}
}

// recentTagsLocked returns up to n distinct tags, most recent first.
func (s *Store) recentTagsLocked(n int) []string {
	seen := make(map[string]bool)
	var tags []string
	for i := len(s.session.Operations) - 1; i >= 0 && len(tags) < n; i-- {
		op := s.session.Operations[i]
		for j := len(op.Tags) - 1; j >= 0 && len(tags) < n; j-- {
			tag := op.Tags[j]
			if seen[tag] {
				continue
			}
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	return tags
}
