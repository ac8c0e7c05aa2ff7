package session

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepClock returns a clock that advances by step on every call.
func stepClock(start time.Time, step time.Duration) func() time.Time {
	t := start
	return func() time.Time {
		now := t
		t = t.Add(step)
		return now
	}
}

func newTestStore() *Store {
	return NewStore(WithClock(stepClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), time.Second)))
}

func TestNewSessionID(t *testing.T) {
	id := NewSessionID(time.Date(2026, 3, 1, 9, 30, 15, 0, time.UTC))
	assert.Regexp(t, regexp.MustCompile(`^session_20260301_093015_[0-9a-f]{8}$`), id)
}

func TestAddOperationUpdatesPatternsOnSuccessOnly(t *testing.T) {
	s := newTestStore()

	s.AddOperation("file_creation", "create_file", map[string]string{"filename": "a.md"}, "ok", true, []string{"docs"})
	s.AddOperation("file_creation", "create_file", map[string]string{"filename": "b.md"}, "boom", false, []string{"docs"})

	snap := s.Snapshot()
	assert.Len(t, snap.Operations, 2)
	assert.Equal(t, 1, snap.Patterns.ToolCount("create_file"))
	assert.Equal(t, 1, snap.Patterns.Tags["docs"])
	assert.Contains(t, snap.Files, "a.md")
	assert.NotContains(t, snap.Files, "b.md", "failed writes are not tracked")
}

func TestLongParamValuesExcludedFromPatterns(t *testing.T) {
	s := newTestStore()
	long := strings.Repeat("x", 101)
	s.AddOperation("file_creation", "create_file", map[string]string{"filename": "a.md", "content": long}, "ok", true, nil)

	snap := s.Snapshot()
	assert.Equal(t, 1, snap.Patterns.Params["filename"]["a.md"])
	assert.Empty(t, snap.Patterns.Params["content"])
	assert.Equal(t, 101, snap.Files["a.md"].SizeEstimate)
}

func TestTrackedFileOverwriteKeepsCreated(t *testing.T) {
	s := newTestStore()
	s.AddOperation("file_creation", "create_file", map[string]string{"filename": "notes.md"}, "ok", true, nil)
	s.AddOperation("file_update", "write_file", map[string]string{"path": "notes.md"}, "ok", true, []string{"append"})

	f := s.Snapshot().Files["notes.md"]
	require.NotNil(t, f)
	assert.True(t, f.Modified.After(f.Created))
	assert.Equal(t, "file_update", f.OperationType)
	assert.Equal(t, "markdown", f.FileType)
}

func TestNonFileToolsNotTracked(t *testing.T) {
	s := newTestStore()
	s.AddOperation("file_read", "read_file", map[string]string{"filename": "x.txt"}, "ok", true, nil)
	assert.Empty(t, s.TrackedFiles())
}

func TestTrackFileWithoutOperation(t *testing.T) {
	s := newTestStore()

	assert.True(t, s.TrackFile("file_creation", "create_file", map[string]string{"filename": "README.md", "content": "hi"}, []string{"multi_step"}))
	assert.False(t, s.TrackFile("file_read", "read_file", map[string]string{"filename": "other.md"}, nil))
	assert.False(t, s.TrackFile("file_creation", "create_file", nil, nil))

	snap := s.Snapshot()
	assert.Empty(t, snap.Operations)
	assert.Empty(t, snap.Patterns.Tools)
	require.Len(t, snap.Files, 1)
	f := snap.Files["README.md"]
	require.NotNil(t, f)
	assert.Equal(t, 2, f.SizeEstimate)
	assert.Equal(t, []string{"multi_step"}, f.Tags)
}

func TestTimestampsNonDecreasing(t *testing.T) {
	times := []time.Time{
		time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), // session start
		time.Date(2026, 3, 1, 10, 0, 5, 0, time.UTC),
		time.Date(2026, 3, 1, 9, 59, 0, 0, time.UTC), // clock went backwards
	}
	i := 0
	s := NewStore(WithClock(func() time.Time {
		now := times[i]
		if i < len(times)-1 {
			i++
		}
		return now
	}))

	s.AddOperation("a", "list_files", nil, "", true, nil)
	s.AddOperation("b", "list_files", nil, "", true, nil)

	ops := s.RecentOperations(10, "")
	require.Len(t, ops, 2)
	assert.False(t, ops[1].Timestamp.Before(ops[0].Timestamp))
}

func TestRecentOperationsInsertionOrder(t *testing.T) {
	s := newTestStore()
	for _, tool := range []string{"t1", "t2", "t3", "t4"} {
		s.AddOperation("kind", tool, nil, "", true, nil)
	}
	s.AddOperation("other", "t5", nil, "", true, nil)

	ops := s.RecentOperations(2, "")
	require.Len(t, ops, 2)
	assert.Equal(t, "t4", ops[0].Tool)
	assert.Equal(t, "t5", ops[1].Tool)

	filtered := s.RecentOperations(3, "kind")
	require.Len(t, filtered, 3)
	assert.Equal(t, []string{"t2", "t3", "t4"}, []string{filtered[0].Tool, filtered[1].Tool, filtered[2].Tool})

	assert.Nil(t, s.RecentOperations(0, ""))
}

func TestRecentOperationsReturnsCopies(t *testing.T) {
	s := newTestStore()
	s.AddOperation("kind", "t1", map[string]string{"k": "v"}, "", true, []string{"a"})

	ops := s.RecentOperations(1, "")
	ops[0].Params["k"] = "mutated"
	ops[0].Tags[0] = "mutated"

	again := s.RecentOperations(1, "")
	assert.Equal(t, "v", again[0].Params["k"])
	assert.Equal(t, "a", again[0].Tags[0])
}

func TestContextForIntent(t *testing.T) {
	s := newTestStore()
	for i, name := range []string{"a.md", "b.md", "c.md", "d.md", "e.md", "f.md"} {
		tags := []string{"docs"}
		if i == 5 {
			tags = append(tags, "project:wiki")
		}
		s.AddOperation("file_creation", "create_file", map[string]string{"filename": name}, "ok", true, tags)
	}
	s.AddOperation("file_read", "read_file", map[string]string{"filename": "a.md"}, "ok", true, []string{"review"})

	b := s.ContextForIntent("update the file we created and add a section to notes.md")

	assert.Equal(t, s.SessionID(), b.SessionID)
	assert.Empty(t, b.Error)
	require.Len(t, b.RecentOperations, 3)
	assert.Equal(t, "read_file", b.RecentOperations[2].Tool)
	require.Len(t, b.RecentFiles, 5)
	assert.Equal(t, "f.md", b.RecentFiles[0].Name)
	assert.Equal(t, []string{"create_file", "read_file"}, b.PreferredTools)
	assert.Equal(t, []string{"review", "project:wiki", "docs"}, b.RecentTags)
	assert.Equal(t, "wiki", b.ActiveProject)
	assert.True(t, b.Signals.ReferencesPrevious)
	assert.True(t, b.Signals.MentionsFile)
	assert.True(t, b.Signals.SuggestsContinuation)
	assert.False(t, b.Signals.IndicatesNewProject)
	assert.Equal(t, []string{"notes.md"}, b.MentionedFiles)
	assert.True(t, b.PrefersTool("create_file"))

	latest, ok := b.LatestFile()
	require.True(t, ok)
	assert.Equal(t, "f.md", latest.Name)
}

func TestContextForIntentRecoversFromPanic(t *testing.T) {
	s := newTestStore()
	// A nil pattern aggregate makes bundle assembly panic.
	s.session.Patterns = nil

	var b ContextBundle
	assert.NotPanics(t, func() { b = s.ContextForIntent("anything") })
	assert.Equal(t, s.SessionID(), b.SessionID)
	assert.NotEmpty(t, b.Error)
	assert.Empty(t, b.RecentOperations)
}

func TestResetDiscardsEverything(t *testing.T) {
	s := newTestStore()
	s.AddOperation("file_creation", "create_file", map[string]string{"filename": "a.md"}, "ok", true, []string{"x"})
	before := s.SessionID()

	s.Reset()

	assert.NotEqual(t, before, s.SessionID())
	snap := s.Snapshot()
	assert.Empty(t, snap.Operations)
	assert.Empty(t, snap.Files)
	assert.Empty(t, snap.Patterns.Tools)
	assert.Empty(t, snap.ActiveProject)
}

func TestRecentSuccessCount(t *testing.T) {
	s := newTestStore()
	results := []bool{false, true, true, false, true, true}
	for _, ok := range results {
		s.AddOperation("k", "t", nil, "", ok, nil)
	}
	// last five: T T F T T
	assert.Equal(t, 4, s.RecentSuccessCount(5))
	assert.Equal(t, 2, s.RecentSuccessCount(2))
	assert.Equal(t, 4, s.RecentSuccessCount(10))
}

func TestTopNTieBreaksByName(t *testing.T) {
	counts := map[string]int{"b": 2, "a": 2, "c": 5, "d": 0}
	assert.Equal(t, []string{"c", "a", "b"}, topN(counts, 3))
	assert.Equal(t, []string{"c", "a", "b"}, topN(counts, 10))
	assert.Nil(t, topN(counts, 0))
}
