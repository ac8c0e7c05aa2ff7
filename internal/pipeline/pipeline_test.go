package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/khanglvm/tool-router/internal/backend"
	apperrors "github.com/khanglvm/tool-router/internal/errors"
	"github.com/khanglvm/tool-router/internal/history"
	"github.com/khanglvm/tool-router/internal/learning"
	"github.com/khanglvm/tool-router/internal/registry"
	"github.com/khanglvm/tool-router/internal/selection"
	"github.com/khanglvm/tool-router/internal/session"
	"github.com/khanglvm/tool-router/internal/storage"
	"github.com/khanglvm/tool-router/internal/tools"
)

func TestMain(m *testing.M) {
	// bleve starts its analysis workers at init and never stops them.
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("github.com/blevesearch/bleve_index_api.AnalysisWorker"))
}

// fakeBackend replays scripted responses and records every request.
type fakeBackend struct {
	responses []*backend.Response
	err       error
	requests  []backend.ChatRequest
}

func (f *fakeBackend) Chat(_ context.Context, req backend.ChatRequest) (*backend.Response, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		return &backend.Response{Text: "done"}, nil
	}
	resp := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return resp, nil
}

func newPipeline(t *testing.T, client backend.Client, opts Options) (*Pipeline, string) {
	t.Helper()
	root := t.TempDir()
	ws, err := tools.NewWorkspace(root)
	require.NoError(t, err)

	reg := registry.New(nil)
	t.Cleanup(func() { reg.Close() })
	require.NoError(t, tools.Register(reg, ws))

	deps := Deps{Store: session.NewStore(), Registry: reg}
	if client != nil {
		deps.Backend = client
	}
	return New(deps, opts, nil), root
}

func TestTierFor(t *testing.T) {
	cases := []struct {
		score float64
		want  Tier
	}{
		{1.3, TierVeryHigh},
		{0.86, TierVeryHigh},
		{0.85, TierHigh},
		{0.71, TierHigh},
		{0.7, TierMedium},
		{0.51, TierMedium},
		{0.5, TierLow},
		{0.31, TierLow},
		{0.3, TierFallback},
		{0, TierFallback},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, TierFor(tc.score), "score %v", tc.score)
	}
}

func TestStrategyFor(t *testing.T) {
	assert.Equal(t, StrategyDirect, StrategyFor(TierVeryHigh))
	assert.Equal(t, StrategyDirect, StrategyFor(TierHigh))
	assert.Equal(t, StrategyDirectThenModel, StrategyFor(TierMedium))
	assert.Equal(t, StrategyModel, StrategyFor(TierLow))
	assert.Equal(t, StrategyModel, StrategyFor(TierFallback))
}

func TestEnhancedScoreBoosts(t *testing.T) {
	plan := selection.Plan{Tool: selection.ToolCreateFile, Confidence: 0.6, MultiStep: true}
	bundle := session.ContextBundle{
		PreferredTools: []string{selection.ToolCreateFile},
		Signals:        session.Signals{ReferencesPrevious: true},
	}

	score, boosts := EnhancedScore(plan, bundle, SuccessThreshold)
	assert.InDelta(t, 1.0, score, 1e-9)
	assert.Len(t, boosts, 4)

	score, boosts = EnhancedScore(plan, session.ContextBundle{}, SuccessThreshold-1)
	assert.InDelta(t, 0.65, score, 1e-9)
	assert.Len(t, boosts, 1)
}

func TestEnhancedScoreMayExceedOne(t *testing.T) {
	plan := selection.Plan{Tool: selection.ToolCreateFile, Confidence: 0.95}
	bundle := session.ContextBundle{PreferredTools: []string{selection.ToolCreateFile}}

	score, _ := EnhancedScore(plan, bundle, 0)
	assert.InDelta(t, 1.1, score, 1e-9)
	assert.Equal(t, TierVeryHigh, TierFor(score))
}

func TestMissingArgs(t *testing.T) {
	p, _ := newPipeline(t, nil, Options{})

	plan := selection.Plan{Steps: []selection.Step{
		{Tool: selection.ToolWriteFile, Params: map[string]any{"filename": "a.md"}},
		{Tool: selection.ToolCreateFile, Params: map[string]any{"filename": "b.md"}},
		{Tool: "not_registered"},
	}}
	assert.Equal(t, []string{"write_file.content"}, p.missingArgs(plan))
}

func TestDecideDoesNotTouchSession(t *testing.T) {
	p, _ := newPipeline(t, nil, Options{})

	d, err := p.Decide("write me a guide for git")
	require.NoError(t, err)
	assert.NotEmpty(t, d.ID)
	assert.Equal(t, selection.ToolCreateFile, d.Plan.Tool)
	// content_creation 3.5 of 4.5 (git adds 1.0 to software_installation)
	assert.InDelta(t, 3.5/4.5, d.Intent.Confidence, 1e-9)
	assert.Equal(t, TierHigh, d.Tier)
	assert.Equal(t, StrategyDirect, d.Strategy)
	assert.Positive(t, d.Budget.ResponseGeneration)
	assert.Empty(t, p.Store().RecentOperations(10, ""))
}

func TestDecideInformationRequestGoesToModel(t *testing.T) {
	p, _ := newPipeline(t, nil, Options{})

	d, err := p.Decide("explain the difference between tcp and udp?")
	require.NoError(t, err)
	assert.False(t, d.Plan.HasTool())
	assert.Equal(t, StrategyModel, d.Strategy)
}

func TestProcessDirectCreatesFile(t *testing.T) {
	p, root := newPipeline(t, nil, Options{})

	out, err := p.Process(context.Background(), "write me a guide for git")
	require.NoError(t, err)
	assert.Equal(t, PathDirect, out.Path)
	assert.True(t, out.Success)
	require.Len(t, out.Executions, 1)
	assert.Equal(t, selection.ToolCreateFile, out.Executions[0].Resolution.Name)
	assert.FileExists(t, filepath.Join(root, "git-guide.md"))

	ops := p.Store().RecentOperations(1, "")
	require.Len(t, ops, 1)
	op := ops[0]
	assert.Equal(t, selection.ToolCreateFile, op.Tool)
	assert.Equal(t, "git-guide.md", op.Params["filename"])
	assert.True(t, op.Success)
	assert.True(t, op.HasTag("intent:content_creation"))
	assert.True(t, op.HasTag("tier:HIGH"))
	assert.True(t, op.HasTag("path:direct"))

	files := p.Store().TrackedFiles()
	require.Len(t, files, 1)
	assert.Equal(t, "git-guide.md", files[0].Name)

	rec := p.History()
	require.Len(t, rec.Current, 2)
	assert.Equal(t, backend.RoleUser, rec.Current[0].Role)
	assert.Equal(t, backend.RoleAssistant, rec.Current[1].Role)
}

func TestProcessHighTierFailureSkipsModel(t *testing.T) {
	fake := &fakeBackend{}
	p, _ := newPipeline(t, fake, Options{})

	_, err := p.Process(context.Background(), "write me a guide for git")
	require.NoError(t, err)

	out, err := p.Process(context.Background(), "write me a guide for git")
	require.NoError(t, err)
	assert.Equal(t, PathDirect, out.Path)
	assert.False(t, out.Success)
	assert.NotEmpty(t, out.Error)
	assert.Empty(t, fake.requests)

	ops := p.Store().RecentOperations(2, "")
	require.Len(t, ops, 2)
	assert.False(t, ops[1].Success)
}

func TestProcessModelReply(t *testing.T) {
	fake := &fakeBackend{responses: []*backend.Response{{Text: "TCP is connection oriented."}}}
	p, _ := newPipeline(t, fake, Options{})

	out, err := p.Process(context.Background(), "explain the difference between tcp and udp?")
	require.NoError(t, err)
	assert.Equal(t, PathModel, out.Path)
	assert.True(t, out.Success)
	assert.Equal(t, "TCP is connection oriented.", out.Reply)

	require.Len(t, fake.requests, 1)
	req := fake.requests[0]
	require.GreaterOrEqual(t, len(req.Messages), 3)
	assert.Equal(t, DefaultSystemPrompt, req.Messages[0].Content)
	assert.Contains(t, req.Messages[1].Content, "Routing analysis")
	assert.Contains(t, req.Messages[1].Content, "information_request")
	last := req.Messages[len(req.Messages)-1]
	assert.Equal(t, backend.RoleUser, last.Role)
	assert.Equal(t, out.Decision.Budget.ResponseGeneration, req.MaxTokens)
	assert.Len(t, req.Tools, len(p.Registry().Names()))

	ops := p.Store().RecentOperations(1, "")
	require.Len(t, ops, 1)
	assert.Equal(t, "information", ops[0].Type)
	assert.True(t, ops[0].HasTag("path:model"))
}

func TestProcessModelTextReplyRecordsNoTool(t *testing.T) {
	fake := &fakeBackend{responses: []*backend.Response{{Text: "What should I write?"}}}
	p, root := newPipeline(t, fake, Options{})

	out, err := p.Process(context.Background(), "update notes.txt")
	require.NoError(t, err)
	assert.Equal(t, selection.ToolWriteFile, out.Decision.Plan.Tool)
	assert.Equal(t, PathModel, out.Path)
	assert.True(t, out.Success)
	assert.Empty(t, out.Executions)
	assert.NoFileExists(t, filepath.Join(root, "notes.txt"))

	ops := p.Store().RecentOperations(1, "")
	require.Len(t, ops, 1)
	assert.Empty(t, ops[0].Tool)
	assert.Empty(t, ops[0].Params)
	assert.Equal(t, "information", ops[0].Type)

	assert.Empty(t, p.Store().TrackedFiles())
	assert.Empty(t, p.Store().Snapshot().Patterns.Tools)
	assert.NotContains(t, p.Store().ContextForIntent("update it").PreferredTools, selection.ToolWriteFile)
}

func TestProcessFailedDirectDoesNotTrackPlannedFile(t *testing.T) {
	p, root := newPipeline(t, nil, Options{})
	require.NoError(t, os.WriteFile(filepath.Join(root, "git-guide.md"), []byte("old"), 0o644))

	out, err := p.Process(context.Background(), "write me a guide for git")
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Empty(t, out.Executions)

	ops := p.Store().RecentOperations(1, "")
	require.Len(t, ops, 1)
	assert.Equal(t, selection.ToolCreateFile, ops[0].Tool)
	assert.False(t, ops[0].Success)
	assert.Empty(t, p.Store().TrackedFiles())
	assert.Empty(t, p.Store().Snapshot().Patterns.Tools)
}

func TestProcessMultiStepTracksEveryFile(t *testing.T) {
	p, root := newPipeline(t, nil, Options{})

	out, err := p.Process(context.Background(), "create a project structure with folders and files")
	require.NoError(t, err)
	require.True(t, out.Decision.Plan.MultiStep)
	require.True(t, out.Success, out.Error)

	var written []string
	for _, exec := range out.Executions {
		if session.FileProducingTools[exec.Resolution.Name] {
			name, _ := exec.Args["filename"].(string)
			written = append(written, name)
			assert.FileExists(t, filepath.Join(root, name))
		}
	}
	require.GreaterOrEqual(t, len(written), 2)

	var tracked []string
	for _, f := range p.Store().TrackedFiles() {
		tracked = append(tracked, f.Name)
	}
	assert.ElementsMatch(t, written, tracked)
	assert.Len(t, p.Store().RecentOperations(10, ""), 1)
}

func TestProcessModelSeesHistory(t *testing.T) {
	fake := &fakeBackend{responses: []*backend.Response{{Text: "first"}, {Text: "second"}}}
	p, _ := newPipeline(t, fake, Options{})

	_, err := p.Process(context.Background(), "explain the difference between tcp and udp?")
	require.NoError(t, err)
	_, err = p.Process(context.Background(), "explain the difference between threads and processes?")
	require.NoError(t, err)

	require.Len(t, fake.requests, 2)
	var contents []string
	for _, m := range fake.requests[1].Messages {
		contents = append(contents, m.Content)
	}
	assert.Contains(t, contents, "first")
}

func TestProcessToolCallAliasCorrected(t *testing.T) {
	fake := &fakeBackend{responses: []*backend.Response{
		{ToolCalls: []backend.ToolCall{{Name: "backup_files", Arguments: map[string]any{"source": "notes.md"}}}},
		{Text: "Backed up."},
	}}
	p, root := newPipeline(t, fake, Options{})
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.md"), []byte("hi"), 0o644))

	out, err := p.Process(context.Background(), "zzz qqq")
	require.NoError(t, err)
	assert.Equal(t, PathModel, out.Path)
	assert.Equal(t, "Backed up.", out.Reply)
	require.Len(t, out.Executions, 1)
	assert.Equal(t, selection.ToolCopyFile, out.Executions[0].Resolution.Name)
	assert.Equal(t, registry.MethodAlias, out.Executions[0].Resolution.Method)
	assert.FileExists(t, filepath.Join(root, "notes.md.bak"))

	require.Len(t, fake.requests, 2)
	msgs := fake.requests[1].Messages
	toolMsg := msgs[len(msgs)-1]
	assert.Equal(t, backend.RoleTool, toolMsg.Role)
	assert.Equal(t, selection.ToolCopyFile, toolMsg.ToolName)

	ops := p.Store().RecentOperations(1, "")
	require.Len(t, ops, 1)
	assert.Equal(t, selection.ToolCopyFile, ops[0].Tool)
}

func TestProcessToolErrorReturnedToModel(t *testing.T) {
	fake := &fakeBackend{responses: []*backend.Response{
		{ToolCalls: []backend.ToolCall{{Name: "launch_rockets"}}},
		{Text: "I cannot do that."},
	}}
	p, _ := newPipeline(t, fake, Options{})

	out, err := p.Process(context.Background(), "zzz qqq")
	require.NoError(t, err)
	assert.Equal(t, "I cannot do that.", out.Reply)
	assert.Contains(t, out.Error, "launch_rockets")

	msgs := fake.requests[1].Messages
	assert.True(t, strings.HasPrefix(msgs[len(msgs)-1].Content, "error:"))
}

func TestProcessToolRoundsCapped(t *testing.T) {
	fake := &fakeBackend{responses: []*backend.Response{
		{ToolCalls: []backend.ToolCall{{Name: "list_files"}}},
	}}
	p, _ := newPipeline(t, fake, Options{MaxToolRounds: 2})

	out, err := p.Process(context.Background(), "zzz qqq")
	require.NoError(t, err)
	assert.Len(t, fake.requests, 2)
	assert.Len(t, out.Executions, 2)
	assert.Equal(t, "Stopped after 2 tool rounds.", out.Reply)
}

func TestProcessBackendUnavailable(t *testing.T) {
	fake := &fakeBackend{err: fmt.Errorf("%w: connection refused", backend.ErrBackendUnavailable)}
	p, _ := newPipeline(t, fake, Options{})

	out, err := p.Process(context.Background(), "zzz qqq")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeBackendUnavailable))
	assert.ErrorIs(t, err, backend.ErrBackendUnavailable)
	require.NotNil(t, out)
	assert.False(t, out.Success)

	ops := p.Store().RecentOperations(1, "")
	require.Len(t, ops, 1)
	assert.False(t, ops[0].Success)
}

func TestProcessNoBackendConfigured(t *testing.T) {
	p, _ := newPipeline(t, nil, Options{})

	_, err := p.Process(context.Background(), "zzz qqq")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeBackendUnavailable))
}

func TestProcessStrictModeSurfacesErrors(t *testing.T) {
	p, _ := newPipeline(t, nil, Options{Strict: true})

	out, err := p.Process(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, TierFallback, out.Decision.Tier)
	assert.Empty(t, p.Store().RecentOperations(10, ""))
}

func TestResetArchivesConversation(t *testing.T) {
	p, _ := newPipeline(t, nil, Options{})
	_, err := p.Process(context.Background(), "write me a guide for git")
	require.NoError(t, err)
	before := p.Store().SessionID()

	p.Reset()

	rec := p.History()
	assert.Empty(t, rec.Current)
	require.Len(t, rec.Recent, 1)
	assert.Len(t, rec.Recent[0].Messages, 2)
	assert.Empty(t, p.Store().RecentOperations(10, ""))
	assert.NotEqual(t, before, p.Store().SessionID())
}

func TestProcessPersistsAndTracks(t *testing.T) {
	dir := t.TempDir()
	ws, err := tools.NewWorkspace(filepath.Join(dir, "ws"))
	require.NoError(t, err)
	reg := registry.New(nil)
	defer reg.Close()
	require.NoError(t, tools.Register(reg, ws))

	db := storage.NewStorage(filepath.Join(dir, "operations.db"), nil)
	defer db.Close()
	tracker := learning.NewTracker(db, nil)
	writer := history.NewWriter(filepath.Join(dir, "history.json"), nil)

	p := New(Deps{Store: session.NewStore(), Registry: reg, Tracker: tracker, Writer: writer}, Options{}, nil)
	_, err = p.Process(context.Background(), "write me a guide for git")
	require.NoError(t, err)

	tracker.Stop()
	writer.Stop()

	rec, err := history.Load(filepath.Join(dir, "history.json"))
	require.NoError(t, err)
	assert.Len(t, rec.Current, 2)

	records, err := db.OperationsSince(selection.ToolCreateFile, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, PathDirect, records[0].Path)
	assert.Equal(t, string(TierHigh), records[0].Tier)
	assert.True(t, records[0].Success)
}

func TestAnnotationListsPlan(t *testing.T) {
	d := Decision{
		Confidence: 0.4,
		Tier:       TierLow,
		Plan: selection.Plan{
			Tool:      selection.ToolCreateFolder,
			MultiStep: true,
			Template:  "project_structure",
			Steps: []selection.Step{
				{Tool: selection.ToolCreateFolder, Params: map[string]any{"folder_name": "api"}},
			},
		},
		Context:     session.ContextBundle{PreferredTools: []string{"write_file"}, RecentFiles: []session.TrackedFile{{Name: "a.md"}}},
		MissingArgs: []string{"write_file.content"},
	}

	text := Annotation(d, fmt.Errorf("boom"))
	assert.Contains(t, text, "recommended tool: create_folder")
	assert.Contains(t, text, "1. create_folder {folder_name=api}")
	assert.Contains(t, text, "preferred tools: write_file")
	assert.Contains(t, text, "recent files: a.md")
	assert.Contains(t, text, "arguments to supply: write_file.content")
	assert.Contains(t, text, "direct attempt failed: boom")
}
