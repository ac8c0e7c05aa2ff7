/*
Package pipeline turns one user message into a decision and carries it out.

Decide runs the Refiner and Planner against the live session, fuses their
confidence with context boosts into a Tier and picks a Strategy. Process
executes that strategy: high tiers run the plan through the tool registry
directly, low tiers hand the turn to the model backend with the plan as
advisory context. Every processed turn is recorded back into the session.
*/
package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/khanglvm/tool-router/internal/backend"
	"github.com/khanglvm/tool-router/internal/budget"
	"github.com/khanglvm/tool-router/internal/history"
	"github.com/khanglvm/tool-router/internal/intent"
	"github.com/khanglvm/tool-router/internal/learning"
	"github.com/khanglvm/tool-router/internal/registry"
	"github.com/khanglvm/tool-router/internal/selection"
	"github.com/khanglvm/tool-router/internal/session"
)

// Defaults for Options.
const (
	DefaultMaxToolRounds = 5
	DefaultSystemPrompt  = "You are a careful assistant working inside a local workspace. " +
		"Use the provided tools to act on files and folders; answer questions directly."
)

// Options tunes the pipeline.
type Options struct {
	// Strict surfaces ambiguous intents from Decide as errors.
	Strict bool

	// MaxToolRounds caps model tool-call rounds per turn.
	MaxToolRounds int

	// ContextWindow is the model's context size; 0 uses the budget default.
	ContextWindow int

	// MinMemoryTokens is the conversation-memory floor passed to the allocator.
	MinMemoryTokens int

	// SystemPrompt opens every model conversation.
	SystemPrompt string

	// History caps the persisted record.
	History history.Limits
}

// Deps are the collaborators a pipeline drives. Store and Registry are
// required; the rest are optional.
type Deps struct {
	Store    *session.Store
	Registry *registry.Registry
	Backend  backend.Client
	Tracker  *learning.Tracker
	Writer   *history.Writer
	// Record seeds the conversation history; nil starts empty.
	Record *history.Record
}

// Pipeline orchestrates a turn.
type Pipeline struct {
	store     *session.Store
	registry  *registry.Registry
	backend   backend.Client
	tracker   *learning.Tracker
	writer    *history.Writer
	refiner   *intent.Refiner
	planner   *selection.Planner
	allocator *budget.Allocator
	opts      Options
	logger    *zap.Logger

	mu     sync.Mutex
	record *history.Record
	now    func() time.Time
}

// New wires a pipeline.
func New(deps Deps, opts Options, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxToolRounds <= 0 {
		opts.MaxToolRounds = DefaultMaxToolRounds
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = DefaultSystemPrompt
	}
	if deps.Store == nil {
		deps.Store = session.NewStore(session.WithLogger(logger))
	}
	if deps.Registry == nil {
		deps.Registry = registry.New(logger)
	}
	record := deps.Record
	if record == nil {
		record = &history.Record{}
	}

	refinerOpts := intent.DefaultOptions()
	refinerOpts.Strict = opts.Strict

	return &Pipeline{
		store:     deps.Store,
		registry:  deps.Registry,
		backend:   deps.Backend,
		tracker:   deps.Tracker,
		writer:    deps.Writer,
		refiner:   intent.NewRefiner(intent.NewScorer(), deps.Store, refinerOpts, logger.Named("intent")),
		planner:   selection.NewPlanner(selection.NewScorer(logger.Named("selection")), logger.Named("planner")),
		allocator: budget.NewAllocator(logger.Named("budget")),
		opts:      opts,
		logger:    logger,
		record:    record,
		now:       time.Now,
	}
}

// Store returns the session store the pipeline records into.
func (p *Pipeline) Store() *session.Store {
	return p.store
}

// Registry returns the tool registry.
func (p *Pipeline) Registry() *registry.Registry {
	return p.registry
}

// Budget allocates the context window for text.
func (p *Pipeline) Budget(text string, mode budget.Mode) (budget.Complexity, budget.Allocation) {
	return p.allocator.AllocateText(text, mode, p.opts.ContextWindow, p.opts.MinMemoryTokens)
}

// History returns a copy of the conversation record.
func (p *Pipeline) History() *history.Record {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.record.Clone()
}

// Reset archives the current conversation and starts a new session.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	p.record.Archive(p.now(), p.opts.History)
	snapshot := p.record.Clone()
	p.mu.Unlock()

	p.store.Reset()
	if p.writer != nil {
		p.writer.Enqueue(snapshot)
	}
}

// newDecisionID returns a fresh decision identifier.
func newDecisionID() string {
	return uuid.NewString()
}
