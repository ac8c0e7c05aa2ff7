/*
Package registry maps tool names to typed handlers.

Tools are registered once at startup and looked up by name. Lookups tolerate
the usual mistakes: case and separator differences, a fixed alias table and
small typos (edit distance of at most two with a single best candidate).
Anything else is an UNKNOWN_TOOL error carrying suggestions.
*/
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	bsearch "github.com/blevesearch/bleve/v2/search"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	apperrors "github.com/khanglvm/tool-router/internal/errors"
	"github.com/khanglvm/tool-router/internal/search"
)

// MaxCorrectionDistance bounds fuzzy name correction.
const MaxCorrectionDistance = 2

// maxSuggestions caps the suggestions attached to UNKNOWN_TOOL errors.
const maxSuggestions = 3

// Handler executes a tool with validated arguments and returns a short
// human-readable result.
type Handler func(ctx context.Context, args map[string]any) (string, error)

// Tool is a registered capability.
type Tool struct {
	Name        string
	Description string
	Category    string
	Params      []Param
	Handler     Handler
}

// ParamNames lists the tool's parameter names in declaration order.
func (t Tool) ParamNames() []string {
	names := make([]string, 0, len(t.Params))
	for _, p := range t.Params {
		names = append(names, p.Name)
	}
	return names
}

// Resolution method names.
const (
	MethodExact      = "exact"
	MethodNormalized = "normalized"
	MethodAlias      = "alias"
	MethodFuzzy      = "fuzzy"
)

// Resolution describes how a requested name mapped to a tool.
type Resolution struct {
	Requested string `json:"requested"`
	Name      string `json:"name"`
	Method    string `json:"method"`
	Distance  int    `json:"distance,omitempty"`
}

// Corrected reports whether the requested name differed from the tool name.
func (r Resolution) Corrected() bool {
	return r.Method != MethodExact
}

// Execution is the outcome of a successful Execute.
type Execution struct {
	Resolution Resolution     `json:"resolution"`
	Args       map[string]any `json:"args"`
	Output     string         `json:"output"`
}

// Registry holds the tool set.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	catalog *search.Catalog
	logger  *zap.Logger
}

// New returns an empty registry with a search catalog. If the catalog cannot
// be created the registry still works without search suggestions.
func New(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	catalog, err := search.NewCatalog(logger)
	if err != nil {
		logger.Warn("Tool catalog unavailable, suggestions limited to edit distance", zap.Error(err))
		catalog = nil
	}
	return &Registry{
		tools:   make(map[string]Tool),
		catalog: catalog,
		logger:  logger,
	}
}

// Register adds a tool. Names must be normalized and unique.
func (r *Registry) Register(t Tool) error {
	if t.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if Normalize(t.Name) != t.Name {
		return fmt.Errorf("tool name %q is not normalized (want %q)", t.Name, Normalize(t.Name))
	}
	if t.Handler == nil {
		return fmt.Errorf("tool %s has no handler", t.Name)
	}

	r.mu.Lock()
	if _, exists := r.tools[t.Name]; exists {
		r.mu.Unlock()
		return fmt.Errorf("tool %s already registered", t.Name)
	}
	r.tools[t.Name] = t
	r.mu.Unlock()

	if r.catalog != nil {
		doc := search.ToolDoc{Name: t.Name, Description: t.Description, Category: t.Category, Params: t.ParamNames()}
		if err := r.catalog.Index([]search.ToolDoc{doc}); err != nil {
			r.logger.Warn("Failed to index tool", zap.String("tool", t.Name), zap.Error(err))
		}
	}
	return nil
}

// RegisterAll registers every tool and reports all failures together.
func (r *Registry) RegisterAll(tools ...Tool) error {
	var result *multierror.Error
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tools returns the registered tools sorted by name.
func (r *Registry) Tools() []Tool {
	names := r.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(names))
	for _, n := range names {
		out = append(out, r.tools[n])
	}
	return out
}

// Get returns the tool registered under exactly name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Catalog exposes the search catalog; nil when unavailable.
func (r *Registry) Catalog() *search.Catalog {
	return r.catalog
}

// Resolve maps a requested name to a registered tool: exact match, then
// normalized, then alias, then a unique fuzzy candidate.
func (r *Registry) Resolve(name string) (Resolution, error) {
	res := Resolution{Requested: name}

	if _, ok := r.Get(name); ok {
		res.Name, res.Method = name, MethodExact
		return res, nil
	}

	norm := Normalize(name)
	if _, ok := r.Get(norm); ok && norm != "" {
		res.Name, res.Method = norm, MethodNormalized
		return res, nil
	}

	if target, ok := Aliases[norm]; ok {
		if _, registered := r.Get(target); registered {
			res.Name, res.Method = target, MethodAlias
			r.logger.Debug("Resolved tool alias", zap.String("requested", name), zap.String("tool", target))
			return res, nil
		}
	}

	candidates := r.rankByDistance(norm)
	if len(candidates) > 0 && candidates[0].distance <= MaxCorrectionDistance &&
		(len(candidates) == 1 || candidates[1].distance > candidates[0].distance) {
		res.Name, res.Method, res.Distance = candidates[0].name, MethodFuzzy, candidates[0].distance
		r.logger.Debug("Corrected tool name",
			zap.String("requested", name), zap.String("tool", res.Name), zap.Int("distance", res.Distance))
		return res, nil
	}

	return res, apperrors.New(apperrors.ErrCodeUnknownTool, fmt.Sprintf("unknown tool %q", name), nil).
		WithInput(name).
		WithAlternatives(r.suggest(norm, candidates)...)
}

type candidate struct {
	name     string
	distance int
}

func (r *Registry) rankByDistance(norm string) []candidate {
	names := r.Names()
	out := make([]candidate, 0, len(names))
	for _, n := range names {
		out = append(out, candidate{name: n, distance: bsearch.LevenshteinDistance(norm, n)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].distance < out[j].distance })
	return out
}

// suggest combines the closest names with catalog hits for the requested words.
func (r *Registry) suggest(norm string, ranked []candidate) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(name string) {
		if len(out) < maxSuggestions && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}

	if r.catalog != nil && norm != "" {
		if hits, err := r.catalog.Similar(norm, maxSuggestions); err == nil {
			for _, h := range hits {
				add(h.Name)
			}
		}
		if hits, err := r.catalog.Search(Words(norm), maxSuggestions); err == nil {
			for _, h := range hits {
				add(h.Name)
			}
		}
	}
	for _, c := range ranked {
		add(c.name)
	}
	return out
}

// Execute resolves name, validates args and runs the handler.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (*Execution, error) {
	res, err := r.Resolve(name)
	if err != nil {
		return nil, err
	}
	tool, _ := r.Get(res.Name)

	validated, err := ValidateArgs(tool, args)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, err := tool.Handler(ctx, validated)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCodeToolExecution,
			fmt.Sprintf("tool %s failed", tool.Name), err).WithInput(fmt.Sprint(validated))
	}

	r.logger.Debug("Executed tool", zap.String("tool", tool.Name), zap.String("method", res.Method))
	return &Execution{Resolution: res, Args: validated, Output: out}, nil
}

// Close releases the catalog.
func (r *Registry) Close() error {
	if r.catalog != nil {
		return r.catalog.Close()
	}
	return nil
}
