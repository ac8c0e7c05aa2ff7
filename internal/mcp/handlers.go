package mcp

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/khanglvm/tool-router/internal/budget"
	apperrors "github.com/khanglvm/tool-router/internal/errors"
	"github.com/khanglvm/tool-router/internal/pipeline"
	"github.com/khanglvm/tool-router/internal/session"
)

// recentOpsShown caps operations in router_session output.
const recentOpsShown = 10

func requireText(text string) error {
	if strings.TrimSpace(text) == "" {
		return apperrors.New(apperrors.ErrCodeInvalidInput, "text is required", nil)
	}
	return nil
}

func (s *Server) execDecide(text string) (any, error) {
	if err := requireText(text); err != nil {
		return nil, err
	}
	d, err := s.pipeline.Decide(text)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// processResult is the router_process payload.
type processResult struct {
	Reply      string            `json:"reply"`
	Success    bool              `json:"success"`
	Path       string            `json:"path"`
	Intent     string            `json:"intent"`
	Tier       pipeline.Tier     `json:"tier"`
	Strategy   pipeline.Strategy `json:"strategy"`
	Confidence float64           `json:"confidence"`
	Tools      []string          `json:"tools,omitempty"`
	Error      string            `json:"error,omitempty"`
}

func (s *Server) execProcess(ctx context.Context, text string) (any, error) {
	if err := requireText(text); err != nil {
		return nil, err
	}

	out, err := s.pipeline.Process(ctx, text)
	if err != nil {
		return nil, err
	}

	res := processResult{
		Reply:      out.Reply,
		Success:    out.Success,
		Path:       out.Path,
		Intent:     string(out.Decision.Intent.Intent),
		Tier:       out.Decision.Tier,
		Strategy:   out.Decision.Strategy,
		Confidence: out.Decision.Confidence,
		Error:      out.Error,
	}
	for _, exec := range out.Executions {
		res.Tools = append(res.Tools, exec.Resolution.Name)
	}
	s.logger.Info("Processed request",
		zap.String("path", res.Path), zap.String("tier", string(res.Tier)), zap.Bool("success", res.Success))
	return res, nil
}

func (s *Server) execExecute(ctx context.Context, tool string, args map[string]any) (any, error) {
	if tool == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "tool is required", nil)
	}

	exec, err := s.pipeline.Registry().Execute(ctx, tool, args)
	if err != nil {
		return nil, err
	}
	if exec.Resolution.Corrected() {
		return fmt.Sprintf("(ran %s for %q)\n%s", exec.Resolution.Name, tool, exec.Output), nil
	}
	return exec.Output, nil
}

// toolInfo is one router_tools entry.
type toolInfo struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Category    string         `json:"category,omitempty"`
	Score       float64        `json:"score,omitempty"`
	Schema      map[string]any `json:"inputSchema,omitempty"`
}

func (s *Server) execTools(query string, limit int) (any, error) {
	reg := s.pipeline.Registry()

	if strings.TrimSpace(query) == "" {
		tools := reg.Tools()
		out := make([]toolInfo, 0, len(tools))
		for _, t := range tools {
			out = append(out, toolInfo{Name: t.Name, Description: t.Description, Category: t.Category, Schema: t.JSONSchema()})
		}
		return out, nil
	}

	catalog := reg.Catalog()
	if catalog == nil {
		return nil, fmt.Errorf("tool search is unavailable")
	}
	hits, err := catalog.Search(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search tools: %w", err)
	}

	out := make([]toolInfo, 0, len(hits))
	for _, h := range hits {
		info := toolInfo{Name: h.Name, Description: h.Description, Category: h.Category, Score: h.Score}
		if t, ok := reg.Get(h.Name); ok {
			info.Schema = t.JSONSchema()
		}
		out = append(out, info)
	}
	return out, nil
}

// budgetResult is the router_budget payload.
type budgetResult struct {
	Complexity budget.Complexity `json:"complexity"`
	Allocation budget.Allocation `json:"allocation"`
	Report     budget.Report     `json:"report"`
}

func (s *Server) execBudget(text string, mode budget.Mode) (any, error) {
	if err := requireText(text); err != nil {
		return nil, err
	}
	c, alloc := s.pipeline.Budget(text, mode)
	return budgetResult{Complexity: c, Allocation: alloc, Report: budget.Validate(alloc)}, nil
}

// sessionView is the router_session payload.
type sessionView struct {
	ID               string                `json:"id"`
	Operations       int                   `json:"operations"`
	RecentOperations []session.Operation   `json:"recentOperations,omitempty"`
	Files            []session.TrackedFile `json:"files,omitempty"`
	ActiveProject    string                `json:"activeProject,omitempty"`
	Reset            bool                  `json:"reset,omitempty"`
}

func (s *Server) execSession(reset bool) (any, error) {
	if reset {
		s.pipeline.Reset()
	}

	store := s.pipeline.Store()
	snap := store.Snapshot()
	return sessionView{
		ID:               snap.ID,
		Operations:       len(snap.Operations),
		RecentOperations: store.RecentOperations(recentOpsShown, ""),
		Files:            store.TrackedFiles(),
		ActiveProject:    snap.ActiveProject,
		Reset:            reset,
	}, nil
}
