package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/khanglvm/tool-router/internal/backend"
	apperrors "github.com/khanglvm/tool-router/internal/errors"
	"github.com/khanglvm/tool-router/internal/registry"
)

// Execution paths recorded on each turn.
const (
	PathDirect          = "direct"
	PathModel           = "model"
	PathDirectThenModel = "direct_then_model"
)

// Outcome is the result of Process.
type Outcome struct {
	Decision   Decision             `json:"decision"`
	Path       string               `json:"path"`
	Executions []registry.Execution `json:"executions,omitempty"`
	Reply      string               `json:"reply"`
	Success    bool                 `json:"success"`
	// Error describes a failed direct attempt or tool; the turn still completes.
	Error string `json:"error,omitempty"`
}

// Process decides and executes one turn, then records it. The returned error
// is non-nil only when the model backend could not be reached or, in strict
// mode, when the input could not be decided.
func (p *Pipeline) Process(ctx context.Context, text string) (*Outcome, error) {
	d, err := p.Decide(text)
	if err != nil {
		return &Outcome{Decision: d, Error: err.Error()}, err
	}

	out := &Outcome{Decision: d}
	var backendErr error

	switch d.Strategy {
	case StrategyDirect:
		out.Path = PathDirect
		p.direct(ctx, out)

	case StrategyDirectThenModel:
		out.Path = PathDirect
		if failure := p.direct(ctx, out); failure != nil {
			out.Path = PathDirectThenModel
			backendErr = p.model(ctx, out, failure)
		}

	default:
		out.Path = PathModel
		backendErr = p.model(ctx, out, nil)
	}

	p.recordTurn(out)

	if backendErr != nil {
		return out, apperrors.New(apperrors.ErrCodeBackendUnavailable, "model backend unavailable", backendErr).WithInput(text)
	}
	return out, nil
}

// direct runs every plan step in order and stops at the first failure,
// which it returns.
func (p *Pipeline) direct(ctx context.Context, out *Outcome) error {
	var outputs []string
	for i, step := range out.Decision.Plan.Steps {
		exec, err := p.registry.Execute(ctx, step.Tool, step.Params)
		if err != nil {
			failure := fmt.Errorf("step %d (%s): %w", i+1, step.Tool, err)
			p.logger.Warn("direct execution failed", zap.String("tool", step.Tool), zap.Error(err))
			out.Success = false
			out.Error = failure.Error()
			out.Reply = strings.Join(append(outputs, "Failed: "+describe(err)), "\n")
			return failure
		}
		out.Executions = append(out.Executions, *exec)
		outputs = append(outputs, exec.Output)
	}
	out.Success = true
	out.Error = ""
	out.Reply = strings.Join(outputs, "\n")
	return nil
}

// model runs the tool-calling loop. Only a failure to get any reply from the
// backend is returned.
func (p *Pipeline) model(ctx context.Context, out *Outcome, failure error) error {
	if p.backend == nil {
		out.Success = false
		if out.Reply == "" {
			out.Reply = "No model backend is configured."
		}
		return backend.ErrBackendUnavailable
	}

	d := out.Decision
	msgs := []backend.Message{
		{Role: backend.RoleSystem, Content: p.opts.SystemPrompt},
		{Role: backend.RoleSystem, Content: Annotation(d, failure)},
	}
	p.mu.Lock()
	msgs = append(msgs, p.record.Window(d.Budget.ConversationMemory)...)
	p.mu.Unlock()
	msgs = append(msgs, backend.Message{Role: backend.RoleUser, Content: d.Text})

	req := backend.ChatRequest{Tools: p.toolSchemas(), MaxTokens: d.Budget.ResponseGeneration}
	var toolErrs []string

	for round := 0; round < p.opts.MaxToolRounds; round++ {
		req.Messages = msgs
		resp, err := p.backend.Chat(ctx, req)
		if err != nil {
			p.logger.Warn("model call failed", zap.Int("round", round), zap.Error(err))
			out.Success = false
			out.Error = err.Error()
			return err
		}

		if !resp.HasToolCalls() {
			out.Reply = resp.Text
			out.Success = true
			if len(toolErrs) > 0 {
				out.Error = strings.Join(toolErrs, "; ")
			}
			return nil
		}

		msgs = append(msgs, backend.Message{Role: backend.RoleAssistant, Content: resp.Text, ToolCalls: resp.ToolCalls})
		for _, call := range resp.ToolCalls {
			exec, err := p.registry.Execute(ctx, call.Name, call.Arguments)
			if err != nil {
				toolErrs = append(toolErrs, fmt.Sprintf("%s: %s", call.Name, describe(err)))
				msgs = append(msgs, backend.Message{Role: backend.RoleTool, ToolName: call.Name, Content: "error: " + describe(err)})
				continue
			}
			if exec.Resolution.Corrected() {
				p.logger.Info("corrected tool name",
					zap.String("requested", call.Name), zap.String("tool", exec.Resolution.Name), zap.String("method", exec.Resolution.Method))
			}
			out.Executions = append(out.Executions, *exec)
			msgs = append(msgs, backend.Message{Role: backend.RoleTool, ToolName: exec.Resolution.Name, Content: exec.Output})
		}
	}

	out.Reply = fmt.Sprintf("Stopped after %d tool rounds.", p.opts.MaxToolRounds)
	out.Success = len(out.Executions) > 0
	if len(toolErrs) > 0 {
		out.Error = strings.Join(toolErrs, "; ")
	}
	return nil
}

// toolSchemas advertises every registered tool to the model.
func (p *Pipeline) toolSchemas() []backend.ToolSchema {
	tools := p.registry.Tools()
	out := make([]backend.ToolSchema, 0, len(tools))
	for _, t := range tools {
		out = append(out, backend.ToolSchema{Name: t.Name, Description: t.Description, Parameters: t.JSONSchema()})
	}
	return out
}

// describe renders an error with any suggested alternatives.
func describe(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && len(appErr.Alternatives) > 0 {
		return fmt.Sprintf("%s (did you mean: %s)", err.Error(), strings.Join(appErr.Alternatives, ", "))
	}
	return err.Error()
}

// Annotation is the advisory system message given to the model.
func Annotation(d Decision, failure error) string {
	var b strings.Builder
	b.WriteString("Routing analysis (advisory, the user's explicit request wins):\n")
	fmt.Fprintf(&b, "- intent: %s (confidence %.2f, tier %s)\n", d.Intent.Intent, d.Confidence, d.Tier)
	if d.Plan.HasTool() {
		fmt.Fprintf(&b, "- recommended tool: %s\n", d.Plan.Tool)
	}
	if d.Plan.MultiStep {
		fmt.Fprintf(&b, "- multi-step plan (%s):\n", d.Plan.Template)
		for i, s := range d.Plan.Steps {
			fmt.Fprintf(&b, "  %d. %s %s\n", i+1, s.Tool, formatParams(s.Params))
		}
	}
	if len(d.Context.PreferredTools) > 0 {
		fmt.Fprintf(&b, "- preferred tools: %s\n", strings.Join(d.Context.PreferredTools, ", "))
	}
	if len(d.Context.RecentFiles) > 0 {
		names := make([]string, len(d.Context.RecentFiles))
		for i, f := range d.Context.RecentFiles {
			names[i] = f.Name
		}
		fmt.Fprintf(&b, "- recent files: %s\n", strings.Join(names, ", "))
	}
	if len(d.MissingArgs) > 0 {
		fmt.Fprintf(&b, "- arguments to supply: %s\n", strings.Join(d.MissingArgs, ", "))
	}
	if failure != nil {
		fmt.Fprintf(&b, "- direct attempt failed: %s\n", failure)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatParams(params map[string]any) string {
	if len(params) == 0 {
		return ""
	}
	keys := sortedKeys(params)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, params[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
