package pipeline

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/khanglvm/tool-router/internal/backend"
	apperrors "github.com/khanglvm/tool-router/internal/errors"
	"github.com/khanglvm/tool-router/internal/learning"
	"github.com/khanglvm/tool-router/internal/selection"
	"github.com/khanglvm/tool-router/internal/session"
)

// Recorded values are clipped to these lengths.
const (
	maxResultLen = 200
	maxParamLen  = 2000
)

// multiStepTag marks turns that carried a multi-step plan.
const multiStepTag = "multi_step"

// recordTurn writes one operation into the session, forwards it to the
// learning tracker and appends the exchange to the conversation history.
func (p *Pipeline) recordTurn(out *Outcome) {
	d := out.Decision
	primary := primaryIndex(out)
	tool, params := d.Plan.Tool, d.Plan.Params
	switch {
	case primary >= 0:
		tool, params = out.Executions[primary].Resolution.Name, out.Executions[primary].Args
	case out.Success:
		// A reply with no tool calls: nothing was executed on the plan's behalf.
		tool, params = "", nil
	}
	opType := selection.OperationTypeFor(tool)

	tags := []string{
		"intent:" + string(d.Intent.Intent),
		"tier:" + string(d.Tier),
		"path:" + out.Path,
	}
	if d.Plan.MultiStep {
		tags = append(tags, multiStepTag, "template:"+d.Plan.Template)
		if project := projectName(out); project != "" {
			tags = append(tags, "project:"+project)
		}
	}

	result := out.Reply
	if !out.Success && out.Error != "" {
		result = out.Error
	}

	// The operation below tracks the primary file, but only on success.
	for i, exec := range out.Executions {
		if i == primary && out.Success {
			continue
		}
		name := exec.Resolution.Name
		p.store.TrackFile(selection.OperationTypeFor(name), name, stringParams(exec.Args), tags)
	}

	op := p.store.AddOperation(opType, tool, stringParams(params), apperrors.Truncate(result, maxResultLen), out.Success, tags)
	p.logger.Debug("recorded operation",
		zap.String("type", op.Type), zap.String("tool", op.Tool), zap.Bool("success", op.Success))

	if p.tracker != nil {
		p.tracker.Track(learning.NewOperationEvent(
			p.store.SessionID(), opType, tool, string(d.Intent.Intent), string(d.Tier), out.Path,
			d.Confidence, out.Success, d.Text))
	}

	p.mu.Lock()
	p.record.Append(p.now(),
		backend.Message{Role: backend.RoleUser, Content: d.Text},
		backend.Message{Role: backend.RoleAssistant, Content: out.Reply})
	snapshot := p.record.Clone()
	p.mu.Unlock()

	if p.writer != nil {
		p.writer.Enqueue(snapshot)
	}
}

// primaryIndex picks the execution that represents the turn: the last
// file-producing one, else the first. It returns -1 when nothing ran.
func primaryIndex(out *Outcome) int {
	primary := -1
	for i, exec := range out.Executions {
		if session.FileProducingTools[exec.Resolution.Name] {
			primary = i
		}
	}
	if primary < 0 && len(out.Executions) > 0 {
		primary = 0
	}
	return primary
}

// projectName is the folder created by a project scaffold, if any.
func projectName(out *Outcome) string {
	if out.Decision.Plan.Template != "project_structure" {
		return ""
	}
	for _, exec := range out.Executions {
		if exec.Resolution.Name == selection.ToolCreateFolder {
			if name, ok := exec.Args["folder_name"].(string); ok {
				return name
			}
		}
	}
	return ""
}

func stringParams(params map[string]any) map[string]string {
	if len(params) == 0 {
		return nil
	}
	out := make(map[string]string, len(params))
	for k, v := range params {
		out[k] = apperrors.Truncate(fmt.Sprint(v), maxParamLen)
	}
	return out
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
