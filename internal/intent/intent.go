/*
Package intent classifies a turn's text into a coarse user goal.

Classification runs in two phases. The Scorer matches the text against
regular-expression tables and returns a best guess plus an ambiguity flag.
The Refiner then adjusts that guess using the session's context bundle:
continuation and project-scope re-classification, preference boosts, a
contextual override table and a fixed ladder for breaking ties.
*/
package intent

// Intent is a coarse user goal.
type Intent string

// Intent vocabulary.
const (
	ContentCreation      Intent = "content_creation"
	FileManagement       Intent = "file_management"
	SoftwareInstallation Intent = "software_installation"
	InformationRequest   Intent = "information_request"
	ContentContinuation  Intent = "content_continuation"
	ProjectManagement    Intent = "project_management"
	Unclear              Intent = "UNCLEAR"
)

// BaseIntents are the categories the base Scorer can produce, in table order.
// Table order also decides which tied intent is reported as the best guess.
var BaseIntents = []Intent{
	ContentCreation,
	FileManagement,
	SoftwareInstallation,
	InformationRequest,
}

// ExpectedTools lists the tools that typically satisfy each intent.
var ExpectedTools = map[Intent][]string{
	ContentCreation:     {"create_file", "write_file", "write_json"},
	ContentContinuation: {"write_file", "read_file"},
	FileManagement: {
		"list_files", "read_file", "delete_file", "copy_file", "move_file",
		"search_files", "compress_files", "create_folder", "delete_folder",
		"copy_folder", "read_json",
	},
	SoftwareInstallation: {"generate_install_commands"},
	ProjectManagement:    {"create_folder", "create_file"},
	InformationRequest:   nil,
}

// Result is a classification outcome. Soft failures (ties, no match) are
// expressed here rather than as errors.
type Result struct {
	Intent     Intent             `json:"intent"`
	Confidence float64            `json:"confidence"`
	Reasoning  []string           `json:"reasoning,omitempty"`
	Ambiguous  bool               `json:"ambiguous,omitempty"`
	Tied       []Intent           `json:"tied,omitempty"`
	Scores     map[Intent]float64 `json:"scores,omitempty"`

	// Justification explains how an ambiguous tie was broken.
	Justification string `json:"justification,omitempty"`
}

// UnclearResult is the safe default for a turn that could not be classified.
func UnclearResult(reason string) Result {
	return Result{Intent: Unclear, Confidence: 0, Reasoning: []string{reason}}
}

func (r *Result) addReason(reason string) {
	r.Reasoning = append(r.Reasoning, reason)
}

// clamp01 bounds a confidence to [0, 1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func containsIntent(list []Intent, target Intent) bool {
	for _, i := range list {
		if i == target {
			return true
		}
	}
	return false
}

// scoreMap renders intent scores with string keys for error context.
func scoreMap(scores map[Intent]float64) map[string]float64 {
	out := make(map[string]float64, len(scores))
	for k, v := range scores {
		out[string(k)] = v
	}
	return out
}
