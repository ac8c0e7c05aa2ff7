package intent

import (
	"fmt"

	"github.com/khanglvm/tool-router/internal/session"
)

// SpecificityRanking is the last-resort order for breaking ties.
var SpecificityRanking = []Intent{
	SoftwareInstallation,
	ContentCreation,
	FileManagement,
	ProjectManagement,
	ContentContinuation,
	InformationRequest,
}

// OperationTypeIntents maps recorded operation types back to intents.
var OperationTypeIntents = map[string]Intent{
	"file_creation":    ContentCreation,
	"file_update":      ContentContinuation,
	"file_read":        FileManagement,
	"file_deletion":    FileManagement,
	"file_copy":        FileManagement,
	"file_move":        FileManagement,
	"file_listing":     FileManagement,
	"file_search":      FileManagement,
	"file_compression": FileManagement,
	"folder_creation":  FileManagement,
	"folder_deletion":  FileManagement,
	"folder_copy":      FileManagement,
	"installation":     SoftwareInstallation,
	"project_setup":    ProjectManagement,
	"information":      InformationRequest,
}

// intentForOperationType accepts both mapped types and raw intent names.
func intentForOperationType(opType string) (Intent, bool) {
	if in, ok := OperationTypeIntents[opType]; ok {
		return in, true
	}
	for _, in := range SpecificityRanking {
		if string(in) == opType {
			return in, true
		}
	}
	return "", false
}

// resolveAmbiguity breaks a base tie. The first rule that fires decides.
func (r *Refiner) resolveAmbiguity(base Result, bundle session.ContextBundle) Result {
	res := base
	res.Reasoning = append([]string(nil), base.Reasoning...)
	tied := base.Tied

	decide := func(in Intent, conf float64, why string) Result {
		res.Intent = in
		res.Confidence = clamp01(conf)
		res.Justification = why
		res.addReason(why)
		return res
	}

	if bundle.Signals.ReferencesPrevious && containsIntent(tied, FileManagement) && containsIntent(tied, ContentCreation) {
		return decide(FileManagement, r.opts.PreviousReferenceConfidence,
			"text refers to earlier work, favouring file management")
	}

	counts := make(map[Intent]int)
	for _, op := range bundle.RecentOperations {
		if in, ok := intentForOperationType(op.Type); ok && containsIntent(tied, in) {
			counts[in]++
		}
	}
	var bestRecent Intent
	for _, in := range tied {
		if counts[in] > counts[bestRecent] {
			bestRecent = in
		}
	}
	if bestRecent != "" {
		return decide(bestRecent, r.opts.RecentOperationsConfidence,
			fmt.Sprintf("consistent with %d of the last operations", counts[bestRecent]))
	}

	for _, tool := range bundle.PreferredTools {
		for _, in := range tied {
			for _, expected := range ExpectedTools[in] {
				if expected == tool {
					return decide(in, r.opts.PreferredToolConfidence,
						fmt.Sprintf("user prefers %s", tool))
				}
			}
		}
	}

	for _, in := range SpecificityRanking {
		if containsIntent(tied, in) {
			return decide(in, r.opts.SpecificityConfidence,
				fmt.Sprintf("%s is the most specific tied intent", in))
		}
	}

	return decide(tied[0], r.opts.SpecificityConfidence, "first tied intent")
}
