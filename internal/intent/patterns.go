package intent

import "regexp"

// Pattern weights.
const (
	BaseWeight    = 1.0
	BoosterWeight = 0.5
)

// Pattern is one row of a scoring table.
type Pattern struct {
	Intent  Intent
	Expr    *regexp.Regexp
	Weight  float64
	Booster bool
}

func base(i Intent, expr string) Pattern {
	return Pattern{Intent: i, Expr: regexp.MustCompile(`(?i)` + expr), Weight: BaseWeight}
}

func booster(i Intent, expr string) Pattern {
	return Pattern{Intent: i, Expr: regexp.MustCompile(`(?i)` + expr), Weight: BoosterWeight, Booster: true}
}

// DefaultPatterns is the base classification table.
var DefaultPatterns = []Pattern{
	base(ContentCreation, `\b(write|create|make|generate|draft|compose)\b`),
	base(ContentCreation, `\b(guide|tutorial|document|doc|article|readme|notes?|report|essay|story|poem|letter|file)\b`),
	base(ContentCreation, `\b(write|create|make|generate|draft)\s+(me\s+)?(a|an|some|the)\b`),
	booster(ContentCreation, `\b(markdown|content|text|section|chapter|outline)\b`),
	booster(ContentCreation, `\b(guide|tutorial|article|doc)\s+(for|on|about)\b`),

	base(FileManagement, `\b(list|show|display)\b.*\b(files?|folders?|director(y|ies))\b`),
	base(FileManagement, `\b(delete|remove|copy|move|rename|backup|back\s+up|compress|zip|archive)\b`),
	base(FileManagement, `\b(read|open|view|cat)\b`),
	base(FileManagement, `\b(search|find|locate|grep)\b`),
	base(FileManagement, `\b(folders?|director(y|ies)|dir)\b`),
	booster(FileManagement, `\b(all|every)\s+(the\s+)?(files?|folders?)\b`),
	booster(FileManagement, `\b(into|to|from)\s+[\w\-.]*/`),

	base(SoftwareInstallation, `\b(install|uninstall|upgrade|download|set\s*up)\b`),
	base(SoftwareInstallation, `\b(npm|pip|brew|apt|apt-get|yum|dnf|choco|winget|cargo|snap)\b`),
	base(SoftwareInstallation, `\b(git|docker|node|nodejs|python|java|kubectl|terraform|vscode|postgres(ql)?|redis|nginx|golang|rust)\b`),
	base(SoftwareInstallation, `\bhow\s+(do\s+i|to)\s+(install|get|set\s*up)\b`),
	booster(SoftwareInstallation, `\b(package|dependency|dependencies|latest\s+version)\b`),
	booster(SoftwareInstallation, `\b(on|for)\s+(windows|mac|macos|linux|ubuntu|debian|fedora)\b`),

	base(InformationRequest, `^\s*(what|why|how|when|where|who|which)\b`),
	base(InformationRequest, `\b(explain|describe|tell\s+me|what\s+is|what\s+are|difference\s+between)\b`),
	base(InformationRequest, `\?\s*$`),
	booster(InformationRequest, `\b(meaning|definition|concept|purpose)\b`),
	booster(InformationRequest, `\b(can|could)\s+you\s+(explain|tell)\b`),
}

// ContinuationPatterns confirm a continuation request once a prior reference is known.
var ContinuationPatterns = compileAll(
	`\b(continue|append|extend|expand|update)\b`,
	`\badd\s+(more|another|a\s+(new\s+)?section|to)\b`,
	`\bnext\s+(part|section|chapter|step)\b`,
)

// ProjectScopePatterns mark a request as project-level.
var ProjectScopePatterns = compileAll(
	`\bproject\s+(structure|layout|skeleton|template|scaffold)\b`,
	`\bset\s*up\s+(a\s+|the\s+|my\s+)?workspace\b`,
	`\b(scaffold|boilerplate)\b`,
	`\bfolder\s+structure\b`,
	`\bnew\s+project\b`,
)

// ContextualPattern is a row of the contextual override table.
type ContextualPattern struct {
	Intent Intent
	Expr   *regexp.Regexp
	Weight float64
}

func contextual(i Intent, w float64, expr string) ContextualPattern {
	return ContextualPattern{Intent: i, Expr: regexp.MustCompile(`(?i)` + expr), Weight: w}
}

// ContextualPatterns score continuation, file-reference and project cues
// independently of the base table.
var ContextualPatterns = []ContextualPattern{
	contextual(ContentContinuation, 0.5, `\b(continue|keep\s+going|carry\s+on)\b`),
	contextual(ContentContinuation, 0.3, `\b(add|append)\s+(more|another|to)\b`),
	contextual(ContentContinuation, 0.3, `\bnext\s+(part|section|chapter)\b`),
	contextual(FileManagement, 0.4, `\b(the|that|this)\s+(same\s+)?(file|document)\b`),
	contextual(FileManagement, 0.3, `\b(we|you|i)\s+(just\s+)?(created|made|wrote)\b`),
	contextual(FileManagement, 0.3, `\b(show|open|read)\s+(it|that)\b`),
	contextual(ProjectManagement, 0.5, `\bproject\s+(structure|layout|skeleton)\b`),
	contextual(ProjectManagement, 0.3, `\b(scaffold|boilerplate|workspace)\b`),
	contextual(ProjectManagement, 0.3, `\bnew\s+project\b`),
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(`(?i)` + e)
	}
	return out
}

func matchesAny(exprs []*regexp.Regexp, text string) bool {
	for _, re := range exprs {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
