package session

import (
	"regexp"
	"strings"
)

// Signals are cheap text cues derived from the current turn.
type Signals struct {
	ReferencesPrevious   bool `json:"referencesPrevious"`
	MentionsFile         bool `json:"mentionsFile"`
	SuggestsContinuation bool `json:"suggestsContinuation"`
	IndicatesNewProject  bool `json:"indicatesNewProject"`
}

// Keyword tables, matched case-insensitively on word boundaries.
var (
	PreviousReferencePhrases = []string{
		"the file", "that file", "this file", "the same file", "previous",
		"we created", "you created", "i created", "we made", "you made",
		"just created", "last one", "earlier", "that document", "the document",
		"it again",
	}
	ContinuationPhrases = []string{
		"continue", "next", "add to", "update", "extend", "append",
		"more to", "another section", "expand", "keep going", "part 2",
	}
	NewProjectPhrases = []string{
		"new project", "start fresh", "from scratch", "start over",
		"brand new", "new workspace",
	}
)

var (
	fileExtPattern = `(?:md|txt|py|go|js|ts|json|ya?ml|toml|xml|html|css|sh|csv|sql|rs|java|rb|log|ini|cfg|conf)`
	fileTokenRe    = regexp.MustCompile(`(?i)(?:^|[\s"'(,\x60])([\w\-./]*\w\.` + fileExtPattern + `)\b`)
	fileWordRe     = regexp.MustCompile(`(?i)\b(?:file|document|script|guide)s?\b`)
	previousRe     = phraseRegexp(PreviousReferencePhrases)
	continuationRe = phraseRegexp(ContinuationPhrases)
	newProjectRe   = phraseRegexp(NewProjectPhrases)
)

// phraseRegexp compiles a word-bounded alternation of literal phrases.
func phraseRegexp(phrases []string) *regexp.Regexp {
	quoted := make([]string, len(phrases))
	for i, p := range phrases {
		quoted[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// AnalyzeText derives the turn's signals and any file names it mentions.
func AnalyzeText(text string) (Signals, []string) {
	files := ExtractFileNames(text)
	return Signals{
		ReferencesPrevious:   previousRe.MatchString(text),
		MentionsFile:         len(files) > 0 || fileWordRe.MatchString(text),
		SuggestsContinuation: continuationRe.MatchString(text),
		IndicatesNewProject:  newProjectRe.MatchString(text),
	}, files
}

// ExtractFileNames returns distinct name.ext tokens in order of appearance.
func ExtractFileNames(text string) []string {
	matches := fileTokenRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		name := strings.TrimRight(m[1], ".")
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
