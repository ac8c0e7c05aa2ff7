/*
Package history persists the conversation across runs.

A Record holds the messages of the current conversation, a capped list of
recent full transcripts and a capped list of one-line summaries. When a
transcript falls off the recent list it is demoted to a summary; when the
summaries overflow the oldest is dropped.
*/
package history

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/zeebo/blake3"

	"github.com/khanglvm/tool-router/internal/backend"
	"github.com/khanglvm/tool-router/internal/budget"
)

// Default caps.
const (
	DefaultMaxRecent    = 5
	DefaultMaxSummaries = 20

	summaryTextLimit = 120
)

// Conversation is an archived transcript.
type Conversation struct {
	// ID is a content hash of the transcript.
	ID       string            `json:"id"`
	Started  time.Time         `json:"started"`
	Ended    time.Time         `json:"ended"`
	Messages []backend.Message `json:"messages"`
}

// Summary is a demoted transcript.
type Summary struct {
	Date string `json:"date"`
	Text string `json:"text"`
}

// Record is the persisted history document.
type Record struct {
	Current   []backend.Message `json:"current"`
	Started   time.Time         `json:"started,omitempty"`
	Recent    []Conversation    `json:"recent"`
	Summaries []Summary         `json:"summaries"`
}

// Limits caps the recent and summary lists.
type Limits struct {
	MaxRecent    int
	MaxSummaries int
}

func (l Limits) normalized() Limits {
	if l.MaxRecent <= 0 {
		l.MaxRecent = DefaultMaxRecent
	}
	if l.MaxSummaries <= 0 {
		l.MaxSummaries = DefaultMaxSummaries
	}
	return l
}

// Append adds a message to the current conversation.
func (r *Record) Append(now time.Time, msgs ...backend.Message) {
	if len(r.Current) == 0 {
		r.Started = now
	}
	r.Current = append(r.Current, msgs...)
}

// Archive moves the current conversation to the recent list and enforces
// the caps. An empty current conversation is a no-op.
func (r *Record) Archive(now time.Time, limits Limits) {
	if len(r.Current) == 0 {
		return
	}
	started := r.Started
	if started.IsZero() {
		started = now
	}
	r.Recent = append(r.Recent, Conversation{
		ID:       Hash(r.Current),
		Started:  started,
		Ended:    now,
		Messages: r.Current,
	})
	r.Current = nil
	r.Started = time.Time{}
	r.enforce(limits)
}

func (r *Record) enforce(limits Limits) {
	limits = limits.normalized()
	for len(r.Recent) > limits.MaxRecent {
		r.Summaries = append(r.Summaries, Summarize(r.Recent[0]))
		r.Recent = r.Recent[1:]
	}
	if over := len(r.Summaries) - limits.MaxSummaries; over > 0 {
		r.Summaries = r.Summaries[over:]
	}
}

// Window returns the newest current messages whose estimated size fits in
// maxTokens, oldest first. maxTokens <= 0 returns nothing.
func (r *Record) Window(maxTokens int) []backend.Message {
	used := 0
	start := len(r.Current)
	for i := len(r.Current) - 1; i >= 0; i-- {
		cost := budget.EstimateTokens(r.Current[i].Content) + 4
		if used+cost > maxTokens {
			break
		}
		used += cost
		start = i
	}
	return append([]backend.Message(nil), r.Current[start:]...)
}

// Clone returns a deep copy safe to hand to another goroutine.
func (r *Record) Clone() *Record {
	out := &Record{
		Current:   cloneMessages(r.Current),
		Started:   r.Started,
		Recent:    make([]Conversation, len(r.Recent)),
		Summaries: append([]Summary(nil), r.Summaries...),
	}
	for i, c := range r.Recent {
		c.Messages = cloneMessages(c.Messages)
		out.Recent[i] = c
	}
	return out
}

func cloneMessages(msgs []backend.Message) []backend.Message {
	if msgs == nil {
		return nil
	}
	out := make([]backend.Message, len(msgs))
	for i, m := range msgs {
		m.ToolCalls = append([]backend.ToolCall(nil), m.ToolCalls...)
		out[i] = m
	}
	return out
}

// Summarize condenses a transcript to its first user request.
func Summarize(c Conversation) Summary {
	first := ""
	for _, m := range c.Messages {
		if m.Role == backend.RoleUser {
			first = strings.Join(strings.Fields(m.Content), " ")
			break
		}
	}
	if len(first) > summaryTextLimit {
		first = first[:summaryTextLimit] + "..."
	}
	if first == "" {
		first = "(no user messages)"
	}
	return Summary{
		Date: c.Started.Format("2006-01-02"),
		Text: fmt.Sprintf("%s (%d messages)", first, len(c.Messages)),
	}
}

// Hash returns a short blake3 digest of the messages' roles and content.
func Hash(msgs []backend.Message) string {
	h := blake3.New()
	for _, m := range msgs {
		h.Write([]byte(m.Role))
		h.Write([]byte{0})
		h.Write([]byte(m.Content))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)[:8])
}
