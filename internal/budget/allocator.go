package budget

import (
	"fmt"
	"math"
	"unicode/utf8"

	"go.uber.org/zap"
)

// DefaultContextWindow is used when a caller passes a non-positive window.
const DefaultContextWindow = 32768

// Floors applied by minimum-memory enforcement, as fractions of the window.
const (
	ReservedFloor = 0.02
	ResponseFloor = 0.10
)

// Range is an inclusive percentage range.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Profile is a mode's base split plus its adaptive ranges. Values are
// percentages of the context window.
type Profile struct {
	SystemPrompt       float64 `json:"systemPrompt"`
	ToolDefinitions    float64 `json:"toolDefinitions"`
	ConversationMemory float64 `json:"conversationMemory"`
	ResponseGeneration float64 `json:"responseGeneration"`
	SafetyMargin       float64 `json:"safetyMargin"`
	Reserved           float64 `json:"reserved"`

	ResponseRange Range `json:"responseRange"`
	MemoryRange   Range `json:"memoryRange"`
}

// Profiles holds the built-in allocation profiles.
var Profiles = map[Mode]Profile{
	ModeChat: {
		SystemPrompt:       8,
		ToolDefinitions:    0,
		ConversationMemory: 50,
		ResponseGeneration: 30,
		SafetyMargin:       5,
		Reserved:           7,
		ResponseRange:      Range{Min: 25, Max: 40},
		MemoryRange:        Range{Min: 40, Max: 55},
	},
	ModeTools: {
		SystemPrompt:       10,
		ToolDefinitions:    15,
		ConversationMemory: 40,
		ResponseGeneration: 25,
		SafetyMargin:       5,
		Reserved:           5,
		ResponseRange:      Range{Min: 20, Max: 35},
		MemoryRange:        Range{Min: 30, Max: 45},
	},
}

// Percentages are the adaptive split for one allocation.
type Percentages struct {
	SystemPrompt       float64 `json:"systemPrompt"`
	ToolDefinitions    float64 `json:"toolDefinitions"`
	ConversationMemory float64 `json:"conversationMemory"`
	ResponseGeneration float64 `json:"responseGeneration"`
	SafetyMargin       float64 `json:"safetyMargin"`
	Reserved           float64 `json:"reserved"`
}

// Allocation is a token budget for one turn.
type Allocation struct {
	Mode          Mode        `json:"mode"`
	ContextWindow int         `json:"contextWindow"`
	Complexity    float64     `json:"complexity"`
	Percentages   Percentages `json:"percentages"`

	SystemPrompt       int `json:"systemPrompt"`
	ToolDefinitions    int `json:"toolDefinitions"`
	ConversationMemory int `json:"conversationMemory"`
	ResponseGeneration int `json:"responseGeneration"`
	SafetyMargin       int `json:"safetyMargin"`
	Reserved           int `json:"reserved"`

	// MinMemory is the requested minimum; MemoryShortfall is what the floors
	// left uncovered.
	MinMemory       int  `json:"minMemory,omitempty"`
	MemoryShortfall int  `json:"memoryShortfall,omitempty"`
	MemoryAdjusted  bool `json:"memoryAdjusted,omitempty"`
}

// Total sums every bucket.
func (a Allocation) Total() int {
	return a.SystemPrompt + a.ToolDefinitions + a.ConversationMemory +
		a.ResponseGeneration + a.SafetyMargin + a.Reserved
}

// Allocator converts complexity scores into allocations.
type Allocator struct {
	profiles map[Mode]Profile
	logger   *zap.Logger
}

// NewAllocator returns an allocator over the built-in profiles.
func NewAllocator(logger *zap.Logger) *Allocator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Allocator{profiles: Profiles, logger: logger}
}

// AllocateText analyzes text and allocates for it.
func (a *Allocator) AllocateText(text string, mode Mode, window, minMemory int) (Complexity, Allocation) {
	c := Analyze(text, mode)
	return c, a.Allocate(c.Score, mode, window, minMemory)
}

// Allocate splits window for complexity c. It never fails: out of range
// inputs are clamped.
func (a *Allocator) Allocate(c float64, mode Mode, window, minMemory int) Allocation {
	profile, ok := a.profiles[mode]
	if !ok {
		a.logger.Warn("Unknown budget mode, using chat", zap.String("mode", string(mode)))
		mode = ModeChat
		profile = a.profiles[ModeChat]
	}
	if window <= 0 {
		a.logger.Warn("Invalid context window, using default",
			zap.Int("window", window), zap.Int("default", DefaultContextWindow))
		window = DefaultContextWindow
	}
	c = clamp01(c)

	pct := Percentages{
		SystemPrompt:       profile.SystemPrompt,
		ToolDefinitions:    profile.ToolDefinitions,
		SafetyMargin:       profile.SafetyMargin,
		ResponseGeneration: profile.ResponseRange.Min + c*(profile.ResponseRange.Max-profile.ResponseRange.Min),
		ConversationMemory: profile.MemoryRange.Max - c*(profile.MemoryRange.Max-profile.MemoryRange.Min),
	}
	pct.Reserved = math.Max(ReservedFloor*100,
		100-pct.SystemPrompt-pct.ToolDefinitions-pct.SafetyMargin-pct.ResponseGeneration-pct.ConversationMemory)

	tokens := func(p float64) int { return int(p / 100 * float64(window)) }
	alloc := Allocation{
		Mode:               mode,
		ContextWindow:      window,
		Complexity:         c,
		Percentages:        pct,
		SystemPrompt:       tokens(pct.SystemPrompt),
		ToolDefinitions:    tokens(pct.ToolDefinitions),
		ConversationMemory: tokens(pct.ConversationMemory),
		ResponseGeneration: tokens(pct.ResponseGeneration),
		SafetyMargin:       tokens(pct.SafetyMargin),
		Reserved:           tokens(pct.Reserved),
	}

	if minMemory > 0 {
		alloc.MinMemory = minMemory
		a.enforceMinMemory(&alloc)
	}
	return alloc
}

// enforceMinMemory grows memory to the requested minimum, taking tokens from
// reserved and then response, never below their floors.
func (a *Allocator) enforceMinMemory(alloc *Allocation) {
	shortfall := alloc.MinMemory - alloc.ConversationMemory
	if shortfall <= 0 {
		return
	}
	window := float64(alloc.ContextWindow)

	take := func(bucket *int, floor int) {
		avail := *bucket - floor
		if avail <= 0 || shortfall <= 0 {
			return
		}
		n := min(avail, shortfall)
		*bucket -= n
		alloc.ConversationMemory += n
		shortfall -= n
	}
	take(&alloc.Reserved, int(ReservedFloor*window))
	take(&alloc.ResponseGeneration, int(ResponseFloor*window))

	alloc.MemoryAdjusted = true
	if shortfall > 0 {
		alloc.MemoryShortfall = shortfall
		a.logger.Warn("Minimum memory not satisfiable",
			zap.Int("minMemory", alloc.MinMemory),
			zap.Int("memory", alloc.ConversationMemory),
			zap.Int("shortfall", shortfall))
	}
}

// Report is the result of Validate. Allocated excludes the reserved
// remainder; Utilization is Allocated over Window.
type Report struct {
	Total        int      `json:"total"`
	Allocated    int      `json:"allocated"`
	Window       int      `json:"window"`
	WithinWindow bool     `json:"withinWindow"`
	Utilization  float64  `json:"utilization"`
	Warnings     []string `json:"warnings,omitempty"`
}

// Validation thresholds.
const (
	HighUtilization = 95.0
	LowResponse     = 0.10
	LowMemory       = 0.30
)

// Validate reports on alloc without modifying it.
func Validate(alloc Allocation) Report {
	r := Report{Total: alloc.Total(), Allocated: alloc.Total() - alloc.Reserved, Window: alloc.ContextWindow}
	r.WithinWindow = r.Total <= r.Window
	if r.Window > 0 {
		r.Utilization = float64(r.Allocated) / float64(r.Window) * 100
	}
	if r.Utilization > HighUtilization {
		r.Warnings = append(r.Warnings, fmt.Sprintf("high utilization: %.1f%%", r.Utilization))
	}
	if float64(alloc.ResponseGeneration) < LowResponse*float64(r.Window) {
		r.Warnings = append(r.Warnings, "response allocation below 10% of window, output may truncate")
	}
	if float64(alloc.ConversationMemory) < LowMemory*float64(r.Window) {
		r.Warnings = append(r.Warnings, "memory allocation below 30% of window, may lose context")
	}
	return r
}

// EstimateTokens approximates the token count of text at four characters
// per token.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}
