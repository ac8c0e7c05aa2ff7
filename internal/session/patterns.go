package session

import "sort"

// maxPatternValueLen excludes long parameter values (file bodies) from counting.
const maxPatternValueLen = 100

// UserPatterns counts what the user does successfully. Counters only grow
// until the session is reset, and are used for ranking only.
type UserPatterns struct {
	Tools          map[string]int            `json:"tools"`
	OperationTypes map[string]int            `json:"operationTypes"`
	Params         map[string]map[string]int `json:"params"`
	Tags           map[string]int            `json:"tags"`
}

// NewUserPatterns returns an empty aggregate.
func NewUserPatterns() *UserPatterns {
	return &UserPatterns{
		Tools:          make(map[string]int),
		OperationTypes: make(map[string]int),
		Params:         make(map[string]map[string]int),
		Tags:           make(map[string]int),
	}
}

func (p *UserPatterns) record(op Operation) {
	if op.Tool != "" {
		p.Tools[op.Tool]++
	}
	if op.Type != "" {
		p.OperationTypes[op.Type]++
	}
	for name, value := range op.Params {
		if len(value) > maxPatternValueLen {
			continue
		}
		values, ok := p.Params[name]
		if !ok {
			values = make(map[string]int)
			p.Params[name] = values
		}
		values[value]++
	}
	for _, tag := range op.Tags {
		p.Tags[tag]++
	}
}

// TopTools returns up to n tool names by descending count.
func (p *UserPatterns) TopTools(n int) []string {
	return topN(p.Tools, n)
}

// TopOperationTypes returns up to n operation types by descending count.
func (p *UserPatterns) TopOperationTypes(n int) []string {
	return topN(p.OperationTypes, n)
}

// TopParamValues returns up to n values seen for a parameter name.
func (p *UserPatterns) TopParamValues(param string, n int) []string {
	return topN(p.Params[param], n)
}

// ToolCount returns how many times tool succeeded.
func (p *UserPatterns) ToolCount(tool string) int {
	return p.Tools[tool]
}

func (p *UserPatterns) clone() *UserPatterns {
	c := NewUserPatterns()
	for k, v := range p.Tools {
		c.Tools[k] = v
	}
	for k, v := range p.OperationTypes {
		c.OperationTypes[k] = v
	}
	for name, values := range p.Params {
		m := make(map[string]int, len(values))
		for k, v := range values {
			m[k] = v
		}
		c.Params[name] = m
	}
	for k, v := range p.Tags {
		c.Tags[k] = v
	}
	return c
}

// topN ranks keys by count, breaking ties by name so results are deterministic.
func topN(counts map[string]int, n int) []string {
	if n <= 0 || len(counts) == 0 {
		return nil
	}
	keys := make([]string, 0, len(counts))
	for k, c := range counts {
		if c > 0 {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
