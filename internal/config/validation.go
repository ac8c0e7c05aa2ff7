package config

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap/zapcore"
)

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.Model.Endpoint == "" {
		result = multierror.Append(result, fmt.Errorf("model.endpoint: must not be empty"))
	} else if !strings.HasPrefix(c.Model.Endpoint, "http://") && !strings.HasPrefix(c.Model.Endpoint, "https://") {
		result = multierror.Append(result, fmt.Errorf("model.endpoint: %q is not an http(s) URL", c.Model.Endpoint))
	}
	if c.Model.Name == "" {
		result = multierror.Append(result, fmt.Errorf("model.name: must not be empty"))
	}
	if c.Model.TimeoutSeconds < 0 {
		result = multierror.Append(result, fmt.Errorf("model.timeoutSeconds: must be >= 0, got %d", c.Model.TimeoutSeconds))
	}
	if c.Model.ContextWindow < 512 {
		result = multierror.Append(result, fmt.Errorf("model.contextWindow: must be >= 512, got %d", c.Model.ContextWindow))
	}
	if c.Pipeline.MaxToolRounds < 1 || c.Pipeline.MaxToolRounds > 20 {
		result = multierror.Append(result, fmt.Errorf("pipeline.maxToolRounds: must be in [1, 20], got %d", c.Pipeline.MaxToolRounds))
	}
	if c.Budget.MinMemoryTokens < 0 {
		result = multierror.Append(result, fmt.Errorf("budget.minMemoryTokens: must be >= 0, got %d", c.Budget.MinMemoryTokens))
	} else if c.Budget.MinMemoryTokens >= c.Model.ContextWindow && c.Model.ContextWindow > 0 {
		result = multierror.Append(result, fmt.Errorf("budget.minMemoryTokens: %d does not fit in contextWindow %d",
			c.Budget.MinMemoryTokens, c.Model.ContextWindow))
	}
	if c.History.MaxRecent < 1 {
		result = multierror.Append(result, fmt.Errorf("history.maxRecent: must be >= 1, got %d", c.History.MaxRecent))
	}
	if c.History.MaxSummaries < 1 {
		result = multierror.Append(result, fmt.Errorf("history.maxSummaries: must be >= 1, got %d", c.History.MaxSummaries))
	}
	if c.Learning.RetentionDays < 0 {
		result = multierror.Append(result, fmt.Errorf("learning.retentionDays: must be >= 0, got %d", c.Learning.RetentionDays))
	}
	if c.Logging.Level != "" {
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
			result = multierror.Append(result, fmt.Errorf("logging.level: %q is not a valid level", c.Logging.Level))
		}
	}

	return result.ErrorOrNil()
}
