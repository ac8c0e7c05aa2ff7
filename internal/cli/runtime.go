package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/khanglvm/tool-router/internal/backend"
	"github.com/khanglvm/tool-router/internal/config"
	"github.com/khanglvm/tool-router/internal/history"
	"github.com/khanglvm/tool-router/internal/learning"
	"github.com/khanglvm/tool-router/internal/pipeline"
	"github.com/khanglvm/tool-router/internal/registry"
	"github.com/khanglvm/tool-router/internal/session"
	"github.com/khanglvm/tool-router/internal/storage"
	"github.com/khanglvm/tool-router/internal/tools"
)

// runtime is everything a command needs to process requests.
type runtime struct {
	cfg       *config.Config
	logger    *zap.Logger
	workspace *tools.Workspace
	registry  *registry.Registry
	storage   *storage.SQLiteStorage
	tracker   *learning.Tracker
	writer    *history.Writer
	pipeline  *pipeline.Pipeline
}

// newRuntime wires the pipeline from cfg. Learning storage and history are
// best effort: failures are logged and the feature is skipped.
func newRuntime(cfg *config.Config, logger *zap.Logger) (*runtime, error) {
	rt := &runtime{cfg: cfg, logger: logger}

	ws, err := tools.NewWorkspace(cfg.Workspace)
	if err != nil {
		return nil, err
	}
	rt.workspace = ws

	rt.registry = registry.New(logger.Named("registry"))
	if err := tools.Register(rt.registry, ws); err != nil {
		rt.registry.Close()
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	if cfg.Learning.Enabled {
		rt.storage = storage.NewStorage(cfg.Learning.DBPath, logger.Named("storage"))
		if err := rt.storage.Init(); err != nil {
			logger.Warn("Learning storage unavailable", zap.Error(err))
		} else if cfg.Learning.RetentionDays > 0 {
			if err := rt.storage.Cleanup(time.Duration(cfg.Learning.RetentionDays) * 24 * time.Hour); err != nil {
				logger.Warn("Failed to prune operation log", zap.Error(err))
			}
		}
		rt.tracker = learning.NewTracker(rt.storage, logger.Named("learning"))
	}

	record, err := history.Load(cfg.History.Path)
	if err != nil {
		logger.Warn("Starting with empty history", zap.String("path", cfg.History.Path), zap.Error(err))
		record = &history.Record{}
	}
	rt.writer = history.NewWriter(cfg.History.Path, logger.Named("history"))

	client := backend.NewOllamaClient(cfg.Model.Endpoint, cfg.Model.Name,
		time.Duration(cfg.Model.TimeoutSeconds)*time.Second, logger.Named("backend"))

	rt.pipeline = pipeline.New(pipeline.Deps{
		Store:    session.NewStore(session.WithLogger(logger.Named("session"))),
		Registry: rt.registry,
		Backend:  client,
		Tracker:  rt.tracker,
		Writer:   rt.writer,
		Record:   record,
	}, pipeline.Options{
		Strict:          cfg.Pipeline.StrictMode,
		MaxToolRounds:   cfg.Pipeline.MaxToolRounds,
		ContextWindow:   cfg.Model.ContextWindow,
		MinMemoryTokens: cfg.Budget.MinMemoryTokens,
		History:         history.Limits{MaxRecent: cfg.History.MaxRecent, MaxSummaries: cfg.History.MaxSummaries},
	}, logger.Named("pipeline"))

	return rt, nil
}

// Close flushes background writers and releases resources.
func (rt *runtime) Close() error {
	var result *multierror.Error

	if rt.tracker != nil {
		rt.tracker.Stop()
	}
	if rt.writer != nil {
		rt.writer.Stop()
		if _, err := rt.writer.Saves(); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to save history: %w", err))
		}
	}
	if rt.storage != nil {
		if err := rt.storage.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := rt.registry.Close(); err != nil {
		result = multierror.Append(result, err)
	}

	return result.ErrorOrNil()
}

// writeJSON pretty-prints v.
func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
