package storage

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// RecordOperations stores a batch of records in one transaction.
func (s *SQLiteStorage) RecordOperations(ops []OperationRecord) error {
	if len(ops) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled || s.db == nil {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	stmt, err := tx.Prepare(`
		INSERT INTO operations
			(session_id, timestamp, op_type, tool, intent, tier, path, confidence, success, context_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, op := range ops {
		success := 0
		if op.Success {
			success = 1
		}
		if _, err := stmt.Exec(
			op.SessionID,
			op.Timestamp.UTC().Format(timeLayout),
			op.OpType,
			op.Tool,
			op.Intent,
			op.Tier,
			op.Path,
			op.Confidence,
			success,
			op.ContextHash,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert operation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit operations: %w", err)
	}
	return nil
}

// OperationsSince returns records newer than since, newest first.
func (s *SQLiteStorage) OperationsSince(tool string, since time.Time) ([]OperationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled || s.db == nil {
		return []OperationRecord{}, nil
	}

	rows, err := s.db.Query(`
		SELECT session_id, timestamp, op_type, tool, intent, tier, path, confidence, success, context_hash
		FROM operations
		WHERE (? = '' OR tool = ?) AND timestamp >= ?
		ORDER BY timestamp DESC, id DESC
	`, tool, tool, since.UTC().Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to query operations: %w", err)
	}
	defer rows.Close()

	var ops []OperationRecord
	for rows.Next() {
		var op OperationRecord
		var ts string
		var success int
		if err := rows.Scan(&op.SessionID, &ts, &op.OpType, &op.Tool, &op.Intent,
			&op.Tier, &op.Path, &op.Confidence, &success, &op.ContextHash); err != nil {
			s.logger.Warn("failed to scan operation row", zap.Error(err))
			continue
		}
		op.Success = success == 1
		if op.Timestamp, err = time.Parse(timeLayout, ts); err != nil {
			s.logger.Warn("failed to parse timestamp", zap.String("value", ts), zap.Error(err))
			continue
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// ToolStats aggregates records newer than since per tool, most used first.
// Records without a tool are skipped.
func (s *SQLiteStorage) ToolStats(since time.Time) ([]ToolStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled || s.db == nil {
		return []ToolStats{}, nil
	}

	rows, err := s.db.Query(`
		SELECT tool, COUNT(*), SUM(success), MAX(timestamp)
		FROM operations
		WHERE tool != '' AND timestamp >= ?
		GROUP BY tool
		ORDER BY COUNT(*) DESC, tool ASC
	`, since.UTC().Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to query tool stats: %w", err)
	}
	defer rows.Close()

	var stats []ToolStats
	for rows.Next() {
		var st ToolStats
		var last string
		if err := rows.Scan(&st.Tool, &st.Count, &st.Successes, &last); err != nil {
			return nil, fmt.Errorf("failed to scan tool stats: %w", err)
		}
		if st.LastUsed, err = time.Parse(timeLayout, last); err != nil {
			return nil, fmt.Errorf("failed to parse timestamp %q: %w", last, err)
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// Cleanup removes records older than retention.
func (s *SQLiteStorage) Cleanup(retention time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled || s.db == nil {
		return nil
	}

	cutoff := time.Now().Add(-retention).UTC().Format(timeLayout)
	res, err := s.db.Exec("DELETE FROM operations WHERE timestamp < ?", cutoff)
	if err != nil {
		return fmt.Errorf("failed to clean up operations: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		s.logger.Debug("removed old operations", zap.Int64("count", n))
	}
	return nil
}
