package store

import (
	"fmt"
	"time"
)

// RecomputeLog 一次引擎重算的遥测记录
type RecomputeLog struct {
	ID            int64     `json:"id"`
	WorkbookID    string    `json:"workbookId"`
	EngineVersion string    `json:"engineVersion"`
	UpdatedCells  int       `json:"updatedCells"`
	ErrorCount    int       `json:"errorCount"`
	StaleCount    int       `json:"staleCount"`
	DurationMs    int64     `json:"durationMs"`
	Status        string    `json:"status"`
	ErrorMessage  string    `json:"errorMessage,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// CreateRecomputeLog 写入重算日志，返回日志 ID
func (s *Store) CreateRecomputeLog(l *RecomputeLog) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO recompute_logs (
			workbook_id, engine_version, updated_cells,
			error_count, stale_count, duration_ms, status, error_message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, l.WorkbookID, l.EngineVersion, l.UpdatedCells,
		l.ErrorCount, l.StaleCount, l.DurationMs, l.Status, l.ErrorMessage)
	if err != nil {
		return 0, fmt.Errorf("failed to create recompute log: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get recompute log id: %w", err)
	}
	return id, nil
}

// ListRecomputeLogs 按工作簿列出最近的重算日志
func (s *Store) ListRecomputeLogs(workbookID string, limit int) ([]*RecomputeLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, workbook_id, engine_version, updated_cells,
		       error_count, stale_count, duration_ms, status,
		       COALESCE(error_message, ''), created_at
		FROM recompute_logs
		WHERE workbook_id = ?
		ORDER BY id DESC LIMIT ?
	`, workbookID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recompute logs: %w", err)
	}
	defer rows.Close()

	var logs []*RecomputeLog
	for rows.Next() {
		l := &RecomputeLog{}
		if err := rows.Scan(&l.ID, &l.WorkbookID, &l.EngineVersion, &l.UpdatedCells,
			&l.ErrorCount, &l.StaleCount, &l.DurationMs, &l.Status,
			&l.ErrorMessage, &l.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
