package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gridbook/internal/model"
)

// ErrWorkbookNotFound 工作簿不存在
var ErrWorkbookNotFound = errors.New("workbook not found")

// WorkbookMeta 工作簿列表项（不含文档本体）
type WorkbookMeta struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SaveWorkbook 保存工作簿文档（存在则整体覆盖）
func (s *Store) SaveWorkbook(wb *model.Workbook) error {
	doc, err := json.Marshal(wb)
	if err != nil {
		return fmt.Errorf("failed to marshal workbook: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO workbooks (id, name, document) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			document = excluded.document,
			updated_at = CURRENT_TIMESTAMP
	`, wb.ID, wb.Name, string(doc))
	if err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// GetWorkbook 按 ID 读取工作簿文档
func (s *Store) GetWorkbook(id string) (*model.Workbook, error) {
	var doc string
	err := s.db.QueryRow("SELECT document FROM workbooks WHERE id = ?", id).Scan(&doc)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrWorkbookNotFound
		}
		return nil, fmt.Errorf("failed to query workbook: %w", err)
	}

	var wb model.Workbook
	if err := json.Unmarshal([]byte(doc), &wb); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workbook %s: %w", id, err)
	}
	return &wb, nil
}

// ListWorkbooks 列出全部工作簿的元信息，按更新时间倒序
func (s *Store) ListWorkbooks() ([]*WorkbookMeta, error) {
	rows, err := s.db.Query(`
		SELECT id, name, created_at, updated_at
		FROM workbooks ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list workbooks: %w", err)
	}
	defer rows.Close()

	var metas []*WorkbookMeta
	for rows.Next() {
		m := &WorkbookMeta{}
		if err := rows.Scan(&m.ID, &m.Name, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		metas = append(metas, m)
	}
	return metas, rows.Err()
}

// DeleteWorkbook 删除工作簿及其重算日志
func (s *Store) DeleteWorkbook(id string) error {
	res, err := s.db.Exec("DELETE FROM workbooks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete workbook: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrWorkbookNotFound
	}

	if _, err := s.db.Exec("DELETE FROM recompute_logs WHERE workbook_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete recompute logs: %w", err)
	}
	return nil
}
