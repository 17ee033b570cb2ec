package store

import (
	"path/filepath"
	"testing"

	"gridbook/internal/model"
)

func newStoreForTest(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "data", "gridbook.db"))
	if err != nil {
		t.Fatalf("创建 store 失败: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestWorkbookRoundTrip 保存-读取-列表-删除全链路
func TestWorkbookRoundTrip(t *testing.T) {
	s := newStoreForTest(t)

	wb := model.NewWorkbook("销售台账")
	sheet, _ := wb.SheetByName("Sheet1")
	if err := sheet.SetCellValue("A1", 100.0); err != nil {
		t.Fatal(err)
	}
	if err := sheet.SetCellFormula("B1", "=A1*2"); err != nil {
		t.Fatal(err)
	}

	if err := s.SaveWorkbook(wb); err != nil {
		t.Fatalf("保存失败: %v", err)
	}

	back, err := s.GetWorkbook(wb.ID)
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if back.Name != "销售台账" || len(back.Sheets) != 1 {
		t.Errorf("文档 = %q/%d 表", back.Name, len(back.Sheets))
	}
	cell := back.Sheets[0].Cells["B1"]
	if cell == nil || cell.Formula != "=A1*2" {
		t.Errorf("B1 = %+v, 期望公式保留", cell)
	}

	metas, err := s.ListWorkbooks()
	if err != nil {
		t.Fatal(err)
	}
	if len(metas) != 1 || metas[0].ID != wb.ID {
		t.Errorf("列表 = %+v", metas)
	}

	if err := s.DeleteWorkbook(wb.ID); err != nil {
		t.Fatalf("删除失败: %v", err)
	}
	if _, err := s.GetWorkbook(wb.ID); err != ErrWorkbookNotFound {
		t.Errorf("删除后读取错误 = %v, 期望 ErrWorkbookNotFound", err)
	}
}

// TestSaveWorkbookOverwrites 重复保存整体覆盖
func TestSaveWorkbookOverwrites(t *testing.T) {
	s := newStoreForTest(t)

	wb := model.NewWorkbook("v1")
	if err := s.SaveWorkbook(wb); err != nil {
		t.Fatal(err)
	}

	wb.Name = "v2"
	if err := s.SaveWorkbook(wb); err != nil {
		t.Fatal(err)
	}

	back, err := s.GetWorkbook(wb.ID)
	if err != nil {
		t.Fatal(err)
	}
	if back.Name != "v2" {
		t.Errorf("名称 = %q, 期望 v2", back.Name)
	}

	metas, _ := s.ListWorkbooks()
	if len(metas) != 1 {
		t.Errorf("覆盖保存不应新增行, 实际 %d 行", len(metas))
	}
}

// TestDeleteMissingWorkbook 删除不存在的工作簿返回 ErrWorkbookNotFound
func TestDeleteMissingWorkbook(t *testing.T) {
	s := newStoreForTest(t)
	if err := s.DeleteWorkbook("nope"); err != ErrWorkbookNotFound {
		t.Errorf("错误 = %v, 期望 ErrWorkbookNotFound", err)
	}
}

// TestRecomputeLog 重算日志写入与查询
func TestRecomputeLog(t *testing.T) {
	s := newStoreForTest(t)

	id, err := s.CreateRecomputeLog(&RecomputeLog{
		WorkbookID:    "wb-1",
		EngineVersion: "excelize/2.10.0",
		UpdatedCells:  12,
		ErrorCount:    1,
		StaleCount:    3,
		DurationMs:    42,
		Status:        "completed",
	})
	if err != nil {
		t.Fatalf("写入失败: %v", err)
	}
	if id == 0 {
		t.Error("日志 ID 不应为 0")
	}

	logs, err := s.ListRecomputeLogs("wb-1", 10)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("日志数 = %d, 期望 1", len(logs))
	}
	l := logs[0]
	if l.UpdatedCells != 12 || l.StaleCount != 3 || l.EngineVersion != "excelize/2.10.0" {
		t.Errorf("日志 = %+v", l)
	}

	if logs, _ := s.ListRecomputeLogs("其他", 10); len(logs) != 0 {
		t.Error("不应返回其他工作簿的日志")
	}
}
