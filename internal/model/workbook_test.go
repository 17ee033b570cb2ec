package model

import (
	"errors"
	"testing"
)

// TestNewWorkbook 测试新建工作簿自带默认工作表
func TestNewWorkbook(t *testing.T) {
	wb := NewWorkbook("测试工作簿")
	if wb == nil {
		t.Fatal("NewWorkbook returned nil")
	}
	if len(wb.Sheets) != 1 {
		t.Fatalf("new workbook should have 1 sheet, got %d", len(wb.Sheets))
	}
	if wb.Sheets[0].Name != "Sheet1" {
		t.Errorf("default sheet name = %q, want Sheet1", wb.Sheets[0].Name)
	}
	if wb.Sheets[0].ID == "" {
		t.Error("sheet ID should be assigned at creation")
	}
}

// TestAddSheetDuplicateName 测试工作表名称唯一性
func TestAddSheetDuplicateName(t *testing.T) {
	wb := NewWorkbook("wb")

	if _, err := wb.AddSheet("明细"); err != nil {
		t.Fatalf("AddSheet failed: %v", err)
	}
	if _, err := wb.AddSheet("明细"); !errors.Is(err, ErrDuplicateSheetName) {
		t.Errorf("duplicate AddSheet error = %v, want ErrDuplicateSheetName", err)
	}
}

// TestRemoveLastSheet 测试禁止删除最后一个工作表
func TestRemoveLastSheet(t *testing.T) {
	wb := NewWorkbook("wb")

	if err := wb.RemoveSheet(wb.Sheets[0].ID); !errors.Is(err, ErrLastSheet) {
		t.Errorf("removing last sheet error = %v, want ErrLastSheet", err)
	}

	sheet2, _ := wb.AddSheet("Sheet2")
	if err := wb.RemoveSheet(sheet2.ID); err != nil {
		t.Fatalf("RemoveSheet failed: %v", err)
	}
	if len(wb.Sheets) != 1 {
		t.Errorf("workbook should have 1 sheet after removal, got %d", len(wb.Sheets))
	}
}

// TestRenameSheet 测试重命名及唯一性约束
func TestRenameSheet(t *testing.T) {
	wb := NewWorkbook("wb")
	sheet2, _ := wb.AddSheet("Sheet2")

	if err := wb.RenameSheet(sheet2.ID, "汇总"); err != nil {
		t.Fatalf("RenameSheet failed: %v", err)
	}
	if sheet2.Name != "汇总" {
		t.Errorf("sheet name = %q, want 汇总", sheet2.Name)
	}

	if err := wb.RenameSheet(sheet2.ID, "Sheet1"); !errors.Is(err, ErrDuplicateSheetName) {
		t.Errorf("rename to existing name error = %v, want ErrDuplicateSheetName", err)
	}

	// 重命名为自身当前名称不算冲突
	if err := wb.RenameSheet(sheet2.ID, "汇总"); err != nil {
		t.Errorf("rename to own name should succeed, got %v", err)
	}

	if err := wb.RenameSheet("no-such-id", "x"); !errors.Is(err, ErrSheetNotFound) {
		t.Errorf("rename unknown sheet error = %v, want ErrSheetNotFound", err)
	}
}

// TestSparseCellLifecycle 测试稀疏存储：单元格随写入出现、随清空消失
func TestSparseCellLifecycle(t *testing.T) {
	wb := NewWorkbook("wb")
	sheet := wb.Sheets[0]

	if err := sheet.SetCellValue("B2", 42.0); err != nil {
		t.Fatalf("SetCellValue failed: %v", err)
	}
	if len(sheet.Cells) != 1 {
		t.Fatalf("sheet should have 1 cell, got %d", len(sheet.Cells))
	}

	// 小写地址写入同一单元格
	if err := sheet.SetCellValue("b2", 43.0); err != nil {
		t.Fatalf("SetCellValue(b2) failed: %v", err)
	}
	if len(sheet.Cells) != 1 {
		t.Errorf("canonicalized addresses should hit the same cell, got %d entries", len(sheet.Cells))
	}

	cell, _ := sheet.Cell("B2")
	if cell == nil || cell.Value != 43.0 {
		t.Errorf("cell B2 value = %v, want 43", cell)
	}

	if err := sheet.ClearCell("B2"); err != nil {
		t.Fatalf("ClearCell failed: %v", err)
	}
	if len(sheet.Cells) != 0 {
		t.Errorf("cleared cell should be removed from sparse storage, got %d entries", len(sheet.Cells))
	}
}

// TestFormulaNormalization 测试公式规范化与公式优先
func TestFormulaNormalization(t *testing.T) {
	wb := NewWorkbook("wb")
	sheet := wb.Sheets[0]

	if err := sheet.SetCellFormula("A1", "SUM(B1:B3)"); err != nil {
		t.Fatalf("SetCellFormula failed: %v", err)
	}
	cell, _ := sheet.Cell("A1")
	if cell.Formula != "=SUM(B1:B3)" {
		t.Errorf("formula = %q, want =SUM(B1:B3)", cell.Formula)
	}
	if !cell.HasFormula() {
		t.Error("HasFormula should be true")
	}

	// 写入字面值清除公式
	if err := sheet.SetCellValue("A1", "hello"); err != nil {
		t.Fatalf("SetCellValue failed: %v", err)
	}
	cell, _ = sheet.Cell("A1")
	if cell.HasFormula() {
		t.Error("literal write should clear the formula")
	}
}

// TestStyleKeepsCellAlive 测试仅有样式的单元格不被稀疏回收
func TestStyleKeepsCellAlive(t *testing.T) {
	wb := NewWorkbook("wb")
	sheet := wb.Sheets[0]

	if err := sheet.SetCellStyle("C3", &CellStyle{Bold: true}); err != nil {
		t.Fatalf("SetCellStyle failed: %v", err)
	}
	if err := sheet.ClearCell("C3"); err != nil {
		t.Fatalf("ClearCell failed: %v", err)
	}
	cell, _ := sheet.Cell("C3")
	if cell == nil {
		t.Fatal("cell with style should survive ClearCell")
	}

	if err := sheet.SetCellStyle("C3", nil); err != nil {
		t.Fatalf("SetCellStyle(nil) failed: %v", err)
	}
	if len(sheet.Cells) != 0 {
		t.Errorf("cell should be removed once style is cleared, got %d entries", len(sheet.Cells))
	}
}

// TestClone 测试深拷贝不共享可变子结构
func TestClone(t *testing.T) {
	wb := NewWorkbook("原始")
	sheet := wb.Sheets[0]
	_ = sheet.SetCellValue("A1", 10.0)
	_ = sheet.SetCellFormula("B1", "=A1*2")
	wb.DefineNamedRange("总计", "Sheet1!A1")

	clone, err := wb.Clone()
	if err != nil {
		t.Fatalf("Clone failed: %v", err)
	}

	// 修改克隆不影响原始
	_ = clone.Sheets[0].SetCellValue("A1", 99.0)
	clone.DefineNamedRange("总计", "Sheet1!B1")
	_, _ = clone.AddSheet("新表")

	orig, _ := sheet.Cell("A1")
	if orig.Value != 10.0 {
		t.Errorf("original A1 = %v, want 10 (clone mutation leaked)", orig.Value)
	}
	if wb.NamedRanges["总计"] != "Sheet1!A1" {
		t.Errorf("original named range mutated: %q", wb.NamedRanges["总计"])
	}
	if len(wb.Sheets) != 1 {
		t.Errorf("original sheet count = %d, want 1", len(wb.Sheets))
	}
}
