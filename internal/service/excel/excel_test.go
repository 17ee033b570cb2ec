package excel

import (
	"path/filepath"
	"testing"

	"gridbook/internal/model"
)

func buildWorkbookForTest(t *testing.T) *model.Workbook {
	t.Helper()
	wb := model.NewWorkbook("往返")

	sheet, err := wb.SheetByName("Sheet1")
	if err != nil {
		t.Fatalf("默认表缺失: %v", err)
	}
	if err := sheet.SetCellValue("A1", 10.0); err != nil {
		t.Fatal(err)
	}
	if err := sheet.SetCellFormula("B1", "=A1*2"); err != nil {
		t.Fatal(err)
	}
	if err := sheet.SetCellValue("C1", "合计"); err != nil {
		t.Fatal(err)
	}
	if err := sheet.SetCellValue("A2", true); err != nil {
		t.Fatal(err)
	}
	sheet.MergedRanges = append(sheet.MergedRanges, "D1:E1")

	if _, err := wb.AddSheet("明细"); err != nil {
		t.Fatal(err)
	}
	detail, _ := wb.SheetByName("明细")
	if err := detail.SetCellValue("A1", 3.14); err != nil {
		t.Fatal(err)
	}

	wb.DefineNamedRange("total_range", "Sheet1!$A$1:$B$1")
	return wb
}

// TestExportImportRoundTrip 导出再导入，公式、值、合并范围、命名范围全部保留
func TestExportImportRoundTrip(t *testing.T) {
	wb := buildWorkbookForTest(t)
	path := filepath.Join(t.TempDir(), "roundtrip.xlsx")

	if err := ExportFile(wb, path); err != nil {
		t.Fatalf("导出失败: %v", err)
	}

	back, err := ImportFile(path)
	if err != nil {
		t.Fatalf("导入失败: %v", err)
	}

	if len(back.Sheets) != 2 {
		t.Fatalf("表数 = %d, 期望 2", len(back.Sheets))
	}
	if back.Sheets[0].Name != "Sheet1" || back.Sheets[1].Name != "明细" {
		t.Errorf("表名 = %q/%q", back.Sheets[0].Name, back.Sheets[1].Name)
	}

	sheet, err := back.SheetByName("Sheet1")
	if err != nil {
		t.Fatal(err)
	}

	a1 := sheet.Cells["A1"]
	if a1 == nil || a1.Value != 10.0 {
		t.Errorf("A1 = %+v, 期望值 10", a1)
	}

	// 公式优先于缓存值保留
	b1 := sheet.Cells["B1"]
	if b1 == nil || !b1.HasFormula() {
		t.Fatalf("B1 = %+v, 期望公式单元格", b1)
	}
	if b1.Formula != "=A1*2" {
		t.Errorf("B1 公式 = %q, 期望 =A1*2", b1.Formula)
	}

	c1 := sheet.Cells["C1"]
	if c1 == nil || c1.Value != "合计" {
		t.Errorf("C1 = %+v, 期望字符串 合计", c1)
	}

	if len(sheet.MergedRanges) != 1 || sheet.MergedRanges[0] != "D1:E1" {
		t.Errorf("合并范围 = %v, 期望 [D1:E1]", sheet.MergedRanges)
	}

	if back.NamedRanges["total_range"] == "" {
		t.Errorf("命名范围丢失: %v", back.NamedRanges)
	}

	detail, err := back.SheetByName("明细")
	if err != nil {
		t.Fatal(err)
	}
	if detail.Cells["A1"] == nil || detail.Cells["A1"].Value != 3.14 {
		t.Errorf("明细!A1 = %+v, 期望 3.14", detail.Cells["A1"])
	}
}

// TestExportEmptyWorkbookFails 无表工作簿不可导出
func TestExportEmptyWorkbookFails(t *testing.T) {
	wb := &model.Workbook{Name: "空"}
	if err := ExportFile(wb, filepath.Join(t.TempDir(), "empty.xlsx")); err == nil {
		t.Fatal("空工作簿导出应报错")
	}
}

// TestImportMissingFile 文件不存在返回错误
func TestImportMissingFile(t *testing.T) {
	if _, err := ImportFile(filepath.Join(t.TempDir(), "nope.xlsx")); err == nil {
		t.Fatal("不存在的文件应报错")
	}
}

// TestParseScalar 导入标量的类型推断
func TestParseScalar(t *testing.T) {
	if v := parseScalar("42"); v != 42.0 {
		t.Errorf("42 -> %v, 期望 float64", v)
	}
	if v := parseScalar("TRUE"); v != true {
		t.Errorf("TRUE -> %v, 期望 bool", v)
	}
	if v := parseScalar("北京"); v != "北京" {
		t.Errorf("北京 -> %v, 期望原样字符串", v)
	}
}
