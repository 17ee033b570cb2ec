package excel

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"gridbook/internal/model"
)

// ExportWorkbook 把文档模型转换为 excelize 文件
// 公式单元格写公式而非计算结果，保证打开文件后仍可重算
func ExportWorkbook(wb *model.Workbook) (*excelize.File, error) {
	if len(wb.Sheets) == 0 {
		return nil, fmt.Errorf("workbook %q has no sheets", wb.Name)
	}

	f := excelize.NewFile()

	for i, sheet := range wb.Sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet.Name); err != nil {
				_ = f.Close()
				return nil, err
			}
		} else {
			if _, err := f.NewSheet(sheet.Name); err != nil {
				_ = f.Close()
				return nil, fmt.Errorf("sheet %q: %w", sheet.Name, err)
			}
		}

		if err := exportSheet(f, sheet); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("sheet %q: %w", sheet.Name, err)
		}
	}

	// 工作簿级命名范围
	for name, ref := range wb.NamedRanges {
		if err := f.SetDefinedName(&excelize.DefinedName{Name: name, RefersTo: ref, Scope: "Workbook"}); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("named range %q: %w", name, err)
		}
	}

	return f, nil
}

func exportSheet(f *excelize.File, sheet *model.Sheet) error {
	for _, addr := range sheet.Addresses() {
		cell := sheet.Cells[addr]

		switch {
		case cell.HasFormula():
			body := strings.TrimPrefix(cell.Formula, "=")
			if err := f.SetCellFormula(sheet.Name, addr, body); err != nil {
				return err
			}
		case cell.Value != nil:
			if err := f.SetCellValue(sheet.Name, addr, cell.Value); err != nil {
				return err
			}
		}

		if cell.Style != nil {
			styleID, err := f.NewStyle(toExcelizeStyle(cell.Style))
			if err != nil {
				return err
			}
			if err := f.SetCellStyle(sheet.Name, addr, addr, styleID); err != nil {
				return err
			}
		}
	}

	for _, rangeRef := range sheet.MergedRanges {
		parts := strings.SplitN(rangeRef, ":", 2)
		if len(parts) != 2 {
			continue
		}
		if err := f.MergeCell(sheet.Name, parts[0], parts[1]); err != nil {
			return err
		}
	}
	return nil
}

// toExcelizeStyle 文档样式到 excelize 样式的映射
func toExcelizeStyle(style *model.CellStyle) *excelize.Style {
	out := &excelize.Style{}

	if style.Bold || style.Italic || style.FontColor != "" {
		out.Font = &excelize.Font{
			Bold:   style.Bold,
			Italic: style.Italic,
			Color:  style.FontColor,
		}
	}
	if style.FillColor != "" {
		out.Fill = excelize.Fill{Type: "pattern", Color: []string{style.FillColor}, Pattern: 1}
	}
	if style.Align != "" {
		out.Alignment = &excelize.Alignment{Horizontal: style.Align}
	}
	if style.NumberFormat != "" {
		out.CustomNumFmt = &style.NumberFormat
	}
	return out
}

// ExportFile 导出文档为 xlsx 文件
func ExportFile(wb *model.Workbook, path string) error {
	f, err := ExportWorkbook(wb)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}
