// Package excel xlsx 文件与工作簿文档模型之间的转换
package excel

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"gridbook/internal/model"
)

// ImportFile 读取 xlsx 文件并转换为文档模型
// 公式优先于值保留：先查公式再取显示值，保证导出-导入往返不丢公式
func ImportFile(path string) (*model.Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return importWorkbook(f, path)
}

func importWorkbook(f *excelize.File, name string) (*model.Workbook, error) {
	sheetNames := f.GetSheetList()
	if len(sheetNames) == 0 {
		return nil, fmt.Errorf("file %s has no sheets", name)
	}

	wb := model.NewWorkbook(name)
	// 默认表改名为文件里的第一个表
	if err := wb.RenameSheet(wb.Sheets[0].ID, sheetNames[0]); err != nil {
		return nil, err
	}
	for _, sheetName := range sheetNames[1:] {
		if _, err := wb.AddSheet(sheetName); err != nil {
			return nil, fmt.Errorf("sheet %q: %w", sheetName, err)
		}
	}

	for _, sheetName := range sheetNames {
		sheet, err := wb.SheetByName(sheetName)
		if err != nil {
			return nil, err
		}
		if err := importSheet(f, sheetName, sheet); err != nil {
			return nil, fmt.Errorf("sheet %q: %w", sheetName, err)
		}
	}

	for _, dn := range f.GetDefinedName() {
		wb.DefineNamedRange(dn.Name, dn.RefersTo)
	}

	return wb, nil
}

func importSheet(f *excelize.File, sheetName string, sheet *model.Sheet) error {
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return err
	}

	for rowIdx, row := range rows {
		for colIdx, raw := range row {
			addr, err := model.FormatAddress(rowIdx, colIdx)
			if err != nil {
				return err
			}

			// 公式优先保留
			formula, err := f.GetCellFormula(sheetName, addr)
			if err == nil && formula != "" {
				if err := sheet.SetCellFormula(addr, formula); err != nil {
					return err
				}
				continue
			}

			if raw == "" {
				continue
			}
			if err := sheet.SetCellValue(addr, parseScalar(raw)); err != nil {
				return err
			}
		}
	}

	// 合并范围
	merged, err := f.GetMergeCells(sheetName)
	if err != nil {
		return nil // 合并信息读取失败不致命
	}
	for _, mc := range merged {
		start := mc.GetStartAxis()
		end := mc.GetEndAxis()
		if start != "" && end != "" {
			sheet.MergedRanges = append(sheet.MergedRanges, start+":"+end)
		}
	}
	return nil
}

// parseScalar 把 xlsx 单元格文本转为类型化字面值
func parseScalar(raw string) any {
	switch raw {
	case "TRUE":
		return true
	case "FALSE":
		return false
	}
	if n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
		return n
	}
	return raw
}
