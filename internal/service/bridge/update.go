package bridge

import (
	"fmt"
	"strings"

	"gridbook/internal/model"
)

// Edit 一次点编辑：目标工作表 ID + 地址 + 新值
// Value 为 nil 表示清除；字符串以 "=" 开头视为公式
type Edit struct {
	SheetID string `json:"sheetId"`
	Address string `json:"address"`
	Value   any    `json:"value"`
}

// Update 把一小批点编辑直接写入活动引擎并触发重算
// 单条坏编辑（未知工作表、坏地址）记警告跳过，绝不中止整批；
// 编辑全部落入引擎后对整个文档委托 Recompute —— 最小重算范围由
// 引擎内部决定，本层不做自己的脏标记（正确性优先于聪明）
// 这是单元格编辑的热路径：绝不重建引擎实例
func Update(doc *model.Workbook, hyd *Hydration, edits []Edit) *Result {
	var warnings []string

	for _, edit := range edits {
		if err := applyEdit(doc, hyd, edit); err != nil {
			warnings = append(warnings, fmt.Sprintf("edit %s!%s: %v", edit.SheetID, edit.Address, err))
		}
	}

	result := Recompute(doc, hyd)
	result.Warnings = append(warnings, result.Warnings...)
	return result
}

// applyEdit 同步更新文档模型与活动引擎中的单个单元格
func applyEdit(doc *model.Workbook, hyd *Hydration, edit Edit) error {
	engineID, ok := hyd.SheetIDs[edit.SheetID]
	if !ok {
		return fmt.Errorf("unknown sheet id %q", edit.SheetID)
	}

	sheet, err := doc.SheetByID(edit.SheetID)
	if err != nil {
		return err
	}

	row, col, err := model.ParseAddress(edit.Address)
	if err != nil {
		return err
	}

	switch value := edit.Value.(type) {
	case nil:
		if err := sheet.ClearCell(edit.Address); err != nil {
			return err
		}
		return hyd.Engine.Clear(engineID, row, col)

	case string:
		if strings.HasPrefix(strings.TrimSpace(value), "=") {
			formula := model.NormalizeFormula(value)
			if err := sheet.SetCellFormula(edit.Address, formula); err != nil {
				return err
			}
			return hyd.Engine.SetFormula(engineID, row, col, formula)
		}
		if err := sheet.SetCellValue(edit.Address, value); err != nil {
			return err
		}
		return hyd.Engine.SetValue(engineID, row, col, value)

	default:
		if err := sheet.SetCellValue(edit.Address, value); err != nil {
			return err
		}
		return hyd.Engine.SetValue(engineID, row, col, value)
	}
}
