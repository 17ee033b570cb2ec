package executor

import (
	"fmt"
	"regexp"
	"strings"

	"gridbook/internal/model"
)

// 命名范围名称语法：字母/下划线开头，字母数字下划线点号组成
var nameGrammar = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// 单元格引用形态（A1、XFD1048576 等），命名范围不得与其混淆
var cellRefPattern = regexp.MustCompile(`^[A-Za-z]{1,3}[0-9]+$`)

// 公式语言保留字，不可用作命名范围
var reservedNames = map[string]bool{
	"TRUE":  true,
	"FALSE": true,
	"NULL":  true,
}

// validateRangeName 校验命名范围名称
func validateRangeName(name string) error {
	if !nameGrammar.MatchString(name) {
		return fmt.Errorf("name %q does not match identifier grammar", name)
	}
	if cellRefPattern.MatchString(name) {
		return fmt.Errorf("name %q collides with a cell reference", name)
	}
	if reservedNames[strings.ToUpper(name)] {
		return fmt.Errorf("name %q is a reserved word", name)
	}
	return nil
}

// validateMerge 校验合并范围：至少两个单元格，且不与既有合并范围相交
func validateMerge(sheet *model.Sheet, rangeRef string) error {
	top, left, bottom, right, err := model.ParseRange(rangeRef)
	if err != nil {
		return err
	}
	if top == bottom && left == right {
		return fmt.Errorf("merge range %q must span at least two cells", rangeRef)
	}

	for _, existing := range sheet.MergedRanges {
		overlaps, err := model.RangeOverlaps(rangeRef, existing)
		if err != nil {
			continue
		}
		if overlaps {
			return fmt.Errorf("merge range %q overlaps existing merge %q", rangeRef, existing)
		}
	}
	return nil
}

// rangeAddresses 展开范围为地址列表（apply-format 用）
func rangeAddresses(rangeRef string) ([]string, error) {
	top, left, bottom, right, err := model.ParseRange(rangeRef)
	if err != nil {
		return nil, err
	}

	var addrs []string
	for row := top; row <= bottom; row++ {
		for col := left; col <= right; col++ {
			addr, err := model.FormatAddress(row, col)
			if err != nil {
				return nil, err
			}
			addrs = append(addrs, addr)
		}
	}
	return addrs, nil
}
