package engine

import (
	"math"
	"strings"

	"github.com/xuri/efp"

	"gridbook/internal/model"
)

// refSpan 公式中一个引用覆盖的矩形区域（0 基坐标，含端点）
type refSpan struct {
	Sheet  string
	Top    int
	Left   int
	Bottom int
	Right  int
}

// contains 判断坐标是否落在区域内
func (r refSpan) contains(row, col int) bool {
	return row >= r.Top && row <= r.Bottom && col >= r.Left && col <= r.Right
}

// extractRefs 用 efp 词法分析器从公式中提取全部单元格引用
// 公式传入时不带 "=" 前缀；不带工作表名的引用归属 currentSheet
// 整列引用（如 A:A）展开为无界行区间，避免逐格枚举
func extractRefs(formula string, currentSheet string) []refSpan {
	parser := efp.ExcelParser()
	tokens := parser.Parse(formula)
	if tokens == nil {
		return nil
	}

	var spans []refSpan
	for _, token := range tokens {
		if token.TType != efp.TokenTypeOperand || token.TSubType != efp.TokenSubTypeRange {
			continue
		}

		ref := token.TValue
		sheet := currentSheet
		if idx := strings.LastIndex(ref, "!"); idx > 0 {
			sheet = strings.Trim(ref[:idx], "'")
			ref = ref[idx+1:]
		}

		if span, ok := parseRefSpan(ref, sheet); ok {
			spans = append(spans, span)
		}
	}
	return spans
}

// parseRefSpan 解析单个引用文本（A1、A1:B2、A:A、1:1）为矩形区域
func parseRefSpan(ref string, sheet string) (refSpan, bool) {
	ref = strings.ReplaceAll(ref, "$", "")
	if ref == "" {
		return refSpan{}, false
	}

	parts := strings.SplitN(ref, ":", 2)
	if len(parts) == 1 {
		row, col, err := model.ParseAddress(parts[0])
		if err != nil {
			return refSpan{}, false
		}
		return refSpan{Sheet: sheet, Top: row, Left: col, Bottom: row, Right: col}, true
	}

	start, end := parts[0], parts[1]

	// 整列引用 A:A
	if isColumnOnly(start) && isColumnOnly(end) {
		left := columnIndex(start)
		right := columnIndex(end)
		if right < left {
			left, right = right, left
		}
		return refSpan{Sheet: sheet, Top: 0, Left: left, Bottom: math.MaxInt32, Right: right}, true
	}

	top, leftCol, err := model.ParseAddress(start)
	if err != nil {
		return refSpan{}, false
	}
	bottom, rightCol, err := model.ParseAddress(end)
	if err != nil {
		return refSpan{}, false
	}
	if bottom < top {
		top, bottom = bottom, top
	}
	if rightCol < leftCol {
		leftCol, rightCol = rightCol, leftCol
	}
	return refSpan{Sheet: sheet, Top: top, Left: leftCol, Bottom: bottom, Right: rightCol}, true
}

func isColumnOnly(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if (ch < 'A' || ch > 'Z') && (ch < 'a' || ch > 'z') {
			return false
		}
	}
	return true
}

func columnIndex(letters string) int {
	col := 0
	for i := 0; i < len(letters); i++ {
		ch := letters[i]
		if ch >= 'a' && ch <= 'z' {
			ch -= 'a' - 'A'
		}
		col = col*26 + int(ch-'A'+1)
	}
	return col - 1
}
