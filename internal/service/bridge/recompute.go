package bridge

import (
	"sort"
	"strings"
	"time"

	"gridbook/internal/engine"
	"gridbook/internal/model"
)

// CellError 单个公式单元格的求值错误（重算的预期结果，不是重算失败）
type CellError struct {
	Address string `json:"address"` // 完全限定地址
	Code    string `json:"code"`
	Token   string `json:"token"`
	Message string `json:"message,omitempty"`
}

// Result 重算结果
type Result struct {
	UpdatedCells int         `json:"updatedCells"`
	Errors       []CellError `json:"errors"`
	Warnings     []string    `json:"warnings"`
}

// Recompute 从引擎读出全部公式单元格的当前值并回写文档
// 公式错误按单元格记录，绝不中止其余单元格的更新；
// 依赖边提取失败只记警告（依赖图是尽力而为的派生索引）；
// 文档修改时间戳每次调用只更新一次
func Recompute(doc *model.Workbook, hyd *Hydration) *Result {
	result := &Result{Errors: []CellError{}, Warnings: []string{}}
	now := time.Now().UTC()
	version := hyd.Engine.Version()
	build := buildID(version)

	for _, sheet := range doc.Sheets {
		engineID, ok := hyd.SheetIDs[sheet.ID]
		if !ok {
			result.Warnings = append(result.Warnings, "sheet "+sheet.Name+" missing from hydration, skipped")
			continue
		}

		for _, addr := range sheet.Addresses() {
			cell := sheet.Cells[addr]
			if !cell.HasFormula() {
				continue
			}

			row, col, err := model.ParseAddress(addr)
			if err != nil {
				result.Warnings = append(result.Warnings, "sheet "+sheet.Name+" cell "+addr+": "+err.Error())
				continue
			}

			qualified := model.QualifiedAddress(sheet.Name, addr)

			value, err := hyd.Engine.Value(engineID, row, col)
			if err != nil {
				result.Warnings = append(result.Warnings, qualified+": engine read failed: "+err.Error())
				continue
			}

			cv := toComputedValue(value, version, build, now)
			cell.Computed = cv
			doc.SetComputedCache(qualified, cv)
			result.UpdatedCells++

			if cv.Type == model.CellValueError {
				result.Errors = append(result.Errors, CellError{
					Address: qualified,
					Code:    cv.Error.Code,
					Token:   cv.Error.Token,
					Message: cv.Error.Message,
				})
			}

			// 依赖边提取：失败不影响值更新
			deps, err := hyd.Engine.Dependents(engineID, row, col)
			if err != nil {
				result.Warnings = append(result.Warnings, qualified+": dependency lookup failed: "+err.Error())
				continue
			}
			doc.SetDependencies(qualified, hyd.qualifyRefs(deps, result))
		}
	}

	doc.Touch()
	return result
}

// qualifyRefs 把引擎坐标转换为完全限定地址列表（排序保证稳定）
func (h *Hydration) qualifyRefs(refs []engine.Ref, result *Result) []string {
	qualified := make([]string, 0, len(refs))
	for _, ref := range refs {
		name, ok := h.Names[ref.SheetID]
		if !ok {
			result.Warnings = append(result.Warnings, "unknown engine sheet id in dependency edge")
			continue
		}
		addr, err := model.FormatAddress(ref.Row, ref.Col)
		if err != nil {
			continue
		}
		qualified = append(qualified, model.QualifiedAddress(name, addr))
	}
	sort.Strings(qualified)
	return qualified
}

// toComputedValue 把引擎读出值转换为文档的带版本戳计算结果
func toComputedValue(v engine.Value, version, build string, now time.Time) *model.ComputedValue {
	cv := &model.ComputedValue{
		EngineVersion: version,
		EngineBuild:   build,
		ComputedAt:    now,
	}

	switch v.Kind {
	case engine.KindNumber:
		cv.Type = model.CellValueNumber
		cv.Number = v.Number
	case engine.KindString:
		cv.Type = model.CellValueString
		cv.Text = v.Text
	case engine.KindBoolean:
		cv.Type = model.CellValueBoolean
		cv.Boolean = v.Boolean
	case engine.KindError:
		cv.Type = model.CellValueError
		cv.Error = &model.ErrorDetail{
			Code:    v.Error.Code,
			Token:   v.Error.Token,
			Message: v.Error.Message,
		}
	default:
		cv.Type = model.CellValueEmpty
	}
	return cv
}

// buildID 从版本串提取引擎构建标识（"excelize/2.10.0" -> "excelize"）
func buildID(version string) string {
	if idx := strings.Index(version, "/"); idx > 0 {
		return version[:idx]
	}
	return version
}
