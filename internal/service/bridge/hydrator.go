// Package bridge 文档模型与公式引擎之间的一致性层
// 负责水合（把文档装入新引擎实例）、重算回写、增量更新与缓存过期检测
package bridge

import (
	"errors"
	"fmt"
	"log"

	"gridbook/internal/engine"
	"gridbook/internal/model"
)

// ErrEmptyWorkbook 空工作簿无法水合
var ErrEmptyWorkbook = errors.New("workbook has no sheets")

// Options 水合选项
type Options struct {
	// IgnoreCache 为 true 时不把历史计算缓存作为引擎初值
	IgnoreCache bool
	// SkipValidation 为 true 时跳过装载后的公式回读校验
	SkipValidation bool
	// Config 引擎实例配置；nil 使用 Excel 兼容默认值
	Config *engine.Config
}

// Hydration 一次水合的瞬态结果，不持久化
// 活动引擎实例归属调用方独占：用完必须 Close，否则泄漏引擎资源
type Hydration struct {
	Engine   engine.Instance
	SheetIDs map[string]int // 文档工作表 ID -> 引擎工作表 ID
	Names    map[int]string // 引擎工作表 ID -> 文档工作表名
	Warnings []string

	// StaleCount 因引擎版本不匹配被跳过的缓存条目数（遥测用）
	StaleCount int

	closed bool
}

// Close 销毁底层引擎实例；重复调用安全
func (h *Hydration) Close() error {
	if h == nil || h.closed {
		return nil
	}
	h.closed = true
	if h.Engine == nil {
		return nil
	}
	return h.Engine.Close()
}

func (h *Hydration) warnf(format string, args ...any) {
	h.Warnings = append(h.Warnings, fmt.Sprintf(format, args...))
}

// Hydrate 把文档装入一个全新引擎实例
// 结构性失败（空工作簿、工作表创建失败）整体中止，不留半成品实例；
// 行级问题（个别坏地址）记为警告继续。对输入文档本身只读，
// 唯一例外是回填单元格的引擎坐标缓存（可随时丢弃的优化字段）
func Hydrate(doc *model.Workbook, factory engine.Factory, opts Options) (*Hydration, error) {
	if doc == nil || len(doc.Sheets) == 0 {
		return nil, ErrEmptyWorkbook
	}

	cfg := engine.DefaultConfig()
	if opts.Config != nil {
		cfg = *opts.Config
	}

	inst, err := factory.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine instance: %w", err)
	}

	hyd := &Hydration{
		Engine:   inst,
		SheetIDs: make(map[string]int, len(doc.Sheets)),
		Names:    make(map[int]string, len(doc.Sheets)),
	}

	// N 个文档工作表必须水合出恰好 N 个引擎工作表，否则整体失败
	for _, sheet := range doc.Sheets {
		engineID, err := inst.AddSheet(sheet.Name)
		if err != nil {
			_ = hyd.Close()
			return nil, fmt.Errorf("failed to create engine sheet %q: %w", sheet.Name, err)
		}
		hyd.SheetIDs[sheet.ID] = engineID
		hyd.Names[engineID] = sheet.Name
	}

	// 命名范围注册为引擎命名表达式，失败只记警告
	for name, ref := range doc.NamedRanges {
		if err := inst.DefineName(name, ref); err != nil {
			hyd.warnf("named range %q: %v", name, err)
		}
	}
	for _, sheet := range doc.Sheets {
		for name, ref := range sheet.NamedRanges {
			if err := inst.DefineName(name, ref); err != nil {
				hyd.warnf("sheet %q named range %q: %v", sheet.Name, name, err)
			}
		}
	}

	for _, sheet := range doc.Sheets {
		engineID := hyd.SheetIDs[sheet.ID]
		for _, addr := range sheet.Addresses() {
			cell := sheet.Cells[addr]
			if err := hyd.loadCell(sheet, engineID, addr, cell, opts); err != nil {
				hyd.warnf("sheet %q cell %s: %v", sheet.Name, addr, err)
			}
		}
	}

	if hyd.StaleCount > 0 {
		hyd.warnf("workbook %q: skipped %d stale cached values (engine %s)", doc.Name, hyd.StaleCount, inst.Version())
		log.Printf("缓存过期: 工作簿 %q 跳过 %d 条过期计算缓存 (当前引擎 %s)", doc.Name, hyd.StaleCount, inst.Version())
	}

	if !opts.SkipValidation {
		hyd.validateFormulas(doc)
	}

	return hyd, nil
}

// loadCell 按 公式 > 原始值 > 未过期计算缓存 > 跳过 的优先级装载单元格
func (h *Hydration) loadCell(sheet *model.Sheet, engineID int, addr string, cell *model.Cell, opts Options) error {
	row, col, err := model.ParseAddress(addr)
	if err != nil {
		return err
	}

	cell.EngineRef = &model.EngineRef{SheetID: engineID, Row: row, Col: col}

	switch {
	case cell.HasFormula():
		return h.Engine.SetFormula(engineID, row, col, cell.Formula)

	case cell.Value != nil:
		return h.Engine.SetValue(engineID, row, col, cell.Value)

	case cell.Computed != nil && !opts.IgnoreCache:
		// 缓存过期检测：版本戳与活动引擎不一致的缓存不作为初值装载
		if cell.Computed.EngineVersion != h.Engine.Version() {
			h.StaleCount++
			h.warnf("sheet %q cell %s: stale computed cache (stamped %s, engine %s), skipped",
				sheet.Name, addr, cell.Computed.EngineVersion, h.Engine.Version())
			return nil
		}
		seed := seedValue(cell.Computed)
		if seed == nil {
			return nil
		}
		return h.Engine.SetValue(engineID, row, col, seed)

	default:
		return nil
	}
}

// seedValue 把计算缓存转换为可装载的标量；错误和空结果没有可装载的值
func seedValue(cv *model.ComputedValue) any {
	switch cv.Type {
	case model.CellValueNumber:
		return cv.Number
	case model.CellValueString:
		return cv.Text
	case model.CellValueBoolean:
		return cv.Boolean
	default:
		return nil
	}
}

// validateFormulas 装载后回读每个公式单元格，装载期求值错误记为警告
func (h *Hydration) validateFormulas(doc *model.Workbook) {
	for _, sheet := range doc.Sheets {
		engineID, ok := h.SheetIDs[sheet.ID]
		if !ok {
			continue
		}
		for _, addr := range sheet.Addresses() {
			cell := sheet.Cells[addr]
			if !cell.HasFormula() {
				continue
			}
			row, col, err := model.ParseAddress(addr)
			if err != nil {
				continue
			}
			v, err := h.Engine.Value(engineID, row, col)
			if err != nil {
				h.warnf("sheet %q cell %s: load-time read failed: %v", sheet.Name, addr, err)
				continue
			}
			if v.Kind == engine.KindError {
				h.warnf("sheet %q cell %s: evaluates to %s at load time", sheet.Name, addr, v.Error.Token)
			}
		}
	}
}
