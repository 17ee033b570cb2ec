package engine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"gridbook/internal/model"
)

// excelizeVersion 引擎语义版本串，写入每个计算结果的版本戳
// 升级 excelize 必须同步更新，否则过期缓存检测失效
const excelizeVersion = "excelize/2.10.0"

// ErrInstanceClosed 对已销毁实例的操作
var ErrInstanceClosed = errors.New("engine instance is closed")

// ExcelizeFactory 基于 excelize 计算引擎的实例工厂
type ExcelizeFactory struct{}

// NewExcelizeFactory 创建工厂
func NewExcelizeFactory() *ExcelizeFactory {
	return &ExcelizeFactory{}
}

// Version 工厂创建的引擎版本
func (f *ExcelizeFactory) Version() string {
	return excelizeVersion
}

// New 创建一个空引擎实例
// 配置一次性固定：日期纪元写入工作簿属性，精度与分隔符由 excelize
// 的 Excel 兼容实现保证，空值归零语义由其求值器契约决定
func (f *ExcelizeFactory) New(cfg Config) (Instance, error) {
	file := excelize.NewFile()

	if cfg.Date1904 {
		date1904 := true
		if err := file.SetWorkbookProps(&excelize.WorkbookPropsOptions{Date1904: &date1904}); err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("failed to set workbook props: %w", err)
		}
	}

	return &excelizeInstance{
		file:     file,
		cfg:      cfg,
		sheets:   make(map[int]string),
		formulas: make(map[Ref]string),
	}, nil
}

// excelizeInstance excelize 实例适配器
// 实例被单个水合结果独占，不做内部加锁
type excelizeInstance struct {
	file     *excelize.File
	cfg      Config
	sheets   map[int]string // 引擎内部 ID -> excelize 工作表名
	nextID   int
	formulas map[Ref]string // 坐标 -> 公式文本（不带 "="），用于依赖查询
	closed   bool
}

// AddSheet 新建引擎工作表
// excelize.NewFile 自带一个默认表，第一次 AddSheet 直接复用改名
func (e *excelizeInstance) AddSheet(name string) (int, error) {
	if e.closed {
		return 0, ErrInstanceClosed
	}

	if e.nextID == 0 {
		if err := e.file.SetSheetName("Sheet1", name); err != nil {
			return 0, fmt.Errorf("failed to rename default sheet: %w", err)
		}
	} else {
		if _, err := e.file.NewSheet(name); err != nil {
			return 0, fmt.Errorf("failed to create sheet %q: %w", name, err)
		}
	}

	id := e.nextID
	e.nextID++
	e.sheets[id] = name
	return id, nil
}

func (e *excelizeInstance) locate(sheetID, row, col int) (string, string, error) {
	if e.closed {
		return "", "", ErrInstanceClosed
	}
	name, ok := e.sheets[sheetID]
	if !ok {
		return "", "", fmt.Errorf("unknown engine sheet id %d", sheetID)
	}
	addr, err := model.FormatAddress(row, col)
	if err != nil {
		return "", "", err
	}
	return name, addr, nil
}

// SetValue 写入原始字面值
func (e *excelizeInstance) SetValue(sheetID, row, col int, value any) error {
	name, addr, err := e.locate(sheetID, row, col)
	if err != nil {
		return err
	}
	delete(e.formulas, Ref{SheetID: sheetID, Row: row, Col: col})
	return e.file.SetCellValue(name, addr, value)
}

// SetFormula 写入公式
func (e *excelizeInstance) SetFormula(sheetID, row, col int, formula string) error {
	name, addr, err := e.locate(sheetID, row, col)
	if err != nil {
		return err
	}

	body := strings.TrimPrefix(strings.TrimSpace(formula), "=")
	if err := e.file.SetCellFormula(name, addr, body); err != nil {
		return fmt.Errorf("failed to set formula at %s!%s: %w", name, addr, err)
	}
	e.formulas[Ref{SheetID: sheetID, Row: row, Col: col}] = body
	return nil
}

// Clear 清空单元格
func (e *excelizeInstance) Clear(sheetID, row, col int) error {
	name, addr, err := e.locate(sheetID, row, col)
	if err != nil {
		return err
	}
	delete(e.formulas, Ref{SheetID: sheetID, Row: row, Col: col})
	if err := e.file.SetCellFormula(name, addr, ""); err != nil {
		return err
	}
	return e.file.SetCellValue(name, addr, nil)
}

// Value 读取当前求值结果
// 公式单元格走 CalcCellValue；求值失败是预期结果，映射为 KindError 返回，
// 只有实例级问题（已关闭、坐标非法）才返回 error
func (e *excelizeInstance) Value(sheetID, row, col int) (Value, error) {
	name, addr, err := e.locate(sheetID, row, col)
	if err != nil {
		return Value{}, err
	}

	if _, ok := e.formulas[Ref{SheetID: sheetID, Row: row, Col: col}]; ok {
		raw, calcErr := e.file.CalcCellValue(name, addr)
		if calcErr != nil {
			return Value{Kind: KindError, Error: ClassifyEngineError(calcErr.Error())}, nil
		}
		if IsErrorToken(raw) {
			return Value{Kind: KindError, Error: ClassifyErrorToken(raw)}, nil
		}
		return classifyScalar(raw), nil
	}

	raw, err := e.file.GetCellValue(name, addr)
	if err != nil {
		return Value{}, err
	}
	return classifyScalar(raw), nil
}

// classifyScalar 将引擎返回的文本分类为带类型值
func classifyScalar(raw string) Value {
	if raw == "" {
		return Value{Kind: KindEmpty}
	}
	switch raw {
	case "TRUE":
		return Value{Kind: KindBoolean, Boolean: true}
	case "FALSE":
		return Value{Kind: KindBoolean, Boolean: false}
	}
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return Value{Kind: KindNumber, Number: n}
	}
	return Value{Kind: KindString, Text: raw}
}

// Dependents 返回引用了指定坐标的公式单元格
// excelize 不提供反向依赖查询，这里基于 efp 对实例内全部公式做引用匹配，
// 范围引用按矩形包含判断，不做逐格展开
func (e *excelizeInstance) Dependents(sheetID, row, col int) ([]Ref, error) {
	if e.closed {
		return nil, ErrInstanceClosed
	}
	targetSheet, ok := e.sheets[sheetID]
	if !ok {
		return nil, fmt.Errorf("unknown engine sheet id %d", sheetID)
	}

	var deps []Ref
	for ref, formula := range e.formulas {
		ownerSheet := e.sheets[ref.SheetID]
		for _, span := range extractRefs(formula, ownerSheet) {
			if span.Sheet == targetSheet && span.contains(row, col) {
				deps = append(deps, ref)
				break
			}
		}
	}
	return deps, nil
}

// DefineName 注册工作簿级命名表达式
func (e *excelizeInstance) DefineName(name, ref string) error {
	if e.closed {
		return ErrInstanceClosed
	}
	return e.file.SetDefinedName(&excelize.DefinedName{
		Name:     name,
		RefersTo: ref,
		Scope:    "Workbook",
	})
}

// RemoveName 注销命名表达式
func (e *excelizeInstance) RemoveName(name string) error {
	if e.closed {
		return ErrInstanceClosed
	}
	return e.file.DeleteDefinedName(&excelize.DefinedName{
		Name:  name,
		Scope: "Workbook",
	})
}

// Version 引擎版本串
func (e *excelizeInstance) Version() string {
	return excelizeVersion
}

// Close 销毁实例，重复调用安全
func (e *excelizeInstance) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	return e.file.Close()
}
