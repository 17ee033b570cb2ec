// Package enginetest 提供测试用的内存公式引擎
// 只实现测试需要的最小求值能力：数字、单元格引用、四则运算、括号；
// 未知函数返回 #NAME?，除零返回 #DIV/0!，循环引用返回 #CIRCULAR!
package enginetest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gridbook/internal/engine"
	"gridbook/internal/model"
)

// FakeFactory 测试引擎工厂，记录创建过的全部实例便于断言生命周期
type FakeFactory struct {
	Ver          string
	FailAddSheet bool // 模拟引擎工作表创建失败（结构性错误路径）
	Instances    []*FakeInstance
}

// NewFakeFactory 创建测试工厂
func NewFakeFactory() *FakeFactory {
	return &FakeFactory{Ver: "fake/1.0"}
}

// New 创建测试实例
func (f *FakeFactory) New(_ engine.Config) (engine.Instance, error) {
	inst := &FakeInstance{
		ver:          f.Ver,
		failAddSheet: f.FailAddSheet,
		sheets:       make(map[int]string),
		byName:       make(map[string]int),
		values:       make(map[engine.Ref]any),
		formulas:     make(map[engine.Ref]string),
		defined:      make(map[string]string),
	}
	f.Instances = append(f.Instances, inst)
	return inst, nil
}

// Version 工厂版本
func (f *FakeFactory) Version() string { return f.Ver }

// OpenInstances 尚未销毁的实例数（引擎生命周期断言用）
func (f *FakeFactory) OpenInstances() int {
	open := 0
	for _, inst := range f.Instances {
		if !inst.Closed {
			open++
		}
	}
	return open
}

// FakeInstance 内存引擎实例
type FakeInstance struct {
	ver          string
	failAddSheet bool
	sheets       map[int]string
	byName       map[string]int
	nextID       int
	values       map[engine.Ref]any
	formulas     map[engine.Ref]string
	defined      map[string]string

	Closed     bool
	CloseCalls int
}

// AddSheet 新建工作表
func (i *FakeInstance) AddSheet(name string) (int, error) {
	if i.Closed {
		return 0, errors.New("fake instance closed")
	}
	if i.failAddSheet {
		return 0, errors.New("fake: sheet creation failure")
	}
	id := i.nextID
	i.nextID++
	i.sheets[id] = name
	i.byName[name] = id
	return id, nil
}

// SetValue 写入字面值
func (i *FakeInstance) SetValue(sheetID, row, col int, value any) error {
	if i.Closed {
		return errors.New("fake instance closed")
	}
	ref := engine.Ref{SheetID: sheetID, Row: row, Col: col}
	delete(i.formulas, ref)
	if value == nil {
		delete(i.values, ref)
		return nil
	}
	i.values[ref] = value
	return nil
}

// SetFormula 写入公式
func (i *FakeInstance) SetFormula(sheetID, row, col int, formula string) error {
	if i.Closed {
		return errors.New("fake instance closed")
	}
	ref := engine.Ref{SheetID: sheetID, Row: row, Col: col}
	i.formulas[ref] = strings.TrimPrefix(strings.TrimSpace(formula), "=")
	return nil
}

// Clear 清空单元格
func (i *FakeInstance) Clear(sheetID, row, col int) error {
	ref := engine.Ref{SheetID: sheetID, Row: row, Col: col}
	delete(i.values, ref)
	delete(i.formulas, ref)
	return nil
}

// Value 读取求值结果
func (i *FakeInstance) Value(sheetID, row, col int) (engine.Value, error) {
	if i.Closed {
		return engine.Value{}, errors.New("fake instance closed")
	}
	ref := engine.Ref{SheetID: sheetID, Row: row, Col: col}

	if formula, ok := i.formulas[ref]; ok {
		n, evalErr := i.eval(formula, sheetID, map[engine.Ref]bool{ref: true})
		if evalErr != nil {
			return engine.Value{Kind: engine.KindError, Error: evalErr}, nil
		}
		return engine.Value{Kind: engine.KindNumber, Number: n}, nil
	}

	value, ok := i.values[ref]
	if !ok {
		return engine.Value{Kind: engine.KindEmpty}, nil
	}
	switch v := value.(type) {
	case float64:
		return engine.Value{Kind: engine.KindNumber, Number: v}, nil
	case int:
		return engine.Value{Kind: engine.KindNumber, Number: float64(v)}, nil
	case bool:
		return engine.Value{Kind: engine.KindBoolean, Boolean: v}, nil
	case string:
		return engine.Value{Kind: engine.KindString, Text: v}, nil
	default:
		return engine.Value{Kind: engine.KindString, Text: fmt.Sprintf("%v", v)}, nil
	}
}

// Dependents 扫描全部公式，返回引用了目标坐标的公式单元格
func (i *FakeInstance) Dependents(sheetID, row, col int) ([]engine.Ref, error) {
	if i.Closed {
		return nil, errors.New("fake instance closed")
	}
	target, err := model.FormatAddress(row, col)
	if err != nil {
		return nil, err
	}

	var deps []engine.Ref
	for ref, formula := range i.formulas {
		if ref.SheetID != sheetID {
			continue
		}
		for _, cellRef := range scanRefs(formula) {
			if cellRef == target {
				deps = append(deps, ref)
				break
			}
		}
	}
	return deps, nil
}

// DefineName 注册命名表达式
func (i *FakeInstance) DefineName(name, ref string) error {
	i.defined[name] = ref
	return nil
}

// RemoveName 注销命名表达式
func (i *FakeInstance) RemoveName(name string) error {
	delete(i.defined, name)
	return nil
}

// Version 实例版本
func (i *FakeInstance) Version() string { return i.ver }

// Close 销毁实例并计数
func (i *FakeInstance) Close() error {
	i.CloseCalls++
	i.Closed = true
	return nil
}

// ---- 最小表达式求值器 ----

type parser struct {
	input    string
	pos      int
	sheetID  int
	inst     *FakeInstance
	visiting map[engine.Ref]bool
}

// eval 求值公式（不带 "=" 前缀）
func (i *FakeInstance) eval(formula string, sheetID int, visiting map[engine.Ref]bool) (float64, *engine.EvalError) {
	p := &parser{input: formula, sheetID: sheetID, inst: i, visiting: visiting}
	n, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	if p.pos != len(p.input) {
		return 0, engine.NewEvalError(engine.CodeValueType, "unexpected trailing input")
	}
	return n, nil
}

func (p *parser) skipSpaces() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}

func (p *parser) parseExpr() (float64, *engine.EvalError) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpaces()
		if p.pos >= len(p.input) {
			return left, nil
		}
		op := p.input[p.pos]
		if op != '+' && op != '-' {
			return left, nil
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return 0, err
		}
		if op == '+' {
			left += right
		} else {
			left -= right
		}
	}
}

func (p *parser) parseTerm() (float64, *engine.EvalError) {
	left, err := p.parseFactor()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpaces()
		if p.pos >= len(p.input) {
			return left, nil
		}
		op := p.input[p.pos]
		if op != '*' && op != '/' {
			return left, nil
		}
		p.pos++
		right, err := p.parseFactor()
		if err != nil {
			return 0, err
		}
		if op == '*' {
			left *= right
		} else {
			if right == 0 {
				return 0, engine.NewEvalError(engine.CodeDivByZero, "division by zero")
			}
			left /= right
		}
	}
}

func (p *parser) parseFactor() (float64, *engine.EvalError) {
	p.skipSpaces()
	if p.pos >= len(p.input) {
		return 0, engine.NewEvalError(engine.CodeValueType, "unexpected end of formula")
	}

	ch := p.input[p.pos]

	if ch == '(' {
		p.pos++
		n, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		p.skipSpaces()
		if p.pos >= len(p.input) || p.input[p.pos] != ')' {
			return 0, engine.NewEvalError(engine.CodeValueType, "missing closing paren")
		}
		p.pos++
		return n, nil
	}

	if ch == '-' {
		p.pos++
		n, err := p.parseFactor()
		return -n, err
	}

	if ch >= '0' && ch <= '9' {
		start := p.pos
		for p.pos < len(p.input) && (p.input[p.pos] >= '0' && p.input[p.pos] <= '9' || p.input[p.pos] == '.') {
			p.pos++
		}
		n, err := strconv.ParseFloat(p.input[start:p.pos], 64)
		if err != nil {
			return 0, engine.NewEvalError(engine.CodeNumInvalid, err.Error())
		}
		return n, nil
	}

	if isLetter(ch) {
		start := p.pos
		for p.pos < len(p.input) && (isLetter(p.input[p.pos]) || isDigit(p.input[p.pos])) {
			p.pos++
		}
		word := p.input[start:p.pos]

		// 标识符后跟括号视为函数调用；fake 引擎不实现任何函数
		if p.pos < len(p.input) && p.input[p.pos] == '(' {
			return 0, engine.NewEvalError(engine.CodeNameUnknown, "not support "+word+" function")
		}
		return p.resolveRef(word)
	}

	return 0, engine.NewEvalError(engine.CodeValueType, fmt.Sprintf("unexpected character %q", ch))
}

func (p *parser) resolveRef(word string) (float64, *engine.EvalError) {
	row, col, err := model.ParseAddress(word)
	if err != nil {
		return 0, engine.NewEvalError(engine.CodeNameUnknown, "unknown name "+word)
	}
	ref := engine.Ref{SheetID: p.sheetID, Row: row, Col: col}

	if p.visiting[ref] {
		return 0, engine.NewEvalError(engine.CodeCircularRef, "circular reference at "+word)
	}

	if formula, ok := p.inst.formulas[ref]; ok {
		p.visiting[ref] = true
		n, evalErr := p.inst.eval(formula, p.sheetID, p.visiting)
		delete(p.visiting, ref)
		return n, evalErr
	}

	value, ok := p.inst.values[ref]
	if !ok {
		// 空单元格按 0 参与运算
		return 0, nil
	}
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	default:
		return 0, engine.NewEvalError(engine.CodeValueType, "operand is not numeric")
	}
}

func isLetter(ch byte) bool {
	return ch >= 'A' && ch <= 'Z' || ch >= 'a' && ch <= 'z'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// scanRefs 从公式里扫出形如 A1 的同表引用（依赖查询用，尽力而为）
func scanRefs(formula string) []string {
	var refs []string
	i := 0
	for i < len(formula) {
		if !isLetter(formula[i]) {
			i++
			continue
		}
		start := i
		for i < len(formula) && isLetter(formula[i]) {
			i++
		}
		digitStart := i
		for i < len(formula) && isDigit(formula[i]) {
			i++
		}
		if digitStart == i {
			continue
		}
		// 函数名后跟 ( 不算引用
		if i < len(formula) && formula[i] == '(' {
			continue
		}
		if addr, err := model.CanonicalAddress(formula[start:i]); err == nil {
			refs = append(refs, addr)
		}
	}
	return refs
}
