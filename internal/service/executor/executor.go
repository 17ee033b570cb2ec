package executor

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"gridbook/internal/engine"
	"gridbook/internal/model"
	"gridbook/internal/service/bridge"
	"gridbook/internal/service/excel"
)

// Status 执行器终态
type Status string

const (
	StatusCompleted Status = "completed" // 命令循环跑完（可能带部分失败）
	StatusBlocked   Status = "blocked"   // 计划模式，未执行任何命令
	StatusFailed    Status = "failed"    // 结构性失败（克隆失败、逃逸异常）
)

// Mode 执行模式
type Mode string

const (
	ModeExecute Mode = "execute"
	ModePlan    Mode = "plan" // 只校验不执行
)

// 命令级稳定错误码
const (
	CodeSheetNotFound  = "SHEET_NOT_FOUND"
	CodeInvalidAddress = "INVALID_ADDRESS"
	CodeInvalidName    = "INVALID_NAME"
	CodeMergeConflict  = "MERGE_CONFLICT"
	CodeBadParams      = "BAD_PARAMS"
	CodeWorkbook       = "WORKBOOK"
	CodeComputeFailed  = "COMPUTE_FAILED"
	CodeIOFailed       = "IO_FAILED"
	CodeInternal       = "INTERNAL"
)

// Options 一次执行的选项包
type Options struct {
	Mode        Mode           // 默认 execute
	StopOnError bool           // 首条失败即停
	NoClone     bool           // 默认克隆文档后再执行（非破坏性干跑）
	Config      *engine.Config // 引擎配置；nil 用默认值
}

// CommandError 单条命令的结构化错误
type CommandError struct {
	Index   int     `json:"index"`
	Type    Kind    `json:"type"`
	Code    string  `json:"code"`
	Message string  `json:"message"`
	Command Command `json:"command,omitempty"` // 失败命令的原始载荷
}

// Result 执行结果
// Success 当且仅当 Errors 为空；部分失败与全部成功永远通过
// 错误列表区分，不靠单个布尔值
type Result struct {
	Success  bool            `json:"success"`
	Status   Status          `json:"status"`
	Document *model.Workbook `json:"document"`
	Errors   []CommandError  `json:"errors"`
	Warnings []string        `json:"warnings"`
	Executed int             `json:"executed"`
	Total    int             `json:"total"`
}

// Executor 操作执行器
// 每次 Execute 是一次独立运行：引擎实例在运行内惰性创建、
// 运行间绝不共享，退出时无条件销毁
type Executor struct {
	factory engine.Factory
}

// New 创建执行器
func New(factory engine.Factory) *Executor {
	return &Executor{factory: factory}
}

// cmdError 带稳定错误码的命令错误
type cmdError struct {
	code string
	err  error
}

func (e *cmdError) Error() string { return e.err.Error() }
func (e *cmdError) Unwrap() error { return e.err }

func failCode(code string, format string, args ...any) error {
	return &cmdError{code: code, err: fmt.Errorf(format, args...)}
}

func codeOf(err error) string {
	var ce *cmdError
	if errors.As(err, &ce) {
		return ce.code
	}
	switch {
	case errors.Is(err, model.ErrSheetNotFound):
		return CodeSheetNotFound
	case errors.Is(err, model.ErrInvalidAddress):
		return CodeInvalidAddress
	case errors.Is(err, model.ErrSheetNameRequired):
		return CodeBadParams
	case errors.Is(err, model.ErrLastSheet), errors.Is(err, model.ErrDuplicateSheetName):
		return CodeWorkbook
	case errors.Is(err, bridge.ErrEmptyWorkbook):
		return CodeComputeFailed
	default:
		return CodeInternal
	}
}

// runState 一次 Execute 内的可变状态
type runState struct {
	doc       *model.Workbook
	hyd       *bridge.Hydration
	pending   []bridge.Edit // 上次 compute 之后累积的点编辑
	structure bool          // 文档结构已变化，活动水合失效
}

// Execute 按序执行命令序列
// 状态机 Idle -> Running -> {Completed, Blocked, Failed}；
// 单条命令失败被隔离记录后继续（除非 StopOnError）；
// 本次运行创建的引擎实例在任何退出路径上都被销毁。
// 返回值具名：异常逃逸时 recover 分支改写的终态必须抵达调用方
func (x *Executor) Execute(doc *model.Workbook, cmds []Command, opts Options) (result *Result) {
	result = &Result{
		Document: doc,
		Errors:   []CommandError{},
		Warnings: []string{},
		Total:    len(cmds),
	}

	// Idle -> Blocked：计划模式不做任何文档变更
	if opts.Mode == ModePlan {
		result.Status = StatusBlocked
		result.Success = true
		return result
	}

	// Idle -> Running
	rs := &runState{doc: doc}
	if !opts.NoClone {
		clone, err := doc.Clone()
		if err != nil {
			result.Status = StatusFailed
			result.Errors = append(result.Errors, CommandError{
				Index: -1, Code: CodeInternal, Message: fmt.Sprintf("failed to clone document: %v", err),
			})
			return result
		}
		rs.doc = clone
	}

	// 引擎生命周期绝不超出本次 Execute：包括异常逃逸路径
	defer func() {
		if rs.hyd != nil {
			if err := rs.hyd.Close(); err != nil {
				log.Printf("引擎实例销毁失败（已忽略）: %v", err)
			}
			rs.hyd = nil
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			if rs.hyd != nil {
				if err := rs.hyd.Close(); err != nil {
					log.Printf("引擎实例销毁失败（已忽略）: %v", err)
				}
				rs.hyd = nil
			}
			result.Status = StatusFailed
			result.Document = rs.doc
			result.Errors = append(result.Errors, CommandError{
				Index: -1, Code: CodeInternal, Message: fmt.Sprintf("panic during execution: %v", r),
			})
			result.Success = false
		}
	}()

	for i, cmd := range cmds {
		if err := x.apply(rs, cmd, opts, result); err != nil {
			result.Errors = append(result.Errors, CommandError{
				Index:   i,
				Type:    cmd.Kind(),
				Code:    codeOf(err),
				Message: err.Error(),
				Command: cmd,
			})
			if opts.StopOnError {
				break
			}
			continue
		}
		result.Executed++
	}

	result.Document = rs.doc
	result.Status = StatusCompleted
	result.Success = len(result.Errors) == 0
	return result
}

// apply 穷尽式命令派发
func (x *Executor) apply(rs *runState, cmd Command, opts Options, result *Result) error {
	switch c := cmd.(type) {
	case *CreateWorkbook:
		if c.Name == "" {
			return failCode(CodeBadParams, "create-workbook: name is required")
		}
		rs.doc = model.NewWorkbook(c.Name)
		rs.structure = true
		rs.pending = nil
		return nil

	case *AddSheet:
		if _, err := rs.doc.AddSheet(c.Name); err != nil {
			return err
		}
		rs.structure = true
		return nil

	case *RemoveSheet:
		sheet, err := rs.doc.ResolveSheet(c.Sheet)
		if err != nil {
			return err
		}
		if err := rs.doc.RemoveSheet(sheet.ID); err != nil {
			return err
		}
		rs.structure = true
		return nil

	case *RenameSheet:
		sheet, err := rs.doc.ResolveSheet(c.Sheet)
		if err != nil {
			return err
		}
		if err := rs.doc.RenameSheet(sheet.ID, c.NewName); err != nil {
			return err
		}
		rs.structure = true
		return nil

	case *SetCells:
		sheet, err := rs.doc.ResolveSheet(c.Sheet)
		if err != nil {
			return err
		}
		// 按地址排序施加，批次行为与 map 遍历顺序无关；
		// 每写入一格立即入待同步队列 —— 中途失败时已落文档的
		// 单元格也必须同步进引擎，否则增量重算基于发散状态
		addrs := make([]string, 0, len(c.Cells))
		for addr := range c.Cells {
			addrs = append(addrs, addr)
		}
		sort.Strings(addrs)
		for _, addr := range addrs {
			value := c.Cells[addr]
			edit := bridge.Edit{SheetID: sheet.ID, Address: addr, Value: value}
			if s, ok := value.(string); ok && strings.HasPrefix(strings.TrimSpace(s), "=") {
				if err := sheet.SetCellFormula(addr, s); err != nil {
					return err
				}
				edit.Value = model.NormalizeFormula(s)
			} else if value == nil {
				if err := sheet.ClearCell(addr); err != nil {
					return err
				}
			} else {
				if err := sheet.SetCellValue(addr, value); err != nil {
					return err
				}
			}
			rs.pending = append(rs.pending, edit)
		}
		rs.doc.Touch()
		return nil

	case *SetFormula:
		sheet, err := rs.doc.ResolveSheet(c.Sheet)
		if err != nil {
			return err
		}
		if c.Formula == "" {
			return failCode(CodeBadParams, "set-formula: formula is required")
		}
		if err := sheet.SetCellFormula(c.Address, c.Formula); err != nil {
			return err
		}
		rs.doc.Touch()
		rs.pending = append(rs.pending, bridge.Edit{
			SheetID: sheet.ID,
			Address: c.Address,
			Value:   model.NormalizeFormula(c.Formula),
		})
		return nil

	case *ApplyFormat:
		sheet, err := rs.doc.ResolveSheet(c.Sheet)
		if err != nil {
			return err
		}
		addrs, err := rangeAddresses(c.Range)
		if err != nil {
			return err
		}
		for _, addr := range addrs {
			if err := sheet.SetCellStyle(addr, c.Style); err != nil {
				return err
			}
		}
		rs.doc.Touch()
		return nil

	case *MergeCells:
		sheet, err := rs.doc.ResolveSheet(c.Sheet)
		if err != nil {
			return err
		}
		if err := validateMerge(sheet, c.Range); err != nil {
			return failCode(CodeMergeConflict, "merge-cells: %v", err)
		}
		sheet.MergedRanges = append(sheet.MergedRanges, c.Range)
		rs.doc.Touch()
		return nil

	case *DefineNamedRange:
		if err := validateRangeName(c.Name); err != nil {
			return failCode(CodeInvalidName, "define-named-range: %v", err)
		}
		if c.Sheet != "" {
			sheet, err := rs.doc.ResolveSheet(c.Sheet)
			if err != nil {
				return err
			}
			if sheet.NamedRanges == nil {
				sheet.NamedRanges = make(map[string]string)
			}
			sheet.NamedRanges[c.Name] = c.Ref
			rs.doc.Touch()
		} else {
			rs.doc.DefineNamedRange(c.Name, c.Ref)
		}
		rs.structure = true // 命名范围在水合时注册进引擎
		return nil

	case *Compute:
		return x.compute(rs, c.Full, opts, result)

	case *Import:
		imported, err := excel.ImportFile(c.Path)
		if err != nil {
			return failCode(CodeIOFailed, "import: %v", err)
		}
		rs.doc = imported
		rs.structure = true
		rs.pending = nil
		return nil

	case *Export:
		if err := excel.ExportFile(rs.doc, c.Path); err != nil {
			return failCode(CodeIOFailed, "export: %v", err)
		}
		return nil

	default:
		return failCode(CodeBadParams, "unsupported command type %q", cmd.Kind())
	}
}

// compute 唯一触碰引擎的命令
// 首次使用惰性水合；水合仍有效时走增量更新热路径；
// 结构变化或强制全量时先销毁旧实例再水合 —— 一次运行最多
// 只有一个活动引擎实例
func (x *Executor) compute(rs *runState, full bool, opts Options, result *Result) error {
	needHydrate := rs.hyd == nil || rs.structure || full

	if needHydrate {
		if rs.hyd != nil {
			if err := rs.hyd.Close(); err != nil {
				log.Printf("旧引擎实例销毁失败（已忽略）: %v", err)
			}
			rs.hyd = nil
		}

		hyd, err := bridge.Hydrate(rs.doc, x.factory, bridge.Options{Config: opts.Config})
		if err != nil {
			return failCode(CodeComputeFailed, "compute: %v", err)
		}
		rs.hyd = hyd
		rs.structure = false
		rs.pending = nil // 水合已装载文档当前状态
		result.Warnings = append(result.Warnings, hyd.Warnings...)

		res := bridge.Recompute(rs.doc, rs.hyd)
		mergeRecompute(result, res)
		return nil
	}

	edits := rs.pending
	rs.pending = nil
	res := bridge.Update(rs.doc, rs.hyd, edits)
	mergeRecompute(result, res)
	return nil
}

// mergeRecompute 公式错误是重算的一等结果，不算命令失败，汇总进警告
func mergeRecompute(result *Result, res *bridge.Result) {
	result.Warnings = append(result.Warnings, res.Warnings...)
	for _, ce := range res.Errors {
		result.Warnings = append(result.Warnings, fmt.Sprintf("formula error at %s: %s", ce.Address, ce.Token))
	}
}
