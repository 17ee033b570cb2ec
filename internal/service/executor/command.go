// Package executor 操作执行器：文档变更的唯一入口
// 把外部（AI 生成）的类型化命令序列逐条施加到工作簿文档上，
// 单条失败相互隔离，引擎实例生命周期严格限定在一次 Execute 内
package executor

import (
	"encoding/json"
	"fmt"

	"gridbook/internal/model"
)

// Kind 命令类型标签（JSON 信封中的 type 字段）
type Kind string

const (
	KindCreateWorkbook   Kind = "create-workbook"
	KindAddSheet         Kind = "add-sheet"
	KindRemoveSheet      Kind = "remove-sheet"
	KindRenameSheet      Kind = "rename-sheet"
	KindSetCells         Kind = "set-cells"
	KindSetFormula       Kind = "set-formula"
	KindApplyFormat      Kind = "apply-format"
	KindMergeCells       Kind = "merge-cells"
	KindDefineNamedRange Kind = "define-named-range"
	KindCompute          Kind = "compute"
	KindImport           Kind = "import"
	KindExport           Kind = "export"
)

// Command 类型化命令：每个变体携带自己的强类型参数
// 派发用穷尽式类型分支，新增变体时编译器会把遗漏暴露在 dispatch 里
type Command interface {
	Kind() Kind
}

// CreateWorkbook 重建一个全新工作簿（替换当前文档）
type CreateWorkbook struct {
	Name string `json:"name"`
}

func (CreateWorkbook) Kind() Kind { return KindCreateWorkbook }

// AddSheet 新增工作表
type AddSheet struct {
	Name string `json:"name"`
}

func (AddSheet) Kind() Kind { return KindAddSheet }

// RemoveSheet 删除工作表；Sheet 为工作表 ID 或名称
type RemoveSheet struct {
	Sheet string `json:"sheet"`
}

func (RemoveSheet) Kind() Kind { return KindRemoveSheet }

// RenameSheet 重命名工作表
type RenameSheet struct {
	Sheet   string `json:"sheet"`
	NewName string `json:"newName"`
}

func (RenameSheet) Kind() Kind { return KindRenameSheet }

// SetCells 批量写单元格；值为字符串且以 "=" 开头时按公式处理
type SetCells struct {
	Sheet string         `json:"sheet"`
	Cells map[string]any `json:"cells"`
}

func (SetCells) Kind() Kind { return KindSetCells }

// SetFormula 写单个公式
type SetFormula struct {
	Sheet   string `json:"sheet"`
	Address string `json:"address"`
	Formula string `json:"formula"`
}

func (SetFormula) Kind() Kind { return KindSetFormula }

// ApplyFormat 对范围内全部单元格应用样式
type ApplyFormat struct {
	Sheet string           `json:"sheet"`
	Range string           `json:"range"`
	Style *model.CellStyle `json:"style"`
}

func (ApplyFormat) Kind() Kind { return KindApplyFormat }

// MergeCells 合并范围（至少两个单元格，不得与既有合并范围相交）
type MergeCells struct {
	Sheet string `json:"sheet"`
	Range string `json:"range"`
}

func (MergeCells) Kind() Kind { return KindMergeCells }

// DefineNamedRange 定义命名范围；Sheet 非空时为表级作用域
type DefineNamedRange struct {
	Name  string `json:"name"`
	Ref   string `json:"ref"`
	Sheet string `json:"sheet,omitempty"`
}

func (DefineNamedRange) Kind() Kind { return KindDefineNamedRange }

// Compute 触发重算：首次水合引擎，之后走增量更新
// Full 为 true 时强制丢弃活动引擎重新水合
type Compute struct {
	Full bool `json:"full,omitempty"`
}

func (Compute) Kind() Kind { return KindCompute }

// Import 从 xlsx 文件导入为当前文档
type Import struct {
	Path string `json:"path"`
}

func (Import) Kind() Kind { return KindImport }

// Export 把当前文档导出为 xlsx 文件
type Export struct {
	Path string `json:"path"`
}

func (Export) Kind() Kind { return KindExport }

// envelope 外部命令的 JSON 信封
type envelope struct {
	Type   Kind            `json:"type"`
	Params json.RawMessage `json:"params"`
}

// Decode 解析外部命令序列（[{type, params}, ...]）
func Decode(data []byte) ([]Command, error) {
	var envelopes []envelope
	if err := json.Unmarshal(data, &envelopes); err != nil {
		return nil, fmt.Errorf("failed to decode command list: %w", err)
	}

	cmds := make([]Command, 0, len(envelopes))
	for i, env := range envelopes {
		cmd, err := decodeOne(env)
		if err != nil {
			return nil, fmt.Errorf("command %d (%s): %w", i, env.Type, err)
		}
		cmds = append(cmds, cmd)
	}
	return cmds, nil
}

func decodeOne(env envelope) (Command, error) {
	params := env.Params
	if len(params) == 0 {
		params = json.RawMessage("{}")
	}

	unmarshal := func(out Command) (Command, error) {
		if err := json.Unmarshal(params, out); err != nil {
			return nil, err
		}
		return out, nil
	}

	switch env.Type {
	case KindCreateWorkbook:
		return unmarshal(&CreateWorkbook{})
	case KindAddSheet:
		return unmarshal(&AddSheet{})
	case KindRemoveSheet:
		return unmarshal(&RemoveSheet{})
	case KindRenameSheet:
		return unmarshal(&RenameSheet{})
	case KindSetCells:
		return unmarshal(&SetCells{})
	case KindSetFormula:
		return unmarshal(&SetFormula{})
	case KindApplyFormat:
		return unmarshal(&ApplyFormat{})
	case KindMergeCells:
		return unmarshal(&MergeCells{})
	case KindDefineNamedRange:
		return unmarshal(&DefineNamedRange{})
	case KindCompute:
		return unmarshal(&Compute{})
	case KindImport:
		return unmarshal(&Import{})
	case KindExport:
		return unmarshal(&Export{})
	default:
		return nil, fmt.Errorf("unknown command type %q", env.Type)
	}
}
