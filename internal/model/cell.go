package model

import (
	"strings"
	"time"
)

// CellValueType 计算结果类型标签
type CellValueType string

const (
	CellValueNumber  CellValueType = "number"
	CellValueString  CellValueType = "string"
	CellValueBoolean CellValueType = "boolean"
	CellValueError   CellValueType = "error"
	CellValueEmpty   CellValueType = "empty"
)

// ErrorDetail 公式求值错误详情（稳定错误码 + 展示令牌，与底层引擎表示解耦）
type ErrorDetail struct {
	Code    string `json:"code"`              // 稳定错误码，如 DIV_BY_ZERO
	Token   string `json:"token"`             // 展示令牌，如 #DIV/0!
	Message string `json:"message,omitempty"` // 人类可读说明
}

// ComputedValue 公式单元格最近一次求值结果
// EngineVersion 与当前引擎版本不一致时视为过期缓存，不得直接采信
type ComputedValue struct {
	Type          CellValueType `json:"type"`
	Number        float64       `json:"number,omitempty"`
	Text          string        `json:"text,omitempty"`
	Boolean       bool          `json:"boolean,omitempty"`
	Error         *ErrorDetail  `json:"error,omitempty"`
	EngineVersion string        `json:"engineVersion"`
	EngineBuild   string        `json:"engineBuild,omitempty"`
	ComputedAt    time.Time     `json:"computedAt"`
}

// EngineRef 引擎内部坐标缓存（纯优化，可随时丢弃并在下次水合时重建）
type EngineRef struct {
	SheetID int `json:"sheetId"`
	Row     int `json:"row"`
	Col     int `json:"col"`
}

// CellStyle 单元格样式
type CellStyle struct {
	NumberFormat string `json:"numberFormat,omitempty"`
	Bold         bool   `json:"bold,omitempty"`
	Italic       bool   `json:"italic,omitempty"`
	FontColor    string `json:"fontColor,omitempty"`
	FillColor    string `json:"fillColor,omitempty"`
	Align        string `json:"align,omitempty"`
}

// Cell 单元格：原始字面值或公式二选一，公式存在时优先
type Cell struct {
	Value     any            `json:"value,omitempty"`     // 原始字面值
	Formula   string         `json:"formula,omitempty"`   // 公式文本，规范化为 "=" 前缀
	Computed  *ComputedValue `json:"computed,omitempty"`  // 最近一次求值结果
	Style     *CellStyle     `json:"style,omitempty"`     // 样式
	EngineRef *EngineRef     `json:"engineRef,omitempty"` // 引擎坐标缓存
}

// HasFormula 是否为公式单元格
func (c *Cell) HasFormula() bool {
	return c != nil && c.Formula != ""
}

// IsEmpty 值、公式、样式均为空时单元格视为空白（稀疏存储中应被移除）
func (c *Cell) IsEmpty() bool {
	if c == nil {
		return true
	}
	return c.Value == nil && c.Formula == "" && c.Style == nil
}

// NormalizeFormula 规范化公式文本：去除首尾空白并补上 "=" 前缀
func NormalizeFormula(formula string) string {
	formula = strings.TrimSpace(formula)
	if formula == "" {
		return ""
	}
	if !strings.HasPrefix(formula, "=") {
		return "=" + formula
	}
	return formula
}
