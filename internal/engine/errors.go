package engine

import "strings"

// EvalError 公式求值错误：稳定错误码 + 展示令牌 + 分类说明
// 与底层引擎的内部表示解耦，调用方不需要任何引擎特定知识
type EvalError struct {
	Code     string // 稳定错误码，如 DIV_BY_ZERO
	Token    string // 展示令牌，如 #DIV/0!
	Category string // 人类可读分类
	Message  string // 引擎原始信息（仅作诊断参考）
}

func (e *EvalError) Error() string {
	if e.Message != "" {
		return e.Token + ": " + e.Message
	}
	return e.Token
}

// 稳定错误码
const (
	CodeDivByZero        = "DIV_BY_ZERO"
	CodeUnavailable      = "UNAVAILABLE"
	CodeNameUnknown      = "NAME_UNKNOWN"
	CodeNullIntersection = "NULL_INTERSECTION"
	CodeNumInvalid       = "NUM_INVALID"
	CodeRefInvalid       = "REF_INVALID"
	CodeValueType        = "VALUE_TYPE"
	CodeCircularRef      = "CIRCULAR_REF"
	CodeUnknown          = "UNKNOWN"
)

// 稳定展示令牌
const (
	TokenDivByZero        = "#DIV/0!"
	TokenUnavailable      = "#N/A"
	TokenNameUnknown      = "#NAME?"
	TokenNullIntersection = "#NULL!"
	TokenNumInvalid       = "#NUM!"
	TokenRefInvalid       = "#REF!"
	TokenValueType        = "#VALUE!"
	TokenCircularRef      = "#CIRCULAR!"
)

// errorSpec 错误码 <-> 令牌 <-> 分类的固定映射表
type errorSpec struct {
	code     string
	token    string
	category string
}

var errorSpecs = []errorSpec{
	{CodeDivByZero, TokenDivByZero, "除数为零"},
	{CodeUnavailable, TokenUnavailable, "值不可用"},
	{CodeNameUnknown, TokenNameUnknown, "无法识别的名称或函数"},
	{CodeNullIntersection, TokenNullIntersection, "范围交集为空"},
	{CodeNumInvalid, TokenNumInvalid, "非法数值运算"},
	{CodeRefInvalid, TokenRefInvalid, "非法引用"},
	{CodeValueType, TokenValueType, "操作数类型错误"},
	{CodeCircularRef, TokenCircularRef, "循环引用"},
}

// NewEvalError 按稳定错误码构造求值错误
func NewEvalError(code, message string) *EvalError {
	for _, spec := range errorSpecs {
		if spec.code == code {
			return &EvalError{Code: spec.code, Token: spec.token, Category: spec.category, Message: message}
		}
	}
	return &EvalError{Code: CodeUnknown, Token: TokenValueType, Category: "未知错误", Message: message}
}

// ClassifyErrorToken 将引擎返回的错误令牌映射为稳定错误
// 令牌不认识时退化为 UNKNOWN，但保留原始文本供诊断
func ClassifyErrorToken(token string) *EvalError {
	trimmed := strings.TrimSpace(token)
	for _, spec := range errorSpecs {
		if spec.token == trimmed {
			return &EvalError{Code: spec.code, Token: spec.token, Category: spec.category}
		}
	}
	return &EvalError{Code: CodeUnknown, Token: trimmed, Category: "未知错误", Message: token}
}

// IsErrorToken 判断一段文本是否为错误令牌（引擎把错误作为字面结果返回时使用）
func IsErrorToken(text string) bool {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "#") {
		return false
	}
	for _, spec := range errorSpecs {
		if spec.token == trimmed {
			return true
		}
	}
	return false
}

// ClassifyEngineError 将引擎内部错误信息映射为稳定求值错误
// 底层引擎用文本描述部分错误（如未实现的函数名），这里做模式归类
func ClassifyEngineError(message string) *EvalError {
	lower := strings.ToLower(message)

	switch {
	case strings.Contains(message, TokenDivByZero):
		return NewEvalError(CodeDivByZero, message)
	case strings.Contains(message, TokenUnavailable):
		return NewEvalError(CodeUnavailable, message)
	case strings.Contains(message, TokenNameUnknown):
		return NewEvalError(CodeNameUnknown, message)
	case strings.Contains(message, TokenNullIntersection):
		return NewEvalError(CodeNullIntersection, message)
	case strings.Contains(message, TokenNumInvalid):
		return NewEvalError(CodeNumInvalid, message)
	case strings.Contains(message, TokenRefInvalid):
		return NewEvalError(CodeRefInvalid, message)
	case strings.Contains(message, TokenValueType):
		return NewEvalError(CodeValueType, message)
	case strings.Contains(lower, "circular"):
		return NewEvalError(CodeCircularRef, message)
	case strings.Contains(lower, "not support") && strings.Contains(lower, "function"):
		// 引擎不认识的函数按未识别名称处理
		return NewEvalError(CodeNameUnknown, message)
	case strings.Contains(lower, "invalid reference"):
		return NewEvalError(CodeRefInvalid, message)
	case strings.Contains(lower, "division by zero") || strings.Contains(lower, "divide by zero"):
		return NewEvalError(CodeDivByZero, message)
	default:
		return &EvalError{Code: CodeUnknown, Token: TokenValueType, Category: "未知错误", Message: message}
	}
}
