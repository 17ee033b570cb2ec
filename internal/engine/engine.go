// Package engine 定义公式计算引擎的外部协作方契约
// 引擎本身是黑盒：文档层只依赖本包接口，不感知底层实现细节
package engine

// Ref 引擎内部单元格坐标（0 基行列 + 引擎内部工作表 ID）
type Ref struct {
	SheetID int
	Row     int
	Col     int
}

// ValueKind 引擎读出值的类型标签
type ValueKind int

const (
	KindEmpty ValueKind = iota
	KindNumber
	KindString
	KindBoolean
	KindError
)

// Value 引擎读出的带类型单元格值
type Value struct {
	Kind    ValueKind
	Number  float64
	Text    string
	Boolean bool
	Error   *EvalError // Kind 为 KindError 时有效
}

// Config 引擎实例固定配置，默认值与 Excel 兼容
// 空值参与运算的归零语义由底层引擎契约决定，这里只做配置透传，不硬编码
type Config struct {
	Precision    int    // 有效数字位数
	Date1904     bool   // 是否使用 1904 日期纪元
	ArgSeparator string // 公式参数分隔符
	NullToZero   bool   // 空单元格参与数值运算时按 0 处理
}

// DefaultConfig Excel 兼容默认配置
func DefaultConfig() Config {
	return Config{
		Precision:    15,
		Date1904:     false,
		ArgSeparator: ",",
		NullToZero:   true,
	}
}

// Instance 一个活动的引擎实例
// 实例由其水合结果独占持有：只有创建它的组件可以读写，
// 用完必须 Close，否则泄漏底层引擎资源
type Instance interface {
	// AddSheet 新建引擎内部工作表，返回引擎内部 ID
	AddSheet(name string) (int, error)
	// SetValue 在坐标处写入原始字面值
	SetValue(sheetID, row, col int, value any) error
	// SetFormula 在坐标处写入公式（带 "=" 前缀）
	SetFormula(sheetID, row, col int, formula string) error
	// Clear 清空坐标处的内容
	Clear(sheetID, row, col int) error
	// Value 读取坐标处的当前求值结果
	Value(sheetID, row, col int) (Value, error)
	// Dependents 返回依赖该坐标的公式单元格列表（尽力而为）
	Dependents(sheetID, row, col int) ([]Ref, error)
	// DefineName 注册命名表达式
	DefineName(name, ref string) error
	// RemoveName 注销命名表达式
	RemoveName(name string) error
	// Version 引擎语义版本串，用于计算结果的版本戳
	Version() string
	// Close 销毁实例；重复调用必须安全
	Close() error
}

// Factory 引擎实例工厂
// 每次水合创建一个全新实例，禁止进程级共享单例
type Factory interface {
	New(cfg Config) (Instance, error)
	// Version 工厂将要创建的引擎版本（用于缓存过期预判）
	Version() string
}
