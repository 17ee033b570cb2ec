package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrSheetNotFound 工作表不存在
	ErrSheetNotFound = errors.New("sheet not found")
	// ErrLastSheet 禁止删除最后一个工作表
	ErrLastSheet = errors.New("cannot remove the last sheet")
	// ErrDuplicateSheetName 工作表名称必须全簿唯一
	ErrDuplicateSheetName = errors.New("duplicate sheet name")
	// ErrSheetNameRequired 工作表名称不能为空
	ErrSheetNameRequired = errors.New("sheet name is required")
)

// Workbook 工作簿文档模型：持久化的 JSON 交换格式
// Sheets 顺序即显示顺序；ComputedCache / Dependencies 为派生索引，
// 始终可由活动引擎重新生成，不作为正确性依据
type Workbook struct {
	ID            string                    `json:"id"`
	Name          string                    `json:"name"`
	Sheets        []*Sheet                  `json:"sheets"`
	NamedRanges   map[string]string         `json:"namedRanges,omitempty"`
	ComputedCache map[string]*ComputedValue `json:"computedCache,omitempty"`
	Dependencies  map[string][]string       `json:"dependencies,omitempty"`
	ModifiedAt    time.Time                 `json:"modifiedAt"`
}

// NewWorkbook 创建工作簿，自带一个默认工作表（工作簿任何时刻至少有一个工作表）
func NewWorkbook(name string) *Workbook {
	wb := &Workbook{
		ID:         uuid.New().String(),
		Name:       name,
		Sheets:     []*Sheet{},
		ModifiedAt: time.Now().UTC(),
	}
	wb.mustAddSheet("Sheet1")
	return wb
}

func (w *Workbook) mustAddSheet(name string) *Sheet {
	sheet, err := w.AddSheet(name)
	if err != nil {
		// 新建工作簿内不可能重名
		panic(err)
	}
	return sheet
}

// AddSheet 追加工作表，名称必须唯一；ID 由 uuid 生成，永不复用
func (w *Workbook) AddSheet(name string) (*Sheet, error) {
	if name == "" {
		return nil, ErrSheetNameRequired
	}
	if _, err := w.SheetByName(name); err == nil {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateSheetName, name)
	}

	sheet := &Sheet{
		ID:    uuid.New().String(),
		Name:  name,
		Cells: make(map[string]*Cell),
	}
	w.Sheets = append(w.Sheets, sheet)
	w.Touch()
	return sheet, nil
}

// RemoveSheet 删除工作表；最后一个工作表不可删除
func (w *Workbook) RemoveSheet(sheetID string) error {
	if len(w.Sheets) <= 1 {
		return ErrLastSheet
	}

	for i, sheet := range w.Sheets {
		if sheet.ID == sheetID {
			w.Sheets = append(w.Sheets[:i], w.Sheets[i+1:]...)
			w.Touch()
			return nil
		}
	}
	return fmt.Errorf("%w: id %q", ErrSheetNotFound, sheetID)
}

// RenameSheet 重命名工作表，新名称必须全簿唯一
func (w *Workbook) RenameSheet(sheetID string, newName string) error {
	if newName == "" {
		return ErrSheetNameRequired
	}

	for _, sheet := range w.Sheets {
		if sheet.Name == newName && sheet.ID != sheetID {
			return fmt.Errorf("%w: %q", ErrDuplicateSheetName, newName)
		}
	}

	sheet, err := w.SheetByID(sheetID)
	if err != nil {
		return err
	}
	sheet.Name = newName
	w.Touch()
	return nil
}

// SheetByID 按 ID 查找工作表
func (w *Workbook) SheetByID(sheetID string) (*Sheet, error) {
	for _, sheet := range w.Sheets {
		if sheet.ID == sheetID {
			return sheet, nil
		}
	}
	return nil, fmt.Errorf("%w: id %q", ErrSheetNotFound, sheetID)
}

// SheetByName 按名称查找工作表
func (w *Workbook) SheetByName(name string) (*Sheet, error) {
	for _, sheet := range w.Sheets {
		if sheet.Name == name {
			return sheet, nil
		}
	}
	return nil, fmt.Errorf("%w: name %q", ErrSheetNotFound, name)
}

// ResolveSheet 按 ID 或名称查找工作表（操作命令里两种写法都允许）
func (w *Workbook) ResolveSheet(ref string) (*Sheet, error) {
	if sheet, err := w.SheetByID(ref); err == nil {
		return sheet, nil
	}
	return w.SheetByName(ref)
}

// DefineNamedRange 定义工作簿级命名范围（名称语法校验在操作执行器层）
func (w *Workbook) DefineNamedRange(name, ref string) {
	if w.NamedRanges == nil {
		w.NamedRanges = make(map[string]string)
	}
	w.NamedRanges[name] = ref
	w.Touch()
}

// SetComputedCache 将计算结果写入工作簿级扁平缓存（key 为完全限定地址）
func (w *Workbook) SetComputedCache(qualified string, cv *ComputedValue) {
	if w.ComputedCache == nil {
		w.ComputedCache = make(map[string]*ComputedValue)
	}
	w.ComputedCache[qualified] = cv
}

// SetDependencies 更新某公式单元格的依赖边（尽力而为的派生索引）
func (w *Workbook) SetDependencies(qualified string, deps []string) {
	if w.Dependencies == nil {
		w.Dependencies = make(map[string][]string)
	}
	w.Dependencies[qualified] = deps
}

// Touch 更新修改时间戳
func (w *Workbook) Touch() {
	w.ModifiedAt = time.Now().UTC()
}
