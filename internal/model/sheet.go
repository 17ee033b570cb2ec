package model

import "sort"

// Sheet 工作表：ID 创建后不可变且不复用，名称可改但全簿唯一
// Cells 稀疏存储，key 为规范化 A1 地址，空白单元格不占条目
type Sheet struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Cells        map[string]*Cell  `json:"cells"`
	NamedRanges  map[string]string `json:"namedRanges,omitempty"`
	MergedRanges []string          `json:"mergedRanges,omitempty"`
}

// Cell 按地址取单元格，地址先规范化；不存在返回 nil
func (s *Sheet) Cell(addr string) (*Cell, error) {
	key, err := CanonicalAddress(addr)
	if err != nil {
		return nil, err
	}
	return s.Cells[key], nil
}

// SetCellValue 写入原始字面值；value 为 nil 时等价于清除值
func (s *Sheet) SetCellValue(addr string, value any) error {
	key, err := CanonicalAddress(addr)
	if err != nil {
		return err
	}

	cell := s.Cells[key]
	if cell == nil {
		cell = &Cell{}
	}
	cell.Value = value
	// 写入字面值后旧公式与求值结果不再成立
	cell.Formula = ""
	cell.Computed = nil

	s.storeCell(key, cell)
	return nil
}

// SetCellFormula 写入公式；空公式等价于清除公式
func (s *Sheet) SetCellFormula(addr string, formula string) error {
	key, err := CanonicalAddress(addr)
	if err != nil {
		return err
	}

	cell := s.Cells[key]
	if cell == nil {
		cell = &Cell{}
	}
	cell.Formula = NormalizeFormula(formula)
	cell.Computed = nil

	s.storeCell(key, cell)
	return nil
}

// SetCellStyle 设置样式；style 为 nil 表示清除样式
func (s *Sheet) SetCellStyle(addr string, style *CellStyle) error {
	key, err := CanonicalAddress(addr)
	if err != nil {
		return err
	}

	cell := s.Cells[key]
	if cell == nil {
		cell = &Cell{}
	}
	cell.Style = style

	s.storeCell(key, cell)
	return nil
}

// ClearCell 清空单元格的值与公式（保留样式则单元格仍存在）
func (s *Sheet) ClearCell(addr string) error {
	key, err := CanonicalAddress(addr)
	if err != nil {
		return err
	}

	cell := s.Cells[key]
	if cell == nil {
		return nil
	}
	cell.Value = nil
	cell.Formula = ""
	cell.Computed = nil

	s.storeCell(key, cell)
	return nil
}

// storeCell 维护稀疏存储不变量：空白单元格从 map 中移除
func (s *Sheet) storeCell(key string, cell *Cell) {
	if cell.IsEmpty() {
		delete(s.Cells, key)
		return
	}
	if s.Cells == nil {
		s.Cells = make(map[string]*Cell)
	}
	s.Cells[key] = cell
}

// Addresses 返回非空单元格地址（排序后，保证遍历顺序稳定）
func (s *Sheet) Addresses() []string {
	addrs := make([]string, 0, len(s.Cells))
	for key := range s.Cells {
		addrs = append(addrs, key)
	}
	sort.Strings(addrs)
	return addrs
}
