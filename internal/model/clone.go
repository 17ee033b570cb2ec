package model

import "github.com/tiendc/go-deepcopy"

// Clone 深拷贝整个工作簿
// 返回值是全新的根对象，与原工作簿不共享任何可变子结构；
// 操作执行器默认在克隆上执行命令，保证干跑不污染原文档
func (w *Workbook) Clone() (*Workbook, error) {
	out := &Workbook{}
	if err := deepcopy.Copy(out, w); err != nil {
		return nil, err
	}
	return out, nil
}
