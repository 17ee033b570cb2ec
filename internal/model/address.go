package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidAddress 单元格地址格式非法
var ErrInvalidAddress = errors.New("invalid cell address")

// ParseAddress 解析 A1 格式地址为引擎使用的 0 基坐标
// 例如 "A1" -> (0, 0)，"AA10" -> (9, 26)
// 所有组件的地址解析必须经由本函数，不允许各自实现
func ParseAddress(addr string) (row int, col int, err error) {
	if addr == "" {
		return 0, 0, fmt.Errorf("%w: empty address", ErrInvalidAddress)
	}

	i := 0
	for i < len(addr) {
		ch := addr[i]
		if ch >= 'A' && ch <= 'Z' {
			col = col*26 + int(ch-'A'+1)
			i++
			continue
		}
		if ch >= 'a' && ch <= 'z' {
			col = col*26 + int(ch-'a'+1)
			i++
			continue
		}
		break
	}
	if i == 0 {
		return 0, 0, fmt.Errorf("%w: %q has no column letters", ErrInvalidAddress, addr)
	}
	if i == len(addr) {
		return 0, 0, fmt.Errorf("%w: %q has no row number", ErrInvalidAddress, addr)
	}

	rowNum := 0
	for ; i < len(addr); i++ {
		ch := addr[i]
		if ch < '0' || ch > '9' {
			return 0, 0, fmt.Errorf("%w: %q contains non-numeric row", ErrInvalidAddress, addr)
		}
		rowNum = rowNum*10 + int(ch-'0')
	}
	if rowNum <= 0 {
		return 0, 0, fmt.Errorf("%w: %q row must be positive", ErrInvalidAddress, addr)
	}

	return rowNum - 1, col - 1, nil
}

// FormatAddress 将 0 基坐标转换回 A1 格式地址
func FormatAddress(row, col int) (string, error) {
	if row < 0 || col < 0 {
		return "", fmt.Errorf("%w: negative coordinate (%d, %d)", ErrInvalidAddress, row, col)
	}

	letters := ""
	n := col + 1
	for n > 0 {
		n--
		letters = string(rune('A'+n%26)) + letters
		n /= 26
	}
	return fmt.Sprintf("%s%d", letters, row+1), nil
}

// CanonicalAddress 规范化地址写法（列字母统一大写），保证同一单元格只有一种 key
func CanonicalAddress(addr string) (string, error) {
	row, col, err := ParseAddress(addr)
	if err != nil {
		return "", err
	}
	return FormatAddress(row, col)
}

// QualifiedAddress 生成带工作表名的完全限定地址 "Sheet1!A1"
func QualifiedAddress(sheetName, addr string) string {
	return sheetName + "!" + addr
}

// SplitQualified 拆分完全限定地址为工作表名和单元格地址
func SplitQualified(qualified string) (sheetName string, addr string, err error) {
	idx := strings.LastIndex(qualified, "!")
	if idx <= 0 || idx == len(qualified)-1 {
		return "", "", fmt.Errorf("%w: %q is not a qualified address", ErrInvalidAddress, qualified)
	}
	return qualified[:idx], qualified[idx+1:], nil
}

// ParseRange 解析 "A1:B2" 范围，返回规范化后的左上/右下 0 基坐标
// 单个地址 "A1" 视作 1x1 范围
func ParseRange(rangeRef string) (top, left, bottom, right int, err error) {
	parts := strings.SplitN(rangeRef, ":", 2)

	top, left, err = ParseAddress(parts[0])
	if err != nil {
		return 0, 0, 0, 0, err
	}
	if len(parts) == 1 {
		return top, left, top, left, nil
	}

	bottom, right, err = ParseAddress(parts[1])
	if err != nil {
		return 0, 0, 0, 0, err
	}

	if bottom < top {
		top, bottom = bottom, top
	}
	if right < left {
		left, right = right, left
	}
	return top, left, bottom, right, nil
}

// RangeOverlaps 判断两个范围是否相交
func RangeOverlaps(a, b string) (bool, error) {
	at, al, ab, ar, err := ParseRange(a)
	if err != nil {
		return false, err
	}
	bt, bl, bb, br, err := ParseRange(b)
	if err != nil {
		return false, err
	}
	return at <= bb && bt <= ab && al <= br && bl <= ar, nil
}
