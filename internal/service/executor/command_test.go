package executor

import (
	"testing"
)

// TestDecodeCommandList JSON 信封解析为类型化命令
func TestDecodeCommandList(t *testing.T) {
	data := []byte(`[
		{"type": "create-workbook", "params": {"name": "销售台账"}},
		{"type": "add-sheet", "params": {"name": "明细"}},
		{"type": "set-cells", "params": {"sheet": "明细", "cells": {"A1": 100, "B1": "=A1*2"}}},
		{"type": "set-formula", "params": {"sheet": "明细", "address": "C1", "formula": "=B1+5"}},
		{"type": "compute"},
		{"type": "export", "params": {"path": "/tmp/out.xlsx"}}
	]`)

	cmds, err := Decode(data)
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if len(cmds) != 6 {
		t.Fatalf("命令数 = %d, 期望 6", len(cmds))
	}

	cw, ok := cmds[0].(*CreateWorkbook)
	if !ok || cw.Name != "销售台账" {
		t.Errorf("命令 0 = %#v, 期望 CreateWorkbook{销售台账}", cmds[0])
	}

	sc, ok := cmds[2].(*SetCells)
	if !ok || sc.Sheet != "明细" {
		t.Fatalf("命令 2 = %#v, 期望 SetCells", cmds[2])
	}
	if sc.Cells["A1"] != 100.0 {
		t.Errorf("A1 = %v, 期望 100", sc.Cells["A1"])
	}

	sf, ok := cmds[3].(*SetFormula)
	if !ok || sf.Formula != "=B1+5" {
		t.Errorf("命令 3 = %#v, 期望 SetFormula{=B1+5}", cmds[3])
	}

	if _, ok := cmds[4].(*Compute); !ok {
		t.Errorf("命令 4 = %#v, 期望 Compute（无参数信封）", cmds[4])
	}
}

// TestDecodeUnknownType 未知命令类型整体拒绝
func TestDecodeUnknownType(t *testing.T) {
	data := []byte(`[{"type": "drop-table", "params": {}}]`)
	if _, err := Decode(data); err == nil {
		t.Fatal("未知类型应报错")
	}
}

// TestDecodeMalformed 非法 JSON 整体拒绝
func TestDecodeMalformed(t *testing.T) {
	if _, err := Decode([]byte(`{"type": "compute"}`)); err == nil {
		t.Fatal("非数组载荷应报错")
	}
}

// TestValidateRangeName 命名范围名称语法
func TestValidateRangeName(t *testing.T) {
	valid := []string{"total", "_tmp", "sales_2024", "ns.region"}
	for _, name := range valid {
		if err := validateRangeName(name); err != nil {
			t.Errorf("%q 应合法: %v", name, err)
		}
	}

	invalid := []string{"A1", "XFD1048576", "true", "FALSE", "null", "2024sales", "a b", ""}
	for _, name := range invalid {
		if err := validateRangeName(name); err == nil {
			t.Errorf("%q 应被拒绝", name)
		}
	}
}
