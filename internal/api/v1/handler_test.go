package v1

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"

	"gridbook/internal/config"
	"gridbook/internal/engine/enginetest"
	"gridbook/internal/model"
	"gridbook/internal/store"
)

func newRouterForTest(t *testing.T) (*gin.Engine, *store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.New(filepath.Join(t.TempDir(), "gridbook.db"))
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	h := NewHandler(st, enginetest.NewFakeFactory(), config.DefaultConfig())
	r := gin.New()
	api := r.Group("/api")
	h.RegisterRoutes(api)
	return r, st
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// TestWorkbookCRUD 工作簿创建、查询、删除
func TestWorkbookCRUD(t *testing.T) {
	r, _ := newRouterForTest(t)

	w := doJSON(t, r, http.MethodPost, "/api/workbooks", map[string]any{"name": "台账"})
	if w.Code != http.StatusCreated {
		t.Fatalf("创建状态码 = %d, body = %s", w.Code, w.Body.String())
	}
	var created model.Workbook
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if created.ID == "" || len(created.Sheets) != 1 {
		t.Errorf("创建响应 = %+v", created)
	}

	w = doJSON(t, r, http.MethodGet, "/api/workbooks/"+created.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("查询状态码 = %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/workbooks", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("列表状态码 = %d", w.Code)
	}

	w = doJSON(t, r, http.MethodDelete, "/api/workbooks/"+created.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("删除状态码 = %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/workbooks/"+created.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("删除后查询状态码 = %d, 期望 404", w.Code)
	}
}

// TestCreateWorkbookRequiresName 缺名称返回 400
func TestCreateWorkbookRequiresName(t *testing.T) {
	r, _ := newRouterForTest(t)
	w := doJSON(t, r, http.MethodPost, "/api/workbooks", map[string]any{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("状态码 = %d, 期望 400", w.Code)
	}
}

// TestExecuteCommandsPersists 执行命令后计算结果落库
func TestExecuteCommandsPersists(t *testing.T) {
	r, st := newRouterForTest(t)

	wb := model.NewWorkbook("执行")
	if err := st.SaveWorkbook(wb); err != nil {
		t.Fatal(err)
	}

	commands := json.RawMessage(`[
		{"type": "set-cells", "params": {"sheet": "Sheet1", "cells": {"A1": 10, "B1": "=A1*2"}}},
		{"type": "compute"}
	]`)
	w := doJSON(t, r, http.MethodPost, "/api/workbooks/"+wb.ID+"/execute",
		map[string]any{"commands": commands})
	if w.Code != http.StatusOK {
		t.Fatalf("状态码 = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Success  bool `json:"success"`
		Executed int  `json:"executed"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.Executed != 2 {
		t.Errorf("响应 = %+v", resp)
	}

	back, err := st.GetWorkbook(wb.ID)
	if err != nil {
		t.Fatal(err)
	}
	cell := back.Sheets[0].Cells["B1"]
	if cell == nil || cell.Computed == nil || cell.Computed.Number != 20 {
		t.Errorf("B1 = %+v, 期望计算结果 20 已落库", cell)
	}
}

// TestExecutePlanModeDoesNotPersist 计划模式不落库
func TestExecutePlanModeDoesNotPersist(t *testing.T) {
	r, st := newRouterForTest(t)

	wb := model.NewWorkbook("计划")
	if err := st.SaveWorkbook(wb); err != nil {
		t.Fatal(err)
	}

	commands := json.RawMessage(`[{"type": "set-cells", "params": {"sheet": "Sheet1", "cells": {"A1": 1}}}]`)
	w := doJSON(t, r, http.MethodPost, "/api/workbooks/"+wb.ID+"/execute",
		map[string]any{"commands": commands, "mode": "plan"})
	if w.Code != http.StatusOK {
		t.Fatalf("状态码 = %d", w.Code)
	}

	back, _ := st.GetWorkbook(wb.ID)
	if len(back.Sheets[0].Cells) != 0 {
		t.Error("计划模式不应落库")
	}
}

// TestExecuteBadCommands 非法命令 JSON 返回 400
func TestExecuteBadCommands(t *testing.T) {
	r, st := newRouterForTest(t)

	wb := model.NewWorkbook("坏命令")
	if err := st.SaveWorkbook(wb); err != nil {
		t.Fatal(err)
	}

	commands := json.RawMessage(`[{"type": "no-such-command"}]`)
	w := doJSON(t, r, http.MethodPost, "/api/workbooks/"+wb.ID+"/execute",
		map[string]any{"commands": commands})
	if w.Code != http.StatusBadRequest {
		t.Errorf("状态码 = %d, 期望 400", w.Code)
	}
}

// TestRecomputeEndpoint 全量重算并写遥测日志
func TestRecomputeEndpoint(t *testing.T) {
	r, st := newRouterForTest(t)

	wb := model.NewWorkbook("重算")
	sheet := wb.Sheets[0]
	if err := sheet.SetCellValue("A1", 5.0); err != nil {
		t.Fatal(err)
	}
	if err := sheet.SetCellFormula("B1", "=A1+1"); err != nil {
		t.Fatal(err)
	}
	if err := st.SaveWorkbook(wb); err != nil {
		t.Fatal(err)
	}

	w := doJSON(t, r, http.MethodPost, "/api/workbooks/"+wb.ID+"/recompute", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("状态码 = %d, body = %s", w.Code, w.Body.String())
	}

	var resp RecomputeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.UpdatedCells != 1 {
		t.Errorf("updatedCells = %d, 期望 1", resp.UpdatedCells)
	}

	logs, err := st.ListRecomputeLogs(wb.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 || logs[0].UpdatedCells != 1 {
		t.Errorf("日志 = %+v, 期望 1 条", logs)
	}

	w = doJSON(t, r, http.MethodGet, "/api/workbooks/"+wb.ID+"/recompute-logs", nil)
	if w.Code != http.StatusOK {
		t.Errorf("日志查询状态码 = %d", w.Code)
	}
}

// TestStatusEndpoint 系统状态
func TestStatusEndpoint(t *testing.T) {
	r, st := newRouterForTest(t)

	if err := st.SaveWorkbook(model.NewWorkbook("a")); err != nil {
		t.Fatal(err)
	}

	w := doJSON(t, r, http.MethodGet, "/api/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("状态码 = %d", w.Code)
	}
	var resp StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.WorkbookCount != 1 || resp.EngineVersion != "fake/1.0" {
		t.Errorf("状态 = %+v", resp)
	}
}
