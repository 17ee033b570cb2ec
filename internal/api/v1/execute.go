package v1

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gridbook/internal/service/bridge"
	"gridbook/internal/service/executor"
	"gridbook/internal/store"
)

// ExecuteRequest 命令执行请求
type ExecuteRequest struct {
	Commands    json.RawMessage `json:"commands" binding:"required"`
	Mode        string          `json:"mode,omitempty"` // execute（默认）或 plan
	StopOnError bool            `json:"stopOnError,omitempty"`
}

// ExecuteCommands 对工作簿执行命令序列
// POST /api/workbooks/:id/execute
// 执行在文档克隆上进行，全部命令施加完后整体落库；
// 计划模式只校验不落库
func (h *Handler) ExecuteCommands(c *gin.Context) {
	var req ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求体"})
		return
	}

	cmds, err := executor.Decode(req.Commands)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	wb, err := h.store.GetWorkbook(c.Param("id"))
	if err != nil {
		if err == store.ErrWorkbookNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "工作簿不存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	opts := executor.Options{
		StopOnError: req.StopOnError,
		Config:      h.cfg.EngineConfig(),
	}
	if req.Mode == string(executor.ModePlan) {
		opts.Mode = executor.ModePlan
	}

	result := h.exec.Execute(wb, cmds, opts)

	// 执行跑完才落库；计划模式与结构性失败不落库
	if result.Status == executor.StatusCompleted {
		if err := h.store.SaveWorkbook(result.Document); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	c.JSON(http.StatusOK, result)
}

// RecomputeResponse 重算响应
type RecomputeResponse struct {
	UpdatedCells int                `json:"updatedCells"`
	StaleCount   int                `json:"staleCount"`
	Errors       []bridge.CellError `json:"errors"`
	Warnings     []string           `json:"warnings"`
	DurationMs   int64              `json:"durationMs"`
}

// Recompute 强制全量重算并落库
// POST /api/workbooks/:id/recompute
func (h *Handler) Recompute(c *gin.Context) {
	wb, err := h.store.GetWorkbook(c.Param("id"))
	if err != nil {
		if err == store.ErrWorkbookNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "工作簿不存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	start := time.Now()

	hyd, err := bridge.Hydrate(wb, h.factory, bridge.Options{Config: h.cfg.EngineConfig()})
	if err != nil {
		h.logRecompute(wb.ID, nil, 0, time.Since(start), err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	defer hyd.Close()

	res := bridge.Recompute(wb, hyd)
	duration := time.Since(start)

	if err := h.store.SaveWorkbook(wb); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.logRecompute(wb.ID, res, hyd.StaleCount, duration, nil)

	c.JSON(http.StatusOK, RecomputeResponse{
		UpdatedCells: res.UpdatedCells,
		StaleCount:   hyd.StaleCount,
		Errors:       res.Errors,
		Warnings:     append(hyd.Warnings, res.Warnings...),
		DurationMs:   duration.Milliseconds(),
	})
}

// logRecompute 写重算遥测日志，失败不影响响应
func (h *Handler) logRecompute(workbookID string, res *bridge.Result, staleCount int, duration time.Duration, failure error) {
	l := &store.RecomputeLog{
		WorkbookID:    workbookID,
		EngineVersion: h.factory.Version(),
		StaleCount:    staleCount,
		DurationMs:    duration.Milliseconds(),
		Status:        "completed",
	}
	if res != nil {
		l.UpdatedCells = res.UpdatedCells
		l.ErrorCount = len(res.Errors)
	}
	if failure != nil {
		l.Status = "failed"
		l.ErrorMessage = failure.Error()
	}
	_, _ = h.store.CreateRecomputeLog(l)
}

// ListRecomputeLogs 查询工作簿最近的重算日志
// GET /api/workbooks/:id/recompute-logs
func (h *Handler) ListRecomputeLogs(c *gin.Context) {
	logs, err := h.store.ListRecomputeLogs(c.Param("id"), 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if logs == nil {
		logs = []*store.RecomputeLog{}
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}
