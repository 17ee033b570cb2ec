// Package v1 工作簿 HTTP API
package v1

import (
	"github.com/gin-gonic/gin"

	"gridbook/internal/config"
	"gridbook/internal/engine"
	"gridbook/internal/service/executor"
	"gridbook/internal/store"
)

// Handler V1 API 处理器
type Handler struct {
	store   *store.Store
	factory engine.Factory
	exec    *executor.Executor
	cfg     *config.AppConfig
}

// NewHandler 创建 V1 API 处理器
func NewHandler(s *store.Store, factory engine.Factory, cfg *config.AppConfig) *Handler {
	return &Handler{
		store:   s,
		factory: factory,
		exec:    executor.New(factory),
		cfg:     cfg,
	}
}

// RegisterRoutes 注册 V1 API 路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// 系统状态
	router.GET("/status", h.GetStatus)

	// 工作簿管理
	router.GET("/workbooks", h.ListWorkbooks)
	router.POST("/workbooks", h.CreateWorkbook)
	router.GET("/workbooks/:id", h.GetWorkbook)
	router.DELETE("/workbooks/:id", h.DeleteWorkbook)

	// 命令执行与重算
	router.POST("/workbooks/:id/execute", h.ExecuteCommands)
	router.POST("/workbooks/:id/recompute", h.Recompute)
	router.GET("/workbooks/:id/recompute-logs", h.ListRecomputeLogs)

	// 文件导入导出
	router.POST("/import", h.Import)
	router.GET("/workbooks/:id/export", h.Export)
}
