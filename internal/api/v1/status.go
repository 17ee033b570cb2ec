package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// StatusResponse 系统状态响应
type StatusResponse struct {
	WorkbookCount int    `json:"workbookCount"` // 工作簿总数
	EngineVersion string `json:"engineVersion"` // 公式引擎版本
}

// GetStatus 获取系统状态
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	metas, err := h.store.ListWorkbooks()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, StatusResponse{
		WorkbookCount: len(metas),
		EngineVersion: h.factory.Version(),
	})
}
