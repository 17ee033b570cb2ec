package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gridbook/internal/model"
	"gridbook/internal/store"
)

// CreateWorkbookRequest 创建工作簿请求
type CreateWorkbookRequest struct {
	Name string `json:"name" binding:"required"`
}

// ListWorkbooks 列出全部工作簿元信息
// GET /api/workbooks
func (h *Handler) ListWorkbooks(c *gin.Context) {
	metas, err := h.store.ListWorkbooks()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if metas == nil {
		metas = []*store.WorkbookMeta{}
	}
	c.JSON(http.StatusOK, gin.H{"workbooks": metas})
}

// CreateWorkbook 创建新工作簿（带默认 Sheet1）
// POST /api/workbooks
func (h *Handler) CreateWorkbook(c *gin.Context) {
	var req CreateWorkbookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "名称不能为空"})
		return
	}

	wb := model.NewWorkbook(req.Name)
	if err := h.store.SaveWorkbook(wb); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, wb)
}

// GetWorkbook 读取完整工作簿文档
// GET /api/workbooks/:id
func (h *Handler) GetWorkbook(c *gin.Context) {
	wb, err := h.store.GetWorkbook(c.Param("id"))
	if err != nil {
		if err == store.ErrWorkbookNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "工作簿不存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, wb)
}

// DeleteWorkbook 删除工作簿
// DELETE /api/workbooks/:id
func (h *Handler) DeleteWorkbook(c *gin.Context) {
	if err := h.store.DeleteWorkbook(c.Param("id")); err != nil {
		if err == store.ErrWorkbookNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "工作簿不存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
