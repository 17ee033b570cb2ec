package v1

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"gridbook/internal/config"
	"gridbook/internal/service/excel"
	"gridbook/internal/store"
)

// Import 导入 xlsx 文件为新工作簿
// POST /api/import
func (h *Handler) Import(c *gin.Context) {
	uploadedFile, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "未找到上传文件"})
		return
	}

	// 上传文件落到数据目录的 uploads 暂存区，导入完成即清理
	tempFilePath := config.GetDataPath(h.cfg, "uploads",
		fmt.Sprintf("import_%d_%s", time.Now().Unix(), filepath.Base(uploadedFile.Filename)))
	if err := c.SaveUploadedFile(uploadedFile, tempFilePath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "保存文件失败"})
		return
	}
	defer os.Remove(tempFilePath)

	wb, err := excel.ImportFile(tempFilePath)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	wb.Name = uploadedFile.Filename

	if err := h.store.SaveWorkbook(wb); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":     wb.ID,
		"name":   wb.Name,
		"sheets": len(wb.Sheets),
	})
}

// Export 导出工作簿为 xlsx 下载
// GET /api/workbooks/:id/export
func (h *Handler) Export(c *gin.Context) {
	wb, err := h.store.GetWorkbook(c.Param("id"))
	if err != nil {
		if err == store.ErrWorkbookNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "工作簿不存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	f, err := excel.ExportWorkbook(wb)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	filename := url.PathEscape(wb.Name + ".xlsx")
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename*=UTF-8''%s`, filename))

	if err := f.Write(c.Writer); err != nil {
		// 响应头已发出，只能记录
		_ = c.Error(err)
	}
}
