package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chatvault/backend/internal/application/export"
	domaincapture "github.com/chatvault/backend/internal/domain/capture"
	"github.com/chatvault/backend/internal/interfaces/http/response"
)

// ExportHandler 导出接口
type ExportHandler struct {
	service *export.Service
}

// NewExportHandler 创建导出处理器
func NewExportHandler(service *export.Service) *ExportHandler {
	return &ExportHandler{service: service}
}

// Export 导出会话
// @Summary 导出会话为 Markdown 或 JSON
// @Tags 导出
// @Produce json
// @Param platform path string true "平台"
// @Param id path string true "会话 ID"
// @Param format query string false "导出格式（markdown / json，默认 markdown）"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Router /conversations/{platform}/{id}/export [get]
func (h *ExportHandler) Export(c *gin.Context) {
	platform, ok := parsePlatform(c.Param("platform"))
	if !ok {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidPlatform, "unknown platform")
		return
	}

	key := domaincapture.ConversationKey{Platform: platform, ID: c.Param("id")}
	result, err := h.service.Export(key, export.Format(c.Query("format")))
	if err != nil {
		switch {
		case errors.Is(err, export.ErrConversationNotFound):
			response.Error(c, http.StatusNotFound, response.CodeConversationMissed, "conversation not found")
		case errors.Is(err, export.ErrUnsupportedFormat):
			response.Error(c, http.StatusBadRequest, response.CodeInvalidFormat, "unsupported export format")
		default:
			response.ErrorWithDetail(c, http.StatusInternalServerError, response.CodeInternal, "export failed", err.Error())
		}
		return
	}

	response.Success(c, result)
}
