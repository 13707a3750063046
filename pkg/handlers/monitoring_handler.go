package handlers

import (
	"fmt"
	"net/http"
	"time"

	"bshs-site-api/pkg/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// MonitoringHandler はモニタリング関連の操作のハンドラです。
type MonitoringHandler struct {
	Service *services.MonitoringService
	logger  *zap.Logger
}

// NewMonitoringHandler は新しいMonitoringHandlerを生成します。
func NewMonitoringHandler(service *services.MonitoringService, logger *zap.Logger) *MonitoringHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MonitoringHandler{
		Service: service,
		logger:  logger.Named("monitoring"),
	}
}

// GetLogs は集計されたログデータを返します。
func (h *MonitoringHandler) GetLogs(c *gin.Context) {
	hours := periodHours(c.DefaultQuery("period", "24h"))
	c.JSON(http.StatusOK, h.Service.GetDashboardData(hours))
}

// ExportLogs はリクエストログをxlsxとしてダウンロードさせます。
func (h *MonitoringHandler) ExportLogs(c *gin.Context) {
	period := c.DefaultQuery("period", "24h")
	data, err := h.Service.ExportXLSX(periodHours(period))
	if err != nil {
		h.logger.Error("failed to export request logs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export logs"})
		return
	}

	filename := fmt.Sprintf("requests-%s-%s.xlsx", period, time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

func periodHours(period string) int {
	switch period {
	case "1h":
		return 1
	case "7d":
		return 24 * 7
	default:
		return 24
	}
}
