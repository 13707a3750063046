package services

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// RequestIDHeader はリクエストIDを伝搬するヘッダー名です。
const RequestIDHeader = "X-Request-ID"

const (
	maxLogEntries   = 10000
	maxRecentErrors = 10
	exportSheetName = "Requests"
)

// LogEntry は単一のリクエストログを表します。
type LogEntry struct {
	RequestID    string        `json:"requestId"`
	Timestamp    time.Time     `json:"timestamp"`
	Path         string        `json:"path"`
	Method       string        `json:"method"`
	StatusCode   int           `json:"statusCode"`
	ResponseTime time.Duration `json:"responseTime"`
}

// MonitoringService はAPIのモニタリング機能を提供します。
type MonitoringService struct {
	logs     []LogEntry
	mu       sync.RWMutex
	location *time.Location
	now      func() time.Time
	logger   *zap.Logger
}

// NewMonitoringService は新しいMonitoringServiceを生成します。
func NewMonitoringService(logger *zap.Logger) *MonitoringService {
	if logger == nil {
		logger = zap.NewNop()
	}
	// 集計は学校のローカル時刻で行う。タイムゾーンが取得できない環境ではUTC
	loc, err := time.LoadLocation("Australia/Brisbane")
	if err != nil {
		loc = time.UTC
	}
	return &MonitoringService{
		logs:     make([]LogEntry, 0),
		location: loc,
		now:      time.Now,
		logger:   logger.Named("http"),
	}
}

// LogRequest はリクエストを記録します。
func (s *MonitoringService) LogRequest(entry LogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, entry)
	if len(s.logs) > maxLogEntries {
		s.logs = append([]LogEntry(nil), s.logs[len(s.logs)-maxLogEntries:]...)
	}
}

// LoggingMiddleware はリクエスト情報を記録するGinミドルウェアです。
func (s *MonitoringService) LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()

		path := c.Request.URL.Path
		entry := LogEntry{
			RequestID:    requestID,
			Timestamp:    start,
			Path:         path,
			Method:       c.Request.Method,
			StatusCode:   c.Writer.Status(),
			ResponseTime: time.Since(start),
		}

		s.logger.Info("request",
			zap.String("request_id", entry.RequestID),
			zap.String("method", entry.Method),
			zap.String("path", entry.Path),
			zap.Int("status", entry.StatusCode),
			zap.Duration("latency", entry.ResponseTime),
		)

		// 管理系のリクエストはダッシュボード集計から除外
		if strings.HasPrefix(path, "/api/v1/admin") || strings.HasPrefix(path, "/api/v1/monitoring") {
			return
		}
		s.LogRequest(entry)
	}
}

// HourlyCount は1時間あたりのリクエスト数です。
type HourlyCount struct {
	Time     string `json:"time"`
	Requests int    `json:"requests"`
}

// StatusCount はステータスクラスごとの件数です。
type StatusCount struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// EndpointLatency はエンドポイント別の平均応答時間（ミリ秒）です。
type EndpointLatency struct {
	Endpoint     string `json:"endpoint"`
	ResponseTime int64  `json:"responseTime"`
}

// DashboardData はダッシュボードに表示するための集計済みデータです。
type DashboardData struct {
	RequestsOverTime []HourlyCount     `json:"requestsOverTime"`
	Endpoints        map[string]int    `json:"endpoints"`
	StatusCodes      []StatusCount     `json:"statusCodes"`
	AvgResponseTimes []EndpointLatency `json:"avgResponseTimes"`
	RecentErrors     []LogEntry        `json:"recentErrors"`
}

// entriesSince は指定時間内のログのコピーを返します。
func (s *MonitoringService) entriesSince(periodHours int) []LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	since := s.now().Add(-time.Duration(periodHours) * time.Hour)
	filtered := make([]LogEntry, 0, len(s.logs))
	for _, entry := range s.logs {
		if entry.Timestamp.After(since) {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}

// GetDashboardData は指定された期間のログを集計してダッシュボード用データを返します。
func (s *MonitoringService) GetDashboardData(periodHours int) DashboardData {
	if periodHours <= 0 {
		periodHours = 24
	}
	entries := s.entriesSince(periodHours)
	now := s.now().In(s.location)

	// 過去から現在へ向かう順序で時間バケットを作る
	buckets := make([]HourlyCount, periodHours)
	index := make(map[time.Time]int, periodHours)
	for i := 0; i < periodHours; i++ {
		hour := now.Add(-time.Duration(periodHours-1-i) * time.Hour).Truncate(time.Hour)
		buckets[i] = HourlyCount{Time: hour.Format("15:00")}
		index[hour] = i
	}

	endpoints := make(map[string]int)
	classes := map[string]int{"2xx Success": 0, "4xx Client Error": 0, "5xx Server Error": 0}
	latencySum := make(map[string]time.Duration)
	recentErrors := make([]LogEntry, 0)

	for _, entry := range entries {
		if i, ok := index[entry.Timestamp.In(s.location).Truncate(time.Hour)]; ok {
			buckets[i].Requests++
		}
		endpoints[entry.Path]++
		latencySum[entry.Path] += entry.ResponseTime

		switch {
		case entry.StatusCode >= 500:
			classes["5xx Server Error"]++
		case entry.StatusCode >= 400:
			classes["4xx Client Error"]++
		case entry.StatusCode >= 200 && entry.StatusCode < 300:
			classes["2xx Success"]++
		}
	}

	for i := len(entries) - 1; i >= 0 && len(recentErrors) < maxRecentErrors; i-- {
		if entries[i].StatusCode >= 500 {
			recentErrors = append(recentErrors, entries[i])
		}
	}

	statusCodes := make([]StatusCount, 0, len(classes))
	for name, value := range classes {
		statusCodes = append(statusCodes, StatusCount{Name: name, Value: value})
	}
	sort.Slice(statusCodes, func(i, j int) bool { return statusCodes[i].Name < statusCodes[j].Name })

	avg := make([]EndpointLatency, 0, len(latencySum))
	for path, total := range latencySum {
		avg = append(avg, EndpointLatency{
			Endpoint:     path,
			ResponseTime: total.Milliseconds() / int64(endpoints[path]),
		})
	}
	sort.Slice(avg, func(i, j int) bool { return avg[i].Endpoint < avg[j].Endpoint })

	return DashboardData{
		RequestsOverTime: buckets,
		Endpoints:        endpoints,
		StatusCodes:      statusCodes,
		AvgResponseTimes: avg,
		RecentErrors:     recentErrors,
	}
}

// ExportXLSX は指定期間のリクエストログをExcelファイルとして書き出します。
func (s *MonitoringService) ExportXLSX(periodHours int) ([]byte, error) {
	if periodHours <= 0 {
		periodHours = 24
	}
	entries := s.entriesSince(periodHours)

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheetName); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	header := []interface{}{"Request ID", "Timestamp", "Method", "Path", "Status", "Response Time (ms)"}
	if err := f.SetSheetRow(exportSheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, entry := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []interface{}{
			entry.RequestID,
			entry.Timestamp.In(s.location).Format(time.RFC3339),
			entry.Method,
			entry.Path,
			entry.StatusCode,
			entry.ResponseTime.Milliseconds(),
		}
		if err := f.SetSheetRow(exportSheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
