package handlers

import (
	"errors"
	"net/http"

	"bshs-site-api/pkg/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WeatherCacheControl は成功レスポンスに付与するキャッシュ指示です（5分 + 10分のstale許容）。
const WeatherCacheControl = "public, s-maxage=300, stale-while-revalidate=600"

// WeatherHandler 気象データプロキシのハンドラー
type WeatherHandler struct {
	weatherService *services.WeatherService
	logger         *zap.Logger
}

// NewWeatherHandler 新しい気象データハンドラーを作成
func NewWeatherHandler(weatherService *services.WeatherService, logger *zap.Logger) *WeatherHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WeatherHandler{
		weatherService: weatherService,
		logger:         logger.Named("weather_proxy"),
	}
}

// GetWeatherService WeatherServiceを取得
func (wh *WeatherHandler) GetWeatherService() *services.WeatherService {
	return wh.weatherService
}

// GetWeather は上流の予報APIへリクエストを一度だけ中継します。
// リトライ・キャッシュ・永続化は行いません。
func (wh *WeatherHandler) GetWeather(c *gin.Context) {
	switch c.Request.Method {
	case http.MethodOptions:
		c.Status(http.StatusOK)
		return
	case http.MethodGet:
	default:
		c.Header("Allow", "GET, OPTIONS")
		c.JSON(http.StatusMethodNotAllowed, gin.H{
			"error":   "Method not allowed",
			"message": "Only GET requests are supported",
		})
		return
	}

	if !wh.weatherService.Configured() {
		wh.logger.Error("weather api key is missing", zap.String("env", "WEATHER_API_KEY"))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Server configuration error",
			"message": "Weather service is not configured",
		})
		return
	}

	body, err := wh.weatherService.FetchForecast(c.Request.Context())
	if err != nil {
		wh.respondError(c, err)
		return
	}

	c.Header("Cache-Control", WeatherCacheControl)
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// respondError は詳細をログにのみ残し、クライアントには汎用メッセージを返します。
func (wh *WeatherHandler) respondError(c *gin.Context, err error) {
	requestID := c.GetString("request_id")

	var upstreamErr *services.UpstreamError
	switch {
	case errors.As(err, &upstreamErr):
		wh.logger.Error("upstream weather api returned an error",
			zap.String("request_id", requestID),
			zap.Int("status", upstreamErr.StatusCode),
			zap.String("body", upstreamErr.Body),
		)
		c.JSON(upstreamErr.StatusCode, gin.H{
			"error":   "Weather service error",
			"message": "Failed to fetch weather data",
			"status":  upstreamErr.StatusCode,
		})
	case errors.Is(err, services.ErrNotConfigured):
		wh.logger.Error("weather api key is missing", zap.String("request_id", requestID))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Server configuration error",
			"message": "Weather service is not configured",
		})
	default:
		wh.logger.Error("weather proxy request failed",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal server error",
			"message": "Failed to fetch weather data",
		})
	}
}
