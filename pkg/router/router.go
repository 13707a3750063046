// Package router wires the gin engine shared by the serverless entry point and the local server.
package router

import (
	"net/http"

	config "bshs-site-api/configs"
	"bshs-site-api/pkg/handlers"
	"bshs-site-api/pkg/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// CORSConfig は単一オリジンだけを許可するCORS設定を返します。
func CORSConfig(allowedOrigin string) cors.Config {
	return cors.Config{
		AllowOrigins:              []string{allowedOrigin},
		AllowMethods:              []string{http.MethodGet, http.MethodOptions},
		AllowHeaders:              []string{"Content-Type"},
		ExposeHeaders:             []string{services.RequestIDHeader},
		OptionsResponseStatusCode: http.StatusOK,
	}
}

// SingleOriginCORS は許可オリジン（またはOriginなし）のリクエストにだけCORSミドルウェアを適用します。
// それ以外のオリジンはCORSヘッダーなしでハンドラーへ進むため、ブラウザ側で読み取りが拒否されます。
// ステータスはハンドラーが決めるので、OPTIONSは常に200、GET以外は405のままです。
func SingleOriginCORS(allowedOrigin string) gin.HandlerFunc {
	corsMiddleware := cors.New(CORSConfig(allowedOrigin))
	return func(c *gin.Context) {
		if origin := c.GetHeader("Origin"); origin != "" && origin != allowedOrigin {
			c.Next()
			return
		}
		corsMiddleware(c)
	}
}

// New はルーティング済みのGinエンジンを生成します。
func New(cfg *config.Config, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())

	// サービスの初期化
	monitoringService := services.NewMonitoringService(logger)
	weatherService := services.NewWeatherService(cfg.Weather, logger)

	// ハンドラーの初期化
	weatherHandler := handlers.NewWeatherHandler(weatherService, logger)
	adminHandler := handlers.NewAdminHandler(cfg, logger)
	monitoringHandler := handlers.NewMonitoringHandler(monitoringService, logger)

	// ミドルウェアの登録
	r.Use(monitoringService.LoggingMiddleware())
	r.Use(SingleOriginCORS(cfg.AllowedOrigin))

	// ヘルスチェックエンドポイント
	r.GET("/health", adminHandler.HealthCheck)

	// 気象データプロキシ（メソッド判定はハンドラー側で行う）
	r.Any("/api/weather", weatherHandler.GetWeather)

	v1 := r.Group("/api/v1")
	{
		// 管理者向けAPI
		admin := v1.Group("/admin")
		admin.Use(handlers.RateLimit(handlers.NewClientRateLimiter(rate.Limit(cfg.AdminRateLimitRPS), cfg.AdminRateLimitBurst)))
		{
			admin.GET("/health-status", adminHandler.GetHealthStatus)
			admin.POST("/maintenance/start", adminHandler.StartMaintenance)
			admin.POST("/maintenance/stop", adminHandler.StopMaintenance)
		}

		// モニタリングAPI（管理者アカウントが設定されている場合のみ公開）
		if cfg.AdminUsername != "" && cfg.AdminPassword != "" {
			monitoring := v1.Group("/monitoring")
			monitoring.Use(gin.BasicAuth(gin.Accounts{cfg.AdminUsername: cfg.AdminPassword}))
			{
				monitoring.GET("/logs", monitoringHandler.GetLogs)
				monitoring.GET("/logs/export", monitoringHandler.ExportLogs)
			}
		} else {
			logger.Info("monitoring endpoints disabled: admin credentials are not configured")
		}
	}

	return r
}
