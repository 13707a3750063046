package handler

import (
	"log"
	"net/http"
	"sync"

	config "bshs-site-api/configs"
	"bshs-site-api/pkg/logging"
	"bshs-site-api/pkg/router"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	app  *gin.Engine
	once sync.Once
)

// setupApp はGinアプリケーションを初期化します。
// サーバーレス環境では、リクエストごとに初期化が走らないようsync.Onceで一度だけ実行します。
func setupApp() *gin.Engine {
	once.Do(func() {
		// .envファイルはVercelの環境変数設定から読み込まれるため、ここではgodotenvを呼び出しません。
		cfg := config.LoadConfig()

		logger, err := logging.New(cfg.Environment, false)
		if err != nil {
			log.Printf("failed to build logger, falling back to no-op: %v", err)
			logger = zap.NewNop()
		}

		if cfg.IsProduction() {
			gin.SetMode(gin.ReleaseMode)
		}

		app = router.New(cfg, logger)
		logger.Info("serverless app initialized",
			zap.String("environment", cfg.Environment),
			zap.Bool("weather_configured", cfg.Weather.Configured()),
		)
	})
	return app
}

// Handler はVercelからのすべてのリクエストを処理するエントリーポイントです。
func Handler(w http.ResponseWriter, r *http.Request) {
	setupApp().ServeHTTP(w, r)
}
