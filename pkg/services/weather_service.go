package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	config "bshs-site-api/configs"

	"go.uber.org/zap"
)

const (
	// UpstreamUserAgent は上流APIに送る固定の識別ヘッダー値です。
	UpstreamUserAgent = "BSHS-Weather-Proxy/1.0"

	forecastDays     = 1
	maxForecastBytes = 2 << 20
	maxLoggedBody    = 512
)

// ErrNotConfigured はAPIキーが設定されていない場合に返されます。
var ErrNotConfigured = errors.New("weather api key is not configured")

// UpstreamError は上流APIが2xx以外のステータスを返したことを表します。
// Body はサーバー側ログ専用で、クライアントには返しません。
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.StatusCode)
}

// WeatherService 気象データサービス
type WeatherService struct {
	client   *http.Client
	baseURL  string
	apiKey   string
	location string
	logger   *zap.Logger
}

// NewWeatherService 新しい気象データサービスを作成
func NewWeatherService(cfg *config.WeatherAPIConfig, logger *zap.Logger) *WeatherService {
	if logger == nil {
		logger = zap.NewNop()
	}
	ws := &WeatherService{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger.Named("weather"),
	}
	if cfg != nil {
		ws.baseURL = strings.TrimSuffix(cfg.BaseURL, "/")
		ws.apiKey = cfg.APIKey
		ws.location = cfg.Location
	}
	return ws
}

// Configured はシークレットが設定済みかを返します。
func (ws *WeatherService) Configured() bool {
	return ws.apiKey != ""
}

// Location は固定の予報地点を返します。
func (ws *WeatherService) Location() string {
	return ws.location
}

// FetchForecast 予報データを取得し、上流のJSONをそのまま返す
func (ws *WeatherService) FetchForecast(ctx context.Context) ([]byte, error) {
	if !ws.Configured() {
		return nil, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ws.forecastURL(ws.apiKey), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", UpstreamUserAgent)
	req.Header.Set("Accept", "application/json")

	ws.logger.Debug("requesting forecast", zap.String("url", ws.forecastURL("REDACTED")))

	resp, err := ws.client.Do(req)
	if err != nil {
		// url.Error はクエリ（APIキー）を含むURLを保持しているため、内側のエラーだけを残す
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, fmt.Errorf("failed to fetch forecast data: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxForecastBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: truncate(string(body), maxLoggedBody)}
	}

	if !json.Valid(body) {
		return nil, errors.New("failed to parse JSON: forecast payload is not valid JSON")
	}

	return body, nil
}

func (ws *WeatherService) forecastURL(key string) string {
	q := url.Values{}
	q.Set("key", key)
	q.Set("q", ws.location)
	q.Set("days", strconv.Itoa(forecastDays))
	q.Set("aqi", "no")
	q.Set("alerts", "no")
	return ws.baseURL + "/forecast.json?" + q.Encode()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
