package page

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxProxyBody = 2 << 20

// ForecastFetcher は天気表示に予報データを供給します。
type ForecastFetcher interface {
	FetchForecast(ctx context.Context) (*Forecast, error)
}

// StatusError はプロキシが200以外のステータスを返した場合のエラーです。
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("weather proxy returned status %d", e.StatusCode)
}

// ProxyClient はサイトの気象プロキシから予報を取得します。
// 上流APIへ直接アクセスすることはなく、APIキーも保持しません。
type ProxyClient struct {
	url    string
	client *http.Client
}

// NewProxyClient はプロキシエンドポイント（例: https://example.edu/api/weather）用のクライアントを生成します。
func NewProxyClient(proxyURL string) *ProxyClient {
	return &ProxyClient{
		url: proxyURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// FetchForecast はプロキシへGETを一度だけ発行します。
func (p *ProxyClient) FetchForecast(ctx context.Context) (*Forecast, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach weather proxy: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProxyBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return ParseForecast(body)
}

var _ ForecastFetcher = (*ProxyClient)(nil)
