package config

// WeatherAPIConfig WeatherAPI.com 上流API設定
type WeatherAPIConfig struct {
	// APIKey はサーバー側でのみ保持するシークレット。空の場合はプロキシが未設定扱いになる。
	APIKey   string
	BaseURL  string
	Location string
}

// GetWeatherAPIConfig WeatherAPI設定を取得
func GetWeatherAPIConfig() *WeatherAPIConfig {
	return &WeatherAPIConfig{
		APIKey:   getEnv("WEATHER_API_KEY", ""),
		BaseURL:  getEnv("WEATHER_API_BASE_URL", "https://api.weatherapi.com/v1"),
		Location: getEnv("WEATHER_LOCATION", "Brisbane"),
	}
}

// Configured はAPIキーが設定されているかを返します。
func (c *WeatherAPIConfig) Configured() bool {
	return c != nil && c.APIKey != ""
}
