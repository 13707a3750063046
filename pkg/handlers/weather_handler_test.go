package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	config "bshs-site-api/configs"
	"bshs-site-api/pkg/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const forecastBody = `{"location":{"name":"Brisbane"},"current":{"temp_c":21,"condition":{"text":"Sunny"}},"forecast":{"forecastday":[]}}`

// fakeUpstream は呼び出し回数を数える上流APIのスタブです。
type fakeUpstream struct {
	*httptest.Server
	hits int32
}

func newFakeUpstream(t *testing.T, status int, body string) *fakeUpstream {
	t.Helper()
	f := &fakeUpstream{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.hits, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeUpstream) Hits() int {
	return int(atomic.LoadInt32(&f.hits))
}

func newWeatherRouter(baseURL, apiKey string) (*gin.Engine, *observer.ObservedLogs) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	service := services.NewWeatherService(&config.WeatherAPIConfig{
		APIKey:   apiKey,
		BaseURL:  baseURL,
		Location: "Brisbane",
	}, logger)

	router := gin.New()
	router.Any("/api/weather", NewWeatherHandler(service, logger).GetWeather)
	return router, logs
}

func serve(router http.Handler, method string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/api/weather", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestGetWeatherRejectsNonGetMethods(t *testing.T) {
	upstream := newFakeUpstream(t, http.StatusOK, forecastBody)
	router, _ := newWeatherRouter(upstream.URL, "secret")

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			w := serve(router, method)

			assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
			body := decodeBody(t, w)
			assert.Equal(t, "Method not allowed", body["error"])
			assert.NotEmpty(t, body["message"])
		})
	}

	w := serve(router, http.MethodHead)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Zero(t, upstream.Hits(), "upstream must not be called for rejected methods")
}

func TestGetWeatherOptionsBeforeCredentialCheck(t *testing.T) {
	upstream := newFakeUpstream(t, http.StatusOK, forecastBody)
	router, _ := newWeatherRouter(upstream.URL, "")

	w := serve(router, http.MethodOptions)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
	assert.Zero(t, upstream.Hits())
}

func TestGetWeatherMissingKey(t *testing.T) {
	upstream := newFakeUpstream(t, http.StatusOK, forecastBody)
	router, logs := newWeatherRouter(upstream.URL, "")

	w := serve(router, http.MethodGet)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Server configuration error", body["error"])
	assert.Equal(t, "Weather service is not configured", body["message"])
	assert.Zero(t, upstream.Hits())
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}

func TestGetWeatherRelaysUpstreamStatus(t *testing.T) {
	const raw = `{"error":{"code":2008,"message":"API key has been disabled."}}`
	upstream := newFakeUpstream(t, http.StatusForbidden, raw)
	router, logs := newWeatherRouter(upstream.URL, "secret")

	w := serve(router, http.MethodGet)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.NotContains(t, w.Body.String(), "disabled")
	assert.NotContains(t, w.Body.String(), "secret")
	body := decodeBody(t, w)
	assert.Equal(t, "Weather service error", body["error"])
	assert.Equal(t, "Failed to fetch weather data", body["message"])
	assert.Equal(t, float64(http.StatusForbidden), body["status"])
	assert.Empty(t, w.Header().Get("Cache-Control"))

	entries := logs.FilterMessage("upstream weather api returned an error").All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].ContextMap()["body"], "disabled")
}

func TestGetWeatherSuccess(t *testing.T) {
	upstream := newFakeUpstream(t, http.StatusOK, forecastBody)
	router, _ := newWeatherRouter(upstream.URL, "secret")

	w := serve(router, http.MethodGet)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, forecastBody, w.Body.String())
	assert.Equal(t, WeatherCacheControl, w.Header().Get("Cache-Control"))
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
	assert.Equal(t, 1, upstream.Hits())
}

func TestGetWeatherInvalidUpstreamBody(t *testing.T) {
	upstream := newFakeUpstream(t, http.StatusOK, "not json")
	router, _ := newWeatherRouter(upstream.URL, "secret")

	w := serve(router, http.MethodGet)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Internal server error", body["error"])
	assert.Equal(t, "Failed to fetch weather data", body["message"])
}

func TestGetWeatherNetworkFailure(t *testing.T) {
	upstream := newFakeUpstream(t, http.StatusOK, forecastBody)
	baseURL := upstream.URL
	upstream.Close()
	router, logs := newWeatherRouter(baseURL, "secret")

	w := serve(router, http.MethodGet)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "secret")
	entries := logs.FilterMessage("weather proxy request failed").All()
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].ContextMap()["error"], "secret")
}

func TestWeatherHandlerCreation(t *testing.T) {
	handler := NewWeatherHandler(services.NewWeatherService(nil, nil), nil)

	assert.NotNil(t, handler, "WeatherHandler should not be nil")
	assert.NotNil(t, handler.GetWeatherService(), "WeatherService should not be nil")
}
