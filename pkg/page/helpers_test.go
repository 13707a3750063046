package page

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

var fixedNow = time.Date(2026, 3, 2, 10, 20, 0, 0, time.UTC)

// newForecast builds a payload with hourly entries starting at 08:00 on fixedNow's day.
func newForecast(condition string, temp float64) *Forecast {
	f := &Forecast{}
	f.Location.Name = "Brisbane"
	f.Current.TempC = temp
	f.Current.FeelsLikeC = temp + 1
	f.Current.Humidity = 60
	f.Current.WindKph = 12
	f.Current.Condition.Text = condition

	start := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	conditions := []string{"Clear", "Sunny", "Partly cloudy", "Patchy rain possible", "Overcast", "Thundery outbreaks possible", "Mist", "Sunny", "Sunny"}
	hours := make([]HourForecast, 0, len(conditions))
	for i, c := range conditions {
		hours = append(hours, HourForecast{
			TimeEpoch:    start.Add(time.Duration(i) * time.Hour).Unix(),
			TempC:        20 + float64(i),
			ChanceOfRain: i * 10,
			Condition:    Condition{Text: c},
		})
	}
	f.Forecast.ForecastDay = []ForecastDay{{Date: "2026-03-02", Hour: hours}}
	return f
}

// stubFetcher returns queued results in order and counts calls.
type stubFetcher struct {
	mu      sync.Mutex
	results []stubResult
	calls   int32
}

type stubResult struct {
	forecast *Forecast
	err      error
}

func (s *stubFetcher) push(f *Forecast, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, stubResult{forecast: f, err: err})
}

func (s *stubFetcher) FetchForecast(ctx context.Context) (*Forecast, error) {
	atomic.AddInt32(&s.calls, 1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.results) == 0 {
		return nil, errors.New("no stubbed result")
	}
	r := s.results[0]
	s.results = s.results[1:]
	return r.forecast, r.err
}

func (s *stubFetcher) Calls() int {
	return int(atomic.LoadInt32(&s.calls))
}

// manualTicker fires only when the test calls Tick.
type manualTicker struct {
	c       chan time.Time
	stopped atomic.Bool
}

func newManualTicker() *manualTicker {
	return &manualTicker{c: make(chan time.Time)}
}

func (m *manualTicker) C() <-chan time.Time { return m.c }
func (m *manualTicker) Stop()               { m.stopped.Store(true) }

// Tick blocks until the scheduler loop receives the tick.
func (m *manualTicker) Tick(t *testing.T) {
	t.Helper()
	select {
	case m.c <- fixedNow:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not receive tick")
	}
}

// manualClock hands out one manualTicker per interval.
type manualClock struct {
	mu      sync.Mutex
	tickers map[time.Duration]*manualTicker
}

func newManualClock() *manualClock {
	return &manualClock{tickers: make(map[time.Duration]*manualTicker)}
}

func (c *manualClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := newManualTicker()
	c.tickers[d] = t
	return t
}

func (c *manualClock) Ticker(d time.Duration) *manualTicker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tickers[d]
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
