package page

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedDisplay(fetcher ForecastFetcher, opts ...DisplayOption) (*WeatherDisplay, *Store, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	store := NewStore()
	opts = append([]DisplayOption{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewWeatherDisplay(fetcher, nil, store, zap.New(core), opts...), store, logs
}

func TestRefreshPublishesView(t *testing.T) {
	fetcher := &stubFetcher{}
	fetcher.push(newForecast("Partly cloudy", 24.4), nil)
	display, store, _ := newObservedDisplay(fetcher, WithHourSlots(3))

	require.NoError(t, display.Refresh(context.Background()))

	w := store.Snapshot().Weather
	require.NotNil(t, w)
	assert.Equal(t, "partly-cloudy", w.Rule)
	assert.Equal(t, "⛅", w.Icon)
	assert.Equal(t, "Partly cloudy", w.Title)
	assert.Equal(t, "Partly cloudy", w.Condition)
	assert.Equal(t, "A mix of sun and cloud, 24°C. Hats on for outdoor breaks.", w.Message)
	assert.Equal(t, "Brisbane", w.Location)
	assert.Equal(t, fixedNow, w.UpdatedAt)

	var labels []string
	for _, h := range w.Hours {
		labels = append(labels, h.Label+" "+h.Icon)
	}
	if diff := cmp.Diff([]string{"10 AM ⛅", "11 AM 🌦️", "12 PM ☁️"}, labels); diff != "" {
		t.Errorf("upcoming hours mismatch (-want +got):\n%s", diff)
	}
}

func TestRefreshFailureKeepsPriorContent(t *testing.T) {
	fetcher := &stubFetcher{}
	fetcher.push(newForecast("Sunny", 30), nil)
	fetcher.push(nil, errors.New("proxy unreachable"))
	display, store, logs := newObservedDisplay(fetcher)

	require.NoError(t, display.Refresh(context.Background()))
	before := store.Snapshot().Weather

	var notified int32
	unsubscribe := store.Subscribe(func(State) { atomic.AddInt32(&notified, 1) })
	defer unsubscribe()

	err := display.Refresh(context.Background())

	assert.EqualError(t, err, "proxy unreachable")
	assert.Same(t, before, store.Snapshot().Weather)
	assert.Zero(t, atomic.LoadInt32(&notified), "a failed refresh must not touch the view")

	errorLogs := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, errorLogs, 1)
	assert.Equal(t, "failed to refresh weather", errorLogs[0].Message)
}

func TestRefreshFailureBeforeFirstSuccess(t *testing.T) {
	fetcher := &stubFetcher{}
	fetcher.push(nil, &StatusError{StatusCode: 500})
	display, store, logs := newObservedDisplay(fetcher)

	assert.Error(t, display.Refresh(context.Background()))
	assert.Nil(t, store.Snapshot().Weather)
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}

// blockingFetcher holds every call until release is closed.
type blockingFetcher struct {
	calls   int32
	started chan struct{}
	release chan struct{}
}

func (b *blockingFetcher) FetchForecast(ctx context.Context) (*Forecast, error) {
	if atomic.AddInt32(&b.calls, 1) == 1 {
		close(b.started)
	}
	<-b.release
	return newForecast("Sunny", 28), nil
}

func TestOverlappingRefreshesShareOneFetch(t *testing.T) {
	fetcher := &blockingFetcher{started: make(chan struct{}), release: make(chan struct{})}
	display, store, _ := newObservedDisplay(fetcher)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, display.Refresh(context.Background()))
	}()
	<-fetcher.started

	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, display.Refresh(context.Background()))
		}()
	}
	// give the overlapping callers time to join the in-flight call
	time.Sleep(100 * time.Millisecond)
	close(fetcher.release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&fetcher.calls))
	require.NotNil(t, store.Snapshot().Weather)
	assert.Equal(t, "clear", store.Snapshot().Weather.Rule)
}

func TestBuildViewDefaultRule(t *testing.T) {
	display, _, _ := newObservedDisplay(&stubFetcher{}, WithHourSlots(0))

	view := display.BuildView(newForecast("Smoke", 19.6))

	assert.Equal(t, "default", view.Rule)
	assert.Equal(t, "It's 20°C in Brisbane right now.", view.Message)
	assert.Empty(t, view.Hours)
}

// ctxFetcher blocks until release and then reports whether its context was cancelled.
type ctxFetcher struct {
	calls   int32
	started chan struct{}
	release chan struct{}
}

func (f *ctxFetcher) FetchForecast(ctx context.Context) (*Forecast, error) {
	if atomic.AddInt32(&f.calls, 1) == 1 {
		close(f.started)
	}
	<-f.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return newForecast("Overcast", 22), nil
}

func TestRefreshSurvivesFirstCallerCancellation(t *testing.T) {
	fetcher := &ctxFetcher{started: make(chan struct{}), release: make(chan struct{})}
	display, store, logs := newObservedDisplay(fetcher)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	errs := make(chan error, 2)
	go func() { errs <- display.Refresh(firstCtx) }()
	<-fetcher.started
	go func() { errs <- display.Refresh(context.Background()) }()

	// let the second caller join the in-flight call before the first one goes away
	time.Sleep(100 * time.Millisecond)
	cancelFirst()
	close(fetcher.release)

	for i := 0; i < 2; i++ {
		assert.NoError(t, <-errs)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&fetcher.calls))
	require.NotNil(t, store.Snapshot().Weather)
	assert.Equal(t, "cloudy", store.Snapshot().Weather.Rule)
	assert.Zero(t, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}

func TestUpcomingHoursHalfHourOffsetZone(t *testing.T) {
	acst := time.FixedZone("ACST", 9*60*60+30*60)
	now := time.Date(2026, 3, 2, 10, 40, 0, 0, acst)

	f := newForecast("Sunny", 27)
	hours := make([]HourForecast, 0, 6)
	for h := 8; h < 14; h++ {
		hours = append(hours, HourForecast{
			TimeEpoch: time.Date(2026, 3, 2, h, 0, 0, 0, acst).Unix(),
			Condition: Condition{Text: "Sunny"},
		})
	}
	f.Forecast.ForecastDay = []ForecastDay{{Date: "2026-03-02", Hour: hours}}

	display := NewWeatherDisplay(&stubFetcher{}, nil, NewStore(), nil,
		WithClock(func() time.Time { return now }), WithHourSlots(2))
	view := display.BuildView(f)

	var labels []string
	for _, h := range view.Hours {
		labels = append(labels, h.Label)
	}
	if diff := cmp.Diff([]string{"10 AM", "11 AM"}, labels); diff != "" {
		t.Errorf("current hour must be included (-want +got):\n%s", diff)
	}
}
