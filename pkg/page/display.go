package page

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	defaultHourSlots = 6
	// refreshTimeout は共有フェッチの上限時間です。呼び出し元のキャンセルとは切り離されます。
	refreshTimeout = 15 * time.Second
)

// WeatherDisplay は予報データをページの天気表示に変換します。
type WeatherDisplay struct {
	fetcher ForecastFetcher
	table   *ConditionTable
	store   *Store
	logger  *zap.Logger
	hours   int
	now     func() time.Time
	group   singleflight.Group
}

// DisplayOption はWeatherDisplayの設定オプションです。
type DisplayOption func(*WeatherDisplay)

// WithHourSlots は表示する時間別予報の件数を設定します。
func WithHourSlots(n int) DisplayOption {
	return func(d *WeatherDisplay) {
		if n >= 0 {
			d.hours = n
		}
	}
}

// WithClock は時間別予報の選択に使う時刻源を差し替えます。
func WithClock(now func() time.Time) DisplayOption {
	return func(d *WeatherDisplay) { d.now = now }
}

// NewWeatherDisplay はstoreへ表示内容を反映する新しいWeatherDisplayを生成します。
func NewWeatherDisplay(fetcher ForecastFetcher, table *ConditionTable, store *Store, logger *zap.Logger, opts ...DisplayOption) *WeatherDisplay {
	if logger == nil {
		logger = zap.NewNop()
	}
	if table == nil {
		table = DefaultConditionTable()
	}
	d := &WeatherDisplay{
		fetcher: fetcher,
		table:   table,
		store:   store,
		logger:  logger.Named("weather_display"),
		hours:   defaultHourSlots,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Refresh は予報を一度取得して反映します。取得中に呼ばれた場合は新しいリクエストを発行せず、
// 進行中の結果を共有します。失敗時は直前の表示を残し、エラーログを一件だけ出力します。
// 共有フェッチは最初の呼び出し元のキャンセルでは中断されず、refreshTimeoutで打ち切られます。
func (d *WeatherDisplay) Refresh(ctx context.Context) error {
	_, err, _ := d.group.Do("forecast", func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()

		forecast, err := d.fetcher.FetchForecast(fetchCtx)
		if err != nil {
			d.logger.Error("failed to refresh weather", zap.Error(err))
			return nil, err
		}

		view := d.BuildView(forecast)
		d.store.Update(func(s *State) {
			s.Weather = view
		})
		d.logger.Debug("weather refreshed",
			zap.String("condition", view.Condition),
			zap.String("rule", view.Rule),
		)
		return nil, nil
	})
	return err
}

// BuildView は予報データを表示用の形式に変換します。
func (d *WeatherDisplay) BuildView(f *Forecast) *WeatherView {
	current := f.Current
	rule := d.table.Match(current.Condition.Text)
	now := d.now()

	view := &WeatherView{
		Rule:       rule.Name,
		Icon:       rule.Icon,
		Title:      rule.Text,
		Condition:  current.Condition.Text,
		Location:   f.Location.Name,
		TempC:      current.TempC,
		FeelsLikeC: current.FeelsLikeC,
		Humidity:   current.Humidity,
		WindKph:    current.WindKph,
		UpdatedAt:  now,
	}
	view.Message = rule.Render(MessageData{
		Location:  f.Location.Name,
		Temp:      formatTemp(current.TempC),
		FeelsLike: formatTemp(current.FeelsLikeC),
		Condition: current.Condition.Text,
	})
	view.Hours = d.upcomingHours(f.Hours(), now)
	return view
}

func (d *WeatherDisplay) upcomingHours(hours []HourForecast, now time.Time) []HourView {
	if d.hours == 0 {
		return nil
	}
	// Truncateは絶対時刻で丸めるため、30分オフセットの地域では現在の時間帯がずれる
	from := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, now.Location()).Unix()
	out := make([]HourView, 0, d.hours)
	for _, h := range hours {
		if h.TimeEpoch < from {
			continue
		}
		t := time.Unix(h.TimeEpoch, 0).In(now.Location())
		out = append(out, HourView{
			Time:         t,
			Label:        t.Format("3 PM"),
			Icon:         d.table.Match(h.Condition.Text).Icon,
			TempC:        h.TempC,
			ChanceOfRain: h.ChanceOfRain,
		})
		if len(out) == d.hours {
			break
		}
	}
	return out
}

func formatTemp(c float64) string {
	return strconv.FormatFloat(c, 'f', 0, 64)
}
