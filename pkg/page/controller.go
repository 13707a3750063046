package page

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultReminders は設定がない場合に表示するバナーメッセージです。
var DefaultReminders = []string{
	"Hats are compulsory for outdoor breaks.",
	"Refill your water bottle at lunch.",
	"Check the school app for today's notices.",
}

// ControllerConfig はページコントローラーの設定です。
type ControllerConfig struct {
	WeatherInterval  time.Duration
	ReminderInterval time.Duration
	Reminders        []string
	HourSlots        int
	TickerFactory    TickerFactory
}

// DefaultControllerConfig は標準の更新間隔を返します。
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		WeatherInterval:  10 * time.Minute,
		ReminderInterval: 30 * time.Second,
		Reminders:        DefaultReminders,
		HourSlots:        defaultHourSlots,
	}
}

// Controller はページの状態と2つの更新タイマーを管理します。
type Controller struct {
	Store          *Store
	Display        *WeatherDisplay
	Reminders      *Reminders
	WeatherModal   *Widget
	Chatbot        *Widget
	ReminderBanner *Widget

	weatherScheduler  *Scheduler
	reminderScheduler *Scheduler
	logger            *zap.Logger
}

// NewController は新しいControllerを生成します。tableがnilなら組み込みの天気条件テーブルを使います。
func NewController(fetcher ForecastFetcher, table *ConditionTable, logger *zap.Logger, cfg ControllerConfig) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	store := NewStore()
	c := &Controller{
		Store:          store,
		Display:        NewWeatherDisplay(fetcher, table, store, logger, WithHourSlots(cfg.HourSlots)),
		Reminders:      NewReminders(store, cfg.Reminders),
		WeatherModal:   NewWidget(store, WeatherModal, false),
		Chatbot:        NewWidget(store, Chatbot, false),
		ReminderBanner: NewWidget(store, ReminderBanner, true),
		logger:         logger.Named("page"),
	}

	c.weatherScheduler = NewScheduler("weather", cfg.WeatherInterval, func(ctx context.Context) {
		// エラーはdisplay側でログ出力済み。直前の天気表示はそのまま残る
		_ = c.Display.Refresh(ctx)
	}, cfg.TickerFactory)
	c.reminderScheduler = NewScheduler("reminders", cfg.ReminderInterval, func(context.Context) {
		c.Reminders.Advance()
	}, cfg.TickerFactory)
	return c
}

// Start は天気とリマインダーのタイマーを開始します。
func (c *Controller) Start(ctx context.Context) error {
	if err := c.weatherScheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start weather refresh: %w", err)
	}
	if err := c.reminderScheduler.Start(ctx); err != nil {
		c.weatherScheduler.Stop()
		return fmt.Errorf("failed to start reminder rotation: %w", err)
	}
	c.logger.Info("page controller started")
	return nil
}

// Stop は両方のタイマーを止め、実行中のタスクの完了を待ちます。
func (c *Controller) Stop() {
	c.weatherScheduler.Stop()
	c.reminderScheduler.Stop()
	c.logger.Info("page controller stopped")
}

// Widget はidからウィジェットを取得します。
func (c *Controller) Widget(id WidgetID) (*Widget, bool) {
	switch id {
	case WeatherModal:
		return c.WeatherModal, true
	case Chatbot:
		return c.Chatbot, true
	case ReminderBanner:
		return c.ReminderBanner, true
	}
	return nil, false
}
