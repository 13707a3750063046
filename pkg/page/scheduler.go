package page

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrSchedulerRunning は実行中のスケジューラーでStartを呼んだ場合に返されます。
var ErrSchedulerRunning = errors.New("scheduler already running")

// Ticker はスケジューラーが使うtime.Tickerの部分です。
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory はd間隔で発火するTickerを生成します。
type TickerFactory func(d time.Duration) Ticker

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// NewRealTicker はtime.NewTickerのラッパーです。
func NewRealTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

// Scheduler はStart時にタスクを一度実行し、停止されるまでtickごとに実行します。
// タスク実行中に届いたtickは捨てられます。
type Scheduler struct {
	name      string
	interval  time.Duration
	task      func(context.Context)
	newTicker TickerFactory

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler は停止状態のスケジューラーを生成します。factoryがnilなら実時間を使います。
func NewScheduler(name string, interval time.Duration, task func(context.Context), newTicker TickerFactory) *Scheduler {
	if newTicker == nil {
		newTicker = NewRealTicker
	}
	return &Scheduler{
		name:      name,
		interval:  interval,
		task:      task,
		newTicker: newTicker,
	}
}

// Name はスケジューラー名を返します。
func (s *Scheduler) Name() string { return s.name }

// Start はループを開始します。タスクは即時に一度、その後interval毎に実行されます。
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return errors.New("scheduler " + s.name + ": interval must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return ErrSchedulerRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	ticker := s.newTicker(s.interval)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go func() {
		defer close(done)
		defer ticker.Stop()

		s.task(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C():
				s.task(ctx)
			}
		}
	}()
	return nil
}

// Stop はループを止めて終了を待ちます。複数回呼んでも安全です。
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running はループが動作中かを返します。
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}
