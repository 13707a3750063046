package page

import (
	"sync"
	"time"
)

// WidgetID は独立した開閉ウィジェットの識別子です。
type WidgetID string

const (
	WeatherModal   WidgetID = "weather-modal"
	Chatbot        WidgetID = "chatbot"
	ReminderBanner WidgetID = "reminder-banner"
)

// HourView は表示用の時間別予報1件です。
type HourView struct {
	Time         time.Time
	Label        string
	Icon         string
	TempC        float64
	ChanceOfRain int
}

// WeatherView は表示中の天気内容です。更新時は変更せずに丸ごと置き換えます。
type WeatherView struct {
	Rule       string
	Icon       string
	Title      string
	Condition  string
	Message    string
	Location   string
	TempC      float64
	FeelsLikeC float64
	Humidity   int
	WindKph    float64
	Hours      []HourView
	UpdatedAt  time.Time
}

// State はビューがページを描画するために必要な状態です。
type State struct {
	Weather  *WeatherView
	Widgets  map[WidgetID]bool
	Reminder string
}

// IsOpen はウィジェットの開閉状態を返します。未登録のウィジェットは閉じている扱いです。
func (s State) IsOpen(id WidgetID) bool {
	return s.Widgets[id]
}

func (s State) clone() State {
	widgets := make(map[WidgetID]bool, len(s.Widgets))
	for k, v := range s.Widgets {
		widgets[k] = v
	}
	s.Widgets = widgets
	return s
}

// Store はページの状態を保持し、変更のたびに購読者へ通知します。
// 購読者は更新順に同期実行されます。購読者の中からUpdateを呼んではいけません。
type Store struct {
	notifyMu sync.Mutex
	mu       sync.RWMutex
	state    State
	subs     map[int]func(State)
	nextID   int
}

// NewStore は空のStoreを生成します。
func NewStore() *Store {
	return &Store{
		state: State{Widgets: make(map[WidgetID]bool)},
		subs:  make(map[int]func(State)),
	}
}

// Snapshot は現在の状態のコピーを返します。
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Subscribe は状態変更の通知先fnを登録し、登録解除用の関数を返します。
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Update はfnで状態を更新し、結果を購読者へ通知します。
func (s *Store) Update(fn func(*State)) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	fn(&s.state)
	snapshot := s.state.clone()
	subs := make([]func(State), 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub(snapshot)
	}
}
