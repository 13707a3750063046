package page

import "sync"

// Widget は開閉フラグをStoreに持つ自己完結型のトグルです。
type Widget struct {
	id    WidgetID
	store *Store
}

// NewWidget は初期状態でウィジェットをStoreに登録します。
func NewWidget(store *Store, id WidgetID, open bool) *Widget {
	store.Update(func(s *State) { s.Widgets[id] = open })
	return &Widget{id: id, store: store}
}

// ID はウィジェットの識別子を返します。
func (w *Widget) ID() WidgetID { return w.id }

// IsOpen は現在の開閉状態を返します。
func (w *Widget) IsOpen() bool {
	return w.store.Snapshot().IsOpen(w.id)
}

// Open はウィジェットを開きます。
func (w *Widget) Open() { w.set(true) }

// Close はウィジェットを閉じます。
func (w *Widget) Close() { w.set(false) }

// Toggle は開閉を切り替え、新しい状態を返します。
func (w *Widget) Toggle() bool {
	var open bool
	w.store.Update(func(s *State) {
		open = !s.Widgets[w.id]
		s.Widgets[w.id] = open
	})
	return open
}

func (w *Widget) set(open bool) {
	w.store.Update(func(s *State) { s.Widgets[w.id] = open })
}

// Reminders はバナーのメッセージを順番に切り替えます。バナーが閉じられていても切り替えは続きます。
type Reminders struct {
	mu       sync.Mutex
	messages []string
	index    int
	store    *Store
}

// NewReminders は新しいRemindersを生成します。最初のAdvanceまでは何も反映しません。
func NewReminders(store *Store, messages []string) *Reminders {
	msgs := make([]string, len(messages))
	copy(msgs, messages)
	return &Reminders{messages: msgs, index: -1, store: store}
}

// Advance は次のメッセージを反映して返します。
func (r *Reminders) Advance() string {
	r.mu.Lock()
	if len(r.messages) == 0 {
		r.mu.Unlock()
		return ""
	}
	r.index = (r.index + 1) % len(r.messages)
	msg := r.messages[r.index]
	r.mu.Unlock()

	r.store.Update(func(s *State) { s.Reminder = msg })
	return msg
}
