package page

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// ChatbotGreeting is shown when the chatbot panel is open.
const ChatbotGreeting = "Hi! Ask me about term dates, uniforms or the bell times."

var (
	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("39")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("212")).
			Padding(0, 1)
)

// TerminalView renders page state as text. It only reads state; all changes go through the
// store.
type TerminalView struct {
	mu  sync.Mutex
	out io.Writer
}

// NewTerminalView writes renders to out.
func NewTerminalView(out io.Writer) *TerminalView {
	return &TerminalView{out: out}
}

// Attach subscribes the view to store and draws the current state once.
func (v *TerminalView) Attach(store *Store) func() {
	v.Draw(store.Snapshot())
	return store.Subscribe(v.Draw)
}

// Draw writes one frame.
func (v *TerminalView) Draw(s State) {
	frame := v.Render(s)
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintln(v.out, frame)
}

// Render builds the frame for a state.
func (v *TerminalView) Render(s State) string {
	parts := make([]string, 0, 4)

	if s.IsOpen(ReminderBanner) && s.Reminder != "" {
		parts = append(parts, bannerStyle.Render("📣 "+s.Reminder))
	}

	parts = append(parts, cardStyle.Render(renderWeatherCard(s.Weather)))

	if s.IsOpen(WeatherModal) && s.Weather != nil {
		parts = append(parts, panelStyle.Render(renderWeatherDetails(s.Weather)))
	}

	if s.IsOpen(Chatbot) {
		parts = append(parts, panelStyle.Render(titleStyle.Render("Chat")+"\n"+ChatbotGreeting))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func renderWeatherCard(w *WeatherView) string {
	if w == nil {
		return mutedStyle.Render("Loading weather...")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s  %s°C\n", w.Icon, titleStyle.Render(w.Title), formatTemp(w.TempC))
	b.WriteString(w.Message)
	if !w.UpdatedAt.IsZero() {
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render("Updated " + w.UpdatedAt.Format("3:04 PM")))
	}
	return b.String()
}

func renderWeatherDetails(w *WeatherView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s in %s\n", titleStyle.Render(w.Condition), w.Location)
	fmt.Fprintf(&b, "Feels like %s°C · Humidity %d%% · Wind %s km/h", formatTemp(w.FeelsLikeC), w.Humidity, formatTemp(w.WindKph))
	for _, h := range w.Hours {
		fmt.Fprintf(&b, "\n%-6s %s %s°C  %d%% rain", h.Label, h.Icon, formatTemp(h.TempC), h.ChanceOfRain)
	}
	return b.String()
}
