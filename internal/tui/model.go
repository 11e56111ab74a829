package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kurohana/kurohana/internal/api"
	"github.com/kurohana/kurohana/internal/predict"
	"github.com/kurohana/kurohana/pkg/bus"
)

// defaultPredictTimeout bounds one prediction started from the console.
const defaultPredictTimeout = 30 * time.Second

// Deps are the collaborators the console reads from.
type Deps struct {
	Status    api.StatusSource
	Logs      api.LogSource
	Predictor api.Predictor
	Feed      *Feed
	APIBase   string
	// Timeout bounds each prediction; zero uses 30s.
	Timeout time.Duration
}

// engineResultMsg and navalResultMsg carry prediction outcomes back to Update.
type engineResultMsg struct {
	res *predict.EngineResult
	err error
}

type navalResultMsg struct {
	res *predict.NavalResult
	err error
}

// predictPane is the console state of one prediction form.
type predictPane struct {
	preset string
	busy   bool
	err    string
}

// Model is the bubbletea model of the console: status badges, the activity
// log window and one pane per prediction form.
type Model struct {
	ctx  context.Context
	deps Deps

	status  api.StatusResponse
	entries []bus.Entry

	engine    predictPane
	engineRes *predict.EngineResult
	naval     predictPane
	navalRes  *predict.NavalResult

	width    int
	height   int
	quitting bool
}

// New returns a console model. Predictions started from it are cancelled
// when ctx is.
func New(ctx context.Context, d Deps) Model {
	if d.Timeout <= 0 {
		d.Timeout = defaultPredictTimeout
	}
	m := Model{
		ctx:    ctx,
		deps:   d,
		engine: predictPane{preset: predict.EngineForm.DefaultPreset},
		naval:  predictPane{preset: predict.NavalForm.DefaultPreset},
	}
	m.refreshStatus()
	m.refreshLogs()
	return m
}

// Run starts the console in the alternate screen and blocks until the user
// quits or ctx is cancelled.
func Run(ctx context.Context, d Deps) error {
	p := tea.NewProgram(New(ctx, d), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("tui: run: %w", err)
	}
	return nil
}

// Init starts listening on the feed.
func (m Model) Init() tea.Cmd {
	return m.listen()
}

// Update handles feed signals, key presses and prediction results.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case logsChangedMsg:
		m.refreshLogs()
		return m, m.listen()

	case statusChangedMsg:
		m.refreshStatus()
		return m, m.listen()

	case engineResultMsg:
		m.engine.busy = false
		m.engine.err = errText(msg.err)
		if msg.err == nil {
			m.engineRes = msg.res
		}

	case navalResultMsg:
		m.naval.busy = false
		m.naval.err = errText(msg.err)
		if msg.err == nil {
			m.navalRes = msg.res
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			if m.deps.Feed != nil {
				m.deps.Feed.Close()
			}
			return m, tea.Quit
		case "r":
			m.refreshStatus()
			m.refreshLogs()
		case "p":
			m.engine.preset = nextPreset(predict.EngineForm, m.engine.preset)
		case "o":
			m.naval.preset = nextPreset(predict.NavalForm, m.naval.preset)
		case "e":
			if m.engine.busy || m.deps.Predictor == nil {
				return m, nil
			}
			m.engine.busy = true
			return m, m.predictEngine()
		case "n":
			if m.naval.busy || m.deps.Predictor == nil {
				return m, nil
			}
			m.naval.busy = true
			return m, m.predictNaval()
		}
	}
	return m, nil
}

// View renders the console.
func (m Model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.headerView(),
		"",
		sectionStyle.Render("LOGS"),
		m.logsView(),
		"",
		m.engineView(),
		"",
		m.navalView(),
		"",
		m.helpView(),
	)
}

// --- state ------------------------------------------------------------------

func (m *Model) refreshStatus() {
	if m.deps.Status == nil {
		return
	}
	m.status = api.BuildStatus(m.deps.Status, m.deps.APIBase, nil)
}

func (m *Model) refreshLogs() {
	if m.deps.Logs == nil {
		return
	}
	m.entries = m.deps.Logs.Entries()
}

func (m Model) listen() tea.Cmd {
	if m.deps.Feed == nil {
		return nil
	}
	return m.deps.Feed.listen()
}

func (m Model) predictEngine() tea.Cmd {
	ctx, pr, timeout := m.ctx, m.deps.Predictor, m.deps.Timeout
	values := presetStrings(predict.EngineForm, m.engine.preset)
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		res, err := pr.Engine(ctx, values)
		return engineResultMsg{res: res, err: err}
	}
}

func (m Model) predictNaval() tea.Cmd {
	ctx, pr, timeout := m.ctx, m.deps.Predictor, m.deps.Timeout
	values := presetStrings(predict.NavalForm, m.naval.preset)
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		res, err := pr.Naval(ctx, values)
		return navalResultMsg{res: res, err: err}
	}
}

// --- rendering --------------------------------------------------------------

func (m Model) headerView() string {
	snap := m.status.Snapshot
	badges := lipgloss.JoinHorizontal(lipgloss.Top,
		badgeFor(snap.API).Render("API"), " ",
		badgeFor(snap.Engine).Render("ENG"), " ",
		badgeFor(snap.Naval).Render("NAV"),
	)
	title := titleStyle.Render("Kurohana") + "  " + mutedStyle.Render(m.deps.APIBase)

	status := "status: " + m.status.APIStatus
	if m.status.LastError != "" {
		status += " (" + m.status.LastError + ")"
	}
	detail := fmt.Sprintf("engine artifacts %s · naval artifacts %s",
		m.status.Artifacts.Engine, m.status.Artifacts.Naval)

	lines := []string{title, badges + "  " + status, mutedStyle.Render(detail)}
	for _, h := range m.status.Diagnostics {
		if h.Level == "ok" {
			continue
		}
		lines = append(lines, mutedStyle.Render("• "+h.Title+": "+h.Detail))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) logsView() string {
	if len(m.entries) == 0 {
		return mutedStyle.Render("waiting for logs…")
	}
	entries := m.entries
	if rows := m.logRows(); rows > 0 && len(entries) > rows {
		entries = entries[:rows]
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, formatEntry(e))
	}
	return strings.Join(lines, "\n")
}

// logRows is the number of log lines that fit next to the fixed panes, or 0
// before the terminal size is known.
func (m Model) logRows() int {
	if m.height == 0 {
		return 0
	}
	const fixed = 24
	if rows := m.height - fixed; rows > 3 {
		return rows
	}
	return 3
}

func formatEntry(e bus.Entry) string {
	text := infoStyle.Render(e.Text)
	if e.Level == bus.LevelError {
		text = errorStyle.Render(e.Text)
	}
	return timeStyle.Render(e.Time().Format(time.TimeOnly)) + sepStyle.Render(" | ") + text
}

func (m Model) engineView() string {
	lines := []string{paneTitle("ENGINE", predict.EngineForm, m.engine)}
	if m.engine.err != "" {
		lines = append(lines, errorStyle.Render(m.engine.err))
	}
	if r := m.engineRes; r != nil {
		lines = append(lines, "condition: "+titleStyle.Render(r.Condition))
		lines = append(lines, "  "+formatProbabilities(r.Probabilities))
		lines = append(lines, formatFeatures("influence", r.TopFeatures)...)
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) navalView() string {
	lines := []string{paneTitle("NAVAL", predict.NavalForm, m.naval)}
	if m.naval.err != "" {
		lines = append(lines, errorStyle.Render(m.naval.err))
	}
	if r := m.navalRes; r != nil {
		lines = append(lines, fmt.Sprintf("compressor decay %.3f · turbine decay %.3f",
			r.CompressorDecay, r.TurbineDecay))
		lines = append(lines, formatFeatures("compressor influence", r.CompressorTop)...)
		lines = append(lines, formatFeatures("turbine influence", r.TurbineTop)...)
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) helpView() string {
	keys := []string{"e predict engine", "p engine preset", "n predict naval", "o naval preset", "r refresh", "q quit"}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		key, desc, _ := strings.Cut(k, " ")
		parts = append(parts, keyStyle.Render(key)+" "+mutedStyle.Render(desc))
	}
	return strings.Join(parts, "  ")
}

func paneTitle[T any](name string, f *predict.Form[T], pane predictPane) string {
	label := pane.preset
	if p, ok := f.Preset(pane.preset); ok {
		label = p.Label
	}
	title := sectionStyle.Render(name) + "  preset: " + label
	if pane.busy {
		title += "  " + mutedStyle.Render("Predicting")
	}
	return title
}

// formatProbabilities renders class probabilities as percentages, ordered by
// class name.
func formatProbabilities(probs map[string]float64) string {
	names := make([]string, 0, len(probs))
	for name := range probs {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s %.1f%%", humanize(name), probs[name]*100))
	}
	return strings.Join(parts, "  ")
}

func formatFeatures(title string, features []predict.Feature) []string {
	if len(features) == 0 {
		return nil
	}
	lines := []string{mutedStyle.Render(title)}
	for _, f := range features {
		lines = append(lines, fmt.Sprintf("  %-40s %.3f", humanize(f.Name), f.Value))
	}
	return lines
}

func humanize(name string) string {
	return strings.ReplaceAll(name, "_", " ")
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// --- presets ----------------------------------------------------------------

func presetStrings[T any](f *predict.Form[T], key string) map[string]string {
	p, ok := f.Preset(key)
	if !ok {
		return nil
	}
	return f.Strings(p.Values)
}

func nextPreset[T any](f *predict.Form[T], current string) string {
	for i, p := range f.Presets {
		if p.Key == current {
			return f.Presets[(i+1)%len(f.Presets)].Key
		}
	}
	return f.DefaultPreset
}
