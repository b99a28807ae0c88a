package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/posters/types"
)

// promptPreview is the prompt width shown in list rows.
const promptPreview = 48

// HistoryModel browses ledger records: a list on the left, the selected
// record's details below it.
type HistoryModel struct {
	records  []types.PosterRecord
	cursor   int
	width    int
	height   int
	quitting bool
}

// NewHistoryModel creates a history model over records.
func NewHistoryModel(records []types.PosterRecord) HistoryModel {
	return HistoryModel{records: records}
}

// Init implements tea.Model.
func (m HistoryModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m HistoryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.records)-1 {
				m.cursor++
			}
		}
	}

	return m, nil
}

// Cursor returns the index of the selected record.
func (m HistoryModel) Cursor() int {
	return m.cursor
}

// View implements tea.Model.
func (m HistoryModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render(fmt.Sprintf("Poster History (%d)", len(m.records))))
	b.WriteString("\n")

	if len(m.records) == 0 {
		b.WriteString(RowStyle.Render("No posters recorded."))
		b.WriteString("\n")
		b.WriteString(HelpStyle.Render("q quit"))
		return b.String()
	}

	for i, rec := range m.records {
		line := fmt.Sprintf("%s  %-36s  %s", rec.CreatedAt, rec.Key, preview(rec.Prompt))
		if i == m.cursor {
			b.WriteString(CursorStyle.Render("> " + line))
		} else {
			b.WriteString(RowStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.renderDetail(m.records[m.cursor]))
	b.WriteString("\n")
	b.WriteString(HelpStyle.Render("↑/k up • ↓/j down • q quit"))
	return b.String()
}

func (m HistoryModel) renderDetail(rec types.PosterRecord) string {
	rows := [][]string{
		{"Key", rec.Key},
		{"Bucket", rec.Bucket},
		{"Day", rec.Day},
		{"Created At", rec.CreatedAt},
		{"Size", fmt.Sprintf("%d bytes", rec.SizeBytes)},
		{"Model", rec.ModelID},
		{"Invocation", rec.InvocationID},
	}
	if rec.Seed != nil {
		rows = append(rows, []string{"Seed", fmt.Sprintf("%v", rec.Seed)})
	}
	rows = append(rows, []string{"Prompt", rec.Prompt})

	var b strings.Builder
	for _, row := range rows {
		label := LabelStyle.Render(row[0] + ":")
		b.WriteString(fmt.Sprintf("%s %s\n", label, ValueStyle.Render(row[1])))
	}
	return BoxStyle.Render(strings.TrimSuffix(b.String(), "\n"))
}

func preview(prompt string) string {
	prompt = strings.Join(strings.Fields(prompt), " ")
	r := []rune(prompt)
	if len(r) <= promptPreview {
		return prompt
	}
	return string(r[:promptPreview-1]) + "…"
}

// keyMap defines key bindings.
type keyMap struct {
	Up   key.Binding
	Down key.Binding
	Quit key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// RunHistoryTUI runs the history browser.
func RunHistoryTUI(data any) error {
	records, ok := data.([]types.PosterRecord)
	if !ok {
		return fmt.Errorf("invalid data type for history view: %T", data)
	}
	p := tea.NewProgram(NewHistoryModel(records), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderHistoryStatic renders the history view without a running program.
func RenderHistoryStatic(records []types.PosterRecord) string {
	model := NewHistoryModel(records)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
