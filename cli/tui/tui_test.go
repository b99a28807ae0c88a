package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pithecene-io/posters/types"
)

func TestIsTUISupported(t *testing.T) {
	tests := []struct {
		viewType string
		want     bool
	}{
		{"history", true},

		{"invoke", false},
		{"call", false},
		{"events", false},
		{"version", false},
		{"unknown", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.viewType, func(t *testing.T) {
			got := IsTUISupported(tt.viewType)
			if got != tt.want {
				t.Errorf("IsTUISupported(%q) = %v, want %v", tt.viewType, got, tt.want)
			}
		})
	}
}

func TestSupportedTUIViews(t *testing.T) {
	views := SupportedTUIViews()
	if len(views) != 1 {
		t.Errorf("SupportedTUIViews() returned %d views, expected 1", len(views))
	}
	for _, v := range views {
		if !IsTUISupported(v) {
			t.Errorf("SupportedTUIViews() returned %q but IsTUISupported returns false", v)
		}
	}
}

func TestRun_UnsupportedViewType(t *testing.T) {
	if err := Run("invoke", nil); err == nil {
		t.Error("Expected error for unsupported view type")
	}
}

func TestRunHistoryTUI_WrongDataType(t *testing.T) {
	if err := RunHistoryTUI("not records"); err == nil {
		t.Error("Expected error for wrong data type")
	}
}

func sampleRecords() []types.PosterRecord {
	return []types.PosterRecord{
		{
			RecordKind: types.RecordKindPoster,
			Day:        "2026-03-14",
			Key:        "posterName2026-03-14-09-26-53",
			Bucket:     "posters",
			Prompt:     "a lighthouse at dusk",
			Seed:       float64(7),
			SizeBytes:  1024,
			ModelID:    "amazon.titan-image-generator-v1",
			CreatedAt:  "2026-03-14T09:26:53Z",
		},
		{
			RecordKind: types.RecordKindPoster,
			Day:        "2026-03-14",
			Key:        "posterName2026-03-14-10-00-00",
			Bucket:     "posters",
			Prompt:     "a fox in the snow",
			SizeBytes:  2048,
			CreatedAt:  "2026-03-14T10:00:00Z",
		},
	}
}

func press(m tea.Model, k string) tea.Model {
	var msg tea.KeyMsg
	switch k {
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		msg = tea.KeyMsg{Type: tea.KeyUp}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	next, _ := m.Update(msg)
	return next
}

func TestHistoryModel_CursorBounds(t *testing.T) {
	var m tea.Model = NewHistoryModel(sampleRecords())

	m = press(m, "up")
	if got := m.(HistoryModel).Cursor(); got != 0 {
		t.Fatalf("cursor after up at top = %d, want 0", got)
	}

	m = press(m, "down")
	m = press(m, "j")
	if got := m.(HistoryModel).Cursor(); got != 1 {
		t.Fatalf("cursor past end = %d, want 1", got)
	}

	m = press(m, "k")
	if got := m.(HistoryModel).Cursor(); got != 0 {
		t.Fatalf("cursor after k = %d, want 0", got)
	}
}

func TestHistoryModel_ViewShowsSelectedDetail(t *testing.T) {
	var m tea.Model = NewHistoryModel(sampleRecords())
	m = press(m, "down")

	view := m.View()
	if !strings.Contains(view, "Poster History (2)") {
		t.Errorf("view missing title: %s", view)
	}
	if !strings.Contains(view, "a fox in the snow") {
		t.Errorf("view missing selected prompt: %s", view)
	}
	if !strings.Contains(view, "2048 bytes") {
		t.Errorf("view missing selected size: %s", view)
	}
}

func TestHistoryModel_Quit(t *testing.T) {
	m := NewHistoryModel(sampleRecords())
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if next.View() != "" {
		t.Error("view should be empty after quitting")
	}
}

func TestRenderHistoryStatic_Empty(t *testing.T) {
	out := RenderHistoryStatic(nil)
	if !strings.Contains(out, "No posters recorded.") {
		t.Errorf("empty history should say so, got: %s", out)
	}
}

func TestPreview_Truncates(t *testing.T) {
	long := strings.Repeat("word ", 30)
	got := preview(long)
	if n := len([]rune(got)); n != promptPreview {
		t.Errorf("preview length = %d, want %d", n, promptPreview)
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("truncated preview should end with an ellipsis: %q", got)
	}
	if preview("  short\n prompt ") != "short prompt" {
		t.Errorf("preview should collapse whitespace")
	}
}

func TestStateStyle(t *testing.T) {
	if StateStyle("ok").GetForeground() != successColor {
		t.Error("ok should use the success color")
	}
	if StateStyle("failed").GetForeground() != errorColor {
		t.Error("failed should use the error color")
	}
	if StateStyle("other").GetForeground() != ValueStyle.GetForeground() {
		t.Error("unknown states should use the value style")
	}
}
