package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/strps/Trackbit-sub000/internal/tracker"
)

const habitPaneWidth = 26

// renderMain renders the full UI.
func (m Model) renderMain() string {
	styles := m.theme.Styles()

	sections := []string{m.renderHeader(styles)}

	habits := styles.Pane.Width(habitPaneWidth).Render(m.renderHabits(styles))
	detailWidth := max(m.width-habitPaneWidth-6, 30)
	detail := styles.Focused.Width(detailWidth).Render(m.renderDay(styles))
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, habits, detail))

	if m.mode != modeNormal {
		sections = append(sections, m.renderPrompt(styles))
	}
	if m.showActivity {
		sections = append(sections, m.renderActivity(styles))
	}
	sections = append(sections, styles.Footer.Width(m.width).Render(m.help.View(m.keys)))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader(styles Styles) string {
	parts := []string{styles.AccentText.Bold(true).Render("Trackbit")}
	if m.proj.Habit != nil {
		parts = append(parts, styles.Text.Render(m.proj.Habit.Name))
	}
	parts = append(parts, styles.MutedText.Render(m.day()))

	switch {
	case m.offline:
		parts = append(parts, styles.DangerText.Render("offline"))
	case m.inFlight > 0:
		parts = append(parts, styles.WarningText.Render(fmt.Sprintf("saving %d…", m.inFlight)))
	}
	if m.flash != "" {
		style := styles.SuccessText
		if m.flashErr {
			style = styles.DangerText
		}
		parts = append(parts, style.Render(m.flash))
	}
	return styles.Header.Width(m.width).Render(strings.Join(parts, "  "))
}

func (m Model) renderHabits(styles Styles) string {
	if len(m.habits) == 0 {
		return styles.MutedText.Render("No habits yet")
	}
	var b strings.Builder
	b.WriteString(styles.AccentText.Bold(true).Render("Habits"))
	for _, h := range m.habits {
		b.WriteString("\n")
		label := truncate(habitLabel(h), habitPaneWidth-2)
		if h.ID == m.proj.Selection.HabitID {
			b.WriteString(styles.Selected.Render("▸ " + label))
			continue
		}
		b.WriteString(styles.Text.Render("  " + label))
	}
	return b.String()
}

func (m Model) renderDay(styles Styles) string {
	if m.proj.Habit == nil {
		return styles.MutedText.Render("Select a habit with j/k")
	}
	var b strings.Builder

	b.WriteString(styles.AccentText.Bold(true).Render(m.proj.Habit.Name))
	b.WriteString(styles.MutedText.Render("  " + string(m.proj.Habit.Type)))
	b.WriteString("\n")
	b.WriteString(styles.Text.Render("Rating: " + formatRating(m.proj.DayLog)))
	b.WriteString("\n\n")

	if m.proj.Habit.Type == tracker.HabitComplex {
		b.WriteString(m.renderSession(styles))
		b.WriteString("\n\n")
	}

	b.WriteString(m.renderHeatmap())
	return b.String()
}

func (m Model) renderSession(styles Styles) string {
	s := m.proj.Session
	if s == nil {
		return styles.MutedText.Render("No session. Press s to start one.")
	}
	var b strings.Builder
	title := "Session"
	if s.Pending() {
		title += " (saving)"
	}
	b.WriteString(styles.InfoText.Bold(true).Render(title))
	if len(s.ExerciseLogs) == 0 {
		b.WriteString("\n")
		b.WriteString(styles.MutedText.Render("No exercises. Press a to add one."))
	}
	for i, l := range s.ExerciseLogs {
		b.WriteString("\n")
		name := m.exerciseName(l.ExerciseID)
		if l.Pending() {
			name += " …"
		}
		if i == m.logCursor {
			b.WriteString(styles.Selected.Render("▸ " + name))
		} else {
			b.WriteString(styles.Text.Render("  " + name))
		}
		for _, p := range l.ExercisePerformances {
			b.WriteString("\n")
			b.WriteString(styles.MutedText.Render("    " + formatSet(p)))
		}
	}
	return b.String()
}

// renderHeatmap draws one column per week and one row per weekday, oldest
// week on the left.
func (m Model) renderHeatmap() string {
	if len(m.heat) == 0 || m.proj.Habit == nil {
		return ""
	}
	weeks := len(m.heat) / 7
	rows := make([]string, 7)
	for day := 0; day < 7; day++ {
		var b strings.Builder
		for w := 0; w < weeks; w++ {
			cell := m.heat[w*7+day]
			glyph := "■"
			if cell.Date == m.proj.Selection.Day {
				glyph = "●"
			}
			b.WriteString(lipgloss.NewStyle().
				Foreground(lipgloss.Color(m.theme.HeatColor(*m.proj.Habit, cell))).
				Render(glyph))
			b.WriteString(" ")
		}
		rows[day] = b.String()
	}
	return strings.Join(rows, "\n")
}

func (m Model) renderPrompt(styles Styles) string {
	var b strings.Builder
	switch m.mode {
	case modeAddExercise:
		b.WriteString(styles.AccentText.Render("Add exercise: "))
	case modeEditSet:
		b.WriteString(styles.AccentText.Render(fmt.Sprintf("Set %d: ", m.editing.Number)))
	}
	b.WriteString(m.input.View())

	if m.mode == modeAddExercise {
		const shown = 6
		start := max(0, min(m.matchIdx-shown/2, len(m.matches)-shown))
		for i := start; i < len(m.matches) && i < start+shown; i++ {
			b.WriteString("\n")
			if i == m.matchIdx {
				b.WriteString(styles.Selected.Render("▸ " + m.matches[i].Name))
				continue
			}
			b.WriteString(styles.Text.Render("  " + m.matches[i].Name))
		}
		if len(m.matches) == 0 {
			b.WriteString("\n")
			b.WriteString(styles.MutedText.Render("  no matches"))
		}
	}
	return styles.Pane.Width(max(m.width-4, 20)).Render(b.String())
}

func (m Model) renderActivity(styles Styles) string {
	height := max(m.height/4, 3)
	entries := m.activity
	if len(entries) > height {
		entries = entries[len(entries)-height:]
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		style := styles.MutedText
		switch strings.ToLower(e.Level) {
		case "warn":
			style = styles.WarningText
		case "error", "fatal":
			style = styles.DangerText
		}
		lines = append(lines, style.Render(truncate(e.String(), max(m.width-6, 20))))
	}
	if len(lines) == 0 {
		lines = append(lines, styles.FaintText.Render("no activity yet"))
	}
	return styles.Pane.Width(max(m.width-4, 20)).Render(strings.Join(lines, "\n"))
}

func habitLabel(h tracker.Habit) string {
	if h.Icon != "" {
		return h.Icon + " " + h.Name
	}
	return h.Name
}

func formatRating(dl *tracker.DayLog) string {
	if dl == nil || dl.Rating == nil {
		return "–"
	}
	return strconv.Itoa(*dl.Rating)
}

// formatSet renders a set as "#2 8 × 60kg".
func formatSet(p tracker.ExercisePerformance) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("#%d", p.Number))
	switch {
	case p.Reps != nil && p.Weight != nil:
		parts = append(parts, fmt.Sprintf("%d × %skg", *p.Reps, formatFloat(*p.Weight)))
	case p.Reps != nil:
		parts = append(parts, fmt.Sprintf("%d reps", *p.Reps))
	case p.Weight != nil:
		parts = append(parts, formatFloat(*p.Weight)+"kg")
	}
	if p.Duration != nil {
		parts = append(parts, formatFloat(*p.Duration)+"s")
	}
	if p.Distance != nil {
		parts = append(parts, formatFloat(*p.Distance)+"m")
	}
	if len(parts) == 1 {
		parts = append(parts, "empty")
	}
	if p.Pending() {
		parts = append(parts, "…")
	}
	return strings.Join(parts, " ")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func truncate(s string, width int) string {
	if width <= 0 || lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+1 > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}
