// Package admin is a terminal dashboard over the invocation audit log and
// the task store, for watching a running tool server.
package admin

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/xiy/toolbelt-mcp/internal/store"
	"github.com/xiy/toolbelt-mcp/internal/tasks"
)

type tickMsg time.Time
type dashboardMsg struct {
	stats       store.Stats
	invocations []store.Invocation
	taskRows    []tasks.Task
	err         error
	duration    time.Duration
}

type auditReader interface {
	Stats(ctx context.Context) (store.Stats, error)
	Recent(ctx context.Context, limit int) ([]store.Invocation, error)
}

type taskLister interface {
	List(filter string) ([]tasks.Task, error)
}

type model struct {
	ctx         context.Context
	audit       auditReader
	taskStore   taskLister
	stats       store.Stats
	invocations []store.Invocation
	taskRows    []tasks.Task
	lastErr     error
	lastTick    time.Time
	logLines    []string
	maxLogs     int
	rowLimit    int
	width       int
	height      int
}

// Run starts a lightweight local admin dashboard.
func Run(ctx context.Context, audit auditReader, taskStore taskLister) error {
	m := model{
		ctx:       ctx,
		audit:     audit,
		taskStore: taskStore,
		maxLogs:   10,
		rowLimit:  8,
	}
	m = m.appendLog("admin UI started")
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m model) Init() tea.Cmd {
	return tea.Batch(fetchDashboardCmd(m.ctx, m.audit, m.taskStore, m.rowLimit), tickCmd())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m = m.appendLog("received quit signal")
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		m.lastTick = time.Time(msg)
		return m, tea.Batch(fetchDashboardCmd(m.ctx, m.audit, m.taskStore, m.rowLimit), tickCmd())
	case dashboardMsg:
		m.lastErr = msg.err
		if msg.err == nil {
			m.stats = msg.stats
			m.invocations = msg.invocations
			m.taskRows = msg.taskRows
			m = m.appendLog(fmt.Sprintf(
				"refresh ok total=%d failed=%d http=%d stdio=%d tasks=%d (%s)",
				msg.stats.Total,
				msg.stats.Failed,
				msg.stats.HTTP,
				msg.stats.Stdio,
				len(msg.taskRows),
				formatDuration(msg.duration),
			))
		} else {
			m = m.appendLog(fmt.Sprintf("refresh error: %v", msg.err))
		}
	}
	return m, nil
}

func (m model) View() string {
	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).Render("toolbelt-mcp admin")
	meta := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("q to quit • refresh every 2s")

	statsBody := m.renderStats()
	logBody := "(no log events yet)"
	if len(m.logLines) > 0 {
		logBody = strings.Join(m.logLines, "\n")
	}

	paneWidth := 54
	if m.width > 0 {
		paneWidth = max(38, (m.width-3)/2)
	}
	paneHeight := 9
	if m.height > 0 {
		paneHeight = max(8, (m.height-8)/2)
	}

	topRow := joinColumns(
		renderPane("Stats", statsBody, paneWidth, paneHeight),
		renderPane("General Logs", logBody, paneWidth, paneHeight),
	)
	bottomRow := joinColumns(
		renderPane("Recent Invocations", formatInvocationPane(m.invocations), paneWidth, paneHeight),
		renderPane("Recent Tasks", formatTaskPane(m.taskRows), paneWidth, paneHeight),
	)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		title,
		meta,
		"",
		topRow,
		bottomRow,
	)
}

func (m model) renderStats() string {
	topTool := m.stats.TopTool
	if topTool == "" {
		topTool = "-"
	}
	body := fmt.Sprintf(
		"Total calls:    %d\nFailed:         %d\nHTTP surface:   %d\nStdio surface:  %d\nTop tool:       %s (%d)\nLast refresh:   %s",
		m.stats.Total,
		m.stats.Failed,
		m.stats.HTTP,
		m.stats.Stdio,
		topTool,
		m.stats.TopCalls,
		formatTime(m.lastTick),
	)
	if m.lastErr != nil {
		body += "\n\nLast error: " + truncateText(compactWhitespace(m.lastErr.Error()), 120)
	}
	return body
}

func fetchDashboardCmd(ctx context.Context, audit auditReader, taskStore taskLister, limit int) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		s, err := audit.Stats(ctx)
		if err != nil {
			return dashboardMsg{err: err, duration: time.Since(start)}
		}

		invocations, err := audit.Recent(ctx, limit)
		if err != nil {
			return dashboardMsg{stats: s, err: err, duration: time.Since(start)}
		}

		taskRows, err := taskStore.List("all")
		if err != nil {
			return dashboardMsg{stats: s, invocations: invocations, err: err, duration: time.Since(start)}
		}
		// Newest tasks carry the highest ids; show the tail.
		if len(taskRows) > limit {
			taskRows = taskRows[len(taskRows)-limit:]
		}

		return dashboardMsg{
			stats:       s,
			invocations: invocations,
			taskRows:    taskRows,
			duration:    time.Since(start),
		}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.RFC3339)
}

func (m model) appendLog(line string) model {
	if strings.TrimSpace(line) == "" {
		return m
	}
	entry := fmt.Sprintf("[%s] %s", time.Now().UTC().Format("15:04:05"), line)
	m.logLines = append(m.logLines, entry)
	if m.maxLogs <= 0 {
		m.maxLogs = 10
	}
	if len(m.logLines) > m.maxLogs {
		m.logLines = m.logLines[len(m.logLines)-m.maxLogs:]
	}
	return m
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return d.String()
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Round(10 * time.Millisecond).String()
}

func renderPane(title, body string, width, height int) string {
	style := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(1, 2)
	if width > 0 {
		style = style.Width(width)
	}
	if height > 0 {
		style = style.Height(height)
	}
	return style.Render(title + "\n\n" + body)
}

func joinColumns(left, right string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right)
}

func formatInvocationPane(rows []store.Invocation) string {
	if len(rows) == 0 {
		return "(no tool calls yet)"
	}
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		name := strings.TrimSpace(row.Surface) + ":" + strings.TrimSpace(row.ToolName)
		status := "ok"
		if !row.Success {
			status = "err"
		}
		line := fmt.Sprintf(
			"[%s] %-3s %-24s %4dms",
			formatClock(row.CreatedAt),
			status,
			truncateText(name, 24),
			max(0, row.DurationMS),
		)
		if !row.Success && strings.TrimSpace(row.ErrorText) != "" {
			line += " " + truncateText(compactWhitespace(row.ErrorText), 52)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func formatTaskPane(rows []tasks.Task) string {
	if len(rows) == 0 {
		return "(no tasks yet)"
	}
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		state := " "
		if row.Completed {
			state = "x"
		}
		line := fmt.Sprintf(
			"#%-4d [%s] %-6s %s",
			row.ID,
			state,
			row.Priority,
			truncateText(compactWhitespace(row.Title), 48),
		)
		if row.DueDate != nil && *row.DueDate != "" {
			line += " due " + *row.DueDate
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func formatClock(t time.Time) string {
	if t.IsZero() {
		return "--:--:--"
	}
	return t.UTC().Format("15:04:05")
}

func truncateText(s string, limit int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	if limit <= 3 {
		return string(r[:limit])
	}
	return string(r[:limit-3]) + "..."
}

func compactWhitespace(s string) string {
	return strings.Join(strings.Fields(strings.TrimSpace(s)), " ")
}
