package main

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/programme-lv/scoreboard/scoreboard"
)

type fetchFunc func(ctx context.Context) ([]scoreboard.Entry, error)

type refreshMsg struct {
	entries []scoreboard.Entry
	err     error
	at      time.Time
}

type tickMsg time.Time

// watchModel keeps a live ranking on screen, refetching every interval.
type watchModel struct {
	title    string
	problems []string
	fetch    fetchFunc
	interval time.Duration

	table   table.Model
	updated time.Time
	err     error
}

func newWatchModel(title string, problems []string, fetch fetchFunc, interval time.Duration) watchModel {
	headers := rankingHeaders(problems)
	columns := make([]table.Column, len(headers))
	for i, h := range headers {
		width := 8
		switch h {
		case "#":
			width = 4
		case "username", "name":
			width = 16
		case "total":
			width = 12
		}
		columns[i] = table.Column{Title: h, Width: width}
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(20),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.Bold(true).Foreground(lipgloss.Color("#3498db"))
	t.SetStyles(styles)

	return watchModel{
		title:    title,
		problems: problems,
		fetch:    fetch,
		interval: interval,
		table:    t,
	}
}

func (m watchModel) refresh() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), m.interval)
	defer cancel()
	entries, err := m.fetch(ctx)
	return refreshMsg{entries: entries, err: err, at: time.Now()}
}

func (m watchModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m watchModel) Init() tea.Cmd {
	return m.refresh
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			return m, m.refresh
		}
	case refreshMsg:
		m.err = msg.err
		if msg.err == nil {
			rows := rankingRows(msg.entries, m.problems)
			tableRows := make([]table.Row, len(rows))
			for i, r := range rows {
				tableRows[i] = table.Row(r)
			}
			m.table.SetRows(tableRows)
			m.updated = msg.at
		}
		return m, m.tick()
	case tickMsg:
		return m, m.refresh
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m watchModel) View() string {
	status := fmt.Sprintf("updated %s", m.updated.Format(time.TimeOnly))
	if m.updated.IsZero() {
		status = "loading..."
	}
	if m.err != nil {
		status = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff0000")).Render(m.err.Error())
	}
	return fmt.Sprintf("%s\n\n%s\n\n%s | r refresh | q quit\n",
		headerStyle.Render(m.title), m.table.View(), status)
}
