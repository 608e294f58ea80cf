package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/programme-lv/scoreboard/scoreboard"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3498db")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	totalStyle  = cellStyle.Foreground(lipgloss.Color("#e056fd"))
)

func formatPoints(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}

// rankingRows lays out one row per entry: place, username, name, one cell per
// problem and the total. Equal totals share a place.
func rankingRows(entries []scoreboard.Entry, problems []string) [][]string {
	rows := make([][]string, 0, len(entries))
	place := 0
	for i, e := range entries {
		if i == 0 || e.Total != entries[i-1].Total {
			place = i + 1
		}
		row := []string{strconv.Itoa(place), e.Username, e.Name}
		for _, alias := range problems {
			p := e.Problems[alias]
			row = append(row, formatPoints(p.Points))
		}
		row = append(row, fmt.Sprintf("%s (%s)", formatPoints(e.Total.Points), formatPoints(e.Total.Penalty)))
		rows = append(rows, row)
	}
	return rows
}

func rankingHeaders(problems []string) []string {
	headers := []string{"#", "username", "name"}
	headers = append(headers, problems...)
	return append(headers, "total")
}

func renderRanking(entries []scoreboard.Entry, problems []string) string {
	lastCol := len(problems) + 3
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(rankingHeaders(problems)...).
		Rows(rankingRows(entries, problems)...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == lastCol:
				return totalStyle
			}
			return cellStyle
		}).
		String()
}

func eventRows(events []scoreboard.Event) [][]string {
	rows := make([][]string, 0, len(events))
	for _, e := range events {
		rows = append(rows, []string{
			strconv.Itoa(e.Delta),
			e.Username,
			e.Problem.Alias,
			formatPoints(e.Problem.Points),
			formatPoints(e.Total.Points),
		})
	}
	return rows
}

func renderEvents(events []scoreboard.Event) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("delta", "username", "problem", "points", "total").
		Rows(eventRows(events)...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		String()
}
