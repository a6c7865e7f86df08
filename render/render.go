// Package render draws a board as terminal columns.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"taskboard/board"
	"taskboard/domain"
)

const dueLayout = "2006-01-02"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	columnStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	cardTitle   = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	editingMark = lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Render("✎ ")

	headerStyles = map[domain.Status]lipgloss.Style{
		domain.StatusTodo:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69")),
		domain.StatusInProgress: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("226")),
		domain.StatusDone:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46")),
	}
)

// Options control the layout.
type Options struct {
	// ColumnWidth is the inner width of each column. Zero picks a default.
	ColumnWidth int
	// Members resolves assignee IDs to names.
	Members []domain.Member
}

// Board renders the board title followed by one column per status.
func Board(b domain.Board, g board.Grouped, opts Options) string {
	width := opts.ColumnWidth
	if width <= 0 {
		width = 28
	}
	names := make(map[string]string, len(opts.Members))
	for _, m := range opts.Members {
		if m.Name != "" {
			names[m.ID] = m.Name
		} else if m.Email != "" {
			names[m.ID] = m.Email
		}
	}

	cols := make([]string, 0, len(domain.Statuses()))
	for _, s := range domain.Statuses() {
		cols = append(cols, column(s, g[s], width, names))
	}
	header := titleStyle.Render(b.DisplayName())
	if b.Description != "" {
		header += " " + mutedStyle.Render(b.Description)
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, lipgloss.JoinHorizontal(lipgloss.Top, cols...))
}

func column(s domain.Status, tasks []domain.Task, width int, names map[string]string) string {
	var sb strings.Builder
	sb.WriteString(headerStyles[s].Render(fmt.Sprintf("%s (%d)", s.Label(), len(tasks))))
	for _, t := range tasks {
		sb.WriteString("\n\n")
		sb.WriteString(card(t, names))
	}
	return columnStyle.Width(width).Render(sb.String())
}

// card is the text of one task: title, then description, due date, assignee
// and comment count when present.
func card(t domain.Task, names map[string]string) string {
	var lines []string
	title := cardTitle.Render(t.Title)
	if t.Editing {
		title = editingMark + title
	}
	lines = append(lines, title)
	if t.Description != "" {
		lines = append(lines, t.Description)
	}
	var meta []string
	if t.DueDate != nil {
		meta = append(meta, "due "+t.DueDate.Format(dueLayout))
	}
	if t.AssignedTo != "" {
		who := t.AssignedTo
		if n, ok := names[who]; ok {
			who = n
		}
		meta = append(meta, "@"+who)
	}
	if n := len(t.Comments); n > 0 {
		meta = append(meta, fmt.Sprintf("%d comment(s)", n))
	}
	if len(meta) > 0 {
		lines = append(lines, mutedStyle.Render(strings.Join(meta, " · ")))
	}
	return strings.Join(lines, "\n")
}

// Comments renders the comments of a task, oldest first.
func Comments(t domain.Task) string {
	if len(t.Comments) == 0 {
		return mutedStyle.Render("no comments")
	}
	var sb strings.Builder
	for i, c := range t.Comments {
		if i > 0 {
			sb.WriteString("\n")
		}
		author := c.AuthorName
		if author == "" {
			author = c.AuthorID
		}
		fmt.Fprintf(&sb, "%s %s: %s", mutedStyle.Render(c.CreatedAt.Format("2006-01-02 15:04")), cardTitle.Render(author), c.Text)
		if c.ID != "" {
			sb.WriteString(" " + mutedStyle.Render("["+c.ID+"]"))
		}
	}
	return sb.String()
}
