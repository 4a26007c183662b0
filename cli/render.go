package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"

	"projectboard/domain"
)

// styles renders status labels for the output writer. Writers that are not
// terminals get plain text.
type styles struct {
	todo     lipgloss.Style
	progress lipgloss.Style
	done     lipgloss.Style
	heading  lipgloss.Style
	faint    lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		todo:     r.NewStyle().Foreground(lipgloss.Color("245")),
		progress: r.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
		done:     r.NewStyle().Foreground(lipgloss.Color("42")),
		heading:  r.NewStyle().Bold(true),
		faint:    r.NewStyle().Faint(true),
	}
}

func (s styles) status(st domain.TaskStatus) string {
	switch st {
	case domain.StatusTodo:
		return s.todo.Render(st.Label())
	case domain.StatusInProgress:
		return s.progress.Render(st.Label())
	case domain.StatusDone:
		return s.done.Render(st.Label())
	}
	return st.Label()
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func (a *App) printProjects(projects []domain.Project) {
	if len(projects) == 0 {
		fmt.Fprintln(a.Out, a.styles.faint.Render("No projects yet. Create one with 'projectboard projects create'."))
		return
	}
	tw := newTable(a.Out)
	fmt.Fprintln(tw, "ID\tNAME\tDESCRIPTION")
	for _, p := range projects {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.ID, p.Name, p.Description)
	}
	tw.Flush()
}

// printTasks keeps the styled status in the last column so escape codes do
// not skew the alignment.
func (a *App) printTasks(tasks []domain.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(a.Out, a.styles.faint.Render("No tasks yet. Add one with 'projectboard tasks add'."))
		return
	}
	tw := newTable(a.Out)
	fmt.Fprintln(tw, "ID\tTITLE\tDESCRIPTION\tSTATUS")
	for _, t := range tasks {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.ID, t.Title, t.Description, a.styles.status(t.Status))
	}
	tw.Flush()
}

func (a *App) printTask(t domain.Task) {
	fmt.Fprintf(a.Out, "%s  %s  [%s]\n", t.ID, t.Title, a.styles.status(t.Status))
}
