package cli

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/chris-a-talbot/sparg-viz/pkg/arg"
)

// List styles
var (
	listDimStyle    = lipgloss.NewStyle().Foreground(colorDim)
	listRecombStyle = lipgloss.NewStyle().Foreground(colorOrange)
)

// =============================================================================
// Tree rows
// =============================================================================

// treeRow summarises one local tree.
type treeRow struct {
	Index    int
	Left     float64
	Right    float64
	Roots    []int
	RootTime float64
	Edges    [][2]int
	// Recombinant counts the recombination nodes the tree passes through.
	Recombinant int

	recomb map[int]bool
}

// treeRows summarises every local tree of g.
func treeRows(g *arg.Graph) []treeRow {
	trees := g.Trees()
	rows := make([]treeRow, len(trees))
	for i, t := range trees {
		row := treeRow{Index: t.Index, Left: t.Left, Right: t.Right, Roots: t.Roots(), Edges: t.Edges(), recomb: map[int]bool{}}
		for _, r := range row.Roots {
			row.RootTime = max(row.RootTime, g.Nodes[r].Time)
		}
		for _, e := range row.Edges {
			if g.Nodes[e[1]].Role == arg.RoleRecombination {
				row.recomb[e[1]] = true
			}
		}
		row.Recombinant = len(row.recomb)
		rows[i] = row
	}
	return rows
}

func (r treeRow) cells() []string {
	roots := make([]string, len(r.Roots))
	for i, id := range r.Roots {
		roots[i] = strconv.Itoa(id)
	}
	return []string{
		strconv.Itoa(r.Index),
		fmt.Sprintf("[%g, %g)", r.Left, r.Right),
		strconv.FormatFloat(r.Right-r.Left, 'g', 6, 64),
		strings.Join(roots, ","),
		strconv.FormatFloat(r.RootTime, 'g', 6, 64),
		strconv.Itoa(len(r.Edges)),
		strconv.Itoa(r.Recombinant),
	}
}

var treeHeaders = []string{"Tree", "Interval", "Span", "Roots", "Root time", "Edges", "Recomb"}

// treeTable renders rows as a bordered table. cursor highlights one row;
// -1 highlights none.
func treeTable(rows []treeRow, cursor int) string {
	cells := make([][]string, len(rows))
	for i, r := range rows {
		cells[i] = r.cells()
	}
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(treeHeaders...).
		Rows(cells...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			base := lipgloss.NewStyle().Padding(0, 1)
			if row == cursor {
				return base.Foreground(colorCyan).Bold(true)
			}
			if col == 6 && rows[row].Recombinant > 0 {
				return base.Foreground(colorOrange)
			}
			return base.Foreground(colorWhite)
		}).
		Render()
}

// =============================================================================
// TreeListModel - Interactive local tree browser
// =============================================================================

// TreeListModel is the bubbletea model for browsing the local trees of an
// ARG. Enter toggles the edge list of the selected tree.
type TreeListModel struct {
	Title    string
	Rows     []treeRow
	Cursor   int
	Height   int
	Offset   int
	Expanded bool
}

// NewTreeListModel creates a browser over the local trees of g.
func NewTreeListModel(title string, g *arg.Graph) TreeListModel {
	return TreeListModel{
		Title:  title,
		Rows:   treeRows(g),
		Height: 15,
	}
}

func (m TreeListModel) Init() tea.Cmd {
	return nil
}

func (m TreeListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Rows)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter", " ":
			m.Expanded = !m.Expanded
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-8, 5)
		if m.Cursor >= m.Offset+m.Height {
			m.Offset = m.Cursor - m.Height + 1
		}
	}
	return m, nil
}

// maxEdgeLines caps the expanded edge list.
const maxEdgeLines = 12

func (m TreeListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(m.Title))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ edges  q quit"))
	b.WriteString("\n\n")

	if len(m.Rows) == 0 {
		b.WriteString(listDimStyle.Render("no local trees"))
		return b.String()
	}

	end := min(m.Offset+m.Height, len(m.Rows))
	b.WriteString(treeTable(m.Rows[m.Offset:end], m.Cursor-m.Offset))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Rows))))

	if m.Expanded {
		b.WriteString("\n\n")
		b.WriteString(edgeList(m.Rows[m.Cursor]))
	}
	return b.String()
}

func edgeList(r treeRow) string {
	var b strings.Builder
	for i, e := range r.Edges {
		if i == maxEdgeLines {
			b.WriteString(listDimStyle.Render(fmt.Sprintf("  … %d more", len(r.Edges)-maxEdgeLines)))
			b.WriteString("\n")
			break
		}
		line := fmt.Sprintf("  %d %s %d", e[0], iconArrow, e[1])
		if r.recomb[e[1]] {
			line = listRecombStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}
