package cli

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/singlecellvr/scvrprep/pkg/dataset"
	errs "github.com/singlecellvr/scvrprep/pkg/errors"
)

// List styles
var (
	listHeaderStyle = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	listDimStyle    = lipgloss.NewStyle().Foreground(colorDim)
)

// LabelChoice is one categorical column offered for coloring cells.
type LabelChoice struct {
	Column string
	Values int      // distinct values
	Sample []string // first few distinct values, sorted
}

const sampleSize = 3

// labelChoices lists the handle's label columns with their distinct values.
func labelChoices(h *dataset.Handle) []LabelChoice {
	cols := h.LabelColumns()
	out := make([]LabelChoice, 0, len(cols))
	for _, col := range cols {
		distinct := slices.Compact(slices.Sorted(slices.Values(h.Obs[col])))
		sample := distinct
		if len(sample) > sampleSize {
			sample = sample[:sampleSize]
		}
		out = append(out, LabelChoice{Column: col, Values: len(distinct), Sample: sample})
	}
	return out
}

// =============================================================================
// LabelListModel - Interactive label column selection
// =============================================================================

// LabelListModel is the bubbletea model for choosing the label column.
type LabelListModel struct {
	Choices  []LabelChoice
	Cursor   int
	Selected *LabelChoice
	Height   int
	Offset   int
}

// NewLabelListModel creates a new label list model.
func NewLabelListModel(choices []LabelChoice) LabelListModel {
	return LabelListModel{Choices: choices, Height: 15}
}

func (m LabelListModel) Init() tea.Cmd {
	return nil
}

func (m LabelListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
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
			if m.Cursor < len(m.Choices)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			if len(m.Choices) == 0 {
				return m, tea.Quit
			}
			choice := m.Choices[m.Cursor]
			m.Selected = &choice
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-6, 5)
	}
	return m, nil
}

func (m LabelListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Cell Label"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q skip"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Choices))
	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		c := m.Choices[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		sample := strings.Join(c.Sample, ", ")
		if c.Values > len(c.Sample) {
			sample += ", …"
		}
		rows = append(rows, []string{cursor, c.Column, strconv.Itoa(c.Values), sample})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Column", "Values", "Examples").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return listHeaderStyle
			}
			if m.Offset+row == m.Cursor {
				return lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
			}
			if col == 3 {
				return listDimStyle
			}
			return lipgloss.NewStyle()
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Choices))))

	return b.String()
}

// pickLabel asks the user for a label column. It returns "" when the user
// quits without choosing.
func pickLabel(ctx context.Context, h *dataset.Handle) (string, error) {
	choices := labelChoices(h)
	if len(choices) == 0 {
		return "", errs.New(errs.ErrCodeUnresolvedLabel, "dataset has no categorical columns to label cells by")
	}
	final, err := tea.NewProgram(NewLabelListModel(choices), tea.WithContext(ctx)).Run()
	if err != nil {
		return "", fmt.Errorf("label picker: %w", err)
	}
	if m, ok := final.(LabelListModel); ok && m.Selected != nil {
		return m.Selected.Column, nil
	}
	return "", nil
}
