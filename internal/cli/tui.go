package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/deputy/pkg/versioning"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// VersionPickerModel - Interactive version selection
// =============================================================================

// VersionPickerModel is the bubbletea model for interactive version selection.
type VersionPickerModel struct {
	Name     string
	Versions []versioning.CompletionVersion[versioning.Versioned]
	Cursor   int
	Selected *versioning.CompletionVersion[versioning.Versioned]
	Height   int
	Offset   int
}

// NewVersionPickerModel creates a picker over ranked completions.
func NewVersionPickerModel(name string, versions []versioning.CompletionVersion[versioning.Versioned]) VersionPickerModel {
	return VersionPickerModel{
		Name:     name,
		Versions: versions,
		Height:   15,
	}
}

func (m VersionPickerModel) Init() tea.Cmd {
	return nil
}

func (m VersionPickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
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
			if m.Cursor < len(m.Versions)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			if len(m.Versions) == 0 {
				return m, tea.Quit
			}
			selected := m.Versions[m.Cursor]
			m.Selected = &selected
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 6
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m VersionPickerModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Version of " + m.Name))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Versions))

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		v := m.Versions[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		rows = append(rows, []string{cursor, v.ItemVersionRaw, versionKind(v)})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Version", "Kind").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if m.Offset+row == m.Cursor {
				return listSelectedStyle
			}
			if col == 2 {
				return listDimStyle
			}
			return lipgloss.NewStyle()
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Versions))))

	return b.String()
}

// versionKind labels a completion as a release, a prerelease or unparsed.
func versionKind(v versioning.CompletionVersion[versioning.Versioned]) string {
	switch {
	case v.ItemVersion == nil:
		return "—"
	case v.ItemVersion.IsPrerelease():
		return "prerelease"
	default:
		return "release"
	}
}
