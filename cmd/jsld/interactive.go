package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wasmlink/jsld"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	kindStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	originStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// reportRow is one line of the link report.
type reportRow struct {
	name   string
	kind   string
	detail string
}

type reportModel struct {
	moduleName   string
	symbols      []reportRow
	requirements []reportRow
	filter       textinput.Model
}

func newReportModel(result *jsld.Result) *reportModel {
	m := &reportModel{moduleName: result.ModuleName}
	for _, s := range result.Symbols {
		m.symbols = append(m.symbols, reportRow{
			name:   s.Name,
			kind:   s.Kind.String(),
			detail: s.Origin.String() + " (" + s.Where + ")",
		})
	}
	for _, r := range result.Requirements {
		detail := r.Variable
		if len(r.Imports) > 0 {
			var names []string
			for _, is := range r.Imports {
				names = append(names, is.Binding)
			}
			detail += " imports " + strings.Join(names, ", ")
		}
		m.requirements = append(m.requirements, reportRow{
			name:   r.Specifier,
			kind:   "requirement",
			detail: detail,
		})
	}

	filter := textinput.New()
	filter.Placeholder = "filter"
	filter.Focus()
	m.filter = filter
	return m
}

func runReport(result *jsld.Result) error {
	p := tea.NewProgram(newReportModel(result))
	_, err := p.Run()
	return err
}

func (m *reportModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *reportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	return m, cmd
}

func (m *reportModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("jsld link report: " + m.moduleName))
	b.WriteString("\n\n")
	b.WriteString(m.filter.View())
	b.WriteString("\n\n")

	needle := strings.ToLower(m.filter.Value())
	match := func(r reportRow) bool {
		return needle == "" ||
			strings.Contains(strings.ToLower(r.name), needle) ||
			strings.Contains(strings.ToLower(r.detail), needle)
	}

	b.WriteString(kindStyle.Render("Symbols"))
	b.WriteString("\n")
	count := 0
	for _, r := range m.symbols {
		if !match(r) {
			continue
		}
		count++
		fmt.Fprintf(&b, "  %s %s %s\n",
			nameStyle.Render(fmt.Sprintf("%-24s", r.name)),
			kindStyle.Render(fmt.Sprintf("%-9s", r.kind)),
			originStyle.Render(r.detail))
	}
	if count == 0 {
		b.WriteString(originStyle.Render("  (none)"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(kindStyle.Render("Requirements"))
	b.WriteString("\n")
	count = 0
	for _, r := range m.requirements {
		if !match(r) {
			continue
		}
		count++
		fmt.Fprintf(&b, "  %s %s\n",
			nameStyle.Render(fmt.Sprintf("%-24s", r.name)),
			originStyle.Render(r.detail))
	}
	if count == 0 {
		b.WriteString(originStyle.Render("  (none)"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("type to filter · esc to quit"))
	b.WriteString("\n")
	return b.String()
}
