// Package browse is an interactive viewer for jump-table scan
// results: a filterable slot list with a per-slot detail view.
package browse

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/v2/list"
	"github.com/charmbracelet/bubbles/v2/spinner"
	"github.com/charmbracelet/bubbles/v2/viewport"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"

	"armlens/internal/jumptable"
)

// ScanFunc produces the summary the browser displays.
type ScanFunc func(context.Context) (jumptable.ScanSummary, error)

type scanDoneMsg struct {
	summary jumptable.ScanSummary
	err     error
}

type slotItem struct {
	res jumptable.SlotResult
}

func (i slotItem) Title() string {
	return fmt.Sprintf("%3d  0x%08X  %s", i.res.Slot, i.res.SlotAddr, i.res.Outcome.Kind.Code())
}

func (i slotItem) FilterValue() string {
	return fmt.Sprintf("%d 0x%08X %s %s", i.res.Slot, i.res.SlotAddr, i.res.Outcome.Kind.Code(), i.res.Outcome.Symbol)
}

type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d itemDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(slotItem)
	if !ok {
		return
	}

	indicator := " "
	addrStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	if index == m.Index() {
		indicator = ">"
		addrStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))
	}

	kindStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	if i.res.Valid() {
		kindStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	}

	name := i.res.Outcome.Symbol
	if name == "" && i.res.Valid() {
		name = "(unnamed)"
	}

	fmt.Fprintf(w, " %s  %s  %s %s",
		indicator,
		addrStyle.Render(fmt.Sprintf("%3d 0x%08X", i.res.Slot, i.res.SlotAddr)),
		kindStyle.Render(fmt.Sprintf("%-21s", i.res.Outcome.Kind.Code())),
		name)
}

// Model is the browse TUI state.
type Model struct {
	slotList   list.Model
	detail     viewport.Model
	spin       spinner.Model
	scan       ScanFunc
	ctx        context.Context
	summary    *jumptable.ScanSummary
	err        error
	loading    bool
	showDetail bool
	width      int
	height     int
}

// New builds a browser that runs scan once on startup.
func New(ctx context.Context, scan ScanFunc) Model {
	vp := viewport.New()
	vp.SetWidth(80)
	vp.SetHeight(24)

	slotList := list.New([]list.Item{}, itemDelegate{}, 80, 24)
	slotList.SetShowStatusBar(false)
	slotList.SetFilteringEnabled(true)
	slotList.Title = "Jump table slots"
	slotList.Styles.Title = lipgloss.NewStyle().
		Foreground(lipgloss.Color("99")).
		MarginLeft(2)
	slotList.SetShowHelp(true)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))

	return Model{
		slotList: slotList,
		detail:   vp,
		spin:     s,
		scan:     scan,
		ctx:      ctx,
		loading:  true,
		width:    80,
		height:   24,
	}
}

func (m Model) runScanCmd() tea.Cmd {
	return func() tea.Msg {
		sum, err := m.scan(m.ctx)
		return scanDoneMsg{summary: sum, err: err}
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.runScanCmd(), m.spin.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case scanDoneMsg:
		m.loading = false
		m.err = msg.err
		m.summary = &msg.summary
		items := make([]list.Item, 0, len(msg.summary.Items))
		for _, res := range msg.summary.Items {
			items = append(items, slotItem{res: res})
		}
		m.slotList.SetItems(items)
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.slotList.SetWidth(msg.Width)
		m.slotList.SetHeight(msg.Height - 2)
		m.detail.SetWidth(msg.Width)
		m.detail.SetHeight(msg.Height - 2)

	case tea.KeyMsg:
		if m.slotList.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "enter":
			if !m.showDetail && m.summary != nil {
				if it, ok := m.slotList.SelectedItem().(slotItem); ok {
					m.detail.SetContent(renderDetail(it.res))
					m.showDetail = true
				}
				return m, nil
			}
		case "esc":
			if m.showDetail {
				m.showDetail = false
				return m, nil
			}
		}
	}

	if m.loading {
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
	if m.showDetail {
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd
	}
	m.slotList, cmd = m.slotList.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.loading {
		return fmt.Sprintf("\n  %s scanning slots...\n", m.spin.View())
	}
	if m.err != nil {
		return fmt.Sprintf("\n  scan failed: %v\n\n  press q to quit\n", m.err)
	}
	if m.showDetail {
		return m.detail.View() + "\n esc: back  q: quit"
	}
	header := ""
	if m.summary != nil {
		header = fmt.Sprintf("  total %d  valid %d  invalid %d\n",
			m.summary.Total, m.summary.Valid, m.summary.Invalid)
	}
	return header + m.slotList.View()
}

func renderDetail(res jumptable.SlotResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Slot %d\n\n", res.Slot)
	fmt.Fprintf(&b, "  slot address  0x%08X\n", res.SlotAddr)
	fmt.Fprintf(&b, "  raw word      0x%08X\n", res.Raw)
	fmt.Fprintf(&b, "  outcome       %s\n", res.Outcome.Kind.Code())
	if res.Valid() {
		fmt.Fprintf(&b, "  mode          %s\n", res.Outcome.Mode)
		fmt.Fprintf(&b, "  target        0x%08X\n", res.Outcome.Target)
		if res.Outcome.Symbol != "" {
			fmt.Fprintf(&b, "  symbol        %s\n", res.Outcome.Symbol)
		}
	}
	for _, e := range res.Errors {
		fmt.Fprintf(&b, "  error         %s\n", e)
	}
	for _, n := range res.Notes {
		fmt.Fprintf(&b, "  note          %s\n", n)
	}
	return b.String()
}
