package tailview

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/taperlog/taper"
)

// maxEntries bounds viewer memory; older records fall off the front.
const maxEntries = 2000

// seedEntries is how much history the viewer loads before following.
const seedEntries = 500

type entryMsg struct{ entry taper.Entry }

type watchErrMsg struct{ err error }

type keymap struct {
	Quit   key.Binding
	Follow key.Binding
	Filter key.Binding
	Level  key.Binding
	Top    key.Binding
	Bottom key.Binding
	Apply  key.Binding
	Cancel key.Binding
}

func newKeymap() keymap {
	return keymap{
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Follow: key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "follow")),
		Filter: key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
		Level:  key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "level")),
		Top:    key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "top")),
		Bottom: key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "bottom")),
		Apply:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "apply")),
		Cancel: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}

// Model is the full-screen log viewer.
type Model struct {
	dir    string
	prefix string

	entries []taper.Entry
	level   *taper.Level

	viewport  viewport.Model
	input     textinput.Model
	keys      keymap
	renderer  *taper.ConsoleRenderer
	filtering bool
	follow    bool
	ready     bool
	width     int
	err       error
}

func newModel(dir, prefix string, level *taper.Level) Model {
	input := textinput.New()
	input.Placeholder = "message contains..."
	input.Prompt = promptStyle.Render("/ ")
	input.CharLimit = 120

	return Model{
		dir:      dir,
		prefix:   prefix,
		level:    level,
		input:    input,
		keys:     newKeymap(),
		renderer: newRenderer(),
		follow:   true,
	}
}

func newRenderer() *taper.ConsoleRenderer {
	return taper.NewConsoleRenderer(taper.ConsoleConfig{
		Enabled:    true,
		Colors:     true,
		Timestamps: true,
		Level:      taper.LevelTrace,
	}, os.Stdout)
}

// Run opens the viewer and follows the active file until the user quits.
func Run(dir, prefix string, level *taper.Level) error {
	m := newModel(dir, prefix, level)
	m.seed()

	p := tea.NewProgram(m, tea.WithAltScreen())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		err := Watch(ctx, dir, prefix, func(line []byte) {
			var e taper.Entry
			if json.Unmarshal(line, &e) != nil {
				return
			}
			p.Send(entryMsg{entry: e})
		})
		if err != nil && ctx.Err() == nil {
			p.Send(watchErrMsg{err: err})
		}
	}()

	_, err := p.Run()
	return err
}

// seed preloads recent history so the screen is not empty while waiting for
// fresh records.
func (m *Model) seed() {
	entries, err := taper.ReadDir(m.dir, m.prefix)
	if err != nil {
		return
	}
	if len(entries) > seedEntries {
		entries = entries[len(entries)-seedEntries:]
	}
	m.entries = entries
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		headerHeight, footerHeight := 1, 2
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-headerHeight-footerHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - headerHeight - footerHeight
		}
		m.refresh()
		return m, nil

	case entryMsg:
		m.entries = append(m.entries, msg.entry)
		if len(m.entries) > maxEntries {
			m.entries = m.entries[len(m.entries)-maxEntries:]
		}
		m.refresh()
		return m, nil

	case watchErrMsg:
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		if m.filtering {
			switch {
			case key.Matches(msg, m.keys.Apply):
				m.filtering = false
				m.input.Blur()
			case key.Matches(msg, m.keys.Cancel):
				m.filtering = false
				m.input.SetValue("")
				m.input.Blur()
				m.refresh()
			default:
				var cmd tea.Cmd
				m.input, cmd = m.input.Update(msg)
				cmds = append(cmds, cmd)
				m.refresh()
			}
			return m, tea.Batch(cmds...)
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Filter):
			m.filtering = true
			cmds = append(cmds, m.input.Focus())
			return m, tea.Batch(cmds...)
		case key.Matches(msg, m.keys.Follow):
			m.follow = !m.follow
			if m.follow {
				m.viewport.GotoBottom()
			}
			return m, nil
		case key.Matches(msg, m.keys.Level):
			m.cycleLevel()
			m.refresh()
			return m, nil
		case key.Matches(msg, m.keys.Top):
			m.follow = false
			m.viewport.GotoTop()
			return m, nil
		case key.Matches(msg, m.keys.Bottom):
			m.viewport.GotoBottom()
			return m, nil
		}
	}

	// Scrolling detaches from follow so new records stop yanking the view.
	if _, ok := msg.(tea.KeyMsg); ok {
		m.follow = false
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// cycleLevel narrows the severity gate one step per press and wraps back to
// showing everything.
func (m *Model) cycleLevel() {
	switch {
	case m.level == nil:
		l := taper.LevelDebug
		m.level = &l
	case *m.level == taper.LevelError:
		m.level = nil
	default:
		l := *m.level - 1
		m.level = &l
	}
}

func (m *Model) refresh() {
	if !m.ready {
		return
	}
	filter := taper.Filter{Level: m.level, Contains: m.input.Value()}
	var b strings.Builder
	for _, e := range m.entries {
		if !filter.Match(e) {
			continue
		}
		line := m.renderer.Render(e.Record())
		if m.width > 0 {
			line = ansi.Truncate(line, m.width, "…")
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	m.viewport.SetContent(b.String())
	if m.follow {
		m.viewport.GotoBottom()
	}
}

func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}

	badges := []string{titleStyle.Render("taper"), pathStyle.Render(m.dir + "/" + m.prefix + "-*.log")}
	if m.level != nil {
		badges = append(badges, badgeStyle.Render(m.level.String()+"+"))
	}
	if m.follow {
		badges = append(badges, badgeStyle.Render("follow"))
	} else {
		badges = append(badges, pausedStyle.Render("paused"))
	}
	header := strings.Join(badges, " ")

	var footer string
	switch {
	case m.filtering:
		footer = m.input.View()
	case m.err != nil:
		footer = errStyle.Render(fmt.Sprintf("watch error: %v", m.err))
	default:
		footer = helpStyle.Render("q quit · f follow · / filter · l level · g/G top/bottom")
	}
	if v := m.input.Value(); v != "" && !m.filtering {
		footer += "  " + helpStyle.Render("filter: "+v)
	}

	return header + "\n" + m.viewport.View() + "\n" + footer
}
