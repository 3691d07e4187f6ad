package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	arpeggio "github.com/cbegin/arpeggio-go"
	"github.com/cbegin/arpeggio-go/internal/arp"
)

const recentEvents = 12

type tickMsg time.Time

type noteMsg arpeggio.HostEvent

type model struct {
	host    *arpeggio.Host
	events  <-chan arpeggio.HostEvent
	inName  string
	outName string
	status  arpeggio.Status
	recent  []arpeggio.HostEvent
	width   int
}

func newModel(host *arpeggio.Host, inName, outName string) model {
	if outName == "" {
		outName = "monitor"
	}
	return model{
		host:    host,
		events:  host.Watch(),
		inName:  inName,
		outName: outName,
		status:  host.Status(),
	}
}

func tick() tea.Cmd {
	return tea.Tick(50*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func listenForNotes(events <-chan arpeggio.HostEvent) tea.Cmd {
	return func() tea.Msg {
		return noteMsg(<-events)
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(tick(), listenForNotes(m.events))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
		key := msg.String()
		m.host.UpdateParams(func(p *arpeggio.Params) { applyKey(p, key) })
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tickMsg:
		m.status = m.host.Status()
		return m, tick()
	case noteMsg:
		m.recent = append(m.recent, arpeggio.HostEvent(msg))
		if len(m.recent) > recentEvents {
			m.recent = m.recent[len(m.recent)-recentEvents:]
		}
		return m, listenForNotes(m.events)
	}
	return m, nil
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	slotStyle   = lipgloss.NewStyle().Width(5).Align(lipgloss.Center)
	heldStyle   = slotStyle.Foreground(lipgloss.Color("0")).Background(lipgloss.Color("86"))
	emptyStyle  = slotStyle.Foreground(lipgloss.Color("238"))
	nextStyle   = slotStyle.Foreground(lipgloss.Color("0")).Background(lipgloss.Color("214"))
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func (m model) View() string {
	st := m.status
	p := m.host.Params()

	header := headerStyle.Render("arpeggio") + dimStyle.Render(fmt.Sprintf("  in: %s  out: %s", m.inName, m.outName))

	var slots []string
	for i, pitch := range st.Slots {
		switch {
		case pitch < 0:
			slots = append(slots, emptyStyle.Render("·"))
		case i == st.NextSlot:
			slots = append(slots, nextStyle.Render(noteName(pitch)))
		default:
			slots = append(slots, heldStyle.Render(noteName(pitch)))
		}
	}
	slotView := boxStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top, slots...))

	transport := "stopped"
	if st.Speed != 0 {
		transport = "playing"
	}
	clock := strings.Join([]string{
		line("bpm", fmt.Sprintf("%.1f", st.BPM)),
		line("step", fmt.Sprintf("%d / %d", st.Position, st.Period)),
		line("transport", fmt.Sprintf("%s  beat %.2f", transport, st.BarBeat)),
		line("sync", onOff(st.Synced)),
		line("held", fmt.Sprintf("%d active, %d sounding", st.Active, st.Sounding)),
		line("latch", fmt.Sprintf("%s (playing %s)", onOff(p.Latch), onOff(st.LatchPlaying))),
		line("dropped", fmt.Sprintf("in %d  out %d", st.DroppedIn, st.DroppedOut)),
	}, "\n")

	settings := strings.Join([]string{
		line("mode", arpModeName(p.ArpMode)),
		line("divisions", fmt.Sprintf("%g", p.Divisions)),
		line("length", fmt.Sprintf("%.0f%%", p.NoteLength*100)),
		line("octaves", fmt.Sprintf("%d %s (index %d)", p.OctaveSpread, octaveModeName(p.OctaveMode), st.OctaveIndex)),
		line("pattern", m.patternView(p, st.PatternStep)),
	}, "\n")

	panels := lipgloss.JoinHorizontal(lipgloss.Top, boxStyle.Render(clock), boxStyle.Render(settings), boxStyle.Render(m.eventsView()))

	var help []string
	for _, b := range bindings {
		help = append(help, b.key+" "+b.help)
	}
	footer := dimStyle.Render(strings.Join(help, " · ") + " · q quit")
	if m.width > 0 {
		footer = lipgloss.NewStyle().Width(m.width).Render(footer)
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, slotView, panels, footer)
}

func (m model) patternView(p arpeggio.Params, step int) string {
	var b strings.Builder
	for i := 0; i < p.PatternLength && i < arp.MaxPatternSteps; i++ {
		cell := fmt.Sprintf("%3.0f", p.Velocities[i])
		if i == step {
			cell = headerStyle.Render(cell)
		}
		b.WriteString(cell)
		b.WriteString(" ")
	}
	return b.String()
}

func (m model) eventsView() string {
	if len(m.recent) == 0 {
		return dimStyle.Render("no notes yet")
	}
	var lines []string
	for i := len(m.recent) - 1; i >= 0; i-- {
		ev := m.recent[i]
		switch ev.Kind {
		case arpeggio.EventNoteOn:
			lines = append(lines, fmt.Sprintf("on  %-4s %3d", noteName(int(ev.Pitch)), ev.Velocity))
		case arpeggio.EventNoteOff:
			lines = append(lines, dimStyle.Render(fmt.Sprintf("off %-4s", noteName(int(ev.Pitch)))))
		case arpeggio.EventOverflow:
			lines = append(lines, "overflow")
		}
	}
	return strings.Join(lines, "\n")
}

func line(label, value string) string {
	return labelStyle.Render(fmt.Sprintf("%-10s", label)) + value
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
