// Command zmach3 is an interactive terminal front end for the Version 3
// Z-machine engine: a bubbletea event loop driving the zmachine.Host
// interface, with lipgloss styling and muesli/reflow word-wrapping for the
// scrolling lower window.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/nkessler/zmach3/zmachine"
)

var romFilePath string

func init() {
	flag.StringVar(&romFilePath, "rom", "", "The path of a V3 Z-machine story file")
	flag.Parse()
}

// --- teaHost bridges the synchronous zmachine.Host contract onto the
// bubbletea event loop: every callout hands a message to the channel the
// Update loop is waiting on, then (for callouts with a return value) blocks
// on a per-call response channel. This is the same cooperative-suspension
// shape the engine documents on Host itself, routed through bubbletea's
// message queue instead of a synchronous call stack.

type printMsg struct {
	text      string
	scripting bool
}
type highlightMsg struct{ fixed bool }
type statusMsg struct {
	text     string
	v18, v17 int16
}
type splitMsg struct{ height uint16 }
type readRequestMsg struct {
	maxLen int
	resp   chan string
}
type saveRequestMsg struct {
	blob []byte
	resp chan bool
}
type restoreRequestMsg struct {
	resp chan restoreResult
}
type restoreResult struct {
	blob []byte
	ok   bool
}
type runDoneMsg struct{ err error }

type teaHost struct {
	out         chan any
	romFilePath string
}

func (h *teaHost) Print(text string, scripting bool) {
	h.out <- printMsg{text: text, scripting: scripting}
}

func (h *teaHost) Read(maxLen int) string {
	resp := make(chan string)
	h.out <- readRequestMsg{maxLen: maxLen, resp: resp}
	return <-resp
}

func (h *teaHost) Highlight(fixedPitch bool) {
	h.out <- highlightMsg{fixed: fixedPitch}
}

func (h *teaHost) Save(blob []byte) bool {
	resp := make(chan bool)
	h.out <- saveRequestMsg{blob: blob, resp: resp}
	return <-resp
}

func (h *teaHost) Restore() ([]byte, bool) {
	resp := make(chan restoreResult)
	h.out <- restoreRequestMsg{resp: resp}
	r := <-resp
	return r.blob, r.ok
}

func (h *teaHost) Status(text string, v18, v17 int16) {
	h.out <- statusMsg{text: text, v18: v18, v17: v17}
}

func (h *teaHost) Split(height uint16) {
	h.out <- splitMsg{height: height}
}

// defaultSaveFilename derives a save filename from the ROM path, replacing
// the .z3 extension with .sav, e.g. "zork1.z3" -> "zork1.sav".
func defaultSaveFilename(romPath string) string {
	if romPath == "" {
		return "game.sav"
	}
	base := filepath.Base(romPath)
	ext := filepath.Ext(base)
	if len(ext) >= 2 && (ext[1] == 'z' || ext[1] == 'Z') {
		base = base[:len(base)-len(ext)]
	}
	return base + ".sav"
}

func runZMachine(z *zmachine.ZMachine, host *teaHost) tea.Cmd {
	return func() tea.Msg {
		err := z.Run()
		host.out <- runDoneMsg{err: err}
		return nil
	}
}

func waitForHost(out <-chan any) tea.Cmd {
	return func() tea.Msg {
		return <-out
	}
}

type storyModel struct {
	host        *teaHost
	z           *zmachine.ZMachine
	width       int
	height      int
	lowerText   string
	upperLines  []string
	splitHeight uint16
	statusText  string
	statusV17   int16
	statusV18   int16
	fixedPitch  bool

	waitingForInput bool
	pendingRead     readRequestMsg
	inputBox        textinput.Model

	statusStyle lipgloss.Style
	bodyStyle   lipgloss.Style

	runtimeError string
}

func newStoryModel(host *teaHost, z *zmachine.ZMachine) storyModel {
	ti := textinput.New()
	ti.Focus()
	ti.CharLimit = 200
	ti.Prompt = ""
	return storyModel{
		host:        host,
		z:           z,
		inputBox:    ti,
		statusStyle: lipgloss.NewStyle().Reverse(true),
		bodyStyle:   lipgloss.NewStyle(),
	}
}

func (m storyModel) Init() tea.Cmd {
	return tea.Batch(waitForHost(m.host.out), runZMachine(m.z, m.host), tea.WindowSize())
}

func (m storyModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.inputBox.Width = m.width

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.waitingForInput && msg.Type == tea.KeyEnter {
			line := m.inputBox.Value()
			m.lowerText += "\n> " + line + "\n"
			m.inputBox.SetValue("")
			m.waitingForInput = false
			// The readRequestMsg handler already left a waitForHost receiver
			// pending; unblocking the engine is all that's needed here.
			m.pendingRead.resp <- line
			return m, nil
		}
		if m.waitingForInput {
			var cmd tea.Cmd
			m.inputBox, cmd = m.inputBox.Update(msg)
			return m, cmd
		}

	case printMsg:
		m.lowerText += msg.text
		return m, waitForHost(m.host.out)

	case highlightMsg:
		m.fixedPitch = msg.fixed
		m.bodyStyle = m.bodyStyle.Bold(msg.fixed)
		return m, waitForHost(m.host.out)

	case statusMsg:
		m.statusText, m.statusV18, m.statusV17 = msg.text, msg.v18, msg.v17
		return m, waitForHost(m.host.out)

	case splitMsg:
		m.splitHeight = msg.height
		if int(msg.height) != len(m.upperLines) {
			lines := make([]string, msg.height)
			copy(lines, m.upperLines)
			m.upperLines = lines
		}
		return m, waitForHost(m.host.out)

	case readRequestMsg:
		m.waitingForInput = true
		m.pendingRead = msg
		return m, waitForHost(m.host.out)

	case saveRequestMsg:
		path := defaultSaveFilename(m.host.romFilePath)
		err := os.WriteFile(path, msg.blob, 0644)
		msg.resp <- err == nil
		return m, waitForHost(m.host.out)

	case restoreRequestMsg:
		path := defaultSaveFilename(m.host.romFilePath)
		data, err := os.ReadFile(path)
		msg.resp <- restoreResult{blob: data, ok: err == nil}
		return m, waitForHost(m.host.out)

	case runDoneMsg:
		if msg.err != nil {
			m.runtimeError = msg.err.Error()
		}
		return m, tea.Quit
	}

	return m, nil
}

func (m storyModel) View() string {
	if m.runtimeError != "" {
		errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true)
		return fmt.Sprintf("\n%s\n\n%s\n", errStyle.Render("Z-machine error:"), m.runtimeError)
	}
	if m.width == 0 {
		return "Loading..."
	}

	var s strings.Builder
	if m.statusText != "" {
		s.WriteString(m.statusStyle.Render(createStatusLine(m.width, m.statusText, int(m.statusV17), int(m.statusV18))))
		s.WriteString("\n")
	}
	for _, line := range m.upperLines {
		s.WriteString(line + "\n")
	}

	wrapped := wordwrap.String(m.lowerText, m.width)
	lines := strings.Split(wrapped, "\n")
	available := m.height - strings.Count(s.String(), "\n") - 2
	if available > 0 && len(lines) > available {
		lines = lines[len(lines)-available:]
	}
	s.WriteString(m.bodyStyle.Render(strings.Join(lines, "\n")))

	if m.waitingForInput {
		s.WriteString("\n" + m.inputBox.View())
	}

	return s.String()
}

// createStatusLine formats the classic score/moves status bar, right-aligned
// against the left-aligned location name.
func createStatusLine(width int, placeName string, score, moves int) string {
	right := fmt.Sprintf("Score: %d    Moves: %d", score, moves)
	if len(right) >= width {
		return right[:width]
	}
	if len(placeName)+len(right)+1 >= width {
		return fmt.Sprintf("%s %s", placeName[:width-len(right)-1], right)
	}
	pad := width - len(placeName) - len(right)
	return placeName + strings.Repeat(" ", pad) + right
}

func main() {
	if romFilePath == "" {
		fmt.Println("usage: zmach3 -rom game.z3")
		os.Exit(1)
	}

	romBytes, err := os.ReadFile(romFilePath)
	if err != nil {
		fmt.Printf("failed to read rom: %v\n", err)
		os.Exit(1)
	}

	// Buffered so the boot-time Highlight callout fired inside Load doesn't
	// block before the bubbletea loop has started receiving.
	host := &teaHost{out: make(chan any, 1), romFilePath: romFilePath}
	z, err := zmachine.Load(romBytes, host)
	if err != nil {
		fmt.Printf("failed to load story: %v\n", err)
		os.Exit(1)
	}

	model := newStoryModel(host, z)
	program := tea.NewProgram(model)

	if _, err := program.Run(); err != nil {
		fmt.Println("Error running program:", err)
		os.Exit(1)
	}
}
