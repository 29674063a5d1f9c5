package tui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"image-compressor-go/internal/controller"
)

const title = "Image Compressor"

type focus int

const (
	focusInput focus = iota
	focusOutput
	focusQuality
	focusCompress
	focusCount
)

type mode int

const (
	modeMain mode = iota
	modeOpenDialog
	modeSaveDialog
)

// Options configure the window.
type Options struct {
	FrameInterval  time.Duration
	StartDirectory string
	ShowHidden     bool
}

// Model is the bubbletea model of the compressor window. All controller
// access happens inside Update, on bubbletea's event goroutine.
type Model struct {
	ctrl *controller.Controller
	opts Options

	focus focus
	mode  mode

	picker   filepicker.Model
	saveName textinput.Model
	slider   progress.Model

	width    int
	height   int
	quitting bool
}

// NewModel creates the window around ctrl.
func NewModel(ctrl *controller.Controller, opts Options) Model {
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = 50 * time.Millisecond
	}
	if opts.StartDirectory == "" {
		opts.StartDirectory = "."
	}

	slider := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	slider.Width = 40

	ti := textinput.New()
	ti.Prompt = "› "
	ti.Placeholder = "output.jpg"
	ti.CharLimit = 4096
	ti.Width = 50

	return Model{
		ctrl:     ctrl,
		opts:     opts,
		slider:   slider,
		saveName: ti,
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.slider.Width = max(10, min(60, msg.Width-4))
		m.picker.Height = max(5, msg.Height-8)
		return m, nil

	case frameMsg:
		m.ctrl.Poll()
		return m, m.repaint()

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
	}

	switch m.mode {
	case modeOpenDialog:
		return m.updateOpenDialog(msg)
	case modeSaveDialog:
		return m.updateSaveDialog(msg)
	}

	if key, ok := msg.(tea.KeyMsg); ok {
		return m.handleKey(key)
	}
	return m, nil
}

// repaint keeps frames coming while a compression is outstanding.
func (m Model) repaint() tea.Cmd {
	if m.ctrl.NeedsRepaint() {
		return nextFrame(m.opts.FrameInterval)
	}
	return nil
}

func (m Model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit
	case "tab", "down", "j":
		m.focus = (m.focus + 1) % focusCount
	case "shift+tab", "up", "k":
		m.focus = (m.focus + focusCount - 1) % focusCount
	case "left", "h", "-":
		m.nudgeQuality(-1)
	case "right", "l", "+":
		m.nudgeQuality(1)
	case "pgdown":
		m.nudgeQuality(-10)
	case "pgup":
		m.nudgeQuality(10)
	case "home":
		if m.focus == focusQuality {
			m.ctrl.SetQuality(1)
		}
	case "end":
		if m.focus == focusQuality {
			m.ctrl.SetQuality(100)
		}
	case "enter", " ":
		return m.activate()
	}
	return m, nil
}

func (m *Model) nudgeQuality(delta int) {
	if m.focus != focusQuality {
		return
	}
	m.ctrl.SetQuality(m.ctrl.Quality() + delta)
}

func (m Model) activate() (tea.Model, tea.Cmd) {
	switch m.focus {
	case focusInput:
		return m.openInputDialog()
	case focusOutput:
		return m.openSaveDialog()
	case focusCompress:
		// a disabled button ignores clicks
		if err := m.ctrl.Submit(); err != nil {
			return m, nil
		}
		return m, m.repaint()
	}
	return m, nil
}

func (m Model) openInputDialog() (tea.Model, tea.Cmd) {
	fp := filepicker.New()
	fp.CurrentDirectory = m.opts.StartDirectory
	if in := m.ctrl.InputPath(); in != "" {
		fp.CurrentDirectory = filepath.Dir(in)
	}
	fp.AllowedTypes = allowedTypes(controller.InputFilters)
	fp.ShowHidden = m.opts.ShowHidden
	fp.ShowPermissions = false
	fp.Height = max(5, m.height-8)

	m.picker = fp
	m.mode = modeOpenDialog
	return m, m.picker.Init()
}

func (m Model) openSaveDialog() (tea.Model, tea.Cmd) {
	value := m.ctrl.OutputPath()
	if value == "" {
		value = m.opts.StartDirectory + string(filepath.Separator)
	}
	m.saveName.SetValue(value)
	m.saveName.CursorEnd()
	m.mode = modeSaveDialog
	return m, m.saveName.Focus()
}

func (m Model) updateOpenDialog(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "esc" {
		m.mode = modeMain
		return m, nil
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)

	if ok, path := m.picker.DidSelectFile(msg); ok {
		m.ctrl.SetInputPath(path)
		m.mode = modeMain
		return m, nil
	}
	return m, cmd
}

func (m Model) updateSaveDialog(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc":
			m.saveName.Blur()
			m.mode = modeMain
			return m, nil
		case "enter":
			path := strings.TrimSpace(m.saveName.Value())
			if path == "" || strings.HasSuffix(path, string(filepath.Separator)) {
				return m, nil
			}
			m.ctrl.SetOutputPath(path)
			m.saveName.Blur()
			m.mode = modeMain
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.saveName, cmd = m.saveName.Update(msg)
	return m, cmd
}

// View implements tea.Model
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	switch m.mode {
	case modeOpenDialog:
		return m.openDialogView()
	case modeSaveDialog:
		return m.saveDialogView()
	}

	var b strings.Builder
	b.WriteString(HeaderStyle.Render(title))
	b.WriteString("\n")

	b.WriteString(LabelStyle.Render("Input file: ") + m.button("Browse…", focusInput, true) + "\n")
	b.WriteString(m.ctrl.InputLabel() + "\n\n")

	b.WriteString(LabelStyle.Render("Output file:") + " " + m.button("Browse…", focusOutput, true) + "\n")
	b.WriteString(m.ctrl.OutputLabel() + "\n\n")

	b.WriteString(separator + "\n")
	quality := fmt.Sprintf("%d%%", m.ctrl.Quality())
	if m.focus == focusQuality {
		quality = FocusedButtonStyle.Render(quality)
	}
	b.WriteString(LabelStyle.Render("Compression quality:") + " " + quality + "\n")
	b.WriteString(m.slider.ViewAs(float64(m.ctrl.Quality()) / 100) + "\n")
	b.WriteString(HelpStyle.Render("Lower = more compression / smaller file.") + "\n")
	b.WriteString(HelpStyle.Render("Higher = less compression / better quality.") + "\n\n")

	b.WriteString(separator + "\n")
	b.WriteString(m.button("Compress image", focusCompress, m.ctrl.CanCompress()) + "\n\n")

	b.WriteString(LabelStyle.Render("Status:") + " " + RenderStatus(m.ctrl.Status()) + "\n\n")
	b.WriteString(HelpStyle.Render("tab/↑↓: move • enter: activate • ←/→ pgup/pgdn: quality • q: quit"))
	return b.String()
}

func (m Model) button(label string, f focus, enabled bool) string {
	text := "[ " + label + " ]"
	switch {
	case !enabled:
		return DisabledButtonStyle.Render(text)
	case m.focus == f:
		return FocusedButtonStyle.Render(text)
	default:
		return ButtonStyle.Render(text)
	}
}

func (m Model) openDialogView() string {
	var b strings.Builder
	b.WriteString(HeaderStyle.Render("Select input image"))
	b.WriteString("\n")
	b.WriteString(HelpStyle.Render(filterList(controller.InputFilters)) + "\n")
	b.WriteString(HelpStyle.Render(m.picker.CurrentDirectory) + "\n\n")
	b.WriteString(m.picker.View() + "\n")
	b.WriteString(HelpStyle.Render("enter: choose • ←/backspace: up • esc: cancel"))
	return b.String()
}

func (m Model) saveDialogView() string {
	var b strings.Builder
	b.WriteString(HeaderStyle.Render("Save compressed image as"))
	b.WriteString("\n")
	for _, f := range controller.OutputFilters {
		b.WriteString(HelpStyle.Render(f.String()) + "\n")
	}
	b.WriteString("\n" + m.saveName.View() + "\n\n")
	b.WriteString(HelpStyle.Render("enter: confirm • esc: cancel"))
	return b.String()
}

func filterList(filters []controller.FileFilter) string {
	parts := make([]string, len(filters))
	for i, f := range filters {
		parts[i] = f.String()
	}
	return strings.Join(parts, " · ")
}

// allowedTypes turns dialog filters into filepicker suffixes.
func allowedTypes(filters []controller.FileFilter) []string {
	var types []string
	for _, f := range filters {
		for _, ext := range f.Extensions {
			types = append(types, "."+ext, "."+strings.ToUpper(ext))
		}
	}
	return types
}
