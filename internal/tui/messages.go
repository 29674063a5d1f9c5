package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// frameMsg asks the model to poll the worker once more.
type frameMsg struct{}

func nextFrame(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return frameMsg{}
	})
}
