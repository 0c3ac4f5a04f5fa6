package ui

import (
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"prism/internal/pipeline"
)

// Run drives work while rendering its progress to out. work receives the
// sink to report to; Run returns once both work and the view finished.
func Run(title string, files []string, out io.Writer, work func(pipeline.ProgressSink) error) error {
	events := make(chan pipeline.Event, 256)
	errCh := make(chan error, 1)
	go func() {
		err := work(pipeline.ChannelSink{Ch: events})
		close(events)
		errCh <- err
	}()

	model := NewProgressModel(title, files, events)
	_, uiErr := tea.NewProgram(model, tea.WithOutput(out), tea.WithInput(nil)).Run()
	err := <-errCh
	if uiErr != nil {
		return uiErr
	}
	return err
}
