package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ppiankov/hazardwatch/internal/monitor"
)

// Reporter forwards steps to a running program.
type Reporter struct {
	p *tea.Program
}

// Report implements monitor.Reporter. Send returns at once after the
// program has exited.
func (r Reporter) Report(s monitor.Step) {
	r.p.Send(StepMsg(s))
}

// StartFunc launches the loop with the TUI reporter attached.
type StartFunc func(ctx context.Context, rep monitor.Reporter) (*monitor.Handle, error)

// Run shows the view until the user quits or, with ExitOnDone, the loop
// ends. Quitting cancels the loop.
func Run(ctx context.Context, opts Options, start StartFunc, progOpts ...tea.ProgramOption) (monitor.Summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewModel(opts), progOpts...)
	h, err := start(ctx, Reporter{p: p})
	if err != nil {
		return monitor.Summary{}, err
	}
	go func() {
		sum, err := h.Wait()
		p.Send(DoneMsg{Summary: sum, Err: err})
	}()

	_, runErr := p.Run()
	h.Stop()
	sum, err := h.Wait()
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return sum, runErr
	}
	return sum, err
}
