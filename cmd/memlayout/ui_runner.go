package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"memlayout/internal/layout"
	"memlayout/internal/types"
	"memlayout/internal/ui"
)

type batchOutcome struct {
	outcomes []layout.Outcome
	err      error
}

// runLayoutWithUI runs a batch while a progress view renders its events.
func runLayoutWithUI(ctx context.Context, eng *layout.Engine, title string, labels []string, ids []types.TypeID, policy layout.Policy, jobs int) ([]layout.Outcome, error) {
	events := make(chan layout.Event, 256)
	outcomeCh := make(chan batchOutcome, 1)

	go func() {
		outcomes, err := eng.LayoutAll(ctx, ids, policy, jobs, layout.ChannelSink{Ch: events})
		outcomeCh <- batchOutcome{outcomes: outcomes, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, labels, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	// The view may quit early; keep the batch from blocking on its sink.
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.outcomes, uiErr
	}
	return outcome.outcomes, outcome.err
}
