package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"irlink/internal/libcache"
	"irlink/internal/observ"
	"irlink/internal/ui"
)

type cacheOutcome struct {
	results []cacheResult
	err     error
}

// runCacheBuildWithUI runs buildCaches in the background while a progress
// view renders its events.
func runCacheBuildWithUI(ctx context.Context, ws *workspace, registry *libcache.Registry, targets []string, timer *observ.Timer) ([]cacheResult, error) {
	events := make(chan ui.Event, 256)
	outcomeCh := make(chan cacheOutcome, 1)

	go func() {
		results, err := buildCaches(ctx, ws, registry, targets, timer, ui.ChannelSink{Ch: events})
		outcomeCh <- cacheOutcome{results: results, err: err}
		close(events)
	}()

	model := ui.NewProgressModel("caching libraries", targets, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.results, uiErr
	}
	return outcome.results, outcome.err
}
