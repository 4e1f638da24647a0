package ui

import (
	"errors"
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
)

func TestProgressModelAppliesEvents(t *testing.T) {
	events := make(chan Event)
	m := NewProgressModel("caching", []string{"core", "util"}, events).(*progressModel)

	m.Update(eventMsg(Event{Stage: StageHeader, Status: StatusWorking}))
	m.Update(eventMsg(Event{Library: "core", Stage: StageCache, Status: StatusDone}))
	m.Update(eventMsg(Event{Library: "util", Stage: StageLink, Status: StatusError, Err: errors.New("boom")}))
	m.Update(eventMsg(Event{Library: "unknown", Stage: StageLink, Status: StatusWorking}))

	if m.stageLabel != "headers" {
		t.Fatalf("stage label = %q, want headers", m.stageLabel)
	}
	if m.items[0].status != "done" || m.items[1].status != "error" || m.items[1].err != "boom" {
		t.Fatalf("unexpected items %+v", m.items)
	}
	if got := m.percent(); got != 1.0 {
		t.Fatalf("percent = %v, want 1", got)
	}
	view := m.View()
	for _, want := range []string{"caching (headers)", "core", "util", "boom"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view misses %q:\n%s", want, view)
		}
	}

	m.Update(doneMsg{})
	if !m.done || !strings.Contains(m.View(), "done: caching") {
		t.Fatalf("model not done:\n%s", m.View())
	}
}

func TestProgressFromStage(t *testing.T) {
	m := NewProgressModel("link", []string{"a", "b"}, nil).(*progressModel)
	m.applyEvent(Event{Library: "a", Stage: StageLink, Status: StatusWorking})
	if got := m.percent(); got != 0.2 {
		t.Fatalf("percent = %v, want 0.2", got)
	}
	if m.items[0].status != "linking" || m.items[1].status != "queued" {
		t.Fatalf("unexpected items %+v", m.items)
	}
}

func TestChannelSink(t *testing.T) {
	ch := make(chan Event, 1)
	ChannelSink{Ch: ch}.Emit(Event{Library: "core", Status: StatusQueued})
	if ev := <-ch; ev.Library != "core" {
		t.Fatalf("event = %+v", ev)
	}
	ChannelSink{}.Emit(Event{})
	NopSink{}.Emit(Event{})
}

func TestTruncate(t *testing.T) {
	if got := truncate("platform.posix", 8); got != "platf..." {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("core", 8); got != "core" {
		t.Fatalf("truncate = %q", got)
	}
	// Wide runes count two columns each; the ellipsis fits inside width.
	if got := truncate("模块名称库", 7); got != "模块..." {
		t.Fatalf("truncate = %q", got)
	}
	for _, width := range []int{2, 4, 8, 12} {
		if got := truncate("platform.posix", width); runewidth.StringWidth(got) > width {
			t.Fatalf("truncate(%d) = %q is %d columns wide", width, got, runewidth.StringWidth(got))
		}
	}
}
