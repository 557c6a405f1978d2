package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"geoform/internal/cascade"
	"geoform/internal/secure"
	"geoform/internal/submit"
)

// levelLoadedMsg carries a finished fetch back to the loader.
type levelLoadedMsg struct {
	result cascade.Result
}

type keyLoadedMsg struct {
	state secure.KeyState
	err   error
}

type submitDoneMsg struct {
	result submit.Result
}

type toastExpiredMsg struct {
	seq int
}

func runTaskCmd(task *cascade.Task) tea.Cmd {
	if task == nil {
		return nil
	}
	return func() tea.Msg {
		return levelLoadedMsg{result: task.Run()}
	}
}

func loadKeyCmd(ctx context.Context, keys *secure.KeyProvider) tea.Cmd {
	return func() tea.Msg {
		keys.Initialize(ctx)
		return keyLoadedMsg{state: keys.State(), err: keys.Err()}
	}
}

// sendCmd only performs the network send; encryption already happened in Update.
func sendCmd(ctx context.Context, in *submit.Interceptor, p submit.Prepared) tea.Cmd {
	return func() tea.Msg {
		return submitDoneMsg{result: in.Send(ctx, p)}
	}
}

func scheduleToastExpiry(seq int, after time.Duration) tea.Cmd {
	return tea.Tick(after, func(time.Time) tea.Msg {
		return toastExpiredMsg{seq: seq}
	})
}
