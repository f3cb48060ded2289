package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/colonyops/seam/internal/core/chat"
	"github.com/colonyops/seam/internal/core/kv"
	"github.com/colonyops/seam/internal/seam"
	"github.com/colonyops/seam/internal/updatecheck"
)

func loadRepos(app *seam.App) tea.Cmd {
	return func() tea.Msg {
		repos, err := app.GitHub.ListRepos(context.Background())
		if err != nil {
			return errMsg{err}
		}
		return reposLoadedMsg{repos: repos}
	}
}

func selectRepo(svc *seam.Service, repo string) tea.Cmd {
	return func() tea.Msg {
		if err := svc.SelectRepo(context.Background(), repo); err != nil {
			return errMsg{err}
		}
		return repoSelectedMsg{repo: repo}
	}
}

func selectFiles(svc *seam.Service, paths []string) tea.Cmd {
	return func() tea.Msg {
		if err := svc.SelectFiles(context.Background(), paths); err != nil {
			return errMsg{err}
		}
		return filesSelectedMsg{}
	}
}

func selectGlob(svc *seam.Service, pattern string) tea.Cmd {
	return func() tea.Msg {
		if _, err := svc.SelectGlob(context.Background(), pattern); err != nil {
			return errMsg{err}
		}
		return filesSelectedMsg{}
	}
}

// startTurn opens the turn's update channel and blocks for its first
// state. Subsequent states arrive through waitForUpdate.
func startTurn(svc *seam.Service, history chat.History, snippetsText string) tea.Cmd {
	return func() tea.Msg {
		ch := svc.StreamTurn(context.Background(), history, snippetsText)
		return waitForUpdate(ch)()
	}
}

// waitForUpdate blocks on the turn channel and converts its next state into
// a message. The handler re-arms it until the channel closes.
func waitForUpdate(ch <-chan seam.TurnUpdate) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-ch
		if !ok {
			return turnDoneMsg{}
		}
		return turnUpdateMsg{update: update, ch: ch}
	}
}

func checkForUpdate(kvStore kv.KV, currentVersion string) tea.Cmd {
	return func() tea.Msg {
		result, err := updatecheck.Check(context.Background(), kvStore, currentVersion)
		if err != nil {
			log.Debug().Err(err).Msg("update check failed")
			return nil
		}
		if result == nil {
			return nil
		}
		return updateAvailableMsg{result: result}
	}
}
