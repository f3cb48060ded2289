package tui

import (
	"github.com/colonyops/seam/internal/github"
	"github.com/colonyops/seam/internal/seam"
	"github.com/colonyops/seam/internal/updatecheck"
)

// reposLoadedMsg carries the repository listing for the picker.
type reposLoadedMsg struct {
	repos []github.Repo
}

// repoSelectedMsg reports that SelectRepo finished and the workspace holds
// the new listing.
type repoSelectedMsg struct {
	repo string
}

// turnUpdateMsg is one renderable state of the active turn. The channel is
// carried along so the update handler can wait for the next one.
type turnUpdateMsg struct {
	update seam.TurnUpdate
	ch     <-chan seam.TurnUpdate
}

// turnDoneMsg reports that the turn channel closed.
type turnDoneMsg struct{}

// filesSelectedMsg reports that the pinned file selection was applied.
type filesSelectedMsg struct{}

// updateAvailableMsg reports a newer released version.
type updateAvailableMsg struct {
	result *updatecheck.Result
}

// errMsg carries a recoverable error shown in the status line.
type errMsg struct {
	err error
}
