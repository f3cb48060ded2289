package seam

import "errors"

var (
	// ErrNoRepoSelected is returned when a turn is submitted before a
	// repository has been picked. Checked before any remote call.
	ErrNoRepoSelected = errors.New("no repository selected")

	// ErrTurnActive is returned when a second turn is started while one
	// is still streaming. The workspace has a single writer.
	ErrTurnActive = errors.New("a turn is already in progress")
)
