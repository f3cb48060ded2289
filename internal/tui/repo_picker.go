package tui

import (
	"github.com/charmbracelet/bubbles/list"

	"github.com/colonyops/seam/internal/github"
)

type repoItem struct {
	repo github.Repo
}

func (i repoItem) Title() string { return i.repo.FullName }

func (i repoItem) Description() string {
	if i.repo.Private {
		return "private"
	}
	return "public"
}

func (i repoItem) FilterValue() string { return i.repo.FullName }

func newRepoPicker() list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Select a repository"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle()
	return l
}

func repoItems(repos []github.Repo) []list.Item {
	items := make([]list.Item, len(repos))
	for i, r := range repos {
		items[i] = repoItem{repo: r}
	}
	return items
}
