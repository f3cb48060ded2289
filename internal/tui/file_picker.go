package tui

import (
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type fileItem struct {
	path     string
	selected bool
}

func (i fileItem) Title() string {
	if i.selected {
		return "[x] " + i.path
	}
	return "[ ] " + i.path
}

func (i fileItem) Description() string { return "" }
func (i fileItem) FilterValue() string { return i.path }

// filePicker is the pinned-file selection overlay: a multi-select file list
// plus a glob input. Space toggles, enter applies, esc cancels.
type filePicker struct {
	list      list.Model
	glob      textinput.Model
	globFocus bool
}

func newFilePicker(listing, selected []string) filePicker {
	selectedSet := make(map[string]struct{}, len(selected))
	for _, p := range selected {
		selectedSet[p] = struct{}{}
	}

	items := make([]list.Item, len(listing))
	for i, path := range listing {
		_, sel := selectedSet[path]
		items[i] = fileItem{path: path, selected: sel}
	}

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = false

	l := list.New(items, delegate, 0, 0)
	l.Title = "Select files to pin"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle()

	glob := textinput.New()
	glob.Prompt = "glob> "
	glob.Placeholder = "**/*.go"

	return filePicker{list: l, glob: glob}
}

func (p filePicker) setSize(width, height int) filePicker {
	p.list.SetSize(width, height-2)
	p.glob.Width = width - len(p.glob.Prompt) - 1
	return p
}

// toggleFocus moves focus between the file list and the glob input.
func (p filePicker) toggleFocus() filePicker {
	p.globFocus = !p.globFocus
	if p.globFocus {
		p.glob.Focus()
	} else {
		p.glob.Blur()
	}
	return p
}

// toggleCurrent flips the selection of the highlighted file.
func (p filePicker) toggleCurrent() filePicker {
	item, ok := p.list.SelectedItem().(fileItem)
	if !ok {
		return p
	}
	item.selected = !item.selected
	p.list.SetItem(p.list.Index(), item)
	return p
}

// selectedPaths returns the checked files in listing order.
func (p filePicker) selectedPaths() []string {
	var paths []string
	for _, item := range p.list.Items() {
		if fi, ok := item.(fileItem); ok && fi.selected {
			paths = append(paths, fi.path)
		}
	}
	return paths
}

func (p filePicker) update(msg tea.Msg) (filePicker, tea.Cmd) {
	var cmd tea.Cmd
	if p.globFocus {
		p.glob, cmd = p.glob.Update(msg)
	} else {
		p.list, cmd = p.list.Update(msg)
	}
	return p, cmd
}

func (p filePicker) view() string {
	return p.glob.View() + "\n" + p.list.View()
}
