package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/colonyops/seam/internal/core/chat"
	"github.com/colonyops/seam/internal/core/styles"
	"github.com/colonyops/seam/internal/seam"
)

// UIState represents the current state of the TUI.
type UIState int

const (
	stateRepoPicker UIState = iota
	stateChat
	stateFilePicker
)

const snippetsPanelRatio = 3 // snippets panel takes 1/3 of the body width

// Deps wires the TUI to the application.
type Deps struct {
	App *seam.App
}

// Model is the main Bubble Tea model for the chat interface.
type Model struct {
	app *seam.App
	svc *seam.Service

	state    UIState
	repoList list.Model
	files    filePicker
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	history      chat.History
	snippetsText string
	turnActive   bool

	statusMsg    string
	errText      string
	updateNotice string

	width  int
	height int
	ready  bool
}

// New creates the TUI model. When a repository selection was persisted, the
// model starts in the chat state and restores it in the background.
func New(deps Deps) Model {
	input := textinput.New()
	input.Prompt = styles.InputPromptStyle.Render("> ")
	input.Placeholder = "Describe the change you want..."
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.StatusStyle

	m := Model{
		app:      deps.App,
		svc:      deps.App.Service,
		repoList: newRepoPicker(),
		input:    input,
		spinner:  sp,
		state:    stateRepoPicker,
	}

	if deps.App.Config.GitHub.RepoFullName != "" {
		m.state = stateChat
		m.statusMsg = "Restoring " + deps.App.Config.GitHub.RepoFullName + "..."
	}

	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		loadRepos(m.app),
		checkForUpdate(m.app.KV, m.app.Build.Version),
		textinput.Blink,
	}

	if repo := m.app.Config.GitHub.RepoFullName; repo != "" {
		cmds = append(cmds, selectRepo(m.svc, repo))
	}

	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if !m.turnActive {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case reposLoadedMsg:
		return m, m.repoList.SetItems(repoItems(msg.repos))

	case repoSelectedMsg:
		m.state = stateChat
		m.history = nil
		m.snippetsText = m.svc.Workspace().SnippetsText
		m.statusMsg = msg.repo
		m.errText = ""
		m.refreshTranscript()
		return m, nil

	case filesSelectedMsg:
		m.state = stateChat
		m.snippetsText = m.svc.Workspace().SnippetsText
		m.errText = ""
		return m, nil

	case turnUpdateMsg:
		m.history = msg.update.History
		m.snippetsText = msg.update.SnippetsText
		if msg.update.Err != nil {
			m.errText = msg.update.Err.Error()
		}
		m.refreshTranscript()
		return m, waitForUpdate(msg.ch)

	case turnDoneMsg:
		m.turnActive = false
		m.input.Focus()
		return m, textinput.Blink

	case updateAvailableMsg:
		m.updateNotice = fmt.Sprintf("update available: %s → %s", msg.result.Current, msg.result.Latest)
		return m, nil

	case errMsg:
		m.errText = msg.err.Error()
		return m, nil
	}

	return m.updateFocused(msg)
}

func (m Model) handleResize(msg tea.WindowSizeMsg) Model {
	m.width = msg.Width
	m.height = msg.Height
	m.ready = true

	bodyHeight := m.height - 4 // header, input, help
	if bodyHeight < 1 {
		bodyHeight = 1
	}

	transcriptWidth := m.transcriptWidth()
	m.viewport = viewport.New(transcriptWidth, bodyHeight)
	m.renderer = newMarkdownRenderer(transcriptWidth - 2)
	m.refreshTranscript()

	m.repoList.SetSize(m.width, m.height-2)
	if m.state == stateFilePicker {
		m.files = m.files.setSize(m.width, m.height)
	}
	m.input.Width = m.width - 4

	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.Quit) {
		return m, tea.Quit
	}

	switch m.state {
	case stateRepoPicker:
		return m.handleRepoPickerKey(msg)
	case stateFilePicker:
		return m.handleFilePickerKey(msg)
	default:
		return m.handleChatKey(msg)
	}
}

func (m Model) handleRepoPickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.repoList.FilterState() != list.Filtering {
		switch msg.String() {
		case "enter":
			item, ok := m.repoList.SelectedItem().(repoItem)
			if !ok {
				return m, nil
			}
			m.statusMsg = "Selecting " + item.repo.FullName + "..."
			return m, selectRepo(m.svc, item.repo.FullName)

		case "esc":
			if m.svc.Workspace().Repo() != "" {
				m.state = stateChat
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	m.repoList, cmd = m.repoList.Update(msg)
	return m, cmd
}

func (m Model) handleFilePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.files.list.FilterState() != list.Filtering {
		switch msg.String() {
		case "esc":
			m.state = stateChat
			return m, nil

		case "tab":
			m.files = m.files.toggleFocus()
			return m, nil

		case " ":
			if !m.files.globFocus {
				m.files = m.files.toggleCurrent()
				return m, nil
			}

		case "enter":
			if m.files.globFocus {
				pattern := strings.TrimSpace(m.files.glob.Value())
				if pattern == "" {
					return m, nil
				}
				m.statusMsg = "Applying " + pattern + "..."
				return m, selectGlob(m.svc, pattern)
			}
			return m, selectFiles(m.svc, m.files.selectedPaths())
		}
	}

	var cmd tea.Cmd
	m.files, cmd = m.files.update(msg)
	return m, cmd
}

func (m Model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.PickRepo):
		if m.turnActive {
			return m, nil
		}
		m.state = stateRepoPicker
		return m, loadRepos(m.app)

	case key.Matches(msg, keys.PickFiles):
		if m.turnActive {
			return m, nil
		}
		ws := m.svc.Workspace()
		m.files = newFilePicker(ws.Listing(), ws.Selected()).setSize(m.width, m.height)
		m.state = stateFilePicker
		return m, nil

	case key.Matches(msg, keys.Clear):
		if m.turnActive {
			return m, nil
		}
		m.history, m.snippetsText = m.svc.ClearConversation()
		m.errText = ""
		m.refreshTranscript()
		return m, nil

	case key.Matches(msg, keys.ScrollUp):
		m.viewport.ViewUp()
		return m, nil

	case key.Matches(msg, keys.ScrollDown):
		m.viewport.ViewDown()
		return m, nil

	case key.Matches(msg, keys.Send):
		return m.submit()
	}

	return m.updateFocused(msg)
}

// submit starts a turn with the typed message. The input stays locked until
// the turn channel closes.
func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.turnActive {
		return m, nil
	}

	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}

	history, err := m.svc.SubmitTurn(m.svc.Workspace().Repo(), text, m.history)
	if err != nil {
		m.errText = err.Error()
		return m, nil
	}

	m.history = history
	m.errText = ""
	m.turnActive = true
	m.input.Reset()
	m.input.Blur()
	m.refreshTranscript()

	return m, tea.Batch(
		startTurn(m.svc, m.history, m.snippetsText),
		m.spinner.Tick,
	)
}

func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.state {
	case stateRepoPicker:
		m.repoList, cmd = m.repoList.Update(msg)
	case stateFilePicker:
		m.files, cmd = m.files.update(msg)
	default:
		m.input, cmd = m.input.Update(msg)
	}

	return m, cmd
}

func (m *Model) refreshTranscript() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(renderTranscript(m.renderer, m.history))
	m.viewport.GotoBottom()
}

func (m Model) transcriptWidth() int {
	w := m.width - m.width/snippetsPanelRatio - 2
	if w < 20 {
		w = m.width
	}
	return w
}

func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}

	switch m.state {
	case stateRepoPicker:
		return m.repoList.View()
	case stateFilePicker:
		return m.files.view()
	default:
		return m.chatView()
	}
}

func (m Model) chatView() string {
	header := m.headerView()
	body := m.bodyView()
	help := m.helpView()

	return lipgloss.JoinVertical(lipgloss.Left, header, body, m.input.View(), help)
}

func (m Model) headerView() string {
	repo := m.svc.Workspace().Repo()
	if repo == "" {
		repo = m.statusMsg
	}
	if repo == "" {
		repo = "no repository"
	}

	title := styles.TitleStyle.Render("seam") + " " + statusLine(repo)

	if m.turnActive {
		title += " " + m.spinner.View() + statusLine("working")
	}
	if m.updateNotice != "" {
		title += "  " + statusLine(m.updateNotice)
	}

	return title
}

func (m Model) bodyView() string {
	transcript := styles.ActivePanelStyle.
		Width(m.viewport.Width).
		Height(m.viewport.Height).
		Render(m.viewport.View())

	snippetsWidth := m.width - m.viewport.Width - 4
	if snippetsWidth < 10 {
		return transcript
	}

	snippets := m.snippetsText
	if snippets == "" {
		snippets = statusLine("No snippets yet. Pin files with ctrl+f or just ask a question.")
	}

	panel := styles.PanelBorderStyle.
		Width(snippetsWidth).
		Height(m.viewport.Height).
		Render(lipgloss.NewStyle().MaxHeight(m.viewport.Height).Render(snippets))

	return lipgloss.JoinHorizontal(lipgloss.Top, transcript, panel)
}

func (m Model) helpView() string {
	if m.errText != "" {
		return errorLine(m.errText)
	}

	hints := []string{
		"enter send",
		"ctrl+r repos",
		"ctrl+f files",
		"ctrl+l clear",
		"ctrl+c quit",
	}
	return styles.HelpStyle.Render(strings.Join(hints, " • "))
}
