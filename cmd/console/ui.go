package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/parley-engine/parley/pkg/scene"
	"github.com/parley-engine/parley/pkg/state"
)

const PlaceHolderText = "Type a command (/help for the list)..."

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config       *ConsoleConfig
	client       *http.Client
	gameState    *state.SaveState
	situations   []*scene.ActiveSituation
	logViewport  viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	transcript   []string
	ready        bool
	width        int
	height       int
	err          error
	loading      bool

	// Scenario selection state
	showScenarioModal bool
	scenarios         []string
	scenarioMap       map[string]string
	selectedScenario  int
	loadingScenarios  bool

	// Quit confirmation state
	showQuitModal bool
}

type scenariosLoadedMsg struct {
	scenarios   []string
	scenarioMap map[string]string
	err         error
}

type gameCreatedMsg struct {
	gameState *state.SaveState
	err       error
}

// actionMsg carries the transcript lines produced by one API action,
// plus the refreshed save state.
type actionMsg struct {
	lines      []string
	gameState  *state.SaveState
	situations []*scene.ActiveSituation
	err        error
}

var (
	logPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	outcomeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	playerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey
)

func NewConsoleUI(cfg *ConsoleConfig, client *http.Client) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 200
	ta.SetWidth(50)
	ta.SetHeight(1)
	ta.ShowLineNumbers = false

	logVp := viewport.New(50, 20)
	logVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	return ConsoleUI{
		config:            cfg,
		client:            client,
		textarea:          ta,
		logViewport:       logVp,
		metaViewport:      metaVp,
		ready:             false,
		showScenarioModal: true,
		loadingScenarios:  true,
		selectedScenario:  0,
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return m.loadScenarios()
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showScenarioModal {
		return m.updateScenarioModal(msg)
	}
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.logViewport, vpCmd = m.logViewport.Update(msg)
		return m, vpCmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.writeLogContent()
		if m.gameState != nil {
			m.metaViewport.SetContent(m.writeMetadata())
		}
		m.ready = true

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			if m.loading {
				return m, nil
			}
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}
			m.textarea.Reset()
			return m.handleCommand(input)
		}

	case actionMsg:
		m.loading = false
		if msg.err != nil {
			m.appendLine(errorStyle.Render("Error: " + msg.err.Error()))
		}
		for _, line := range msg.lines {
			m.appendLine(line)
		}
		if msg.gameState != nil {
			m.gameState = msg.gameState
		}
		if msg.situations != nil {
			m.situations = msg.situations
		}
		m.writeLogContent()
		m.metaViewport.SetContent(m.writeMetadata())
		return m, nil
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.logViewport, vpCmd = m.logViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)
	return m, tea.Batch(tiCmd, vpCmd, mvCmd)
}

func (m *ConsoleUI) resize() {
	logWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - logWidth - 6
	m.logViewport.Width = logWidth - 2
	m.logViewport.Height = m.height - 7
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
	m.textarea.SetWidth(logWidth - 4)
}

func (m *ConsoleUI) appendLine(line string) {
	m.transcript = append(m.transcript, line)
}

func (m *ConsoleUI) writeLogContent() {
	logWidth := m.logViewport.Width - 6
	if logWidth < 20 {
		logWidth = 20
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render("PARLEY") + "\n\n")
	content.WriteString("Card-driven conversations. /help lists commands.\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", logWidth-6)) + "\n\n")

	for _, line := range m.transcript {
		content.WriteString(wordwrap.String(line, logWidth) + "\n")
	}
	if m.loading {
		content.WriteString(loadingStyle.Render("...") + "\n")
	}

	m.logViewport.SetContent(content.String())
	m.logViewport.GotoBottom()
}

func (m *ConsoleUI) writeMetadata() string {
	gs := m.gameState
	var content strings.Builder
	content.WriteString(titleStyle.Render("GAME STATE") + "\n\n")

	content.WriteString("Game ID:\n")
	content.WriteString(gs.ID.String()[:8] + "...\n\n")

	content.WriteString("Location:\n")
	content.WriteString(gs.Context.LocationID + "\n\n")

	if gs.InConversation() {
		s := gs.Session
		content.WriteString("Talking to:\n")
		content.WriteString(s.NpcID + "\n\n")
		content.WriteString("Resources:\n")
		content.WriteString(fmt.Sprintf("• Initiative: %d\n", s.Pool.Initiative))
		content.WriteString(fmt.Sprintf("• Momentum:   %d\n", s.Pool.Momentum))
		content.WriteString(fmt.Sprintf("• Doubt:      %d\n", s.Pool.Doubt))
		content.WriteString(fmt.Sprintf("• Cadence:    %d\n\n", s.Pool.Cadence))
		content.WriteString(fmt.Sprintf("Hand (%d):\n", len(s.Hand)))
		for _, id := range s.Hand {
			content.WriteString("• " + id + "\n")
		}
		content.WriteString(fmt.Sprintf("\nDeck %d / Discard %d\n", len(s.Deck), len(s.Discard)))
	} else if len(m.situations) > 0 {
		content.WriteString("Situations:\n")
		for i, sit := range m.situations {
			content.WriteString(fmt.Sprintf("%d) %s\n", i+1, sit.Situation.Name))
			for _, ch := range sit.Situation.Choices {
				content.WriteString("   • " + ch.ID + "\n")
			}
		}
	}

	content.WriteString("\n")
	content.WriteString("Commands:\n")
	content.WriteString("• Ctrl+C: Quit\n")
	content.WriteString("• /help: Help\n")

	return content.String()
}

const helpText = `
Commands:
• /move <location_id>       - travel in free-roam
• /talk <npc_id>            - start a conversation
• /play <card_id>           - play a card from hand
• /listen                   - clear doubt, pay momentum
• /discard <id,id,...>      - discard down to the hand limit
• /end                      - end the conversation
• /choose <n> <choice_id>   - choose in active situation n
• /abandon <n>              - abandon the scene of situation n
• /copy                     - copy the game ID to the clipboard
• /help                     - show this help
`

func (m ConsoleUI) handleCommand(input string) (tea.Model, tea.Cmd) {
	m.appendLine(playerStyle.Render("> " + input))

	fields := strings.Fields(input)
	cmd := strings.ToLower(fields[0])
	args := fields[1:]

	switch cmd {
	case "/help":
		m.appendLine(titleStyle.Render("Help:") + helpText)
		m.writeLogContent()
		return m, nil

	case "/copy":
		if err := clipboard.WriteAll(m.gameState.ID.String()); err != nil {
			m.appendLine(errorStyle.Render("Error: " + err.Error()))
		} else {
			m.appendLine("Game ID copied.")
		}
		m.writeLogContent()
		return m, nil

	case "/move":
		if len(args) < 1 {
			return m.usage("/move <location_id>")
		}
		return m.dispatch(m.doMove(args[0]))

	case "/talk":
		if len(args) < 1 {
			return m.usage("/talk <npc_id>")
		}
		return m.dispatch(m.doTalk(args[0]))

	case "/play":
		if len(args) < 1 {
			return m.usage("/play <card_id>")
		}
		return m.dispatch(m.doPlay(args[0]))

	case "/listen":
		return m.dispatch(m.doListen())

	case "/discard":
		if len(args) < 1 {
			return m.usage("/discard <id,id,...>")
		}
		return m.dispatch(m.doDiscard(strings.Split(args[0], ",")))

	case "/end":
		return m.dispatch(m.doEnd())

	case "/choose":
		if len(args) < 2 {
			return m.usage("/choose <n> <choice_id>")
		}
		sit, err := m.situationByIndex(args[0])
		if err != nil {
			m.appendLine(errorStyle.Render("Error: " + err.Error()))
			m.writeLogContent()
			return m, nil
		}
		return m.dispatch(m.doChoose(sit, args[1]))

	case "/abandon":
		if len(args) < 1 {
			return m.usage("/abandon <n>")
		}
		sit, err := m.situationByIndex(args[0])
		if err != nil {
			m.appendLine(errorStyle.Render("Error: " + err.Error()))
			m.writeLogContent()
			return m, nil
		}
		return m.dispatch(m.doAbandon(sit))

	default:
		m.appendLine(errorStyle.Render("Unknown command. /help lists commands."))
		m.writeLogContent()
		return m, nil
	}
}

func (m ConsoleUI) usage(u string) (tea.Model, tea.Cmd) {
	m.appendLine(promptStyle.Render("Usage: " + u))
	m.writeLogContent()
	return m, nil
}

func (m ConsoleUI) dispatch(cmd tea.Cmd) (tea.Model, tea.Cmd) {
	m.loading = true
	m.writeLogContent()
	return m, cmd
}

func (m ConsoleUI) situationByIndex(arg string) (*scene.ActiveSituation, error) {
	var n int
	if _, err := fmt.Sscanf(arg, "%d", &n); err != nil || n < 1 || n > len(m.situations) {
		return nil, fmt.Errorf("no active situation %q", arg)
	}
	return m.situations[n-1], nil
}

// refresh reloads the save state and active situations after an action.
func (m ConsoleUI) refresh(lines []string, actionErr error) actionMsg {
	if actionErr != nil {
		return actionMsg{err: actionErr}
	}
	gs, err := getGame(m.client, m.config.APIBaseURL, m.gameState.ID)
	if err != nil {
		return actionMsg{lines: lines, err: err}
	}
	situations := []*scene.ActiveSituation{}
	if !gs.InConversation() {
		if active, err := getSituations(m.client, m.config.APIBaseURL, gs.ID); err == nil {
			situations = active
		}
	}
	return actionMsg{lines: lines, gameState: gs, situations: situations}
}

func (m ConsoleUI) doMove(locationID string) tea.Cmd {
	return func() tea.Msg {
		result, err := moveTo(m.client, m.config.APIBaseURL, m.gameState.ID, locationID, "")
		if err != nil {
			return actionMsg{err: err}
		}
		lines := []string{"You move to " + result.Context.LocationID + "."}
		for _, sit := range result.Situations {
			lines = append(lines, outcomeStyle.Render("Situation: "+sit.Situation.Name))
		}
		return m.refresh(lines, nil)
	}
}

func (m ConsoleUI) doTalk(npcID string) tea.Cmd {
	return func() tea.Msg {
		err := startConversation(m.client, m.config.APIBaseURL, m.gameState.ID, npcID)
		return m.refresh([]string{"You approach " + npcID + "."}, err)
	}
}

func (m ConsoleUI) doPlay(cardID string) tea.Cmd {
	return func() tea.Msg {
		result, err := playCard(m.client, m.config.APIBaseURL, m.gameState.ID, cardID)
		if err != nil {
			return actionMsg{err: err}
		}
		lines := []string{fmt.Sprintf("You play %s: %s", result.CardID, outcomeStyle.Render(string(result.Outcome)))}
		if result.NoEffect {
			lines = append(lines, promptStyle.Render("Nothing comes of it."))
		}
		for _, d := range result.Applied {
			lines = append(lines, "  "+d.Summary)
		}
		return m.refresh(lines, nil)
	}
}

func (m ConsoleUI) doListen() tea.Cmd {
	return func() tea.Msg {
		result, err := listen(m.client, m.config.APIBaseURL, m.gameState.ID)
		if err != nil {
			return actionMsg{err: err}
		}
		lines := []string{fmt.Sprintf("You listen. Doubt cleared: %d.", result.DoubtCleared)}
		if result.Drawn != "" {
			lines = append(lines, "You draw "+result.Drawn+".")
		}
		return m.refresh(lines, nil)
	}
}

func (m ConsoleUI) doDiscard(cardIDs []string) tea.Cmd {
	return func() tea.Msg {
		err := discardDown(m.client, m.config.APIBaseURL, m.gameState.ID, cardIDs)
		return m.refresh([]string{"You set aside " + strings.Join(cardIDs, ", ") + "."}, err)
	}
}

func (m ConsoleUI) doEnd() tea.Cmd {
	return func() tea.Msg {
		err := endConversation(m.client, m.config.APIBaseURL, m.gameState.ID)
		return m.refresh([]string{"The conversation ends."}, err)
	}
}

func (m ConsoleUI) doChoose(sit *scene.ActiveSituation, choiceID string) tea.Cmd {
	return func() tea.Msg {
		result, err := sceneChoice(m.client, m.config.APIBaseURL, m.gameState.ID, sit.SceneID, choiceID)
		if err != nil {
			return actionMsg{err: err}
		}
		var lines []string
		for _, d := range result.Applied {
			lines = append(lines, "  "+d.Summary)
		}
		switch {
		case result.Completed:
			lines = append(lines, outcomeStyle.Render("The scene concludes."))
		case result.Seamless && result.Next != nil:
			lines = append(lines, outcomeStyle.Render("Situation: "+result.Next.Situation.Name))
		}
		return m.refresh(lines, nil)
	}
}

func (m ConsoleUI) doAbandon(sit *scene.ActiveSituation) tea.Cmd {
	return func() tea.Msg {
		err := sceneAbandon(m.client, m.config.APIBaseURL, m.gameState.ID, sit.SceneID)
		return m.refresh([]string{"You walk away from it."}, err)
	}
}

func (m ConsoleUI) loadScenarios() tea.Cmd {
	return func() tea.Msg {
		orderedNames, scenarioMap, err := listScenarios(m.client, m.config.APIBaseURL)
		return scenariosLoadedMsg{orderedNames, scenarioMap, err}
	}
}

func (m ConsoleUI) createGameFromScenario(scenarioFile string) tea.Cmd {
	return func() tea.Msg {
		gs, err := createGame(m.client, m.config.APIBaseURL, scenarioFile)
		return gameCreatedMsg{gs, err}
	}
}

func (m ConsoleUI) updateScenarioModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case scenariosLoadedMsg:
		m.loadingScenarios = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.scenarios = msg.scenarios
			m.scenarioMap = msg.scenarioMap
		}

	case gameCreatedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.gameState = msg.gameState
		m.showScenarioModal = false
		m.resize()
		m.appendLine("You arrive at " + m.gameState.Context.LocationID + ".")
		m.writeLogContent()
		m.metaViewport.SetContent(m.writeMetadata())
		m.textarea.Focus()
		m.ready = true
		return m, tea.Batch(textarea.Blink, m.dispatchInitialSituations())

	case tea.KeyMsg:
		if m.loadingScenarios || m.err != nil {
			if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
				return m, tea.Quit
			}
			return m, nil
		}

		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyUp:
			if m.selectedScenario > 0 {
				m.selectedScenario--
			}
		case tea.KeyDown:
			if m.selectedScenario < len(m.scenarios)-1 {
				m.selectedScenario++
			}
		case tea.KeyEnter:
			if len(m.scenarios) > 0 {
				scenarioName := m.scenarios[m.selectedScenario]
				m.loading = true
				return m, m.createGameFromScenario(m.scenarioMap[scenarioName])
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) dispatchInitialSituations() tea.Cmd {
	return func() tea.Msg {
		return m.refresh(nil, nil)
	}
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit Game?"))
	content.WriteString("\n\n")
	content.WriteString("The save state stays on the server.")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderScenarioModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder

	switch {
	case m.loadingScenarios:
		content.WriteString(modalTitleStyle.Render("Loading Scenarios..."))
	case m.err != nil:
		content.WriteString(modalTitleStyle.Render("Error"))
		content.WriteString("\n\n")
		content.WriteString(errorStyle.Render(m.err.Error()))
		content.WriteString("\n\n")
		content.WriteString("Press Ctrl+C to exit")
	case m.loading:
		content.WriteString(modalTitleStyle.Render("Creating Game..."))
	default:
		content.WriteString(modalTitleStyle.Render("Select a Scenario"))
		content.WriteString("\n\n")
		for i, name := range m.scenarios {
			if i == m.selectedScenario {
				content.WriteString(modalSelectedItemStyle.Render("▶ " + name))
			} else {
				content.WriteString(modalItemStyle.Render("  " + name))
			}
			content.WriteString("\n")
		}
		content.WriteString("\n")
		content.WriteString(promptStyle.Render("Use ↑/↓ to navigate, Enter to select, Ctrl+C to exit"))
	}

	modal := modalStyle.Width(60).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showScenarioModal {
		return m.renderScenarioModal()
	}
	if m.showQuitModal {
		return m.renderQuitModal()
	}
	if !m.ready {
		return "\n  Initializing..."
	}

	logWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - logWidth - 6

	logPanel := logPanelStyle.Width(logWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.logViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", logWidth-4)),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, logPanel, metaPanel)
}
