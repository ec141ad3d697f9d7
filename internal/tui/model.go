package tui

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/mnemo/internal/catalog"
	"github.com/verte-zerg/mnemo/internal/engine"
	"github.com/verte-zerg/mnemo/internal/model"
	statsPkg "github.com/verte-zerg/mnemo/internal/stats"
	"github.com/verte-zerg/mnemo/internal/store"
)

// Model implements the Bubble Tea gameplay UI around an engine.Session.
type Model struct {
	session *engine.Session
	store   *store.Store
	game    model.Game
	cols    int
	rows    int

	width  int
	height int

	cursor int
	saved  bool

	lastAcc float64
	lastMs  int64
	hasLast bool

	allCorrect   int
	allIncorrect int
	allSessions  int
}

var (
	hiddenStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C")).Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#4A4A4A"))
	shownStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#6E6E6E"))
	cursorOnStyle = shownStyle.Copy().BorderForeground(lipgloss.Color("#C89A3A"))
	hitStyle      = shownStyle.Copy().BorderForeground(lipgloss.Color("#52C41A"))
	missStyle     = shownStyle.Copy().BorderForeground(lipgloss.Color("#FF4D4F"))
	promptStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	noticeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	footerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// NewModel constructs a gameplay model. The session must not be started
// yet; Begin is called here so the first round exists before the first
// View.
func NewModel(session *engine.Session, store *store.Store, game model.Game, cols, rows int) (*Model, error) {
	m := &Model{
		session: session,
		store:   store,
		game:    game,
		cols:    cols,
		rows:    rows,
	}
	if err := session.Begin(); err != nil {
		return nil, err
	}
	m.loadFooterStats()
	return m, nil
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "p":
		if m.session.Phase() != engine.PhaseFinished {
			m.session.SetPaused(!m.session.Paused())
		}
		return m, nil
	case "r":
		if err := m.session.Reset(); err != nil {
			logErrf("failed to restart session: %v\n", err)
			return m, tea.Quit
		}
		m.cursor = 0
		m.saved = false
		return m, nil
	}
	if m.session.Paused() {
		return m, nil
	}
	switch m.session.Phase() {
	case engine.PhaseStudy:
		if msg.String() == "enter" || msg.String() == " " {
			m.session.FinishStudy()
			m.cursor = 0
		}
	case engine.PhaseQuiz:
		m.handleQuizKey(msg)
	case engine.PhaseFeedback, engine.PhaseDone:
		if msg.String() == "enter" || msg.String() == " " {
			if err := m.advance(); err != nil {
				logErrf("failed to build next round: %v\n", err)
				return m, tea.Quit
			}
		}
	case engine.PhaseFinished:
		if msg.String() == "enter" || msg.String() == "q" {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *Model) handleQuizKey(msg tea.KeyMsg) {
	slotCount := m.session.Round().SlotCount
	cols := m.gridCols()
	switch msg.String() {
	case "left", "h":
		if m.cursor > 0 {
			m.cursor--
		}
	case "right", "l":
		if m.cursor < slotCount-1 {
			m.cursor++
		}
	case "up", "k":
		if m.cursor-cols >= 0 {
			m.cursor -= cols
		}
	case "down", "j":
		if m.cursor+cols < slotCount {
			m.cursor += cols
		}
	case "enter", " ":
		m.session.Select(m.cursor)
	}
}

// advance steps past feedback or a round summary, persisting once the
// session reaches its terminal phase.
func (m *Model) advance() error {
	if err := m.session.Advance(); err != nil {
		return err
	}
	if m.session.Phase() == engine.PhaseQuiz {
		m.cursor = 0
	}
	if m.session.Phase() == engine.PhaseFinished {
		m.finishSession()
	}
	return nil
}

// gridCols returns the board width in cells. The oddone board is a single
// row of options.
func (m *Model) gridCols() int {
	if m.game == model.GameOddOne {
		return m.session.Round().SlotCount
	}
	return m.cols
}

// View implements tea.Model.
func (m *Model) View() string {
	content := m.renderPhase()
	if m.session.Paused() {
		content = noticeStyle.Render("Paused — press p to resume")
	}
	footer := m.renderFooter()
	if m.width == 0 || m.height == 0 {
		if footer == "" {
			return content
		}
		return content + "\n\n" + footer
	}
	if footer == "" || m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	bodyHeight := m.height - 1
	body := lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) renderPhase() string {
	switch m.session.Phase() {
	case engine.PhaseStudy:
		return m.renderStudy()
	case engine.PhaseQuiz:
		return m.renderQuiz()
	case engine.PhaseFeedback:
		return m.renderFeedback()
	case engine.PhaseDone:
		return m.renderDone()
	default:
		return m.renderFinished()
	}
}

func (m *Model) renderStudy() string {
	lines := []string{
		promptStyle.Render("Memorize the positions"),
		"",
		m.renderCells(boardStudy),
		"",
		footerStyle.Render("enter: start  p: pause  r: restart  ctrl+c: quit"),
	}
	return lipgloss.JoinVertical(lipgloss.Center, lines...)
}

func (m *Model) renderQuiz() string {
	trial := m.session.CurrentTrial()
	if trial == nil {
		return ""
	}
	prompt := m.quizPrompt(trial.Spec)
	lines := []string{
		promptStyle.Render(prompt),
		"",
		m.renderCells(boardQuiz),
		"",
		footerStyle.Render("arrows: move  enter: answer  p: pause"),
	}
	return lipgloss.JoinVertical(lipgloss.Center, lines...)
}

func (m *Model) quizPrompt(spec engine.TrialSpec) string {
	if m.game == model.GameOddOne {
		return "Which one does not belong?"
	}
	glyph := spec.TargetID
	if item, ok := m.itemByID(spec.TargetID); ok {
		glyph = item.Glyph
	}
	if spec.Delayed {
		return fmt.Sprintf("From an earlier round: where was %s ?", glyph)
	}
	return fmt.Sprintf("Where was %s ?", glyph)
}

func (m *Model) renderFeedback() string {
	trial := m.session.CurrentTrial()
	if trial == nil {
		return ""
	}
	var verdict string
	switch trial.Result {
	case engine.Correct:
		verdict = hitStyle.Copy().UnsetBorderStyle().Render("Correct!")
	case engine.Confusable:
		verdict = noticeStyle.Render("Close — same category, wrong answer.")
	default:
		verdict = missStyle.Copy().UnsetBorderStyle().Render("Not quite.")
	}
	lines := []string{
		verdict,
		"",
		m.renderCells(boardFeedback),
		"",
		footerStyle.Render("enter: continue"),
	}
	return lipgloss.JoinVertical(lipgloss.Center, lines...)
}

func (m *Model) renderDone() string {
	result := m.session.LastResult()
	title := fmt.Sprintf("Round %d complete — %d/%d (%.0f%%)",
		result.Index, result.Correct, result.Trials, result.Accuracy*100)
	lines := []string{promptStyle.Render(title)}
	if result.Fatigued {
		lines = append(lines, "", noticeStyle.Render("Accuracy dropped sharply — ending the session here."))
	}
	lines = append(lines, "", footerStyle.Render("enter: continue"))
	return lipgloss.JoinVertical(lipgloss.Center, lines...)
}

func (m *Model) renderFinished() string {
	rec, _ := m.session.Summary()
	acc := statsPkg.Accuracy(rec.Correct, rec.Confusable+rec.Miss)
	lines := []string{
		promptStyle.Render("Session complete"),
		"",
		fmt.Sprintf("Rounds    %d", rec.Rounds),
		fmt.Sprintf("Accuracy  %.0f%% (%d/%d)", acc*100, rec.Correct, rec.Trials),
		fmt.Sprintf("Response  %d ms avg", rec.AvgLatencyMs),
	}
	if rec.EndedEarly {
		lines = append(lines, "", noticeStyle.Render("Ended early"))
	}
	lines = append(lines, "", footerStyle.Render("r: play again  q: quit"))
	return lipgloss.JoinVertical(lipgloss.Center, lines...)
}

type boardMode int

const (
	boardStudy boardMode = iota
	boardQuiz
	boardFeedback
)

// renderCells maps the round's slot assignment to board cells for the
// current phase. In quiz mode the recall board hides its glyphs; the
// oddone board always shows them.
func (m *Model) renderCells(mode boardMode) string {
	round := m.session.Round()
	glyphBySlot := make(map[int]string, len(round.Items))
	for _, item := range round.Items {
		glyphBySlot[round.Slots[item.ID]] = item.Glyph
	}
	hide := mode == boardQuiz && m.game == model.GameRecall

	var trial *engine.Trial
	if mode == boardFeedback {
		trial = m.session.CurrentTrial()
	}

	cells := make([]boardCell, round.SlotCount)
	for slot := 0; slot < round.SlotCount; slot++ {
		glyph, occupied := glyphBySlot[slot]
		cell := boardCell{style: shownStyle}
		switch {
		case hide:
			cell.content = "·"
			cell.style = hiddenStyle
		case occupied:
			cell.content = glyph
		default:
			cell.content = " "
			cell.style = hiddenStyle
		}
		if mode == boardQuiz && slot == m.cursor {
			cell.style = cursorOnStyle
		}
		if trial != nil {
			if slot == trial.Spec.CorrectSlot {
				cell.style = hitStyle
			} else if trial.Answered && slot == trial.PickedSlot {
				cell.style = missStyle
			}
		}
		cells[slot] = cell
	}
	return renderBoard(cells, m.gridCols())
}

func (m *Model) itemByID(id string) (catalog.Item, bool) {
	round := m.session.Round()
	for _, item := range round.Items {
		if item.ID == id {
			return item, true
		}
	}
	return catalog.Item{}, false
}

func (m *Model) loadFooterStats() {
	ctx := context.Background()
	sessions, err := m.store.ListSessions(ctx, model.StatsConfig{Game: string(m.game)})
	if err != nil {
		logErrf("failed to load session stats: %v\n", err)
		return
	}
	if len(sessions) == 0 {
		return
	}
	last := sessions[len(sessions)-1]
	m.lastAcc = statsPkg.Accuracy(last.Correct, last.Incorrect)
	m.lastMs = last.AvgLatencyMs
	m.hasLast = true
	for _, s := range sessions {
		m.allCorrect += s.Correct
		m.allIncorrect += s.Incorrect
	}
	m.allSessions = len(sessions)
}

func (m *Model) renderFooter() string {
	trialNum, trialCount := m.session.TrialProgress()
	segments := []string{
		fmt.Sprintf("Round %d/%d", m.session.Round().Index, m.session.RoundCap()),
	}
	phase := m.session.Phase()
	if phase == engine.PhaseQuiz || phase == engine.PhaseFeedback {
		segments = append(segments, fmt.Sprintf("Trial %d/%d", trialNum, trialCount))
	}
	segments = append(segments, fmt.Sprintf("Difficulty %.2f", m.session.Difficulty()))
	if m.hasLast {
		segments = append(segments, fmt.Sprintf("Last %.0f%% · %d ms", m.lastAcc*100, m.lastMs))
	}
	if m.allSessions > 0 {
		segments = append(segments, fmt.Sprintf("All-time %.0f%% over %d sessions",
			statsPkg.Accuracy(m.allCorrect, m.allIncorrect)*100, m.allSessions))
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}

func (m *Model) finishSession() {
	if m.saved {
		return
	}
	m.saved = true
	rec, rounds := m.session.Summary()
	ctx := context.Background()
	if _, err := m.store.InsertSession(ctx, rec, rounds); err != nil {
		logErrf("failed to save session: %v\n", err)
	}
	acc := statsPkg.Accuracy(rec.Correct, rec.Confusable+rec.Miss)
	if err := m.store.SaveOutcome(ctx, m.game, acc, float64(rec.AvgLatencyMs)); err != nil {
		logErrf("failed to save progress: %v\n", err)
	}
	m.lastAcc = acc
	m.lastMs = rec.AvgLatencyMs
	m.hasLast = true
	m.allCorrect += rec.Correct
	m.allIncorrect += rec.Confusable + rec.Miss
	m.allSessions++
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf("failed to write to stderr: %v\n", err)
	}
}
