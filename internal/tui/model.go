package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"parlrag/internal/prompt"
	"parlrag/internal/service"
)

// RAGPort is the TUI-facing subset of the question-answering service.
type RAGPort interface {
	Ask(ctx context.Context, query string, k int, representation string) (*service.Answer, error)
}

type answerMsg struct {
	answer *service.Answer
	err    error
}

// Model is the Bubble Tea model for the question/answer view. Page 0 shows
// the answer and its sources; pages 1..n show the retrieved passages.
type Model struct {
	ctx             context.Context
	service         RAGPort
	representations []string
	rep             int
	k               int
	input           textinput.Model
	viewport        viewport.Model
	answer          *service.Answer
	summary         string
	status          string
	page            int
	ready           bool
	busy            bool
}

// New creates a new TUI model. representations lists the selectable
// retrieval representations; the first is active initially.
func New(ctx context.Context, svc RAGPort, representations []string, k int, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		ctx:             ctx,
		service:         svc,
		representations: representations,
		k:               k,
		input:           ti,
		viewport:        vp,
		summary:         summary,
		status:          "Loaded. Tab switches retrieval, up/down pages through passages.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) representation() string {
	if len(m.representations) == 0 {
		return ""
	}
	return m.representations[m.rep]
}

func (m Model) ask(q string) tea.Cmd {
	ctx, svc, k, rep := m.ctx, m.service, m.k, m.representation()
	return func() tea.Msg {
		a, err := svc.Ask(ctx, q, k, rep)
		return answerMsg{answer: a, err: err}
	}
}

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header+summary, status, spacer
		vh := max(3, msg.Height-reserved)
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderPage())
		return m, nil
	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.answer = nil
		} else {
			m.answer = msg.answer
			m.page = 0
			kind := "generated"
			if msg.answer.Deterministic {
				kind = "deterministic"
			}
			m.status = fmt.Sprintf("%s answer via %s, k=%d, %d passages", kind, msg.answer.Representation, msg.answer.K, len(msg.answer.Passages))
		}
		m.viewport.SetContent(m.renderPage())
		m.viewport.GotoTop()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" && !m.busy {
				m.busy = true
				m.status = fmt.Sprintf("Answering %q via %s...", q, m.representation())
				return m, m.ask(q)
			}
		case "tab":
			if len(m.representations) > 1 {
				m.rep = (m.rep + 1) % len(m.representations)
				m.status = "Retrieval: " + m.representation()
				return m, nil
			}
		case "down":
			if n := m.pages(); n > 1 {
				m.page = (m.page + 1) % n
				m.viewport.SetContent(m.renderPage())
				return m, nil
			}
		case "up":
			if n := m.pages(); n > 1 {
				m.page = (m.page - 1 + n) % n
				m.viewport.SetContent(m.renderPage())
				return m, nil
			}
		case "pgdown":
			m.viewport.HalfViewDown()
			return m, nil
		case "pgup":
			m.viewport.HalfViewUp()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the TUI layout and current page.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Parliament Debates QA") +
		lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render("  ["+m.representation()+"]")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) pages() int {
	if m.answer == nil {
		return 0
	}
	return 1 + len(m.answer.Passages)
}

func (m Model) renderPage() string {
	if m.answer == nil {
		return "No answer yet."
	}
	if m.page == 0 {
		return renderAnswer(m.answer)
	}
	p := m.answer.Passages[m.page-1]
	title := fmt.Sprintf("Passage %d/%d  score=%.3f", m.page, len(m.answer.Passages), p.Score)
	meta := metaStyle.Render(prompt.SourceRef(p))
	return title + "\n" + meta + "\n\n" + highlightBestSentence(p.Text, m.answer.Query)
}

func renderAnswer(a *service.Answer) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Answer"))
	b.WriteString("\n\n")
	b.WriteString(a.Text)
	b.WriteString("\n\n")
	b.WriteString(titleStyle.Render(fmt.Sprintf("Sources (%d)", len(a.Sources))))
	for _, s := range a.Sources {
		b.WriteString("\n- ")
		b.WriteString(metaStyle.Render(s))
	}
	return b.String()
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	titleStyle     = lipgloss.NewStyle().Bold(true).Underline(true)
	metaStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	unicodeWordRe  = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe     = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
)

// highlightBestSentence emphasises the sentence sharing the most distinct
// words with the question.
func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		sentences = []string{strings.TrimSpace(text)}
	}
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx, bestScore := 0, -1
	for i, s := range sentences {
		if score := tokenOverlapScore(qTokens, s); score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	for i := range sentences {
		sent := strings.TrimSpace(sentences[i])
		if i == bestIdx {
			sentences[i] = highlightStyle.Render(sent)
		} else {
			sentences[i] = sent
		}
	}
	return strings.Join(sentences, " ")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	seen := make(map[string]struct{})
	for _, t := range unicodeWordRe.FindAllString(strings.ToLower(sentence), -1) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
