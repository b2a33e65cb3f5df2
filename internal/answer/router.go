package answer

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"parlrag/internal/domain"
	"parlrag/internal/prompt"
)

// NoInformation is the fixed reply when the context carries no usable date.
const NoInformation = "The context does not contain this information."

// MaxCitations caps the Doc numbers cited in a metadata-derived answer.
const MaxCitations = 10

// Intent is the class a question falls into.
type Intent int

const (
	// General questions are answered by the generation service.
	General Intent = iota
	// DateSeeking questions are answered from the prompt's date markers.
	DateSeeking
)

func (i Intent) String() string {
	if i == DateSeeking {
		return "date"
	}
	return "general"
}

var dateIntentPatterns = []string{
	"on what date",
	"on what dates",
	"what date",
	"what dates",
	"when did",
	"date did",
}

var (
	docDateRe = regexp.MustCompile(`\[Document date:\s*(\d{4}-\d{1,2}-\d{1,2})\]`)
	docRefRe  = regexp.MustCompile(`\[Doc\s+(\d+)\]`)
)

// Classify reports whether the question asks for a date.
func Classify(question string) Intent {
	q := strings.ToLower(question)
	for _, p := range dateIntentPatterns {
		if strings.Contains(q, p) {
			return DateSeeking
		}
	}
	return General
}

// ExtractDates returns the unique calendar dates found in "[Document date: ...]"
// markers, oldest first, formatted as YYYY-MM-DD. Markers that are not valid
// dates are ignored.
func ExtractDates(text string) []string {
	seen := make(map[time.Time]struct{})
	var dates []time.Time
	for _, m := range docDateRe.FindAllStringSubmatch(text, -1) {
		d, err := time.Parse("2006-1-2", m[1])
		if err != nil {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format(time.DateOnly)
	}
	return out
}

// ExtractDocRefs returns the Doc numbers of "[Doc N]" markers in order of first
// appearance, without repeats.
func ExtractDocRefs(text string) []string {
	seen := make(map[string]struct{})
	var refs []string
	for _, m := range docRefRe.FindAllStringSubmatch(text, -1) {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		refs = append(refs, m[1])
	}
	return refs
}

// DateAnswer builds the metadata-only reply for a date question.
func DateAnswer(text string) string {
	dates := ExtractDates(text)
	if len(dates) == 0 {
		return NoInformation
	}
	refs := ExtractDocRefs(text)
	if len(refs) > MaxCitations {
		refs = refs[:MaxCitations]
	}
	cites := make([]string, len(refs))
	for i, n := range refs {
		cites[i] = "Doc " + n
	}
	cite := strings.Join(cites, ", ")
	if len(dates) == 1 {
		return fmt.Sprintf("The speech date is %s. (%s)", dates[0], cite)
	}
	return fmt.Sprintf("The speech dates are: %s. (%s)", strings.Join(dates, ", "), cite)
}

// QuestionFromPrompt recovers the question from a rendered prompt.
func QuestionFromPrompt(text string) string {
	i := strings.LastIndex(text, prompt.QuestionMarker)
	if i < 0 {
		return ""
	}
	q := text[i+len(prompt.QuestionMarker):]
	q = strings.TrimSuffix(strings.TrimRight(q, " \t\r\n"), prompt.AnswerMarker)
	return strings.TrimSpace(q)
}

// Result is a routed answer.
type Result struct {
	Text          string
	Intent        Intent
	Deterministic bool
}

// Router answers date questions from prompt metadata and hands everything else
// to the generation service.
type Router struct {
	generator domain.Generator
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// NewRouter creates a router. Consecutive generation calls are spaced at
// least pacing apart; zero disables pacing.
func NewRouter(generator domain.Generator, pacing time.Duration, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	limit := rate.Inf
	if pacing > 0 {
		limit = rate.Every(pacing)
	}
	return &Router{generator: generator, limiter: rate.NewLimiter(limit, 1), logger: logger}
}

// Route answers a rendered prompt, reading the question back out of it.
func (r *Router) Route(ctx context.Context, text string) (Result, error) {
	return r.Answer(ctx, QuestionFromPrompt(text), text)
}

// Answer routes question using the already rendered prompt. Generation errors
// are returned unchanged in kind; there is no fallback text.
func (r *Router) Answer(ctx context.Context, question, text string) (Result, error) {
	intent := Classify(question)
	if intent == DateSeeking {
		r.logger.Debug("answer_from_metadata", slog.String("intent", intent.String()))
		return Result{Text: DateAnswer(text), Intent: intent, Deterministic: true}, nil
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return Result{}, fmt.Errorf("pacing: %w", err)
	}
	start := time.Now()
	out, err := r.generator.Generate(ctx, text)
	if err != nil {
		return Result{}, fmt.Errorf("generate answer: %w", err)
	}
	r.logger.Debug("answer_generated",
		slog.String("model", r.generator.Version()),
		slog.Duration("elapsed", time.Since(start)),
	)
	return Result{Text: strings.TrimSpace(out), Intent: intent}, nil
}
