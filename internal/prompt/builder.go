package prompt

import (
	"fmt"
	"sort"
	"strings"

	"parlrag/internal/domain"
)

const instructions = "You are an assistant for parliamentary debates.\n" +
	"Answer using ONLY the context below.\n" +
	"If the answer is not in the context, say: \"The context does not contain this information.\".\n" +
	"\n" +
	"IMPORTANT RULES:\n" +
	"- If the question asks for a DATE (e.g., \"On what date(s)\") and the date is provided in the metadata\n" +
	"  (Document date / source line), you MUST use those dates.\n" +
	"- When listing dates, output unique dates in chronological order.\n" +
	"- Cite the Doc number(s) after each claim.\n" +
	"\n" +
	"CONTEXT:\n"

// Markers shared with the answer router, which reads them back out of the
// rendered prompt.
const (
	QuestionMarker = "QUESTION:"
	AnswerMarker   = "ANSWER:"
)

// Build renders the question and its ranked passages into a prompt. Each
// passage becomes a "[Doc i]" block with its source line and a restated
// "[Document date: ...]" line. The returned sources are the unique
// "filename | chunk_id | date | parliament" references, sorted.
func Build(query string, retrieved []domain.RetrievedPassage) (string, []string) {
	blocks := make([]string, 0, len(retrieved))
	seen := make(map[string]struct{}, len(retrieved))
	sources := make([]string, 0, len(retrieved))

	for i, p := range retrieved {
		date := orUnknown(p.Date)
		ref := SourceRef(p)
		if _, ok := seen[ref]; !ok {
			seen[ref] = struct{}{}
			sources = append(sources, ref)
		}
		blocks = append(blocks, fmt.Sprintf("[Doc %d] (source: %s)\n[Document date: %s]\n%s", i+1, ref, date, p.Text))
	}
	sort.Strings(sources)

	var sb strings.Builder
	sb.WriteString(instructions)
	sb.WriteString(strings.Join(blocks, "\n\n"))
	sb.WriteString("\n\n")
	sb.WriteString(QuestionMarker)
	sb.WriteString(" ")
	sb.WriteString(query)
	sb.WriteString("\n")
	sb.WriteString(AnswerMarker)
	return sb.String(), sources
}

// SourceRef formats the citation reference for a passage.
func SourceRef(p domain.RetrievedPassage) string {
	return fmt.Sprintf("%s | %s | %s | %s", orUnknown(p.Filename), orUnknown(p.ChunkID), orUnknown(p.Date), orUnknown(p.Parliament))
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
