package analysis

import (
	"fmt"
	"io"
)

// Render writes the four top-n sections of the report.
func (r Report) Render(w io.Writer, n int) error {
	ew := &errWriter{w: w}
	ew.printf("Records: %d\n", r.Records)

	ew.printf("\n=== Top %d most UNSTABLE configs (across k) ===\n", n)
	for _, s := range r.MostUnstable(n) {
		ew.printf("%s | %s | n=%d | mean_cos=%.3f\n", s.QueryID, s.Config, s.N, s.MeanCos)
	}
	ew.printf("\n=== Top %d most STABLE configs (across k) ===\n", n)
	for _, s := range r.MostStable(n) {
		ew.printf("%s | %s | n=%d | mean_cos=%.3f\n", s.QueryID, s.Config, s.N, s.MeanCos)
	}

	if len(r.Agreement) == 0 {
		ew.printf("\nNo %s vs %s pairs found; check that the runs include both representations.\n", r.Lexical, r.Semantic)
		return ew.err
	}
	ew.printf("\n=== Top %d most DIVERGENT %s vs %s (low cos) ===\n", n, r.Lexical, r.Semantic)
	for _, a := range r.MostDivergent(n) {
		ew.printf("%s | %s vs %s | k=%d | cos=%.3f\n", a.QueryID, a.Lexical, a.Semantic, a.K, a.Cos)
	}
	ew.printf("\n=== Top %d most ALIGNED %s vs %s (high cos) ===\n", n, r.Lexical, r.Semantic)
	for _, a := range r.MostAligned(n) {
		ew.printf("%s | %s vs %s | k=%d | cos=%.3f\n", a.QueryID, a.Lexical, a.Semantic, a.K, a.Cos)
	}
	return ew.err
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
