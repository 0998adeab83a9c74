package captions

import "fmt"

// Compare reports structural differences between an original payload's entries
// and a translated one. An empty result means numbering and timing match.
func Compare(original, translated []Entry) []string {
	var issues []string
	if len(original) != len(translated) {
		issues = append(issues, fmt.Sprintf("entry_count_mismatch: original=%d translated=%d", len(original), len(translated)))
	}
	n := min(len(original), len(translated))
	for i := 0; i < n; i++ {
		want, got := original[i], translated[i]
		if got.Index != want.Index {
			issues = append(issues, fmt.Sprintf("index_mismatch: entry %d numbered %d", want.Index, got.Index))
		}
		if !sameInstant(got.Start, want.Start) || !sameInstant(got.End, want.End) {
			issues = append(issues, fmt.Sprintf("timing_mismatch: entry %d has %q want %q", want.Index, got.Timing(), want.Timing()))
		}
	}
	return issues
}

// Reconcile restores the original numbering and timing on translated entries.
// It returns false when the entry counts differ and nothing can be aligned.
func Reconcile(original, translated []Entry) ([]Entry, bool) {
	if len(original) != len(translated) {
		return nil, false
	}
	out := make([]Entry, len(original))
	for i, want := range original {
		out[i] = Entry{
			Index: want.Index,
			Start: want.Start,
			End:   want.End,
			Text:  translated[i].Text,
		}
	}
	return out, true
}

func sameInstant(a, b string) bool {
	if a == b {
		return true
	}
	ma, errA := parseMillis(a)
	mb, errB := parseMillis(b)
	return errA == nil && errB == nil && ma == mb
}
