package captions

import (
	"fmt"
	"strconv"
	"strings"
)

// Entry is one numbered SRT block.
type Entry struct {
	Index int    `json:"index"`
	Start string `json:"start"`
	End   string `json:"end"`
	Text  string `json:"text"`
}

// Timing returns the "start --> end" line of the entry.
func (e Entry) Timing() string {
	return e.Start + " --> " + e.End
}

func (e Entry) String() string {
	return strconv.Itoa(e.Index) + "\n" + e.Timing() + "\n" + e.Text + "\n\n"
}

// Entries converts segments to numbered entries, preserving input order.
// Blank lines inside a segment's text are removed. Segments whose text trims
// to nothing still get an entry so numbering stays
// aligned with timing. An end before the start is clamped to the start.
func Entries[S Segment](segments []S) ([]Entry, error) {
	entries := make([]Entry, 0, len(segments))
	for i, seg := range segments {
		index := i + 1
		startSec, endSec := seg.Start(), seg.End()
		if endSec < startSec {
			endSec = startSec
		}
		start, err := FormatTimestamp(startSec)
		if err != nil {
			return nil, fmt.Errorf("caption %d: start: %w", index, err)
		}
		end, err := FormatTimestamp(endSec)
		if err != nil {
			return nil, fmt.Errorf("caption %d: end: %w", index, err)
		}
		entries = append(entries, Entry{
			Index: index,
			Start: start,
			End:   end,
			Text:  cueText(seg.Text()),
		})
	}
	return entries, nil
}

// cueText trims text and drops blank lines inside it, since a blank line
// terminates an entry.
func cueText(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimRight(line, " \t\r")
		if strings.TrimSpace(line) != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// Render concatenates entries into a caption payload.
func Render(entries []Entry) string {
	var sb strings.Builder
	for _, e := range entries {
		sb.WriteString(e.String())
	}
	return sb.String()
}

// Assemble builds the SRT payload for segments. An empty input yields "".
func Assemble[S Segment](segments []S) (string, error) {
	entries, err := Entries(segments)
	if err != nil {
		return "", err
	}
	return Render(entries), nil
}
