package captions

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformed is returned by Parse when a payload does not follow the SRT layout.
var ErrMalformed = errors.New("captions: malformed payload")

// Parse reads a caption payload back into entries. Each entry is an index line,
// a timing line and zero or more text lines ending at a blank line.
func Parse(payload string) ([]Entry, error) {
	payload = strings.ReplaceAll(payload, "\r\n", "\n")
	lines := strings.Split(payload, "\n")

	var entries []Entry
	for i := 0; i < len(lines); {
		if strings.TrimSpace(lines[i]) == "" {
			i++
			continue
		}
		index, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(lines[i], "\ufeff")))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: expected caption index, got %q", ErrMalformed, i+1, lines[i])
		}
		i++
		if i >= len(lines) {
			return nil, fmt.Errorf("%w: caption %d: missing timing line", ErrMalformed, index)
		}
		start, end, err := splitTiming(lines[i])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, i+1, err)
		}
		i++
		var text []string
		for i < len(lines) && strings.TrimSpace(lines[i]) != "" {
			text = append(text, lines[i])
			i++
		}
		entries = append(entries, Entry{
			Index: index,
			Start: start,
			End:   end,
			Text:  strings.Join(text, "\n"),
		})
	}
	return entries, nil
}

func splitTiming(line string) (string, string, error) {
	left, right, ok := strings.Cut(line, "-->")
	if !ok {
		return "", "", fmt.Errorf("expected timing line, got %q", line)
	}
	start := strings.TrimSpace(left)
	end := strings.TrimSpace(right)
	if _, err := parseMillis(start); err != nil {
		return "", "", err
	}
	if _, err := parseMillis(end); err != nil {
		return "", "", err
	}
	return start, end, nil
}
