// Package media classifies uploaded files by content rather than by name.
package media

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Kind is the broad class of a media file.
type Kind string

const (
	KindVideo   Kind = "video"
	KindAudio   Kind = "audio"
	KindUnknown Kind = "unknown"
)

// Info is the result of sniffing a file.
type Info struct {
	MIME      string
	Extension string
	Kind      Kind
}

// Detect sniffs the file at path.
func Detect(path string) (Info, error) {
	m, err := mimetype.DetectFile(path)
	if err != nil {
		return Info{}, fmt.Errorf("detect media type: %w", err)
	}
	return classify(m), nil
}

func classify(m *mimetype.MIME) Info {
	info := Info{MIME: m.String(), Extension: m.Extension(), Kind: KindUnknown}
	for cur := m; cur != nil; cur = cur.Parent() {
		switch {
		case strings.HasPrefix(cur.String(), "video/"):
			info.Kind = KindVideo
			return info
		case strings.HasPrefix(cur.String(), "audio/"):
			info.Kind = KindAudio
			return info
		}
	}
	return info
}

// IsAudio reports whether the file can be sent to a recognizer without
// extraction.
func (i Info) IsAudio() bool { return i.Kind == KindAudio }
