package captions

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Segment is one timed utterance as produced by a speech recognizer.
type Segment interface {
	Start() float64
	End() float64
	Text() string
}

// Cue is a Segment with named fields.
type Cue struct {
	StartSec float64 `json:"start"`
	EndSec   float64 `json:"end"`
	Line     string  `json:"text"`
}

func (c Cue) Start() float64 { return c.StartSec }
func (c Cue) End() float64   { return c.EndSec }
func (c Cue) Text() string   { return c.Line }

// SegmentMap adapts a decoded JSON object ("start", "end", "text") to Segment.
// Missing or mistyped keys read as zero values.
type SegmentMap map[string]any

func (m SegmentMap) Start() float64 { return number(m["start"]) }
func (m SegmentMap) End() float64   { return number(m["end"]) }

func (m SegmentMap) Text() string {
	s, _ := m["text"].(string)
	return s
}

func number(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f
	default:
		return 0
	}
}
