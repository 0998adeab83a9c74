package translation

import (
	"fmt"
	"strings"
)

const captionPrompt = `You are a professional subtitle translator.

Translate the dialogue in the following SRT subtitle data into %s.

Rules:
1. Keep the SRT layout exactly: sequence numbers, timestamps, the "-->" arrows and the blank lines between entries.
2. Translate only the dialogue lines. Never change numbers or timestamps.
3. Keep one translated block per source block, in the same order, even when a block has no text.
4. Reply with the SRT data only, with no introduction, notes or code fences.
5. Keep the tone and context of the original speech.

Input SRT:
%s`

const transcriptPrompt = `You are a professional translator.

Translate the following transcript into %s. Keep the meaning, tone and paragraph breaks. Reply with the translation only, with no introduction or notes.

Transcript:
%s`

// BuildPrompt wraps text in the instructions for its kind.
func BuildPrompt(kind Kind, text, languageName string) string {
	tmpl := captionPrompt
	if kind == KindTranscript {
		tmpl = transcriptPrompt
	}
	return fmt.Sprintf(tmpl, languageName, text)
}

// stripFence removes a Markdown code fence wrapped around the whole reply.
func stripFence(reply string) string {
	s := strings.TrimSpace(reply)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	nl := strings.IndexByte(s, '\n')
	if nl < 0 {
		return s
	}
	body := s[nl+1:]
	if end := strings.LastIndex(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}
