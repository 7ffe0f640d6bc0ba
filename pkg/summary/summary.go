// Package summary builds extractive teasers from normalized article text.
// Nothing here is generated, summaries are prefixes of the source text.
package summary

import (
	"regexp"
	"strings"
)

const (
	execSentences  = 2   // sentences taken into the exec summary
	execFallback   = 180 // runes kept when no sentence can be found
	maxSentenceLen = 400 // first sentence longer than this is not a sentence
	detailMinLen   = 50  // shorter descriptions are returned as is
	detailMaxLen   = 700 // longer descriptions are truncated
	ellipsis       = "…"
)

var sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]+`)

// Exec returns first two sentences of the text joined with a single space.
// If no terminated sentence found within a reasonable span, it falls back to the first
// 180 runes, with ellipsis appended when the text was cut.
func Exec(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	chunks := sentenceRe.FindAllString(text, execSentences)
	sentences := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if c = strings.TrimSpace(c); c != "" {
			sentences = append(sentences, c)
		}
	}
	if len(sentences) == 0 || len([]rune(sentences[0])) > maxSentenceLen {
		return truncate(text, execFallback)
	}
	return strings.Join(sentences, " ")
}

// Detail returns a longer excerpt: short text as is, long text cut at 700 runes
func Detail(text string) string {
	text = strings.TrimSpace(text)
	if len([]rune(text)) < detailMinLen {
		return text
	}
	return truncate(text, detailMaxLen)
}

// truncate cuts text to max runes and appends ellipsis if anything was cut
func truncate(text string, maxRunes int) string {
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	return string(runes[:maxRunes]) + ellipsis
}
