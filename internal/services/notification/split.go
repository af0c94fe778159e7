package notification

import (
	"strings"
	"unicode/utf8"
)

const sectionSeparator = "\n---\n"

// SplitMessage breaks a markdown report into chunks of at most maxBytes.
// Cuts prefer stock section separators, then line breaks; a single line
// longer than maxBytes is cut on a rune boundary.
func SplitMessage(text string, maxBytes int) []string {
	if maxBytes <= 0 || len(text) <= maxBytes {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}

	for _, section := range splitKeep(text, sectionSeparator) {
		if current.Len()+len(section) <= maxBytes {
			current.WriteString(section)
			continue
		}
		flush()
		if len(section) <= maxBytes {
			current.WriteString(section)
			continue
		}

		for _, line := range splitKeep(section, "\n") {
			if current.Len()+len(line) <= maxBytes {
				current.WriteString(line)
				continue
			}
			flush()
			for len(line) > maxBytes {
				cut := runeBoundary(line, maxBytes)
				chunks = append(chunks, line[:cut])
				line = line[cut:]
			}
			current.WriteString(line)
		}
	}
	flush()

	return chunks
}

// splitKeep splits s after each sep, keeping sep attached to the left piece
func splitKeep(s, sep string) []string {
	parts := strings.SplitAfter(s, sep)
	if len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

func runeBoundary(s string, limit int) int {
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	if cut == 0 {
		_, size := utf8.DecodeRuneInString(s)
		return size
	}
	return cut
}
