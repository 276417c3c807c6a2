package docs

import (
	"strings"
	"unicode/utf8"
)

// Split slices text into overlapping chunks of at most size runes.
// Boundaries prefer, in order: paragraph breaks, line breaks, spaces, and
// finally hard rune cuts. Consecutive chunks share overlap runes so that
// sentences spanning a boundary stay retrievable.
func Split(text string, size, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			chunk := strings.TrimSpace(string(runes[start:]))
			if chunk != "" {
				chunks = append(chunks, chunk)
			}
			break
		}

		cut := boundaryBefore(runes, start, end)
		chunk := strings.TrimSpace(string(runes[start:cut]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := cut - overlap
		if next <= start {
			// Overlap would stall progress; advance past the cut.
			next = cut
		}
		start = next
	}

	return chunks
}

// boundaryBefore finds the best split position in (start, limit], searching
// backwards from limit for a paragraph break, then a newline, then a space.
// It never returns a position that would produce an empty chunk.
func boundaryBefore(runes []rune, start, limit int) int {
	// Don't search further back than half the window; a tiny chunk is
	// worse than a mid-sentence cut.
	floor := start + (limit-start)/2

	if pos := lastIndexRunes(runes, floor, limit, "\n\n"); pos > floor {
		return pos
	}
	if pos := lastIndexRunes(runes, floor, limit, "\n"); pos > floor {
		return pos
	}
	if pos := lastIndexRunes(runes, floor, limit, " "); pos > floor {
		return pos
	}
	return limit
}

// lastIndexRunes finds the last occurrence of sep within runes[floor:limit]
// and returns the rune index just past it, or -1 if absent.
func lastIndexRunes(runes []rune, floor, limit int, sep string) int {
	window := string(runes[floor:limit])
	idx := strings.LastIndex(window, sep)
	if idx < 0 {
		return -1
	}
	// Convert byte offset back to a rune offset within the window.
	runeIdx := utf8.RuneCountInString(window[:idx])
	return floor + runeIdx + utf8.RuneCountInString(sep)
}
