package knowledge

import "strings"

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
)

// Chunk splits text into overlapping chunks of roughly chunkSize runes,
// preferring to break at a sentence or line boundary in the back half of the
// window. Zero or negative arguments fall back to the defaults.
func Chunk(text string, chunkSize, overlap int) []string {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = defaultChunkOverlap
		if overlap >= chunkSize {
			overlap = chunkSize / 4
		}
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= chunkSize {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + chunkSize
		if end >= len(runes) {
			chunks = append(chunks, strings.TrimSpace(string(runes[start:])))
			break
		}

		cut := end
		window := string(runes[start:end])
		if idx := lastBoundary(window); idx > chunkSize/2 {
			cut = start + idx + 1
		}

		chunk := strings.TrimSpace(string(runes[start:cut]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := cut - overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return chunks
}

// lastBoundary returns the index of the last sentence or line break in s, or
// -1 when there is none.
func lastBoundary(s string) int {
	dot := strings.LastIndex(s, ". ")
	nl := strings.LastIndex(s, "\n")
	if dot > nl {
		return dot
	}
	return nl
}
