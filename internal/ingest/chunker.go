package ingest

import "strings"

const (
	chunkSize    = 2000
	chunkOverlap = 200
)

// ChunkText splits text into overlapping chunks of at most chunkSize
// characters. When a window would cut mid-paragraph, the split backs off to
// the last newline inside the window, but only if that newline sits past the
// halfway point; backing off further would produce degenerate slivers.
//
// Every character of the input lands in at least one chunk, consecutive
// chunks share chunkOverlap characters, and the loop always makes forward
// progress. Whitespace-only input yields nil.
func ChunkText(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	length := len(runes)
	if length <= chunkSize {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < length {
		end := start + chunkSize
		if end >= length {
			chunks = append(chunks, string(runes[start:]))
			break
		}

		if nl := lastNewline(runes, start, end); nl > start+chunkSize/2 {
			end = nl + 1
		}

		chunks = append(chunks, string(runes[start:end]))
		start = end - chunkOverlap
	}

	return chunks
}

// lastNewline returns the index of the last '\n' in runes[start:end], or -1.
func lastNewline(runes []rune, start, end int) int {
	for i := end - 1; i >= start; i-- {
		if runes[i] == '\n' {
			return i
		}
	}
	return -1
}
