package services

import "strings"

// MaxChunkChars is the per-request character limit of the speech
// synthesis backend.
const MaxChunkChars = 5000

// SplitText splits text into ordered chunks of at most maxChars
// characters, breaking at sentence boundaries. A single sentence longer
// than maxChars is hard-split at the limit.
func SplitText(text string, maxChars int) []string {
	if len(text) <= maxChars {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder

	for _, sentence := range splitSentences(text) {
		if len(sentence) > maxChars {
			if current.Len() > 0 {
				chunks = append(chunks, current.String())
				current.Reset()
			}
			for len(sentence) > maxChars {
				chunks = append(chunks, sentence[:maxChars])
				sentence = sentence[maxChars:]
			}
			if sentence != "" {
				current.WriteString(sentence)
			}
			continue
		}

		if current.Len()+len(sentence) > maxChars {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		current.WriteString(sentence)
	}

	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// splitSentences cuts text after sentence-terminating punctuation,
// keeping the terminator (and any following space) with its sentence so
// that concatenating the pieces reproduces the input exactly.
func splitSentences(text string) []string {
	var sentences []string
	start := 0

	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
			end := i + 1
			// Swallow the whitespace run after the terminator.
			for end < len(text) && (text[end] == ' ' || text[end] == '\n' || text[end] == '\t') {
				end++
			}
			sentences = append(sentences, text[start:end])
			start = end
			i = end - 1
		}
	}

	if start < len(text) {
		sentences = append(sentences, text[start:])
	}
	return sentences
}
