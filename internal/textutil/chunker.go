package textutil

import "strings"

// fallbackPrefixBytes bounds the degenerate-input slice handed to the scorer
// when no word windows can be formed.
const fallbackPrefixBytes = 2000

// Chunker splits normalized text into windows sized to a model's token limit.
// Token budgets convert to word budgets at roughly 1 token per 0.75 words;
// consecutive windows overlap by 10% so a sentiment-bearing clause is not
// truncated at a boundary.
type Chunker struct {
	MaxTokens int
}

// WordsPerChunk returns the word budget for one window.
func (c Chunker) WordsPerChunk() int {
	return int(float64(c.MaxTokens) * 0.75)
}

// Chunk slides a word window across the text. The final window absorbs any
// remainder shorter than a full window. Degenerate input falls back to a
// fixed-length prefix of the raw text so the scorer always receives a chunk.
func (c Chunker) Chunk(text string) []string {
	words := strings.Fields(text)
	wordsPerChunk := c.WordsPerChunk()
	if wordsPerChunk <= 0 {
		wordsPerChunk = 1
	}
	overlap := wordsPerChunk / 10

	var chunks []string
	start := 0
	for start < len(words) {
		end := start + wordsPerChunk
		next := end - overlap
		if end >= len(words) || len(words)-next < wordsPerChunk {
			// Final window absorbs any remainder shorter than a full window.
			chunks = append(chunks, strings.Join(words[start:], " "))
			break
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
		start = next
	}

	if len(chunks) == 0 {
		prefix := text
		if len(prefix) > fallbackPrefixBytes {
			prefix = prefix[:fallbackPrefixBytes]
		}
		chunks = []string{prefix}
	}
	return chunks
}
