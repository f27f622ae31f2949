package services

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// ChunkingService splits extracted text into fixed-size chunks with
// overlap, preferring paragraph and sentence boundaries over hard cuts.
type ChunkingService struct {
	maxChunkSize   int
	overlap        int
	minChunkSize   int
	sentenceRegex  *regexp.Regexp
	paragraphRegex *regexp.Regexp
}

// ChunkPiece is one split segment before embedding. The ordinal becomes
// part of the chunk ID, so chunking must be deterministic for a given
// input text.
type ChunkPiece struct {
	Text     string
	Order    int
	Keywords []string
}

func NewChunkingService(maxChunkSize, overlap, minChunkSize int) *ChunkingService {
	if maxChunkSize <= 0 {
		maxChunkSize = 1000
	}
	if overlap < 0 || overlap >= maxChunkSize {
		overlap = maxChunkSize / 5
	}
	if minChunkSize <= 0 {
		minChunkSize = 100
	}
	return &ChunkingService{
		maxChunkSize:   maxChunkSize,
		overlap:        overlap,
		minChunkSize:   minChunkSize,
		sentenceRegex:  regexp.MustCompile(`[.!?]+[\s]+`),
		paragraphRegex: regexp.MustCompile(`\n\n+`),
	}
}

// ChunkText chunks text with paragraph awareness and sentence-boundary
// overlap between consecutive chunks.
func (cs *ChunkingService) ChunkText(text string) []ChunkPiece {
	paragraphs := filterEmpty(cs.paragraphRegex.Split(text, -1))
	if len(paragraphs) == 0 {
		return []ChunkPiece{}
	}

	var pieces []ChunkPiece
	currentChunk := new(strings.Builder)
	currentSize := 0
	order := 0

	for _, paragraph := range paragraphs {
		paragraph = strings.TrimSpace(paragraph)
		if len(paragraph) == 0 {
			continue
		}

		paraSize := len(paragraph)

		if currentSize+paraSize > cs.maxChunkSize && currentSize >= cs.minChunkSize {
			if currentChunk.Len() > 0 {
				pieces = append(pieces, cs.createPiece(currentChunk.String(), order))
				order++
			}

			// Start new chunk seeded with overlap from the previous one
			overlapText := ""
			if len(pieces) > 0 && cs.overlap > 0 {
				overlapText = cs.overlapText(pieces[len(pieces)-1].Text)
			}
			currentChunk = new(strings.Builder)
			currentChunk.WriteString(overlapText)
			currentSize = len(overlapText)
		}

		if currentChunk.Len() > 0 {
			currentChunk.WriteString("\n\n")
		}
		currentChunk.WriteString(paragraph)
		currentSize += paraSize
	}

	if strings.TrimSpace(currentChunk.String()) != "" {
		pieces = append(pieces, cs.createPiece(currentChunk.String(), order))
	}

	return pieces
}

func (cs *ChunkingService) createPiece(text string, order int) ChunkPiece {
	return ChunkPiece{
		Text:     text,
		Order:    order,
		Keywords: cs.extractKeywords(text, 5),
	}
}

// extractKeywords returns up to limit frequent non-stopword terms.
func (cs *ChunkingService) extractKeywords(text string, limit int) []string {
	words := strings.Fields(strings.ToLower(text))

	// English plus Portuguese stop words, content is mixed-language
	stopWords := map[string]bool{
		"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
		"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
		"with": true, "is": true, "are": true, "was": true, "were": true,
		"um": true, "uma": true, "de": true, "da": true, "do": true, "em": true,
		"que": true, "para": true, "com": true, "por": true, "os": true, "as": true,
	}

	wordFreq := make(map[string]int)
	var ordered []string
	for _, word := range words {
		word = strings.Trim(word, ".,;:!?()[]{}\"")
		if len(word) > 2 && !stopWords[word] {
			if wordFreq[word] == 0 {
				ordered = append(ordered, word)
			}
			wordFreq[word]++
		}
	}

	keywords := make([]string, 0, limit)
	for _, word := range ordered {
		if wordFreq[word] >= 2 && len(keywords) < limit {
			keywords = append(keywords, word)
		}
	}

	return keywords
}

// overlapText extracts trailing sentences from the previous chunk to seed
// the next one.
func (cs *ChunkingService) overlapText(text string) string {
	if len(text) <= cs.overlap {
		return text
	}

	sentences := filterEmpty(cs.sentenceRegex.Split(text, -1))
	if len(sentences) < 2 {
		// Byte-offset cut; move forward to a rune boundary so accented
		// text never yields a broken trailing fragment.
		cut := len(text) - cs.overlap
		for cut < len(text) && !utf8.RuneStart(text[cut]) {
			cut++
		}
		return text[cut:]
	}

	// Take last sentences that fit in the overlap window
	var out []string
	size := 0
	for i := len(sentences) - 1; i >= 0 && size < cs.overlap; i-- {
		out = append([]string{sentences[i]}, out...)
		size += len(sentences[i])
	}
	return strings.Join(out, ". ")
}

// filterEmpty removes empty strings from slice
func filterEmpty(slice []string) []string {
	result := make([]string, 0, len(slice))
	for _, s := range slice {
		if len(strings.TrimSpace(s)) > 0 {
			result = append(result, s)
		}
	}
	return result
}
