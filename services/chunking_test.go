package services

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestChunkTextSmallInputSingleChunk(t *testing.T) {
	cs := NewChunkingService(1000, 200, 100)

	pieces := cs.ChunkText("A short paragraph about algebra.")
	if len(pieces) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(pieces))
	}
	if pieces[0].Order != 0 {
		t.Errorf("expected order 0, got %d", pieces[0].Order)
	}
}

func TestChunkTextSplitsLongText(t *testing.T) {
	cs := NewChunkingService(500, 100, 100)

	paragraph := strings.Repeat("Equations describe relations between quantities. ", 8)
	text := paragraph + "\n\n" + paragraph + "\n\n" + paragraph

	pieces := cs.ChunkText(text)
	if len(pieces) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(pieces))
	}

	for i, p := range pieces {
		if p.Order != i {
			t.Errorf("chunk %d has order %d", i, p.Order)
		}
		if strings.TrimSpace(p.Text) == "" {
			t.Errorf("chunk %d is empty", i)
		}
	}
}

func TestChunkTextDeterministic(t *testing.T) {
	cs := NewChunkingService(400, 80, 100)
	text := strings.Repeat("Derivadas medem a taxa de variação de uma função. ", 20)

	first := cs.ChunkText(text)
	second := cs.ChunkText(text)

	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Text != second[i].Text {
			t.Errorf("chunk %d text differs between runs", i)
		}
	}
}

func TestChunkTextEmptyInput(t *testing.T) {
	cs := NewChunkingService(1000, 200, 100)

	if pieces := cs.ChunkText("   \n\n  "); len(pieces) != 0 {
		t.Errorf("expected no chunks for blank input, got %d", len(pieces))
	}
}

func TestOverlapTextKeepsRuneBoundaries(t *testing.T) {
	cs := NewChunkingService(100, 15, 10)

	// No sentence breaks, so the overlap falls back to a byte-offset cut.
	// With two-byte runes an odd overlap would land mid-rune.
	text := strings.Repeat("ç", 40)
	got := cs.overlapText(text)

	if !utf8.ValidString(got) {
		t.Fatalf("overlap is not valid UTF-8: %q", got)
	}
	if len(got) == 0 || len(got) > cs.overlap {
		t.Errorf("overlap length = %d, want >0 and <= %d", len(got), cs.overlap)
	}
}

func TestChunkTextAccentedOverlapStaysValid(t *testing.T) {
	cs := NewChunkingService(300, 61, 50)

	paragraph := strings.Repeat("aplicação transformação variação ", 10)
	text := paragraph + "\n\n" + paragraph + "\n\n" + paragraph

	for i, p := range cs.ChunkText(text) {
		if !utf8.ValidString(p.Text) {
			t.Errorf("chunk %d contains invalid UTF-8", i)
		}
	}
}

func TestExtractKeywordsSkipsStopWords(t *testing.T) {
	cs := NewChunkingService(1000, 200, 100)

	text := strings.Repeat("matrizes determinantes matrizes vetores matrizes determinantes ", 3)
	keywords := cs.extractKeywords(text, 5)

	if len(keywords) == 0 {
		t.Fatal("expected keywords from repeated terms")
	}
	for _, kw := range keywords {
		if kw == "de" || kw == "the" {
			t.Errorf("stop word %q leaked into keywords", kw)
		}
	}
	if keywords[0] != "matrizes" {
		t.Errorf("expected most frequent first-seen term, got %q", keywords[0])
	}
}
