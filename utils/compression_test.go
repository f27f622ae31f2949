package utils

import (
	"strings"
	"testing"
)

func TestCompressTextSkipsSmallPayloads(t *testing.T) {
	data, algo, err := CompressText("curto")
	if err != nil {
		t.Fatalf("CompressText: %v", err)
	}
	if algo != CompressionNone {
		t.Errorf("algorithm = %q, want none for small text", algo)
	}
	if string(data) != "curto" {
		t.Errorf("small payload altered: %q", data)
	}
}

func TestCompressTextRoundTrip(t *testing.T) {
	original := strings.Repeat("Matrizes representam transformações lineares. ", 50)

	data, algo, err := CompressText(original)
	if err != nil {
		t.Fatalf("CompressText: %v", err)
	}
	if algo != CompressionGzip {
		t.Errorf("algorithm = %q, want gzip for large text", algo)
	}
	if len(data) >= len(original) {
		t.Errorf("compressed size %d not smaller than original %d", len(data), len(original))
	}

	restored, err := DecompressText(data, algo)
	if err != nil {
		t.Fatalf("DecompressText: %v", err)
	}
	if restored != original {
		t.Error("round trip altered the text")
	}
}

func TestDecompressTextUnknownAlgorithm(t *testing.T) {
	if _, err := DecompressText([]byte("x"), "brotli"); err == nil {
		t.Error("expected error for unsupported algorithm")
	}
}

func TestHashTextStable(t *testing.T) {
	a := HashText("pergunta do aluno")
	b := HashText("pergunta do aluno")
	if a != b {
		t.Error("hash not deterministic")
	}
	if a == HashText("outra pergunta") {
		t.Error("different inputs share a hash")
	}
}
