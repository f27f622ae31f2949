package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"adaptive-learning-platform/internal/logger"
	"adaptive-learning-platform/models"
)

// PDFExtractor extracts text from PDF learning material, trying poppler's
// pdftotext first and falling back to the pure-Go reader.
type PDFExtractor struct{}

func (PDFExtractor) ContentType() string { return models.ContentTypePDF }

func (e PDFExtractor) Extract(ctx context.Context, path string) ([]ExtractedDoc, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat PDF file: %w", err)
	}
	if stat.Size() > 200<<20 { // 200MB safety cap
		return nil, fmt.Errorf("pdf too large for in-memory extraction")
	}

	methods := []struct {
		name    string
		extract func(context.Context, string) (string, error)
	}{
		{"poppler", e.extractWithPoppler},
		{"go-pdf", e.extractWithGoPDF},
	}

	var lastErr error
	for _, method := range methods {
		text, err := method.extract(ctx, path)
		if err != nil {
			logger.Debug("PDF extraction method failed", "method", method.name, "file", path, "error", err)
			lastErr = err
			continue
		}

		if quality := evaluateTextQuality(text); quality >= 0.3 {
			return []ExtractedDoc{{
				Text: text,
				Metadata: models.ChunkMetadata{
					ContentType: models.ContentTypePDF,
					SourceFile:  filepath.Base(path),
				},
			}}, nil
		}
		lastErr = fmt.Errorf("%s extraction produced low-quality text", method.name)
	}

	return nil, fmt.Errorf("all extraction methods failed: %w", lastErr)
}

// extractWithPoppler shells out to pdftotext when available.
func (PDFExtractor) extractWithPoppler(ctx context.Context, path string) (string, error) {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return "", fmt.Errorf("pdftotext not installed")
	}

	cmd := exec.CommandContext(ctx, "pdftotext", "-layout", path, "-")
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("pdftotext failed: %w", err)
	}

	return out.String(), nil
}

// extractWithGoPDF uses the pure-Go reader, no external binary required.
func (PDFExtractor) extractWithGoPDF(_ context.Context, path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n\n")
	}

	if sb.Len() == 0 {
		return "", fmt.Errorf("no extractable text in PDF")
	}
	return sb.String(), nil
}

// evaluateTextQuality scores extracted text by the share of printable
// word-like content. Garbled extractions score near zero.
func evaluateTextQuality(text string) float64 {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < 20 {
		return 0
	}

	words := strings.Fields(trimmed)
	if len(words) == 0 {
		return 0
	}

	readable := 0
	for _, w := range words {
		letters := 0
		for _, r := range w {
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r > 127 {
				letters++
			}
		}
		if letters*2 >= len(w) {
			readable++
		}
	}

	return float64(readable) / float64(len(words))
}
