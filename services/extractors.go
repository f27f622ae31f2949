package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"adaptive-learning-platform/models"
)

// ExtractionError marks a per-source recoverable failure. The indexing
// coordinator logs it, skips the source and keeps going.
type ExtractionError struct {
	SourceID string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %s: %v", e.SourceID, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// ExtractedDoc is one logical document produced by an extractor. A single
// source file can yield several (transcript windows, exercises).
type ExtractedDoc struct {
	Text     string
	Metadata models.ChunkMetadata
}

// Extractor converts one source file into text documents. Selection is a
// type-tag lookup on the file extension, not runtime introspection.
type Extractor interface {
	Extract(ctx context.Context, path string) ([]ExtractedDoc, error)
	ContentType() string
}

// ExtractorRegistry maps file extensions to extractors.
type ExtractorRegistry struct {
	byExt map[string]Extractor
}

func NewExtractorRegistry() *ExtractorRegistry {
	return &ExtractorRegistry{byExt: make(map[string]Extractor)}
}

// Register binds an extractor to one or more extensions (".txt", ".pdf").
func (r *ExtractorRegistry) Register(extractor Extractor, exts ...string) {
	for _, ext := range exts {
		r.byExt[strings.ToLower(ext)] = extractor
	}
}

// For returns the extractor for a path, or false for unsupported types.
func (r *ExtractorRegistry) For(path string) (Extractor, bool) {
	e, ok := r.byExt[strings.ToLower(filepath.Ext(path))]
	return e, ok
}

// Supported reports whether the registry can handle the file.
func (r *ExtractorRegistry) Supported(path string) bool {
	_, ok := r.For(path)
	return ok
}

// TextExtractor reads plain .txt files as-is.
type TextExtractor struct{}

func (TextExtractor) ContentType() string { return models.ContentTypeText }

func (TextExtractor) Extract(_ context.Context, path string) ([]ExtractedDoc, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return []ExtractedDoc{{
		Text: string(content),
		Metadata: models.ChunkMetadata{
			ContentType: models.ContentTypeText,
			SourceFile:  filepath.Base(path),
		},
	}}, nil
}

// JSONExtractor handles structured educational data. Exercise files
// ({name, content: [{title, content: {html, options}}]}) are flattened to
// one document per exercise; anything else is indexed as a single
// structured document.
type JSONExtractor struct{}

func (JSONExtractor) ContentType() string { return models.ContentTypeStructured }

type exerciseOption struct {
	Content struct {
		HTML string `json:"html"`
	} `json:"content"`
	Correct bool `json:"correct"`
}

type exerciseItem struct {
	Title   string `json:"title"`
	Content struct {
		HTML    string           `json:"html"`
		Options []exerciseOption `json:"options"`
	} `json:"content"`
}

type exerciseFile struct {
	Name    string         `json:"name"`
	Content []exerciseItem `json:"content"`
}

func (JSONExtractor) Extract(_ context.Context, path string) ([]ExtractedDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	base := filepath.Base(path)

	// Exercise format first
	var ef exerciseFile
	if err := json.Unmarshal(data, &ef); err == nil && len(ef.Content) > 0 {
		docs := make([]ExtractedDoc, 0, len(ef.Content))
		for i, item := range ef.Content {
			var sb strings.Builder
			fmt.Fprintf(&sb, "Title: %s\n", item.Title)
			if item.Content.HTML != "" {
				fmt.Fprintf(&sb, "Question: %s\n", item.Content.HTML)
			}
			if len(item.Content.Options) > 0 {
				sb.WriteString("Options:\n")
				for _, opt := range item.Content.Options {
					mark := "✗"
					if opt.Correct {
						mark = "✓"
					}
					fmt.Fprintf(&sb, "  %s %s\n", mark, opt.Content.HTML)
				}
			}
			docs = append(docs, ExtractedDoc{
				Text: sb.String(),
				Metadata: models.ChunkMetadata{
					ContentType: models.ContentTypeExercise,
					SourceFile:  base,
					Title:       item.Title,
					Tags:        []string{ef.Name},
					Position:    i + 1,
				},
			})
		}
		return docs, nil
	}

	// Generic JSON: list elements become individual documents
	var list []json.RawMessage
	if err := json.Unmarshal(data, &list); err == nil {
		docs := make([]ExtractedDoc, 0, len(list))
		for i, item := range list {
			pretty, err := json.MarshalIndent(json.RawMessage(item), "", "  ")
			if err != nil {
				pretty = item
			}
			docs = append(docs, ExtractedDoc{
				Text: string(pretty),
				Metadata: models.ChunkMetadata{
					ContentType: models.ContentTypeStructured,
					SourceFile:  base,
					Position:    i + 1,
				},
			})
		}
		return docs, nil
	}

	// Single object fallback
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	pretty, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return nil, err
	}
	return []ExtractedDoc{{
		Text: string(pretty),
		Metadata: models.ChunkMetadata{
			ContentType: models.ContentTypeStructured,
			SourceFile:  base,
			Position:    1,
		},
	}}, nil
}
