package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"adaptive-learning-platform/models"
)

// XLSXExtractor indexes spreadsheet-based exercise sheets. Each sheet
// becomes one document; the first row is treated as a header and each
// data row is flattened to "header: value" lines.
type XLSXExtractor struct{}

func (XLSXExtractor) ContentType() string { return models.ContentTypeExercise }

func (XLSXExtractor) Extract(_ context.Context, path string) ([]ExtractedDoc, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	base := filepath.Base(path)
	var docs []ExtractedDoc

	for i, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}

		header := rows[0]
		var sb strings.Builder
		fmt.Fprintf(&sb, "Sheet: %s\n", sheet)

		for _, row := range rows[1:] {
			if len(row) == 0 {
				continue
			}
			for col, cell := range row {
				if strings.TrimSpace(cell) == "" {
					continue
				}
				name := fmt.Sprintf("col%d", col+1)
				if col < len(header) && strings.TrimSpace(header[col]) != "" {
					name = header[col]
				}
				fmt.Fprintf(&sb, "%s: %s\n", name, cell)
			}
			sb.WriteString("\n")
		}

		if strings.TrimSpace(sb.String()) == "" {
			continue
		}

		docs = append(docs, ExtractedDoc{
			Text: sb.String(),
			Metadata: models.ChunkMetadata{
				ContentType: models.ContentTypeExercise,
				SourceFile:  base,
				Title:       sheet,
				Position:    i + 1,
			},
		})
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("no extractable rows in workbook")
	}

	return docs, nil
}
