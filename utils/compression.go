package utils

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
)

// Chunk text below this size is stored uncompressed; gzip overhead would
// outweigh the gain.
const compressionThreshold = 500

// CompressionAlgorithm defines supported compression methods
type CompressionAlgorithm string

const (
	CompressionNone CompressionAlgorithm = "none"
	CompressionGzip CompressionAlgorithm = "gzip"
)

// CompressText compresses chunk text for storage, skipping small payloads.
func CompressText(text string) ([]byte, CompressionAlgorithm, error) {
	data := []byte(text)
	if len(data) < compressionThreshold {
		return data, CompressionNone, nil
	}

	var buf bytes.Buffer
	writer := gzip.NewWriter(&buf)
	if _, err := writer.Write(data); err != nil {
		return nil, CompressionNone, fmt.Errorf("failed to write to gzip writer: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, CompressionNone, fmt.Errorf("failed to close gzip writer: %w", err)
	}

	return buf.Bytes(), CompressionGzip, nil
}

// DecompressText reverses CompressText.
func DecompressText(compressed []byte, algorithm CompressionAlgorithm) (string, error) {
	switch algorithm {
	case CompressionNone, "":
		return string(compressed), nil

	case CompressionGzip:
		reader, err := gzip.NewReader(bytes.NewReader(compressed))
		if err != nil {
			return "", fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer reader.Close()

		data, err := io.ReadAll(reader)
		if err != nil {
			return "", fmt.Errorf("failed to read from gzip reader: %w", err)
		}
		return string(data), nil

	default:
		return "", fmt.Errorf("unsupported compression algorithm: %s", algorithm)
	}
}
