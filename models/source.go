package models

import "time"

// Fingerprint is a cheap content-identity signature for a source file.
// It is derived from size, modification time and a content hash, so a
// change check never requires re-extraction.
type Fingerprint struct {
	Size    int64  `json:"size" bson:"size"`
	ModTime int64  `json:"mod_time" bson:"mod_time"` // unix nanos
	SHA256  string `json:"sha256" bson:"sha256"`
}

// Equal reports whether two fingerprints identify the same content.
func (f Fingerprint) Equal(other Fingerprint) bool {
	return f.Size == other.Size && f.ModTime == other.ModTime && f.SHA256 == other.SHA256
}

// SourceRecord tracks one external resource file across index runs.
type SourceRecord struct {
	SourceID      string      `json:"source_id" bson:"source_id"`
	Fingerprint   Fingerprint `json:"fingerprint" bson:"fingerprint"`
	ContentType   string      `json:"content_type" bson:"content_type"`
	LastIndexedAt time.Time   `json:"last_indexed_at" bson:"last_indexed_at"`
	ChunkCount    int         `json:"chunk_count" bson:"chunk_count"`
}

// SourceDescriptor identifies a candidate source before fingerprinting.
type SourceDescriptor struct {
	SourceID string // stable identifier, the file name under the resources dir
	Path     string // absolute or resources-relative path on disk
}

// IndexState is the process-wide snapshot of everything that has been
// indexed. Coordinators build a fresh state and swap it in atomically;
// readers never observe a partially written map.
type IndexState struct {
	Sources   map[string]SourceRecord `json:"sources"`
	UpdatedAt time.Time               `json:"updated_at"`
}

// NewIndexState returns an empty snapshot.
func NewIndexState() *IndexState {
	return &IndexState{Sources: make(map[string]SourceRecord)}
}

// Clone returns a deep copy so readers can hold a snapshot without
// pinning the committed state.
func (s *IndexState) Clone() *IndexState {
	out := &IndexState{
		Sources:   make(map[string]SourceRecord, len(s.Sources)),
		UpdatedAt: s.UpdatedAt,
	}
	for id, rec := range s.Sources {
		out.Sources[id] = rec
	}
	return out
}

// IndexReport summarizes one reindex run. Failures are counted, not fatal.
type IndexReport struct {
	Indexed  int           `json:"indexed"`
	Skipped  int           `json:"skipped"`
	Removed  int           `json:"removed"`
	Failed   int           `json:"failed"`
	Errors   []string      `json:"errors,omitempty"`
	Duration time.Duration `json:"duration"`
}
