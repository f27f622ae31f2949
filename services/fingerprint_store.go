package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"adaptive-learning-platform/models"
	"adaptive-learning-platform/utils"
)

// FingerprintStore persists the index state between runs so the next
// reindex can diff instead of re-embedding everything. The state lives in
// a small JSON file, loaded at indexing start and committed at the end.
type FingerprintStore struct {
	path string
}

func NewFingerprintStore(path string) *FingerprintStore {
	return &FingerprintStore{path: path}
}

// Load reads the persisted state. A missing or corrupted file yields an
// empty state, which simply forces a full reindex.
func (fs *FingerprintStore) Load() (*models.IndexState, error) {
	data, err := os.ReadFile(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.NewIndexState(), nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	state := models.NewIndexState()
	if err := json.Unmarshal(data, state); err != nil {
		// Corrupted state file: start over rather than fail indexing
		return models.NewIndexState(), nil
	}
	if state.Sources == nil {
		state.Sources = make(map[string]models.SourceRecord)
	}
	return state, nil
}

// Commit writes the state atomically: marshal to a temp file in the same
// directory, then rename over the old one. Readers never see a partial
// write.
func (fs *FingerprintStore) Commit(state *models.IndexState) error {
	if err := os.MkdirAll(filepath.Dir(fs.path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fs.path), "index_state_*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp state file: %w", err)
	}

	if err := os.Rename(tmpName, fs.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to commit state file: %w", err)
	}

	return nil
}

// FingerprintSource computes the cheap content signature for one source:
// byte length, modification time and content hash. No extraction happens
// here, this must stay cheap enough to run on every startup.
func FingerprintSource(path string) (models.Fingerprint, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return models.Fingerprint{}, fmt.Errorf("failed to stat source: %w", err)
	}

	sum, err := utils.HashFile(path)
	if err != nil {
		return models.Fingerprint{}, fmt.Errorf("failed to hash source: %w", err)
	}

	return models.Fingerprint{
		Size:    stat.Size(),
		ModTime: stat.ModTime().UnixNano(),
		SHA256:  sum,
	}, nil
}
