package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ORBSentinel/internal/model"
)

// LoadState reads the tracker state from a JSON file. Returns a zero state if the file doesn't exist.
func LoadState(filePath string) (*model.TrackerState, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &model.TrackerState{Notified: map[string][]string{}}, nil
		}
		return nil, err
	}
	var st model.TrackerState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode state %s: %w", filePath, err)
	}
	if st.Notified == nil {
		st.Notified = map[string][]string{}
	}
	return &st, nil
}

// SaveState writes the tracker state to a JSON file via a temp file rename.
func SaveState(filePath string, st *model.TrackerState) error {
	st.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return err
	}
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, filePath)
}
