package lr

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Checkpoint is the state persisted between iterations: the number of
// completed iterations and the refreshed plaintext weights.
type Checkpoint struct {
	Iteration int       `json:"iteration"`
	Weights   []float64 `json:"weights"`
}

// LoadCheckpoint reads path. A missing file is not an error and yields nil,
// meaning training starts from scratch.
func LoadCheckpoint(path string) (*Checkpoint, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading checkpoint: %w", err)
	}

	var c Checkpoint
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decoding checkpoint %s: %w", path, err)
	}
	if c.Iteration < 0 {
		return nil, fmt.Errorf("checkpoint %s: negative iteration %d", path, c.Iteration)
	}
	return &c, nil
}

// SaveCheckpoint writes c to a temporary file next to path and renames it
// into place, so a crash leaves either the old or the new checkpoint.
func SaveCheckpoint(path string, c Checkpoint) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding checkpoint: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("creating checkpoint: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing checkpoint: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("installing checkpoint: %w", err)
	}
	return nil
}
