package chapters

import (
	"encoding/json/v2"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aresapp/ares-server/internal/domain"
)

// Path returns the chapters file location for a media ID.
func Path(dir, mediaID string) string {
	return filepath.Join(dir, mediaID+".json")
}

// Save writes a chapters file atomically.
func Save(dir, mediaID string, file domain.ChaptersFile) error {
	if err := Validate(file.Chapters); err != nil {
		return fmt.Errorf("save chapters %s: %w", mediaID, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create chapters dir: %w", err)
	}

	data, err := json.Marshal(file)
	if err != nil {
		return fmt.Errorf("marshal chapters: %w", err)
	}

	path := Path(dir, mediaID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write chapters: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename chapters: %w", err)
	}
	return nil
}

// Load reads a chapters file.
func Load(dir, mediaID string) (domain.ChaptersFile, error) {
	var file domain.ChaptersFile
	data, err := os.ReadFile(Path(dir, mediaID))
	if err != nil {
		return file, fmt.Errorf("read chapters %s: %w", mediaID, err)
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return file, fmt.Errorf("decode chapters %s: %w", mediaID, err)
	}
	return file, nil
}

// Remove deletes a chapters file; a missing file is not an error.
func Remove(dir, mediaID string) error {
	if err := os.Remove(Path(dir, mediaID)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
