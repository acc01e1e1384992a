package facts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"animalfacts/pkg/models"
)

// WriteCollection writes records to path as one compact JSON array,
// replacing any previous content. A nil or empty collection is written as [].
func WriteCollection(path string, records models.AnimalRecordCollection) error {
	if records == nil {
		records = models.AnimalRecordCollection{}
	}

	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// ReadCollection reads a JSON array of records from path
func ReadCollection(path string) (models.AnimalRecordCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var records models.AnimalRecordCollection
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if records == nil {
		records = models.AnimalRecordCollection{}
	}
	return records, nil
}
