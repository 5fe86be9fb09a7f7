package review

import (
	"encoding/json"
	"fmt"
	"os"
)

// SaveCache persists an analysis result so it can be replayed without
// re-calling the review model. Every issue field round-trips losslessly.
func SaveCache(path string, issues []Issue) error {
	data, err := json.MarshalIndent(issues, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal issues: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}

// LoadCache reads a previously saved analysis result.
func LoadCache(path string) ([]Issue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}
	var issues []Issue
	if err := json.Unmarshal(data, &issues); err != nil {
		return nil, fmt.Errorf("failed to parse cache file: %w", err)
	}
	return issues, nil
}
