package artifact

import (
	"encoding/json"
	"fmt"
	"os"

	"canvas-analytics-etl/internal/model"
)

// WriteRawDump writes the raw API records keyed by student ID, pretty
// printed so the dump doubles as a debugging artifact.
func WriteRawDump(path string, byStudent map[string][]model.AssignmentAnalytics) error {
	data, err := json.MarshalIndent(byStudent, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal raw dump: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write raw dump: %w", err)
	}
	return nil
}
