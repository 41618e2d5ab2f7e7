package importer

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"canvas-analytics-etl/pkg/errors"
)

// rawAssignment is a canonical assignment table line before ID validation.
type rawAssignment struct {
	ID      string
	Title   string
	DueDate string
}

// rawSubmission is a canonicalized submission table line before reference
// and score validation.
type rawSubmission struct {
	StudentID    string
	AssignmentID string
	SubmittedAt  string
	Score        string
	Status       string
}

func readAssignmentsCSV(path string) ([]rawAssignment, error) {
	records, columnMap, err := readTable(path, []string{"id", "title", "due_date"})
	if err != nil {
		return nil, err
	}

	rows := make([]rawAssignment, 0, len(records))
	for _, rec := range records {
		rows = append(rows, rawAssignment{
			ID:      field(rec, columnMap, "id"),
			Title:   field(rec, columnMap, "title"),
			DueDate: field(rec, columnMap, "due_date"),
		})
	}
	return rows, nil
}

func readSubmissionsCSV(path string) ([]rawSubmission, error) {
	records, columnMap, err := readTable(path, []string{"student_id", "assignment_id", "submitted_at", "score", "status"})
	if err != nil {
		return nil, err
	}

	rows := make([]rawSubmission, 0, len(records))
	for _, rec := range records {
		rows = append(rows, rawSubmission{
			StudentID:    field(rec, columnMap, "student_id"),
			AssignmentID: field(rec, columnMap, "assignment_id"),
			SubmittedAt:  field(rec, columnMap, "submitted_at"),
			Score:        field(rec, columnMap, "score"),
			Status:       field(rec, columnMap, "status"),
		})
	}
	return rows, nil
}

// readTable reads a CSV artifact, returning its data records and a header
// index. A missing required column is batch-fatal.
func readTable(path string, required []string) ([][]string, map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s", errors.ErrArtifactMissing, path)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%w: %s", errors.ErrArtifactEmpty, path)
	}

	columnMap := make(map[string]int)
	for i, col := range records[0] {
		columnMap[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, col := range required {
		if _, exists := columnMap[col]; !exists {
			return nil, nil, fmt.Errorf("%s: missing required column %q", path, col)
		}
	}

	return records[1:], columnMap, nil
}

func field(rec []string, columnMap map[string]int, col string) string {
	if idx := columnMap[col]; idx < len(rec) {
		return strings.TrimSpace(rec[idx])
	}
	return ""
}

func parseAssignmentID(s string) (uint32, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(id), nil
}
