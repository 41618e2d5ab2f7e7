package artifact

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"canvas-analytics-etl/internal/model"
)

// WriteAssignmentsCSV writes the canonical assignment table
// (id, title, due_date).
func WriteAssignmentsCSV(path string, rows []model.AssignmentRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create assignments table: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"id", "title", "due_date"}); err != nil {
		return err
	}
	for _, row := range rows {
		rec := []string{
			strconv.FormatUint(uint64(row.ID), 10),
			row.Title,
			strOrEmpty(row.DueDate),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteSubmissionsCSV writes the canonicalized submission table
// (student_id, assignment_id, submitted_at, score, status).
func WriteSubmissionsCSV(path string, rows []model.SubmissionRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create submissions table: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"student_id", "assignment_id", "submitted_at", "score", "status"}); err != nil {
		return err
	}
	for _, row := range rows {
		score := ""
		if row.Score != nil {
			score = strconv.FormatFloat(*row.Score, 'f', -1, 64)
		}
		rec := []string{
			row.StudentID,
			strconv.FormatUint(uint64(row.AssignmentID), 10),
			strOrEmpty(row.SubmittedAt),
			score,
			string(row.Status),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
