package artifact

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"canvas-analytics-etl/internal/model"
	"canvas-analytics-etl/pkg/errors"

	"github.com/xuri/excelize/v2"
)

const timestampLayout = "2006-01-02 15:04:05"

var enrollmentColumns = []string{
	"Student ID", "type", "role", "last_activity_at", "inactive_days",
	"total_activity_time(in_hrs)", "sis_course_id", "sis_section_id", "sis_user_id",
	"current_grade", "current_score", "final_grade", "final_score",
	"unposted_current_score", "unposted_current_grade",
	"unposted_final_score", "unposted_final_grade",
}

var assignmentColumns = []string{
	"Student ID", "assignment_id", "title", "points_possible",
	"due_at", "status", "score", "submitted_at",
}

// WriteEnrollmentsXLSX writes the cleaned enrollment export. Nil fields
// become empty cells; grade components are rendered with two decimals.
func WriteEnrollmentsXLSX(path string, rows []model.EnrollmentRow) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if err := setRow(f, sheet, 1, toCells(enrollmentColumns)); err != nil {
		return err
	}

	for i, row := range rows {
		cells := []interface{}{
			row.StudentID, row.Type, row.Role,
			timeCell(row.LastActivityAt),
			intCell(row.InactiveDays),
			floatCell(row.TotalActivityHours),
			row.SISCourseID, row.SISSectionID, row.SISUserID,
			gradeCell(row.CurrentGrade), gradeCell(row.CurrentScore),
			gradeCell(row.FinalGrade), gradeCell(row.FinalScore),
			gradeCell(row.UnpostedCurrentScore), gradeCell(row.UnpostedCurrentGrade),
			gradeCell(row.UnpostedFinalScore), gradeCell(row.UnpostedFinalGrade),
		}
		if err := setRow(f, sheet, i+2, cells); err != nil {
			return err
		}
	}

	return f.SaveAs(path)
}

// ReadEnrollmentsXLSX reads the cleaned enrollment export back into rows.
// Individual cell parse failures degrade to nil values.
func ReadEnrollmentsXLSX(path string) ([]model.EnrollmentRow, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open enrollment export: %w", err)
	}
	defer f.Close()

	records, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("failed to read enrollment export: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.ErrArtifactEmpty
	}

	columnMap := make(map[string]int)
	for i, col := range records[0] {
		columnMap[strings.TrimSpace(col)] = i
	}

	getValue := func(row []string, col string) string {
		if idx, exists := columnMap[col]; exists && idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}

	rows := make([]model.EnrollmentRow, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := model.EnrollmentRow{
			StudentID:            getValue(rec, "Student ID"),
			Type:                 getValue(rec, "type"),
			Role:                 getValue(rec, "role"),
			SISCourseID:          getValue(rec, "sis_course_id"),
			SISSectionID:         getValue(rec, "sis_section_id"),
			SISUserID:            getValue(rec, "sis_user_id"),
			LastActivityAt:       parseTimeCell(getValue(rec, "last_activity_at")),
			InactiveDays:         parseIntCell(getValue(rec, "inactive_days")),
			TotalActivityHours:   parseFloatCell(getValue(rec, "total_activity_time(in_hrs)")),
			CurrentGrade:         parseFloatCell(getValue(rec, "current_grade")),
			CurrentScore:         parseFloatCell(getValue(rec, "current_score")),
			FinalGrade:           parseFloatCell(getValue(rec, "final_grade")),
			FinalScore:           parseFloatCell(getValue(rec, "final_score")),
			UnpostedCurrentScore: parseFloatCell(getValue(rec, "unposted_current_score")),
			UnpostedCurrentGrade: parseFloatCell(getValue(rec, "unposted_current_grade")),
			UnpostedFinalScore:   parseFloatCell(getValue(rec, "unposted_final_score")),
			UnpostedFinalGrade:   parseFloatCell(getValue(rec, "unposted_final_grade")),
		}
		if row.StudentID == "" {
			continue
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// WriteAssignmentsXLSX writes the flat assignment-submission export.
func WriteAssignmentsXLSX(path string, rows []model.AssignmentSubmissionRow) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if err := setRow(f, sheet, 1, toCells(assignmentColumns)); err != nil {
		return err
	}

	for i, row := range rows {
		cells := []interface{}{
			row.StudentID, row.AssignmentID, row.Title,
			floatCell(row.PointsPossible),
			strOrEmpty(row.DueAt), row.Status,
			floatCell(row.Score),
			strOrEmpty(row.SubmittedAt),
		}
		if err := setRow(f, sheet, i+2, cells); err != nil {
			return err
		}
	}

	return f.SaveAs(path)
}

func setRow(f *excelize.File, sheet string, row int, cells []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &cells)
}

func toCells(cols []string) []interface{} {
	cells := make([]interface{}, len(cols))
	for i, c := range cols {
		cells[i] = c
	}
	return cells
}

func timeCell(t *time.Time) interface{} {
	if t == nil {
		return ""
	}
	return t.Format(timestampLayout)
}

func intCell(v *int) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func floatCell(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func gradeCell(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *v)
}

func parseTimeCell(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

func parseIntCell(s string) *int {
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &v
}

func parseFloatCell(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
