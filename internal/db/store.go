package db

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"canvas-analytics-etl/internal/model"
)

// Store is the bulk write contract the importer drives: delete-all and
// batched create per entity type, plus key listings used to build the
// importer's in-memory lookup maps. Every method runs inside the caller's
// transaction so the reload stays failure-atomic.
type Store interface {
	DeleteAllSubmissions(ctx context.Context, tx *sql.Tx) error
	DeleteAllAssignments(ctx context.Context, tx *sql.Tx) error
	DeleteAllEnrollments(ctx context.Context, tx *sql.Tx) error
	DeleteAllStudents(ctx context.Context, tx *sql.Tx) error

	InsertStudents(ctx context.Context, tx *sql.Tx, rows []model.StudentRow) error
	InsertEnrollments(ctx context.Context, tx *sql.Tx, rows []model.EnrollmentRow) error
	InsertAssignments(ctx context.Context, tx *sql.Tx, rows []model.AssignmentRow) error
	InsertSubmissions(ctx context.Context, tx *sql.Tx, rows []model.SubmissionRow) error

	ListStudentIDs(ctx context.Context, tx *sql.Tx) (map[string]struct{}, error)
	ListAssignmentIDs(ctx context.Context, tx *sql.Tx) (map[uint32]struct{}, error)
}

type store struct{}

func NewStore() Store {
	return &store{}
}

func (s *store) DeleteAllSubmissions(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM submissions`)
	return err
}

func (s *store) DeleteAllAssignments(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM assignments`)
	return err
}

func (s *store) DeleteAllEnrollments(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM enrollments`)
	return err
}

func (s *store) DeleteAllStudents(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM students`)
	return err
}

func (s *store) InsertStudents(ctx context.Context, tx *sql.Tx, rows []model.StudentRow) error {
	if len(rows) == 0 {
		return nil
	}

	query := `INSERT INTO students (student_id, sis_id, name, email, section_name) VALUES ` +
		placeholders(len(rows), 5)

	args := make([]interface{}, 0, len(rows)*5)
	for _, row := range rows {
		args = append(args, row.StudentID, row.SISID, row.Name, row.Email, row.SectionName)
	}

	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

func (s *store) InsertEnrollments(ctx context.Context, tx *sql.Tx, rows []model.EnrollmentRow) error {
	if len(rows) == 0 {
		return nil
	}

	query := `INSERT INTO enrollments (student_id, type, role, last_activity_at, inactive_days,
		total_activity_time, sis_course_id, sis_section_id, sis_user_id,
		current_grade, current_score, final_grade, final_score,
		unposted_current_grade, unposted_current_score, unposted_final_grade, unposted_final_score) VALUES ` +
		placeholders(len(rows), 17)

	args := make([]interface{}, 0, len(rows)*17)
	for _, row := range rows {
		args = append(args,
			row.StudentID, row.Type, row.Role,
			timeArg(row.LastActivityAt), intArg(row.InactiveDays), floatArg(row.TotalActivityHours),
			row.SISCourseID, row.SISSectionID, row.SISUserID,
			floatArg(row.CurrentGrade), floatArg(row.CurrentScore),
			floatArg(row.FinalGrade), floatArg(row.FinalScore),
			floatArg(row.UnpostedCurrentGrade), floatArg(row.UnpostedCurrentScore),
			floatArg(row.UnpostedFinalGrade), floatArg(row.UnpostedFinalScore),
		)
	}

	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

func (s *store) InsertAssignments(ctx context.Context, tx *sql.Tx, rows []model.AssignmentRow) error {
	if len(rows) == 0 {
		return nil
	}

	query := `INSERT INTO assignments (id, title, due_date) VALUES ` + placeholders(len(rows), 3)

	args := make([]interface{}, 0, len(rows)*3)
	for _, row := range rows {
		args = append(args, row.ID, row.Title, timestampArg(row.DueDate))
	}

	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

func (s *store) InsertSubmissions(ctx context.Context, tx *sql.Tx, rows []model.SubmissionRow) error {
	if len(rows) == 0 {
		return nil
	}

	query := `INSERT INTO submissions (student_id, assignment_id, submitted_at, score, status) VALUES ` +
		placeholders(len(rows), 5)

	args := make([]interface{}, 0, len(rows)*5)
	for _, row := range rows {
		args = append(args, row.StudentID, row.AssignmentID,
			timestampArg(row.SubmittedAt), floatArg(row.Score), string(row.Status))
	}

	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

func (s *store) ListStudentIDs(ctx context.Context, tx *sql.Tx) (map[string]struct{}, error) {
	rows, err := tx.QueryContext(ctx, `SELECT student_id FROM students`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

func (s *store) ListAssignmentIDs(ctx context.Context, tx *sql.Tx) (map[uint32]struct{}, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM assignments`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[uint32]struct{})
	for rows.Next() {
		var id uint32
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

// placeholders renders n comma-separated groups of width ? marks.
func placeholders(n, width int) string {
	group := "(" + strings.TrimSuffix(strings.Repeat("?,", width), ",") + ")"
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(group)
	}
	return b.String()
}

func timeArg(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format("2006-01-02 15:04:05")
}

// timestampArg converts an upstream ISO timestamp string to a nullable
// DATETIME value. Unparseable values become NULL.
func timestampArg(s *string) interface{} {
	if s == nil || *s == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, *s); err == nil {
		return t.UTC().Format("2006-01-02 15:04:05")
	}
	if t, err := time.Parse("2006-01-02", *s); err == nil {
		return t.Format("2006-01-02 15:04:05")
	}
	return nil
}

func intArg(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func floatArg(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
