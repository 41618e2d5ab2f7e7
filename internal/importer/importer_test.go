package importer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"canvas-analytics-etl/internal/artifact"
	"canvas-analytics-etl/internal/config"
	"canvas-analytics-etl/internal/db"
	"canvas-analytics-etl/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(dir string) *config.Config {
	cfg := &config.Config{}
	cfg.Artifacts.Dir = dir
	cfg.Import.BatchSize = 2000
	return cfg
}

// writeArtifacts lays down a consistent artifact set: two students, two
// enrollments, one assignment (ID 555), one submission.
func writeArtifacts(t *testing.T, dir string) {
	t.Helper()
	paths := artifact.NewPaths(dir)

	roster := "Student Name,Student ID,Student SIS ID,Email,Section Name\n" +
		"Ada Lovelace,1001,U1001,ada@example.edu,Section A\n" +
		"Grace Hopper,1002,U1002,grace@example.edu,Section A\n"
	require.NoError(t, os.WriteFile(paths.Roster(), []byte(roster), 0o644))

	hours := 1.5
	enrollments := []model.EnrollmentRow{
		{StudentID: "1001", Type: "StudentEnrollment", Role: "StudentEnrollment", TotalActivityHours: &hours},
		{StudentID: "1002", Type: "StudentEnrollment", Role: "StudentEnrollment"},
	}
	require.NoError(t, artifact.WriteEnrollmentsXLSX(paths.CleanedEnrollments(), enrollments))

	assignments := "id,title,due_date\n555,Homework 1,2024-01-10\n"
	require.NoError(t, os.WriteFile(paths.Assignments(), []byte(assignments), 0o644))

	submissions := "student_id,assignment_id,submitted_at,score,status\n" +
		"1001,555,2024-01-09T20:00:00Z,95.5,on_time\n"
	require.NoError(t, os.WriteFile(paths.Submissions(), []byte(submissions), 0o644))
}

func expectReloadThrough(mock sqlmock.Sqlmock, studentIDs []string) {
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM submissions").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM assignments").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM enrollments").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM students").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO students").WillReturnResult(sqlmock.NewResult(0, int64(len(studentIDs))))

	rows := sqlmock.NewRows([]string{"student_id"})
	for _, id := range studentIDs {
		rows.AddRow(id)
	}
	mock.ExpectQuery("SELECT student_id FROM students").WillReturnRows(rows)
}

func TestRunImportsAllEntities(t *testing.T) {
	dir := t.TempDir()
	writeArtifacts(t, dir)

	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	expectReloadThrough(mock, []string{"1001", "1002"})
	mock.ExpectExec("INSERT INTO enrollments").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO assignments").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT id FROM assignments").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uint32(555)))
	mock.ExpectExec("INSERT INTO submissions").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	im := NewImporter(testConfig(dir), conn, db.NewStore())
	summary, err := im.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, summary.Students)
	assert.Equal(t, 2, summary.Enrollments)
	assert.Equal(t, 1, summary.Assignments)
	assert.Equal(t, 1, summary.Submissions)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunRollsBackOnInsertFailure(t *testing.T) {
	dir := t.TempDir()
	writeArtifacts(t, dir)

	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	expectReloadThrough(mock, []string{"1001", "1002"})
	mock.ExpectExec("INSERT INTO enrollments").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO assignments").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	im := NewImporter(testConfig(dir), conn, db.NewStore())
	_, err = im.Run(context.Background())

	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet(), "the transaction is rolled back, not committed")
}

func TestRunPreflightFailureHasNoSideEffects(t *testing.T) {
	dir := t.TempDir()
	writeArtifacts(t, dir)
	require.NoError(t, os.Remove(filepath.Join(dir, "assignments_cleaned_submissions.csv")))

	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	im := NewImporter(testConfig(dir), conn, db.NewStore())
	_, err = im.Run(context.Background())

	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet(), "no database interaction before preflight passes")
}

func TestRunSkipsBadRowsWithoutAborting(t *testing.T) {
	dir := t.TempDir()
	writeArtifacts(t, dir)
	paths := artifact.NewPaths(dir)

	// One valid assignment, one with an unparseable ID.
	assignments := "id,title,due_date\n555,Homework 1,2024-01-10\nnot-an-int,Broken,\n"
	require.NoError(t, os.WriteFile(paths.Assignments(), []byte(assignments), 0o644))

	// Valid row, unknown student, unknown assignment, unparseable score.
	submissions := "student_id,assignment_id,submitted_at,score,status\n" +
		"1001,555,2024-01-09T20:00:00Z,95.5,on_time\n" +
		"4040,555,,80,late\n" +
		"1001,999,,70,late\n" +
		"1002,555,,ninety,late\n"
	require.NoError(t, os.WriteFile(paths.Submissions(), []byte(submissions), 0o644))

	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	expectReloadThrough(mock, []string{"1001", "1002"})
	mock.ExpectExec("INSERT INTO enrollments").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO assignments").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT id FROM assignments").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uint32(555)))
	mock.ExpectExec("INSERT INTO submissions").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	im := NewImporter(testConfig(dir), conn, db.NewStore())
	summary, err := im.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Assignments)
	assert.Equal(t, 1, summary.SkippedAssignments)
	assert.Equal(t, 1, summary.Submissions)
	assert.Equal(t, 3, summary.SkippedSubmissions)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunSkipsEnrollmentForUnknownStudent(t *testing.T) {
	dir := t.TempDir()
	writeArtifacts(t, dir)
	paths := artifact.NewPaths(dir)

	enrollments := []model.EnrollmentRow{
		{StudentID: "1001", Type: "StudentEnrollment"},
		{StudentID: "7777", Type: "StudentEnrollment"},
	}
	require.NoError(t, artifact.WriteEnrollmentsXLSX(paths.CleanedEnrollments(), enrollments))

	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	expectReloadThrough(mock, []string{"1001", "1002"})
	mock.ExpectExec("INSERT INTO enrollments").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO assignments").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT id FROM assignments").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uint32(555)))
	mock.ExpectExec("INSERT INTO submissions").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	im := NewImporter(testConfig(dir), conn, db.NewStore())
	summary, err := im.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Enrollments)
	assert.Equal(t, 1, summary.SkippedEnrollments)
	assert.NoError(t, mock.ExpectationsWereMet())
}
