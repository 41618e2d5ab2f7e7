package importer

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"

	"canvas-analytics-etl/internal/artifact"
	"canvas-analytics-etl/internal/config"
	"canvas-analytics-etl/internal/db"
	"canvas-analytics-etl/internal/logger"
	"canvas-analytics-etl/internal/model"
	"canvas-analytics-etl/internal/roster"
	"canvas-analytics-etl/pkg/errors"

	"github.com/rs/zerolog"
)

// Importer replaces the entire persisted dataset from the pipeline
// artifacts in one failure-atomic reload: deletes run in reverse dependency
// order, creates in forward order, and any mid-run failure rolls the store
// back to its pre-run state.
type Importer struct {
	cfg   *config.Config
	conn  *sql.DB
	store db.Store
	paths artifact.Paths
	log   zerolog.Logger
}

func NewImporter(cfg *config.Config, conn *sql.DB, store db.Store) *Importer {
	return &Importer{
		cfg:   cfg,
		conn:  conn,
		store: store,
		paths: artifact.NewPaths(cfg.Artifacts.Dir),
		log:   logger.Get(),
	}
}

// inputs holds every artifact parsed up front, before any mutation.
type inputs struct {
	students    []model.StudentRow
	enrollments []model.EnrollmentRow
	assignments []rawAssignment
	submissions []rawSubmission
}

// Run executes the atomic reload and reports per-entity counts. Row-level
// problems (bad references, unparseable scores or IDs) are skipped and
// counted; everything else aborts with a full rollback.
func (im *Importer) Run(ctx context.Context) (model.ImportSummary, error) {
	var summary model.ImportSummary

	in, err := im.loadInputs()
	if err != nil {
		return summary, fmt.Errorf("import preflight failed: %w", err)
	}

	tx, err := im.conn.BeginTx(ctx, nil)
	if err != nil {
		return summary, fmt.Errorf("failed to begin import transaction: %w", err)
	}
	defer tx.Rollback()

	im.log.Info().Msg("Deleting existing records")
	deletes := []func(context.Context, *sql.Tx) error{
		im.store.DeleteAllSubmissions,
		im.store.DeleteAllAssignments,
		im.store.DeleteAllEnrollments,
		im.store.DeleteAllStudents,
	}
	for _, del := range deletes {
		if err := del(ctx, tx); err != nil {
			return summary, fmt.Errorf("failed to clear existing data: %w", err)
		}
	}

	if err := im.importStudents(ctx, tx, in.students, &summary); err != nil {
		return summary, err
	}

	studentIDs, err := im.store.ListStudentIDs(ctx, tx)
	if err != nil {
		return summary, fmt.Errorf("failed to build student lookup: %w", err)
	}

	if err := im.importEnrollments(ctx, tx, in.enrollments, studentIDs, &summary); err != nil {
		return summary, err
	}
	if err := im.importAssignments(ctx, tx, in.assignments, &summary); err != nil {
		return summary, err
	}

	assignmentIDs, err := im.store.ListAssignmentIDs(ctx, tx)
	if err != nil {
		return summary, fmt.Errorf("failed to build assignment lookup: %w", err)
	}

	if err := im.importSubmissions(ctx, tx, in.submissions, studentIDs, assignmentIDs, &summary); err != nil {
		return summary, err
	}

	if err := tx.Commit(); err != nil {
		return summary, fmt.Errorf("failed to commit import: %w", err)
	}

	im.log.Info().
		Int("students", summary.Students).
		Int("enrollments", summary.Enrollments).
		Int("assignments", summary.Assignments).
		Int("submissions", summary.Submissions).
		Int("skipped_enrollments", summary.SkippedEnrollments).
		Int("skipped_assignments", summary.SkippedAssignments).
		Int("skipped_submissions", summary.SkippedSubmissions).
		Msg("Import completed")

	return summary, nil
}

// loadInputs verifies and parses every artifact before the transaction
// opens, so preflight failures have no side effects.
func (im *Importer) loadInputs() (*inputs, error) {
	files := []string{
		im.paths.Roster(),
		im.paths.CleanedEnrollments(),
		im.paths.Assignments(),
		im.paths.Submissions(),
	}
	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", errors.ErrArtifactMissing, file)
		}
		if info.Size() == 0 {
			return nil, fmt.Errorf("%w: %s", errors.ErrArtifactEmpty, file)
		}
	}

	students, err := roster.Read(im.paths.Roster())
	if err != nil {
		return nil, err
	}
	enrollments, err := artifact.ReadEnrollmentsXLSX(im.paths.CleanedEnrollments())
	if err != nil {
		return nil, err
	}
	assignments, err := readAssignmentsCSV(im.paths.Assignments())
	if err != nil {
		return nil, err
	}
	submissions, err := readSubmissionsCSV(im.paths.Submissions())
	if err != nil {
		return nil, err
	}

	return &inputs{
		students:    students,
		enrollments: enrollments,
		assignments: assignments,
		submissions: submissions,
	}, nil
}

func (im *Importer) importStudents(ctx context.Context, tx *sql.Tx, rows []model.StudentRow, summary *model.ImportSummary) error {
	for start := 0; start < len(rows); start += im.cfg.Import.BatchSize {
		batch := rows[start:min(start+im.cfg.Import.BatchSize, len(rows))]
		if err := im.store.InsertStudents(ctx, tx, batch); err != nil {
			return fmt.Errorf("failed to insert students: %w", err)
		}
		summary.Students += len(batch)
	}
	return nil
}

func (im *Importer) importEnrollments(ctx context.Context, tx *sql.Tx, rows []model.EnrollmentRow, studentIDs map[string]struct{}, summary *model.ImportSummary) error {
	kept := make([]model.EnrollmentRow, 0, len(rows))
	for _, row := range rows {
		if _, ok := studentIDs[row.StudentID]; !ok {
			im.log.Warn().Str("student_id", row.StudentID).Msg("Enrollment references unknown student, skipping")
			summary.SkippedEnrollments++
			continue
		}
		kept = append(kept, row)
	}

	for start := 0; start < len(kept); start += im.cfg.Import.BatchSize {
		batch := kept[start:min(start+im.cfg.Import.BatchSize, len(kept))]
		if err := im.store.InsertEnrollments(ctx, tx, batch); err != nil {
			return fmt.Errorf("failed to insert enrollments: %w", err)
		}
		summary.Enrollments += len(batch)
	}
	return nil
}

func (im *Importer) importAssignments(ctx context.Context, tx *sql.Tx, rows []rawAssignment, summary *model.ImportSummary) error {
	kept := make([]model.AssignmentRow, 0, len(rows))
	for _, row := range rows {
		id, err := parseAssignmentID(row.ID)
		if err != nil {
			im.log.Error().Str("id", row.ID).Msg("Invalid assignment ID in table, skipping")
			summary.SkippedAssignments++
			continue
		}
		due := row.DueDate
		var duePtr *string
		if due != "" {
			duePtr = &due
		}
		kept = append(kept, model.AssignmentRow{ID: id, Title: row.Title, DueDate: duePtr})
	}

	for start := 0; start < len(kept); start += im.cfg.Import.BatchSize {
		batch := kept[start:min(start+im.cfg.Import.BatchSize, len(kept))]
		if err := im.store.InsertAssignments(ctx, tx, batch); err != nil {
			return fmt.Errorf("failed to insert assignments: %w", err)
		}
		summary.Assignments += len(batch)
	}
	return nil
}

func (im *Importer) importSubmissions(ctx context.Context, tx *sql.Tx, rows []rawSubmission, studentIDs map[string]struct{}, assignmentIDs map[uint32]struct{}, summary *model.ImportSummary) error {
	kept := make([]model.SubmissionRow, 0, len(rows))

	for _, row := range rows {
		if _, ok := studentIDs[row.StudentID]; !ok {
			im.log.Warn().Str("student_id", row.StudentID).Msg("Submission references unknown student, skipping")
			summary.SkippedSubmissions++
			continue
		}

		assignmentID, err := parseAssignmentID(row.AssignmentID)
		if err != nil {
			im.log.Error().Str("assignment_id", row.AssignmentID).Msg("Invalid assignment ID on submission, skipping")
			summary.SkippedSubmissions++
			continue
		}
		if _, ok := assignmentIDs[assignmentID]; !ok {
			im.log.Warn().Uint32("assignment_id", assignmentID).Msg("Submission references unknown assignment, skipping")
			summary.SkippedSubmissions++
			continue
		}

		var score *float64
		if row.Score != "" {
			v, err := strconv.ParseFloat(row.Score, 64)
			if err != nil {
				im.log.Warn().
					Str("score", row.Score).
					Str("student_id", row.StudentID).
					Str("assignment_id", row.AssignmentID).
					Msg("Unparseable score, skipping submission")
				summary.SkippedSubmissions++
				continue
			}
			score = &v
		}

		status := row.Status
		if status == "" {
			status = string(model.SubmissionStatusFloating)
		}

		var submittedAt *string
		if row.SubmittedAt != "" {
			s := row.SubmittedAt
			submittedAt = &s
		}

		kept = append(kept, model.SubmissionRow{
			StudentID:    row.StudentID,
			AssignmentID: assignmentID,
			SubmittedAt:  submittedAt,
			Score:        score,
			Status:       model.SubmissionStatus(status),
		})
	}

	for start := 0; start < len(kept); start += im.cfg.Import.BatchSize {
		batch := kept[start:min(start+im.cfg.Import.BatchSize, len(kept))]
		if err := im.store.InsertSubmissions(ctx, tx, batch); err != nil {
			return fmt.Errorf("failed to insert submissions: %w", err)
		}
		summary.Submissions += len(batch)
	}
	return nil
}
