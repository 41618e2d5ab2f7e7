package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"canvas-analytics-etl/internal/artifact"
	"canvas-analytics-etl/internal/canonical"
	"canvas-analytics-etl/internal/canvas"
	"canvas-analytics-etl/internal/clean"
	"canvas-analytics-etl/internal/config"
	"canvas-analytics-etl/internal/db"
	"canvas-analytics-etl/internal/importer"
	"canvas-analytics-etl/internal/logger"
	"canvas-analytics-etl/internal/model"
	"canvas-analytics-etl/internal/roster"

	"github.com/rs/zerolog"
)

// Pipeline sequences one full reload: roster merge, concurrent fetch,
// clean, canonicalize, artifact export, atomic import. A run either
// completes (possibly with per-subject fetch failures recorded in the
// summary) or aborts before the store is touched.
type Pipeline struct {
	cfg      *config.Config
	conn     *sql.DB
	fetcher  *canvas.Fetcher
	archiver *artifact.Archiver
	paths    artifact.Paths
	log      zerolog.Logger
}

func New(cfg *config.Config, conn *sql.DB) *Pipeline {
	p := &Pipeline{
		cfg:     cfg,
		conn:    conn,
		fetcher: canvas.NewFetcher(cfg),
		paths:   artifact.NewPaths(cfg.Artifacts.Dir),
		log:     logger.Get(),
	}

	if cfg.Artifacts.ArchiveRawDump {
		archiver, err := artifact.NewArchiver(cfg)
		if err != nil {
			p.log.Error().Err(err).Msg("Raw dump archiving disabled: S3 client init failed")
		} else {
			p.archiver = archiver
		}
	}

	return p
}

// Run executes the full pipeline and returns its summary. The returned
// error is set for configuration- and transaction-fatal conditions only;
// transient fetch failures degrade to counts in the summary.
func (p *Pipeline) Run(ctx context.Context, runID string) (model.RunSummary, error) {
	start := time.Now().UTC()
	summary := model.RunSummary{RunID: runID, StartedAt: start}

	log := p.log.With().Str("run_id", runID).Logger()
	log.Info().Msg("Starting pipeline run")

	merger := roster.NewMerger(p.cfg.Artifacts.Dir)
	students, err := merger.Merge()
	if err != nil {
		return p.fail(summary, start, fmt.Errorf("roster merge failed: %w", err))
	}
	if len(students) == 0 {
		return p.fail(summary, start, fmt.Errorf("merged roster contains no students"))
	}

	studentIDs := make([]string, 0, len(students))
	for _, s := range students {
		studentIDs = append(studentIDs, s.StudentID)
	}

	byStudent, fetchSummary := p.fetcher.FetchAssignments(ctx, studentIDs)
	summary.Assignments = fetchSummary

	if err := artifact.WriteRawDump(p.paths.RawAssignments(), byStudent); err != nil {
		return p.fail(summary, start, err)
	}
	p.archive(ctx, runID, p.paths.RawAssignments())

	enrollRecords, enrollSummary := p.fetcher.FetchEnrollments(ctx)
	summary.Enrollments = enrollSummary

	cleaner := clean.NewCleaner(start)
	enrollRows := cleaner.CleanEnrollments(enrollRecords)
	flatRows := cleaner.CleanAssignments(byStudent)

	if err := artifact.WriteEnrollmentsXLSX(p.paths.CleanedEnrollments(), enrollRows); err != nil {
		return p.fail(summary, start, err)
	}
	if err := artifact.WriteAssignmentsXLSX(p.paths.CleanedAssignments(), flatRows); err != nil {
		return p.fail(summary, start, err)
	}

	canon := canonical.NewCanonicalizer(p.cfg.Canonical.BucketByDueDate)
	assignments, submissions := canon.Canonicalize(flatRows)

	if err := artifact.WriteAssignmentsCSV(p.paths.Assignments(), assignments); err != nil {
		return p.fail(summary, start, err)
	}
	if err := artifact.WriteSubmissionsCSV(p.paths.Submissions(), submissions); err != nil {
		return p.fail(summary, start, err)
	}

	imp := importer.NewImporter(p.cfg, p.conn, db.NewStore())
	importSummary, err := imp.Run(ctx)
	if err != nil {
		return p.fail(summary, start, err)
	}
	summary.Import = importSummary

	summary.Duration = time.Since(start)
	summary.Succeeded = true

	log.Info().
		Dur("duration", summary.Duration).
		Int("students", importSummary.Students).
		Int("enrollments", importSummary.Enrollments).
		Int("assignments", importSummary.Assignments).
		Int("submissions", importSummary.Submissions).
		Int("failed_subjects", fetchSummary.FailedSubjects).
		Msg("Pipeline run completed")

	return summary, nil
}

func (p *Pipeline) fail(summary model.RunSummary, start time.Time, err error) (model.RunSummary, error) {
	summary.Duration = time.Since(start)
	summary.Error = err.Error()
	p.log.Error().Err(err).Str("run_id", summary.RunID).Msg("Pipeline run failed")
	return summary, err
}

func (p *Pipeline) archive(ctx context.Context, runID, path string) {
	if p.archiver == nil {
		return
	}
	if err := p.archiver.ArchiveFile(ctx, runID, path); err != nil {
		p.log.Warn().Err(err).Str("path", path).Msg("Failed to archive artifact")
	}
}
