package canvas

import (
	"context"
	"encoding/json"
	"fmt"

	"canvas-analytics-etl/internal/config"
	"canvas-analytics-etl/internal/logger"
	"canvas-analytics-etl/internal/model"
	"canvas-analytics-etl/internal/worker"

	"github.com/rs/zerolog"
)

// Fetcher fans out paginated fetches over a bounded worker pool, one task
// per (course, student) pair. Tasks own their retry loops and report
// independent results; the merge into the shared map happens on the
// coordinating goroutine only, after the pool drains.
type Fetcher struct {
	cfg    *config.Config
	client *Client
	log    zerolog.Logger
}

func NewFetcher(cfg *config.Config) *Fetcher {
	return &Fetcher{
		cfg:    cfg,
		client: NewClient(cfg),
		log:    logger.Get(),
	}
}

type subjectResult struct {
	courseID  string
	studentID string
	records   []model.AssignmentAnalytics
	complete  bool
}

type taskKey struct {
	courseID  string
	studentID string
}

// FetchAssignments collects assignment analytics for every (course, student)
// pair. Records for the same student across courses are concatenated in the
// configured course order, independent of which task finished first. A
// subject whose every page failed still appears in the map, with whatever
// pages were collected before giving up.
func (f *Fetcher) FetchAssignments(ctx context.Context, studentIDs []string) (map[string][]model.AssignmentAnalytics, model.FetchSummary) {
	taskCount := len(f.cfg.Canvas.CourseIDs) * len(studentIDs)
	results := make(chan subjectResult, taskCount)

	pool := worker.NewWorkerPool(f.cfg.Fetch.WorkerCount)
	pool.Start(ctx)

	for _, courseID := range f.cfg.Canvas.CourseIDs {
		for _, studentID := range studentIDs {
			courseID, studentID := courseID, studentID
			err := pool.Submit(ctx, func(ctx context.Context) {
				results <- f.fetchSubject(ctx, courseID, studentID)
			})
			if err != nil {
				results <- subjectResult{courseID: courseID, studentID: studentID, complete: false}
			}
		}
	}

	pool.Stop()
	close(results)

	summary := model.FetchSummary{Subjects: len(studentIDs)}
	byTask := make(map[taskKey][]model.AssignmentAnalytics, taskCount)
	for res := range results {
		byTask[taskKey{courseID: res.courseID, studentID: res.studentID}] = res.records
		if !res.complete {
			summary.FailedSubjects++
		}
	}

	merged := make(map[string][]model.AssignmentAnalytics, len(studentIDs))
	for _, studentID := range studentIDs {
		merged[studentID] = nil
	}
	for _, courseID := range f.cfg.Canvas.CourseIDs {
		for _, studentID := range studentIDs {
			records := byTask[taskKey{courseID: courseID, studentID: studentID}]
			merged[studentID] = append(merged[studentID], records...)
			summary.Records += len(records)
		}
	}

	f.log.Info().
		Int("students", len(studentIDs)).
		Int("courses", len(f.cfg.Canvas.CourseIDs)).
		Int("records", summary.Records).
		Int("failed_subjects", summary.FailedSubjects).
		Msg("Assignment analytics fetch completed")

	return merged, summary
}

func (f *Fetcher) fetchSubject(ctx context.Context, courseID, studentID string) subjectResult {
	url := fmt.Sprintf("%s/api/v1/courses/%s/analytics/users/%s/assignments?per_page=%d",
		f.cfg.Canvas.BaseURL, courseID, studentID, f.cfg.Canvas.PerPage)

	raw, complete := f.client.FetchRecords(ctx, url)

	records := make([]model.AssignmentAnalytics, 0, len(raw))
	for _, msg := range raw {
		var rec model.AssignmentAnalytics
		if err := json.Unmarshal(msg, &rec); err != nil {
			f.log.Warn().Err(err).Str("student_id", studentID).Str("course_id", courseID).
				Msg("Skipping malformed assignment record")
			continue
		}
		records = append(records, rec)
	}

	return subjectResult{courseID: courseID, studentID: studentID, records: records, complete: complete}
}

// FetchEnrollments pulls the enrollment listing of every configured course.
// The endpoint is course-scoped, so there is one sequential pagination loop
// per course rather than a per-student fan-out.
func (f *Fetcher) FetchEnrollments(ctx context.Context) ([]model.Enrollment, model.FetchSummary) {
	var all []model.Enrollment
	summary := model.FetchSummary{Subjects: len(f.cfg.Canvas.CourseIDs)}

	for _, courseID := range f.cfg.Canvas.CourseIDs {
		url := fmt.Sprintf("%s/api/v1/courses/%s/enrollments?per_page=%d",
			f.cfg.Canvas.BaseURL, courseID, f.cfg.Canvas.PerPage)

		raw, complete := f.client.FetchRecords(ctx, url)
		if !complete {
			summary.FailedSubjects++
		}

		for _, msg := range raw {
			var rec model.Enrollment
			if err := json.Unmarshal(msg, &rec); err != nil {
				f.log.Warn().Err(err).Str("course_id", courseID).Msg("Skipping malformed enrollment record")
				continue
			}
			all = append(all, rec)
			summary.Records++
		}
	}

	f.log.Info().
		Int("courses", len(f.cfg.Canvas.CourseIDs)).
		Int("records", summary.Records).
		Int("failed_courses", summary.FailedSubjects).
		Msg("Enrollment fetch completed")

	return all, summary
}
