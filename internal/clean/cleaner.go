package clean

import (
	"sort"
	"time"

	"canvas-analytics-etl/internal/logger"
	"canvas-analytics-etl/internal/model"

	"github.com/rs/zerolog"
)

// Cleaner maps raw Canvas payloads into the flat tabular rows the
// canonicalizer and importer consume. Field-level parse failures degrade to
// empty values; a row is never aborted for one bad field.
type Cleaner struct {
	runDate time.Time
	log     zerolog.Logger
}

// NewCleaner fixes the run date once so inactivity math stays consistent
// across a run that straddles midnight.
func NewCleaner(runDate time.Time) *Cleaner {
	return &Cleaner{
		runDate: runDate,
		log:     logger.Get(),
	}
}

// CleanEnrollment flattens one raw enrollment record: the nested grades
// object becomes eight numeric-or-empty fields, activity time converts from
// seconds to hours, and inactivity is derived from the last-activity
// timestamp relative to the run date, clamped at zero.
func (c *Cleaner) CleanEnrollment(rec model.Enrollment) model.EnrollmentRow {
	row := model.EnrollmentRow{
		StudentID:    rec.UserID.String(),
		Type:         rec.Type,
		Role:         rec.Role,
		SISCourseID:  deref(rec.SISCourseID),
		SISSectionID: deref(rec.SISSectionID),
		SISUserID:    deref(rec.SISUserID),
	}

	if rec.TotalActivityTime != nil {
		hours := *rec.TotalActivityTime / 3600
		row.TotalActivityHours = &hours
	}

	row.LastActivityAt = c.parseTimestamp(rec.LastActivityAt)
	row.InactiveDays = c.inactiveDays(row.LastActivityAt)

	grades := ParseGrades(rec.Grades)
	row.CurrentGrade = grades.Get("current_grade")
	row.CurrentScore = grades.Get("current_score")
	row.FinalGrade = grades.Get("final_grade")
	row.FinalScore = grades.Get("final_score")
	row.UnpostedCurrentGrade = grades.Get("unposted_current_grade")
	row.UnpostedCurrentScore = grades.Get("unposted_current_score")
	row.UnpostedFinalGrade = grades.Get("unposted_final_grade")
	row.UnpostedFinalScore = grades.Get("unposted_final_score")

	return row
}

// CleanEnrollments cleans the whole listing in input order.
func (c *Cleaner) CleanEnrollments(records []model.Enrollment) []model.EnrollmentRow {
	rows := make([]model.EnrollmentRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, c.CleanEnrollment(rec))
	}
	return rows
}

// CleanAssignments flattens the per-student assignment analytics: each
// record's nested submission sub-object lands alongside the parent
// assignment fields. Students are processed in sorted ID order so the row
// order, and with it which title variant downstream merging sees first, is
// identical across runs on the same input.
func (c *Cleaner) CleanAssignments(byStudent map[string][]model.AssignmentAnalytics) []model.AssignmentSubmissionRow {
	studentIDs := make([]string, 0, len(byStudent))
	for studentID := range byStudent {
		studentIDs = append(studentIDs, studentID)
	}
	sort.Strings(studentIDs)

	var rows []model.AssignmentSubmissionRow
	for _, studentID := range studentIDs {
		for _, rec := range byStudent[studentID] {
			row := model.AssignmentSubmissionRow{
				StudentID:      studentID,
				AssignmentID:   rec.AssignmentID.String(),
				Title:          rec.Title,
				PointsPossible: rec.PointsPossible,
				DueAt:          rec.DueAt,
				Status:         rec.Status,
			}
			if rec.Submission != nil {
				row.Score = rec.Submission.Score
				row.SubmittedAt = rec.Submission.SubmittedAt
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// parseTimestamp normalizes an upstream timestamp to UTC with the zone
// stripped. Unparseable values degrade to nil.
func (c *Cleaner) parseTimestamp(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		c.log.Debug().Str("value", *s).Msg("Unparseable timestamp, treating as null")
		return nil
	}
	utc := t.UTC()
	return &utc
}

// inactiveDays is the whole-day gap between the run date and the last
// activity, clamped at zero; nil exactly when last activity is nil.
func (c *Cleaner) inactiveDays(lastActivity *time.Time) *int {
	if lastActivity == nil {
		return nil
	}
	days := int(c.runDate.Sub(*lastActivity).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return &days
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
