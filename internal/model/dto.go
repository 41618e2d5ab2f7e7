package model

import "time"

// RunJob is the message the API enqueues to request a pipeline run.
type RunJob struct {
	RunID       string    `json:"run_id"`
	RequestedAt time.Time `json:"requested_at"`
	RequestedBy string    `json:"requested_by,omitempty"`
}

type RunRequest struct {
	RequestedBy string `json:"requested_by"`
}

// FetchSummary records the outcome of the fetch stage. Subjects whose every
// page failed still appear in the result set with zero records.
type FetchSummary struct {
	Subjects       int `json:"subjects"`
	Records        int `json:"records"`
	FailedSubjects int `json:"failed_subjects"`
}

// ImportSummary accumulates the row-level skip counts of one atomic reload.
type ImportSummary struct {
	Students           int `json:"students"`
	Enrollments        int `json:"enrollments"`
	Assignments        int `json:"assignments"`
	Submissions        int `json:"submissions"`
	SkippedEnrollments int `json:"skipped_enrollments"`
	SkippedAssignments int `json:"skipped_assignments"`
	SkippedSubmissions int `json:"skipped_submissions"`
}

// RunSummary is the top-level outcome of one pipeline run.
type RunSummary struct {
	RunID       string        `json:"run_id"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
	Assignments FetchSummary  `json:"assignment_fetch"`
	Enrollments FetchSummary  `json:"enrollment_fetch"`
	Import      ImportSummary `json:"import"`
	Succeeded   bool          `json:"succeeded"`
	Error       string        `json:"error,omitempty"`
}
