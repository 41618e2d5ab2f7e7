package model

import "time"

type SubmissionStatus string

const (
	SubmissionStatusOnTime   SubmissionStatus = "on_time"
	SubmissionStatusLate     SubmissionStatus = "late"
	SubmissionStatusMissing  SubmissionStatus = "missing"
	SubmissionStatusFloating SubmissionStatus = "floating"
)

// StudentRow is one line of the merged roster.
type StudentRow struct {
	Name        string `json:"name"`
	StudentID   string `json:"student_id"`
	SISID       string `json:"sis_id"`
	Email       string `json:"email"`
	SectionName string `json:"section_name"`
}

// EnrollmentRow is the flat shape the cleaner produces from a raw
// enrollment record. Nil pointers become empty cells in the export.
type EnrollmentRow struct {
	StudentID            string
	Type                 string
	Role                 string
	LastActivityAt       *time.Time
	InactiveDays         *int
	TotalActivityHours   *float64
	SISCourseID          string
	SISSectionID         string
	SISUserID            string
	CurrentGrade         *float64
	CurrentScore         *float64
	FinalGrade           *float64
	FinalScore           *float64
	UnpostedCurrentGrade *float64
	UnpostedCurrentScore *float64
	UnpostedFinalGrade   *float64
	UnpostedFinalScore   *float64
}

// AssignmentSubmissionRow is the flat shape the cleaner produces from one
// raw assignment-analytics record: parent assignment fields alongside the
// nested submission fields. The canonicalizer splits it into the two
// canonical tables.
type AssignmentSubmissionRow struct {
	StudentID      string
	AssignmentID   string
	Title          string
	PointsPossible *float64
	DueAt          *string
	Status         string
	Score          *float64
	SubmittedAt    *string
}

// AssignmentRow is one line of the canonical assignment table. ID is the
// canonical hash, not the upstream per-course assignment ID.
type AssignmentRow struct {
	ID      uint32
	Title   string
	DueDate *string
}

// SubmissionRow is one line of the canonical submission table. AssignmentID
// always resolves to a row in the canonical assignment table.
type SubmissionRow struct {
	StudentID    string
	AssignmentID uint32
	SubmittedAt  *string
	Score        *float64
	Status       SubmissionStatus
}
