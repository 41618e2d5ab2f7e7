package model

import "encoding/json"

// AssignmentAnalytics is one record from the Canvas per-student assignment
// analytics endpoint. Upstream assignment IDs are scoped to a course and
// collide in meaning across courses, so they never leave the fetch/clean
// stages.
type AssignmentAnalytics struct {
	AssignmentID   json.Number        `json:"assignment_id"`
	Title          string             `json:"title"`
	DueAt          *string            `json:"due_at"`
	PointsPossible *float64           `json:"points_possible"`
	Status         string             `json:"status"`
	Submission     *AnalyticsSubmittn `json:"submission"`
}

// AnalyticsSubmittn is the nested submission sub-object of an analytics
// record.
type AnalyticsSubmittn struct {
	Score       *float64 `json:"score"`
	SubmittedAt *string  `json:"submitted_at"`
}

// Enrollment is one record from the Canvas per-course enrollment listing.
// Grades may arrive as a native object or as a string, so the field stays
// raw until the cleaner parses it once.
type Enrollment struct {
	UserID            json.Number     `json:"user_id"`
	Type              string          `json:"type"`
	Role              string          `json:"role"`
	LastActivityAt    *string         `json:"last_activity_at"`
	TotalActivityTime *float64        `json:"total_activity_time"`
	SISCourseID       *string         `json:"sis_course_id"`
	SISSectionID      *string         `json:"sis_section_id"`
	SISUserID         *string         `json:"sis_user_id"`
	Grades            json.RawMessage `json:"grades"`
}
