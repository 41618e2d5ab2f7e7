package clean

import (
	"encoding/json"
	"testing"
	"time"

	"canvas-analytics-etl/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var runDate = time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)

func strPtr(s string) *string   { return &s }
func f64Ptr(f float64) *float64 { return &f }

func TestInactiveDays(t *testing.T) {
	c := NewCleaner(runDate)

	tenDaysAgo := runDate.AddDate(0, 0, -10).Format(time.RFC3339)
	row := c.CleanEnrollment(model.Enrollment{UserID: "1", LastActivityAt: strPtr(tenDaysAgo)})
	require.NotNil(t, row.InactiveDays)
	assert.Equal(t, 10, *row.InactiveDays)

	future := runDate.AddDate(0, 0, 3).Format(time.RFC3339)
	row = c.CleanEnrollment(model.Enrollment{UserID: "1", LastActivityAt: strPtr(future)})
	require.NotNil(t, row.InactiveDays)
	assert.Equal(t, 0, *row.InactiveDays, "future activity clamps to zero")

	row = c.CleanEnrollment(model.Enrollment{UserID: "1"})
	assert.Nil(t, row.InactiveDays, "null last activity yields null inactive days")
	assert.Nil(t, row.LastActivityAt)
}

func TestUnparseableTimestampDoesNotAbortRow(t *testing.T) {
	c := NewCleaner(runDate)

	row := c.CleanEnrollment(model.Enrollment{
		UserID:         "42",
		Type:           "StudentEnrollment",
		LastActivityAt: strPtr("not-a-date"),
	})

	assert.Nil(t, row.LastActivityAt)
	assert.Nil(t, row.InactiveDays)
	assert.Equal(t, "42", row.StudentID)
	assert.Equal(t, "StudentEnrollment", row.Type)
}

func TestActivityTimeSecondsToHours(t *testing.T) {
	c := NewCleaner(runDate)

	row := c.CleanEnrollment(model.Enrollment{UserID: "1", TotalActivityTime: f64Ptr(7200)})
	require.NotNil(t, row.TotalActivityHours)
	assert.InDelta(t, 2.0, *row.TotalActivityHours, 1e-9)

	row = c.CleanEnrollment(model.Enrollment{UserID: "1"})
	assert.Nil(t, row.TotalActivityHours)
}

func TestParseGradesVariants(t *testing.T) {
	native := ParseGrades(json.RawMessage(`{"current_score": 91.5, "final_grade": 88}`))
	require.NotNil(t, native.Get("current_score"))
	assert.InDelta(t, 91.5, *native.Get("current_score"), 1e-9)
	assert.Nil(t, native.Get("unposted_final_score"))

	stringified := ParseGrades(json.RawMessage(`"{\"current_score\": 75}"`))
	require.NotNil(t, stringified.Get("current_score"))
	assert.InDelta(t, 75, *stringified.Get("current_score"), 1e-9)

	pythonish := ParseGrades(json.RawMessage(`"{'current_score': 60.25, 'final_score': None}"`))
	require.NotNil(t, pythonish.Get("current_score"))
	assert.InDelta(t, 60.25, *pythonish.Get("current_score"), 1e-9)
	assert.Nil(t, pythonish.Get("final_score"))

	garbage := ParseGrades(json.RawMessage(`"definitely not an object"`))
	assert.Nil(t, garbage.Get("current_score"))

	absent := ParseGrades(nil)
	assert.Nil(t, absent.Get("current_score"))
}

func TestCleanEnrollmentFlattensGrades(t *testing.T) {
	c := NewCleaner(runDate)

	row := c.CleanEnrollment(model.Enrollment{
		UserID: "7",
		Grades: json.RawMessage(`{"current_score": 82.1, "unposted_final_score": 79.9}`),
	})

	require.NotNil(t, row.CurrentScore)
	assert.InDelta(t, 82.1, *row.CurrentScore, 1e-9)
	require.NotNil(t, row.UnpostedFinalScore)
	assert.InDelta(t, 79.9, *row.UnpostedFinalScore, 1e-9)
	assert.Nil(t, row.FinalGrade)
}

func TestCleanAssignmentsOrderIsDeterministic(t *testing.T) {
	c := NewCleaner(runDate)

	byStudent := map[string][]model.AssignmentAnalytics{
		"30": {{AssignmentID: "3", Title: "C"}},
		"10": {{AssignmentID: "1", Title: "A"}},
		"20": {{AssignmentID: "2", Title: "B"}},
	}

	first := c.CleanAssignments(byStudent)
	require.Len(t, first, 3)
	assert.Equal(t, "10", first[0].StudentID)
	assert.Equal(t, "20", first[1].StudentID)
	assert.Equal(t, "30", first[2].StudentID)

	second := c.CleanAssignments(byStudent)
	assert.Equal(t, first, second, "identical input produces identical row order")
}

func TestCleanAssignmentsFlattensSubmission(t *testing.T) {
	c := NewCleaner(runDate)

	byStudent := map[string][]model.AssignmentAnalytics{
		"11": {
			{
				AssignmentID:   "900",
				Title:          "Essay 1",
				DueAt:          strPtr("2024-04-01T05:59:00Z"),
				PointsPossible: f64Ptr(100),
				Status:         "late",
				Submission:     &model.AnalyticsSubmittn{Score: f64Ptr(87.5), SubmittedAt: strPtr("2024-04-02T01:00:00Z")},
			},
			{
				AssignmentID: "901",
				Title:        "Essay 2",
				Status:       "missing",
			},
		},
	}

	rows := c.CleanAssignments(byStudent)
	require.Len(t, rows, 2)

	byID := make(map[string]model.AssignmentSubmissionRow)
	for _, r := range rows {
		byID[r.AssignmentID] = r
	}

	withSub := byID["900"]
	assert.Equal(t, "11", withSub.StudentID)
	require.NotNil(t, withSub.Score)
	assert.InDelta(t, 87.5, *withSub.Score, 1e-9)
	require.NotNil(t, withSub.SubmittedAt)

	noSub := byID["901"]
	assert.Nil(t, noSub.Score)
	assert.Nil(t, noSub.SubmittedAt)
	assert.Equal(t, "missing", noSub.Status)
}
