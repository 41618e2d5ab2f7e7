package canonical

import (
	"hash/crc32"
	"strings"
	"time"

	"canvas-analytics-etl/internal/logger"
	"canvas-analytics-etl/internal/model"

	"github.com/rs/zerolog"
)

// Canonicalizer assigns a stable identifier to each logically-duplicate
// assignment across courses and sections. The identifier is a CRC-32 (IEEE)
// checksum of the normalized title key, so the same title maps to the same
// ID on every run and re-imports do not fragment assignment identity.
type Canonicalizer struct {
	bucketByDueDate bool
	log             zerolog.Logger
}

// NewCanonicalizer builds a canonicalizer. With bucketByDueDate set,
// same-named assignments with different calendar-day deadlines keep
// distinct identities.
func NewCanonicalizer(bucketByDueDate bool) *Canonicalizer {
	return &Canonicalizer{
		bucketByDueDate: bucketByDueDate,
		log:             logger.Get(),
	}
}

// Key is the normalized string the canonical ID derives from: internal
// whitespace runs collapsed to single spaces, trimmed, lower-cased, with
// the due date truncated to calendar-day precision appended when bucketing
// is on.
func (c *Canonicalizer) Key(title string, dueAt *string) string {
	key := strings.ToLower(strings.Join(strings.Fields(title), " "))
	if c.bucketByDueDate {
		key += "|" + dayBucket(dueAt)
	}
	return key
}

// ID is the canonical integer identifier for an assignment.
func (c *Canonicalizer) ID(title string, dueAt *string) uint32 {
	return crc32.ChecksumIEEE([]byte(c.Key(title, dueAt)))
}

// Canonicalize deduplicates the flat assignment-submission rows into one
// assignment table and rewrites every submission row against the canonical
// IDs. Merge policy: first-seen title wins for display, earliest non-null
// due date wins. Rows collapsing to the same (student, canonical ID) pair
// merge to one submission, so a student whose courses share an assignment
// title yields exactly one row for it. Every emitted submission references
// an emitted assignment.
func (c *Canonicalizer) Canonicalize(rows []model.AssignmentSubmissionRow) ([]model.AssignmentRow, []model.SubmissionRow) {
	byID := make(map[uint32]*model.AssignmentRow)
	var order []uint32

	subIndex := make(map[submissionKey]int)
	submissions := make([]model.SubmissionRow, 0, len(rows))

	for _, row := range rows {
		id := c.ID(row.Title, row.DueAt)

		existing, ok := byID[id]
		if !ok {
			byID[id] = &model.AssignmentRow{
				ID:      id,
				Title:   row.Title,
				DueDate: row.DueAt,
			}
			order = append(order, id)
		} else {
			existing.DueDate = earlierTimestamp(existing.DueDate, row.DueAt)
		}

		sub := model.SubmissionRow{
			StudentID:    row.StudentID,
			AssignmentID: id,
			SubmittedAt:  row.SubmittedAt,
			Score:        row.Score,
			Status:       submissionStatus(row.Status),
		}

		key := submissionKey{studentID: row.StudentID, assignmentID: id}
		if idx, dup := subIndex[key]; dup {
			submissions[idx] = preferSubmission(submissions[idx], sub)
			continue
		}
		subIndex[key] = len(submissions)
		submissions = append(submissions, sub)
	}

	assignments := make([]model.AssignmentRow, 0, len(order))
	for _, id := range order {
		assignments = append(assignments, *byID[id])
	}

	c.log.Info().
		Int("raw_rows", len(rows)).
		Int("assignments", len(assignments)).
		Int("submissions", len(submissions)).
		Bool("bucket_by_due_date", c.bucketByDueDate).
		Msg("Assignment canonicalization completed")

	return assignments, submissions
}

// submissionKey identifies one (student, canonical assignment) pair, which
// the submission table holds at most one row for.
type submissionKey struct {
	studentID    string
	assignmentID uint32
}

// preferSubmission picks the surviving row for a duplicated pair: the
// earliest non-null submission timestamp wins, first-seen otherwise.
func preferSubmission(kept, next model.SubmissionRow) model.SubmissionRow {
	if next.SubmittedAt == nil {
		return kept
	}
	if kept.SubmittedAt == nil {
		return next
	}
	if earlierTimestamp(kept.SubmittedAt, next.SubmittedAt) == next.SubmittedAt {
		return next
	}
	return kept
}

// earlierTimestamp prefers a non-null value; when both are set the earlier
// one wins. Unparseable values fall back to lexical comparison, which is
// equivalent for ISO-8601 timestamps.
func earlierTimestamp(a, b *string) *string {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}

	ta, errA := time.Parse(time.RFC3339, *a)
	tb, errB := time.Parse(time.RFC3339, *b)
	if errA == nil && errB == nil {
		if tb.Before(ta) {
			return b
		}
		return a
	}

	if *b < *a {
		return b
	}
	return a
}

func dayBucket(dueAt *string) string {
	if dueAt == nil {
		return ""
	}
	if len(*dueAt) >= 10 {
		return (*dueAt)[:10]
	}
	return *dueAt
}

func submissionStatus(raw string) model.SubmissionStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "on_time":
		return model.SubmissionStatusOnTime
	case "late":
		return model.SubmissionStatusLate
	case "missing":
		return model.SubmissionStatusMissing
	default:
		return model.SubmissionStatusFloating
	}
}
