package artifact

import "path/filepath"

// Paths fixes the filesystem contract between the pipeline stages. Any
// component producing files in these shapes is interchangeable with the
// stages that normally write them.
type Paths struct {
	Dir string
}

func NewPaths(dir string) Paths {
	return Paths{Dir: dir}
}

// Roster is the merged student roster.
func (p Paths) Roster() string {
	return filepath.Join(p.Dir, "StudentRoster.csv")
}

// RawAssignments is the raw API dump keyed by student ID.
func (p Paths) RawAssignments() string {
	return filepath.Join(p.Dir, "assignments_raw.json")
}

// CleanedEnrollments is the flat enrollment export.
func (p Paths) CleanedEnrollments() string {
	return filepath.Join(p.Dir, "cleaned_enrollments_data.xlsx")
}

// CleanedAssignments is the flat assignment-submission export.
func (p Paths) CleanedAssignments() string {
	return filepath.Join(p.Dir, "assignments_cleaned.xlsx")
}

// Assignments is the canonical assignment table.
func (p Paths) Assignments() string {
	return filepath.Join(p.Dir, "assignments_cleaned_assignments.csv")
}

// Submissions is the canonicalized submission table.
func (p Paths) Submissions() string {
	return filepath.Join(p.Dir, "assignments_cleaned_submissions.csv")
}
