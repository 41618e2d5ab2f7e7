package roster

import (
	"os"
	"path/filepath"
	"testing"

	"canvas-analytics-etl/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rosterHeader = "Student Name,Student ID,Student SIS ID,Email,Section Name\n"

func writeExtract(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestMergeDeduplicatesOverlappingRows(t *testing.T) {
	dir := t.TempDir()
	writeExtract(t, dir, "A_StudentRoster.csv", rosterHeader+
		"Ada Lovelace,1001,U1001,ada@example.edu,Section A\n"+
		"Grace Hopper,1002,U1002,grace@example.edu,Section A\n")
	writeExtract(t, dir, "B_StudentRoster.csv", rosterHeader+
		"Grace Hopper,1002,U1002,grace@example.edu,Section A\n"+
		"Alan Turing,1003,U1003,alan@example.edu,Section B\n")

	rows, err := NewMerger(dir).Merge()
	require.NoError(t, err)
	require.Len(t, rows, 3, "overlapping student appears once")

	ids := []string{rows[0].StudentID, rows[1].StudentID, rows[2].StudentID}
	assert.ElementsMatch(t, []string{"1001", "1002", "1003"}, ids)

	// Merged roster is written for the importer.
	merged, err := Read(filepath.Join(dir, "StudentRoster.csv"))
	require.NoError(t, err)
	assert.Len(t, merged, 3)
}

func TestMergeKeepsConflictingRowsForSameStudent(t *testing.T) {
	dir := t.TempDir()
	writeExtract(t, dir, "A_StudentRoster.csv", rosterHeader+
		"Ada Lovelace,1001,U1001,ada@example.edu,Section A\n")
	writeExtract(t, dir, "B_StudentRoster.csv", rosterHeader+
		"Ada Lovelace,1001,U1001,ada@example.edu,Section B\n")

	rows, err := NewMerger(dir).Merge()
	require.NoError(t, err)

	// Dedup is on the full row value: a section disagreement keeps both
	// rows and is surfaced to the operator rather than silently resolved.
	assert.Len(t, rows, 2)
}

func TestMergeFailsWithoutExtracts(t *testing.T) {
	_, err := NewMerger(t.TempDir()).Merge()
	assert.ErrorIs(t, err, errors.ErrNoRosterFiles)
}

func TestReadRejectsMissingColumn(t *testing.T) {
	dir := t.TempDir()
	writeExtract(t, dir, "A_StudentRoster.csv",
		"Student Name,Student ID,Email,Section Name\nAda,1001,ada@example.edu,Section A\n")

	_, err := NewMerger(dir).Merge()
	assert.ErrorIs(t, err, errors.ErrRosterSchema)
}

func TestReadSkipsRowsWithoutStudentID(t *testing.T) {
	dir := t.TempDir()
	writeExtract(t, dir, "A_StudentRoster.csv", rosterHeader+
		"Ada Lovelace,1001,U1001,ada@example.edu,Section A\n"+
		"No ID,,U9999,noid@example.edu,Section A\n")

	rows, err := NewMerger(dir).Merge()
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
