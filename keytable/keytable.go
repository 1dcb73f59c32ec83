// Package keytable records which anonymous identifier belongs to which
// applicant and writes that mapping as a spreadsheet.
package keytable

import (
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// Sheet is the worksheet the table is written to.
const Sheet = "Sheet1"

// Header is the first spreadsheet row.
var Header = []string{"ID", "Applicant Name"}

// Entry maps one identifier to one applicant name.
type Entry struct {
	ID   string
	Name string
}

// Table is an ordered list of entries. The zero value is empty.
type Table struct {
	entries []Entry
}

// Add appends an entry.
func (t *Table) Add(id, name string) {
	t.entries = append(t.entries, Entry{ID: id, Name: name})
}

// Len returns the number of entries.
func (t *Table) Len() int { return len(t.entries) }

// Entries returns a copy of the entries in insertion order.
func (t *Table) Entries() []Entry {
	return append([]Entry(nil), t.entries...)
}

// WriteXLSX writes the table as a single-sheet workbook. Identifiers are
// stored as text so leading zeros survive.
func (t *Table) WriteXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetRow(Sheet, "A1", &[]interface{}{Header[0], Header[1]}); err != nil {
		return fmt.Errorf("keytable: header: %w", err)
	}
	for i, e := range t.entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("keytable: %w", err)
		}
		if err := f.SetSheetRow(Sheet, cell, &[]interface{}{e.ID, e.Name}); err != nil {
			return fmt.Errorf("keytable: row %d: %w", i+1, err)
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("keytable: write: %w", err)
	}
	return nil
}

// ReadXLSX reads a workbook written by WriteXLSX.
func ReadXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("keytable: open: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(Sheet)
	if err != nil {
		return nil, fmt.Errorf("keytable: rows: %w", err)
	}
	if len(rows) == 0 || len(rows[0]) < 2 || rows[0][0] != Header[0] || rows[0][1] != Header[1] {
		return nil, errors.New("keytable: missing header row")
	}
	t := &Table{}
	for _, row := range rows[1:] {
		var e Entry
		if len(row) > 0 {
			e.ID = row[0]
		}
		if len(row) > 1 {
			e.Name = row[1]
		}
		t.entries = append(t.entries, e)
	}
	return t, nil
}
