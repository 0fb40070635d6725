package analysis

import (
	"strconv"
	"strings"
	"time"
)

// Kind is the inferred type of a column. Cleaning passes only touch text
// columns, so a column that has been converted is never converted again.
type Kind int

const (
	KindText Kind = iota
	KindNumber
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindTime:
		return "time"
	default:
		return "text"
	}
}

// Cell holds one value. Which field is meaningful depends on the kind of the
// column it belongs to; an invalid cell is absent.
type Cell struct {
	Text  string    `json:"s,omitempty"`
	Num   float64   `json:"n,omitempty"`
	Time  time.Time `json:"t,omitzero"`
	Valid bool      `json:"v"`
}

// Text returns a present text cell.
func Text(s string) Cell { return Cell{Text: s, Valid: true} }

// Number returns a present numeric cell.
func Number(f float64) Cell { return Cell{Num: f, Valid: true} }

// Time returns a present timestamp cell.
func Time(t time.Time) Cell { return Cell{Time: t, Valid: true} }

// Column is a named, typed column.
type Column struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// Table is a board converted to rows and columns. Every row has exactly
// len(Columns) cells.
type Table struct {
	Columns []Column `json:"columns"`
	Rows    [][]Cell `json:"rows"`
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool { return t.Len() == 0 }

// Names returns the column names in order.
func (t *Table) Names() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Index returns the position of the named column, or -1.
func (t *Table) Index(name string) int {
	if t == nil {
		return -1
	}
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	if t == nil {
		return &Table{}
	}
	out := &Table{
		Columns: append([]Column(nil), t.Columns...),
		Rows:    make([][]Cell, len(t.Rows)),
	}
	for i, r := range t.Rows {
		out.Rows[i] = append([]Cell(nil), r...)
	}
	return out
}

// Missing returns the number of absent cells in column j.
func (t *Table) Missing(j int) int {
	var n int
	for _, r := range t.Rows {
		if !r[j].Valid {
			n++
		}
	}
	return n
}

// MissingRatio returns absent cells over all cells, 0 for an empty table.
func (t *Table) MissingRatio() float64 {
	total := t.Len() * len(t.Columns)
	if total == 0 {
		return 0
	}
	var miss int
	for j := range t.Columns {
		miss += t.Missing(j)
	}
	return float64(miss) / float64(total)
}

// Display renders cell j of row as plain text. Absent cells render empty.
func (t *Table) Display(row []Cell, j int) string {
	c := row[j]
	if !c.Valid {
		return ""
	}
	switch t.Columns[j].Kind {
	case KindNumber:
		return strconv.FormatFloat(c.Num, 'f', -1, 64)
	case KindTime:
		if c.Time.Hour() == 0 && c.Time.Minute() == 0 && c.Time.Second() == 0 {
			return c.Time.Format("2006-01-02")
		}
		return c.Time.Format("2006-01-02 15:04:05")
	default:
		return c.Text
	}
}

// Float returns the numeric value of cell j. Text cells are parsed leniently;
// time cells and failures are absent.
func (t *Table) Float(row []Cell, j int) (float64, bool) {
	c := row[j]
	if !c.Valid {
		return 0, false
	}
	switch t.Columns[j].Kind {
	case KindNumber:
		return c.Num, true
	case KindText:
		return parsePlainNumber(c.Text)
	default:
		return 0, false
	}
}

// Key returns the grouping key of cell j: its trimmed display text, with ok
// false for absent or blank cells.
func (t *Table) Key(row []Cell, j int) (string, bool) {
	s := strings.TrimSpace(t.Display(row, j))
	return s, s != ""
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
