package analysis

import "github.com/KaramelBytes/boardsight/internal/monday"

// Fixed column names every table built from a board carries.
const (
	ColItemName = "Item Name"
	ColGroup    = "Group"
)

// FromBoard converts a fetched board into a text table: one row per item,
// "Item Name" first, "Group" when items carry one, then one column per field
// label in first-seen order. Labels come from the board's column titles,
// falling back to the raw field id. Empty field text is absent.
func FromBoard(b *monday.Board) *Table {
	if b == nil || len(b.Items) == 0 {
		return &Table{}
	}
	titles := b.ColumnTitles()

	index := map[string]int{}
	var names []string
	col := func(name string) int {
		if j, ok := index[name]; ok {
			return j
		}
		index[name] = len(names)
		names = append(names, name)
		return len(names) - 1
	}

	rows := make([]map[int]Cell, 0, len(b.Items))
	for _, it := range b.Items {
		row := map[int]Cell{col(ColItemName): Text(it.Name)}
		if it.Group != nil {
			row[col(ColGroup)] = Text(it.Group.Title)
		}
		for _, cv := range it.ColumnValues {
			label, ok := titles[cv.ID]
			if !ok || label == "" {
				label = cv.ID
			}
			j := col(label)
			if cv.Text == "" {
				row[j] = Cell{}
				continue
			}
			row[j] = Text(cv.Text)
		}
		rows = append(rows, row)
	}

	t := &Table{Columns: make([]Column, len(names)), Rows: make([][]Cell, len(rows))}
	for j, n := range names {
		t.Columns[j] = Column{Name: n, Kind: KindText}
	}
	for i, r := range rows {
		cells := make([]Cell, len(names))
		for j, c := range r {
			cells[j] = c
		}
		t.Rows[i] = cells
	}
	return t
}
