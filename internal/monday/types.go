package monday

import "encoding/json"

// Board is a named collection of items with a declared column schema.
type Board struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Kind    string   `json:"board_kind,omitempty"`
	Columns []Column `json:"columns,omitempty"`
	Items   []Item   `json:"-"`
}

// Column describes one field of a board.
type Column struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Type     string `json:"type"`
	Settings string `json:"settings_str,omitempty"`
}

// Item is one row-equivalent record of a board.
type Item struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Group        *Group        `json:"group,omitempty"`
	ColumnValues []ColumnValue `json:"column_values"`
}

// Group is the board section an item belongs to.
type Group struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ColumnValue is a single field of an item. Text is the display text; Value
// is the raw JSON the API stores for the field and may be null.
type ColumnValue struct {
	ID    string          `json:"id"`
	Text  string          `json:"text"`
	Value json.RawMessage `json:"value,omitempty"`
	Type  string          `json:"type"`
}

// ColumnTitles maps column id to title.
func (b *Board) ColumnTitles() map[string]string {
	out := make(map[string]string, len(b.Columns))
	for _, c := range b.Columns {
		out[c.ID] = c.Title
	}
	return out
}

// Health summarises connectivity to the API.
type Health struct {
	Status      string `json:"status"`
	BoardsFound int    `json:"boards_found,omitempty"`
	Error       string `json:"error,omitempty"`
}

type itemsPage struct {
	Cursor *string `json:"cursor"`
	Items  []Item  `json:"items"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type envelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
	// Some API versions report errors at the top level instead of in errors[].
	ErrorMessage string `json:"error_message"`
}
