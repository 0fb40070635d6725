package analysis

import "strings"

// Column-name keywords selecting each cleaning pass.
var (
	dateKeywords   = []string{"date", "created", "updated", "deadline", "due", "start", "end", "close"}
	moneyKeywords  = []string{"value", "amount", "revenue", "price", "cost", "budget", "deal"}
	sectorKeywords = []string{"sector", "industry", "vertical", "segment", "domain"}
)

const (
	numericSampleSize = 20
	// A text column becomes numeric when at least 3/5 of its sample parses.
	numericRatioNum, numericRatioDen = 3, 5
)

// Clean runs the cleaning passes over a copy of t: trim text, parse date
// columns, coerce money and numeric-looking columns, normalize sectors.
// Every pass only considers text columns, so Clean(Clean(t)) equals Clean(t).
// Row and column counts never change.
func Clean(t *Table) *Table {
	if t == nil {
		return &Table{}
	}
	if t.Empty() {
		return t
	}
	out := t.Clone()
	trimText(out)
	parseDates(out)
	coerceNumbers(out)
	normalizeSectors(out)
	return out
}

func nameHas(name string, keywords []string) bool {
	lower := strings.ToLower(name)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func trimText(t *Table) {
	for j, c := range t.Columns {
		if c.Kind != KindText {
			continue
		}
		for _, r := range t.Rows {
			if r[j].Valid {
				r[j].Text = strings.TrimSpace(r[j].Text)
			}
		}
	}
}

func parseDates(t *Table) {
	for j, c := range t.Columns {
		if c.Kind != KindText || !nameHas(c.Name, dateKeywords) {
			continue
		}
		for _, r := range t.Rows {
			if !r[j].Valid {
				continue
			}
			if ts, ok := ParseDate(r[j].Text); ok {
				r[j] = Time(ts)
			} else {
				r[j] = Cell{}
			}
		}
		t.Columns[j].Kind = KindTime
	}
}

func coerceNumbers(t *Table) {
	for j, c := range t.Columns {
		if c.Kind != KindText {
			continue
		}
		parse := parsePlainNumber
		if nameHas(c.Name, moneyKeywords) {
			parse = ParseCurrency
		} else if !looksNumeric(t, j) {
			continue
		}
		for _, r := range t.Rows {
			if !r[j].Valid {
				continue
			}
			if f, ok := parse(r[j].Text); ok {
				r[j] = Number(f)
			} else {
				r[j] = Cell{}
			}
		}
		t.Columns[j].Kind = KindNumber
	}
}

// looksNumeric samples the first present values of column j.
func looksNumeric(t *Table, j int) bool {
	var sampled, parsed int
	for _, r := range t.Rows {
		if sampled == numericSampleSize {
			break
		}
		if !r[j].Valid {
			continue
		}
		sampled++
		if _, ok := parsePlainNumber(r[j].Text); ok {
			parsed++
		}
	}
	if sampled == 0 {
		return false
	}
	return parsed*numericRatioDen >= sampled*numericRatioNum
}

func normalizeSectors(t *Table) {
	for j, c := range t.Columns {
		if c.Kind != KindText || !nameHas(c.Name, sectorKeywords) {
			continue
		}
		for _, r := range t.Rows {
			if r[j].Valid {
				r[j].Text = NormalizeSector(r[j].Text)
			}
		}
	}
}
