package analysis

import "strings"

// Role is an ordered set of keywords identifying a column's meaning.
type Role []string

// Column roles shared by the summarizer and the leadership report.
var (
	RoleSector = Role{"sector", "industry", "vertical", "segment", "domain"}
	RoleValue  = Role{"value", "amount", "revenue", "deal size", "price"}
	RoleStage  = Role{"stage", "status", "phase"}
	RoleStatus = Role{"status", "state", "progress", "stage"}
	RoleClient = Role{"client", "customer", "account", "company"}
)

// FindColumn returns the index of the first column, in table order, whose
// lowercased name contains any keyword of role. Matching is a heuristic: a hit
// is a best guess, and -1 means no column plays the role.
func (t *Table) FindColumn(role Role) int {
	if t == nil {
		return -1
	}
	for j, c := range t.Columns {
		lower := strings.ToLower(c.Name)
		for _, kw := range role {
			if strings.Contains(lower, kw) {
				return j
			}
		}
	}
	return -1
}

// Count is one distinct value and how many rows carry it.
type Count struct {
	Value string
	N     int
}

// ValueCounts tallies the non-blank values of column j, most frequent first
// with ties kept in first-seen order.
func (t *Table) ValueCounts(j int) []Count {
	pos := map[string]int{}
	var out []Count
	for _, r := range t.Rows {
		k, ok := t.Key(r, j)
		if !ok {
			continue
		}
		if i, seen := pos[k]; seen {
			out[i].N++
			continue
		}
		pos[k] = len(out)
		out = append(out, Count{Value: k, N: 1})
	}
	sortCounts(out)
	return out
}

// Agg is a per-group numeric aggregate.
type Agg struct {
	Key   string
	Sum   float64
	N     int
	Items int
}

// Mean returns Sum/N, or 0 when no value was present.
func (a Agg) Mean() float64 {
	if a.N == 0 {
		return 0
	}
	return a.Sum / float64(a.N)
}

// GroupSum groups rows by the non-blank key in column by and sums the numeric
// values of column val. N counts present values, Items counts rows. Groups are
// returned sorted by key.
func (t *Table) GroupSum(by, val int) []Agg {
	pos := map[string]int{}
	var out []Agg
	for _, r := range t.Rows {
		k, ok := t.Key(r, by)
		if !ok {
			continue
		}
		i, seen := pos[k]
		if !seen {
			i = len(out)
			pos[k] = i
			out = append(out, Agg{Key: k})
		}
		out[i].Items++
		if f, ok := t.Float(r, val); ok {
			out[i].Sum += f
			out[i].N++
		}
	}
	sortAggsByKey(out)
	return out
}
