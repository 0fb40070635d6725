package analysis

import (
	"fmt"
	"strings"
	"text/tabwriter"
)

const (
	maxCategories    = 20
	topCategories    = 15
	sampleRows       = 5
	qualityMissingAt = 0.30
)

// Dataset pairs a table with the label used in headers, e.g. "Deals".
type Dataset struct {
	Label string
	Table *Table
}

// BuildContext renders the summaries of every dataset followed by their
// sample rows. The result is the data context handed to the model.
func BuildContext(datasets ...Dataset) string {
	var parts []string
	for i, d := range datasets {
		s := Summarize(d.Label, d.Table)
		if i > 0 {
			s = "\n" + s
		}
		parts = append(parts, s)
	}
	for _, d := range datasets {
		if d.Table.Empty() {
			continue
		}
		parts = append(parts, fmt.Sprintf("\n=== %s SAMPLE (first %d rows) ===", strings.ToUpper(d.Label), sampleRows))
		parts = append(parts, Sample(d.Table, sampleRows))
	}
	return strings.Join(parts, "\n")
}

// Summarize renders one dataset: size and columns, numeric statistics,
// categorical breakdowns, sector and stage cross-tabs when those roles
// resolve, and a data-quality block.
func Summarize(label string, t *Table) string {
	header := fmt.Sprintf("=== %s DATA ===", strings.ToUpper(label))
	if t.Empty() {
		return fmt.Sprintf("%s\nNo %s data available.", header, strings.ToLower(label))
	}
	parts := []string{
		header,
		fmt.Sprintf("Total %s: %d", strings.ToLower(label), t.Len()),
		fmt.Sprintf("Columns: %s", strings.Join(t.Names(), ", ")),
	}

	for j, c := range t.Columns {
		if c.Kind != KindNumber {
			continue
		}
		if line, ok := numericLine(t, j); ok {
			parts = append(parts, "\n"+line)
		}
	}

	for j, c := range t.Columns {
		if c.Kind != KindText {
			continue
		}
		counts := t.ValueCounts(j)
		if len(counts) < 2 || len(counts) > maxCategories {
			continue
		}
		if len(counts) > topCategories {
			counts = counts[:topCategories]
		}
		parts = append(parts, fmt.Sprintf("\n%s breakdown:", c.Name))
		for _, vc := range counts {
			parts = append(parts, fmt.Sprintf("  - %s: %d", vc.Value, vc.N))
		}
	}

	sector, value, stage := t.FindColumn(RoleSector), t.FindColumn(RoleValue), t.FindColumn(RoleStage)
	if sector >= 0 && value >= 0 {
		parts = append(parts, fmt.Sprintf("\nRevenue by %s:", t.Columns[sector].Name))
		for _, a := range t.GroupSum(sector, value) {
			parts = append(parts, fmt.Sprintf("  - %s: total=%s, deals=%d, avg=%s", a.Key, Rupees(a.Sum), a.N, Rupees(a.Mean())))
		}
	}
	if stage >= 0 && value >= 0 {
		parts = append(parts, fmt.Sprintf("\nPipeline by %s:", t.Columns[stage].Name))
		for _, a := range t.GroupSum(stage, value) {
			parts = append(parts, fmt.Sprintf("  - %s: value=%s, count=%d", a.Key, Rupees(a.Sum), a.N))
		}
	}

	parts = append(parts, "\n"+QualityReport(label, t))
	return strings.Join(parts, "\n")
}

func numericLine(t *Table, j int) (string, bool) {
	var n int
	var sum, lo, hi float64
	for _, r := range t.Rows {
		if !r[j].Valid {
			continue
		}
		v := r[j].Num
		if n == 0 || v < lo {
			lo = v
		}
		if n == 0 || v > hi {
			hi = v
		}
		sum += v
		n++
	}
	if n == 0 {
		return "", false
	}
	return fmt.Sprintf("%s: sum=%s, avg=%s, min=%s, max=%s, non-null count=%d/%d",
		t.Columns[j].Name, FormatAmount(sum), FormatAmount(sum/float64(n)),
		FormatAmount(lo), FormatAmount(hi), n, t.Len()), true
}

// QualityReport summarises completeness and flags columns more than 30%
// empty.
func QualityReport(label string, t *Table) string {
	if t.Empty() {
		return fmt.Sprintf("**%s**: No data available.", label)
	}
	lines := []string{
		fmt.Sprintf("**%s** — %d records", label, t.Len()),
		fmt.Sprintf("- Data completeness: %.1f%%", (1-t.MissingRatio())*100),
	}
	for j, c := range t.Columns {
		miss := t.Missing(j)
		if miss == 0 {
			continue
		}
		ratio := float64(miss) / float64(t.Len())
		if ratio > qualityMissingAt {
			lines = append(lines, fmt.Sprintf("- ⚠️ `%s`: %.0f%% missing", c.Name, ratio*100))
		}
	}
	return strings.Join(lines, "\n")
}

// Sample renders the first n rows as an aligned plain-text table. Absent
// cells render as NaN.
func Sample(t *Table, n int) string {
	if t.Empty() {
		return ""
	}
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(t.Names(), "\t"))
	for i, r := range t.Rows {
		if i == n {
			break
		}
		cells := make([]string, len(t.Columns))
		for j := range t.Columns {
			if !r[j].Valid {
				cells[j] = "NaN"
				continue
			}
			cells[j] = strings.ReplaceAll(safeVal(t.Display(r, j)), "\t", " ")
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	_ = tw.Flush()
	return strings.TrimRight(b.String(), "\n")
}
