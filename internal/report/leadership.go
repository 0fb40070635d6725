// Package report renders the fixed-structure leadership update from the
// cleaned Work Orders and Deals tables. It never calls the model.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/KaramelBytes/boardsight/internal/analysis"
)

const (
	topClients      = 10
	qualityFlagOver = 0.10
)

var activeKeywords = []string{"active", "progress", "ongoing", "working"}

// Generate renders the report dated today.
func Generate(work, deals *analysis.Table) string {
	return GenerateAt(time.Now(), work, deals)
}

// GenerateAt renders the report with the given date in its header.
func GenerateAt(now time.Time, work, deals *analysis.Table) string {
	s := []string{fmt.Sprintf("# 📊 Leadership Update — %s\n", now.Format("January 02, 2006"))}

	s = append(s, "## Pipeline Overview\n")
	s = append(s, pipeline(deals)...)

	s = append(s, "\n## Operational Summary\n")
	s = append(s, operations(work)...)

	s = append(s, "\n## Data Quality Notes\n")
	s = append(s, quality(deals, work)...)

	s = append(s, "\n## Key Takeaways\n")
	for _, t := range takeaways(work, deals) {
		s = append(s, "- "+t)
	}

	s = append(s, "\n---\n_Report auto-generated by Monday.com BI Agent_")
	return strings.Join(s, "\n")
}

func pipeline(deals *analysis.Table) []string {
	if deals.Empty() {
		return []string{"_No deals data available._\n"}
	}
	total := deals.Len()
	s := []string{fmt.Sprintf("- **Total Deals**: %d", total)}

	value := deals.FindColumn(analysis.RoleValue)
	if value >= 0 {
		var sum float64
		var n int
		for _, r := range deals.Rows {
			if f, ok := deals.Float(r, value); ok {
				sum += f
				n++
			}
		}
		if n > 0 {
			s = append(s,
				"- **Total Pipeline Value**: "+analysis.Rupees(sum),
				"- **Average Deal Size**: "+analysis.Rupees(sum/float64(n)))
		}
	}

	if stage := deals.FindColumn(analysis.RoleStage); stage >= 0 {
		s = append(s, "\n### Deal Stage Distribution\n", "| Stage | Count | % |", "|-------|------:|--:|")
		for _, c := range deals.ValueCounts(stage) {
			pct := float64(c.N) / float64(total) * 100
			s = append(s, fmt.Sprintf("| %s | %d | %.0f%% |", cell(c.Value), c.N, pct))
		}
	}

	if sector := deals.FindColumn(analysis.RoleSector); sector >= 0 {
		s = append(s, "\n### Sector Breakdown\n", "| Sector | Deals |", "|--------|------:|")
		for _, c := range deals.ValueCounts(sector) {
			s = append(s, fmt.Sprintf("| %s | %d |", cell(c.Value), c.N))
		}
		if value >= 0 {
			s = append(s, "\n### Revenue by Sector\n", "| Sector | Revenue |", "|--------|--------:|")
			revenue := deals.GroupSum(sector, value)
			analysis.SortAggsBySum(revenue)
			for _, a := range revenue {
				s = append(s, fmt.Sprintf("| %s | %s |", cell(a.Key), analysis.Rupees(a.Sum)))
			}
		}
	}
	return s
}

func operations(work *analysis.Table) []string {
	if work.Empty() {
		return []string{"_No work orders data available._\n"}
	}
	s := []string{fmt.Sprintf("- **Total Work Orders**: %d", work.Len())}

	if status := work.FindColumn(analysis.RoleStatus); status >= 0 {
		s = append(s, "\n### Project Status\n", "| Status | Count |", "|--------|------:|")
		for _, c := range work.ValueCounts(status) {
			s = append(s, fmt.Sprintf("| %s | %d |", cell(c.Value), c.N))
		}
	}

	if client := work.FindColumn(analysis.RoleClient); client >= 0 {
		s = append(s, "\n### Top Clients (by Work Orders)\n", "| Client | Projects |", "|--------|--------:|")
		counts := work.ValueCounts(client)
		if len(counts) > topClients {
			counts = counts[:topClients]
		}
		for _, c := range counts {
			s = append(s, fmt.Sprintf("| %s | %d |", cell(c.Value), c.N))
		}
	}
	return s
}

func quality(deals, work *analysis.Table) []string {
	var issues []string
	for _, d := range []analysis.Dataset{{Label: "Deals", Table: deals}, {Label: "Work Orders", Table: work}} {
		if d.Table.Empty() {
			issues = append(issues, fmt.Sprintf("- ⚠️ %s: No data loaded", d.Label))
			continue
		}
		if ratio := d.Table.MissingRatio(); ratio > qualityFlagOver {
			issues = append(issues, fmt.Sprintf("- ⚠️ %s: %.0f%% of fields are missing or empty", d.Label, ratio*100))
		}
	}
	if len(issues) == 0 {
		return []string{"- ✅ Data quality looks good across both boards."}
	}
	return issues
}

func takeaways(work, deals *analysis.Table) []string {
	var out []string
	if !deals.Empty() {
		value, stage := deals.FindColumn(analysis.RoleValue), deals.FindColumn(analysis.RoleStage)
		if value >= 0 && stage >= 0 {
			byStage := deals.GroupSum(stage, value)
			analysis.SortAggsBySum(byStage)
			if len(byStage) > 0 && byStage[0].N > 0 {
				out = append(out, fmt.Sprintf("Highest pipeline value is in **%s** stage (%s)", byStage[0].Key, analysis.Rupees(byStage[0].Sum)))
			}
		}
		if sector := deals.FindColumn(analysis.RoleSector); sector >= 0 {
			if counts := deals.ValueCounts(sector); len(counts) > 0 {
				out = append(out, fmt.Sprintf("**%s** leads in deal count (%d deals)", counts[0].Value, counts[0].N))
			}
		}
	}
	if !work.Empty() {
		if status := work.FindColumn(analysis.RoleStatus); status >= 0 {
			var active int
			for _, c := range work.ValueCounts(status) {
				if isActive(c.Value) {
					active += c.N
				}
			}
			if active > 0 {
				out = append(out, fmt.Sprintf("%d work orders currently in active/in-progress state", active))
			}
		}
	}
	if len(out) == 0 {
		out = append(out, "Insufficient structured data to generate automated takeaways")
	}
	return out
}

func isActive(status string) bool {
	lower := strings.ToLower(status)
	for _, kw := range activeKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// cell keeps a value from breaking a markdown table row.
func cell(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/")
}
