package analysis

import (
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// numericDate matches all-numeric d-m-y and d.m.y values, which are rewritten
// with slashes before parsing.
var numericDate = regexp.MustCompile(`^(\d{1,2})[-.](\d{1,2})[-.](\d{2,4})$`)

// ParseDate parses a free-text date, reading ambiguous numeric forms such as
// 03/04/2024 day-first. A numeric value that is not a valid day-first date,
// such as 03/15/2024, is retried month-first.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	numeric := false
	if m := numericDate.FindStringSubmatch(s); m != nil {
		s = m[1] + "/" + m[2] + "/" + m[3]
		numeric = true
	}
	t, err := dateparse.ParseAny(s, dateparse.PreferMonthFirst(false))
	if err == nil {
		return t, true
	}
	if numeric || strings.Count(s, "/") == 2 {
		if t, err := dateparse.ParseAny(s, dateparse.PreferMonthFirst(true)); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
