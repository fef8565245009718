package tools

import (
	"strings"
	"time"
)

// DateTimeInfo bundles the current moment in several representations.
type DateTimeInfo struct {
	Date      string  `json:"date"`
	Time      string  `json:"time"`
	Day       string  `json:"day"`
	Timestamp float64 `json:"timestamp"`
	Timezone  string  `json:"timezone"`
	ISOFormat string  `json:"iso_format"`
}

// CurrentDateTime reports the current local date and time.
func CurrentDateTime() DateTimeInfo {
	return dateTimeAt(time.Now())
}

func dateTimeAt(now time.Time) DateTimeInfo {
	zone, _ := now.Zone()
	return DateTimeInfo{
		Date:      now.Format("2006-01-02"),
		Time:      now.Format("15:04:05"),
		Day:       now.Weekday().String(),
		Timestamp: float64(now.UnixNano()) / float64(time.Second),
		Timezone:  zone,
		ISOFormat: now.Format(time.RFC3339),
	}
}

// isoLayouts are tried in order when parsing caller-supplied dates.
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// FormatDate parses dateStr (ISO-8601 first, then strict YYYY-MM-DD) and
// renders it through a strftime-style template such as "%Y-%m-%d".
func FormatDate(dateStr, formatStr string) (string, error) {
	var parsed time.Time
	var ok bool
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, dateStr); err == nil {
			parsed = t
			ok = true
			break
		}
	}
	if !ok {
		return "", Validationf("invalid date format, use ISO format or YYYY-MM-DD")
	}

	return formatStrftime(parsed, formatStr)
}

// strftimeVerbs maps supported strftime conversion verbs to Go reference-time
// layout fragments.
var strftimeVerbs = map[byte]string{
	'Y': "2006",
	'y': "06",
	'm': "01",
	'd': "02",
	'H': "15",
	'I': "03",
	'M': "04",
	'S': "05",
	'p': "PM",
	'A': "Monday",
	'a': "Mon",
	'B': "January",
	'b': "Jan",
	'Z': "MST",
	'z': "-0700",
}

// formatStrftime renders t through a strftime-style template. Each verb is
// formatted on its own and literal text is copied verbatim, so a template
// containing words like "Monday" or "PM" is never mistaken for layout tokens.
func formatStrftime(t time.Time, format string) (string, error) {
	if strings.TrimSpace(format) == "" {
		return "", Validationf("invalid format string")
	}
	var sb strings.Builder
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			sb.WriteByte(c)
			continue
		}
		i++
		if i >= len(format) {
			return "", Validationf("invalid format string")
		}
		if format[i] == '%' {
			sb.WriteByte('%')
			continue
		}
		frag, ok := strftimeVerbs[format[i]]
		if !ok {
			return "", Validationf("invalid format string")
		}
		sb.WriteString(t.Format(frag))
	}
	return sb.String(), nil
}
