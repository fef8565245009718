package tools

import (
	"strings"
	"time"
)

// daysOfWeek lists weekday names Monday-first, matching the grid layout.
var daysOfWeek = []string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

// MonthGrid is a month calendar laid out as Monday-first week rows.
type MonthGrid struct {
	Year       int      `json:"year"`
	Month      int      `json:"month"`
	MonthName  string   `json:"month_name"`
	DaysOfWeek []string `json:"days_of_week"`
	Calendar   [][7]int `json:"calendar"`
}

// UpcomingDate is one matched date from a forward walk.
type UpcomingDate struct {
	Date string `json:"date"`
	Day  string `json:"day"`
}

const (
	// maxUpcomingCount bounds the caller-controlled match count.
	maxUpcomingCount = 366
	// maxLookaheadDays bounds the forward walk to roughly three years.
	maxLookaheadDays = 1100
)

// MonthCalendar builds the week-row grid for the given month. Zero values for
// year or month default to the current year or month.
func MonthCalendar(year, month int) (MonthGrid, error) {
	now := time.Now()
	if year == 0 {
		year = now.Year()
	}
	if month == 0 {
		month = int(now.Month())
	}
	if month < 1 || month > 12 {
		return MonthGrid{}, Validationf("month must be between 1 and 12, got %d", month)
	}
	if year < 1 || year > 9999 {
		return MonthGrid{}, Validationf("year must be between 1 and 9999, got %d", year)
	}

	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	days := first.AddDate(0, 1, -1).Day()
	offset := mondayIndex(first.Weekday())

	grid := make([][7]int, 0, 6)
	var week [7]int
	col := offset
	for day := 1; day <= days; day++ {
		week[col] = day
		col++
		if col == 7 {
			grid = append(grid, week)
			week = [7]int{}
			col = 0
		}
	}
	if col > 0 {
		grid = append(grid, week)
	}

	return MonthGrid{
		Year:       year,
		Month:      month,
		MonthName:  time.Month(month).String(),
		DaysOfWeek: append([]string(nil), daysOfWeek...),
		Calendar:   grid,
	}, nil
}

// UpcomingDates walks forward one day at a time starting strictly from
// tomorrow, collecting dates of the requested type. The result is keyed
// "upcoming_weekends" or "upcoming_business_days".
func UpcomingDates(dateType string, count int) (map[string][]UpcomingDate, error) {
	if count <= 0 {
		count = 5
	}
	if count > maxUpcomingCount {
		return nil, Validationf("count must be at most %d, got %d", maxUpcomingCount, count)
	}

	var key string
	var match func(weekday int) bool
	switch strings.ToLower(dateType) {
	case "weekend":
		key = "upcoming_weekends"
		match = func(weekday int) bool { return weekday >= 5 }
	case "business_days":
		key = "upcoming_business_days"
		match = func(weekday int) bool { return weekday < 5 }
	default:
		return nil, Unsupportedf("unsupported date type %q, supported types: weekend, business_days", dateType)
	}

	upcoming := make([]UpcomingDate, 0, count)
	day := time.Now()
	for steps := 0; len(upcoming) < count && steps < maxLookaheadDays; steps++ {
		day = day.AddDate(0, 0, 1)
		idx := mondayIndex(day.Weekday())
		if match(idx) {
			upcoming = append(upcoming, UpcomingDate{
				Date: day.Format("2006-01-02"),
				Day:  daysOfWeek[idx],
			})
		}
	}
	return map[string][]UpcomingDate{key: upcoming}, nil
}

// mondayIndex converts Go's Sunday-first weekday to a Monday-first index.
func mondayIndex(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}
