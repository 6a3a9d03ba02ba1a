package timeline

import (
	"time"
)

// ViewMode is the closed enumeration of timeline window widths.
type ViewMode string

const (
	View1Month  ViewMode = "1month"
	View3Months ViewMode = "3months"
	View6Months ViewMode = "6months"
)

func (v ViewMode) IsValid() bool {
	return v == View1Month || v == View3Months || v == View6Months
}

// MonthsToShow maps a view mode to its window width in months.
func (v ViewMode) MonthsToShow() int {
	switch v {
	case View3Months:
		return 3
	case View6Months:
		return 6
	default:
		return 1
	}
}

// ViewState holds the view-mode state machine. Compact mode always
// implies the widest window; the rule lives here instead of at call
// sites.
type ViewState struct {
	Mode    ViewMode
	Compact bool
}

// SetCompact toggles compact rendering. Entering compact mode forces the
// 6-month window.
func (s *ViewState) SetCompact(compact bool) {
	s.Compact = compact
	if compact {
		s.Mode = View6Months
	}
}

// SetMode switches the window width. In compact mode the window is
// pinned to 6 months and the request is ignored.
func (s *ViewState) SetMode(mode ViewMode) {
	if !mode.IsValid() || s.Compact {
		return
	}
	s.Mode = mode
}

// MonthsToShow returns the effective window width for the state.
func (s ViewState) MonthsToShow() int {
	if s.Compact {
		return View6Months.MonthsToShow()
	}
	return s.Mode.MonthsToShow()
}

// Month is one rendered month of the grid: its year, month and the
// enumerated day numbers 1..daysInMonth.
type Month struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Days  []int      `json:"days"`
}

// FirstDay returns the date key of the month's first day.
func (m Month) FirstDay() string {
	return DateKey(m.Year, m.Month, 1)
}

// Day returns the date key for a day number within the month.
func (m Month) Day(day int) string {
	return DateKey(m.Year, m.Month, day)
}

// BuildMonths expands the view window into consecutive months starting
// at the anchor's month. The anchor is normalized to the first of its
// month; year rollover follows standard month arithmetic.
func BuildMonths(anchor string, monthsToShow int) ([]Month, error) {
	t, err := ParseDateKey(anchor)
	if err != nil {
		return nil, err
	}
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)

	months := make([]Month, 0, monthsToShow)
	for i := 0; i < monthsToShow; i++ {
		cur := first.AddDate(0, i, 0)
		// Day 0 of the next month is the last day of cur's month.
		last := time.Date(cur.Year(), cur.Month()+1, 0, 0, 0, 0, 0, time.UTC)
		days := make([]int, last.Day())
		for d := range days {
			days[d] = d + 1
		}
		months = append(months, Month{Year: cur.Year(), Month: cur.Month(), Days: days})
	}
	return months, nil
}

// NavigateMonth steps the anchor by one month in either direction,
// regardless of the window width, returning the first day of the target
// month.
func NavigateMonth(anchor string, forward bool) (string, error) {
	t, err := ParseDateKey(anchor)
	if err != nil {
		return "", err
	}
	step := 1
	if !forward {
		step = -1
	}
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, step, 0)
	return first.Format(dateLayout), nil
}
