package probability

import "time"

// AdjustForWeekday scales an entry probability by the day of the week:
// early weekdays see more traffic, weekends see half. The result is not
// re-clamped to [0,1]; the Bernoulli draw consuming it treats values above
// one as an almost certain arrival.
func AdjustForWeekday(p float64, day time.Weekday) float64 {
	switch day {
	case time.Monday, time.Tuesday, time.Wednesday:
		return p * 1.2
	case time.Thursday, time.Friday:
		return p
	default:
		return p * 0.5
	}
}
