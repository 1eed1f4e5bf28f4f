package billing

import "time"

// AddBusinessDays returns the day after issue plus n weekdays, skipping
// Saturdays and Sundays. Time of day is dropped.
func AddBusinessDays(issue time.Time, n int) time.Time {
	d := time.Date(issue.Year(), issue.Month(), issue.Day(), 0, 0, 0, 0, issue.Location()).AddDate(0, 0, 1)
	for added := 0; added < n; {
		d = d.AddDate(0, 0, 1)
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			added++
		}
	}
	return d
}
