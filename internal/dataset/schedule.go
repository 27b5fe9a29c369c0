package dataset

import "time"

// AnnualAfter returns true if a fetch is needed for an annual dataset
// that releases after the given month. Fetches once per year after the
// release month.
func AnnualAfter(now time.Time, lastFetch *time.Time, releaseMonth time.Month) bool {
	if lastFetch == nil {
		return true
	}
	releaseDate := time.Date(now.Year(), releaseMonth, 1, 0, 0, 0, 0, time.UTC)
	return now.After(releaseDate) && lastFetch.Before(releaseDate)
}

// QuarterlyWithLag returns true if a fetch is needed for a quarterly dataset
// with the given lag in months after quarter end.
func QuarterlyWithLag(now time.Time, lastFetch *time.Time, lagMonths int) bool {
	if lastFetch == nil {
		return true
	}
	qEnd := mostRecentQuarterEnd(now)
	available := qEnd.AddDate(0, lagMonths, 0)
	if now.Before(available) {
		// Data for this quarter isn't available yet; check previous quarter.
		qEnd = mostRecentQuarterEnd(qEnd.AddDate(0, 0, -1))
		available = qEnd.AddDate(0, lagMonths, 0)
		if now.Before(available) {
			return false
		}
	}
	return lastFetch.Before(available)
}

// MonthlySchedule returns true if a fetch is needed for a monthly dataset.
func MonthlySchedule(now time.Time, lastFetch *time.Time) bool {
	if lastFetch == nil {
		return true
	}
	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return lastFetch.Before(thisMonth)
}

// mostRecentQuarterEnd returns the last day of the most recent completed quarter.
func mostRecentQuarterEnd(t time.Time) time.Time {
	year := t.Year()
	month := t.Month()

	var qEndMonth time.Month
	var qEndYear int

	switch {
	case month >= time.January && month <= time.March:
		// In Q1 the last completed quarter is Q4 of the previous year.
		qEndMonth = time.December
		qEndYear = year - 1
	case month >= time.April && month <= time.June:
		qEndMonth = time.March
		qEndYear = year
	case month >= time.July && month <= time.September:
		qEndMonth = time.June
		qEndYear = year
	default: // Oct-Dec
		qEndMonth = time.September
		qEndYear = year
	}

	return time.Date(qEndYear, qEndMonth+1, 0, 23, 59, 59, 0, time.UTC)
}
