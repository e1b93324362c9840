package earnings

import "time"

// NextPayoutDate returns the first Monday on or after the first day of the
// month following today, at midnight in today's location. Payout batches run
// on that schedule; the date is purely derived and never stored.
func NextPayoutDate(today time.Time) time.Time {
	first := time.Date(today.Year(), today.Month()+1, 1, 0, 0, 0, 0, today.Location())
	switch wd := int(first.Weekday()); wd {
	case 1:
		return first
	case 0:
		return first.AddDate(0, 0, 1)
	default:
		return first.AddDate(0, 0, 8-wd)
	}
}
