package forecast

import (
	"cloud.google.com/go/civil"
	"github.com/Veraticus/spice-forecast/internal/model"
)

// BucketStart returns the canonical first day of the bucket containing d.
//
// Fixed-width buckets are aligned to 1970-01-01 so that the same date always lands
// in the same bucket regardless of the query window. Monthly buckets start on the
// first of the calendar month. Unknown widths behave like daily buckets.
func BucketStart(d civil.Date, width model.BucketWidth) civil.Date {
	if width == model.BucketMonth {
		return civil.Date{Year: d.Year, Month: d.Month, Day: 1}
	}

	days := width.Days()
	if days <= 1 {
		return d
	}
	return epoch.AddDays(floorDiv(d.DaysSince(epoch), days) * days)
}
