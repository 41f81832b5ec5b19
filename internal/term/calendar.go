package term

import (
	"time"

	"avault-backend/internal/models"
)

// Current returns the academic term that contains date:
//
//	FALL    Aug 20 - Dec 15
//	WINTER  Dec 16 - Jan 15 (January days belong to the WINTER of that calendar year)
//	SPRING  Jan 16 - May 5
//	SUMMER  May 6  - Aug 19
func Current(date time.Time) Key {
	month, day, year := date.Month(), date.Day(), date.Year()

	switch {
	case month == time.August && day >= 20,
		month >= time.September && month <= time.November,
		month == time.December && day < 16:
		return Key{Season: models.SeasonFall, Year: year}
	case month == time.December, month == time.January && day <= 15:
		return Key{Season: models.SeasonWinter, Year: year}
	case month == time.January,
		month >= time.February && month <= time.April,
		month == time.May && day <= 5:
		return Key{Season: models.SeasonSpring, Year: year}
	default:
		return Key{Season: models.SeasonSummer, Year: year}
	}
}
