package transform

import (
	"time"

	"github.com/Kseniia567/fraud-detection-ADD/internal/domain"
)

// AgeAt returns the whole years elapsed between dob and ref.
func AgeAt(dob, ref time.Time) int {
	age := ref.Year() - dob.Year()
	if ref.Month() < dob.Month() || (ref.Month() == dob.Month() && ref.Day() < dob.Day()) {
		age--
	}
	return age
}

// Weekday returns the day of week with Monday as 0 and Sunday as 6.
func Weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// TimeFeatures holds the calendar fields extracted from a transaction time.
type TimeFeatures struct {
	Hour      domain.Int
	DayOfWeek domain.Int
	Month     domain.Int
	Year      domain.Int
	IsWeekend domain.Bool
}

// ExtractTimeFeatures returns all-null features when ok is false.
func ExtractTimeFeatures(t time.Time, ok bool) TimeFeatures {
	if !ok {
		return TimeFeatures{}
	}
	dow := Weekday(t)
	return TimeFeatures{
		Hour:      domain.NewInt(int64(t.Hour())),
		DayOfWeek: domain.NewInt(int64(dow)),
		Month:     domain.NewInt(int64(t.Month())),
		Year:      domain.NewInt(int64(t.Year())),
		IsWeekend: domain.NewBool(dow == 5 || dow == 6),
	}
}
