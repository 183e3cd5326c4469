package utils

import (
	"math"
	"time"

	"github.com/pr-poehali-dev/functional-diagnostics-api/internal/model"
)

// AgeBetween computes the calendar age of a patient born on birth as of
// the reference date.  Borrowing works the way a person would count:
// negative days borrow the length of the month preceding the reference,
// negative months borrow a year.
func AgeBetween(birth, ref time.Time) model.PatientAge {
	years := ref.Year() - birth.Year()
	months := int(ref.Month()) - int(birth.Month())
	days := ref.Day() - birth.Day()

	if days < 0 {
		months--
		// Anchor the birth day-of-month in the month before the
		// reference, clamping when that month is shorter (Jan 31 ->
		// Feb 28), then count days from the anchor to the reference.
		// Day 0 of the reference month is the last day of the previous
		// month, giving its length.
		prevLen := time.Date(ref.Year(), ref.Month(), 0, 0, 0, 0, 0, time.UTC).Day()
		anchor := birth.Day()
		if anchor > prevLen {
			anchor = prevLen
		}
		days = (prevLen - anchor) + ref.Day()
	}
	if months < 0 {
		years--
		months += 12
	}
	return model.PatientAge{Years: years, Months: months, Days: days}
}

// BodySurfaceArea returns the Mosteller estimate in square meters,
// rounded to two decimals.  Returns 0 for non-positive inputs.
func BodySurfaceArea(weightKg, heightCm float64) float64 {
	if weightKg <= 0 || heightCm <= 0 {
		return 0
	}
	bsa := math.Sqrt(weightKg * heightCm / 3600.0)
	return math.Round(bsa*100) / 100
}
