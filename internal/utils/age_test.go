package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pr-poehali-dev/functional-diagnostics-api/internal/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAgeBetween(t *testing.T) {
	cases := []struct {
		name  string
		birth time.Time
		ref   time.Time
		want  model.PatientAge
	}{
		{
			name:  "exact years",
			birth: date(1980, time.March, 15),
			ref:   date(2020, time.March, 15),
			want:  model.PatientAge{Years: 40, Months: 0, Days: 0},
		},
		{
			name:  "day before birthday",
			birth: date(1980, time.March, 15),
			ref:   date(2020, time.March, 14),
			want:  model.PatientAge{Years: 39, Months: 11, Days: 28},
		},
		{
			name:  "borrow days from previous month",
			birth: date(2019, time.January, 31),
			ref:   date(2019, time.March, 1),
			want:  model.PatientAge{Years: 0, Months: 1, Days: 1},
		},
		{
			name:  "newborn same day",
			birth: date(2024, time.June, 1),
			ref:   date(2024, time.June, 1),
			want:  model.PatientAge{Years: 0, Months: 0, Days: 0},
		},
		{
			name:  "infant months only",
			birth: date(2024, time.January, 10),
			ref:   date(2024, time.April, 25),
			want:  model.PatientAge{Years: 0, Months: 3, Days: 15},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, AgeBetween(tc.birth, tc.ref))
		})
	}
}

func TestBodySurfaceArea(t *testing.T) {
	// Mosteller: sqrt(70*170/3600) = 1.8178... -> 1.82
	assert.InDelta(t, 1.82, BodySurfaceArea(70, 170), 0.001)
	// Pediatric values.
	assert.InDelta(t, 0.47, BodySurfaceArea(8, 100), 0.01)
	// Non-positive inputs produce zero rather than NaN.
	assert.Equal(t, 0.0, BodySurfaceArea(0, 170))
	assert.Equal(t, 0.0, BodySurfaceArea(70, -1))
}
