package engine

import (
	"time"

	"algotrack/internal/problem/model"
)

// DayActivity counts solved and attempted records on one calendar day.
type DayActivity struct {
	Date      time.Time `json:"date"`
	Solved    int       `json:"solved"`
	Attempted int       `json:"attempted"`
}

// BucketActivity counts solved records in one week or month bucket.
type BucketActivity struct {
	Label  string `json:"label"`
	Solved int    `json:"solved"`
}

// DailyActivity returns per-day solved/attempted counts for the days-day
// window ending at asOf (inclusive), oldest first. Days with no activity
// are included with zero counts.
func DailyActivity(records []model.Problem, asOf time.Time, days int) []DayActivity {
	if days <= 0 {
		days = 7
	}

	asOfDay := dayOf(asOf)
	start := asOfDay.AddDate(0, 0, -(days - 1))

	series := make([]DayActivity, days)
	index := make(map[time.Time]int, days)
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i)
		series[i] = DayActivity{Date: day}
		index[day] = i
	}

	for _, p := range records {
		i, ok := index[dayOf(effectiveDate(p))]
		if !ok {
			continue
		}
		switch p.Status {
		case model.StatusSolved:
			series[i].Solved++
		case model.StatusAttempted:
			series[i].Attempted++
		}
	}
	return series
}

// WeeklyActivity returns solved counts for the weeks-week window ending at
// the week of asOf, oldest first. Weeks start on Monday and are labelled by
// their start day.
func WeeklyActivity(records []model.Problem, asOf time.Time, weeks int) []BucketActivity {
	if weeks <= 0 {
		weeks = 12
	}

	currentWeek := weekStart(dayOf(asOf))
	start := currentWeek.AddDate(0, 0, -7*(weeks-1))

	series := make([]BucketActivity, weeks)
	index := make(map[time.Time]int, weeks)
	for i := 0; i < weeks; i++ {
		week := start.AddDate(0, 0, 7*i)
		series[i] = BucketActivity{Label: week.Format("2006-01-02")}
		index[week] = i
	}

	for _, p := range records {
		if p.Status != model.StatusSolved {
			continue
		}
		if i, ok := index[weekStart(dayOf(effectiveDate(p)))]; ok {
			series[i].Solved++
		}
	}
	return series
}

// MonthlyActivity returns solved counts for the months-month window ending
// at the month of asOf, oldest first, labelled "YYYY-MM".
func MonthlyActivity(records []model.Problem, asOf time.Time, months int) []BucketActivity {
	if months <= 0 {
		months = 12
	}

	asOfDay := dayOf(asOf)
	start := time.Date(asOfDay.Year(), asOfDay.Month(), 1, 0, 0, 0, 0, asOfDay.Location()).
		AddDate(0, -(months - 1), 0)

	series := make([]BucketActivity, months)
	index := make(map[string]int, months)
	for i := 0; i < months; i++ {
		label := start.AddDate(0, i, 0).Format("2006-01")
		series[i] = BucketActivity{Label: label}
		index[label] = i
	}

	for _, p := range records {
		if p.Status != model.StatusSolved {
			continue
		}
		if i, ok := index[dayOf(effectiveDate(p)).Format("2006-01")]; ok {
			series[i].Solved++
		}
	}
	return series
}

func weekStart(day time.Time) time.Time {
	offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
	return day.AddDate(0, 0, -offset)
}
