// Package dashboard aggregates visitor records into the dashboard report.
package dashboard

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/evcraddock/frontdesk/internal/visitor"
)

const (
	trendDays   = 7
	recentLimit = 5
)

// Report is the dashboard summary for one caller's scope.
type Report struct {
	Total              int                    `json:"total_visitors"`
	Today              int                    `json:"today_visitors"`
	CheckedIn          int                    `json:"checked_in"`
	Pending            int                    `json:"pending"`
	StatusDistribution map[visitor.Status]int `json:"status_distribution"`
	HourlyExpected     []HourCount            `json:"hourly_expected"`
	DailyTrend         []DayCount             `json:"daily_trend"`
	AvgVisitDuration   float64                `json:"avg_visit_duration"`
	PreApprovedCount   int                    `json:"pre_approved_count"`
	NoPhotoCount       int                    `json:"no_photo_count"`
	RecentCheckedOut   []RecentVisitor        `json:"recent_checked_out"`
}

// HourCount is the number of visitors expected during one hour of today.
type HourCount struct {
	Hour  string `json:"hour"`
	Count int    `json:"count"`
}

// DayCount is the number of check-ins on one calendar day.
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// RecentVisitor is a checked-out visitor with a relative check-out time.
type RecentVisitor struct {
	ID           int64          `json:"id"`
	FullName     string         `json:"full_name"`
	Status       visitor.Status `json:"status"`
	CheckOutTime *time.Time     `json:"check_out_time"`
	Ago          string         `json:"ago"`
}

// Compute builds the report for visitors, which must already be limited to
// the caller's scope. Calendar days are taken in now's location.
// Compute never modifies visitors.
func Compute(visitors []*visitor.Visitor, now time.Time) *Report {
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	tomorrow := today.AddDate(0, 0, 1)

	r := &Report{
		Total:              len(visitors),
		StatusDistribution: make(map[visitor.Status]int, len(visitor.Statuses)),
		HourlyExpected:     make([]HourCount, 24),
		DailyTrend:         make([]DayCount, trendDays),
		RecentCheckedOut:   []RecentVisitor{},
	}
	for _, s := range visitor.Statuses {
		r.StatusDistribution[s] = 0
	}

	hourStarts := make([]time.Time, 25)
	for h := range hourStarts {
		hourStarts[h] = time.Date(today.Year(), today.Month(), today.Day(), h, 0, 0, 0, loc)
	}
	for h := range r.HourlyExpected {
		r.HourlyExpected[h].Hour = fmt.Sprintf("%02d:00", h)
	}

	dayStarts := make([]time.Time, trendDays)
	for i := range dayStarts {
		dayStarts[i] = today.AddDate(0, 0, -i)
		r.DailyTrend[i].Date = dayStarts[i].Format(time.DateOnly)
	}

	var totalMinutes float64
	var completed int
	var checkedOut []*visitor.Visitor

	for _, v := range visitors {
		r.StatusDistribution[v.Status]++

		switch v.Status {
		case visitor.CheckedIn:
			r.CheckedIn++
		case visitor.Pending:
			r.Pending++
		case visitor.CheckedOut:
			checkedOut = append(checkedOut, v)
			if v.CheckInTime != nil && v.CheckOutTime != nil {
				totalMinutes += v.CheckOutTime.Sub(*v.CheckInTime).Minutes()
				completed++
			}
		}

		if v.PreApproved {
			r.PreApprovedCount++
		}
		if !v.HasPhoto() {
			r.NoPhotoCount++
		}

		if v.CheckInTime != nil {
			in := v.CheckInTime.In(loc)
			if !in.Before(today) && in.Before(tomorrow) {
				r.Today++
			}
			for i, start := range dayStarts {
				if !in.Before(start) && in.Before(start.AddDate(0, 0, 1)) {
					r.DailyTrend[i].Count++
					break
				}
			}
		}

		if v.HasWindow() && (v.Status == visitor.Approved || v.Status == visitor.CheckedIn) {
			for h := range r.HourlyExpected {
				if !v.WindowStart.After(hourStarts[h+1]) && !v.WindowEnd.Before(hourStarts[h]) {
					r.HourlyExpected[h].Count++
				}
			}
		}
	}

	if completed > 0 {
		r.AvgVisitDuration = math.Round(totalMinutes/float64(completed)*10) / 10
	}

	r.RecentCheckedOut = recent(checkedOut, now)
	return r
}

// recent returns the most recently checked-out visitors, newest first.
// Visitors without a check-out time sort last.
func recent(checkedOut []*visitor.Visitor, now time.Time) []RecentVisitor {
	sort.SliceStable(checkedOut, func(i, j int) bool {
		a, b := checkedOut[i].CheckOutTime, checkedOut[j].CheckOutTime
		if a == nil || b == nil {
			return b == nil && a != nil
		}
		return a.After(*b)
	})

	n := min(len(checkedOut), recentLimit)
	out := make([]RecentVisitor, 0, n)
	for _, v := range checkedOut[:n] {
		rv := RecentVisitor{ID: v.ID, FullName: v.FullName, Status: v.Status, CheckOutTime: v.CheckOutTime, Ago: "N/A"}
		if v.CheckOutTime != nil {
			rv.Ago = Ago(now, *v.CheckOutTime)
		}
		out = append(out, rv)
	}
	return out
}

// Ago renders the time elapsed from t to now as "Xh Ym ago" or "Xm ago".
// Times in the future read as "0m ago".
func Ago(now, t time.Time) string {
	minutes := int(now.Sub(t) / time.Minute)
	if minutes < 0 {
		minutes = 0
	}
	if minutes >= 60 {
		return fmt.Sprintf("%dh %dm ago", minutes/60, minutes%60)
	}
	return fmt.Sprintf("%dm ago", minutes)
}
