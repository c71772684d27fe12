package store

import (
	"time"

	"siteledger/internal/domain"
)

const dateLayout = "2006-01-02"

// WeeklyTotals sums costs for entries in a trailing 7-day window, split
// by paid state. Amounts are in base currency.
type WeeklyTotals struct {
	Paid   float64 `json:"paid"`
	Unpaid float64 `json:"unpaid"`
}

// Add accumulates other into t.
func (t *WeeklyTotals) Add(other WeeklyTotals) {
	t.Paid += other.Paid
	t.Unpaid += other.Unpaid
}

// ComputeWeeklyTotals partitions labor and material entries whose
// relevant date (labor: start date; material: delivery ETA) falls in the
// 7-day window ending at ref, inclusive of ref-6 days. Entries with
// missing or unparseable dates are excluded from the window.
func ComputeWeeklyTotals(pd domain.ProjectData, ref time.Time) WeeklyTotals {
	var t WeeklyTotals
	end := dateOnly(ref)
	start := end.AddDate(0, 0, -6)
	for _, l := range pd.Labor {
		if !inWindow(l.StartDate, start, end) {
			continue
		}
		if l.Paid {
			t.Paid += l.Cost
		} else {
			t.Unpaid += l.Cost
		}
	}
	for _, m := range pd.Materials {
		if !inWindow(m.DeliveryETA, start, end) {
			continue
		}
		if m.Paid {
			t.Paid += m.TotalCost
		} else {
			t.Unpaid += m.TotalCost
		}
	}
	return t
}

// ComputeAllProjectsWeeklyTotals sums per-project weekly totals. The
// result is additive and independent of map iteration order.
func ComputeAllProjectsWeeklyTotals(projects map[string]domain.ProjectData, ref time.Time) WeeklyTotals {
	var t WeeklyTotals
	for _, pd := range projects {
		t.Add(ComputeWeeklyTotals(pd, ref))
	}
	return t
}

func inWindow(date string, start, end time.Time) bool {
	if date == "" {
		return false
	}
	d, err := time.Parse(dateLayout, date)
	if err != nil {
		return false
	}
	return !d.Before(start) && !d.After(end)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
