package store

import (
	"testing"
	"time"

	"siteledger/internal/domain"
)

func TestWeeklyTotalsWindow(t *testing.T) {
	ref := time.Date(2025, 9, 5, 14, 30, 0, 0, time.UTC)
	pd := domain.ProjectData{
		Labor: []domain.Labor{
			{StartDate: "2025-08-29", Cost: 500, Paid: true},   // first day of window
			{StartDate: "2025-08-28", Cost: 999, Paid: true},   // one day before window
			{StartDate: "2025-09-05", Cost: 250, Paid: false},  // ref day itself
			{StartDate: "2025-09-06", Cost: 777, Paid: false},  // after ref
			{StartDate: "", Cost: 111, Paid: false},            // no date
			{StartDate: "not-a-date", Cost: 222, Paid: false},  // unparseable
		},
		Materials: []domain.Material{
			{DeliveryETA: "2025-09-01", TotalCost: 300, Paid: false},
			{DeliveryETA: "2025-09-02", TotalCost: 400, Paid: true},
		},
	}
	got := ComputeWeeklyTotals(pd, ref)
	if got.Paid != 900 {
		t.Fatalf("paid = %v, want 900", got.Paid)
	}
	if got.Unpaid != 550 {
		t.Fatalf("unpaid = %v, want 550", got.Unpaid)
	}
}

func TestWeeklyTotalsAllProjects(t *testing.T) {
	ref := time.Date(2025, 9, 5, 0, 0, 0, 0, time.UTC)
	projects := map[string]domain.ProjectData{
		"a": {Labor: []domain.Labor{{StartDate: "2025-09-03", Cost: 100, Paid: true}}},
		"b": {Materials: []domain.Material{{DeliveryETA: "2025-09-04", TotalCost: 50, Paid: false}}},
	}
	got := ComputeAllProjectsWeeklyTotals(projects, ref)
	if got.Paid != 100 || got.Unpaid != 50 {
		t.Fatalf("totals = %+v, want paid 100 unpaid 50", got)
	}
}
