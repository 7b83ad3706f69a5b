package domain

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) *time.Time {
	ts := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &ts
}

func newTestDeliverable(t *testing.T, target *time.Time) Deliverable {
	t.Helper()
	d, err := NewDeliverable(DeliverableInput{
		ID:         "d1",
		ProjectID:  "p1",
		StreamID:   "s1",
		Title:      "Eligibility API",
		TargetDate: target,
	}, time.Date(2024, 12, 1, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("NewDeliverable() error = %v", err)
	}
	return d
}

func TestNewDeliverableDefaults(t *testing.T) {
	d := newTestDeliverable(t, date(2025, 1, 1))
	if d.Readiness != ReadinessPlanning {
		t.Fatalf("unexpected readiness %q", d.Readiness)
	}
	if d.OriginalDate == nil || !d.OriginalDate.Equal(*date(2025, 1, 1)) {
		t.Fatalf("expected baseline to match initial target, got %v", d.OriginalDate)
	}
	if d.PlanningAccuracy == nil || *d.PlanningAccuracy != 100 {
		t.Fatalf("expected score 100, got %v", d.PlanningAccuracy)
	}
}

func TestNewDeliverableWithoutTarget(t *testing.T) {
	d := newTestDeliverable(t, nil)
	if d.OriginalDate != nil {
		t.Fatalf("expected nil baseline, got %v", d.OriginalDate)
	}
	if d.PlanningAccuracy != nil {
		t.Fatalf("expected nil score, got %d", *d.PlanningAccuracy)
	}
	if d.CurrentSlipDays(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)) != 0 {
		t.Fatal("expected zero slip without baseline")
	}
}

func TestNewDeliverableValidation(t *testing.T) {
	now := time.Now()
	if _, err := NewDeliverable(DeliverableInput{ProjectID: "p1", Title: "x"}, now); err != ErrInvalidID {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if _, err := NewDeliverable(DeliverableInput{ID: "d1", ProjectID: "p1", Title: "  "}, now); err != ErrInvalidTitle {
		t.Fatalf("expected ErrInvalidTitle, got %v", err)
	}
	if _, err := NewDeliverable(DeliverableInput{ID: "d1", ProjectID: "p1", Title: "x", Readiness: "bogus"}, now); err != ErrInvalidReadiness {
		t.Fatalf("expected ErrInvalidReadiness, got %v", err)
	}
}

func TestRecordDateChangeBaselineIsIdempotent(t *testing.T) {
	d := newTestDeliverable(t, nil)
	now := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

	// No prior target: baseline captures the first committed date.
	d.RecordDateChange("c1", date(2025, 6, 1), "Scope Change", "", "Alice", now)
	if d.OriginalDate == nil || !d.OriginalDate.Equal(*date(2025, 6, 1)) {
		t.Fatalf("expected baseline 2025-06-01, got %v", d.OriginalDate)
	}

	d.RecordDateChange("c2", date(2025, 7, 1), "Vendor Delay", "", "Alice", now.Add(time.Hour))
	if !d.OriginalDate.Equal(*date(2025, 6, 1)) {
		t.Fatalf("baseline must never change, got %v", d.OriginalDate)
	}
}

func TestRecordDateChangeBaselineFromPriorTarget(t *testing.T) {
	d := newTestDeliverable(t, date(2025, 1, 1))
	d.OriginalDate = nil // simulate a legacy row missing its baseline
	d.RecordDateChange("c1", date(2025, 2, 1), "Scope Change", "", "Bob", time.Now())
	if d.OriginalDate == nil || !d.OriginalDate.Equal(*date(2025, 1, 1)) {
		t.Fatalf("expected baseline from pre-change target, got %v", d.OriginalDate)
	}
}

func TestRecommitCountInvariant(t *testing.T) {
	d := newTestDeliverable(t, date(2025, 1, 1))
	now := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		d.RecordDateChange("c", date(2025, 2, 1+i), "Vendor Delay", "supplier slipped", "Carol", now)
	}
	if d.RecommitCount != 5 || len(d.DateHistory) != 5 || len(d.RecommitReasons) != 5 {
		t.Fatalf("invariant broken: count=%d history=%d reasons=%d", d.RecommitCount, len(d.DateHistory), len(d.RecommitReasons))
	}
	if !d.TargetDate.Equal(*date(2025, 2, 5)) {
		t.Fatalf("unexpected target %v", d.TargetDate)
	}
}

func TestPlanningAccuracyMonotonicNonIncreasing(t *testing.T) {
	d := newTestDeliverable(t, date(2025, 1, 1))
	now := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	prev := *d.PlanningAccuracy
	for i := 0; i < 15; i++ {
		d.RecordDateChange("c", date(2025, 3, 1), "Scope Change", "", "Dan", now)
		score := *d.PlanningAccuracy
		if score > prev {
			t.Fatalf("score increased after recommit %d: %d -> %d", i+1, prev, score)
		}
		if score < 0 {
			t.Fatalf("score went negative: %d", score)
		}
		prev = score
	}
	if prev != 0 {
		t.Fatalf("expected floor of 0 after 15 recommits, got %d", prev)
	}
}

func TestPlanningAccuracyScenario(t *testing.T) {
	// Created with 2025-01-01, recommitted twice: 100 - 2*10 = 80.
	d := newTestDeliverable(t, date(2025, 1, 1))
	now := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	d.RecordDateChange("c1", date(2025, 2, 1), "Scope Change", "", "Alice", now)
	d.RecordDateChange("c2", date(2025, 3, 1), "Vendor Delay", "", "Alice", now)
	if d.RecommitCount != 2 {
		t.Fatalf("unexpected recommit count %d", d.RecommitCount)
	}
	if *d.PlanningAccuracy != 80 {
		t.Fatalf("expected score 80, got %d", *d.PlanningAccuracy)
	}

	// Completed 68 days past baseline: 80 - 2*68 clamps to 0.
	d.MarkComplete(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC))
	if d.CurrentSlipDays(time.Now()) != 68 {
		t.Fatalf("expected 68 slip days, got %d", d.CurrentSlipDays(time.Now()))
	}
	if *d.PlanningAccuracy != 0 {
		t.Fatalf("expected score 0, got %d", *d.PlanningAccuracy)
	}
}

func TestMarkCompleteIdempotentOnCompletedAt(t *testing.T) {
	d := newTestDeliverable(t, date(2025, 1, 1))
	first := time.Date(2025, 1, 5, 8, 0, 0, 0, time.UTC)
	d.MarkComplete(first)
	d.MarkComplete(first.Add(48 * time.Hour))
	if d.CompletedAt == nil || !d.CompletedAt.Equal(first) {
		t.Fatalf("expected first completion timestamp to win, got %v", d.CompletedAt)
	}
}

func TestSetReadinessKeepsCompletedAt(t *testing.T) {
	d := newTestDeliverable(t, date(2025, 1, 1))
	d.MarkComplete(time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC))
	if err := d.SetReadiness(ReadinessExecuting, time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("SetReadiness() error = %v", err)
	}
	if d.CompletedAt == nil {
		t.Fatal("reopening must not clear completed_at")
	}
	if d.Readiness != ReadinessExecuting {
		t.Fatalf("unexpected readiness %q", d.Readiness)
	}
}

func TestCurrentSlipDays(t *testing.T) {
	d := newTestDeliverable(t, date(2025, 6, 1))

	if got := d.CurrentSlipDays(time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)); got != 0 {
		t.Fatalf("future baseline slip = %d, want 0", got)
	}
	if got := d.CurrentSlipDays(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)); got != 0 {
		t.Fatalf("same-day slip = %d, want 0", got)
	}
	if got := d.CurrentSlipDays(time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)); got != 10 {
		t.Fatalf("overdue slip = %d, want 10", got)
	}

	// After completion the slip freezes at the completion date.
	d.MarkComplete(time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC))
	if got := d.CurrentSlipDays(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)); got != 3 {
		t.Fatalf("completed slip = %d, want 3", got)
	}
}

func TestSlipDaysRoundPartialDaysUp(t *testing.T) {
	d := newTestDeliverable(t, date(2025, 6, 1))
	if got := d.CurrentSlipDays(time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC)); got != 1 {
		t.Fatalf("partial-day slip = %d, want 1", got)
	}
}

func TestChecklistLifecycle(t *testing.T) {
	d := newTestDeliverable(t, nil)
	now := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	if _, err := d.AddChecklistItem("i1", "  draft interface spec ", now); err != nil {
		t.Fatalf("AddChecklistItem() error = %v", err)
	}
	if d.Checklist[0].Text != "draft interface spec" {
		t.Fatalf("unexpected text %q", d.Checklist[0].Text)
	}

	if err := d.SetChecklistItemDone("i1", true, now.Add(time.Hour)); err != nil {
		t.Fatalf("SetChecklistItemDone() error = %v", err)
	}
	if !d.Checklist[0].Done || d.Checklist[0].DoneAt == nil {
		t.Fatal("expected item done with done_at stamped")
	}

	if err := d.SetChecklistItemDone("i1", false, now.Add(2*time.Hour)); err != nil {
		t.Fatalf("SetChecklistItemDone() error = %v", err)
	}
	if d.Checklist[0].DoneAt != nil {
		t.Fatal("expected done_at cleared on reopen")
	}

	if err := d.RemoveChecklistItem("missing", now); err != ErrChecklistItemNotFound {
		t.Fatalf("expected ErrChecklistItemNotFound, got %v", err)
	}
	if err := d.RemoveChecklistItem("i1", now); err != nil {
		t.Fatalf("RemoveChecklistItem() error = %v", err)
	}
	if len(d.Checklist) != 0 {
		t.Fatalf("expected empty checklist, got %d items", len(d.Checklist))
	}
}

func TestSetDependencies(t *testing.T) {
	d := newTestDeliverable(t, nil)
	now := time.Now()

	if err := d.SetDependencies([]string{"d2", " d2 ", "", "d3"}, now); err != nil {
		t.Fatalf("SetDependencies() error = %v", err)
	}
	if len(d.Dependencies) != 2 {
		t.Fatalf("expected de-duplicated dependencies, got %v", d.Dependencies)
	}

	if err := d.SetDependencies([]string{"d1"}, now); err != ErrSelfDependency {
		t.Fatalf("expected ErrSelfDependency, got %v", err)
	}
}
