package metrics

import (
	"testing"
	"time"

	"github.com/rtgae/alignd/internal/domain"
)

var asOf = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func mkDeliverable(t *testing.T, id, streamID string, target *time.Time) domain.Deliverable {
	t.Helper()
	d, err := domain.NewDeliverable(domain.DeliverableInput{
		ID:         id,
		ProjectID:  "p1",
		StreamID:   streamID,
		Title:      "deliverable " + id,
		TargetDate: target,
	}, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("NewDeliverable() error = %v", err)
	}
	return d
}

func mkDate(y int, m time.Month, day int) *time.Time {
	ts := time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
	return &ts
}

func TestClassifyHealth(t *testing.T) {
	complete := mkDeliverable(t, "d1", "s1", mkDate(2025, 2, 1))
	complete.MarkComplete(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))

	recommitted := mkDeliverable(t, "d2", "s1", mkDate(2025, 12, 1))
	recommitted.RecordDateChange("c1", mkDate(2025, 12, 15), "Scope Change", "", "x", asOf)

	overdue := mkDeliverable(t, "d3", "s1", mkDate(2025, 5, 1))
	healthy := mkDeliverable(t, "d4", "s1", mkDate(2025, 12, 1))
	dateless := mkDeliverable(t, "d5", "s1", nil)

	tests := []struct {
		name string
		d    domain.Deliverable
		want Health
	}{
		{"complete", complete, HealthComplete},
		{"recommitted is late even with future target", recommitted, HealthLate},
		{"overdue", overdue, HealthLate},
		{"future target", healthy, HealthOnTrack},
		{"no target", dateless, HealthOnTrack},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyHealth(tt.d, asOf); got != tt.want {
				t.Fatalf("ClassifyHealth() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAggregateStreamPartitionsExhaustively(t *testing.T) {
	items := []domain.Deliverable{
		mkDeliverable(t, "d1", "s1", mkDate(2025, 5, 1)),
		mkDeliverable(t, "d2", "s1", mkDate(2025, 12, 1)),
		mkDeliverable(t, "d3", "s1", nil),
	}
	items[0].MarkComplete(time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC))

	sum := AggregateStream("s1", "Infra", items, asOf)
	if sum.Complete+sum.OnTrack+sum.Late != sum.Total {
		t.Fatalf("health partition not exhaustive: %+v", sum)
	}
	if sum.Complete != 1 || sum.Total != 3 {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if sum.CompletionRatePct != 33 {
		t.Fatalf("completion rate = %d, want 33", sum.CompletionRatePct)
	}
}

func TestAggregateStreamEmpty(t *testing.T) {
	sum := AggregateStream("s1", "Infra", nil, asOf)
	if sum.Total != 0 || sum.CompletionRatePct != 0 || sum.AvgRecommits != 0 {
		t.Fatalf("unexpected zero-value summary %+v", sum)
	}
}

func TestAggregateStreamSlipExcludesCompleted(t *testing.T) {
	late := mkDeliverable(t, "d1", "s1", mkDate(2025, 6, 5)) // 10 days past baseline at asOf
	finished := mkDeliverable(t, "d2", "s1", mkDate(2025, 5, 1))
	finished.MarkComplete(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))

	sum := AggregateStream("s1", "Infra", []domain.Deliverable{late, finished}, asOf)
	if sum.TotalSlipDays != 11 {
		// 2025-06-05 -> 2025-06-15T12:00 rounds up to 11.
		t.Fatalf("total slip = %d, want 11", sum.TotalSlipDays)
	}
}

func TestAggregateStreamAvgRecommits(t *testing.T) {
	a := mkDeliverable(t, "d1", "s1", mkDate(2025, 12, 1))
	a.RecordDateChange("c1", mkDate(2025, 12, 10), "Scope Change", "", "x", asOf)
	a.RecordDateChange("c2", mkDate(2025, 12, 20), "Scope Change", "", "x", asOf)
	b := mkDeliverable(t, "d2", "s1", mkDate(2025, 12, 1))
	b.RecordDateChange("c3", mkDate(2025, 12, 10), "Scope Change", "", "x", asOf)

	sum := AggregateStream("s1", "Infra", []domain.Deliverable{a, b}, asOf)
	if sum.AvgRecommits != 1.5 {
		t.Fatalf("avg recommits = %v, want 1.5", sum.AvgRecommits)
	}
}

func TestAggregateProgramScopesToActiveStreams(t *testing.T) {
	streams := []domain.Stream{
		mustStream(t, "s1", domain.StreamStatusActive),
		mustStream(t, "s2", domain.StreamStatusArchived),
	}
	items := []domain.Deliverable{
		mkDeliverable(t, "d1", "s1", mkDate(2025, 12, 1)),
		mkDeliverable(t, "d2", "s2", mkDate(2025, 12, 1)), // archived stream
		mkDeliverable(t, "d3", "s9", mkDate(2025, 12, 1)), // dangling reference
	}

	sum := AggregateProgram(streams, items, asOf)
	if sum.ActiveStreams != 1 {
		t.Fatalf("active streams = %d, want 1", sum.ActiveStreams)
	}
	if sum.Deliverables != 1 {
		t.Fatalf("scoped deliverables = %d, want 1", sum.Deliverables)
	}
	if len(sum.Streams) != 1 || sum.Streams[0].StreamID != "s1" {
		t.Fatalf("unexpected stream summaries %+v", sum.Streams)
	}
}

func TestProgramPlanningAccuracy(t *testing.T) {
	streams := []domain.Stream{mustStream(t, "s1", domain.StreamStatusActive)}

	// complete -> 100, future target -> 100, 5 days overdue -> 100-50 = 50.
	complete := mkDeliverable(t, "d1", "s1", mkDate(2025, 1, 1))
	complete.MarkComplete(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	future := mkDeliverable(t, "d2", "s1", mkDate(2025, 12, 1))
	overdue := mkDeliverable(t, "d3", "s1", mkDate(2025, 6, 10))
	dateless := mkDeliverable(t, "d4", "s1", nil) // excluded from accuracy

	sum := AggregateProgram(streams, []domain.Deliverable{complete, future, overdue, dateless}, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC))
	if sum.PlanningAccuracy != 83 {
		// mean(100, 100, 50) = 83.33 rounds to 83
		t.Fatalf("planning accuracy = %d, want 83", sum.PlanningAccuracy)
	}
}

func TestProgramPlanningAccuracyFloorsOverduePenalty(t *testing.T) {
	streams := []domain.Stream{mustStream(t, "s1", domain.StreamStatusActive)}
	overdue := mkDeliverable(t, "d1", "s1", mkDate(2024, 1, 1))

	sum := AggregateProgram(streams, []domain.Deliverable{overdue}, asOf)
	if sum.PlanningAccuracy != 0 {
		t.Fatalf("planning accuracy = %d, want 0", sum.PlanningAccuracy)
	}
}

func mustStream(t *testing.T, id string, status domain.StreamStatus) domain.Stream {
	t.Helper()
	s, err := domain.NewStream(id, "p1", "stream "+id, "#3B82F6", "", 0, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("NewStream() error = %v", err)
	}
	if err := s.SetStatus(status, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("SetStatus() error = %v", err)
	}
	return s
}
