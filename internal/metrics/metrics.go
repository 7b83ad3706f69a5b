// Package metrics computes derived health and planning rollups from streams
// and deliverables. Everything here is a pure function of its inputs plus an
// explicit asOf time; nothing reads the clock or touches storage.
package metrics

import (
	"math"
	"time"

	"github.com/rtgae/alignd/internal/domain"
)

// Health classifies one deliverable for dashboard display.
type Health string

// Health values.
const (
	HealthComplete Health = "complete"
	HealthOnTrack  Health = "on_track"
	HealthLate     Health = "late"
)

// overdueDayPenalty is the per-day program-accuracy deduction for overdue
// incomplete deliverables. This heuristic is deliberately distinct from the
// per-deliverable planning score; the two serve different display contexts.
const overdueDayPenalty = 10

// StreamSummary aggregates one stream's deliverables.
type StreamSummary struct {
	StreamID          string  `json:"stream_id"`
	StreamName        string  `json:"stream_name"`
	Total             int     `json:"total"`
	Complete          int     `json:"complete"`
	OnTrack           int     `json:"on_track"`
	Late              int     `json:"late"`
	CompletionRatePct int     `json:"completion_rate_pct"`
	TotalSlipDays     int     `json:"total_slip_days"`
	AvgRecommits      float64 `json:"avg_recommits"`
}

// ProgramSummary aggregates every active stream into one executive view.
type ProgramSummary struct {
	ActiveStreams     int             `json:"active_streams"`
	Deliverables      int             `json:"deliverables"`
	Complete          int             `json:"complete"`
	OnTrack           int             `json:"on_track"`
	Late              int             `json:"late"`
	CompletionRatePct int             `json:"completion_rate_pct"`
	TotalSlipDays     int             `json:"total_slip_days"`
	TotalRecommits    int             `json:"total_recommits"`
	AvgRecommits      float64         `json:"avg_recommits"`
	PlanningAccuracy  int             `json:"planning_accuracy"`
	Streams           []StreamSummary `json:"streams"`
}

// ClassifyHealth partitions a deliverable into complete, late, or on_track.
// Late means the plan was destabilized: recommitted at least once, or
// currently past its committed target.
func ClassifyHealth(d domain.Deliverable, asOf time.Time) Health {
	if d.Readiness == domain.ReadinessComplete {
		return HealthComplete
	}
	if d.RecommitCount > 0 {
		return HealthLate
	}
	if d.TargetDate != nil && d.TargetDate.Before(asOf.UTC()) {
		return HealthLate
	}
	return HealthOnTrack
}

// AggregateStream folds a stream's deliverables into one summary. Slip days
// only accumulate for incomplete deliverables; completed work no longer
// contributes to current slip.
func AggregateStream(streamID, streamName string, items []domain.Deliverable, asOf time.Time) StreamSummary {
	out := StreamSummary{
		StreamID:   streamID,
		StreamName: streamName,
		Total:      len(items),
	}

	recommits := 0
	for _, d := range items {
		switch ClassifyHealth(d, asOf) {
		case HealthComplete:
			out.Complete++
		case HealthLate:
			out.Late++
		default:
			out.OnTrack++
		}
		if d.Readiness != domain.ReadinessComplete {
			out.TotalSlipDays += d.CurrentSlipDays(asOf)
		}
		recommits += d.RecommitCount
	}

	if out.Total > 0 {
		out.CompletionRatePct = int(math.Round(100 * float64(out.Complete) / float64(out.Total)))
		out.AvgRecommits = math.Round(10*float64(recommits)/float64(out.Total)) / 10
	}
	return out
}

// AggregateProgram composes stream summaries across active streams and adds
// the program-wide planning-accuracy heuristic. Deliverables referencing a
// missing or inactive stream are silently excluded.
func AggregateProgram(streams []domain.Stream, items []domain.Deliverable, asOf time.Time) ProgramSummary {
	active := make(map[string]domain.Stream, len(streams))
	for _, s := range streams {
		if s.IsActive() {
			active[s.ID] = s
		}
	}

	byStream := make(map[string][]domain.Deliverable, len(active))
	scoped := make([]domain.Deliverable, 0, len(items))
	for _, d := range items {
		if _, ok := active[d.StreamID]; !ok {
			continue
		}
		byStream[d.StreamID] = append(byStream[d.StreamID], d)
		scoped = append(scoped, d)
	}

	out := ProgramSummary{
		ActiveStreams: len(active),
		Deliverables:  len(scoped),
		Streams:       make([]StreamSummary, 0, len(streams)),
	}

	// Preserve caller stream order for stable display.
	for _, s := range streams {
		if !s.IsActive() {
			continue
		}
		summary := AggregateStream(s.ID, s.Name, byStream[s.ID], asOf)
		out.Complete += summary.Complete
		out.OnTrack += summary.OnTrack
		out.Late += summary.Late
		out.TotalSlipDays += summary.TotalSlipDays
		out.Streams = append(out.Streams, summary)
	}

	for _, d := range scoped {
		out.TotalRecommits += d.RecommitCount
	}
	if len(scoped) > 0 {
		out.CompletionRatePct = int(math.Round(100 * float64(out.Complete) / float64(len(scoped))))
		out.AvgRecommits = math.Round(10*float64(out.TotalRecommits)/float64(len(scoped))) / 10
	}
	out.PlanningAccuracy = programPlanningAccuracy(scoped, asOf)
	return out
}

// programPlanningAccuracy averages a simple date-based score over the
// deliverables that carry a target date: complete or not-yet-due scores 100,
// overdue loses overdueDayPenalty per day late, floored at 0.
func programPlanningAccuracy(items []domain.Deliverable, asOf time.Time) int {
	total := 0
	counted := 0
	for _, d := range items {
		if d.TargetDate == nil {
			continue
		}
		counted++
		if d.Readiness == domain.ReadinessComplete {
			total += 100
			continue
		}
		if !d.TargetDate.Before(asOf.UTC()) {
			total += 100
			continue
		}
		daysLate := int(math.Ceil(asOf.UTC().Sub(*d.TargetDate).Hours() / 24))
		score := 100 - overdueDayPenalty*daysLate
		if score < 0 {
			score = 0
		}
		total += score
	}
	if counted == 0 {
		return 0
	}
	return int(math.Round(float64(total) / float64(counted)))
}
