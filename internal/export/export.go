// Package export renders a program board as a hierarchical CSV document.
//
// Rows are emitted depth-first: each stream row is followed by its
// deliverable rows, and each deliverable row by its execution track rows.
// Deliverables without a stream are grouped under a trailing "Unassigned"
// pseudo-stream so no row is dropped from the export.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rtgae/alignd/internal/domain"
)

const dateLayout = "2006-01-02"

var header = []string{
	"Level",
	"Type",
	"Name",
	"Status",
	"Target Date",
	"Owner",
	"Assigned User",
	"Dependencies",
	"Dependency Count",
	"Description",
	"Color",
	"Stream ID",
	"Deliverable ID",
	"Task ID",
}

// WriteCSV writes the full board hierarchy for one project to w.
func WriteCSV(w io.Writer, streams []domain.Stream, deliverables []domain.Deliverable, tracks []domain.ExecutionTrack) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	ordered := slices.Clone(streams)
	slices.SortFunc(ordered, func(a, b domain.Stream) int {
		if a.Position != b.Position {
			return a.Position - b.Position
		}
		return strings.Compare(a.ID, b.ID)
	})

	byStream := make(map[string][]domain.Deliverable)
	for _, d := range deliverables {
		byStream[d.StreamID] = append(byStream[d.StreamID], d)
	}
	for id := range byStream {
		slices.SortFunc(byStream[id], func(a, b domain.Deliverable) int {
			if a.Position != b.Position {
				return a.Position - b.Position
			}
			return strings.Compare(a.ID, b.ID)
		})
	}

	byDeliverable := make(map[string][]domain.ExecutionTrack)
	for _, t := range tracks {
		byDeliverable[t.DeliverableID] = append(byDeliverable[t.DeliverableID], t)
	}
	for id := range byDeliverable {
		slices.SortFunc(byDeliverable[id], func(a, b domain.ExecutionTrack) int {
			if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
				return c
			}
			return strings.Compare(a.ID, b.ID)
		})
	}

	for _, stream := range ordered {
		if err := cw.Write(streamRow(stream)); err != nil {
			return fmt.Errorf("write stream row: %w", err)
		}
		for _, d := range byStream[stream.ID] {
			if err := writeDeliverableSubtree(cw, d, byDeliverable[d.ID]); err != nil {
				return err
			}
		}
	}

	if unassigned := byStream[""]; len(unassigned) > 0 {
		row := emptyRow()
		row[0] = "1"
		row[1] = "Stream"
		row[2] = "Unassigned"
		row[3] = "active"
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write stream row: %w", err)
		}
		for _, d := range unassigned {
			if err := writeDeliverableSubtree(cw, d, byDeliverable[d.ID]); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func writeDeliverableSubtree(cw *csv.Writer, d domain.Deliverable, tracks []domain.ExecutionTrack) error {
	if err := cw.Write(deliverableRow(d)); err != nil {
		return fmt.Errorf("write deliverable row: %w", err)
	}
	for _, t := range tracks {
		if err := cw.Write(trackRow(t)); err != nil {
			return fmt.Errorf("write track row: %w", err)
		}
	}
	return nil
}

func streamRow(s domain.Stream) []string {
	row := emptyRow()
	row[0] = "1"
	row[1] = "Stream"
	row[2] = s.Name
	row[3] = string(s.Status)
	row[9] = s.Description
	row[10] = s.Color
	row[11] = s.ID
	return row
}

func deliverableRow(d domain.Deliverable) []string {
	status := string(d.Readiness)
	if d.CompletedAt != nil {
		status = "complete"
	}
	row := emptyRow()
	row[0] = "2"
	row[1] = "Deliverable"
	row[2] = d.Title
	row[3] = status
	row[4] = formatDate(d.TargetDate)
	row[5] = d.OwnerName
	row[6] = d.AssignedUserID
	row[7] = strings.Join(d.Dependencies, "; ")
	row[8] = strconv.Itoa(len(d.Dependencies))
	row[9] = d.Description
	row[11] = d.StreamID
	row[12] = d.ID
	return row
}

func trackRow(t domain.ExecutionTrack) []string {
	status := string(t.Health)
	if t.CompletedAt != nil {
		status = "complete"
	}
	row := emptyRow()
	row[0] = "3"
	row[1] = "Task"
	row[2] = t.Title
	row[3] = status
	row[4] = formatDate(t.TargetDate)
	row[5] = t.Vendor
	row[9] = t.Description
	row[12] = t.DeliverableID
	row[13] = t.ID
	return row
}

func emptyRow() []string {
	return make([]string, len(header))
}

func formatDate(ts *time.Time) string {
	if ts == nil {
		return ""
	}
	return ts.UTC().Format(dateLayout)
}
