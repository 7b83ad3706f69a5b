package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/rtgae/alignd/internal/domain"
	"github.com/rtgae/alignd/internal/metrics"
)

var (
	summaryTitleStyle  = lipgloss.NewStyle().Bold(true)
	summaryLabelStyle  = lipgloss.NewStyle().Faint(true)
	summaryHealthyText = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	summaryLateText    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// newSummaryCommand builds the program summary command.
func newSummaryCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "summary [project-id]",
		Short: "Print aggregate health and planning-accuracy metrics for one program",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.openRuntime(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := rt.Close(); closeErr != nil {
					rt.logger.Warn("sqlite close failed", "err", closeErr)
				}
			}()

			ctx := cmd.Context()
			project, err := resolveProject(ctx, rt, args)
			if err != nil {
				return err
			}
			summary, err := rt.svc.ProgramSummary(ctx, project.ID)
			if err != nil {
				return fmt.Errorf("program summary: %w", err)
			}
			renderSummary(cmd.OutOrStdout(), project, summary)
			return nil
		},
	}
}

// resolveProject picks an explicit project or the single existing one.
func resolveProject(ctx context.Context, rt *runtime, args []string) (domain.Project, error) {
	if len(args) > 0 {
		return rt.svc.GetProject(ctx, strings.TrimSpace(args[0]))
	}
	projects, err := rt.svc.ListProjects(ctx, false)
	if err != nil {
		return domain.Project{}, err
	}
	switch len(projects) {
	case 0:
		return domain.Project{}, fmt.Errorf("no programs exist yet")
	case 1:
		return projects[0], nil
	default:
		ids := make([]string, 0, len(projects))
		for _, p := range projects {
			ids = append(ids, p.ID)
		}
		return domain.Project{}, fmt.Errorf("multiple programs exist, pass one id: %s", strings.Join(ids, ", "))
	}
}

func renderSummary(w io.Writer, project domain.Project, summary metrics.ProgramSummary) {
	fmt.Fprintln(w, summaryTitleStyle.Render(project.Name))

	accuracy := fmt.Sprintf("%d%%", summary.PlanningAccuracy)
	fmt.Fprintf(w, "%s %d  %s %d  %s %d/%d complete (%d%%)\n",
		summaryLabelStyle.Render("streams:"), summary.ActiveStreams,
		summaryLabelStyle.Render("deliverables:"), summary.Deliverables,
		summaryLabelStyle.Render("done:"), summary.Complete, summary.Deliverables, summary.CompletionRatePct,
	)
	fmt.Fprintf(w, "%s %s  %s %d  %s %d days  %s %.1f\n",
		summaryLabelStyle.Render("planning accuracy:"), accuracy,
		summaryLabelStyle.Render("recommits:"), summary.TotalRecommits,
		summaryLabelStyle.Render("total slip:"), summary.TotalSlipDays,
		summaryLabelStyle.Render("avg recommits:"), summary.AvgRecommits,
	)

	if len(summary.Streams) == 0 {
		return
	}
	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Stream", "Total", "Done", "On Track", "Late", "Slip (d)", "Avg Recommits")
	for _, s := range summary.Streams {
		late := fmt.Sprintf("%d", s.Late)
		if s.Late > 0 {
			late = summaryLateText.Render(late)
		} else {
			late = summaryHealthyText.Render(late)
		}
		tbl.Row(
			s.StreamName,
			fmt.Sprintf("%d", s.Total),
			fmt.Sprintf("%d", s.Complete),
			fmt.Sprintf("%d", s.OnTrack),
			late,
			fmt.Sprintf("%d", s.TotalSlipDays),
			fmt.Sprintf("%.1f", s.AvgRecommits),
		)
	}
	fmt.Fprintln(w, tbl.Render())
}
