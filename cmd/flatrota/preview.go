package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/flatrota/internal/model"
	"github.com/dukerupert/flatrota/internal/schedule"
)

type previewOptions struct {
	start, end, from string
	value            int
	unit             string
	members          []string
	index            int
	asJSON           bool
}

func newPreviewCmd() *cobra.Command {
	var opts previewOptions

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Print the periods a task would get, without a database",
		Example: `  flatrota preview --start 2024-01-01 --end 2024-01-22 --unit week --members Alice,Bob,Carol
  flatrota preview --start 2024-01-31 --end 2024-06-01 --unit month --members Alice,Bob --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(cmd.OutOrStdout(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.start, "start", "", "task start date (YYYY-MM-DD)")
	f.StringVar(&opts.end, "end", "", "task end date (YYYY-MM-DD)")
	f.IntVar(&opts.value, "value", 1, "period length")
	f.StringVar(&opts.unit, "unit", "week", "period unit: day, week or month")
	f.StringSliceVar(&opts.members, "members", nil, "rotation order, comma separated")
	f.StringVar(&opts.from, "from", "", "generate from this date instead of the start date")
	f.IntVar(&opts.index, "index", 0, "rotation index of the first generated period")
	f.BoolVar(&opts.asJSON, "json", false, "print periods as JSON")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")
	cmd.MarkFlagRequired("members")

	return cmd
}

func runPreview(w io.Writer, opts previewOptions) error {
	start, err := schedule.ParseDay(opts.start)
	if err != nil {
		return fmt.Errorf("--start: %w", err)
	}
	end, err := schedule.ParseDay(opts.end)
	if err != nil {
		return fmt.Errorf("--end: %w", err)
	}
	from := start
	if opts.from != "" {
		if from, err = schedule.ParseDay(opts.from); err != nil {
			return fmt.Errorf("--from: %w", err)
		}
	}

	members := make([]model.Member, 0, len(opts.members))
	for i, name := range opts.members {
		members = append(members, model.Member{ID: int64(i + 1), DisplayName: strings.TrimSpace(name)})
	}
	task := model.Task{
		Name:        "preview",
		Active:      true,
		PeriodValue: opts.value,
		PeriodUnit:  model.PeriodUnit(opts.unit),
		StartDate:   start,
		EndDate:     end,
		Members:     members,
	}
	if len(members) > 0 {
		task.CreatedBy = members[0]
	}
	if err := schedule.ValidateTask(task); err != nil {
		return err
	}

	periods, err := schedule.Generate(task, from, end, opts.index)
	if err != nil {
		return err
	}

	if opts.asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(periods)
	}
	return printPeriods(w, periods)
}

func printPeriods(w io.Writer, periods []model.Period) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSTART\tEND\tDAYS\tASSIGNED\tCOMPLETED")
	for i, p := range periods {
		done := "-"
		if p.Completion != nil {
			done = fmt.Sprintf("%s by %s", p.Completion.At.Format(time.DateOnly), p.Completion.By.DisplayName)
			if p.Delayed() {
				done += " (late)"
			}
		}
		days := int(p.EndDate.Sub(p.StartDate).Hours() / 24)
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n", i+1,
			p.StartDate.Format(time.DateOnly), p.EndDate.Format(time.DateOnly), days,
			p.AssignedTo.DisplayName, done)
	}
	return tw.Flush()
}
