package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"chatpipe/internal/runstatus"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var runDir, root string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show run progress from the manifest and metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if runDir != "" {
				summary, err := runstatus.Load(runDir)
				if err != nil {
					return fmt.Errorf("load run status: %w", err)
				}
				fmt.Fprintln(out, renderRunDetail(summary))
				return nil
			}
			if root == "" {
				return fmt.Errorf("one of --run-dir or --root is required")
			}
			summaries, err := runstatus.List(root)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}
			fmt.Fprintln(out, renderRunList(summaries))
			return nil
		},
	}
	cmd.Flags().StringVar(&runDir, "run-dir", "", "Show a single run's step-by-step detail")
	cmd.Flags().StringVar(&root, "root", "", "List every run under <root>/runs")
	return cmd
}

func renderRunList(summaries []runstatus.Summary) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Run ID", "Status", "Started", "Messages", "Voice OK/Failed", "Audio"})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	for _, s := range summaries {
		tw.AppendRow(table.Row{
			s.RunID,
			s.Status,
			s.StartTime,
			humanize.Comma(int64(s.MessagesTotal)),
			fmt.Sprintf("%d/%d", s.VoiceOK, s.VoiceFailed),
			humanizeSeconds(s.AudioSecondsTotal),
		})
	}
	return tw.Render()
}

func renderRunDetail(s runstatus.Summary) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Step", "Status", "Done/Total", "Error"})
	tw.SetColumnConfigs([]table.ColumnConfig{{Number: 3, Align: text.AlignRight}})
	for _, step := range s.Steps {
		tw.AppendRow(table.Row{step.Name, step.Status, fmt.Sprintf("%d/%d", step.Done, step.Total), step.Error})
	}

	header := fmt.Sprintf("Run %s (%s): %s messages, %s voice ok, %s voice failed, %s audio, $%.2f ASR cost",
		s.RunID, s.Status,
		humanize.Comma(int64(s.MessagesTotal)),
		humanize.Comma(int64(s.VoiceOK)),
		humanize.Comma(int64(s.VoiceFailed)),
		humanizeSeconds(s.AudioSecondsTotal),
		s.ASRCostTotal,
	)
	if s.Error != "" {
		header += fmt.Sprintf("\nError: %s", s.Error)
	}
	return header + "\n" + tw.Render()
}

func humanizeSeconds(seconds float64) string {
	return humanize.FormatFloat("#,###.#", seconds) + "s"
}
