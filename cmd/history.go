package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/hems/core/ticklog"
	"github.com/kilianp07/hems/jobs/energykpi"
	"github.com/kilianp07/hems/pkg/export"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Work with the tick log",
}

var (
	exportFormat string
	exportStart  string
	exportEnd    string
	exportDevice string
	exportMode   string
)

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export logged ticks as CSV or JSON",
	RunE:  exportHistory,
}

var historyBackfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Rebuild the daily energy aggregates from the tick log",
	RunE:  backfillHistory,
}

func init() {
	f := historyExportCmd.Flags()
	f.StringVar(&exportFormat, "format", export.FormatJSON, "output format: json or csv")
	for _, c := range []*cobra.Command{historyExportCmd, historyBackfillCmd} {
		c.Flags().StringVar(&exportStart, "start", "", "RFC3339 lower bound")
		c.Flags().StringVar(&exportEnd, "end", "", "RFC3339 upper bound")
	}
	f.StringVar(&exportDevice, "device", "", "only ticks containing this device id")
	f.StringVar(&exportMode, "mode", "", "auto or override")
	historyCmd.AddCommand(historyExportCmd, historyBackfillCmd)
	rootCmd.AddCommand(historyCmd)
}

func logQuery() (ticklog.LogQuery, error) {
	q := ticklog.LogQuery{DeviceID: exportDevice, Mode: exportMode}
	var err error
	if exportStart != "" {
		if q.Start, err = time.Parse(time.RFC3339, exportStart); err != nil {
			return q, fmt.Errorf("invalid start: %w", err)
		}
	}
	if exportEnd != "" {
		if q.End, err = time.Parse(time.RFC3339, exportEnd); err != nil {
			return q, fmt.Errorf("invalid end: %w", err)
		}
	}
	return q, nil
}

func exportHistory(cmd *cobra.Command, args []string) error {
	q, err := logQuery()
	if err != nil {
		return err
	}
	svc, err := newService(true)
	if err != nil {
		return err
	}
	defer svc.Close()

	recs, err := svc.TickLog.Query(cmd.Context(), q)
	if err != nil {
		return err
	}
	return export.Write(cmd.OutOrStdout(), exportFormat, recs)
}

func backfillHistory(cmd *cobra.Command, args []string) error {
	q, err := logQuery()
	if err != nil {
		return err
	}
	svc, err := newService(true)
	if err != nil {
		return err
	}
	defer svc.Close()

	n, err := energykpi.Backfill(cmd.Context(), svc.TickLog, svc.Energy, q)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "backfilled %d ticks\n", n)
	return nil
}
