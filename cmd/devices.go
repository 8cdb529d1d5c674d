package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "Inspect the device inventory",
}

var devicesJSON bool

var devicesListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List the seeded devices",
	RunE:    listDevices,
}

func init() {
	devicesListCmd.Flags().BoolVar(&devicesJSON, "json", false, "print JSON")
	devicesCmd.AddCommand(devicesListCmd)
	rootCmd.AddCommand(devicesCmd)
}

func listDevices(cmd *cobra.Command, args []string) error {
	svc, err := newService(true)
	if err != nil {
		return err
	}
	defer svc.Close()

	devices := svc.Store.Snapshot().Devices
	if devicesJSON {
		return printJSON(cmd.OutOrStdout(), devices)
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tPOWER_W\tON")
	for _, d := range devices {
		fmt.Fprintf(w, "%s\t%s\t%s\t%g\t%t\n", d.ID, d.Name, d.Tier, d.PowerW, d.IsOn)
	}
	return w.Flush()
}
