package cmd

import (
	"github.com/spf13/cobra"
)

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Print the solar energy expected over the next timestep",
	RunE:  printForecast,
}

func init() {
	rootCmd.AddCommand(forecastCmd)
}

func printForecast(cmd *cobra.Command, args []string) error {
	svc, err := newService(true)
	if err != nil {
		return err
	}
	defer svc.Close()

	wh, err := svc.Forecast.ForecastWh(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), map[string]any{
		"solarForecastWh": wh,
		"timestepHours":   svc.Config.Tick.TimestepHours,
	})
}
