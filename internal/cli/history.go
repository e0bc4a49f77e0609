package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent readings and alerts",
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringP("series", "s", "", "Only show readings for this series")
	historyCmd.Flags().IntP("limit", "n", 20, "Maximum rows per section")
	historyCmd.Flags().Bool("alerts", false, "Only show alerts")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := initStorage(cfg)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer store.Close()

	series, _ := cmd.Flags().GetString("series")
	limit, _ := cmd.Flags().GetInt("limit")
	alertsOnly, _ := cmd.Flags().GetBool("alerts")

	if !alertsOnly {
		readings, err := store.RecentReadings(cmd.Context(), series, limit)
		if err != nil {
			return fmt.Errorf("load readings: %w", err)
		}
		fmt.Println("Recent readings:")
		if len(readings) == 0 {
			fmt.Println("  (none)")
		}
		for _, r := range readings {
			note := ""
			if r.Stale {
				note = "  stale"
			}
			if r.Missing {
				note = "  missing"
			}
			fmt.Printf("  %s  %-24s %10.2f%s\n",
				r.Timestamp.Local().Format("2006-01-02 15:04:05"), r.Series, r.Remaining, note)
		}
		fmt.Println()
	}

	alerts, err := store.RecentAlerts(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("load alerts: %w", err)
	}
	fmt.Println("Recent alerts:")
	if len(alerts) == 0 {
		fmt.Println("  (none)")
	}
	for _, a := range alerts {
		fmt.Printf("  %s  %s: %s\n",
			a.Timestamp.Local().Format("2006-01-02 15:04:05"), a.Title, a.Body)
	}

	return nil
}
