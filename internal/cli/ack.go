package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quotawatch/quotawatch/pkg/state"
	"github.com/quotawatch/quotawatch/pkg/watcher"
)

var ackCmd = &cobra.Command{
	Use:   "ack",
	Short: "Acknowledge the current quota alerts",
	Long: `Sets the acknowledgement marker. The running watcher picks it up on
its next poll and switches from every-poll alerting to milestone
tracking. The marker clears automatically once the value drops back
below the base threshold.`,
	RunE: runAck,
}

func init() {
	rootCmd.AddCommand(ackCmd)
	ackCmd.Flags().Bool("clear", false, "Clear the marker instead of setting it")
}

func runAck(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	clearMarker, _ := cmd.Flags().GetBool("clear")
	states := state.NewStore(cfg.State.QuotaStatePath(), cfg.State.AckPath(),
		watcher.MaxDown(cfg.Status.Down), logger)

	if err := states.SetAck(!clearMarker); err != nil {
		return err
	}
	if clearMarker {
		fmt.Println("acknowledgement marker cleared")
	} else {
		fmt.Println("alerts acknowledged")
	}
	return nil
}
