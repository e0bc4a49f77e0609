package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var testNotifyCmd = &cobra.Command{
	Use:   "test-notify",
	Short: "Send a test alert through the configured sinks",
	RunE:  runTestNotify,
}

func init() {
	rootCmd.AddCommand(testNotifyCmd)
	testNotifyCmd.Flags().Bool("mail", false, "Also send a test email")
}

func runTestNotify(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	sink := initSink(cfg, nil, logger)
	sink.Notify(cmd.Context(), "quotawatch test", "If you can read this, alerting works.")
	fmt.Println("test alert dispatched")

	if withMail, _ := cmd.Flags().GetBool("mail"); withMail {
		mail := initMail(cfg, logger)
		if mail == nil {
			return fmt.Errorf("mail is not enabled in the configuration")
		}
		if !mail.Send(cmd.Context(), "quotawatch test", "If you can read this, email alerting works.") {
			return fmt.Errorf("test email was not sent")
		}
		fmt.Println("test email dispatched")
	}

	return nil
}
