package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	stopDeviceID      string
	stopTransactionID string
)

var remoteStopCmd = &cobra.Command{
	Use:   "remote-stop",
	Short: "Issue a RequestStopTransaction to a charge point",
	RunE:  remoteStop,
}

func init() {
	remoteStopCmd.Flags().StringVar(&stopDeviceID, "device", "", "charge point identity")
	remoteStopCmd.Flags().StringVar(&stopTransactionID, "transaction", "", "transaction id to stop")
	_ = remoteStopCmd.MarkFlagRequired("device")
	_ = remoteStopCmd.MarkFlagRequired("transaction")
	rootCmd.AddCommand(remoteStopCmd)
}

func remoteStop(cmd *cobra.Command, args []string) error {
	sender, closeFn, err := newSender(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()

	id, err := sender.RequestStop(cmd.Context(), stopDeviceID, stopTransactionID)
	if err != nil {
		return fmt.Errorf("remote stop: %w", err)
	}
	fmt.Printf("RequestStopTransaction sent to %s (message id %s)\n", stopDeviceID, id)
	return nil
}
