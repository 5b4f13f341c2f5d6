package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var overlayUser string

var overlayCmd = &cobra.Command{
	Use:   "overlay",
	Short: "Maintain per-user listing overlays",
}

var overlayDeleteCmd = &cobra.Command{
	Use:   "delete <ref>",
	Short: "Delete a user's overlay and its uploaded images",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			if err := a.svc.DeleteOverlay(cmd.Context(), overlayUser, args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted overlay for %s (user %s)\n", args[0], overlayUser)
			return nil
		})
	},
}

func init() {
	overlayDeleteCmd.Flags().StringVarP(&overlayUser, "user", "u", "", "Owner of the overlay (required)")
	if err := overlayDeleteCmd.MarkFlagRequired("user"); err != nil {
		panic(fmt.Sprintf("failed to mark user flag as required: %v", err))
	}
	overlayCmd.AddCommand(overlayDeleteCmd)
	rootCmd.AddCommand(overlayCmd)
}
