package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/camnode/camnode/internal/logging"
	"github.com/camnode/camnode/internal/updater"
)

// CreateUpdateCmd creates the update command.
func CreateUpdateCmd() *cobra.Command {
	var checkOnly bool
	var prerelease bool
	var rollback bool

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update to the latest release",
		Long:  `Checks GitHub for a newer release and replaces the running binary, keeping a backup of the current one for rollback.`,
		Run: func(cmd *cobra.Command, _ []string) {
			logging.Initialize(logging.Config{Level: "info", Format: "text"})

			svc, err := updater.NewService(&updater.Options{
				Repository: "camnode/camnode",
				Prerelease: prerelease,
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "initializing updater: %v\n", err)
				os.Exit(1)
			}
			if !svc.IsEnabled() {
				fmt.Fprintf(os.Stderr, "updates disabled: %s\n", svc.DisabledReason())
				os.Exit(1)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			if rollback {
				if err := svc.Rollback(ctx); err != nil {
					fmt.Fprintf(os.Stderr, "rolling back: %v\n", err)
					os.Exit(1)
				}
				fmt.Println("previous binary restored")
				return
			}

			info, err := svc.CheckForUpdate(ctx)
			if err != nil {
				fmt.Fprintf(os.Stderr, "checking for update: %v\n", err)
				os.Exit(1)
			}
			if !info.UpdateAvailable {
				fmt.Printf("already up to date (%s)\n", info.CurrentVersion)
				return
			}

			fmt.Printf("update available: %s -> %s\n", info.CurrentVersion, info.LatestVersion)
			if checkOnly {
				return
			}

			if err := svc.ApplyUpdate(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "applying update: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("updated to %s\n", info.LatestVersion)
		},
	}

	cmd.Flags().BoolVar(&checkOnly, "check", false, "Only check whether an update is available")
	cmd.Flags().BoolVar(&prerelease, "prerelease", false, "Include prereleases")
	cmd.Flags().BoolVar(&rollback, "rollback", false, "Restore the binary saved by the last update")
	return cmd
}
