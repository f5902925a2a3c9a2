package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/camnode/camnode/internal/devices"
	"github.com/camnode/camnode/internal/logging"
	"github.com/camnode/camnode/internal/v4l2"
)

// CreateDevicesCmd creates the devices command.
func CreateDevicesCmd() *cobra.Command {
	var asJSON bool
	var verbose bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List video capture devices",
		Long:  `Enumerates /dev/video* nodes, keeps the ones that support memory-mapped video capture, and prints what each reports.`,
		Run: func(_ *cobra.Command, _ []string) {
			logging.Initialize(logging.Config{Level: "warn", Format: "text"})

			list, err := devices.Discover()
			if err != nil {
				fmt.Fprintf(os.Stderr, "device enumeration failed: %v\n", err)
				os.Exit(1)
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(list); err != nil {
					fmt.Fprintf(os.Stderr, "encoding output: %v\n", err)
					os.Exit(1)
				}
				return
			}

			if len(list) == 0 {
				fmt.Println("no capture devices found")
				return
			}

			for _, info := range list {
				fmt.Printf("%s\t%s\t%s\t%s\n", info.Path, info.Card, info.Driver, info.BusInfo)
				if verbose {
					printFormats(info.Path)
				}
			}
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Also list each device's formats and frame sizes")
	return cmd
}

func printFormats(path string) {
	dev, err := v4l2.Open(path, logging.GetLogger("devices"))
	if err != nil {
		fmt.Printf("  (open failed: %v)\n", err)
		return
	}
	defer dev.Close()

	for _, f := range dev.Formats() {
		fmt.Printf("  %s\t%s", f.FourCC, f.Description)
		sizes := dev.FrameSizes(f.FourCC)
		for _, s := range sizes {
			fmt.Printf("\t%dx%d", s.Width, s.Height)
		}
		fmt.Println()
	}
}
