// Command dbtctl is an example/diagnostic front end over the mgmt and
// gatt packages, grounded on srgg-blecli's cobra-based blim CLI: one
// root command, version wired from build-time ldflags, subcommands for
// adapter lifecycle and GATT client operations.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"unicode"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func formatVersion(ver string) string {
	if len(ver) > 0 && unicode.IsDigit(rune(ver[0])) {
		return "v" + ver
	}
	return ver
}

var rootCmd = &cobra.Command{
	Use:   "dbtctl",
	Short: "BLE host stack command-line tool",
	Long: `dbtctl drives the mgmt-channel adapter manager and the GATT
client engine directly, without a daemon:

- List adapters and toggle power/discoverable/discovery
- Discover services, characteristics and descriptors on a connection
- Read and write characteristic values
- Subscribe to notifications and indications

GATT subcommands operate over an already-established connection, handed
to dbtctl as an open file descriptor (see --fd); dbtctl itself does not
perform L2CAP connection setup or BR/EDR/LE scanning-to-connect pairing.`,
	Version:       formatVersion(version),
	SilenceUsage:  true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintf(os.Stderr, "dbtctl: %s\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SilenceErrors = true
	rootCmd.AddCommand(adaptersCmd)
	rootCmd.AddCommand(gattCmd)

	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.Flags().BoolP("version", "v", false, fmt.Sprintf("Show version information (%s, commit %s, built %s)", version, commit, date))
}
