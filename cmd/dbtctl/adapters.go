package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/XC-/dbt/mgmt"
)

const adaptersCmdTimeout = 5 * time.Second

var adaptersCmd = &cobra.Command{
	Use:   "adapters",
	Short: "Inspect and control local BLE adapters over the mgmt channel",
}

var adaptersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List adapters known to the mgmt channel",
	RunE:  runAdaptersList,
}

var adaptersPowerCmd = &cobra.Command{
	Use:   "power <dev-id> <on|off>",
	Short: "Power an adapter on or off",
	Args:  cobra.ExactArgs(2),
	RunE:  runAdaptersPower,
}

var adaptersDiscoverableCmd = &cobra.Command{
	Use:   "discoverable <dev-id> <on|off>",
	Short: "Toggle general discoverable mode",
	Args:  cobra.ExactArgs(2),
	RunE:  runAdaptersDiscoverable,
}

var adaptersDiscoveryCmd = &cobra.Command{
	Use:   "discovery <dev-id> <start|stop>",
	Short: "Start or stop device discovery",
	Args:  cobra.ExactArgs(2),
	RunE:  runAdaptersDiscovery,
}

func init() {
	adaptersCmd.AddCommand(adaptersListCmd)
	adaptersCmd.AddCommand(adaptersPowerCmd)
	adaptersCmd.AddCommand(adaptersDiscoverableCmd)
	adaptersCmd.AddCommand(adaptersDiscoveryCmd)
}

// withManager starts the process-wide mgmt.Manager singleton (which
// opens the real BlueZ mgmt control socket) and runs fn against it,
// stopping the manager's reader goroutine before returning.
func withManager(fn func(*mgmt.Manager) error) error {
	mgr, err := mgmt.GetManager()
	if err != nil {
		return fmt.Errorf("opening mgmt channel: %w", err)
	}
	if err := mgr.Start(); err != nil {
		return fmt.Errorf("starting mgmt reader: %w", err)
	}
	defer mgr.Stop(time.Second)
	return fn(mgr)
}

func findAdapter(mgr *mgmt.Manager, devIDArg string) (*mgmt.Adapter, error) {
	id, err := strconv.ParseUint(devIDArg, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("invalid dev-id %q: %w", devIDArg, err)
	}
	for _, a := range mgr.Adapters() {
		if a.DevID == uint16(id) {
			return a, nil
		}
	}
	return nil, fmt.Errorf("no adapter with dev-id %d", id)
}

func parseOnOff(s string) (bool, error) {
	switch s {
	case "on", "start":
		return true, nil
	case "off", "stop":
		return false, nil
	default:
		return false, fmt.Errorf("expected on/off, got %q", s)
	}
}

func runAdaptersList(cmd *cobra.Command, args []string) error {
	return withManager(func(mgr *mgmt.Manager) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "DEV-ID\tADDRESS\tNAME\tPOWERED\tDISCOVERABLE\tCONNECTABLE")
		for _, a := range mgr.Adapters() {
			fmt.Fprintf(w, "%d\t%X\t%s\t%v\t%v\t%v\n",
				a.DevID, a.Address, a.Name,
				a.Settings.Has(mgmt.SettingPowered),
				a.Settings.Has(mgmt.SettingDiscoverable),
				a.Settings.Has(mgmt.SettingConnectable))
		}
		return w.Flush()
	})
}

func runAdaptersPower(cmd *cobra.Command, args []string) error {
	on, err := parseOnOff(args[1])
	if err != nil {
		return err
	}
	return withManager(func(mgr *mgmt.Manager) error {
		a, err := findAdapter(mgr, args[0])
		if err != nil {
			return err
		}
		return a.SetPowered(on, adaptersCmdTimeout)
	})
}

func runAdaptersDiscoverable(cmd *cobra.Command, args []string) error {
	on, err := parseOnOff(args[1])
	if err != nil {
		return err
	}
	return withManager(func(mgr *mgmt.Manager) error {
		a, err := findAdapter(mgr, args[0])
		if err != nil {
			return err
		}
		return a.SetDiscoverable(on, 0, adaptersCmdTimeout)
	})
}

func runAdaptersDiscovery(cmd *cobra.Command, args []string) error {
	start, err := parseOnOff(args[1])
	if err != nil {
		return err
	}
	return withManager(func(mgr *mgmt.Manager) error {
		a, err := findAdapter(mgr, args[0])
		if err != nil {
			return err
		}
		if start {
			return a.StartDiscovery(0x07, adaptersCmdTimeout)
		}
		return a.StopDiscovery(0x07, adaptersCmdTimeout)
	})
}
