package main

import (
	"encoding/hex"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/XC-/dbt/config"
	"github.com/XC-/dbt/gatt"
	"github.com/XC-/dbt/transport"
)

// GATT subcommands act on one already-open connection, identified by an
// inherited file descriptor. dbtctl does not perform BDADDR-based L2CAP
// connection establishment itself (no physical-layer/controller-level
// implementation is in scope); whatever connected the socket — a udev
// rule, a supervisor, or a prior `bluetoothctl connect` — hands the fd
// to dbtctl the same way inetd/systemd socket activation hands a
// listening fd to a server.
var gattFD int

var gattCmd = &cobra.Command{
	Use:   "gatt",
	Short: "GATT client operations over an already-connected socket (see --fd)",
}

func init() {
	gattCmd.PersistentFlags().IntVar(&gattFD, "fd", -1, "open L2CAP socket file descriptor for the target connection")
	gattCmd.AddCommand(gattDiscoverCmd)
	gattCmd.AddCommand(gattReadCmd)
	gattCmd.AddCommand(gattWriteCmd)
	gattCmd.AddCommand(gattSubscribeCmd)
}

// newClient wraps gattFD as a Conn and runs Initialize (MTU exchange +
// full discovery), the same sequence a real central performs right
// after ATT_CONNECT, grounded on Client.Initialize (client.go).
func newClient() (*gatt.Client, *gatt.Reader, error) {
	if gattFD < 0 {
		return nil, nil, fmt.Errorf("--fd is required: dbtctl does not establish connections itself")
	}
	tr := transport.NewL2CAPSocket(gattFD)
	conn := gatt.NewConn(tr, gatt.RoleCentral, config.Get().GATTRingSize)
	reader := gatt.NewReader(conn, gatt.NopHandler{}, config.Get().GATTReadTimeout)
	if err := reader.Start(); err != nil {
		return nil, nil, fmt.Errorf("starting connection reader: %w", err)
	}
	cl := gatt.NewClient(conn, 0)
	if err := cl.Initialize(); err != nil {
		reader.Stop(time.Second)
		return nil, nil, err
	}
	return cl, reader, nil
}

var gattDiscoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Print the discovered service/characteristic tree",
	RunE:  runGATTDiscover,
}

var gattReadCmd = &cobra.Command{
	Use:   "read <service-uuid> <char-uuid>",
	Short: "Read a characteristic value",
	Args:  cobra.ExactArgs(2),
	RunE:  runGATTRead,
}

var (
	gattWriteHex        bool
	gattWriteNoResponse bool
)

var gattWriteCmd = &cobra.Command{
	Use:   "write <service-uuid> <char-uuid> <data>",
	Short: "Write a characteristic value",
	Args:  cobra.ExactArgs(3),
	RunE:  runGATTWrite,
}

var gattSubscribeCmd = &cobra.Command{
	Use:   "subscribe <service-uuid> <char-uuid>",
	Short: "Enable notifications/indications and print values as they arrive",
	Args:  cobra.ExactArgs(2),
	RunE:  runGATTSubscribe,
}

func init() {
	gattWriteCmd.Flags().BoolVar(&gattWriteHex, "hex", false, "parse <data> as a hex string instead of raw UTF-8")
	gattWriteCmd.Flags().BoolVar(&gattWriteNoResponse, "without-response", false, "write without waiting for a WRITE_RSP")
}

func parseWriteData(s string) ([]byte, error) {
	if gattWriteHex {
		return hex.DecodeString(strings.TrimSpace(s))
	}
	return []byte(s), nil
}

func findServiceChar(cl *gatt.Client, svcArg, charArg string) (*gatt.Characteristic, error) {
	svcUUID, err := parseUUIDArg(svcArg)
	if err != nil {
		return nil, fmt.Errorf("service uuid: %w", err)
	}
	charUUID, err := parseUUIDArg(charArg)
	if err != nil {
		return nil, fmt.Errorf("characteristic uuid: %w", err)
	}
	for _, svc := range cl.Conn.DiscoveredServices {
		if !svc.Type.Equivalent(svcUUID) {
			continue
		}
		if c := svc.FindCharacteristic(charUUID); c != nil {
			return c, nil
		}
	}
	return nil, fmt.Errorf("characteristic %s not found under service %s", charArg, svcArg)
}

func runGATTDiscover(cmd *cobra.Command, args []string) error {
	cl, reader, err := newClient()
	if err != nil {
		return err
	}
	defer reader.Stop(time.Second)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SERVICE\tCHARACTERISTIC\tVALUE-HANDLE\tPROPERTIES")
	for _, svc := range cl.Conn.DiscoveredServices {
		for _, c := range svc.Characteristics {
			fmt.Fprintf(w, "%s\t%s\t0x%04X\t%08b\n", svc.Type, c.ValueType, c.ValueHandle, c.Properties)
		}
	}
	return w.Flush()
}

func runGATTRead(cmd *cobra.Command, args []string) error {
	cl, reader, err := newClient()
	if err != nil {
		return err
	}
	defer reader.Stop(time.Second)

	c, err := findServiceChar(cl, args[0], args[1])
	if err != nil {
		return err
	}
	value, err := cl.ReadValue(c.ValueHandle, 0)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n", hex.EncodeToString(value))
	return nil
}

func runGATTWrite(cmd *cobra.Command, args []string) error {
	cl, reader, err := newClient()
	if err != nil {
		return err
	}
	defer reader.Stop(time.Second)

	c, err := findServiceChar(cl, args[0], args[1])
	if err != nil {
		return err
	}
	data, err := parseWriteData(args[2])
	if err != nil {
		return fmt.Errorf("parsing data: %w", err)
	}
	if len(data) > cl.Conn.UsedMTU()-3 {
		return cl.PrepareAndExecuteWrite(c.ValueHandle, data)
	}
	return cl.WriteValue(c.ValueHandle, data, !gattWriteNoResponse)
}

type notificationPrinter struct {
	out func(handle gatt.Handle, value []byte)
}

func (p notificationPrinter) NotificationReceived(handle gatt.Handle, value []byte) { p.out(handle, value) }
func (p notificationPrinter) IndicationReceived(handle gatt.Handle, value []byte, confirmationSent bool) {
	p.out(handle, value)
}
func (p notificationPrinter) MTUChanged(int) {}

func runGATTSubscribe(cmd *cobra.Command, args []string) error {
	cl, reader, err := newClient()
	if err != nil {
		return err
	}
	defer reader.Stop(time.Second)

	c, err := findServiceChar(cl, args[0], args[1])
	if err != nil {
		return err
	}
	cccd := c.CCCD()
	if cccd == nil {
		return fmt.Errorf("characteristic %s has no client characteristic configuration descriptor", args[1])
	}

	cl.Conn.Native.Add(notificationPrinter{out: func(handle gatt.Handle, value []byte) {
		if handle != c.ValueHandle {
			return
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", hex.EncodeToString(value))
	}})

	notify := c.Properties.Has(gatt.PropNotify)
	indicate := c.Properties.Has(gatt.PropIndicate) && !notify
	if err := cl.ConfigureNotificationIndication(cccd, notify, indicate); err != nil {
		return err
	}

	select {}
}
