package gatt

import (
	"fmt"
	"time"

	"github.com/XC-/dbt/att"
	"github.com/XC-/dbt/config"
	"github.com/XC-/dbt/uuid"
)

// GenericAccess is the cached read of the mandatory 0x1800 service, per
// spec.md §4.9's getGenericAccess.
type GenericAccess struct {
	DeviceName string
	Appearance uint16
	HasPCP     bool
	PCP        []byte
}

// DeviceInformation is the cached read of the optional 0x180A service, per
// spec.md §4.9's getDeviceInformation. Every field is empty when the
// corresponding characteristic is absent from the server's tree.
type DeviceInformation struct {
	Manufacturer   string
	ModelNumber    string
	SerialNumber   string
	HardwareRev    string
	FirmwareRev    string
	SoftwareRev    string
	SystemID       []byte
	RegulatoryData []byte
	PnPID          []byte
}

// Client drives the GATT client engine over a Conn: MTU negotiation,
// service/characteristic/descriptor discovery, reads, writes, notification
// configuration, and the generic-access/device-information conveniences
// (spec.md §4.9). Every operation internally uses Conn.SendWithReply, so
// callers must serialize concurrent calls on the same Client themselves —
// the teacher's l2cap.go sendmu plays the same role one layer down.
type Client struct {
	Conn *Conn

	ReadTimeout, WriteTimeout, InitTimeout time.Duration

	GenericAccess     *GenericAccess
	DeviceInformation *DeviceInformation
}

// NewClient builds a Client over c, deriving InitTimeout from
// supervisionTimeout per spec.md §4.9: min(10s, max(2.5s, 2*supervision)).
func NewClient(c *Conn, supervisionTimeout time.Duration) *Client {
	cfg := config.Get()
	return &Client{
		Conn:         c,
		ReadTimeout:  cfg.GATTReadTimeout,
		WriteTimeout: cfg.GATTWriteTimeout,
		InitTimeout:  initTimeout(supervisionTimeout),
	}
}

func initTimeout(supervision time.Duration) time.Duration {
	t := 2 * supervision
	if t < 2500*time.Millisecond {
		t = 2500 * time.Millisecond
	}
	if t > 10*time.Second {
		t = 10 * time.Second
	}
	return t
}

// Initialize runs exactly once per connection: MTU exchange, then complete
// service/characteristic/descriptor discovery, then an opportunistic
// generic-access read. Failure to discover any service disconnects the
// connection and returns an error.
func (cl *Client) Initialize() error {
	if !cl.Conn.MTUExchanged() {
		if err := cl.clientMTUExchange(cl.InitTimeout); err != nil {
			cl.Conn.Disconnect(true)
			return err
		}
	}

	services, err := cl.DiscoverCompletePrimaryServices()
	if err != nil {
		cl.Conn.Disconnect(true)
		return err
	}
	if len(services) == 0 {
		cl.Conn.Disconnect(true)
		return fmt.Errorf("gatt: no primary services discovered")
	}
	cl.Conn.DiscoveredServices = services

	if ga, err := cl.GetGenericAccess(services); err == nil {
		cl.GenericAccess = ga
	}
	return nil
}

// clientMTUExchange performs EXCHANGE_MTU_REQ/RESP. An UNSUPPORTED_REQUEST
// reply is not fatal: the connection proceeds at MIN_ATT_MTU.
func (cl *Client) clientMTUExchange(timeout time.Duration) error {
	resp, err := cl.Conn.SendWithReply(att.NewExchangeMTUReq(uint16(MaxATTMTU)).Bytes(), timeout)
	if err != nil {
		return err
	}
	if resp.Opcode() == att.OpError {
		if att.ParseErrorResp(resp.Bytes()).ErrorCode() == att.ErrUnsupportedRequest {
			cl.Conn.SetUsedMTU(MinATTMTU)
			cl.Conn.setMTUExchanged()
			return nil
		}
		return fmt.Errorf("gatt: mtu exchange refused: %s", att.ParseErrorResp(resp.Bytes()).ErrorCode())
	}
	if resp.Opcode() != att.OpMTUResp {
		return fmt.Errorf("gatt: unexpected reply opcode %s to mtu exchange", resp.Opcode())
	}
	serverMTU := int(att.ParseExchangeMTUResp(resp.Bytes()).ServerMTU())
	used := serverMTU
	if used > MaxATTMTU {
		used = MaxATTMTU
	}
	cl.Conn.SetUsedMTU(used)
	cl.Conn.setMTUExchanged()
	return nil
}

// DiscoverCompletePrimaryServices discovers every primary service, then
// for each one its characteristics and their descriptors.
func (cl *Client) DiscoverCompletePrimaryServices() ([]*Service, error) {
	services, err := cl.DiscoverPrimaryServices()
	if err != nil {
		return services, err
	}
	for _, s := range services {
		if err := cl.DiscoverCharacteristics(s); err != nil {
			return services, err
		}
		if err := cl.DiscoverDescriptors(s); err != nil {
			return services, err
		}
	}
	return services, nil
}

func decodeWireUUID(raw []byte) (uuid.UUID, error) {
	switch len(raw) {
	case 2:
		return uuid.From16(raw, true)
	case 4:
		return uuid.From32(raw, true)
	case 16:
		return uuid.From128(raw, true)
	default:
		return uuid.UUID{}, fmt.Errorf("gatt: unsupported wire uuid length %d", len(raw))
	}
}

// DiscoverPrimaryServices walks the whole handle space with
// READ_BY_GROUP_TYPE_REQ(PRIMARY_SERVICE), per spec.md §4.9.
func (cl *Client) DiscoverPrimaryServices() ([]*Service, error) {
	var services []*Service
	start := uint16(1)
	for {
		req := att.NewReadByGroupTypeReq(start, 0xFFFF, TypePrimaryService)
		resp, err := cl.Conn.SendWithReply(req.Bytes(), cl.ReadTimeout)
		if err != nil {
			return services, err
		}
		if resp.Opcode() == att.OpError {
			break
		}
		if resp.Opcode() != att.OpReadByGroupResp {
			return services, fmt.Errorf("gatt: unexpected reply opcode %s to service discovery", resp.Opcode())
		}
		r := att.ParseReadByGroupTypeResp(resp.Bytes())
		if r.ElementCount() == 0 {
			break
		}
		var lastEnd uint16
		for i := 0; i < r.ElementCount(); i++ {
			e := r.Element(i)
			u, err := decodeWireUUID(e.Value)
			if err != nil {
				return services, err
			}
			services = append(services, &Service{
				IsPrimary:   true,
				Type:        u,
				StartHandle: Handle(e.Start),
				EndHandle:   Handle(e.End),
			})
			lastEnd = e.End
		}
		if lastEnd == 0xFFFF {
			break
		}
		start = lastEnd + 1
	}
	return services, nil
}

// DiscoverCharacteristics walks svc's handle range with
// READ_BY_TYPE_REQ(CHARACTERISTIC), decoding each declaration element and
// assigning each characteristic's end_handle from the next declaration
// (or the service's own end_handle for the last one).
func (cl *Client) DiscoverCharacteristics(svc *Service) error {
	start := uint16(svc.StartHandle)
	end := uint16(svc.EndHandle)
	for start <= end {
		req := att.NewReadByTypeReq(start, end, TypeCharacteristic)
		resp, err := cl.Conn.SendWithReply(req.Bytes(), cl.ReadTimeout)
		if err != nil {
			return err
		}
		if resp.Opcode() == att.OpError {
			break
		}
		if resp.Opcode() != att.OpReadByTypeResp {
			return fmt.Errorf("gatt: unexpected reply opcode %s to characteristic discovery", resp.Opcode())
		}
		r := att.ParseReadByTypeResp(resp.Bytes())
		if r.ElementCount() == 0 {
			break
		}
		var lastDecl uint16
		for i := 0; i < r.ElementCount(); i++ {
			e := r.Element(i)
			if len(e.Value) < 5 {
				continue
			}
			props := Properties(e.Value[0])
			valueHandle := uint16(e.Value[1]) | uint16(e.Value[2])<<8
			u, err := decodeWireUUID(e.Value[3:])
			if err != nil {
				return err
			}
			svc.Characteristics = append(svc.Characteristics, &Characteristic{
				DeclHandle:  Handle(e.Handle),
				ValueHandle: Handle(valueHandle),
				Properties:  props,
				ValueType:   u,
			})
			lastDecl = e.Handle
		}
		if lastDecl == end {
			break
		}
		start = lastDecl + 1
	}
	for i, c := range svc.Characteristics {
		if i+1 < len(svc.Characteristics) {
			c.EndHandle = svc.Characteristics[i+1].DeclHandle - 1
		} else {
			c.EndHandle = svc.EndHandle
		}
	}
	return nil
}

// DiscoverDescriptors walks the descriptor range of every characteristic
// in svc with FIND_INFORMATION_REQ, reading each descriptor's value with a
// long read immediately upon discovery, per spec.md §4.9.
func (cl *Client) DiscoverDescriptors(svc *Service) error {
	for _, c := range svc.Characteristics {
		startH := c.ValueHandle + 1
		endH := c.EndHandle
		if startH > endH {
			continue
		}
		start := uint16(startH)
		end := uint16(endH)
		for start <= end {
			req := att.NewFindInfoReq(start, end)
			resp, err := cl.Conn.SendWithReply(req.Bytes(), cl.ReadTimeout)
			if err != nil {
				return err
			}
			if resp.Opcode() == att.OpError {
				break
			}
			if resp.Opcode() != att.OpFindInfoResp {
				return fmt.Errorf("gatt: unexpected reply opcode %s to descriptor discovery", resp.Opcode())
			}
			r := att.ParseFindInfoResp(resp.Bytes())
			if r.ElementCount() == 0 {
				break
			}
			var last uint16
			for i := 0; i < r.ElementCount(); i++ {
				p := r.Element(i)
				d := &Descriptor{Attribute{Handle: Handle(p.Handle), Type: p.Type}}
				if val, err := cl.ReadValue(d.Handle, -1); err == nil {
					d.Value = val
				}
				c.Descriptors = append(c.Descriptors, d)
				last = p.Handle
			}
			if last == end {
				break
			}
			start = last + 1
		}
		c.indexDescriptors()
	}
	return nil
}

// ReadValue implements spec.md §4.9's long-read loop: READ_REQ first, then
// READ_BLOB_REQ with a running offset, until expectedLen bytes have been
// read (expectedLen == 0 means "stop after the first round"; a negative
// expectedLen sets no length bound), a short or empty reply signals the
// end of the value, or the server refuses a blob read past the value's
// end with ATTRIBUTE_NOT_LONG.
func (cl *Client) ReadValue(handle Handle, expectedLen int) ([]byte, error) {
	var out []byte
	offset := 0
	maxVal := cl.Conn.UsedMTU() - 1
	for {
		var resp att.PDU
		var err error
		if offset == 0 {
			resp, err = cl.Conn.SendWithReply(att.NewReadReq(uint16(handle)).Bytes(), cl.ReadTimeout)
		} else {
			resp, err = cl.Conn.SendWithReply(att.NewReadBlobReq(uint16(handle), uint16(offset)).Bytes(), cl.ReadTimeout)
		}
		if err != nil {
			return out, err
		}
		if resp.Opcode() == att.OpError {
			ec := att.ParseErrorResp(resp.Bytes()).ErrorCode()
			if ec == att.ErrAttributeNotLong {
				break
			}
			return out, fmt.Errorf("gatt: read refused: %s", ec)
		}

		var value []byte
		if offset == 0 {
			if resp.Opcode() != att.OpReadResp {
				return out, fmt.Errorf("gatt: unexpected reply opcode %s to read", resp.Opcode())
			}
			value = att.ParseReadResp(resp.Bytes()).Value()
		} else {
			if resp.Opcode() != att.OpReadBlobResp {
				return out, fmt.Errorf("gatt: unexpected reply opcode %s to read blob", resp.Opcode())
			}
			value = att.ParseReadBlobResp(resp.Bytes()).Value()
			if len(value) == 0 {
				break
			}
		}
		out = append(out, value...)
		offset += len(value)

		if expectedLen > 0 && offset >= expectedLen {
			break
		}
		if expectedLen == 0 {
			break
		}
		if len(value) < maxVal {
			break
		}
	}
	return out, nil
}

// WriteValue implements spec.md §4.9's writeValue: without a response it
// is fire-and-forget WRITE_CMD; with a response it is WRITE_REQ, and
// success requires a WRITE_RSP reply. A value too long to fit one PDU
// (len(value) > used_mtu-3) fails explicitly rather than silently
// truncating or silently attempting a prepared-write sequence — callers
// that need a long write use PrepareAndExecuteWrite.
func (cl *Client) WriteValue(handle Handle, value []byte, withResponse bool) error {
	if max := cl.Conn.UsedMTU() - 3; len(value) > max {
		return fmt.Errorf("gatt: value length %d exceeds single-pdu write limit %d; use PrepareAndExecuteWrite", len(value), max)
	}
	if !withResponse {
		return cl.Conn.Send(att.NewWriteCmd(uint16(handle), value).Bytes())
	}
	resp, err := cl.Conn.SendWithReply(att.NewWriteReq(uint16(handle), value).Bytes(), cl.WriteTimeout)
	if err != nil {
		return err
	}
	if resp.Opcode() == att.OpError {
		return fmt.Errorf("gatt: write refused: %s", att.ParseErrorResp(resp.Bytes()).ErrorCode())
	}
	if resp.Opcode() != att.OpWriteResp {
		return fmt.Errorf("gatt: unexpected reply opcode %s to write", resp.Opcode())
	}
	return nil
}

// PrepareAndExecuteWrite writes value to handle via one or more
// PREPARE_WRITE_REQ fragments followed by an EXECUTE_WRITE_REQ(commit),
// for values too long to fit in a single WRITE_REQ.
func (cl *Client) PrepareAndExecuteWrite(handle Handle, value []byte) error {
	chunk := cl.Conn.UsedMTU() - 5
	if chunk <= 0 {
		return fmt.Errorf("gatt: used_mtu too small for prepared writes")
	}
	for offset := 0; offset < len(value); offset += chunk {
		end := offset + chunk
		if end > len(value) {
			end = len(value)
		}
		resp, err := cl.Conn.SendWithReply(att.NewPrepareWriteReq(uint16(handle), uint16(offset), value[offset:end]).Bytes(), cl.WriteTimeout)
		if err != nil {
			cl.cancelPreparedWrite()
			return err
		}
		if resp.Opcode() != att.OpPrepWriteResp {
			cl.cancelPreparedWrite()
			return fmt.Errorf("gatt: prepare write refused: opcode %s", resp.Opcode())
		}
	}
	resp, err := cl.Conn.SendWithReply(att.NewExecuteWriteReq(att.ExecuteWriteCommit).Bytes(), cl.WriteTimeout)
	if err != nil {
		return err
	}
	if resp.Opcode() != att.OpExecWriteResp {
		return fmt.Errorf("gatt: execute write refused: opcode %s", resp.Opcode())
	}
	return nil
}

func (cl *Client) cancelPreparedWrite() {
	cl.Conn.SendWithReply(att.NewExecuteWriteReq(att.ExecuteWriteCancel).Bytes(), cl.WriteTimeout)
}

// ConfigureNotificationIndication writes the CCCD 2-byte value per
// spec.md §4.9. Disabling both flags swallows a transport failure (the
// server may already be gone, which is not itself a caller-visible
// error); enabling either propagates any error.
func (cl *Client) ConfigureNotificationIndication(cccd *Descriptor, notify, indicate bool) error {
	if !cccd.IsCCCD() {
		return fmt.Errorf("gatt: descriptor %d is not a client characteristic configuration", cccd.Handle)
	}
	b := byte(0)
	if notify {
		b |= 0x01
	}
	if indicate {
		b |= 0x02
	}
	err := cl.WriteValue(cccd.Handle, []byte{b, 0x00}, true)
	if err == nil || (!notify && !indicate) {
		return nil
	}
	return err
}

// GetGenericAccess locates the 0x1800 service and reads its standard
// characteristics, per spec.md §4.9. Returns an error if Device Name is
// absent (the only mandatory field in the record).
func (cl *Client) GetGenericAccess(services []*Service) (*GenericAccess, error) {
	var gap *Service
	for _, s := range services {
		if s.Type.Equivalent(TypeGenericAccess) {
			gap = s
			break
		}
	}
	if gap == nil {
		return nil, fmt.Errorf("gatt: no generic access service discovered")
	}
	name := gap.FindCharacteristic(CharDeviceName)
	if name == nil {
		return nil, fmt.Errorf("gatt: generic access service missing device name")
	}
	ga := &GenericAccess{}
	if v, err := cl.ReadValue(name.ValueHandle, 0); err == nil {
		ga.DeviceName = string(v)
	} else {
		return nil, err
	}
	if appearance := gap.FindCharacteristic(CharAppearance); appearance != nil {
		if v, err := cl.ReadValue(appearance.ValueHandle, 2); err == nil && len(v) >= 2 {
			ga.Appearance = uint16(v[0]) | uint16(v[1])<<8
		}
	}
	if pcp := gap.FindCharacteristic(CharPeripheralPCP); pcp != nil {
		if v, err := cl.ReadValue(pcp.ValueHandle, 8); err == nil {
			ga.HasPCP = true
			ga.PCP = v
		}
	}
	return ga, nil
}

// GetDeviceInformation locates the optional 0x180A service and reads
// whichever standard characteristics are present, per spec.md §4.9.
func (cl *Client) GetDeviceInformation(services []*Service) (*DeviceInformation, error) {
	var dis *Service
	for _, s := range services {
		if s.Type.Equivalent(TypeDeviceInformation) {
			dis = s
			break
		}
	}
	if dis == nil {
		return nil, fmt.Errorf("gatt: no device information service discovered")
	}
	di := &DeviceInformation{}
	readString := func(u uuid.UUID) string {
		c := dis.FindCharacteristic(u)
		if c == nil {
			return ""
		}
		v, err := cl.ReadValue(c.ValueHandle, 0)
		if err != nil {
			return ""
		}
		return string(v)
	}
	readBytes := func(u uuid.UUID) []byte {
		c := dis.FindCharacteristic(u)
		if c == nil {
			return nil
		}
		v, _ := cl.ReadValue(c.ValueHandle, 0)
		return v
	}
	di.Manufacturer = readString(CharManufacturer)
	di.ModelNumber = readString(CharModelNumber)
	di.SerialNumber = readString(CharSerialNumber)
	di.HardwareRev = readString(CharHardwareRev)
	di.FirmwareRev = readString(CharFirmwareRev)
	di.SoftwareRev = readString(CharSoftwareRev)
	di.SystemID = readBytes(CharSystemID)
	di.RegulatoryData = readBytes(CharRegulatoryData)
	di.PnPID = readBytes(CharPnPID)
	return di, nil
}

// Ping re-reads the Appearance characteristic to test liveness; a read
// failure disconnects with the I/O-error cause.
func (cl *Client) Ping() error {
	if cl.GenericAccess == nil {
		return fmt.Errorf("gatt: ping requires a prior successful Initialize")
	}
	var appearance *Characteristic
	for _, s := range cl.Conn.DiscoveredServices {
		if s.Type.Equivalent(TypeGenericAccess) {
			appearance = s.FindCharacteristic(CharAppearance)
			break
		}
	}
	if appearance == nil {
		return fmt.Errorf("gatt: no appearance characteristic to ping")
	}
	if _, err := cl.ReadValue(appearance.ValueHandle, 2); err != nil {
		cl.Conn.Disconnect(true)
		return err
	}
	return nil
}
