// Package gatt implements the Generic Attribute Profile on top of the att
// PDU codec: the attribute database, the three server handler strategies
// (NOP/DB/FWD), the GATT client engine, the per-connection reader and its
// listener fan-out. Package layout mirrors the teacher's flat single-package
// style (paypal/gatt): one package, files split by concern rather than by
// sub-package.
package gatt

import (
	"github.com/XC-/dbt/uuid"
)

// Handle is a 16-bit ATT attribute handle. 0 is invalid.
type Handle uint16

const InvalidHandle Handle = 0x0000

// Bluetooth SIG attribute types used by the dispatcher and discovery paths.
var (
	TypePrimaryService    = uuid.UUID16(0x2800)
	TypeSecondaryService  = uuid.UUID16(0x2801)
	TypeIncludeDecl       = uuid.UUID16(0x2802)
	TypeCharacteristic    = uuid.UUID16(0x2803)
	TypeCharUserDesc      = uuid.UUID16(0x2901)
	TypeClientCharConfig  = uuid.UUID16(0x2902)
	TypeGenericAccess     = uuid.UUID16(0x1800)
	TypeDeviceInformation = uuid.UUID16(0x180A)

	CharDeviceName      = uuid.UUID16(0x2A00)
	CharAppearance      = uuid.UUID16(0x2A01)
	CharPeripheralPCP   = uuid.UUID16(0x2A04)
	CharManufacturer    = uuid.UUID16(0x2A29)
	CharModelNumber     = uuid.UUID16(0x2A24)
	CharSerialNumber    = uuid.UUID16(0x2A25)
	CharHardwareRev     = uuid.UUID16(0x2A27)
	CharFirmwareRev     = uuid.UUID16(0x2A26)
	CharSoftwareRev     = uuid.UUID16(0x2A28)
	CharSystemID        = uuid.UUID16(0x2A23)
	CharRegulatoryData  = uuid.UUID16(0x2A2A)
	CharPnPID           = uuid.UUID16(0x2A50)
)

// MTU bounds, per spec.md §3.
const (
	MinATTMTU = 23
	MaxATTMTU = 512
)

// Properties is the characteristic properties bitset, spec.md §3's 8-flag
// set — wider than the teacher's original 4-flag {charRead, charWriteNR,
// charWrite, charNotify}, since the port exposes Broadcast/AuthSignedWrite/
// ExtProps as well.
type Properties uint8

const (
	PropBroadcast       Properties = 1 << 0
	PropRead            Properties = 1 << 1
	PropWriteNoAck      Properties = 1 << 2
	PropWriteWithAck    Properties = 1 << 3
	PropNotify          Properties = 1 << 4
	PropIndicate        Properties = 1 << 5
	PropAuthSignedWrite Properties = 1 << 6
	PropExtProps        Properties = 1 << 7
)

func (p Properties) Has(f Properties) bool { return p&f != 0 }

// Attribute is the common (handle, type, value) tuple every descriptor,
// characteristic value and service declaration shares.
type Attribute struct {
	Handle         Handle
	Type           uuid.UUID
	Value          []byte
	Capacity       int
	VariableLength bool
}

// Descriptor is an attribute that additionally knows its semantic kind.
type Descriptor struct {
	Attribute
}

// IsCCCD reports whether this descriptor is the Client Characteristic
// Configuration Descriptor.
func (d *Descriptor) IsCCCD() bool { return d.Type.Equivalent(TypeClientCharConfig) }

// IsUserDescription reports whether this descriptor is the read-only
// Characteristic User Description descriptor.
func (d *Descriptor) IsUserDescription() bool { return d.Type.Equivalent(TypeCharUserDesc) }

// CCCDFlags decodes the 2-byte CCCD bitfield.
func (d *Descriptor) CCCDFlags() (notify, indicate bool) {
	if len(d.Value) < 2 {
		return false, false
	}
	return d.Value[0]&0x01 != 0, d.Value[0]&0x02 != 0
}

// Characteristic owns its value attribute and an ordered descriptor list.
type Characteristic struct {
	DeclHandle  Handle // the characteristic declaration attribute's handle
	ValueHandle Handle
	EndHandle   Handle
	Properties  Properties
	ValueType   uuid.UUID
	Value       []byte
	Capacity    int
	VarLength   bool
	Descriptors []*Descriptor

	cccdIndex    int // -1 if none
	userDescIdx  int // -1 if none
}

// CCCD returns the characteristic's CCCD descriptor, or nil.
func (c *Characteristic) CCCD() *Descriptor {
	if c.cccdIndex < 0 {
		return nil
	}
	return c.Descriptors[c.cccdIndex]
}

// UserDescription returns the characteristic's user-description descriptor,
// or nil.
func (c *Characteristic) UserDescription() *Descriptor {
	if c.userDescIdx < 0 {
		return nil
	}
	return c.Descriptors[c.userDescIdx]
}

func (c *Characteristic) indexDescriptors() {
	c.cccdIndex, c.userDescIdx = -1, -1
	for i, d := range c.Descriptors {
		if d.IsCCCD() {
			c.cccdIndex = i
		}
		if d.IsUserDescription() {
			c.userDescIdx = i
		}
	}
}

// Service is a primary or secondary service declaration plus its ordered
// characteristic list.
type Service struct {
	IsPrimary       bool
	Type            uuid.UUID
	StartHandle     Handle
	EndHandle       Handle
	Characteristics []*Characteristic
}

// FindCharacteristic returns the first characteristic in the service whose
// value-type UUID is equivalent to u.
func (s *Service) FindCharacteristic(u uuid.UUID) *Characteristic {
	for _, c := range s.Characteristics {
		if c.ValueType.Equivalent(u) {
			return c
		}
	}
	return nil
}

// AttributeDatabase is an ordered list of services, built once and then
// looked up by handle or by UUID path. It optionally names a forwarding
// target device, selecting the FWD server-handler strategy.
type AttributeDatabase struct {
	Services        []*Service
	MaxATTMTU       int
	ForwardTarget   string // device address, empty if this is a local DB
}

// FindByServiceAndChar looks up a characteristic by its enclosing service's
// type UUID and its own value-type UUID (spec.md §4.7).
func (db *AttributeDatabase) FindByServiceAndChar(svcUUID, charUUID uuid.UUID) (*Service, *Characteristic) {
	for _, s := range db.Services {
		if !s.Type.Equivalent(svcUUID) {
			continue
		}
		if c := s.FindCharacteristic(charUUID); c != nil {
			return s, c
		}
	}
	return nil, nil
}

// FindByValueHandle returns the service and characteristic owning the
// attribute with the given handle. handle may address the characteristic's
// value attribute or one of its descriptors.
func (db *AttributeDatabase) FindByValueHandle(h Handle) (*Service, *Characteristic) {
	for _, s := range db.Services {
		for _, c := range s.Characteristics {
			if c.ValueHandle == h {
				return s, c
			}
			for _, d := range c.Descriptors {
				if d.Handle == h {
					return s, c
				}
			}
		}
	}
	return nil, nil
}

// FindDescriptor returns the descriptor with handle h, plus its owning
// characteristic.
func (db *AttributeDatabase) FindDescriptor(h Handle) (*Characteristic, *Descriptor) {
	for _, s := range db.Services {
		for _, c := range s.Characteristics {
			for _, d := range c.Descriptors {
				if d.Handle == h {
					return c, d
				}
			}
		}
	}
	return nil, nil
}

// ResetCCCD zeroes the CCCD value for the named service/characteristic,
// per spec.md §4.7's "reset a CCCD by service UUID + characteristic value
// UUID" lookup helper.
func (db *AttributeDatabase) ResetCCCD(svcUUID, charUUID uuid.UUID) bool {
	_, c := db.FindByServiceAndChar(svcUUID, charUUID)
	if c == nil {
		return false
	}
	if cccd := c.CCCD(); cccd != nil {
		cccd.Value = []byte{0x00, 0x00}
		return true
	}
	return false
}
