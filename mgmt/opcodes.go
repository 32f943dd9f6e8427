package mgmt

import "errors"

var errShortPDU = errors.New("mgmt: PDU shorter than its declared param_len")

// NonControllerIndex (0xFFFF) addresses commands that target no specific
// adapter (Read Version, Read Controller Index List).
const NonControllerIndex = 0xFFFF

// Opcode is a mgmt command or event opcode, per the BlueZ mgmt protocol.
type Opcode uint16

// Commands (a subset; spec.md's core only needs power/discoverable/
// connectable/discovery control plus the read-version/index-list pair
// used at startup).
const (
	CmdReadVersion     Opcode = 0x0001
	CmdReadIndexList   Opcode = 0x0003
	CmdReadInfo        Opcode = 0x0004
	CmdSetPowered      Opcode = 0x0005
	CmdSetDiscoverable Opcode = 0x0006
	CmdSetConnectable  Opcode = 0x0007
	CmdSetPairable     Opcode = 0x0008
	CmdSetBondable     Opcode = 0x0009
	CmdAddWhitelist    Opcode = 0x0025
	CmdRemoveWhitelist Opcode = 0x0026
	CmdStartDiscovery  Opcode = 0x0023
	CmdStopDiscovery   Opcode = 0x0024
	CmdLoadLinkKeys    Opcode = 0x0013
	CmdLoadLongTermKeys Opcode = 0x0030
)

// Events.
const (
	EvtCommandComplete  Opcode = 0x0001
	EvtCommandStatus    Opcode = 0x0002
	EvtControllerError  Opcode = 0x0003
	EvtIndexAdded       Opcode = 0x0004
	EvtIndexRemoved     Opcode = 0x0005
	EvtNewSettings      Opcode = 0x0006
	EvtClassOfDevChanged Opcode = 0x0007
	EvtLocalNameChanged Opcode = 0x0008
	EvtNewLinkKey       Opcode = 0x0009
	EvtNewLongTermKey   Opcode = 0x000A
	EvtDeviceConnected  Opcode = 0x000B
	EvtDeviceDisconnected Opcode = 0x000C
	EvtDeviceFound      Opcode = 0x0012
	EvtDiscovering      Opcode = 0x0013
	EvtDeviceWhitelistAdded Opcode = 0x002F

	// evtOpcodeCount bounds the per-adapter listener array named in
	// spec.md §4.11 ("size bounded by the known opcode count").
	evtOpcodeCount = 0x0030
)

// Status is the one-byte result code carried by Command Complete/Status
// events.
type Status byte

const (
	StatusSuccess Status = 0x00
	StatusUnknownCommand Status = 0x01
	StatusNotConnected Status = 0x02
	StatusFailed Status = 0x03
	StatusConnectFailed Status = 0x04
	StatusAuthFailed Status = 0x05
	StatusNotPaired Status = 0x06
	StatusNoResources Status = 0x07
	StatusTimeout Status = 0x08
	StatusAlreadyConnected Status = 0x09
	StatusBusy Status = 0x0A
	StatusRejected Status = 0x0B
	StatusNotSupported Status = 0x0C
	StatusInvalidParams Status = 0x0D
	StatusDisconnected Status = 0x0E
	StatusNotPowered Status = 0x0F
	StatusCancelled Status = 0x10
	StatusInvalidIndex Status = 0x11
	StatusRFKilled Status = 0x12
	StatusAlreadyPaired Status = 0x13
	StatusPermissionDenied Status = 0x14
)

func (s Status) OK() bool { return s == StatusSuccess }

// Settings is the adapter settings bitmask carried by NewSettingsEvent
// and Read Controller Information.
type Settings uint32

const (
	SettingPowered Settings = 1 << iota
	SettingConnectable
	SettingFastConnectable
	SettingDiscoverable
	SettingBondable
	SettingLinkSecurity
	SettingSecureSimplePairing
	SettingBREDR
	SettingHighSpeed
	SettingLE
	SettingAdvertising
	SettingSecureConnections
	SettingDebugKeys
	SettingPrivacy
	SettingConfiguration
	SettingStaticAddress
)

func (s Settings) Has(f Settings) bool { return s&f != 0 }
