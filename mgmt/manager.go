package mgmt

import (
	"sync"
	"time"

	"github.com/cornelk/hashmap"

	"github.com/XC-/dbt/transport"
)

// Address is a little-endian 6-byte Bluetooth device address.
type Address [6]byte

// IOCapability mirrors the SMP I/O capability enumeration used when a
// pairing request needs a default in the absence of an application-
// supplied one (Core Spec Vol 3 Part H §2.3).
type IOCapability byte

const (
	IOCapDisplayOnly IOCapability = iota
	IOCapDisplayYesNo
	IOCapKeyboardOnly
	IOCapNoInputNoOutput
	IOCapKeyboardDisplay
)

// WhitelistEntry is one adapter-local whitelist row (spec.md §8's
// Whitelist glossary entry): an address, its type, and the connect-type
// the controller should use to auto-connect it.
type WhitelistEntry struct {
	Address     Address
	AddressType byte
	ConnectType byte
}

// Adapter is one local BLE controller as seen by the manager: its index
// on the mgmt channel, address, current settings, and the per-adapter
// command surface. Mirrors the teacher's Device interface (device.go)
// narrowed to the adapter-lifecycle operations spec.md names, since
// GATT server/client roles live on gatt.Conn instead.
type Adapter struct {
	DevID    uint16
	Address  Address
	Name     string
	Settings Settings

	mgr *Manager
}

func (a *Adapter) String() string { return a.Name }

// SetPowered issues Set Powered and waits for the reply (spec.md
// §4.11's SET_POWER extended timeout is applied inside Channel.SendWithReply).
func (a *Adapter) SetPowered(powered bool, timeout time.Duration) error {
	reply, err := a.mgr.channel.SendWithReply(NewSetPowerCmd(a.DevID, powered), timeout)
	if err != nil {
		return err
	}
	cc, err := ParseCommandComplete(reply)
	if err != nil {
		return err
	}
	if !cc.Status().OK() {
		return &CommandError{Opcode: CmdSetPowered, Status: cc.Status()}
	}
	return nil
}

// SetDiscoverable issues Set Discoverable and waits for the reply.
func (a *Adapter) SetDiscoverable(discoverable bool, timeoutSeconds uint16, cmdTimeout time.Duration) error {
	reply, err := a.mgr.channel.SendWithReply(NewSetDiscoverableCmd(a.DevID, discoverable, timeoutSeconds), cmdTimeout)
	if err != nil {
		return err
	}
	cc, err := ParseCommandComplete(reply)
	if err != nil {
		return err
	}
	if !cc.Status().OK() {
		return &CommandError{Opcode: CmdSetDiscoverable, Status: cc.Status()}
	}
	return nil
}

// StartDiscovery issues Start Discovery over the given address types.
func (a *Adapter) StartDiscovery(addressTypes byte, cmdTimeout time.Duration) error {
	reply, err := a.mgr.channel.SendWithReply(NewStartDiscoveryCmd(a.DevID, addressTypes), cmdTimeout)
	if err != nil {
		return err
	}
	cs, err := ParseCommandStatus(reply)
	if err != nil {
		return err
	}
	if !cs.Status().OK() {
		return &CommandError{Opcode: CmdStartDiscovery, Status: cs.Status()}
	}
	return nil
}

// StopDiscovery issues Stop Discovery.
func (a *Adapter) StopDiscovery(addressTypes byte, cmdTimeout time.Duration) error {
	reply, err := a.mgr.channel.SendWithReply(NewStopDiscoveryCmd(a.DevID, addressTypes), cmdTimeout)
	if err != nil {
		return err
	}
	cs, err := ParseCommandStatus(reply)
	if err != nil {
		return err
	}
	if !cs.Status().OK() {
		return &CommandError{Opcode: CmdStopDiscovery, Status: cs.Status()}
	}
	return nil
}

// CommandError reports a mgmt command that the controller rejected.
type CommandError struct {
	Opcode Opcode
	Status Status
}

func (e *CommandError) Error() string { return "mgmt: command rejected" }

// AdapterSetCallback observes adapters entering or leaving the manager's
// set (spec.md §4.12's addChangedAdapterSetCallback).
type AdapterSetCallback func(added bool, a *Adapter)

// Manager is the adapter-manager singleton named in spec.md §4.12: the
// list of adapters, their default I/O capability, a whitelist, and the
// adapter-set callback list, all driven off one Channel/Reader pair.
// Grounded on the teacher's Device interface (device.go) narrowed to
// adapter lifecycle, and on linux/devices.go's GetDeviceList enumeration
// step performed here via Read Controller Index List.
type Manager struct {
	channel *Channel
	reader  *Reader

	mu            sync.Mutex
	adapters      *hashmap.Map[uint16, *Adapter]
	ioCapability  *hashmap.Map[uint16, IOCapability]
	whitelist     []WhitelistEntry
	setCallbacks  []AdapterSetCallback
	defaultIOCap  IOCapability
}

var (
	instanceOnce sync.Once
	instance     *Manager
)

// GetManager returns the process-wide Manager singleton, opening the
// mgmt control channel on first use.
func GetManager() (*Manager, error) {
	var err error
	instanceOnce.Do(func() {
		instance, err = newManager()
	})
	return instance, err
}

func newManager() (*Manager, error) {
	tr, err := transport.NewMgmtControlSocket()
	if err != nil {
		return nil, err
	}
	return newManagerFromTransport(tr), nil
}

// newManagerFromTransport builds a Manager over an already-opened
// transport, letting tests substitute transport.NewPipePair() for the
// real control socket.
func newManagerFromTransport(tr transport.Transport) *Manager {
	ch := NewChannel(tr)
	m := &Manager{
		channel:      ch,
		adapters:     hashmap.New[uint16, *Adapter](),
		ioCapability: hashmap.New[uint16, IOCapability](),
		defaultIOCap: IOCapNoInputNoOutput,
	}
	ch.AddListener(EvtIndexAdded, EventListenerFunc(m.onIndexAdded))
	ch.AddListener(EvtIndexRemoved, EventListenerFunc(m.onIndexRemoved))
	ch.AddListener(EvtNewSettings, EventListenerFunc(m.onNewSettings))

	m.reader = NewReader(ch, 2*time.Second, nil)
	return m
}

// Channel exposes the underlying mgmt Channel for commands not yet
// modeled as an Adapter method.
func (m *Manager) Channel() *Channel { return m.channel }

// Start launches the manager's reader goroutine.
func (m *Manager) Start() error { return m.reader.Start() }

// Stop halts the manager's reader goroutine.
func (m *Manager) Stop(timeout time.Duration) { m.reader.Stop(timeout) }

// GetDefaultAdapter returns the first powered adapter, or nil if none
// are currently powered (spec.md §4.12).
func (m *Manager) GetDefaultAdapter() *Adapter {
	var found *Adapter
	m.adapters.Range(func(_ uint16, a *Adapter) bool {
		if a.Settings.Has(SettingPowered) {
			found = a
			return false
		}
		return true
	})
	return found
}

// Adapters returns a snapshot of every adapter currently known to the
// manager.
func (m *Manager) Adapters() []*Adapter {
	out := make([]*Adapter, 0, m.adapters.Len())
	m.adapters.Range(func(_ uint16, a *Adapter) bool {
		out = append(out, a)
		return true
	})
	return out
}

// AddChangedAdapterSetCallback registers cb and immediately replays the
// current adapter set to it as a sequence of added=true calls, so a late
// subscriber observes every already-known adapter exactly as if it had
// just been added (spec.md §4.12).
func (m *Manager) AddChangedAdapterSetCallback(cb AdapterSetCallback) {
	m.mu.Lock()
	m.setCallbacks = append(m.setCallbacks, cb)
	m.mu.Unlock()

	for _, a := range m.Adapters() {
		cb(true, a)
	}
}

func (m *Manager) notifySetChanged(added bool, a *Adapter) {
	m.mu.Lock()
	cbs := append([]AdapterSetCallback(nil), m.setCallbacks...)
	m.mu.Unlock()
	for _, cb := range cbs {
		safeCall(func() { cb(added, a) })
	}
}

// AddWhitelistEntry appends an entry to the in-memory whitelist. The
// core tracks the whitelist locally; pushing it to the controller via
// the Add Device To Whitelist command is left to the caller since its
// wire encoding depends on the connect-type semantics the application
// chooses.
func (m *Manager) AddWhitelistEntry(e WhitelistEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.whitelist = append(m.whitelist, e)
}

// RemoveWhitelistEntry drops the first matching entry, if any.
func (m *Manager) RemoveWhitelistEntry(addr Address) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.whitelist {
		if e.Address == addr {
			m.whitelist = append(m.whitelist[:i], m.whitelist[i+1:]...)
			return true
		}
	}
	return false
}

// Whitelist returns a snapshot of the current whitelist.
func (m *Manager) Whitelist() []WhitelistEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]WhitelistEntry(nil), m.whitelist...)
}

// SetDefaultIOCapability changes the I/O capability used for adapters
// with no explicit per-adapter override.
func (m *Manager) SetDefaultIOCapability(cap IOCapability) {
	m.mu.Lock()
	m.defaultIOCap = cap
	m.mu.Unlock()
}

// IOCapabilityFor returns devID's per-adapter I/O capability if one was
// set, else the manager's default.
func (m *Manager) IOCapabilityFor(devID uint16) IOCapability {
	if cap, ok := m.ioCapability.Get(devID); ok {
		return cap
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.defaultIOCap
}

// SetIOCapabilityFor overrides the I/O capability for one adapter.
func (m *Manager) SetIOCapabilityFor(devID uint16, cap IOCapability) {
	m.ioCapability.Insert(devID, cap)
}

func (m *Manager) onIndexAdded(p PDU) {
	a := &Adapter{DevID: p.DevID(), mgr: m}
	m.adapters.Insert(a.DevID, a)
	m.notifySetChanged(true, a)
}

func (m *Manager) onIndexRemoved(p PDU) {
	a, ok := m.adapters.Get(p.DevID())
	if !ok {
		return
	}
	// "all adapter-set callbacks are invoked first, then the adapter's
	// close method" (spec.md §4.12).
	m.notifySetChanged(false, a)
	m.adapters.Del(p.DevID())
}

func (m *Manager) onNewSettings(p PDU) {
	ns, err := ParseNewSettings(p)
	if err != nil {
		return
	}
	a, ok := m.adapters.Get(p.DevID())
	if !ok {
		return
	}
	a.Settings = ns.Settings()
}
