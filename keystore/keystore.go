// Package keystore implements the default key-store collaborator named
// in spec.md §6: the core's SMP layer only ever calls load_keys,
// store_keys and remove_keys against this contract, keyed by
// (adapter_address, device_address_and_type). The default implementation
// fronts an in-memory LRU (github.com/hashicorp/golang-lru, the same
// lru.New(n)/.Add/.Get/.Remove shape kryptco-kr's ssh_agent.go uses for
// its session caches) so a long-running adapter does not grow its key
// table without bound across many transient devices.
package keystore

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"
)

// SecurityLevel mirrors the levels SMP pairing can satisfy, from lowest
// to highest (Core Spec Vol 3 Part C §10.2).
type SecurityLevel int

const (
	SecLevelNone SecurityLevel = iota
	SecLevelUnauthenticatedPairing
	SecLevelAuthenticatedPairing
	SecLevelSecureConnections
)

// DeviceAddressType distinguishes public from random LE addresses.
type DeviceAddressType byte

const (
	AddressPublic DeviceAddressType = 0
	AddressRandom DeviceAddressType = 1
)

// DeviceKey identifies one persisted key-material record: the local
// adapter and the remote device's address and type.
type DeviceKey struct {
	AdapterAddress [6]byte
	DeviceAddress  [6]byte
	AddressType    DeviceAddressType
}

func (k DeviceKey) String() string {
	return fmt.Sprintf("%x/%x/%d", k.AdapterAddress, k.DeviceAddress, k.AddressType)
}

// Keys is the SMP key material persisted for one device: the long-term
// key, identity resolving key and connection signature resolving key
// plus the security level they were established under. Fields are
// opaque byte blobs; their internal structure belongs to the smp
// package, not this one.
type Keys struct {
	SecurityLevel SecurityLevel

	LongTermKey   []byte
	IdentityKey   []byte
	SignatureKey  []byte

	Verbose bool
}

// LoadStatus reports the outcome of a LoadKeys call.
type LoadStatus int

const (
	LoadNotFound LoadStatus = iota
	LoadOK
	LoadInsufficientSecurity
)

// Store is the key-store collaborator contract spec.md §6 names:
// load_keys, store_keys, remove_keys. The core never inspects key
// material itself; it only routes it through this interface.
type Store interface {
	// LoadKeys returns the persisted Keys for device, or LoadNotFound if
	// none are on file, or LoadInsufficientSecurity if the persisted
	// record's SecurityLevel is below requiredSecLevel.
	LoadKeys(device DeviceKey, requiredSecLevel SecurityLevel) (Keys, LoadStatus)

	// StoreKeys persists keys for device, overwriting any prior record.
	// verbose mirrors the core's own debug-logging switch rather than
	// changing what is stored.
	StoreKeys(device DeviceKey, keys Keys, verbose bool)

	// RemoveKeys deletes any persisted record for device. path names the
	// backing store instance to remove from, letting a single process
	// keep more than one keystore open (e.g. one per adapter directory)
	// the way the collaborator contract in spec.md §6 implies.
	RemoveKeys(path string, device DeviceKey)
}

// LRUStore is the default Store: a single bounded LRU cache of
// DeviceKey → Keys, sized at construction. path is used only by
// RemoveKeys, which ignores a call whose non-empty path differs from the
// store's own.
type LRUStore struct {
	path  string
	cache *lru.Cache
}

// NewLRUStore builds an LRUStore holding up to capacity device records.
func NewLRUStore(path string, capacity int) (*LRUStore, error) {
	cache, err := lru.New(capacity)
	if err != nil {
		return nil, err
	}
	return &LRUStore{path: path, cache: cache}, nil
}

func (s *LRUStore) LoadKeys(device DeviceKey, requiredSecLevel SecurityLevel) (Keys, LoadStatus) {
	v, ok := s.cache.Get(device)
	if !ok {
		return Keys{}, LoadNotFound
	}
	keys := v.(Keys)
	if keys.SecurityLevel < requiredSecLevel {
		return Keys{}, LoadInsufficientSecurity
	}
	return keys, LoadOK
}

func (s *LRUStore) StoreKeys(device DeviceKey, keys Keys, verbose bool) {
	keys.Verbose = verbose
	s.cache.Add(device, keys)
}

func (s *LRUStore) RemoveKeys(path string, device DeviceKey) {
	if path != "" && path != s.path {
		return
	}
	s.cache.Remove(device)
}

// Len reports how many device records are currently cached.
func (s *LRUStore) Len() int { return s.cache.Len() }
