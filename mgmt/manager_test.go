package mgmt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XC-/dbt/octets"
	"github.com/XC-/dbt/transport"
)

func newTestManager(t *testing.T) (*Manager, transport.Transport) {
	t.Helper()
	a, b := transport.NewPipePair()
	m := newManagerFromTransport(a)
	require.NoError(t, m.Start())
	t.Cleanup(func() { m.Stop(time.Second) })
	return m, b
}

func TestIndexAddedRegistersAdapterAndFiresCallback(t *testing.T) {
	m, kernel := newTestManager(t)

	var added []*Adapter
	m.AddChangedAdapterSetCallback(func(isAdded bool, a *Adapter) {
		if isAdded {
			added = append(added, a)
		}
	})

	evt, _ := newPDU(EvtIndexAdded, 7, 0)
	require.NoError(t, kernel.Write(evt.Bytes()))

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && len(m.Adapters()) == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	require.Len(t, m.Adapters(), 1)
	require.Len(t, added, 1)
	assert.EqualValues(t, 7, added[0].DevID)
}

func TestAddChangedAdapterSetCallbackReplaysExistingAdapters(t *testing.T) {
	m, kernel := newTestManager(t)

	evt, _ := newPDU(EvtIndexAdded, 1, 0)
	require.NoError(t, kernel.Write(evt.Bytes()))
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && len(m.Adapters()) == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	require.Len(t, m.Adapters(), 1)

	var replayed []*Adapter
	m.AddChangedAdapterSetCallback(func(isAdded bool, a *Adapter) {
		if isAdded {
			replayed = append(replayed, a)
		}
	})
	require.Len(t, replayed, 1, "late subscriber must see the already-known adapter replayed")
}

func TestNewSettingsUpdatesAdapterSettings(t *testing.T) {
	m, kernel := newTestManager(t)

	added, _ := newPDU(EvtIndexAdded, 2, 0)
	require.NoError(t, kernel.Write(added.Bytes()))
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && len(m.Adapters()) == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	require.Len(t, m.Adapters(), 1)

	settingsRaw := buildNewSettings(2, SettingPowered|SettingLE)
	require.NoError(t, kernel.Write(settingsRaw))

	deadline = time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if a := m.GetDefaultAdapter(); a != nil {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("GetDefaultAdapter never observed the powered adapter")
}

func TestGetDefaultAdapterReturnsNilWhenNonePowered(t *testing.T) {
	m, _ := newTestManager(t)
	assert.Nil(t, m.GetDefaultAdapter())
}

func TestWhitelistAddAndRemove(t *testing.T) {
	m, _ := newTestManager(t)
	entry := WhitelistEntry{Address: Address{1, 2, 3, 4, 5, 6}, AddressType: 1, ConnectType: 2}
	m.AddWhitelistEntry(entry)
	assert.Len(t, m.Whitelist(), 1)
	assert.True(t, m.RemoveWhitelistEntry(entry.Address))
	assert.Len(t, m.Whitelist(), 0)
	assert.False(t, m.RemoveWhitelistEntry(entry.Address))
}

func TestIOCapabilityFallsBackToDefault(t *testing.T) {
	m, _ := newTestManager(t)
	assert.Equal(t, IOCapNoInputNoOutput, m.IOCapabilityFor(9))
	m.SetIOCapabilityFor(9, IOCapKeyboardDisplay)
	assert.Equal(t, IOCapKeyboardDisplay, m.IOCapabilityFor(9))
	assert.Equal(t, IOCapNoInputNoOutput, m.IOCapabilityFor(10))
}

func buildNewSettings(devID uint16, s Settings) []byte {
	p, b := newPDU(EvtNewSettings, devID, 4)
	b.PutU32(headerLen, uint32(s), octets.LittleEndian)
	return p.Bytes()
}
