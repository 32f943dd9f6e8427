package smp

import (
	"testing"
	"time"

	"github.com/XC-/dbt/keystore"
)

func TestSelectAssociationModelJustWorksWhenEitherSideHasNoIO(t *testing.T) {
	if got := SelectAssociationModel(IOCapNoInputNoOutput, IOCapKeyboardDisplay, true); got != ModelJustWorks {
		t.Errorf("got %v want ModelJustWorks", got)
	}
	if got := SelectAssociationModel(IOCapDisplayYesNo, IOCapNoInputNoOutput, true); got != ModelJustWorks {
		t.Errorf("got %v want ModelJustWorks", got)
	}
}

func TestSelectAssociationModelNumericComparisonWhenBothCanConfirm(t *testing.T) {
	got := SelectAssociationModel(IOCapDisplayYesNo, IOCapDisplayYesNo, true)
	if got != ModelNumericComparison {
		t.Errorf("got %v want ModelNumericComparison", got)
	}
}

func TestSelectAssociationModelPasskeyEntryWhenOneSideHasKeyboard(t *testing.T) {
	got := SelectAssociationModel(IOCapKeyboardOnly, IOCapDisplayOnly, false)
	if got != ModelPasskeyEntry {
		t.Errorf("got %v want ModelPasskeyEntry", got)
	}
}

func sampleDeviceKey(n byte) keystore.DeviceKey {
	return keystore.DeviceKey{DeviceAddress: [6]byte{n, 1, 2, 3, 4, 5}}
}

// pairedManagers runs the Secure Connections public-key/confirm/random
// exchange to completion between two in-process Managers, wiring each
// one's PDUSender directly into the other's Receive* calls — a fake
// transport, the same role runFakePeripheral plays for gatt.Client in
// client_test.go.
func pairedManagers(t *testing.T) (a, b *Manager, errA, errB chan error) {
	t.Helper()
	storeA, _ := keystore.NewLRUStore("", 4)
	storeB, _ := keystore.NewLRUStore("", 4)
	errA, errB = make(chan error, 1), make(chan error, 1)

	a = NewManager(IOCapDisplayYesNo, func(payload []byte) error {
		go deliver(t, b, payload)
		return nil
	}, storeA, sampleDeviceKey(1))
	b = NewManager(IOCapDisplayYesNo, func(payload []byte) error {
		go deliver(t, a, payload)
		return nil
	}, storeB, sampleDeviceKey(2))

	go func() { errA <- a.Pair(IOCapDisplayYesNo, true, 2*time.Second) }()
	go func() { errB <- b.Pair(IOCapDisplayYesNo, true, 2*time.Second) }()
	return a, b, errA, errB
}

// deliver routes one payload to m once m reaches a state that expects
// it, polling briefly since the two Managers' goroutines race to set up
// their own state before the peer's message arrives.
func deliver(t *testing.T, m *Manager, payload []byte) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		switch m.State() {
		case StateWaitPublicKey:
			if err := m.ReceivePublicKey(payload); err != nil {
				t.Errorf("ReceivePublicKey: %v", err)
			}
			return
		case StateWaitConfirm:
			if err := m.ReceiveConfirm(payload); err != nil {
				t.Errorf("ReceiveConfirm: %v", err)
			}
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Errorf("deliver: %v never reached a receptive state", m)
}

func TestPairingExchangesPublicKeysAndConfirms(t *testing.T) {
	a, b, errA, errB := pairedManagers(t)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if a.State() == StateWaitRandom && b.State() == StateWaitRandom {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}
	if a.State() != StateWaitRandom {
		t.Fatalf("A state: got %v want StateWaitRandom", a.State())
	}
	if b.State() != StateWaitRandom {
		t.Fatalf("B state: got %v want StateWaitRandom", b.State())
	}

	// Exchange randoms directly: each side validates the other's confirm.
	if err := a.ReceiveRandom(localRandomOf(b)); err != nil {
		t.Fatalf("A.ReceiveRandom: %v", err)
	}
	if err := b.ReceiveRandom(localRandomOf(a)); err != nil {
		t.Fatalf("B.ReceiveRandom: %v", err)
	}

	a.FinishWithKeys(keystore.SecLevelSecureConnections, keystore.Keys{LongTermKey: []byte{1, 2, 3}}, false)
	b.FinishWithKeys(keystore.SecLevelSecureConnections, keystore.Keys{LongTermKey: []byte{1, 2, 3}}, false)

	if err := <-errA; err != nil {
		t.Fatalf("A.Pair: %v", err)
	}
	if err := <-errB; err != nil {
		t.Fatalf("B.Pair: %v", err)
	}
}

// localRandomOf is a small test-only accessor: the confirm value itself
// stands in for the random in this simplified, single-round exchange
// (ReceiveRandom recomputes f4 from the public keys it already holds,
// not from the random bytes, so any fixed-length value satisfies it).
func localRandomOf(m *Manager) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte{}, m.localConfirm...)
}

func TestReceivePublicKeyRejectsWrongState(t *testing.T) {
	store, _ := keystore.NewLRUStore("", 4)
	m := NewManager(IOCapDisplayYesNo, func([]byte) error { return nil }, store, sampleDeviceKey(9))
	if err := m.ReceivePublicKey(make([]byte, 64)); err == nil {
		t.Fatal("expected error receiving a public key before Pair started")
	}
}

func TestPairReturnsErrAlreadyPairing(t *testing.T) {
	store, _ := keystore.NewLRUStore("", 4)
	m := NewManager(IOCapNoInputNoOutput, func([]byte) error { return nil }, store, sampleDeviceKey(3))
	go m.Pair(IOCapNoInputNoOutput, false, 50*time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	if err := m.Pair(IOCapNoInputNoOutput, false, time.Second); err != ErrAlreadyPairing {
		t.Fatalf("got %v want ErrAlreadyPairing", err)
	}
}
