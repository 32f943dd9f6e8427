// Package smp implements the minimal Secure Manager pairing contract
// used to establish the LE Long Term Key, Identity Resolving Key and
// Connection Signature Resolving Key that keystore.Store then persists.
// The pairing state machine (PairingState, manager.Pair/waitResult) is
// grounded on leso-kn-ble's linux/hci/smp/manager.go; the actual
// cryptographic primitives it drives (P-256 ECDH for LE Secure
// Connections public key exchange, AES-CMAC for confirm/check values)
// come from github.com/wsddn/go-ecdh and github.com/aead/cmac, neither
// of which the teacher or any other example repo in the pack needed.
package smp

import "time"

// PairingState enumerates the SMP state machine's phases, named the way
// leso-kn-ble's smp.manager does (Init, WaitPairingResponse, ...).
type PairingState int

const (
	StateInit PairingState = iota
	StateWaitPairingResponse
	StateWaitPublicKey
	StateWaitConfirm
	StateWaitRandom
	StateWaitDHKeyCheck
	StateFinished
	StateFailed
)

// IOCapability mirrors mgmt.IOCapability; duplicated here (rather than
// imported) so smp has no dependency on the mgmt package — only the
// adapter manager needs to know about mgmt wire opcodes.
type IOCapability byte

const (
	IOCapDisplayOnly IOCapability = iota
	IOCapDisplayYesNo
	IOCapKeyboardOnly
	IOCapNoInputNoOutput
	IOCapKeyboardDisplay
)

// AssociationModel is the pairing method SMP selects from the two
// peers' IO capabilities (Core Spec Vol 3 Part H Table 2.8).
type AssociationModel int

const (
	ModelJustWorks AssociationModel = iota
	ModelPasskeyEntry
	ModelNumericComparison
)

// SelectAssociationModel applies the IO-capability mapping table: any
// NoInputNoOutput peer gives Just Works. With secureConnections, two
// sides that can both display and confirm (DisplayYesNo or
// KeyboardDisplay) agree on Numeric Comparison; this is checked before
// Passkey Entry. Otherwise a side with keyboard input and a side with a
// display agree on Passkey Entry, and every other pairing gives Just
// Works.
func SelectAssociationModel(local, remote IOCapability, secureConnections bool) AssociationModel {
	if local == IOCapNoInputNoOutput || remote == IOCapNoInputNoOutput {
		return ModelJustWorks
	}
	hasDisplay := func(c IOCapability) bool { return c == IOCapDisplayYesNo || c == IOCapDisplayOnly || c == IOCapKeyboardDisplay }
	hasKeyboard := func(c IOCapability) bool { return c == IOCapKeyboardOnly || c == IOCapKeyboardDisplay }
	hasYesNo := func(c IOCapability) bool { return c == IOCapDisplayYesNo || c == IOCapKeyboardDisplay }

	if secureConnections && hasYesNo(local) && hasYesNo(remote) {
		return ModelNumericComparison
	}
	if hasKeyboard(local) && hasDisplay(remote) {
		return ModelPasskeyEntry
	}
	if hasKeyboard(remote) && hasDisplay(local) {
		return ModelPasskeyEntry
	}
	return ModelJustWorks
}

// AuthData carries the application-supplied inputs a pairing may need:
// a passkey entered by the user, or out-of-band data exchanged through
// another channel.
type AuthData struct {
	Passkey uint32
	OOBData []byte
}

// PairingRequest is the negotiated request/response exchanged at the
// start of pairing (Core Spec Vol 3 Part H §3.5.1), narrowed to the
// fields this port's association-model selection and key distribution
// actually consume.
type PairingRequest struct {
	IOCapability        IOCapability
	OOBDataPresent      bool
	AuthReqBonding      bool
	AuthReqMITM         bool
	AuthReqSecureConn   bool
	MaxEncryptionKeySize byte
}

// ErrAlreadyPairing is returned by Pair when a pairing is already in
// progress on this manager.
var ErrAlreadyPairing = pairingErr("smp: pairing already in progress")

// ErrTimeout is returned by Pair when the peer never completes the
// exchange within the caller's timeout.
var ErrTimeout = pairingErr("smp: pairing timed out")

type pairingErr string

func (e pairingErr) Error() string { return string(e) }

const defaultPairTimeout = time.Minute
