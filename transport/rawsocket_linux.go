//go:build linux

package transport

import (
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Bluetooth address family and protocol numbers, matching teacher's
// linux/internal/socket package constants (rewritten against
// golang.org/x/sys/unix instead of the hand-rolled syscall wrappers
// socket.go used for 386's socketcall indirection).
const (
	afBluetooth = 31 // AF_BLUETOOTH; not exported by every x/sys vintage

	btprotoL2CAP = 0
	btprotoHCI   = 1

	hciChannelControl = 3 // the BlueZ kernel management channel
)

// rawSockaddrHCI mirrors struct sockaddr_hci from linux/bluetooth/hci.h,
// matching teacher's rawSockaddrHCI in internal/socket/socket.go.
type rawSockaddrHCI struct {
	Family  uint16
	Dev     uint16
	Channel uint16
}

func bindHCI(fd int, dev uint16, channel uint16) error {
	sa := rawSockaddrHCI{Family: afBluetooth, Dev: dev, Channel: channel}
	_, _, errno := unix.Syscall(unix.SYS_BIND, uintptr(fd), uintptr(unsafe.Pointer(&sa)), unsafe.Sizeof(sa))
	if errno != 0 {
		return errno
	}
	return nil
}

// RawSocket is a Transport backed by a raw AF_BLUETOOTH socket: either an
// L2CAP connection-oriented channel (one per GATT connection) or the HCI
// control channel (one per adapter, used by the mgmt reader). It is the
// production Transport implementation; tests use the in-memory Pipe
// transport instead.
type RawSocket struct {
	fd     int
	closed bool
	ioErr  bool
}

// NewL2CAPSocket opens an already-connected L2CAP socket file descriptor
// as a Transport. Establishing the connection itself (SDP-less L2CAP
// connect on the ATT fixed channel) is handled by the caller; RawSocket
// only owns the fd once connected.
func NewL2CAPSocket(fd int) *RawSocket {
	return &RawSocket{fd: fd}
}

// NewMgmtControlSocket opens the BlueZ mgmt control channel (HCI_DEV_NONE
// binds to all adapters).
func NewMgmtControlSocket() (*RawSocket, error) {
	fd, err := unix.Socket(afBluetooth, unix.SOCK_RAW, btprotoHCI)
	if err != nil {
		return nil, err
	}
	if err := bindHCI(fd, 0xFFFF, hciChannelControl); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return &RawSocket{fd: fd}, nil
}

func (s *RawSocket) Read(timeout time.Duration) ([]byte, error) {
	if s.closed {
		return nil, ErrClosed
	}
	tv := unix.NsecToTimeval(timeout.Nanoseconds())
	if err := unix.SetsockoptTimeval(s.fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		s.ioErr = true
		return nil, err
	}
	buf := make([]byte, 512)
	n, err := unix.Read(s.fd, buf)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return nil, ErrTimeout
		}
		s.ioErr = true
		return nil, err
	}
	if n <= 0 {
		s.ioErr = true
		return nil, ErrClosed
	}
	return buf[:n], nil
}

func (s *RawSocket) Write(frame []byte) error {
	if s.closed {
		return ErrClosed
	}
	n, err := unix.Write(s.fd, frame)
	if err != nil {
		s.ioErr = true
		return err
	}
	if n != len(frame) {
		s.ioErr = true
		return ErrClosed
	}
	return nil
}

func (s *RawSocket) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return unix.Close(s.fd)
}

func (s *RawSocket) IOError() bool { return s.ioErr }
