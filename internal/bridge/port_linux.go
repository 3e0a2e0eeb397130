/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package bridge

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/go-logr/logr"
	"golang.org/x/sys/unix"
)

// recvTimeoutSec bounds how long a single ReceiveNext syscall may block
// before it wakes up to re-check whether the port has been closed. It only
// affects shutdown latency, never which frames are delivered.
const recvTimeoutSec = 1

// rawPort is the production Port: one AF_PACKET raw socket bound to a
// single named interface, exactly as EthernetPort bound one socket per
// port in the reference implementation.
type rawPort struct {
	name string
	fd   int
	log  logr.Logger

	recvBuf []byte // reused across ReceiveNext calls; never aliased into a Frame

	closed   atomic.Bool
	closeMu  sync.Mutex
	sendOnce sync.Mutex // unix.Write is not documented safe for concurrent callers on one fd
}

// NewRawPort opens and binds a raw Ethernet socket to the named interface.
// Socket creation, index lookup, and bind are the three failures the spec
// calls fatal: none of them have a meaningful soft-failure path, since
// without a bound socket there is no port to report errors through.
func NewRawPort(name string, log logr.Logger) (Port, error) {
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, int(htons(unix.ETH_P_ALL)))
	if err != nil {
		return nil, fmt.Errorf("bridge: create raw socket for %s: %w (requires CAP_NET_RAW)", name, err)
	}

	index, err := ifIndexByName(fd, name)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("bridge: look up interface index for %s: %w", name, err)
	}

	addr := &unix.SockaddrLinklayer{
		Protocol: htons(unix.ETH_P_ALL),
		Ifindex:  int(index),
	}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("bridge: bind raw socket to %s: %w", name, err)
	}

	tv := &unix.Timeval{Sec: recvTimeoutSec, Usec: 0}
	if err := unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, tv); err != nil {
		log.V(1).Info("failed to set receive timeout, shutdown will be slower", "interface", name, "error", err)
	}

	log.Info("opened raw port", "interface", name, "fd", fd, "ifindex", index)

	return &rawPort{
		name:    name,
		fd:      fd,
		log:     log.WithValues("interface", name),
		recvBuf: make([]byte, MaxFrameLength),
	}, nil
}

// ReceiveNext blocks on the bound socket until a frame arrives, the socket
// is closed, or a timeout passes (in which case it simply tries again —
// the timeout exists only so Close can be noticed promptly). Every buffer
// handed back is a fresh copy; a read shorter than an Ethernet header is
// still returned, as the spec leaves well-formedness to the receiver task.
func (p *rawPort) ReceiveNext() (Frame, bool) {
	for {
		if p.closed.Load() {
			return Frame{}, false
		}

		n, _, err := unix.Recvfrom(p.fd, p.recvBuf, 0)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.EINTR {
				continue
			}
			if p.closed.Load() {
				return Frame{}, false
			}
			p.log.Error(err, "raw socket read failed")
			return Frame{}, false
		}

		buf := make([]byte, n)
		copy(buf, p.recvBuf[:n])
		return newRawFrame(buf), true
	}
}

// Send writes frame.Buf verbatim to the bound socket. A socket already
// bound to one interface needs no destination address on send; the
// kernel routes the write out the interface the socket is bound to.
func (p *rawPort) Send(frame Frame) bool {
	p.sendOnce.Lock()
	defer p.sendOnce.Unlock()

	if p.closed.Load() {
		return false
	}
	_, err := unix.Write(p.fd, frame.Buf)
	if err != nil {
		p.log.Error(err, "raw socket write failed")
		return false
	}
	return true
}

// IdentityEquals compares ports by file descriptor, mirroring the
// reference implementation's comparison of two EthernetPort objects by
// their underlying socket_fd.
func (p *rawPort) IdentityEquals(other Port) bool {
	o, ok := other.(*rawPort)
	return ok && o.fd == p.fd
}

func (p *rawPort) Name() string { return p.name }

// Close shuts down the read half of the socket (unblocking any goroutine
// parked in Recvfrom) and then closes the descriptor. It is safe to call
// more than once.
func (p *rawPort) Close() error {
	p.closeMu.Lock()
	defer p.closeMu.Unlock()

	if p.closed.Swap(true) {
		return nil
	}
	_ = unix.Shutdown(p.fd, unix.SHUT_RD)
	return unix.Close(p.fd)
}

// htons converts a uint16 from host to network byte order. AF_PACKET
// wants the EtherType filter in network order regardless of host
// endianness.
func htons(v uint16) uint16 { return (v << 8) | (v >> 8) }

// ifreq mirrors struct ifreq from <net/if.h> closely enough for
// SIOCGIFINDEX: a fixed interface-name field followed by a union whose
// first member we use as the returned index. The overall size matches
// the kernel's expectation on amd64 and arm64.
type ifreq struct {
	name [unix.IFNAMSIZ]byte
	data [24]byte
}

// ifIndexByName resolves an interface name to its kernel ifindex via
// SIOCGIFINDEX, the same ioctl EthernetPort's constructor used before
// binding its socket. fd is only borrowed for the duration of the ioctl;
// any AF_PACKET or AF_INET socket works as the ioctl's target.
func ifIndexByName(fd int, name string) (int32, error) {
	if len(name) >= unix.IFNAMSIZ {
		return 0, fmt.Errorf("interface name %q too long", name)
	}
	var req ifreq
	copy(req.name[:], name)

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(unix.SIOCGIFINDEX), uintptr(unsafe.Pointer(&req)))
	if errno != 0 {
		return 0, errno
	}
	return *(*int32)(unsafe.Pointer(&req.data[0])), nil
}
